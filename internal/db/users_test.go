package db

import (
	"context"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

type fakeUpsertClient struct {
	input *dynamodb.UpdateItemInput
	out   *dynamodb.UpdateItemOutput
	err   error
}

func (f *fakeUpsertClient) UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return f.out, nil
}

func TestUpsertUserOnLoginPreservesStoredLeadID(t *testing.T) {
	t.Setenv("USERS_TABLE", "users")

	fake := &fakeUpsertClient{
		out: &dynamodb.UpdateItemOutput{
			Attributes: map[string]ddbtypes.AttributeValue{
				"salesforce_lead_id": &ddbtypes.AttributeValueMemberS{Value: "00Qf600000old"},
			},
		},
	}

	res, err := UpsertUserOnLogin(context.Background(), fake, User{
		FirstName: "Hari",
		Email:     "hari@example.com",
		Provider:  "google",
	})
	if err != nil {
		t.Fatalf("UpsertUserOnLogin: %v", err)
	}

	if res.StoredLeadID != "00Qf600000old" {
		t.Errorf("StoredLeadID = %q, want %q", res.StoredLeadID, "00Qf600000old")
	}

	expr := *fake.input.UpdateExpression
	if !strings.Contains(expr, "salesforce_lead_id = if_not_exists(salesforce_lead_id, :sf)") {
		t.Errorf("expression does not preserve stored lead id: %s", expr)
	}
}

func TestUpsertUserOnLoginReplacesLeadIDWhenSupplied(t *testing.T) {
	t.Setenv("USERS_TABLE", "users")

	fake := &fakeUpsertClient{
		out: &dynamodb.UpdateItemOutput{
			Attributes: map[string]ddbtypes.AttributeValue{
				"salesforce_lead_id": &ddbtypes.AttributeValueMemberS{Value: "00Qf600000new"},
			},
		},
	}

	res, err := UpsertUserOnLogin(context.Background(), fake, User{
		FirstName:        "Hari",
		Email:            "hari@example.com",
		Provider:         "google",
		SalesforceLeadID: "00Qf600000new",
	})
	if err != nil {
		t.Fatalf("UpsertUserOnLogin: %v", err)
	}

	if res.StoredLeadID != "00Qf600000new" {
		t.Errorf("StoredLeadID = %q, want %q", res.StoredLeadID, "00Qf600000new")
	}

	expr := *fake.input.UpdateExpression
	if strings.Contains(expr, "if_not_exists(salesforce_lead_id") {
		t.Errorf("expression should overwrite lead id, got: %s", expr)
	}
	sf, ok := fake.input.ExpressionAttributeValues[":sf"].(*ddbtypes.AttributeValueMemberS)
	if !ok || sf.Value != "00Qf600000new" {
		t.Errorf(":sf = %#v, want S 00Qf600000new", fake.input.ExpressionAttributeValues[":sf"])
	}
}

func TestUpsertUserOnLoginRequiresEmail(t *testing.T) {
	t.Setenv("USERS_TABLE", "users")

	_, err := UpsertUserOnLogin(context.Background(), &fakeUpsertClient{}, User{FirstName: "x"})
	if err == nil {
		t.Fatal("expected error for empty email")
	}
}
