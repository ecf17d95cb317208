package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

type UpsertClient interface {
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
}

type User struct {
	FirstName        string
	LastName         string
	Email            string
	Provider         string
	SalesforceLeadID string // empty means "keep whatever is stored"
}

// UpsertResult carries the lead id actually stored for the user, which is
// the incoming one for a fresh insert and the preserved one on conflict.
type UpsertResult struct {
	StoredLeadID string
}

// UpsertUserOnLogin inserts the user keyed on email, or refreshes the
// existing row. The stored salesforce_lead_id is only replaced when the
// incoming one is non-empty; otherwise the old value survives the update.
func UpsertUserOnLogin(ctx context.Context, client UpsertClient, u User) (UpsertResult, error) {
	table := strings.TrimSpace(UsersTableName())
	if table == "" {
		return UpsertResult{}, fmt.Errorf("missing USERS_TABLE")
	}

	email := strings.TrimSpace(u.Email)
	if email == "" {
		return UpsertResult{}, fmt.Errorf("empty email")
	}

	now := time.Now().UTC().Format(time.RFC3339)

	expr := "SET first_name = :fn, last_name = :ln, provider = :pv, " +
		"last_login_at = :now, updated_at = :now, " +
		"created_at = if_not_exists(created_at, :now), "

	values := map[string]ddbtypes.AttributeValue{
		":fn":  &ddbtypes.AttributeValueMemberS{Value: u.FirstName},
		":ln":  &ddbtypes.AttributeValueMemberS{Value: u.LastName},
		":pv":  &ddbtypes.AttributeValueMemberS{Value: u.Provider},
		":now": &ddbtypes.AttributeValueMemberS{Value: now},
	}

	if id := strings.TrimSpace(u.SalesforceLeadID); id != "" {
		expr += "salesforce_lead_id = :sf"
		values[":sf"] = &ddbtypes.AttributeValueMemberS{Value: id}
	} else {
		expr += "salesforce_lead_id = if_not_exists(salesforce_lead_id, :sf)"
		values[":sf"] = &ddbtypes.AttributeValueMemberNULL{Value: true}
	}

	out, err := client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(table),
		Key: map[string]ddbtypes.AttributeValue{
			"Email": &ddbtypes.AttributeValueMemberS{Value: email},
		},
		UpdateExpression:          aws.String(expr),
		ExpressionAttributeValues: values,
		ReturnValues:              ddbtypes.ReturnValueAllNew,
	})
	if err != nil {
		return UpsertResult{}, fmt.Errorf("users UpdateItem: %w", err)
	}

	res := UpsertResult{}
	if v, ok := out.Attributes["salesforce_lead_id"]; ok {
		if sv, ok2 := v.(*ddbtypes.AttributeValueMemberS); ok2 {
			res.StoredLeadID = strings.TrimSpace(sv.Value)
		}
	}
	return res, nil
}
