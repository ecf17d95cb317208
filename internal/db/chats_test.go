package db

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

type fakePutClient struct {
	input *dynamodb.PutItemInput
}

func (f *fakePutClient) PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.input = params
	return &dynamodb.PutItemOutput{}, nil
}

func TestInsertChatRecordFillsKeys(t *testing.T) {
	t.Setenv("CHATS_TABLE", "chats")

	fake := &fakePutClient{}
	err := InsertChatRecord(context.Background(), fake, ChatRecord{
		Email:    "Hari@Example.com",
		ThreadID: "t1",
		QueryID:  "q1",
		Query:    "what are the charges?",
		Response: "## Charges\n...",
	})
	if err != nil {
		t.Fatalf("InsertChatRecord: %v", err)
	}

	pk := fake.input.Item["PK"].(*ddbtypes.AttributeValueMemberS).Value
	sk := fake.input.Item["SK"].(*ddbtypes.AttributeValueMemberS).Value
	if pk != "USER#hari@example.com" {
		t.Errorf("PK = %q", pk)
	}
	if sk != "CHAT#t1#q1" {
		t.Errorf("SK = %q", sk)
	}
	if fake.input.Item["CreatedAt"].(*ddbtypes.AttributeValueMemberS).Value == "" {
		t.Error("CreatedAt not set")
	}
}

func TestInsertChatRecordMissingTable(t *testing.T) {
	t.Setenv("CHATS_TABLE", "")

	if err := InsertChatRecord(context.Background(), &fakePutClient{}, ChatRecord{Email: "a@b.c"}); err == nil {
		t.Fatal("expected error when CHATS_TABLE unset")
	}
}
