package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

type PutClient interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// ChatRecord mirrors the DynamoDB item one question/answer exchange is
// stored as.
type ChatRecord struct {
	PK string `dynamodbav:"PK"`
	SK string `dynamodbav:"SK"`

	Email     string `dynamodbav:"Email"`
	Provider  string `dynamodbav:"Provider"`
	ThreadID  string `dynamodbav:"ThreadID"`
	QueryID   string `dynamodbav:"QueryID"`
	Query     string `dynamodbav:"Query"`
	Response  string `dynamodbav:"Response"`
	CreatedAt string `dynamodbav:"CreatedAt"`
}

func ChatPK(email string) string {
	return fmt.Sprintf("USER#%s", strings.ToLower(strings.TrimSpace(email)))
}

func ChatSK(threadID, queryID string) string {
	return fmt.Sprintf("CHAT#%s#%s", threadID, queryID)
}

func InsertChatRecord(ctx context.Context, client PutClient, rec ChatRecord) error {
	table := strings.TrimSpace(ChatsTableName())
	if table == "" {
		return fmt.Errorf("missing CHATS_TABLE")
	}

	if rec.PK == "" {
		rec.PK = ChatPK(rec.Email)
	}
	if rec.SK == "" {
		rec.SK = ChatSK(rec.ThreadID, rec.QueryID)
	}
	if rec.CreatedAt == "" {
		rec.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	}

	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return fmt.Errorf("marshal chat record: %w", err)
	}

	_, err = client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(table),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("chats PutItem: %w", err)
	}
	return nil
}
