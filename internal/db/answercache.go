package db

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Answer cache for the chat endpoint. Retrieval plus a chat-model round trip
// is the slow path, so identical questions within the TTL are served from
// DynamoDB. Optional: when ANSWER_CACHE_TABLE is unset every lookup misses.

type CacheClient interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

func answerCacheTTLSeconds() int64 {
	v := strings.TrimSpace(os.Getenv("ANSWER_CACHE_TTL_SECONDS"))
	if v == "" {
		return 600
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		return 600
	}
	return n
}

func NormalizeQuestion(q string) string {
	q = strings.ToLower(strings.TrimSpace(q))
	// collapse whitespace
	q = strings.Join(strings.Fields(q), " ")
	return q
}

func answerCacheKey(question string) string {
	sum := sha256.Sum256([]byte(NormalizeQuestion(question)))
	return "Q#" + hex.EncodeToString(sum[:])
}

func GetCachedAnswer(ctx context.Context, client CacheClient, question string) (string, bool, error) {
	table := strings.TrimSpace(AnswerCacheTableName())
	if table == "" {
		return "", false, nil
	}

	out, err := client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(table),
		Key: map[string]ddbtypes.AttributeValue{
			"PK": &ddbtypes.AttributeValueMemberS{Value: answerCacheKey(question)},
		},
		ConsistentRead: aws.Bool(false),
	})
	if err != nil {
		return "", false, fmt.Errorf("answer cache GetItem: %w", err)
	}
	if len(out.Item) == 0 {
		return "", false, nil
	}

	ans, ok := out.Item["Answer"].(*ddbtypes.AttributeValueMemberS)
	if !ok {
		return "", false, nil
	}
	return ans.Value, true, nil
}

func PutCachedAnswer(ctx context.Context, client CacheClient, question, answer string) error {
	table := strings.TrimSpace(AnswerCacheTableName())
	if table == "" {
		return nil
	}

	now := time.Now().UTC().Unix()
	exp := now + answerCacheTTLSeconds()

	_, err := client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(table),
		Item: map[string]ddbtypes.AttributeValue{
			"PK":        &ddbtypes.AttributeValueMemberS{Value: answerCacheKey(question)},
			"Answer":    &ddbtypes.AttributeValueMemberS{Value: answer},
			"ExpiresAt": &ddbtypes.AttributeValueMemberN{Value: fmt.Sprintf("%d", exp)},
			"CreatedAt": &ddbtypes.AttributeValueMemberN{Value: fmt.Sprintf("%d", now)},
		},
	})
	if err != nil {
		return fmt.Errorf("answer cache PutItem: %w", err)
	}
	return nil
}
