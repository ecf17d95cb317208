// Package handlers routes API Gateway events for the login/chat/upload API
// and owns the response taxonomy: 400 malformed input, 422 failed
// validation, 404 unknown route, 5xx collaborator failures. Best-effort side
// effects (CRM, user store, alerts) are recorded per-response instead of
// failing the request.
package handlers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/aws/aws-lambda-go/events"
	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/ssm"

	"backend/internal/crm"
	"backend/internal/notify"
	"backend/internal/rag"
	"backend/internal/storage"
)

// DynamoAPI is the slice of the DynamoDB client the handlers use.
type DynamoAPI interface {
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
}

type ObjectStore interface {
	Put(ctx context.Context, bucket, key string, content []byte, contentType string) error
	PresignGet(ctx context.Context, bucket, key string, ttl time.Duration) (string, error)
}

type Answerer interface {
	Answer(ctx context.Context, query string) (string, error)
}

type APIHandler struct {
	ddb      DynamoAPI
	sns      notify.PublishClient
	store    ObjectStore
	answerer Answerer
	crm      crm.Connection
}

// NewAPIHandler wires every collaborator once at cold start. The CRM
// connection may come up unavailable; dependent operations then degrade to
// recorded side-effect failures.
func NewAPIHandler(ctx context.Context, cfg awssdk.Config) *APIHandler {
	h := &APIHandler{
		ddb:      dynamodb.NewFromConfig(cfg),
		sns:      sns.NewFromConfig(cfg),
		store:    storage.New(cfg),
		answerer: rag.NewPipeline(cfg),
	}

	creds, err := crm.LoadCredentialsFromSSM(ctx, ssm.NewFromConfig(cfg))
	if err != nil {
		log.Printf("salesforce credentials unavailable: %v", err)
		h.crm = crm.Unavailable(err.Error())
	} else {
		h.crm = crm.Connect(ctx, creds)
	}
	return h
}

func (h *APIHandler) Handle(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	method := req.RequestContext.HTTP.Method

	// API Gateway preflight for CORS
	if method == http.MethodOptions {
		return jsonResp(http.StatusOK, "CORS preflight OK"), nil
	}

	body, ok := requestBody(req)
	if !ok {
		return errResp(http.StatusBadRequest, "invalid body encoding"), nil
	}

	switch {
	case req.RawPath == "/login" && method == http.MethodPost:
		return h.handleLogin(ctx, body), nil
	case req.RawPath == "/api/chat/ask" && method == http.MethodPost:
		return h.handleAsk(ctx, body), nil
	case req.RawPath == "/upload" && method == http.MethodPost:
		return h.handleUpload(ctx, contentTypeHeader(req.Headers), body), nil
	default:
		return jsonResp(http.StatusNotFound, map[string]any{
			"error":  "Not Found",
			"path":   req.RawPath,
			"method": method,
		}), nil
	}
}

func requestBody(req events.APIGatewayV2HTTPRequest) ([]byte, bool) {
	if !req.IsBase64Encoded {
		return []byte(req.Body), true
	}
	b, err := base64.StdEncoding.DecodeString(req.Body)
	if err != nil {
		return nil, false
	}
	return b, true
}

func contentTypeHeader(headers map[string]string) string {
	for k, v := range headers {
		if http.CanonicalHeaderKey(k) == "Content-Type" {
			return v
		}
	}
	return ""
}

// SideEffect records the outcome of one best-effort collaborator call so
// the caller can see what succeeded without the request depending on it.
type SideEffect struct {
	Name   string `json:"name"`
	OK     bool   `json:"ok"`
	Reason string `json:"reason,omitempty"`
}

func effect(name string, err error) SideEffect {
	if err != nil {
		log.Printf("side effect %s failed: %v", name, err)
		return SideEffect{Name: name, OK: false, Reason: err.Error()}
	}
	return SideEffect{Name: name, OK: true}
}

// Common headers for CORS on every response.
func corsHeaders() map[string]string {
	return map[string]string{
		"Content-Type":                 "application/json",
		"Access-Control-Allow-Origin":  "*",
		"Access-Control-Allow-Methods": "POST, GET, OPTIONS",
		"Access-Control-Allow-Headers": "Content-Type, X-Amz-Date, Authorization, X-Api-Key, X-Amz-Security-Token",
	}
}

func jsonResp(status int, v any) events.APIGatewayV2HTTPResponse {
	b, _ := json.Marshal(v)
	return events.APIGatewayV2HTTPResponse{
		StatusCode: status,
		Headers:    corsHeaders(),
		Body:       string(b),
	}
}

func errResp(status int, msg string) events.APIGatewayV2HTTPResponse {
	return jsonResp(status, map[string]any{"error": msg})
}

func validationResp(details []string) events.APIGatewayV2HTTPResponse {
	return jsonResp(http.StatusUnprocessableEntity, map[string]any{
		"error":   "Input validation failed",
		"details": details,
	})
}
