package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"

	"backend/internal/db"
)

type AskRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Provider  string `json:"provider"`
	UserQuery string `json:"user_query"`
	ThreadID  string `json:"thread_id"`
	QueryID   string `json:"query_id"`
}

func (r AskRequest) validate() []string {
	var details []string
	if strings.TrimSpace(r.FirstName) == "" {
		details = append(details, "first_name is required")
	}
	if strings.TrimSpace(r.Email) == "" {
		details = append(details, "email is required")
	}
	if strings.TrimSpace(r.Provider) == "" {
		details = append(details, "provider is required")
	}
	if strings.TrimSpace(r.UserQuery) == "" {
		details = append(details, "user_query is required")
	}
	if strings.TrimSpace(r.ThreadID) == "" {
		details = append(details, "thread_id is required")
	}
	if strings.TrimSpace(r.QueryID) == "" {
		details = append(details, "query_id is required")
	}
	return details
}

func (h *APIHandler) handleAsk(ctx context.Context, body []byte) events.APIGatewayV2HTTPResponse {
	var req AskRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return errResp(http.StatusBadRequest, "Invalid JSON in request body")
	}
	if details := req.validate(); len(details) > 0 {
		return validationResp(details)
	}

	answer := ""
	cached := false
	if hit, ok, err := db.GetCachedAnswer(ctx, h.ddb, req.UserQuery); err == nil && ok {
		answer = hit
		cached = true
	} else if err != nil {
		log.Printf("answer cache lookup failed: %v", err)
	}

	if !cached {
		out, err := h.answerer.Answer(ctx, req.UserQuery)
		if err != nil {
			return errResp(http.StatusInternalServerError, err.Error())
		}
		answer = out

		if err := db.PutCachedAnswer(ctx, h.ddb, req.UserQuery, answer); err != nil {
			log.Printf("answer cache store failed: %v", err)
		}
	}

	var effects []SideEffect
	err := db.InsertChatRecord(ctx, h.ddb, db.ChatRecord{
		Email:    req.Email,
		Provider: req.Provider,
		ThreadID: req.ThreadID,
		QueryID:  req.QueryID,
		Query:    req.UserQuery,
		Response: answer,
	})
	effects = append(effects, effect("chat_record", err))

	return jsonResp(http.StatusOK, map[string]any{
		"response":     answer,
		"cached":       cached,
		"side_effects": effects,
	})
}
