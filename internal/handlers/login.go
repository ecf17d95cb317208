package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"

	"backend/internal/crm"
	"backend/internal/db"
	"backend/internal/notify"
)

type LoginRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Provider  string `json:"provider"` // "google" or "microsoft"
}

func (r LoginRequest) validate() []string {
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
	return details
}

func (h *APIHandler) handleLogin(ctx context.Context, body []byte) events.APIGatewayV2HTTPResponse {
	var req LoginRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return errResp(http.StatusBadRequest, "Invalid JSON in request body")
	}
	if details := req.validate(); len(details) > 0 {
		return validationResp(details)
	}

	var effects []SideEffect

	// Lead creation and the user upsert are best-effort: login succeeds
	// with whatever was obtainable.
	leadID := ""
	if client, err := h.crm.Client(); err != nil {
		effects = append(effects, effect("salesforce_lead", err))
	} else {
		res, err := client.CreateLead(ctx, crm.Lead{
			FirstName: req.FirstName,
			LastName:  req.LastName,
			Email:     req.Email,
			Provider:  req.Provider,
		})
		effects = append(effects, effect("salesforce_lead", err))
		if err == nil {
			leadID = res.LeadID
			if nerr := notify.LeadCreated(ctx, h.sns, req.Email, leadID); nerr != nil {
				effects = append(effects, effect("ops_alert", nerr))
			}
		}
	}

	storedLeadID := leadID
	upsert, err := db.UpsertUserOnLogin(ctx, h.ddb, db.User{
		FirstName:        req.FirstName,
		LastName:         req.LastName,
		Email:            req.Email,
		Provider:         req.Provider,
		SalesforceLeadID: leadID,
	})
	effects = append(effects, effect("user_upsert", err))
	if err == nil && upsert.StoredLeadID != "" {
		storedLeadID = upsert.StoredLeadID
	}

	return jsonResp(http.StatusOK, map[string]any{
		"first_name":         req.FirstName,
		"last_name":          req.LastName,
		"email":              req.Email,
		"provider":           req.Provider,
		"salesforce_lead_id": storedLeadID,
		"side_effects":       effects,
	})
}
