package handlers

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"os"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"

	"backend/internal/crm"
	"backend/internal/db"
	"backend/internal/multipart"
	"backend/internal/notify"
	"backend/internal/storage"
)

var allowedExtensions = map[string]bool{
	".pdf":  true,
	".docx": true,
	".jpeg": true,
	".jpg":  true,
	".png":  true,
}

type UploadPayload struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Provider  string `json:"provider"`
	ThreadID  string `json:"thread_id"`
}

func (p UploadPayload) validate() []string {
	var details []string
	if strings.TrimSpace(p.FirstName) == "" {
		details = append(details, "first_name is required")
	}
	if strings.TrimSpace(p.Email) == "" {
		details = append(details, "email is required")
	}
	if strings.TrimSpace(p.Provider) == "" {
		details = append(details, "provider is required")
	}
	if strings.TrimSpace(p.ThreadID) == "" {
		details = append(details, "thread_id is required")
	}
	return details
}

func presignTTL() time.Duration {
	if v := strings.TrimSpace(os.Getenv("UPLOAD_URL_TTL_SECONDS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return time.Duration(n) * time.Second
		}
	}
	return time.Hour
}

func (h *APIHandler) handleUpload(ctx context.Context, contentType string, body []byte) events.APIGatewayV2HTTPResponse {
	form, err := multipart.Decode(body, contentType)
	if err != nil {
		return errResp(http.StatusBadRequest, err.Error())
	}

	if form.File == nil {
		return errResp(http.StatusBadRequest, "file field is required")
	}
	payloadRaw, ok := form.Values["payload"]
	if !ok {
		return errResp(http.StatusBadRequest, "payload field is required")
	}

	var payload UploadPayload
	if err := json.Unmarshal([]byte(payloadRaw), &payload); err != nil {
		return errResp(http.StatusBadRequest, "Invalid JSON in payload field")
	}
	if details := payload.validate(); len(details) > 0 {
		return validationResp(details)
	}

	filename := path.Base(form.File.Filename)
	ext := strings.ToLower(path.Ext(filename))
	if !allowedExtensions[ext] {
		return errResp(http.StatusBadRequest, "file extension not allowed: "+ext)
	}

	bucket := storage.UploadBucket()
	if bucket == "" {
		return errResp(http.StatusInternalServerError, "UPLOAD_BUCKET is not set")
	}

	key := "uploads/" + strings.ToLower(strings.TrimSpace(payload.Email)) + "/" + uploadToken() + "-" + filename
	if err := h.store.Put(ctx, bucket, key, form.File.Content, form.File.ContentType); err != nil {
		return errResp(http.StatusServiceUnavailable, err.Error())
	}

	fileURL, err := h.store.PresignGet(ctx, bucket, key, presignTTL())
	if err != nil {
		return errResp(http.StatusInternalServerError, err.Error())
	}

	var effects []SideEffect

	leadID := ""
	if client, cerr := h.crm.Client(); cerr != nil {
		effects = append(effects, effect("salesforce_lead", cerr))
	} else {
		res, lerr := client.CreateLead(ctx, crm.Lead{
			FirstName: payload.FirstName,
			LastName:  payload.LastName,
			Email:     payload.Email,
			Provider:  payload.Provider,
		})
		effects = append(effects, effect("salesforce_lead", lerr))
		if lerr == nil {
			leadID = res.LeadID
			aerr := client.AttachFile(ctx, leadID, filename, form.File.Content)
			effects = append(effects, effect("salesforce_attachment", aerr))
		}
	}

	upsert, uerr := db.UpsertUserOnLogin(ctx, h.ddb, db.User{
		FirstName:        payload.FirstName,
		LastName:         payload.LastName,
		Email:            payload.Email,
		Provider:         payload.Provider,
		SalesforceLeadID: leadID,
	})
	effects = append(effects, effect("user_upsert", uerr))

	storedLeadID := leadID
	if uerr == nil && upsert.StoredLeadID != "" {
		storedLeadID = upsert.StoredLeadID
	}

	if nerr := notify.UploadStored(ctx, h.sns, payload.Email, bucket, key); nerr != nil {
		effects = append(effects, effect("ops_alert", nerr))
	}

	return jsonResp(http.StatusOK, map[string]any{
		"bucket":             bucket,
		"key":                key,
		"file_url":           fileURL,
		"filename":           filename,
		"content_type":       form.File.ContentType,
		"thread_id":          payload.ThreadID,
		"salesforce_lead_id": storedLeadID,
		"side_effects":       effects,
	})
}

func uploadToken() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
