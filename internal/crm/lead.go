package crm

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
)

type Lead struct {
	FirstName string
	LastName  string
	Email     string
	Provider  string
}

type LeadResult struct {
	LeadID string
}

// CreateLead creates the lead record. Salesforce requires LastName, so it
// falls back to FirstName; Company and LeadSource follow the fixed web-login
// convention.
func (c *Client) CreateLead(ctx context.Context, lead Lead) (LeadResult, error) {
	lastName := strings.TrimSpace(lead.LastName)
	if lastName == "" {
		lastName = lead.FirstName
	}

	provider := lead.Provider
	if provider == "" {
		provider = "Unknown"
	}

	id, err := c.createSObject(ctx, "Lead", map[string]any{
		"FirstName":  lead.FirstName,
		"LastName":   lastName,
		"Email":      lead.Email,
		"Company":    fmt.Sprintf("%s Login", provider),
		"LeadSource": "Web",
	})
	if err != nil {
		return LeadResult{}, err
	}
	return LeadResult{LeadID: id}, nil
}

// AttachFile uploads content as a private ContentVersion and links the
// resulting ContentDocument to the lead. The link is explicit
// (ContentDocumentLink with ShareType V) rather than publishing the version
// straight onto the lead, so upload permissions stay narrow.
func (c *Client) AttachFile(ctx context.Context, leadID, filename string, content []byte) error {
	cvID, err := c.createSObject(ctx, "ContentVersion", map[string]any{
		"Title":          filename,
		"PathOnClient":   filename,
		"VersionData":    base64.StdEncoding.EncodeToString(content),
		"IsMajorVersion": true,
	})
	if err != nil {
		return fmt.Errorf("upload content version: %w", err)
	}

	var cv struct {
		ContentDocumentID string `json:"ContentDocumentId"`
	}
	if err := c.getSObject(ctx, "ContentVersion", cvID, "ContentDocumentId", &cv); err != nil {
		return fmt.Errorf("read content document id: %w", err)
	}
	if cv.ContentDocumentID == "" {
		return fmt.Errorf("content version %s has no ContentDocumentId", cvID)
	}

	_, err = c.createSObject(ctx, "ContentDocumentLink", map[string]any{
		"ContentDocumentId": cv.ContentDocumentID,
		"LinkedEntityId":    leadID,
		"ShareType":         "V",
		"Visibility":        "AllUsers",
	})
	if err != nil {
		return fmt.Errorf("link file to lead %s: %w", leadID, err)
	}
	return nil
}
