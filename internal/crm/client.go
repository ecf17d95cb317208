// Package crm is the Salesforce collaborator: lead creation on login and
// file attachment on upload. It speaks the REST API directly over net/http;
// auth is the OAuth password grant with credentials held in SSM Parameter
// Store.
package crm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

type Credentials struct {
	ClientID      string `json:"client_id"`
	ClientSecret  string `json:"client_secret"`
	Username      string `json:"username"`
	Password      string `json:"password"`
	SecurityToken string `json:"security_token"`
}

type SSMClient interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// LoadCredentialsFromSSM reads the SecureString JSON blob named by
// SALESFORCE_CREDS_PARAM.
func LoadCredentialsFromSSM(ctx context.Context, client SSMClient) (Credentials, error) {
	name := strings.TrimSpace(os.Getenv("SALESFORCE_CREDS_PARAM"))
	if name == "" {
		return Credentials{}, fmt.Errorf("missing SALESFORCE_CREDS_PARAM")
	}

	out, err := client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(name),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return Credentials{}, fmt.Errorf("ssm GetParameter %s: %w", name, err)
	}
	if out.Parameter == nil || out.Parameter.Value == nil {
		return Credentials{}, fmt.Errorf("ssm parameter %s has no value", name)
	}

	var creds Credentials
	if err := json.Unmarshal([]byte(*out.Parameter.Value), &creds); err != nil {
		return Credentials{}, fmt.Errorf("parse salesforce credentials: %w", err)
	}
	if creds.Username == "" || creds.Password == "" {
		return Credentials{}, fmt.Errorf("salesforce credentials incomplete")
	}
	return creds, nil
}

// Client is an authenticated Salesforce REST client.
type Client struct {
	httpClient  *http.Client
	instanceURL string
	accessToken string
	apiVersion  string
}

// Connection is the outcome of the cold-start connect attempt. Operations
// that need the CRM check it instead of touching a nilable global; an
// unavailable CRM degrades those operations to recorded side-effect
// failures, never a request failure.
type Connection struct {
	client *Client
	reason string
}

func (c Connection) Client() (*Client, error) {
	if c.client == nil {
		return nil, fmt.Errorf("salesforce unavailable: %s", c.reason)
	}
	return c.client, nil
}

func Unavailable(reason string) Connection {
	return Connection{reason: reason}
}

func loginURL() string {
	if v := strings.TrimSpace(os.Getenv("SALESFORCE_LOGIN_URL")); v != "" {
		return v
	}
	return "https://login.salesforce.com"
}

func apiVersion() string {
	if v := strings.TrimSpace(os.Getenv("SALESFORCE_API_VERSION")); v != "" {
		return v
	}
	return "v59.0"
}

// Connect performs the password-grant token exchange. The security token is
// appended to the password, which is what Salesforce expects for
// username/password auth outside a trusted IP range.
func Connect(ctx context.Context, creds Credentials) Connection {
	form := url.Values{}
	form.Set("grant_type", "password")
	form.Set("client_id", creds.ClientID)
	form.Set("client_secret", creds.ClientSecret)
	form.Set("username", creds.Username)
	form.Set("password", creds.Password+creds.SecurityToken)

	endpoint := strings.TrimRight(loginURL(), "/") + "/services/oauth2/token"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return Unavailable(err.Error())
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	httpClient := &http.Client{Timeout: 20 * time.Second}
	res, err := httpClient.Do(req)
	if err != nil {
		return Unavailable(err.Error())
	}
	defer res.Body.Close()

	raw, _ := io.ReadAll(res.Body)
	if res.StatusCode != http.StatusOK {
		return Unavailable(fmt.Sprintf("token endpoint returned %d: %s", res.StatusCode, truncate(string(raw), 300)))
	}

	var tok struct {
		AccessToken string `json:"access_token"`
		InstanceURL string `json:"instance_url"`
	}
	if err := json.Unmarshal(raw, &tok); err != nil {
		return Unavailable(fmt.Sprintf("token response parse: %v", err))
	}
	if tok.AccessToken == "" || tok.InstanceURL == "" {
		return Unavailable("token response missing access_token or instance_url")
	}

	return Connection{client: &Client{
		httpClient:  httpClient,
		instanceURL: strings.TrimRight(tok.InstanceURL, "/"),
		accessToken: tok.AccessToken,
		apiVersion:  apiVersion(),
	}}
}

func (c *Client) sobjectURL(sobject string) string {
	return fmt.Sprintf("%s/services/data/%s/sobjects/%s", c.instanceURL, c.apiVersion, sobject)
}

type createResponse struct {
	ID      string `json:"id"`
	Success bool   `json:"success"`
	Errors  []any  `json:"errors"`
}

// createSObject POSTs a record and returns the new id.
func (c *Client) createSObject(ctx context.Context, sobject string, record any) (string, error) {
	b, _ := json.Marshal(record)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.sobjectURL(sobject), strings.NewReader(string(b)))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.accessToken)

	res, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("salesforce create %s: %w", sobject, err)
	}
	defer res.Body.Close()

	raw, _ := io.ReadAll(res.Body)
	if res.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("salesforce create %s: status %d: %s", sobject, res.StatusCode, truncate(string(raw), 300))
	}

	var out createResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("salesforce create %s: parse response: %w", sobject, err)
	}
	if !out.Success || out.ID == "" {
		return "", fmt.Errorf("salesforce create %s failed: %v", sobject, out.Errors)
	}
	return out.ID, nil
}

// getSObject GETs selected fields of a record into dst.
func (c *Client) getSObject(ctx context.Context, sobject, id, fields string, dst any) error {
	u := fmt.Sprintf("%s/%s?fields=%s", c.sobjectURL(sobject), id, url.QueryEscape(fields))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)

	res, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("salesforce get %s/%s: %w", sobject, id, err)
	}
	defer res.Body.Close()

	raw, _ := io.ReadAll(res.Body)
	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("salesforce get %s/%s: status %d: %s", sobject, id, res.StatusCode, truncate(string(raw), 300))
	}
	return json.Unmarshal(raw, dst)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
