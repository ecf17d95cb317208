package crm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newFakeSalesforce(t *testing.T) (*httptest.Server, *[]string) {
	t.Helper()

	var created []string
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/services/oauth2/token":
			if err := r.ParseForm(); err != nil || r.Form.Get("grant_type") != "password" {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			json.NewEncoder(w).Encode(map[string]string{
				"access_token": "tok-123",
				"instance_url": srv.URL,
			})

		case r.Method == http.MethodPost && strings.HasPrefix(r.URL.Path, "/services/data/v59.0/sobjects/"):
			if r.Header.Get("Authorization") != "Bearer tok-123" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			sobject := strings.TrimPrefix(r.URL.Path, "/services/data/v59.0/sobjects/")
			created = append(created, sobject)
			w.WriteHeader(http.StatusCreated)
			json.NewEncoder(w).Encode(map[string]any{
				"id":      fmt.Sprintf("id-%s", sobject),
				"success": true,
			})

		case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/services/data/v59.0/sobjects/ContentVersion/"):
			json.NewEncoder(w).Encode(map[string]string{
				"ContentDocumentId": "069doc",
			})

		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &created
}

func testCreds() Credentials {
	return Credentials{
		ClientID:      "cid",
		ClientSecret:  "secret",
		Username:      "user@example.com",
		Password:      "pw",
		SecurityToken: "tok",
	}
}

func TestConnectAndCreateLead(t *testing.T) {
	srv, created := newFakeSalesforce(t)
	t.Setenv("SALESFORCE_LOGIN_URL", srv.URL)

	conn := Connect(context.Background(), testCreds())
	client, err := conn.Client()
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}

	res, err := client.CreateLead(context.Background(), Lead{
		FirstName: "Hari",
		Email:     "hari@example.com",
		Provider:  "google",
	})
	if err != nil {
		t.Fatalf("CreateLead: %v", err)
	}
	if res.LeadID != "id-Lead" {
		t.Errorf("LeadID = %q, want id-Lead", res.LeadID)
	}
	if len(*created) != 1 || (*created)[0] != "Lead" {
		t.Errorf("created sobjects = %v, want [Lead]", *created)
	}
}

func TestAttachFileLinksContentDocument(t *testing.T) {
	srv, created := newFakeSalesforce(t)
	t.Setenv("SALESFORCE_LOGIN_URL", srv.URL)

	conn := Connect(context.Background(), testCreds())
	client, err := conn.Client()
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}

	content := []byte("%PDF-1.4 test")
	if err := client.AttachFile(context.Background(), "id-Lead", "resume.pdf", content); err != nil {
		t.Fatalf("AttachFile: %v", err)
	}

	want := []string{"ContentVersion", "ContentDocumentLink"}
	if len(*created) != len(want) {
		t.Fatalf("created sobjects = %v, want %v", *created, want)
	}
	for i := range want {
		if (*created)[i] != want[i] {
			t.Errorf("created[%d] = %q, want %q", i, (*created)[i], want[i])
		}
	}
}

func TestConnectUnavailableOnAuthFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"invalid_grant"}`))
	}))
	defer srv.Close()
	t.Setenv("SALESFORCE_LOGIN_URL", srv.URL)

	conn := Connect(context.Background(), testCreds())
	if _, err := conn.Client(); err == nil {
		t.Fatal("expected unavailable connection")
	}
}

func TestUnavailableConnection(t *testing.T) {
	conn := Unavailable("no credentials")
	if _, err := conn.Client(); err == nil || !strings.Contains(err.Error(), "no credentials") {
		t.Fatalf("Client() error = %v, want reason in message", err)
	}
}
