package rag

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestExtractTextSkipsScriptAndStyle(t *testing.T) {
	t.Parallel()

	page := `<html><head>
		<style>body { color: red }</style>
		<script>var x = 1;</script>
	</head><body>
		<h1>Charges &amp; Fees</h1>
		<p>Swap charge is   500.</p>
	</body></html>`

	got, err := ExtractText(strings.NewReader(page))
	if err != nil {
		t.Fatalf("ExtractText: %v", err)
	}
	if strings.Contains(got, "color: red") || strings.Contains(got, "var x") {
		t.Errorf("script/style leaked into text: %q", got)
	}
	if !strings.Contains(got, "Charges & Fees") {
		t.Errorf("heading missing from text: %q", got)
	}
	if !strings.Contains(got, "Swap charge is 500.") {
		t.Errorf("whitespace not collapsed: %q", got)
	}
}

func TestFetchPagesSkipsFailingURLs(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			w.Write([]byte("<html><body><p>hello world</p></body></html>"))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	docs, err := FetchPages(context.Background(), []string{srv.URL + "/missing", srv.URL + "/ok"})
	if err != nil {
		t.Fatalf("FetchPages: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("got %d documents, want 1", len(docs))
	}
	if docs[0].Source != srv.URL+"/ok" || docs[0].Content != "hello world" {
		t.Errorf("doc = %+v", docs[0])
	}
}

func TestFetchPagesAllFail(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	if _, err := FetchPages(context.Background(), []string{srv.URL + "/a"}); err == nil {
		t.Fatal("expected error when no documents load")
	}
}
