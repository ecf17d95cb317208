package rag

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html"
)

// Document is one fetched source page before chunking.
type Document struct {
	Source  string
	Content string
}

var pageClient = &http.Client{Timeout: 30 * time.Second}

// FetchPages downloads each URL and strips the HTML down to visible text.
// A page that fails to download is skipped; only a fully-empty result is an
// error, since an index built from nothing answers nothing.
func FetchPages(ctx context.Context, urls []string) ([]Document, error) {
	docs := make([]Document, 0, len(urls))
	for _, u := range urls {
		u = strings.TrimSpace(u)
		if u == "" {
			continue
		}

		text, err := fetchPage(ctx, u)
		if err != nil {
			continue
		}
		if text == "" {
			continue
		}
		docs = append(docs, Document{Source: u, Content: text})
	}

	if len(docs) == 0 {
		return nil, fmt.Errorf("no documents loaded from %d urls", len(urls))
	}
	return docs, nil
}

func fetchPage(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}

	res, err := pageClient.Do(req)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		io.Copy(io.Discard, res.Body)
		return "", fmt.Errorf("fetch %s: status %d", url, res.StatusCode)
	}

	return ExtractText(res.Body)
}

// ExtractText walks the HTML token stream and keeps text nodes, skipping
// script and style bodies. Whitespace is collapsed per text node; nodes are
// joined with newlines so block boundaries survive for the splitter.
func ExtractText(r io.Reader) (string, error) {
	tok := html.NewTokenizer(r)

	var b strings.Builder
	skipDepth := 0
	for {
		switch tok.Next() {
		case html.ErrorToken:
			if tok.Err() == io.EOF {
				return strings.TrimSpace(b.String()), nil
			}
			return "", tok.Err()

		case html.StartTagToken:
			name, _ := tok.TagName()
			if tag := string(name); tag == "script" || tag == "style" || tag == "noscript" {
				skipDepth++
			}

		case html.EndTagToken:
			name, _ := tok.TagName()
			if tag := string(name); tag == "script" || tag == "style" || tag == "noscript" {
				if skipDepth > 0 {
					skipDepth--
				}
			}

		case html.TextToken:
			if skipDepth > 0 {
				continue
			}
			text := strings.Join(strings.Fields(string(tok.Text())), " ")
			if text == "" {
				continue
			}
			if b.Len() > 0 {
				b.WriteByte('\n')
			}
			b.WriteString(text)
		}
	}
}
