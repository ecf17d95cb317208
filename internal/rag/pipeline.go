// Package rag answers free-text questions over a fixed document corpus:
// fetch pages, chunk, embed, exact L2 retrieval, then a chat-model
// completion over the retrieved context. Callers treat it as a black box
// returning Markdown.
package rag

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	bedrockruntime "github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"backend/internal/storage"
)

const systemPrompt = `You are a financial assistant. Your task is to answer user queries based on the reference context you are given. You MUST adhere to the following rules for EVERY response:

1. **No Memory:** You have no memory of previous conversation. Treat every user query as a new, standalone request.
2. **Context First:** Answer using the reference context below. Do not invent information that is not in it.
3. **NO CLARIFICATIONS:** You are strictly forbidden from asking the user for clarification, more details, or context (e.g. Which year?). If a query is ambiguous, use the most relevant or most recent information available and present that.
4. **Always Respond:** If the context answers the query, answer concisely using *only* that information. If it does not, you MUST still respond and clearly state that the requested information could not be found in the provided documents.
5. **MANDATORY MARKDOWN:** Your *entire* response must be formatted in valid Markdown. Use headings, subheadings, bullet points, tables, blockquotes, or code blocks as necessary. Even a simple 'not found' message must be valid Markdown (e.g. ## Information Not Found).`

const retrieveK = 10

type Pipeline struct {
	bedrock BedrockClient
	store   *storage.Store

	mu    sync.Mutex
	index *Index
}

func NewPipeline(cfg awssdk.Config) *Pipeline {
	return &Pipeline{
		bedrock: bedrockruntime.NewFromConfig(cfg),
		store:   storage.New(cfg),
	}
}

func indexBucket() string {
	return strings.TrimSpace(os.Getenv("INDEX_BUCKET"))
}

func indexKey() string {
	if v := strings.TrimSpace(os.Getenv("INDEX_KEY")); v != "" {
		return v
	}
	return "rag/index.parquet"
}

func sourceURLs() []string {
	raw := strings.Split(os.Getenv("SOURCE_URLS"), ",")
	urls := make([]string, 0, len(raw))
	for _, u := range raw {
		if u = strings.TrimSpace(u); u != "" {
			urls = append(urls, u)
		}
	}
	return urls
}

// Answer runs the full retrieval flow for one query.
func (p *Pipeline) Answer(ctx context.Context, query string) (string, error) {
	ix, err := p.ensureIndex(ctx)
	if err != nil {
		return "", err
	}

	qvec, err := EmbedText(ctx, p.bedrock, query)
	if err != nil {
		return "", fmt.Errorf("embed query: %w", err)
	}

	retrieved := ix.Search(qvec, retrieveK)

	blocks := make([]string, 0, len(retrieved))
	for _, c := range retrieved {
		blocks = append(blocks, fmt.Sprintf("Source: %s\nContent: %s", c.Source, c.Content))
	}

	prompt := fmt.Sprintf("REFERENCE CONTEXT:\n\n%s\n\nUSER QUERY:\n%s",
		strings.Join(blocks, "\n\n"), query)

	return InvokeChatModel(ctx, p.bedrock, systemPrompt, prompt)
}

// ensureIndex returns the in-memory index, loading the S3 snapshot on first
// use and falling back to a full rebuild when no snapshot exists yet.
func (p *Pipeline) ensureIndex(ctx context.Context) (*Index, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.index != nil {
		return p.index, nil
	}

	bucket := indexBucket()
	if bucket == "" {
		return nil, fmt.Errorf("missing env INDEX_BUCKET")
	}

	if ix, err := LoadSnapshot(ctx, p.store, bucket, indexKey()); err == nil && ix.Len() > 0 {
		p.index = ix
		return ix, nil
	} else if err != nil {
		log.Printf("index snapshot load failed, rebuilding: %v", err)
	}

	ix, err := p.Build(ctx)
	if err != nil {
		return nil, err
	}
	if err := ix.SaveSnapshot(ctx, p.store, bucket, indexKey()); err != nil {
		// next cold start rebuilds again; the answer path still works
		log.Printf("index snapshot save failed: %v", err)
	}

	p.index = ix
	return ix, nil
}

// Build fetches the configured source URLs, chunks and embeds them into a
// fresh index.
func (p *Pipeline) Build(ctx context.Context) (*Index, error) {
	urls := sourceURLs()
	if len(urls) == 0 {
		return nil, fmt.Errorf("missing env SOURCE_URLS")
	}

	docs, err := FetchPages(ctx, urls)
	if err != nil {
		return nil, fmt.Errorf("load documents: %w", err)
	}

	chunks := ChunkDocuments(docs, DefaultChunkSize, DefaultChunkOverlap)

	ix := NewIndex()
	for _, c := range chunks {
		vec, err := EmbedText(ctx, p.bedrock, c.Content)
		if err != nil {
			return nil, fmt.Errorf("embed chunk from %s: %w", c.Source, err)
		}
		c.Vector = vec
		ix.Add(c)
	}
	return ix, nil
}

// Rebuild builds a fresh index from the sources and snapshots it,
// replacing whatever is cached in memory. Used by the scheduled reindex
// function.
func (p *Pipeline) Rebuild(ctx context.Context) (int, error) {
	bucket := indexBucket()
	if bucket == "" {
		return 0, fmt.Errorf("missing env INDEX_BUCKET")
	}

	ix, err := p.Build(ctx)
	if err != nil {
		return 0, err
	}
	if err := ix.SaveSnapshot(ctx, p.store, bucket, indexKey()); err != nil {
		return 0, err
	}

	p.mu.Lock()
	p.index = ix
	p.mu.Unlock()

	return ix.Len(), nil
}
