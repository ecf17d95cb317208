package rag

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	bedrockruntime "github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
)

func embedModelID() string {
	if v := strings.TrimSpace(os.Getenv("EMBED_MODEL_ID")); v != "" {
		return v
	}
	return "amazon.titan-embed-text-v2:0"
}

// EmbedText returns the embedding vector for one piece of text via the Titan
// embeddings model.
func EmbedText(ctx context.Context, c BedrockClient, text string) ([]float32, error) {
	body, _ := json.Marshal(map[string]any{
		"inputText": text,
	})

	out, err := c.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(embedModelID()),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		return nil, fmt.Errorf("bedrock embed InvokeModel: %w", err)
	}

	var raw struct {
		Embedding []float32 `json:"embedding"`
	}
	if err := json.Unmarshal(out.Body, &raw); err != nil {
		return nil, fmt.Errorf("embedding response unmarshal: %w", err)
	}
	if len(raw.Embedding) == 0 {
		return nil, fmt.Errorf("embedding response empty")
	}
	return raw.Embedding, nil
}
