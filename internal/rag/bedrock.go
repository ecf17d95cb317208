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

type BedrockClient interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// InvokeChatModel sends one user turn to Claude on Bedrock and returns the
// concatenated text blocks of the reply.
// Uses the Anthropic-style payload commonly used in Bedrock for Claude models.
func InvokeChatModel(ctx context.Context, c BedrockClient, system, prompt string) (string, error) {
	modelID := strings.TrimSpace(os.Getenv("BEDROCK_MODEL_ID"))
	if modelID == "" {
		return "", fmt.Errorf("missing env BEDROCK_MODEL_ID")
	}

	payload := map[string]any{
		"anthropic_version": "bedrock-2023-05-31",
		"max_tokens":        1500,
		"temperature":       0.0,
		"system":            system,
		"messages": []map[string]any{
			{
				"role": "user",
				"content": []map[string]any{
					{"type": "text", "text": prompt},
				},
			},
		},
	}

	body, _ := json.Marshal(payload)

	out, err := c.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(modelID),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		return "", fmt.Errorf("bedrock InvokeModel: %w", err)
	}

	// Claude returns JSON like: { "content":[{"type":"text","text":"..."}], ... }
	var raw struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.Unmarshal(out.Body, &raw); err != nil {
		return "", fmt.Errorf("bedrock response unmarshal: %w", err)
	}

	var text strings.Builder
	for _, block := range raw.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	answer := strings.TrimSpace(text.String())
	if answer == "" {
		return "", fmt.Errorf("model returned no text content")
	}
	return answer, nil
}
