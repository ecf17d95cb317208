package main

import (
	"context"
	"log"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/config"

	"backend/internal/rag"
)

func main() {
	ctx := context.Background()

	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		log.Fatalf("load aws config: %v", err)
	}

	p := rag.NewPipeline(cfg)

	lambda.Start(func(ctx context.Context, event events.CloudWatchEvent) error {
		n, err := p.Rebuild(ctx)
		if err != nil {
			return err
		}
		log.Printf("rebuilt retrieval index: %d chunks", n)
		return nil
	})
}
