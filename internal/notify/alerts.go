// Package notify publishes best-effort ops alerts to SNS. Everything here
// is fire-and-forget: a missing topic or a publish failure must never fail
// the user-facing request.
package notify

import (
	"context"
	"fmt"
	"os"
	"strings"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
)

type PublishClient interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

func opsTopicArn() string {
	return strings.TrimSpace(os.Getenv("OPS_ALERTS_TOPIC_ARN"))
}

// LeadCreated announces a new CRM lead. Returns nil when no topic is
// configured.
func LeadCreated(ctx context.Context, client PublishClient, email, leadID string) error {
	topic := opsTopicArn()
	if topic == "" {
		return nil
	}

	subject := "New lead created"
	message := fmt.Sprintf("Lead %s created for %s", leadID, email)

	_, err := client.Publish(ctx, &sns.PublishInput{
		TopicArn: awssdk.String(topic),
		Subject:  awssdk.String(subject),
		Message:  awssdk.String(message),
	})
	if err != nil {
		return fmt.Errorf("sns publish lead alert: %w", err)
	}
	return nil
}

// UploadStored announces a stored upload.
func UploadStored(ctx context.Context, client PublishClient, email, bucket, key string) error {
	topic := opsTopicArn()
	if topic == "" {
		return nil
	}

	subject := "File uploaded"
	message := fmt.Sprintf("Upload stored at s3://%s/%s for %s", bucket, key, email)

	_, err := client.Publish(ctx, &sns.PublishInput{
		TopicArn: awssdk.String(topic),
		Subject:  awssdk.String(subject),
		Message:  awssdk.String(message),
	})
	if err != nil {
		return fmt.Errorf("sns publish upload alert: %w", err)
	}
	return nil
}
