package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
	"go.uber.org/zap"
)

// SNSNotifier publishes user notifications to an SNS topic consumed by the
// downstream push/SMS/email pipeline.
type SNSNotifier struct {
	client   *sns.Client
	topicARN string
	logger   *zap.Logger
}

// NewSNSNotifier loads AWS config and wires the notification topic. A
// LocalStack endpoint can be supplied via AWS_ENDPOINT.
func NewSNSNotifier(ctx context.Context, topicARN string, logger *zap.Logger) (*SNSNotifier, error) {
	if topicARN == "" {
		return nil, fmt.Errorf("notification topic ARN not set")
	}

	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	if endpoint := os.Getenv("AWS_ENDPOINT"); endpoint != "" {
		cfg.EndpointResolverWithOptions = sdkaws.EndpointResolverWithOptionsFunc(
			func(service, region string, options ...interface{}) (sdkaws.Endpoint, error) {
				return sdkaws.Endpoint{
					URL:               endpoint,
					SigningRegion:     region,
					HostnameImmutable: true,
				}, nil
			})
	}

	return &SNSNotifier{
		client:   sns.NewFromConfig(cfg),
		topicARN: topicARN,
		logger:   logger,
	}, nil
}

// Notify publishes the event best-effort. Failures are logged, never returned.
func (n *SNSNotifier) Notify(ctx context.Context, userID string, event Event) {
	payload := map[string]interface{}{
		"userId":  userID,
		"type":    event.Type,
		"message": event.Message,
	}
	if event.OrderID != "" {
		payload["orderId"] = event.OrderID
	}

	msgBytes, err := json.Marshal(payload)
	if err != nil {
		n.logger.Error("failed to marshal notification payload", zap.Error(err))
		return
	}

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	_, err = n.client.Publish(pubCtx, &sns.PublishInput{
		TopicArn: sdkaws.String(n.topicARN),
		Message:  sdkaws.String(string(msgBytes)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"event_type": {
				DataType:    sdkaws.String("String"),
				StringValue: sdkaws.String(event.Type),
			},
		},
	})
	if err != nil {
		n.logger.Warn("notification publish failed",
			zap.String("user_id", userID),
			zap.String("type", event.Type),
			zap.Error(err),
		)
		return
	}

	n.logger.Debug("notification published",
		zap.String("user_id", userID),
		zap.String("type", event.Type),
	)
}

// LogNotifier is the fallback collaborator when no SNS topic is configured.
type LogNotifier struct {
	Logger *zap.Logger
}

func (n *LogNotifier) Notify(_ context.Context, userID string, event Event) {
	n.Logger.Info("notification",
		zap.String("user_id", userID),
		zap.String("type", event.Type),
		zap.String("message", event.Message),
		zap.String("order_id", event.OrderID),
	)
}
