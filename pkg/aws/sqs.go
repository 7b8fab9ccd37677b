package aws

import (
	"context"
	"fmt"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"go.uber.org/zap"
)

// SQSAPI is the subset of the SQS client the consumer calls.
type SQSAPI interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

// SQSConsumer long-polls one queue
type SQSConsumer struct {
	client   SQSAPI
	queueURL string
	log      *zap.Logger
}

// NewSQSConsumer creates a consumer for the given queue URL
func NewSQSConsumer(cfg sdkaws.Config, queueURL string, log *zap.Logger) *SQSConsumer {
	return NewSQSConsumerWithClient(sqs.NewFromConfig(cfg), queueURL, log)
}

func NewSQSConsumerWithClient(client SQSAPI, queueURL string, log *zap.Logger) *SQSConsumer {
	if log == nil {
		log = zap.NewNop()
	}
	return &SQSConsumer{client: client, queueURL: queueURL, log: log}
}

// MessageHandler processes one message body. A returned error leaves the
// message on the queue for redelivery.
type MessageHandler func(ctx context.Context, body string) error

// StartPolling runs until ctx is cancelled
func (c *SQSConsumer) StartPolling(ctx context.Context, handler MessageHandler) error {
	c.log.Info("Starting SQS polling", zap.String("queue", c.queueURL))

	for {
		select {
		case <-ctx.Done():
			c.log.Info("SQS polling stopped", zap.String("queue", c.queueURL))
			return ctx.Err()
		default:
			if err := c.PollOnce(ctx, handler); err != nil && ctx.Err() == nil {
				c.log.Warn("Error polling SQS", zap.Error(err))
			}
		}
	}
}

// PollOnce receives one batch and deletes every message the handler accepts.
func (c *SQSConsumer) PollOnce(ctx context.Context, handler MessageHandler) error {
	result, err := c.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            &c.queueURL,
		MaxNumberOfMessages: 10,
		WaitTimeSeconds:     20,
		VisibilityTimeout:   30,
	})
	if err != nil {
		return fmt.Errorf("failed to receive messages: %w", err)
	}

	for _, msg := range result.Messages {
		if msg.Body == nil {
			continue
		}
		if err := handler(ctx, *msg.Body); err != nil {
			c.log.Warn("Failed to process SQS message", zap.Error(err), zap.Stringp("message_id", msg.MessageId))
			continue
		}
		if _, err := c.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
			QueueUrl:      &c.queueURL,
			ReceiptHandle: msg.ReceiptHandle,
		}); err != nil {
			c.log.Warn("Failed to delete SQS message", zap.Error(err), zap.Stringp("message_id", msg.MessageId))
		}
	}
	return nil
}
