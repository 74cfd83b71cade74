package queue

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

// sqsMaxMessages is the SQS per-receive ceiling
const sqsMaxMessages = 10

// SQSAPI is the slice of the SQS client the queue uses
type SQSAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
	GetQueueAttributes(ctx context.Context, params *sqs.GetQueueAttributesInput, optFns ...func(*sqs.Options)) (*sqs.GetQueueAttributesOutput, error)
}

// SQSQueue is a queue backed by an SQS queue URL
type SQSQueue struct {
	api      SQSAPI
	queueURL string
	// WaitTime enables long polling on receive
	waitTime time.Duration
}

// NewSQSQueue wraps an SQS client for a single queue
func NewSQSQueue(api SQSAPI, queueURL string, waitTime time.Duration) *SQSQueue {
	return &SQSQueue{api: api, queueURL: queueURL, waitTime: waitTime}
}

func (q *SQSQueue) Publish(ctx context.Context, body []byte, attrs map[string]string) error {
	input := &sqs.SendMessageInput{
		QueueUrl:    aws.String(q.queueURL),
		MessageBody: aws.String(string(body)),
	}
	if len(attrs) > 0 {
		input.MessageAttributes = make(map[string]types.MessageAttributeValue, len(attrs))
		for k, v := range attrs {
			dataType := "String"
			if _, err := strconv.Atoi(v); err == nil {
				dataType = "Number"
			}
			input.MessageAttributes[k] = types.MessageAttributeValue{
				DataType:    aws.String(dataType),
				StringValue: aws.String(v),
			}
		}
	}

	if _, err := q.api.SendMessage(ctx, input); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

func (q *SQSQueue) Receive(ctx context.Context, max int, visibility time.Duration) ([]Message, error) {
	if max > sqsMaxMessages {
		max = sqsMaxMessages
	}
	if max < 1 {
		max = 1
	}

	out, err := q.api.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:              aws.String(q.queueURL),
		MaxNumberOfMessages:   int32(max),
		VisibilityTimeout:     int32(visibility / time.Second),
		WaitTimeSeconds:       int32(q.waitTime / time.Second),
		MessageAttributeNames: []string{"All"},
		MessageSystemAttributeNames: []types.MessageSystemAttributeName{
			types.MessageSystemAttributeNameApproximateReceiveCount,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to receive messages: %w", err)
	}

	messages := make([]Message, 0, len(out.Messages))
	for _, m := range out.Messages {
		msg := Message{
			ID:         aws.ToString(m.MessageId),
			Receipt:    aws.ToString(m.ReceiptHandle),
			Body:       []byte(aws.ToString(m.Body)),
			Attributes: make(map[string]string, len(m.MessageAttributes)),
		}
		for k, v := range m.MessageAttributes {
			msg.Attributes[k] = aws.ToString(v.StringValue)
		}
		if n, err := strconv.Atoi(m.Attributes[string(types.MessageSystemAttributeNameApproximateReceiveCount)]); err == nil {
			msg.ReceiveCount = n
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

func (q *SQSQueue) Delete(ctx context.Context, receipt string) error {
	_, err := q.api.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(q.queueURL),
		ReceiptHandle: aws.String(receipt),
	})
	if err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}
	return nil
}

func (q *SQSQueue) Ping(ctx context.Context) error {
	_, err := q.api.GetQueueAttributes(ctx, &sqs.GetQueueAttributesInput{
		QueueUrl:       aws.String(q.queueURL),
		AttributeNames: []types.QueueAttributeName{types.QueueAttributeNameApproximateNumberOfMessages},
	})
	return err
}

func (q *SQSQueue) Close() error { return nil }
