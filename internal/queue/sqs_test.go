package queue

import (
	"context"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

type fakeSQS struct {
	sent     []*sqs.SendMessageInput
	received *sqs.ReceiveMessageInput
	deleted  []string
	messages []types.Message
}

func (f *fakeSQS) SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	f.sent = append(f.sent, params)
	return &sqs.SendMessageOutput{MessageId: aws.String("m-1")}, nil
}

func (f *fakeSQS) ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
	f.received = params
	return &sqs.ReceiveMessageOutput{Messages: f.messages}, nil
}

func (f *fakeSQS) DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error) {
	f.deleted = append(f.deleted, aws.ToString(params.ReceiptHandle))
	return &sqs.DeleteMessageOutput{}, nil
}

func (f *fakeSQS) GetQueueAttributes(ctx context.Context, params *sqs.GetQueueAttributesInput, optFns ...func(*sqs.Options)) (*sqs.GetQueueAttributesOutput, error) {
	return &sqs.GetQueueAttributesOutput{}, nil
}

func TestSQSQueue_Publish(t *testing.T) {
	fake := &fakeSQS{}
	q := NewSQSQueue(fake, "https://sqs.local/dlq", 0)

	err := q.Publish(context.Background(), []byte(`{"x":1}`), map[string]string{
		"error_type":  "UPSTREAM_API_ERROR",
		"retry_count": "2",
	})
	if err != nil {
		t.Fatal(err)
	}

	in := fake.sent[0]
	if aws.ToString(in.QueueUrl) != "https://sqs.local/dlq" || aws.ToString(in.MessageBody) != `{"x":1}` {
		t.Errorf("Unexpected send input %+v", in)
	}
	if aws.ToString(in.MessageAttributes["retry_count"].DataType) != "Number" {
		t.Error("Expected numeric attributes to use the Number data type")
	}
	if aws.ToString(in.MessageAttributes["error_type"].DataType) != "String" {
		t.Error("Expected text attributes to use the String data type")
	}
}

func TestSQSQueue_Receive(t *testing.T) {
	fake := &fakeSQS{messages: []types.Message{{
		MessageId:     aws.String("m-1"),
		ReceiptHandle: aws.String("r-1"),
		Body:          aws.String("body"),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"record_type": {DataType: aws.String("String"), StringValue: aws.String("NOTE")},
		},
		Attributes: map[string]string{"ApproximateReceiveCount": "3"},
	}}}
	q := NewSQSQueue(fake, "url", 5*time.Second)

	msgs, err := q.Receive(context.Background(), 25, 90*time.Second)
	if err != nil {
		t.Fatal(err)
	}

	if fake.received.MaxNumberOfMessages != 10 {
		t.Errorf("Expected receive size clamped to 10, got %d", fake.received.MaxNumberOfMessages)
	}
	if fake.received.VisibilityTimeout != 90 || fake.received.WaitTimeSeconds != 5 {
		t.Errorf("Unexpected timeouts %+v", fake.received)
	}
	if len(msgs) != 1 || msgs[0].Receipt != "r-1" || string(msgs[0].Body) != "body" {
		t.Fatalf("Unexpected messages %+v", msgs)
	}
	if msgs[0].Attributes["record_type"] != "NOTE" || msgs[0].ReceiveCount != 3 {
		t.Errorf("Unexpected message metadata %+v", msgs[0])
	}

	if err := q.Delete(context.Background(), "r-1"); err != nil {
		t.Fatal(err)
	}
	if len(fake.deleted) != 1 || fake.deleted[0] != "r-1" {
		t.Errorf("Expected r-1 deleted, got %v", fake.deleted)
	}
}
