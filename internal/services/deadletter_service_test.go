package services

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"nexussync/internal/models"
)

func TestDeadLetterSend(t *testing.T) {
	p := newTestPipeline(t)

	record := noteRecord()
	record.Summary = models.FallbackSummary
	record.Insight = models.FallbackInsight

	p.deadLetters.Send(context.Background(), record, models.ErrorTypeUpstreamAPI, strings.Repeat("é", 1500), 2)

	msgs, err := p.queue.Receive(context.Background(), 10, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 1 {
		t.Fatalf("Expected 1 message, got %d", len(msgs))
	}

	attrs := msgs[0].Attributes
	if attrs[AttrErrorType] != "UPSTREAM_API_ERROR" {
		t.Errorf("Expected error_type attribute UPSTREAM_API_ERROR, got %q", attrs[AttrErrorType])
	}
	if attrs[AttrRecordType] != "NOTE" {
		t.Errorf("Expected record_type attribute NOTE, got %q", attrs[AttrRecordType])
	}
	if attrs[AttrRetryCount] != "2" {
		t.Errorf("Expected retry_count attribute 2, got %q", attrs[AttrRetryCount])
	}

	dl, err := DecodeDeadLetter(msgs[0].Body)
	if err != nil {
		t.Fatal(err)
	}
	if n := utf8.RuneCountInString(dl.ErrorMessage); n != maxErrorMessageLength {
		t.Errorf("Expected error message truncated to %d characters, got %d", maxErrorMessageLength, n)
	}
	if !utf8.ValidString(dl.ErrorMessage) {
		t.Error("Expected truncation to keep valid UTF-8")
	}
	if dl.Record.Summary != "" || dl.Record.Insight != "" {
		t.Error("Expected enrichment fields to be stripped")
	}
	if !dl.EnqueuedAt.Equal(fixedNow) {
		t.Errorf("Expected enqueued_at %v, got %v", fixedNow, dl.EnqueuedAt)
	}
	if record.Summary != models.FallbackSummary {
		t.Error("Expected the caller's record to be left unchanged")
	}
}

func TestDeadLetterSendSwallowsQueueFailure(t *testing.T) {
	p := newTestPipeline(t)
	p.queue.failPublish = true

	// Must not panic or block
	p.deadLetters.Send(context.Background(), noteRecord(), models.ErrorTypeEnrichmentFailed, "boom", 0)

	msg := p.deadLetters.NewMessage(noteRecord(), models.ErrorTypeEnrichmentFailed, "boom", 0)
	if err := p.deadLetters.Publish(context.Background(), msg); err == nil {
		t.Error("Expected Publish to report the queue failure")
	}
}

func TestDecodeDeadLetter(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"valid", `{"record":{"partition_key":"p","sort_key":"RECORD"},"error_type":"INVALID_RESPONSE","retry_count":1}`, false},
		{"not JSON", `nope`, true},
		{"no record", `{"error_type":"INVALID_RESPONSE"}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeDeadLetter([]byte(tt.body))
			if (err != nil) != tt.wantErr {
				t.Errorf("Expected error %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestTruncateMessage(t *testing.T) {
	tests := []struct {
		input string
		n     int
		want  string
	}{
		{"short", 10, "short"},
		{"exactly", 7, "exactly"},
		{"truncated", 5, "trunc"},
		{"héllo", 2, "hé"},
	}

	for _, tt := range tests {
		if got := truncateMessage(tt.input, tt.n); got != tt.want {
			t.Errorf("truncateMessage(%q, %d): expected %q, got %q", tt.input, tt.n, tt.want, got)
		}
	}
}
