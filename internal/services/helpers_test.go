package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"nexussync/internal/llm"
	"nexussync/internal/models"
	"nexussync/internal/queue"
	"nexussync/internal/retry"
	"nexussync/internal/store"
)

var fixedNow = time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC)

type generatorResponse struct {
	out string
	err error
}

// fakeGenerator replays scripted responses; the last one repeats
type fakeGenerator struct {
	mu        sync.Mutex
	responses []generatorResponse
	prompts   []string
}

func (g *fakeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prompts = append(g.prompts, prompt)
	if len(g.responses) == 0 {
		return `{"summary":"S","insight":"I"}`, nil
	}
	i := len(g.prompts) - 1
	if i >= len(g.responses) {
		i = len(g.responses) - 1
	}
	return g.responses[i].out, g.responses[i].err
}

func (g *fakeGenerator) calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.prompts)
}

func okResponse(summary, insight string) generatorResponse {
	return generatorResponse{out: `{"summary":"` + summary + `","insight":"` + insight + `"}`}
}

var timeoutResponse = generatorResponse{err: &llm.BackendError{
	Provider:  "test",
	Transient: true,
	Err:       context.DeadlineExceeded,
}}

// failingQueue wraps a memory queue and fails publishes on demand
type failingQueue struct {
	*queue.MemoryQueue
	failPublish bool
}

func (q *failingQueue) Publish(ctx context.Context, body []byte, attrs map[string]string) error {
	if q.failPublish {
		return errors.New("queue unavailable")
	}
	return q.MemoryQueue.Publish(ctx, body, attrs)
}

// failingTable wraps a memory table and fails writes on demand
type failingTable struct {
	*store.MemoryTable
	failWrites bool
}

func (t *failingTable) Upsert(ctx context.Context, item models.RecordItem) error {
	if t.failWrites {
		return errors.New("table unavailable")
	}
	return t.MemoryTable.Upsert(ctx, item)
}

func (t *failingTable) Put(ctx context.Context, item models.RecordItem) error {
	if t.failWrites {
		return errors.New("table unavailable")
	}
	return t.MemoryTable.Put(ctx, item)
}

func testEnrichmentConfig() EnrichmentConfig {
	return EnrichmentConfig{
		Enabled:        true,
		MaxAttempts:    3,
		ParseBackoff:   retry.Constant(0),
		BackendBackoff: retry.Constant(0),
	}
}

type testPipeline struct {
	generator   *fakeGenerator
	queue       *failingQueue
	table       *failingTable
	gateway     *store.Gateway
	deadLetters *DeadLetterService
	enrichment  *EnrichmentService
	builder     *RecordBuilder
}

func newTestPipeline(t *testing.T, responses ...generatorResponse) *testPipeline {
	t.Helper()
	p := &testPipeline{
		generator: &fakeGenerator{responses: responses},
		queue:     &failingQueue{MemoryQueue: queue.NewMemoryQueue()},
		table:     &failingTable{MemoryTable: store.NewMemoryTable()},
		builder:   NewRecordBuilder(),
	}
	p.gateway = store.NewGateway(p.table)
	p.gateway.SetClock(func() time.Time { return fixedNow })
	p.builder.SetClock(func() time.Time { return fixedNow })
	p.deadLetters = NewDeadLetterService(p.queue)
	p.deadLetters.SetClock(func() time.Time { return fixedNow })
	p.enrichment = NewEnrichmentService(p.generator, nil, p.deadLetters, testEnrichmentConfig())
	return p
}

func (p *testPipeline) deadLetterMessages(t *testing.T) []models.DeadLetterMessage {
	t.Helper()
	msgs, err := p.queue.Receive(context.Background(), 100, 0)
	if err != nil {
		t.Fatal(err)
	}
	out := make([]models.DeadLetterMessage, 0, len(msgs))
	for _, m := range msgs {
		dl, err := DecodeDeadLetter(m.Body)
		if err != nil {
			t.Fatal(err)
		}
		out = append(out, dl)
	}
	return out
}

func noteRecord() *models.CanonicalRecord {
	return &models.CanonicalRecord{
		PartitionKey:   "nexusnote-notes-production#u1#n1",
		SortKey:        models.RecordSortKey,
		SourceType:     models.SourceTypePersonal,
		SourceName:     "nexusnote-notes-production",
		SourceIdentity: "u1#n1",
		RecordType:     models.RecordTypeNote,
		Content:        models.NoteContent{Title: "Hi", Content: "Hello"},
		CreatedAt:      fixedNow,
		UpdatedAt:      fixedNow,
		LastEvent:      models.EventInsert,
		OwnerID:        "u1",
	}
}
