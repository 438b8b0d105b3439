package activity

import (
	"context"
	"sync"
	"testing"

	"github.com/clawsync/clawsync/internal/observability"
	"github.com/clawsync/clawsync/pkg/models"
)

type captureSink struct {
	mu      sync.Mutex
	records []*models.ActivityRecord
}

func (c *captureSink) WriteActivity(ctx context.Context, rec *models.ActivityRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records = append(c.records, rec)
	return nil
}

func testLogger() *observability.Logger {
	return observability.NewLogger(observability.LogConfig{Level: "error", Format: "text"})
}

func TestRecorder_FlushesOnClose(t *testing.T) {
	sink := &captureSink{}
	rec := NewRecorder(sink, testLogger())

	rec.Record("message_processed", "replied on telegram", models.ActivityInternal, models.ChannelTelegram)
	rec.Record("tool_executed", "ran analytics", models.ActivityPublic, models.ChannelWeb)
	rec.Close()

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if len(sink.records) != 2 {
		t.Fatalf("len(records) = %d, want 2", len(sink.records))
	}
	first := sink.records[0]
	if first.ID == "" {
		t.Error("expected a minted record ID")
	}
	if first.ActionType != "message_processed" || first.Channel != models.ChannelTelegram {
		t.Errorf("unexpected first record: %+v", first)
	}
	if first.CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be set")
	}
}

func TestRecorder_RecordNeverBlocks(t *testing.T) {
	// A sink that blocks until released simulates a stalled database.
	release := make(chan struct{})
	blocked := &blockingSink{release: release}
	rec := NewRecorder(blocked, testLogger())

	// Overfill the queue while the sink is stuck on the first record.
	for i := 0; i < defaultQueueSize*2; i++ {
		rec.Record("message_processed", "x", models.ActivityInternal, models.ChannelWeb)
	}

	close(release)
	rec.Close()
}

func TestRecorder_RecordAfterCloseIsDropped(t *testing.T) {
	sink := &captureSink{}
	rec := NewRecorder(sink, testLogger())
	rec.Record("message_processed", "before close", models.ActivityInternal, models.ChannelWeb)
	rec.Close()

	// A request finishing during shutdown must not panic the process.
	rec.Record("message_processed", "after close", models.ActivityInternal, models.ChannelWeb)
	rec.Close()

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if len(sink.records) != 1 {
		t.Fatalf("len(records) = %d, want 1", len(sink.records))
	}
}

type blockingSink struct {
	release chan struct{}
}

func (b *blockingSink) WriteActivity(ctx context.Context, rec *models.ActivityRecord) error {
	<-b.release
	return nil
}
