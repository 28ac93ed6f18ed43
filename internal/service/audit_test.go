package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/hartleydigital/portal-api/internal/domain"
	"github.com/hartleydigital/portal-api/internal/infra/observability"
	"github.com/hartleydigital/portal-api/internal/service"

	"go.uber.org/zap"
)

type fakeActivityStore struct {
	mu      sync.Mutex
	entries []domain.ActivityLog
	err     error
	block   chan struct{} // when set, writes block until closed
}

func (f *fakeActivityStore) InsertActivityLog(_ context.Context, entry *domain.ActivityLog) error {
	if f.block != nil {
		<-f.block
	}
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	f.entries = append(f.entries, *entry)
	f.mu.Unlock()
	return nil
}

func (f *fakeActivityStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.entries)
}

func TestAuditWriter_WritesAsync(t *testing.T) {
	store := &fakeActivityStore{}
	w := service.NewAuditWriter(store, 16, observability.NewMetrics(), zap.NewNop())

	w.Record(domain.ActivityLog{ActionType: "client_created", EntityType: "client", EntityID: "c-1"})
	w.Record(domain.ActivityLog{ActionType: "client_updated", EntityType: "client", EntityID: "c-1"})
	w.Close()

	if store.count() != 2 {
		t.Errorf("expected 2 entries written, got %d", store.count())
	}
	store.mu.Lock()
	defer store.mu.Unlock()
	if store.entries[0].ID == "" || store.entries[0].CreatedAt.IsZero() {
		t.Error("expected ID and timestamp to be filled in")
	}
}

func TestAuditWriter_RecordNeverBlocks(t *testing.T) {
	store := &fakeActivityStore{block: make(chan struct{})}
	w := service.NewAuditWriter(store, 1, observability.NewMetrics(), zap.NewNop())
	defer close(store.block)

	// Queue of 1 with a blocked writer: extra records must drop, not block.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 50; i++ {
			w.Record(domain.ActivityLog{ActionType: "x"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Record blocked the caller")
	}
}

func TestAuditWriter_WriteFailureDoesNotPropagate(t *testing.T) {
	store := &fakeActivityStore{err: errors.New("insert failed")}
	metrics := observability.NewMetrics()
	w := service.NewAuditWriter(store, 16, metrics, zap.NewNop())

	w.Record(domain.ActivityLog{ActionType: "client_created"})
	w.Close()

	if got := metrics.GetPortalSnapshot().AuditEntriesLost; got != 1 {
		t.Errorf("expected 1 lost entry counted, got %d", got)
	}
}
