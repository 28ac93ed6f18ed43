package service

import (
	"context"
	"sync"
	"time"

	"github.com/hartleydigital/portal-api/internal/domain"
	"github.com/hartleydigital/portal-api/internal/infra/observability"
	"github.com/hartleydigital/portal-api/internal/port"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AuditWriter appends activity-log entries asynchronously. Recording
// never blocks the caller and never fails a parent workflow: entries
// are submitted to an in-process queue and written by a single drain
// goroutine; failures are logged and dropped.
type AuditWriter struct {
	store   port.ActivityStore
	metrics *observability.Metrics
	logger  *zap.Logger

	queue chan domain.ActivityLog
	done  chan struct{}
	wg    sync.WaitGroup

	writeTimeout time.Duration
}

// NewAuditWriter starts the drain goroutine. queueSize bounds memory;
// a full queue drops the entry rather than blocking the workflow.
func NewAuditWriter(store port.ActivityStore, queueSize int, metrics *observability.Metrics, logger *zap.Logger) *AuditWriter {
	if queueSize <= 0 {
		queueSize = 256
	}
	w := &AuditWriter{
		store:        store,
		metrics:      metrics,
		logger:       logger,
		queue:        make(chan domain.ActivityLog, queueSize),
		done:         make(chan struct{}),
		writeTimeout: 5 * time.Second,
	}
	w.wg.Add(1)
	go w.drain()
	return w
}

// Record enqueues an audit entry. Missing ID/timestamp are filled in.
func (w *AuditWriter) Record(entry domain.ActivityLog) {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	select {
	case w.queue <- entry:
	default:
		w.metrics.IncrAuditDropped()
		w.logger.Warn("audit: queue full, entry dropped",
			zap.String("action_type", entry.ActionType),
			zap.String("entity_id", entry.EntityID),
		)
	}
}

func (w *AuditWriter) drain() {
	defer w.wg.Done()
	for {
		select {
		case entry := <-w.queue:
			w.write(entry)
		case <-w.done:
			// Flush whatever is already queued, then exit.
			for {
				select {
				case entry := <-w.queue:
					w.write(entry)
				default:
					return
				}
			}
		}
	}
}

func (w *AuditWriter) write(entry domain.ActivityLog) {
	ctx, cancel := context.WithTimeout(context.Background(), w.writeTimeout)
	defer cancel()

	if err := w.store.InsertActivityLog(ctx, &entry); err != nil {
		w.metrics.IncrAuditDropped()
		w.logger.Warn("audit: write failed, entry dropped",
			zap.String("action_type", entry.ActionType),
			zap.String("entity_id", entry.EntityID),
			zap.Error(err),
		)
		return
	}
	w.logger.Debug("audit: entry written",
		zap.String("action_type", entry.ActionType),
		zap.String("entity_type", entry.EntityType),
	)
}

// Close flushes queued entries and stops the drain goroutine.
func (w *AuditWriter) Close() {
	close(w.done)
	w.wg.Wait()
}
