package server

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/muddy-beach/beachmud/pkg/events"
)

// ScrollbackWriter is a global event bus subscriber that writes room
// activity to SQLite for later retrieval.
type ScrollbackWriter struct {
	sqldb  *SQLStore
	log    *zap.Logger
	mu     sync.Mutex
	closed bool
}

// NewScrollbackWriter creates a scrollback writer and registers it as a
// global subscriber on the bus. Returns nil if the store is absent or the
// schema cannot be created.
func NewScrollbackWriter(sqldb *SQLStore, bus *events.Bus, log *zap.Logger) *ScrollbackWriter {
	if sqldb == nil {
		return nil
	}
	if log == nil {
		log = zap.NewNop()
	}

	if err := sqldb.InitScrollbackTables(); err != nil {
		log.Warn("scrollback tables init failed", zap.Error(err))
		return nil
	}

	sw := &ScrollbackWriter{sqldb: sqldb, log: log}
	bus.SubscribeGlobal(sw)
	log.Info("scrollback writer registered on event bus")
	return sw
}

// Receive implements events.Subscriber. Only room-scoped activity is
// stored; direct text to a single player is not.
func (sw *ScrollbackWriter) Receive(ev events.Event) {
	switch ev.Type {
	case events.EvSay, events.EvMove, events.EvEnter, events.EvDepart:
	default:
		return
	}
	if ev.Room == "" {
		return
	}

	if err := sw.sqldb.InsertScrollback(ev.Room, ev.Type.String(), ev.Source, ev.Text); err != nil {
		sw.log.Warn("scrollback insert failed", zap.Error(err))
	}
}

// Closed implements events.Subscriber.
func (sw *ScrollbackWriter) Closed() bool {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	return sw.closed
}

// Close marks the writer as closed so the bus stops delivering events.
func (sw *ScrollbackWriter) Close() {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	sw.closed = true
}

// StartRetentionCleanup purges old scrollback hourly until the context is
// cancelled. A zero retention disables cleanup.
func StartRetentionCleanup(ctx context.Context, sqldb *SQLStore, retention time.Duration, log *zap.Logger) {
	if sqldb == nil || retention <= 0 {
		return
	}
	if log == nil {
		log = zap.NewNop()
	}
	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				purged, err := sqldb.PurgeOldScrollback(retention)
				if err != nil {
					log.Warn("scrollback cleanup failed", zap.Error(err))
					continue
				}
				if purged > 0 {
					log.Info("scrollback purged", zap.Int64("entries", purged))
				}
			}
		}
	}()
}
