package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Veraticus/the-budget-must-balance/internal/common"
	"github.com/Veraticus/the-budget-must-balance/internal/model"
	"github.com/Veraticus/the-budget-must-balance/internal/service"
)

const saveTimeout = 30 * time.Second

// persister writes ledger snapshots in the background. Only the newest
// pending snapshot is written; older ones are superseded.
type persister struct {
	store   service.SnapshotStore
	logger  *slog.Logger
	pending *model.Snapshot
	changed chan struct{}
	wake    chan struct{}
	quit    chan struct{}
	done    chan struct{}
	queued  uint64
	written uint64
	mu      sync.Mutex
	once    sync.Once
}

func newPersister(store service.SnapshotStore, logger *slog.Logger) *persister {
	p := &persister{
		store:   store,
		logger:  logger,
		changed: make(chan struct{}),
		wake:    make(chan struct{}, 1),
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go p.run()
	return p
}

// enqueue never blocks the caller.
func (p *persister) enqueue(snapshot model.Snapshot) {
	p.mu.Lock()
	p.pending = &snapshot
	p.queued++
	p.mu.Unlock()

	select {
	case p.wake <- struct{}{}:
	default:
	}
}

func (p *persister) run() {
	defer close(p.done)
	for {
		select {
		case <-p.wake:
			p.writePending()
		case <-p.quit:
			p.writePending()
			return
		}
	}
}

func (p *persister) writePending() {
	p.mu.Lock()
	snapshot := p.pending
	target := p.queued
	p.pending = nil
	p.mu.Unlock()

	if snapshot == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	err := p.store.Save(ctx, *snapshot)
	cancel()
	if err != nil {
		common.LogError(p.logger, fmt.Errorf("%w: %w", common.ErrPersistence, err),
			"failed to persist ledger snapshot", common.Fields{
				"incomes":  len(snapshot.Incomes),
				"expenses": len(snapshot.Expenses),
			})
	} else {
		p.logger.Debug("ledger snapshot saved",
			"incomes", len(snapshot.Incomes),
			"expenses", len(snapshot.Expenses))
	}

	p.mu.Lock()
	p.written = target
	close(p.changed)
	p.changed = make(chan struct{})
	p.mu.Unlock()
}

// flush waits until every snapshot queued before the call has been attempted.
func (p *persister) flush(ctx context.Context) error {
	p.mu.Lock()
	target := p.queued
	p.mu.Unlock()

	for {
		p.mu.Lock()
		if p.written >= target {
			p.mu.Unlock()
			return nil
		}
		changed := p.changed
		p.mu.Unlock()

		select {
		case <-changed:
		case <-p.done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (p *persister) close() {
	p.once.Do(func() {
		close(p.quit)
	})
	<-p.done
}
