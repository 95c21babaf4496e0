// internal/storage/write_behind.go
package storage

import (
	"context"
	"sync"
	"time"

	apperrors "github.com/Corphon/EbookGen/internal/errors"
	"github.com/Corphon/EbookGen/internal/utils"
)

type pendingOp struct {
	seq    uint64
	value  []byte
	remove bool
}

// WriteBehind queues slot writes and applies them on a single worker.
//
// Save and Remove never block on I/O and never return an error. Pending
// operations are applied in the order they were enqueued; a newer operation
// on a slot replaces an older one that has not been applied yet. Write
// failures are logged and counted, then dropped.
type WriteBehind struct {
	store   SlotStore
	metrics *utils.AppMetrics
	logger  *utils.Logger
	timeout time.Duration

	mu       sync.Mutex
	queue    []Slot // ordered by pending seq
	pending  map[Slot]pendingOp
	enqueued uint64
	applied  uint64
	progress chan struct{} // closed and replaced whenever applied advances
	closed   bool

	wake chan struct{}
	stop chan struct{}
	done chan struct{}
}

// NewWriteBehind starts the worker. metrics may be nil.
func NewWriteBehind(store SlotStore, metrics *utils.AppMetrics) *WriteBehind {
	if metrics == nil {
		metrics = utils.NewAppMetrics(nil)
	}
	w := &WriteBehind{
		store:    store,
		metrics:  metrics,
		logger:   utils.GetLogger(),
		timeout:  10 * time.Second,
		pending:  make(map[Slot]pendingOp),
		progress: make(chan struct{}),
		wake:     make(chan struct{}, 1),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go w.run()
	return w
}

// Save schedules value to be written to slot
func (w *WriteBehind) Save(slot Slot, value []byte) {
	w.enqueue(slot, pendingOp{value: append([]byte(nil), value...)})
}

// Remove schedules slot to be deleted
func (w *WriteBehind) Remove(slot Slot) {
	w.enqueue(slot, pendingOp{remove: true})
}

// Load returns the newest value for slot, including writes not applied yet
func (w *WriteBehind) Load(ctx context.Context, slot Slot) ([]byte, bool, error) {
	w.mu.Lock()
	op, ok := w.pending[slot]
	w.mu.Unlock()
	if ok {
		if op.remove {
			return nil, false, nil
		}
		return append([]byte(nil), op.value...), true, nil
	}
	return w.store.Load(ctx, slot)
}

func (w *WriteBehind) enqueue(slot Slot, op pendingOp) {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		// after Close writes go straight through
		_ = w.apply(slot, op)
		return
	}

	w.enqueued++
	op.seq = w.enqueued
	if _, exists := w.pending[slot]; exists {
		for i, s := range w.queue {
			if s == slot {
				w.queue = append(w.queue[:i], w.queue[i+1:]...)
				break
			}
		}
	}
	w.queue = append(w.queue, slot)
	w.pending[slot] = op
	w.mu.Unlock()

	select {
	case w.wake <- struct{}{}:
	default:
	}
}

func (w *WriteBehind) run() {
	defer close(w.done)
	for {
		if w.drainOne() {
			continue
		}
		select {
		case <-w.wake:
		case <-w.stop:
			for w.drainOne() {
			}
			return
		}
	}
}

// drainOne applies the oldest pending operation; false when the queue is empty
func (w *WriteBehind) drainOne() bool {
	w.mu.Lock()
	if len(w.queue) == 0 {
		w.mu.Unlock()
		return false
	}
	slot := w.queue[0]
	w.queue = w.queue[1:]
	op := w.pending[slot]
	delete(w.pending, slot)
	w.mu.Unlock()

	_ = w.apply(slot, op)

	w.mu.Lock()
	if op.seq > w.applied {
		w.applied = op.seq
	}
	close(w.progress)
	w.progress = make(chan struct{})
	w.mu.Unlock()
	return true
}

// apply writes op to the store. A failure is logged, counted and returned
// as a persistence error; callers drop it.
func (w *WriteBehind) apply(slot Slot, op pendingOp) error {
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()

	var err error
	action := "save"
	if op.remove {
		action = "remove"
		err = w.store.Remove(ctx, slot)
	} else {
		err = w.store.Save(ctx, slot, op.value)
	}

	if err != nil {
		failure := apperrors.NewPersistenceError(action+" "+string(slot)+" failed", err)
		w.metrics.RecordPersistenceFailure(string(slot))
		w.logger.Error("persistence write failed", map[string]interface{}{
			"slot":  string(slot),
			"op":    action,
			"code":  failure.Code,
			"error": failure,
		})
		return failure
	}
	w.metrics.RecordPersistenceWrite(string(slot))
	return nil
}

// Flush waits until every operation enqueued before the call has been
// applied or superseded, or ctx ends.
func (w *WriteBehind) Flush(ctx context.Context) error {
	w.mu.Lock()
	target := w.enqueued
	for w.applied < target {
		wait := w.progress
		w.mu.Unlock()
		select {
		case <-wait:
		case <-ctx.Done():
			return ctx.Err()
		}
		w.mu.Lock()
	}
	w.mu.Unlock()
	return nil
}

// Close drains the queue and stops the worker. The wrapped store stays open.
func (w *WriteBehind) Close(ctx context.Context) error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.mu.Unlock()

	close(w.stop)
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
