package snapshot

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/dukerupert/shoplist/internal/shopping"
)

type Saver interface {
	Save(ctx context.Context, st shopping.State) error
}

// Writer saves store states in the background. Notifications arriving while a
// save is running are coalesced: only the newest pending state is written.
type Writer struct {
	saver   Saver
	logger  *slog.Logger
	timeout time.Duration
	// Failed saves are retried after retryMin, doubling up to retryMax.
	retryMin time.Duration
	retryMax time.Duration

	mu      sync.Mutex
	pending *shopping.State
	wake    chan struct{}

	cancel context.CancelFunc
	done   chan struct{}
}

func NewWriter(saver Saver, logger *slog.Logger) *Writer {
	return &Writer{
		saver:    saver,
		logger:   logger,
		timeout:  10 * time.Second,
		retryMin: time.Second,
		retryMax: time.Minute,
		wake:     make(chan struct{}, 1),
	}
}

// Listener returns a store listener that queues every new state.
func (w *Writer) Listener() shopping.Listener {
	return func(_ shopping.Event, st shopping.State) {
		w.Notify(st)
	}
}

// Notify queues st for saving without blocking.
func (w *Writer) Notify(st shopping.State) {
	w.mu.Lock()
	w.pending = &st
	w.mu.Unlock()
	w.poke()
}

func (w *Writer) poke() {
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// Start runs the save loop until Stop is called. A failed save stays
// pending and is retried with backoff even if no new state arrives.
func (w *Writer) Start(ctx context.Context) {
	ctx, w.cancel = context.WithCancel(ctx)
	w.done = make(chan struct{})

	go func() {
		defer close(w.done)
		var (
			retry   *time.Timer
			backoff time.Duration
		)
		defer func() {
			if retry != nil {
				retry.Stop()
			}
		}()
		for {
			select {
			case <-ctx.Done():
				return
			case <-w.wake:
			}
			if retry != nil {
				retry.Stop()
				retry = nil
			}
			if err := w.Flush(context.WithoutCancel(ctx)); err != nil {
				backoff = min(max(2*backoff, w.retryMin), w.retryMax)
				w.logger.Warn("snapshot save will be retried", "in", backoff)
				retry = time.AfterFunc(backoff, w.poke)
				continue
			}
			backoff = 0
		}
	}()
}

// Stop ends the save loop and writes any state still pending.
func (w *Writer) Stop() {
	if w.cancel != nil {
		w.cancel()
		<-w.done
	}
	w.Flush(context.Background())
}

// Flush saves the pending state, if any, and returns the save error.
func (w *Writer) Flush(ctx context.Context) error {
	w.mu.Lock()
	st := w.pending
	w.pending = nil
	w.mu.Unlock()

	if st == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	start := time.Now()
	if err := w.saver.Save(ctx, *st); err != nil {
		w.logger.Error("save snapshot", "error", err, "lists", len(st.Lists))
		// Keep it for the next attempt unless something newer arrived.
		w.mu.Lock()
		if w.pending == nil {
			w.pending = st
		}
		w.mu.Unlock()
		return err
	}
	w.logger.Debug("snapshot saved", "lists", len(st.Lists), "duration", time.Since(start))
	return nil
}
