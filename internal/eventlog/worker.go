package eventlog

import (
	"context"
	"log/slog"
	"sync"
)

// Worker drains events onto a Recorder off the request path. A full
// buffer drops the event rather than blocking a lifecycle transition;
// the feed is advisory, the deal state is the source of truth.
type Worker struct {
	eventCh  chan Event
	recorder Recorder
	wg       sync.WaitGroup
	ctx      context.Context
	cancel   context.CancelFunc
}

func NewWorker(recorder Recorder, bufferSize int) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		eventCh:  make(chan Event, bufferSize),
		recorder: recorder,
		ctx:      ctx,
		cancel:   cancel,
	}
}

func (w *Worker) Start() {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		for {
			select {
			case <-w.ctx.Done():
				slog.Info("draining deal events before shutdown", "remaining", len(w.eventCh))
				for len(w.eventCh) > 0 {
					event := <-w.eventCh
					if err := w.recorder.SaveEvent(context.Background(), event); err != nil {
						slog.Error("failed to save event during shutdown", "error", err, "kind", event.Kind)
					}
				}
				return
			case event := <-w.eventCh:
				if err := w.recorder.SaveEvent(w.ctx, event); err != nil {
					slog.Error("failed to save event", "error", err, "kind", event.Kind, "deal_id", event.DealID)
				}
			}
		}
	}()
}

// Record enqueues an event without blocking.
func (w *Worker) Record(event Event) {
	select {
	case w.eventCh <- event:
	default:
		slog.Warn("event channel full, dropping event", "kind", event.Kind, "deal_id", event.DealID)
	}
}

// Shutdown stops the worker after draining buffered events.
func (w *Worker) Shutdown() {
	w.cancel()
	w.wg.Wait()
	close(w.eventCh)
}
