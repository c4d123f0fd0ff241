package eventlog

import (
	"context"
	"sync"
	"testing"
)

// memRecorder collects events in memory for assertions.
type memRecorder struct {
	mu     sync.Mutex
	events []Event
}

func (m *memRecorder) SaveEvent(_ context.Context, e Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
	return nil
}

func (m *memRecorder) EventsByDeal(_ context.Context, dealID string) ([]Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Event
	for _, e := range m.events {
		if e.DealID == dealID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memRecorder) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.events)
}

func TestNewEventOptions(t *testing.T) {
	e := NewEvent(
		WithDeal("deal-1"),
		WithKind(KindApprovalRecorded),
		WithParticipants("p-1", "p-2"),
	)

	if e.ID.String() == "" {
		t.Error("expected generated ID")
	}
	if e.DealID != "deal-1" {
		t.Errorf("DealID = %s, want deal-1", e.DealID)
	}
	if e.Kind != KindApprovalRecorded {
		t.Errorf("Kind = %s, want %s", e.Kind, KindApprovalRecorded)
	}
	if len(e.ParticipantIDs) != 2 {
		t.Errorf("ParticipantIDs = %v", e.ParticipantIDs)
	}
	if e.CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be set")
	}
}

func TestWorkerDrainsOnShutdown(t *testing.T) {
	recorder := &memRecorder{}
	worker := NewWorker(recorder, 10)
	worker.Start()

	for i := 0; i < 5; i++ {
		worker.Record(NewEvent(WithDeal("deal-1"), WithKind(KindDealCreated)))
	}
	worker.Shutdown()

	if got := recorder.count(); got != 5 {
		t.Errorf("recorded %d events, want 5", got)
	}
}

func TestWorkerDropsWhenBufferFull(t *testing.T) {
	recorder := &memRecorder{}
	// Never started, so the buffer only empties on shutdown.
	worker := NewWorker(recorder, 2)

	for i := 0; i < 5; i++ {
		worker.Record(NewEvent(WithDeal("deal-1"), WithKind(KindDealCreated)))
	}

	worker.Start()
	worker.Shutdown()

	if got := recorder.count(); got != 2 {
		t.Errorf("recorded %d events, want the 2 that fit the buffer", got)
	}
}
