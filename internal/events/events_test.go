package events

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type failingPublisher struct{ calls int }

func (f *failingPublisher) Publish(context.Context, string, any) error {
	f.calls++
	return errors.New("broker down")
}
func (f *failingPublisher) Close() error { return nil }

func TestEmit_LogsFailures(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	p := &failingPublisher{}

	Emit(context.Background(), p, zap.New(core), BookingPaid, BookingPaidEvent{BookingID: 1})

	if p.calls != 1 {
		t.Fatalf("publish calls = %d, want 1", p.calls)
	}
	if logs.Len() != 1 {
		t.Fatalf("expected one warning, got %d", logs.Len())
	}
	if got := logs.All()[0].ContextMap()["routing_key"]; got != BookingPaid {
		t.Errorf("routing_key = %v", got)
	}
}

func TestEmit_NilPublisher(t *testing.T) {
	Emit(context.Background(), nil, zap.NewNop(), BookingPaid, nil)
}

func TestNopPublisher(t *testing.T) {
	var p Publisher = NopPublisher{}
	if err := p.Publish(context.Background(), SettlementGenerated, SettlementGeneratedEvent{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
