package nakama

import (
	"context"
	"errors"
	"testing"

	"turnkeeper/internal/domain"

	"github.com/heroiclabs/nakama-common/api"
)

type fakeEventSink struct {
	events []*api.Event
	err    error
}

func (f *fakeEventSink) Event(_ context.Context, evt *api.Event) error {
	f.events = append(f.events, evt)
	return f.err
}

func TestEventHooksEmit(t *testing.T) {
	sink := &fakeEventSink{}
	h := NewEventHooks(sink, &noopLogger{})
	ctx := context.Background()

	h.PhaseEntered(ctx, "s1", domain.PhaseSetup, 2)
	h.TurnStarted(ctx, "s1", &domain.Participant{ID: "a", ControllerID: "player-a"})
	h.TurnStarted(ctx, "s1", nil)
	h.Teardown(ctx, "s1", &domain.Entity{Ref: "a"})
	h.Teardown(ctx, "s1", nil)

	if len(sink.events) != 3 {
		t.Fatalf("emitted %d events, want 3", len(sink.events))
	}
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: eventPhaseEntered, key: "round", value: "2"},
		{name: eventTurnStarted, key: "controller_id", value: "player-a"},
		{name: eventTeardown, key: "entity_ref", value: "a"},
	}
	for i, tt := range tests {
		evt := sink.events[i]
		if evt.Name != tt.name {
			t.Fatalf("event %d name = %q, want %q", i, evt.Name, tt.name)
		}
		if got := evt.Properties[tt.key]; got != tt.value {
			t.Fatalf("event %s %s = %q, want %q", tt.name, tt.key, got, tt.value)
		}
		if evt.Properties["session_id"] != "s1" || evt.Timestamp == nil {
			t.Fatalf("event %s = %+v", tt.name, evt)
		}
	}
}

func TestEventHooksSinkErrorIsSwallowed(t *testing.T) {
	sink := &fakeEventSink{err: errors.New("down")}
	h := NewEventHooks(sink, &noopLogger{})
	h.PhaseEntered(context.Background(), "s1", domain.PhaseCleanup, 1)
	if len(sink.events) != 1 {
		t.Fatalf("emitted %d events, want 1", len(sink.events))
	}
}
