package nakama

import (
	"context"
	"strconv"

	"turnkeeper/internal/app"
	"turnkeeper/internal/domain"

	"github.com/heroiclabs/nakama-common/api"
	"github.com/heroiclabs/nakama-common/runtime"
	"google.golang.org/protobuf/types/known/timestamppb"
)

const (
	eventPhaseEntered = "turnkeeper_phase_entered"
	eventTurnStarted  = "turnkeeper_turn_started"
	eventTeardown     = "turnkeeper_teardown"
)

type eventSink interface {
	Event(ctx context.Context, evt *api.Event) error
}

// EventHooks publishes lifecycle hooks as Nakama analytics events so other
// runtime modules can react to them.
type EventHooks struct {
	nk     eventSink
	logger runtime.Logger
}

func NewEventHooks(nk eventSink, logger runtime.Logger) *EventHooks {
	return &EventHooks{nk: nk, logger: logger}
}

func (h *EventHooks) PhaseEntered(ctx context.Context, sessionID string, phase domain.Phase, round int) {
	h.emit(ctx, eventPhaseEntered, map[string]string{
		"session_id": sessionID,
		"phase":      string(phase),
		"round":      strconv.Itoa(round),
	})
}

func (h *EventHooks) TurnStarted(ctx context.Context, sessionID string, p *domain.Participant) {
	if p == nil {
		return
	}
	h.emit(ctx, eventTurnStarted, map[string]string{
		"session_id":     sessionID,
		"participant_id": p.ID,
		"controller_id":  p.ControllerID,
	})
}

func (h *EventHooks) Teardown(ctx context.Context, sessionID string, e *domain.Entity) {
	if e == nil {
		return
	}
	h.emit(ctx, eventTeardown, map[string]string{
		"session_id": sessionID,
		"entity_ref": e.Ref,
	})
}

func (h *EventHooks) emit(ctx context.Context, name string, props map[string]string) {
	err := h.nk.Event(ctx, &api.Event{
		Name:       name,
		Properties: props,
		Timestamp:  timestamppb.Now(),
		External:   false,
	})
	if err != nil {
		h.logger.Warn("EventHooks: failed to emit %s: %v", name, err)
	}
}

var _ app.Hooks = (*EventHooks)(nil)
