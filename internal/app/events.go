package app

import "turnkeeper/internal/domain"

// EventKind identifies emitted events for host dispatch.
type EventKind string

const (
	EventRoundStarted EventKind = "round_started"
	EventPhaseChanged EventKind = "phase_changed"
	EventActorChanged EventKind = "actor_changed"
	EventOrderChanged EventKind = "order_changed"
	EventCombatEnded  EventKind = "combat_ended"
)

// Event is an app event produced by a session mutation.
type Event struct {
	Kind    EventKind
	Payload any
}

type RoundStartedPayload struct {
	Round int
}

type PhaseChangedPayload struct {
	Phase domain.Phase
	Round int
}

type ActorChangedPayload struct {
	ParticipantID string
	DisplayName   string
	Round         int
}

// OrderEntry is one row of the broadcast turn order.
type OrderEntry struct {
	ParticipantID string
	DisplayName   string
	Initiative    int
	Sentinel      bool
	Candidate     bool
}

type OrderChangedPayload struct {
	Order     []OrderEntry
	TurnIndex int
}

type CombatEndedPayload struct {
	SessionID string
	Round     int
}

// events accumulates the output of one service call.
type events []Event

func (e *events) add(kind EventKind, payload any) {
	*e = append(*e, Event{Kind: kind, Payload: payload})
}
