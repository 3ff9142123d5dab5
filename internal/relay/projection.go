package relay

import (
	"turnkeeper/internal/app"
	"turnkeeper/internal/domain"
)

// Projection is an observer's read-only view of a session, rebuilt from
// host notifications. It never feeds back into authoritative state.
type Projection struct {
	SessionID   string
	Phase       domain.Phase
	Round       int
	ActingID    string
	ActingName  string
	Order       []app.OrderEntry
	TurnIndex   int
	Ended       bool
	Suspension  domain.Suspension
	LastApplied NotificationType
}

// NewProjection returns an empty projection for sessionID.
func NewProjection(sessionID string) *Projection {
	return &Projection{SessionID: sessionID, TurnIndex: -1}
}

// Apply folds n into the view. Notifications for other sessions are ignored
// and reported as false.
func (p *Projection) Apply(n Notification) bool {
	if n.SessionID != p.SessionID {
		return false
	}
	d := n.Data
	switch n.Type {
	case NotifyRoundStarted:
		p.Round = intOf(d, "round", p.Round)
		p.Ended = false
	case NotifyPhaseChanged:
		p.Phase = phaseOf(app.StringArg(d, "phase"))
		p.Round = intOf(d, "round", p.Round)
		if p.Phase != domain.PhaseMain {
			p.ActingID, p.ActingName = "", ""
		}
		p.Suspension = suspensionFor(p.Phase)
	case NotifyActorChanged:
		p.ActingID = app.StringArg(d, "participantId")
		p.ActingName = app.StringArg(d, "displayName")
	case NotifyOrderChanged:
		p.Order = orderFrom(d["order"])
		p.TurnIndex = intOf(d, "turnIndex", -1)
	case NotifyCombatEnded:
		p.Ended = true
		p.Phase = ""
		p.ActingID, p.ActingName = "", ""
		p.TurnIndex = -1
		p.Suspension = domain.SuspendNone
	case NotifySessionSnapshot:
		p.Phase = phaseOf(app.StringArg(d, "phase"))
		p.Round = intOf(d, "round", p.Round)
		p.ActingID = app.StringArg(d, "actingParticipantId")
		p.ActingName = app.StringArg(d, "actingDisplayName")
		p.TurnIndex = intOf(d, "turnIndex", -1)
		p.Suspension = domain.Suspension(app.StringArg(d, "suspension"))
		p.Ended = false
		if o, ok := d["order"]; ok {
			p.Order = orderFrom(o)
		}
	default:
		return false
	}
	p.LastApplied = n.Type
	return true
}

func suspensionFor(phase domain.Phase) domain.Suspension {
	switch phase {
	case domain.PhaseSetup:
		return domain.SuspendBeginMainLoop
	case domain.PhaseMain:
		return domain.SuspendDecision
	case domain.PhaseCleanup:
		return domain.SuspendNextRound
	}
	return domain.SuspendNone
}

func intOf(d map[string]any, key string, fallback int) int {
	if v, ok := app.IntArg(d, key); ok {
		return v
	}
	return fallback
}

func orderFrom(raw any) []app.OrderEntry {
	list, ok := raw.([]any)
	if !ok {
		return nil
	}
	out := make([]app.OrderEntry, 0, len(list))
	for _, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		out = append(out, app.OrderEntry{
			ParticipantID: app.StringArg(m, "participantId"),
			DisplayName:   app.StringArg(m, "displayName"),
			Initiative:    intOf(m, "initiative", 0),
			Sentinel:      app.BoolArg(m, "sentinel"),
			Candidate:     app.BoolArg(m, "candidate"),
		})
	}
	return out
}
