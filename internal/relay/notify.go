package relay

import (
	"context"

	"turnkeeper/internal/app"
	"turnkeeper/internal/domain"
)

// FromEvent maps an app event to its broadcast form.
func FromEvent(sessionID string, ev app.Event) (Notification, bool) {
	n := Notification{SessionID: sessionID}
	switch p := ev.Payload.(type) {
	case app.RoundStartedPayload:
		n.Type = NotifyRoundStarted
		n.Data = map[string]any{"round": p.Round}
	case app.PhaseChangedPayload:
		n.Type = NotifyPhaseChanged
		n.Data = map[string]any{"phase": string(p.Phase), "round": p.Round}
	case app.ActorChangedPayload:
		n.Type = NotifyActorChanged
		n.Data = map[string]any{"participantId": p.ParticipantID, "displayName": p.DisplayName, "round": p.Round}
	case app.OrderChangedPayload:
		n.Type = NotifyOrderChanged
		n.Data = map[string]any{"order": orderArgs(p.Order), "turnIndex": p.TurnIndex}
	case app.CombatEndedPayload:
		n.Type = NotifyCombatEnded
		n.Data = map[string]any{"round": p.Round}
	default:
		return Notification{}, false
	}
	return n, true
}

// FromEvents maps every recognized event.
func FromEvents(sessionID string, evs []app.Event) []Notification {
	out := make([]Notification, 0, len(evs))
	for _, ev := range evs {
		if n, ok := FromEvent(sessionID, ev); ok {
			out = append(out, n)
		}
	}
	return out
}

// Snapshot describes the whole session for observers that join late.
func Snapshot(ctx context.Context, svc *app.Service, enc *app.Encounter) Notification {
	sess := enc.Session
	order, _ := svc.RecomputeOrder(ctx, enc)
	data := map[string]any{
		"phase":               string(sess.Process.Phase),
		"round":               sess.Round,
		"started":             sess.Started,
		"actingParticipantId": sess.Process.ActingParticipantID,
		"turnIndex":           sess.TurnIndex,
		"suspension":          string(sess.Suspension()),
	}
	if len(order) > 0 {
		if p, ok := order[0].Payload.(app.OrderChangedPayload); ok {
			data["order"] = orderArgs(p.Order)
		}
	}
	if acting := sess.Acting(); acting != nil {
		data["actingDisplayName"] = acting.Name
	}
	return Notification{Type: NotifySessionSnapshot, SessionID: sess.ID, Data: data}
}

func orderArgs(order []app.OrderEntry) []any {
	out := make([]any, len(order))
	for i, o := range order {
		out[i] = map[string]any{
			"participantId": o.ParticipantID,
			"displayName":   o.DisplayName,
			"initiative":    o.Initiative,
			"sentinel":      o.Sentinel,
			"candidate":     o.Candidate,
		}
	}
	return out
}

// phaseOf parses a phase name, returning "" for anything unknown.
func phaseOf(s string) domain.Phase {
	switch p := domain.Phase(s); p {
	case domain.PhaseSetup, domain.PhaseMain, domain.PhaseCleanup:
		return p
	}
	return ""
}
