package app

import (
	"context"

	"turnkeeper/internal/domain"
)

// Advance applies the acting participant's decision and selects the next actor.
// Cancel, out-of-phase calls and a removed actor leave the session untouched.
func (s *Service) Advance(ctx context.Context, enc *Encounter, decision domain.Decision) ([]Event, error) {
	sess := enc.Session
	if !sess.Started || sess.Process.Phase != domain.PhaseMain {
		return nil, nil
	}
	acting := sess.Acting()
	if acting == nil {
		return nil, nil
	}

	// A dangling entity has nothing to apply; selection still moves on.
	entity, _ := enc.Roster.Lookup(acting.EntityRef)
	switch decision {
	case domain.DecisionEnd:
		domain.EndTurn(entity, s.calc.SentinelMagnitude)
	case domain.DecisionDelay:
		domain.DelayTurn(entity, sess, enc.Roster)
	default:
		return nil, nil
	}

	var evs events
	s.selectNext(ctx, enc, &evs)
	return evs, nil
}

// Refresh re-selects the actor of a main phase whose acting participant
// disappeared. It is a no-op in every other situation.
func (s *Service) Refresh(ctx context.Context, enc *Encounter) ([]Event, error) {
	sess := enc.Session
	if !sess.Started || sess.Process.Phase != domain.PhaseMain || sess.Acting() != nil {
		return nil, nil
	}
	var evs events
	s.selectNext(ctx, enc, &evs)
	return evs, nil
}
