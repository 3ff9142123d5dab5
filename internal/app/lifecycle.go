package app

import (
	"context"
	"fmt"

	"turnkeeper/internal/domain"
)

// StartCombat begins round 1 and enters setup.
func (s *Service) StartCombat(ctx context.Context, enc *Encounter) ([]Event, error) {
	sess := enc.Session
	if sess.Started {
		return nil, ErrCombatStarted
	}
	sess.Started = true
	sess.Round = 1
	var evs events
	s.enterSetup(ctx, enc, &evs)
	return evs, nil
}

// AddParticipant inserts p, registering entity when given, and computes its
// initiative immediately.
func (s *Service) AddParticipant(ctx context.Context, enc *Encounter, p *domain.Participant, entity *domain.Entity) ([]Event, error) {
	if p == nil || p.ID == "" {
		return nil, fmt.Errorf("add participant: %w", ErrInvalidArgument)
	}
	if entity != nil {
		if entity.Ref == "" {
			entity.Ref = p.ID
		}
		p.EntityRef = entity.Ref
		enc.Roster.Put(entity)
	}
	if err := enc.Session.Add(p); err != nil {
		return nil, fmt.Errorf("add participant %s: %w", p.ID, err)
	}
	v := s.calc.Compute(p, enc.Roster)
	p.Initiative = &v

	return s.RecomputeOrder(ctx, enc)
}

// RemoveParticipant deletes a normal participant. Removing the acting
// participant leaves the session in main with no current participant.
func (s *Service) RemoveParticipant(ctx context.Context, enc *Encounter, id string) ([]Event, error) {
	if err := enc.Session.Remove(id); err != nil {
		return nil, fmt.Errorf("remove participant %s: %w", id, err)
	}
	return s.RecomputeOrder(ctx, enc)
}

// SyncEntity applies what the stats holder reports for an entity, then
// recomputes the order. On a known entity only the stats-owned attributes
// change; round state changes only where round sets it. An unknown entity
// is stored as given with a full bonus-turn credit unless round says otherwise.
func (s *Service) SyncEntity(ctx context.Context, enc *Encounter, e *domain.Entity, round domain.RoundUpdate) ([]Event, error) {
	if e == nil || e.Ref == "" {
		return nil, fmt.Errorf("sync entity: %w", ErrInvalidArgument)
	}
	if existing, ok := enc.Roster.Lookup(e.Ref); ok {
		existing.ApplyStats(e)
		existing.ApplyRound(round)
	} else {
		fresh := e.Clone()
		if round.BonusRemaining == nil {
			fresh.BonusTurn.Remaining = fresh.BonusTurn.Max
		}
		fresh.ApplyRound(round)
		enc.Roster.Put(fresh)
	}
	return s.RecomputeOrder(ctx, enc)
}

// EndCombat resets every linked entity, fires teardown for each and stops the session.
func (s *Service) EndCombat(ctx context.Context, enc *Encounter) ([]Event, error) {
	sess := enc.Session
	if !sess.Started {
		return nil, ErrCombatNotStarted
	}
	for _, e := range domain.ResetRound(sess, enc.Roster) {
		s.hooks.Teardown(ctx, sess.ID, e)
	}
	round := sess.Round
	sess.Started = false
	sess.Process = domain.Process{}
	sess.TurnIndex = -1

	var evs events
	evs.add(EventCombatEnded, CombatEndedPayload{SessionID: sess.ID, Round: round})
	return evs, nil
}
