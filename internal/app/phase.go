package app

import (
	"context"

	"turnkeeper/internal/domain"
)

// enterSetup opens the current round: announce it, reset per-round state,
// then either wait for BeginMainLoop or fall through to cleanup when nobody can act.
func (s *Service) enterSetup(ctx context.Context, enc *Encounter, evs *events) {
	sess := enc.Session
	sess.Process = domain.Process{Phase: domain.PhaseSetup}
	evs.add(EventRoundStarted, RoundStartedPayload{Round: sess.Round})

	domain.ResetRound(sess, enc.Roster)
	order := s.Order(enc)
	evs.add(EventPhaseChanged, PhaseChangedPayload{Phase: domain.PhaseSetup, Round: sess.Round})
	s.hooks.PhaseEntered(ctx, sess.ID, domain.PhaseSetup, sess.Round)

	if !domain.AnyEligible(sess, enc.Roster) {
		s.enterCleanup(ctx, enc, order, evs)
		return
	}
	evs.add(EventOrderChanged, s.orderPayload(enc, order))
}

// enterMain records p as acting. The phase event and hook fire only when
// the session was not already in the main loop.
func (s *Service) enterMain(ctx context.Context, enc *Encounter, p *domain.Participant, order []*domain.Participant, evs *events) {
	sess := enc.Session
	wasMain := sess.Process.Phase == domain.PhaseMain
	sess.Process = domain.Process{Phase: domain.PhaseMain, ActingParticipantID: p.ID}
	sess.TurnIndex = domain.IndexOf(order, p.ID)

	if !wasMain {
		evs.add(EventPhaseChanged, PhaseChangedPayload{Phase: domain.PhaseMain, Round: sess.Round})
		s.hooks.PhaseEntered(ctx, sess.ID, domain.PhaseMain, sess.Round)
	}
	evs.add(EventOrderChanged, s.orderPayload(enc, order))
	evs.add(EventActorChanged, ActorChangedPayload{ParticipantID: p.ID, DisplayName: p.Name, Round: sess.Round})
	s.hooks.TurnStarted(ctx, sess.ID, p)
}

func (s *Service) enterCleanup(ctx context.Context, enc *Encounter, order []*domain.Participant, evs *events) {
	sess := enc.Session
	sess.Process = domain.Process{Phase: domain.PhaseCleanup}
	sess.TurnIndex = domain.IndexOf(order, sess.CleanupID)

	evs.add(EventOrderChanged, s.orderPayload(enc, order))
	evs.add(EventPhaseChanged, PhaseChangedPayload{Phase: domain.PhaseCleanup, Round: sess.Round})
	s.hooks.PhaseEntered(ctx, sess.ID, domain.PhaseCleanup, sess.Round)
}

// selectNext recomputes order and lands on the first candidate, or on
// cleanup when no candidate remains.
func (s *Service) selectNext(ctx context.Context, enc *Encounter, evs *events) {
	order := s.Order(enc)
	candidates := domain.Candidates(order, enc.Roster)
	if len(candidates) == 0 {
		s.enterCleanup(ctx, enc, order, evs)
		return
	}
	s.enterMain(ctx, enc, candidates[0], order, evs)
}

// BeginMainLoop resumes a session suspended in setup.
func (s *Service) BeginMainLoop(ctx context.Context, enc *Encounter) ([]Event, error) {
	sess := enc.Session
	if !sess.Started {
		return nil, ErrCombatNotStarted
	}
	if sess.Process.Phase != domain.PhaseSetup {
		return nil, ErrNotInSetup
	}
	var evs events
	s.selectNext(ctx, enc, &evs)
	return evs, nil
}

// NextRound leaves cleanup and opens setup of the following round.
func (s *Service) NextRound(ctx context.Context, enc *Encounter) ([]Event, error) {
	sess := enc.Session
	if !sess.Started {
		return nil, ErrCombatNotStarted
	}
	if sess.Process.Phase != domain.PhaseCleanup {
		return nil, ErrNotInCleanup
	}
	sess.Round++
	var evs events
	s.enterSetup(ctx, enc, &evs)
	return evs, nil
}

// PreviousTurn steps backward. From setup it moves to the previous round's
// cleanup (nothing happens in round 1). Only the phase and round number go
// back: entity state was reset on entering setup and stays reset. From main
// or cleanup it does not rewind; it recomputes and refreshes the main
// selection instead.
func (s *Service) PreviousTurn(ctx context.Context, enc *Encounter) ([]Event, error) {
	sess := enc.Session
	if !sess.Started {
		return nil, ErrCombatNotStarted
	}
	var evs events
	switch sess.Process.Phase {
	case domain.PhaseSetup:
		if sess.Round <= 1 {
			return nil, nil
		}
		sess.Round--
		sess.Process = domain.Process{Phase: domain.PhaseCleanup}
		order := s.Order(enc)
		s.enterCleanup(ctx, enc, order, &evs)
	default:
		s.selectNext(ctx, enc, &evs)
	}
	return evs, nil
}

// RecomputeOrder refreshes every initiative and broadcasts the order
// without changing phase or actor.
func (s *Service) RecomputeOrder(ctx context.Context, enc *Encounter) ([]Event, error) {
	order := s.Order(enc)
	var evs events
	evs.add(EventOrderChanged, s.orderPayload(enc, order))
	return evs, nil
}
