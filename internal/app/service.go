package app

import (
	"errors"

	"turnkeeper/internal/config"
	"turnkeeper/internal/domain"
)

var (
	ErrCombatNotStarted = errors.New("combat not started")
	ErrCombatStarted    = errors.New("combat already started")
	ErrNotInSetup       = errors.New("session not in setup phase")
	ErrNotInCleanup     = errors.New("session not in cleanup phase")
	ErrUnknownOperation = errors.New("unknown operation")
	ErrInvalidArgument  = errors.New("invalid argument")
)

// Encounter couples a session with the stats registry its participants reference.
type Encounter struct {
	Session *domain.Session
	Roster  *domain.Roster
}

// NewEncounter creates a session (and its sentinels) over roster.
func NewEncounter(sessionID string, roster *domain.Roster) *Encounter {
	if roster == nil {
		roster = domain.NewRoster()
	}
	return &Encounter{Session: domain.NewSession(sessionID), Roster: roster}
}

// Service runs turn-order use-cases against an Encounter. It keeps no
// session state of its own but is not safe for concurrent use.
type Service struct {
	calc   domain.InitiativeCalculator
	sorter *domain.Sorter
	hooks  Hooks
}

// NewService builds a Service from cfg; nil values select defaults.
func NewService(cfg *config.CombatConfig, hooks Hooks) *Service {
	if cfg == nil {
		cfg = config.Default()
	}
	if hooks == nil {
		hooks = NopHooks{}
	}
	return &Service{
		calc:   domain.NewInitiativeCalculator(cfg.SentinelMagnitude),
		sorter: domain.NewSorter(cfg.RoleRanks, cfg.UnknownRoleRank, cfg.Locale),
		hooks:  hooks,
	}
}

// SentinelMagnitude returns the configured sentinel initiative.
func (s *Service) SentinelMagnitude() int {
	return s.calc.SentinelMagnitude
}

// Order recomputes initiative for every participant and returns the fresh
// turn order. TurnIndex is re-resolved against it by participant id and
// falls back to -1 when that participant is gone.
func (s *Service) Order(enc *Encounter) []*domain.Participant {
	sess := enc.Session
	s.calc.Apply(sess, enc.Roster)
	order := s.sorter.Sort(sess.ByID(), enc.Roster)
	sess.TurnIndex = domain.IndexOf(order, s.currentID(sess))
	return order
}

// currentID is the participant the process points at.
func (s *Service) currentID(sess *domain.Session) string {
	if !sess.Started {
		return ""
	}
	switch sess.Process.Phase {
	case domain.PhaseSetup:
		return sess.SetupID
	case domain.PhaseCleanup:
		return sess.CleanupID
	case domain.PhaseMain:
		return sess.Process.ActingParticipantID
	}
	return ""
}

func (s *Service) orderPayload(enc *Encounter, order []*domain.Participant) OrderChangedPayload {
	out := OrderChangedPayload{Order: make([]OrderEntry, len(order)), TurnIndex: enc.Session.TurnIndex}
	for i, p := range order {
		v, _ := p.InitiativeValue()
		out.Order[i] = OrderEntry{
			ParticipantID: p.ID,
			DisplayName:   p.Name,
			Initiative:    v,
			Sentinel:      p.IsSentinel(),
			Candidate:     domain.IsCandidate(p, enc.Roster),
		}
	}
	return out
}
