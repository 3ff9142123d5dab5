package domain

import (
	"errors"
	"sort"
)

var (
	ErrDuplicateParticipant = errors.New("participant already exists")
	ErrUnknownParticipant   = errors.New("participant not found")
	ErrSentinelRemoval      = errors.New("phase sentinels cannot be removed")
)

// Session is the authoritative turn-order state of one combat.
type Session struct {
	ID           string
	Participants map[string]*Participant
	SetupID      string
	CleanupID    string
	TurnIndex    int // index into the last computed order, -1 when nobody is current
	Round        int
	Started      bool
	Process      Process
}

// NewSession creates a session with its two phase sentinels. It is the only
// constructor of sentinels.
func NewSession(id string) *Session {
	s := &Session{
		ID:           id,
		Participants: make(map[string]*Participant),
		SetupID:      id + ":setup",
		CleanupID:    id + ":cleanup",
		TurnIndex:    -1,
		Round:        1,
	}
	s.Participants[s.SetupID] = &Participant{
		ID:            s.SetupID,
		Name:          "Setup",
		Kind:          KindSentinel,
		SentinelPhase: PhaseSetup,
	}
	s.Participants[s.CleanupID] = &Participant{
		ID:            s.CleanupID,
		Name:          "Cleanup",
		Kind:          KindSentinel,
		SentinelPhase: PhaseCleanup,
	}
	return s
}

// Add inserts a normal participant.
func (s *Session) Add(p *Participant) error {
	if p == nil || p.ID == "" {
		return ErrUnknownParticipant
	}
	if _, exists := s.Participants[p.ID]; exists {
		return ErrDuplicateParticipant
	}
	p.Kind = KindNormal
	p.SentinelPhase = ""
	s.Participants[p.ID] = p
	return nil
}

// Remove deletes a normal participant.
func (s *Session) Remove(id string) error {
	p, ok := s.Participants[id]
	if !ok {
		return ErrUnknownParticipant
	}
	if p.IsSentinel() {
		return ErrSentinelRemoval
	}
	delete(s.Participants, id)
	return nil
}

// Get returns the participant with id, or nil.
func (s *Session) Get(id string) *Participant {
	if s == nil || id == "" {
		return nil
	}
	return s.Participants[id]
}

// ByID returns all participants ordered by id.
func (s *Session) ByID() []*Participant {
	out := make([]*Participant, 0, len(s.Participants))
	for _, p := range s.Participants {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Acting returns the participant whose turn it is, or nil outside the main phase.
func (s *Session) Acting() *Participant {
	if s.Process.Phase != PhaseMain {
		return nil
	}
	return s.Get(s.Process.ActingParticipantID)
}

// Suspension reports what the phase machine is waiting for.
func (s *Session) Suspension() Suspension {
	if !s.Started {
		return SuspendNone
	}
	switch s.Process.Phase {
	case PhaseSetup:
		return SuspendBeginMainLoop
	case PhaseMain:
		return SuspendDecision
	case PhaseCleanup:
		return SuspendNextRound
	}
	return SuspendNone
}

// IndexOf returns the position of id in order, or -1.
func IndexOf(order []*Participant, id string) int {
	for i, p := range order {
		if p.ID == id {
			return i
		}
	}
	return -1
}
