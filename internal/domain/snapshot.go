package domain

import (
	"encoding/json"
	"fmt"
)

// ParticipantSnapshot is the persisted form of a Participant.
type ParticipantSnapshot struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	EntityRef     string          `json:"entity_ref,omitempty"`
	ControllerID  string          `json:"controller_id,omitempty"`
	Initiative    *int            `json:"initiative,omitempty"`
	Kind          ParticipantKind `json:"kind"`
	SentinelPhase Phase           `json:"sentinel_phase,omitempty"`
}

// Snapshot is the persisted session state together with the entity states it references.
type Snapshot struct {
	SessionID    string                `json:"session_id"`
	SetupID      string                `json:"setup_id"`
	CleanupID    string                `json:"cleanup_id"`
	Round        int                   `json:"round"`
	Started      bool                  `json:"started"`
	TurnIndex    int                   `json:"turn_index"`
	Process      Process               `json:"process"`
	Participants []ParticipantSnapshot `json:"participants"`
	Entities     []*Entity             `json:"entities,omitempty"`
}

// TakeSnapshot captures s and the roster entities.
func TakeSnapshot(s *Session, roster *Roster) *Snapshot {
	snap := &Snapshot{
		SessionID: s.ID,
		SetupID:   s.SetupID,
		CleanupID: s.CleanupID,
		Round:     s.Round,
		Started:   s.Started,
		TurnIndex: s.TurnIndex,
		Process:   s.Process,
	}
	for _, p := range s.ByID() {
		ps := ParticipantSnapshot{
			ID:            p.ID,
			Name:          p.Name,
			EntityRef:     p.EntityRef,
			ControllerID:  p.ControllerID,
			Kind:          p.Kind,
			SentinelPhase: p.SentinelPhase,
		}
		if v, ok := p.InitiativeValue(); ok {
			ps.Initiative = &v
		}
		snap.Participants = append(snap.Participants, ps)
	}
	for _, e := range roster.Entities() {
		snap.Entities = append(snap.Entities, e.Clone())
	}
	return snap
}

// Restore rebuilds a session and roster from snap.
func (snap *Snapshot) Restore() (*Session, *Roster, error) {
	if snap.SessionID == "" {
		return nil, nil, fmt.Errorf("snapshot has no session id")
	}
	s := &Session{
		ID:           snap.SessionID,
		Participants: make(map[string]*Participant, len(snap.Participants)),
		SetupID:      snap.SetupID,
		CleanupID:    snap.CleanupID,
		TurnIndex:    snap.TurnIndex,
		Round:        snap.Round,
		Started:      snap.Started,
		Process:      snap.Process,
	}
	for _, ps := range snap.Participants {
		p := &Participant{
			ID:            ps.ID,
			Name:          ps.Name,
			EntityRef:     ps.EntityRef,
			ControllerID:  ps.ControllerID,
			Kind:          ps.Kind,
			SentinelPhase: ps.SentinelPhase,
		}
		if ps.Initiative != nil {
			v := *ps.Initiative
			p.Initiative = &v
		}
		s.Participants[p.ID] = p
	}
	if s.Get(s.SetupID) == nil || s.Get(s.CleanupID) == nil {
		return nil, nil, fmt.Errorf("snapshot %s is missing a phase sentinel", snap.SessionID)
	}
	if s.Round < 1 {
		s.Round = 1
	}
	return s, NewRoster(snap.Entities...), nil
}

// MarshalSnapshot encodes snap as JSON.
func MarshalSnapshot(snap *Snapshot) ([]byte, error) {
	data, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	return data, nil
}

// UnmarshalSnapshot decodes a JSON snapshot.
func UnmarshalSnapshot(data []byte) (*Snapshot, error) {
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	return &snap, nil
}
