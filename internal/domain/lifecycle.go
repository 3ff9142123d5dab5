package domain

// ResetEntity clears the per-round transient counters of e.
func ResetEntity(e *Entity) {
	if e == nil {
		return
	}
	e.ActionEnded = false
	e.Delay = DelayState{}
	e.BonusPenalty = nil
	if e.BonusTurn.Max > 0 {
		e.BonusTurn.Remaining = e.BonusTurn.Max
	}
}

// ResetRound resets every entity linked from a normal participant of s and
// returns the entities touched, each at most once.
func ResetRound(s *Session, stats Stats) []*Entity {
	var touched []*Entity
	seen := make(map[string]bool)
	for _, p := range s.ByID() {
		if p.IsSentinel() || seen[p.EntityRef] {
			continue
		}
		e := resolve(stats, p.EntityRef)
		if e == nil {
			continue
		}
		seen[p.EntityRef] = true
		ResetEntity(e)
		touched = append(touched, e)
	}
	return touched
}

// AnyEligible reports whether at least one normal participant can act.
func AnyEligible(s *Session, stats Stats) bool {
	for _, p := range s.Participants {
		if IsCandidate(p, stats) {
			return true
		}
	}
	return false
}
