package domain

// Decision is the acting participant's choice at the end of its turn.
type Decision string

const (
	DecisionEnd    Decision = "end"
	DecisionDelay  Decision = "delay"
	DecisionCancel Decision = "cancel"
)

// ParseDecision maps raw input to a Decision. Anything unrecognized is a cancel.
func ParseDecision(raw string) Decision {
	switch Decision(raw) {
	case DecisionEnd, DecisionDelay:
		return Decision(raw)
	}
	return DecisionCancel
}

// EndTurn marks e as done for the round, spending a bonus turn when one is available.
// Every spent credit lets e act again, including once the penalty has been
// forced to -sentinelMagnitude; that later turn lands at the bottom of the order.
// It reports whether a bonus turn was consumed.
func EndTurn(e *Entity, sentinelMagnitude int) bool {
	if e == nil {
		return false
	}
	e.ActionEnded = true
	if e.BonusTurn.Remaining <= 0 {
		return false
	}
	e.BonusTurn.Remaining--

	penalty := -floorDiv(e.BaseInitiative, 2)
	if e.BonusPenalty != nil {
		penalty = -sentinelMagnitude
	}
	e.BonusPenalty = &penalty
	e.ActionEnded = false
	return true
}

// DelayTurn defers e behind every entity already delayed in stats.
// It returns the queue position assigned.
func DelayTurn(e *Entity, s *Session, stats Stats) int {
	if e == nil {
		return 0
	}
	others := 0
	seen := make(map[string]bool)
	for _, p := range s.ByID() {
		if p.IsSentinel() || seen[p.EntityRef] {
			continue
		}
		other := resolve(stats, p.EntityRef)
		if other == nil || other == e {
			continue
		}
		seen[p.EntityRef] = true
		if other.Delay.Active {
			others++
		}
	}
	e.Delay = DelayState{Active: true, Magnitude: 1 + others}
	return e.Delay.Magnitude
}

// IsCandidate reports whether p may be selected as the next actor.
// Delayed entities stay eligible; their negative initiative places them last.
func IsCandidate(p *Participant, stats Stats) bool {
	if p == nil || p.IsSentinel() {
		return false
	}
	e := resolve(stats, p.EntityRef)
	if e == nil {
		return false
	}
	if e.IsActionEnded() || e.GetVitality() <= 0 {
		return false
	}
	return !e.Incapacitated && !e.ActingDisabled
}

// Candidates filters order down to eligible actors, preserving order.
func Candidates(order []*Participant, stats Stats) []*Participant {
	var out []*Participant
	for _, p := range order {
		if IsCandidate(p, stats) {
			out = append(out, p)
		}
	}
	return out
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
