package domain

// InitiativeCalculator derives initiative values from participant state.
type InitiativeCalculator struct {
	SentinelMagnitude int
}

// NewInitiativeCalculator returns a calculator bounded by magnitude, falling
// back to DefaultSentinelMagnitude when magnitude leaves no room for normal values.
func NewInitiativeCalculator(magnitude int) InitiativeCalculator {
	if magnitude <= 1 {
		magnitude = DefaultSentinelMagnitude
	}
	return InitiativeCalculator{SentinelMagnitude: magnitude}
}

// Compute returns the initiative for p. Missing data yields 0.
// Normal values are clamped strictly inside the sentinel bounds.
func (c InitiativeCalculator) Compute(p *Participant, stats Stats) int {
	if p == nil {
		return 0
	}
	m := c.magnitude()
	if p.IsSentinel() {
		switch p.SentinelPhase {
		case PhaseSetup:
			return m
		case PhaseCleanup:
			return -m
		}
		return 0
	}

	e := resolve(stats, p.EntityRef)
	if e == nil {
		return 0
	}
	if d := e.IsActionDelayed(); d.Active {
		return clamp(-d.Magnitude, m)
	}
	v := e.BaseInitiative
	if e.BonusPenalty != nil {
		v += *e.BonusPenalty
	}
	return clamp(v, m)
}

// Apply recomputes and stores the initiative of every participant in s.
func (c InitiativeCalculator) Apply(s *Session, stats Stats) {
	for _, p := range s.Participants {
		v := c.Compute(p, stats)
		p.Initiative = &v
	}
}

func (c InitiativeCalculator) magnitude() int {
	if c.SentinelMagnitude <= 1 {
		return DefaultSentinelMagnitude
	}
	return c.SentinelMagnitude
}

func clamp(v, m int) int {
	if v > m-1 {
		return m - 1
	}
	if v < -(m - 1) {
		return -(m - 1)
	}
	return v
}
