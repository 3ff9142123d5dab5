package domain

// Phase represents the stage of a combat round.
type Phase string

const (
	// PhaseSetup opens each round; the round reset runs on entry.
	PhaseSetup Phase = "setup"
	// PhaseMain is the active loop where normal participants take turns.
	PhaseMain Phase = "main"
	// PhaseCleanup closes each round.
	PhaseCleanup Phase = "cleanup"
)

// ParticipantKind distinguishes real combatants from phase boundary markers.
type ParticipantKind string

const (
	KindNormal   ParticipantKind = "normal"
	KindSentinel ParticipantKind = "sentinel"
)

// DefaultSentinelMagnitude is the initiative of the setup sentinel (and the
// negated initiative of the cleanup sentinel) when no configuration overrides it.
const DefaultSentinelMagnitude = 9999

// Participant is one entry in the turn order.
type Participant struct {
	ID           string
	Name         string
	EntityRef    string // optional key into a Stats registry
	ControllerID string // user allowed to submit decisions for this participant
	Initiative   *int   // nil until first computed
	Kind         ParticipantKind
	// SentinelPhase is set only for sentinels (setup or cleanup).
	SentinelPhase Phase
}

// IsSentinel reports whether p marks a phase boundary.
func (p *Participant) IsSentinel() bool {
	return p.Kind == KindSentinel
}

// InitiativeValue returns the computed initiative and whether one is present.
func (p *Participant) InitiativeValue() (int, bool) {
	if p == nil || p.Initiative == nil {
		return 0, false
	}
	return *p.Initiative, true
}

// Process is the tagged union of the current phase; ActingParticipantID is
// only set while Phase is main.
type Process struct {
	Phase               Phase  `json:"phase"`
	ActingParticipantID string `json:"acting_participant_id,omitempty"`
}

// Suspension names the external input the phase machine is waiting for.
type Suspension string

const (
	SuspendNone          Suspension = ""
	SuspendBeginMainLoop Suspension = "begin_main_loop"
	SuspendDecision      Suspension = "decision"
	SuspendNextRound     Suspension = "next_round"
)
