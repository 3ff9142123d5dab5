// Package scenario loads scripted encounters from YAML and replays them
// against the turn engine.
package scenario

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"

	"turnkeeper/internal/app"
	"turnkeeper/internal/domain"

	"gopkg.in/yaml.v3"
)

var ErrExpectation = errors.New("expectation not met")

// Scenario is a roster plus the operations to run against it.
type Scenario struct {
	Session      string        `yaml:"session"`
	Participants []Participant `yaml:"participants"`
	Steps        []Step        `yaml:"steps"`
}

// Participant seeds one combatant and its entity.
type Participant struct {
	ID         string `yaml:"id"`
	Name       string `yaml:"name"`
	Controller string `yaml:"controller"`
	Entity     Entity `yaml:"entity"`
}

// Entity is the YAML form of domain.Entity. Ref defaults to the participant id.
type Entity struct {
	Ref            string `yaml:"ref"`
	Role           string `yaml:"role"`
	BaseInitiative int    `yaml:"base_initiative"`
	Vitality       int    `yaml:"vitality"`
	Perception     int    `yaml:"perception"`
	Willpower      int    `yaml:"willpower"`
	Incapacitated  bool   `yaml:"incapacitated"`
	ActingDisabled bool   `yaml:"acting_disabled"`
	BonusTurns     int    `yaml:"bonus_turns"`
}

// Step runs Op with Args and optionally checks the resulting session.
type Step struct {
	Op     string         `yaml:"op"`
	Args   map[string]any `yaml:"args"`
	Expect *Expect        `yaml:"expect"`
}

// Expect is checked after a step. Empty fields are not checked.
type Expect struct {
	Phase  string `yaml:"phase"`
	Acting string `yaml:"acting"`
	Round  int    `yaml:"round"`
	Error  bool   `yaml:"error"`
}

// Result is reported for every executed step.
type Result struct {
	Index   int
	Op      string
	Events  []app.Event
	Err     error
	Phase   domain.Phase
	Acting  string
	Round   int
	Session *domain.Session
}

// Load reads and parses a scenario file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes and validates a scenario.
func Parse(data []byte) (*Scenario, error) {
	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	if s.Session == "" {
		s.Session = "scenario"
	}
	seen := make(map[string]bool, len(s.Participants))
	for i, p := range s.Participants {
		if p.ID == "" {
			return nil, fmt.Errorf("participant %d: missing id", i)
		}
		if seen[p.ID] {
			return nil, fmt.Errorf("participant %s: %w", p.ID, domain.ErrDuplicateParticipant)
		}
		seen[p.ID] = true
	}
	for i, st := range s.Steps {
		if !slices.Contains(app.Operations, st.Op) {
			return nil, fmt.Errorf("step %d: %w: %q", i, app.ErrUnknownOperation, st.Op)
		}
	}
	return &s, nil
}

// Build creates the encounter and adds every participant through svc.
func (s *Scenario) Build(ctx context.Context, svc *app.Service) (*app.Handler, error) {
	enc := app.NewEncounter(s.Session, nil)
	for _, p := range s.Participants {
		part := &domain.Participant{ID: p.ID, Name: p.Name, ControllerID: p.Controller}
		if part.Name == "" {
			part.Name = p.ID
		}
		if _, err := svc.AddParticipant(ctx, enc, part, p.Entity.toDomain(part)); err != nil {
			return nil, err
		}
	}
	return app.NewHandler(svc, enc), nil
}

func (e Entity) toDomain(p *domain.Participant) *domain.Entity {
	ref := e.Ref
	if ref == "" {
		ref = p.ID
	}
	return &domain.Entity{
		Ref:            ref,
		Name:           p.Name,
		Role:           e.Role,
		BaseInitiative: e.BaseInitiative,
		Vitality:       e.Vitality,
		Perception:     e.Perception,
		Willpower:      e.Willpower,
		Incapacitated:  e.Incapacitated,
		ActingDisabled: e.ActingDisabled,
		BonusTurn:      domain.BonusTurnState{Remaining: e.BonusTurns, Max: e.BonusTurns},
	}
}

// Run executes every step on h, calling report after each. It stops at the
// first failed expectation or unexpected error.
func (s *Scenario) Run(ctx context.Context, h *app.Handler, report func(Result)) error {
	for i, st := range s.Steps {
		evs, err := h.Handle(ctx, st.Op, st.Args)
		sess := h.Encounter.Session
		res := Result{
			Index:   i,
			Op:      st.Op,
			Events:  evs,
			Err:     err,
			Phase:   sess.Process.Phase,
			Acting:  sess.Process.ActingParticipantID,
			Round:   sess.Round,
			Session: sess,
		}
		if report != nil {
			report(res)
		}
		if err := st.check(res); err != nil {
			return fmt.Errorf("step %d (%s): %w", i, st.Op, err)
		}
	}
	return nil
}

func (st Step) check(res Result) error {
	exp := st.Expect
	if exp == nil {
		if res.Err != nil {
			return res.Err
		}
		return nil
	}
	if exp.Error != (res.Err != nil) {
		return fmt.Errorf("%w: error = %v, want error %t", ErrExpectation, res.Err, exp.Error)
	}
	if exp.Phase != "" && string(res.Phase) != exp.Phase {
		return fmt.Errorf("%w: phase = %s, want %s", ErrExpectation, res.Phase, exp.Phase)
	}
	if exp.Acting != "" && res.Acting != exp.Acting {
		return fmt.Errorf("%w: acting = %q, want %q", ErrExpectation, res.Acting, exp.Acting)
	}
	if exp.Round != 0 && res.Round != exp.Round {
		return fmt.Errorf("%w: round = %d, want %d", ErrExpectation, res.Round, exp.Round)
	}
	return nil
}
