package scenario

import (
	"context"
	"errors"
	"testing"

	"turnkeeper/internal/app"
	"turnkeeper/internal/domain"
)

const duel = `
session: duel
participants:
  - id: a
    name: Alpha
    controller: player-a
    entity: {role: ally, base_initiative: 12, vitality: 10}
  - id: b
    entity: {role: ally, base_initiative: 8, vitality: 10}
steps:
  - op: startCombat
    expect: {phase: setup, round: 1}
  - op: beginMainLoop
    expect: {phase: main, acting: a}
  - op: advanceTurn
    args: {decision: delay}
    expect: {acting: b}
  - op: advanceTurn
    args: {decision: end}
    expect: {acting: a}
  - op: advanceTurn
    args: {decision: end}
    expect: {phase: cleanup}
  - op: beginMainLoop
    expect: {error: true}
  - op: nextRound
    expect: {phase: setup, round: 2}
`

func TestParse(t *testing.T) {
	s, err := Parse([]byte(duel))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if s.Session != "duel" || len(s.Participants) != 2 || len(s.Steps) != 7 {
		t.Fatalf("scenario = %+v", s)
	}
	if s.Steps[2].Args["decision"] != "delay" {
		t.Fatalf("step args = %v", s.Steps[2].Args)
	}
}

func TestParseRejects(t *testing.T) {
	tests := []struct {
		name string
		data string
		want error
	}{
		{
			name: "UnknownOperation",
			data: "steps:\n  - op: fly\n",
			want: app.ErrUnknownOperation,
		},
		{
			name: "DuplicateParticipant",
			data: "participants:\n  - id: a\n  - id: a\n",
			want: domain.ErrDuplicateParticipant,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if _, err := Parse([]byte(test.data)); !errors.Is(err, test.want) {
				t.Fatalf("Parse() error = %v, want %v", err, test.want)
			}
		})
	}

	if _, err := Parse([]byte("participants: [{name: x}]")); err == nil {
		t.Fatalf("Parse() accepted a participant without id")
	}
	if _, err := Parse([]byte("session: [")); err == nil {
		t.Fatalf("Parse() accepted invalid YAML")
	}
}

func TestBuildSeedsEntities(t *testing.T) {
	s, err := Parse([]byte(duel))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	h, err := s.Build(context.Background(), app.NewService(nil, nil))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	b := h.Encounter.Session.Get("b")
	if b == nil || b.Name != "b" || b.EntityRef != "b" {
		t.Fatalf("participant b = %+v", b)
	}
	if v, ok := b.InitiativeValue(); !ok || v != 8 {
		t.Fatalf("b initiative = %d (%t), want 8", v, ok)
	}
	if a := h.Encounter.Session.Get("a"); a.ControllerID != "player-a" {
		t.Fatalf("a controller = %q", a.ControllerID)
	}
}

func TestRunReplaysSteps(t *testing.T) {
	s, err := Parse([]byte(duel))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	h, err := s.Build(context.Background(), app.NewService(nil, nil))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	var results []Result
	if err := s.Run(context.Background(), h, func(r Result) { results = append(results, r) }); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(results) != len(s.Steps) {
		t.Fatalf("reported %d steps, want %d", len(results), len(s.Steps))
	}
	if !errors.Is(results[5].Err, app.ErrNotInSetup) {
		t.Fatalf("step 5 error = %v, want %v", results[5].Err, app.ErrNotInSetup)
	}
}

func TestRunStopsOnFailedExpectation(t *testing.T) {
	s, err := Parse([]byte(duel))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	s.Steps[1].Expect.Acting = "b"
	h, _ := s.Build(context.Background(), app.NewService(nil, nil))

	count := 0
	err = s.Run(context.Background(), h, func(Result) { count++ })
	if !errors.Is(err, ErrExpectation) {
		t.Fatalf("Run() error = %v, want %v", err, ErrExpectation)
	}
	if count != 2 {
		t.Fatalf("ran %d steps, want 2", count)
	}
}

func TestLoadShippedScenario(t *testing.T) {
	s, err := Load("../../data/scenarios/skirmish.yaml")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	h, err := s.Build(context.Background(), app.NewService(nil, nil))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if err := s.Run(context.Background(), h, nil); err != nil {
		t.Fatalf("Run: %v", err)
	}
}
