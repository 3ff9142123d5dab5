package app

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"turnkeeper/internal/domain"
)

func TestHandlerRunsOperations(t *testing.T) {
	h := NewHandler(NewService(nil, nil), NewEncounter("s", nil))
	ctx := context.Background()

	steps := []struct {
		op   string
		args map[string]any
	}{
		{OpAddParticipant, map[string]any{
			"id": "A", "name": "A", "controllerId": "user-a",
			"entity": map[string]any{"ref": "a", "role": "primary", "baseInitiative": float64(8), "vitality": float64(10)},
		}},
		{OpAddParticipant, map[string]any{
			"id": "B", "name": "B",
			"entity": map[string]any{"ref": "b", "role": "hostile", "baseInitiative": 8, "vitality": 10},
		}},
		{OpStartCombat, nil},
		{OpBeginMainLoop, nil},
		{OpAdvanceTurn, map[string]any{"decision": "delay"}},
	}
	for _, step := range steps {
		if _, err := h.Handle(ctx, step.op, step.args); err != nil {
			t.Fatalf("Handle(%s): %v", step.op, err)
		}
	}

	sess := h.Encounter.Session
	if sess.Process.ActingParticipantID != "B" {
		t.Fatalf("acting = %s, want B", sess.Process.ActingParticipantID)
	}
	if sess.Get("A").ControllerID != "user-a" {
		t.Fatalf("controller = %q, want user-a", sess.Get("A").ControllerID)
	}
}

func TestHandlerUnknownOperation(t *testing.T) {
	h := NewHandler(NewService(nil, nil), NewEncounter("s", nil))
	if _, err := h.Handle(context.Background(), "summonDragon", nil); !errors.Is(err, ErrUnknownOperation) {
		t.Fatalf("Handle() error = %v, want %v", err, ErrUnknownOperation)
	}
}

func TestHandlerSyncEntityRequiresEntity(t *testing.T) {
	h := NewHandler(NewService(nil, nil), NewEncounter("s", nil))
	if _, err := h.Handle(context.Background(), OpSyncEntity, map[string]any{}); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("Handle() error = %v, want %v", err, ErrInvalidArgument)
	}
}

func TestIntArg(t *testing.T) {
	tests := []struct {
		name   string
		value  any
		want   int
		wantOK bool
	}{
		{"Int", 4, 4, true},
		{"Int64", int64(-3), -3, true},
		{"Float", float64(7), 7, true},
		{"Fraction", 7.5, 0, false},
		{"Number", json.Number("12"), 12, true},
		{"String", "12", 0, false},
		{"Missing", nil, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := IntArg(map[string]any{"v": tt.value}, "v")
			if got != tt.want || ok != tt.wantOK {
				t.Fatalf("IntArg() = %d, %v, want %d, %v", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestEntityArgsRoundTrip(t *testing.T) {
	penalty := -5
	in := &domain.Entity{
		Ref: "e", Name: "Eve", Role: "ally", BaseInitiative: 3, Vitality: 9,
		Perception: 2, Willpower: 1, Incapacitated: true,
		BonusTurn:    domain.BonusTurnState{Remaining: 1, Max: 2},
		Delay:        domain.DelayState{Active: true, Magnitude: 2},
		BonusPenalty: &penalty,
	}
	out, err := EntityFromArgs(EntityArgs(in))
	if err != nil {
		t.Fatalf("EntityFromArgs: %v", err)
	}
	if out.BonusPenalty == nil || *out.BonusPenalty != -5 || out.BonusTurn != in.BonusTurn || out.Delay != in.Delay {
		t.Fatalf("round trip = %+v, want %+v", out, in)
	}
	if !out.Incapacitated || out.Role != "ally" || out.Vitality != 9 {
		t.Fatalf("round trip lost fields: %+v", out)
	}
}
