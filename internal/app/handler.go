package app

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"turnkeeper/internal/domain"
)

// Handler binds a Service to one Encounter and executes named operations.
type Handler struct {
	Service   *Service
	Encounter *Encounter
}

// NewHandler returns a handler for enc.
func NewHandler(svc *Service, enc *Encounter) *Handler {
	return &Handler{Service: svc, Encounter: enc}
}

// Handle runs op with loosely typed args, as decoded from an intent.
func (h *Handler) Handle(ctx context.Context, op string, args map[string]any) ([]Event, error) {
	svc, enc := h.Service, h.Encounter
	switch op {
	case OpAdvanceTurn:
		return svc.Advance(ctx, enc, domain.ParseDecision(StringArg(args, "decision")))
	case OpRecomputeOrder:
		return svc.RecomputeOrder(ctx, enc)
	case OpBeginMainLoop:
		return svc.BeginMainLoop(ctx, enc)
	case OpStartCombat:
		return svc.StartCombat(ctx, enc)
	case OpAddParticipant:
		p := &domain.Participant{
			ID:           StringArg(args, "id"),
			Name:         StringArg(args, "name"),
			EntityRef:    StringArg(args, "entityRef"),
			ControllerID: StringArg(args, "controllerId"),
		}
		var entity *domain.Entity
		if raw, ok := args["entity"].(map[string]any); ok {
			e, err := EntityFromArgs(raw)
			if err != nil {
				return nil, err
			}
			entity = e
		}
		return svc.AddParticipant(ctx, enc, p, entity)
	case OpRemoveParticipant:
		return svc.RemoveParticipant(ctx, enc, StringArg(args, "id"))
	case OpSyncEntity:
		raw, ok := args["entity"].(map[string]any)
		if !ok {
			return nil, fmt.Errorf("sync entity: %w", ErrInvalidArgument)
		}
		e, err := EntityFromArgs(raw)
		if err != nil {
			return nil, err
		}
		return svc.SyncEntity(ctx, enc, e, RoundUpdateFromArgs(raw))
	case OpPreviousTurn:
		return svc.PreviousTurn(ctx, enc)
	case OpNextRound:
		return svc.NextRound(ctx, enc)
	case OpEndCombat:
		return svc.EndCombat(ctx, enc)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownOperation, op)
	}
}

// StringArg returns args[key] when it is a string.
func StringArg(args map[string]any, key string) string {
	s, _ := args[key].(string)
	return s
}

// IntArg returns args[key] as an int. Decoded wire numbers arrive as float64.
func IntArg(args map[string]any, key string) (int, bool) {
	switch v := args[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		if v != math.Trunc(v) {
			return 0, false
		}
		return int(v), true
	case json.Number:
		i, err := v.Int64()
		if err != nil {
			return 0, false
		}
		return int(i), true
	}
	return 0, false
}

// BoolArg returns args[key] when it is a bool.
func BoolArg(args map[string]any, key string) bool {
	b, _ := args[key].(bool)
	return b
}

// EntityFromArgs decodes an entity object.
func EntityFromArgs(args map[string]any) (*domain.Entity, error) {
	e := &domain.Entity{
		Ref:            StringArg(args, "ref"),
		Name:           StringArg(args, "name"),
		Role:           StringArg(args, "role"),
		Incapacitated:  BoolArg(args, "incapacitated"),
		ActingDisabled: BoolArg(args, "actingDisabled"),
		ActionEnded:    BoolArg(args, "actionEnded"),
	}
	if e.Ref == "" {
		return nil, fmt.Errorf("entity ref: %w", ErrInvalidArgument)
	}
	e.BaseInitiative, _ = IntArg(args, "baseInitiative")
	e.Vitality, _ = IntArg(args, "vitality")
	e.Perception, _ = IntArg(args, "perception")
	e.Willpower, _ = IntArg(args, "willpower")
	if bonus, ok := args["bonusTurn"].(map[string]any); ok {
		e.BonusTurn.Remaining, _ = IntArg(bonus, "remaining")
		e.BonusTurn.Max, _ = IntArg(bonus, "max")
	}
	if delay, ok := args["delay"].(map[string]any); ok {
		e.Delay.Active = BoolArg(delay, "active")
		e.Delay.Magnitude, _ = IntArg(delay, "magnitude")
	}
	if v, ok := IntArg(args, "bonusPenalty"); ok {
		e.BonusPenalty = &v
	}
	return e, nil
}

// RoundUpdateFromArgs picks the round state keys that are present in an
// entity object. Absent keys leave the engine's state as it is.
func RoundUpdateFromArgs(args map[string]any) domain.RoundUpdate {
	var u domain.RoundUpdate
	if b, ok := args["actionEnded"].(bool); ok {
		u.ActionEnded = &b
	}
	if delay, ok := args["delay"].(map[string]any); ok {
		d := domain.DelayState{Active: BoolArg(delay, "active")}
		d.Magnitude, _ = IntArg(delay, "magnitude")
		u.Delay = &d
	}
	if bonus, ok := args["bonusTurn"].(map[string]any); ok {
		if v, ok := IntArg(bonus, "remaining"); ok {
			u.BonusRemaining = &v
		}
	}
	if v, ok := IntArg(args, "bonusPenalty"); ok {
		u.BonusPenalty = &v
	}
	return u
}

// EntityArgs is the inverse of EntityFromArgs.
func EntityArgs(e *domain.Entity) map[string]any {
	out := map[string]any{
		"ref":            e.Ref,
		"name":           e.Name,
		"role":           e.Role,
		"baseInitiative": e.BaseInitiative,
		"vitality":       e.Vitality,
		"perception":     e.Perception,
		"willpower":      e.Willpower,
		"incapacitated":  e.Incapacitated,
		"actingDisabled": e.ActingDisabled,
		"actionEnded":    e.ActionEnded,
		"bonusTurn":      map[string]any{"remaining": e.BonusTurn.Remaining, "max": e.BonusTurn.Max},
		"delay":          map[string]any{"active": e.Delay.Active, "magnitude": e.Delay.Magnitude},
	}
	if e.BonusPenalty != nil {
		out["bonusPenalty"] = *e.BonusPenalty
	}
	return out
}
