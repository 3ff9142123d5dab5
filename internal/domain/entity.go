package domain

import "sort"

// Role names used by the default rank table.
const (
	RolePrimary = "primary"
	RoleHostile = "hostile"
	RoleAlly    = "ally"
	RoleGroup   = "group"
	RoleMinor   = "minor"
)

// DelayState is the self-chosen deferral attached to an entity.
type DelayState struct {
	Active    bool `json:"active"`
	Magnitude int  `json:"magnitude"`
}

// BonusTurnState tracks consumable extra-turn credit.
type BonusTurnState struct {
	Remaining int `json:"remaining"`
	Max       int `json:"max"`
}

// Entity is the combat-relevant state of an external stats holder.
// Incapacitated and ActingDisabled are owned by the condition engine and only read here.
type Entity struct {
	Ref            string         `json:"ref"`
	Name           string         `json:"name"`
	Role           string         `json:"role"`
	BaseInitiative int            `json:"base_initiative"`
	Vitality       int            `json:"vitality"`
	Perception     int            `json:"perception"`
	Willpower      int            `json:"willpower"`
	Incapacitated  bool           `json:"incapacitated"`
	ActingDisabled bool           `json:"acting_disabled"`
	ActionEnded    bool           `json:"action_ended"`
	Delay          DelayState     `json:"delay"`
	BonusTurn      BonusTurnState `json:"bonus_turn"`
	BonusPenalty   *int           `json:"bonus_penalty,omitempty"`
}

// Stats resolves entity references lazily. A miss is not an error.
type Stats interface {
	Lookup(ref string) (*Entity, bool)
}

// resolve returns the entity behind ref or nil when it is absent.
func resolve(stats Stats, ref string) *Entity {
	if stats == nil || ref == "" {
		return nil
	}
	e, ok := stats.Lookup(ref)
	if !ok {
		return nil
	}
	return e
}

// The read accessors below are nil-safe so a dangling reference reads as zero values.

func (e *Entity) GetVitality() int {
	if e == nil {
		return 0
	}
	return e.Vitality
}

func (e *Entity) IsActionEnded() bool {
	return e != nil && e.ActionEnded
}

func (e *Entity) IsActionDelayed() DelayState {
	if e == nil {
		return DelayState{}
	}
	return e.Delay
}

// HasPendingBonusTurn reports whether the entity still holds bonus-turn credit.
func (e *Entity) HasPendingBonusTurn() bool {
	return e != nil && e.BonusTurn.Remaining > 0
}

func (e *Entity) GetRolePriority() string {
	if e == nil {
		return ""
	}
	return e.Role
}

func (e *Entity) GetSecondaryAttributes() (perception, willpower int) {
	if e == nil {
		return 0, 0
	}
	return e.Perception, e.Willpower
}

// Clone returns a deep copy of the entity.
func (e *Entity) Clone() *Entity {
	if e == nil {
		return nil
	}
	c := *e
	if e.BonusPenalty != nil {
		v := *e.BonusPenalty
		c.BonusPenalty = &v
	}
	return &c
}

// ApplyStats copies the attributes owned by the stats holder from src onto e.
// Round state written by the engine (ActionEnded, Delay, BonusPenalty and
// BonusTurn.Remaining) is left alone.
func (e *Entity) ApplyStats(src *Entity) {
	if e == nil || src == nil {
		return
	}
	e.Name = src.Name
	e.Role = src.Role
	e.BaseInitiative = src.BaseInitiative
	e.Vitality = src.Vitality
	e.Perception = src.Perception
	e.Willpower = src.Willpower
	e.Incapacitated = src.Incapacitated
	e.ActingDisabled = src.ActingDisabled
	e.BonusTurn.Max = src.BonusTurn.Max
}

// RoundUpdate overrides round state explicitly. Nil fields are not touched.
type RoundUpdate struct {
	ActionEnded    *bool
	Delay          *DelayState
	BonusRemaining *int
	BonusPenalty   *int
}

// ApplyRound writes the set fields of u onto e.
func (e *Entity) ApplyRound(u RoundUpdate) {
	if e == nil {
		return
	}
	if u.ActionEnded != nil {
		e.ActionEnded = *u.ActionEnded
	}
	if u.Delay != nil {
		e.Delay = *u.Delay
	}
	if u.BonusRemaining != nil {
		e.BonusTurn.Remaining = *u.BonusRemaining
	}
	if u.BonusPenalty != nil {
		v := *u.BonusPenalty
		e.BonusPenalty = &v
	}
}

// Roster is an in-memory Stats registry keyed by entity ref.
type Roster struct {
	entities map[string]*Entity
}

// NewRoster builds a roster from the given entities.
func NewRoster(entities ...*Entity) *Roster {
	r := &Roster{entities: make(map[string]*Entity, len(entities))}
	for _, e := range entities {
		r.Put(e)
	}
	return r
}

func (r *Roster) Lookup(ref string) (*Entity, bool) {
	if r == nil {
		return nil, false
	}
	e, ok := r.entities[ref]
	return e, ok
}

// Put inserts or replaces an entity.
func (r *Roster) Put(e *Entity) {
	if e == nil || e.Ref == "" {
		return
	}
	if r.entities == nil {
		r.entities = make(map[string]*Entity)
	}
	r.entities[e.Ref] = e
}

// Delete removes an entity; participants referencing it degrade to defaults.
func (r *Roster) Delete(ref string) {
	delete(r.entities, ref)
}

// Entities returns all entities sorted by ref.
func (r *Roster) Entities() []*Entity {
	if r == nil {
		return nil
	}
	out := make([]*Entity, 0, len(r.entities))
	for _, e := range r.entities {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ref < out[j].Ref })
	return out
}
