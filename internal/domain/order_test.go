package domain

import "testing"

func orderIDs(order []*Participant) []string {
	ids := make([]string, len(order))
	for i, p := range order {
		ids[i] = p.ID
	}
	return ids
}

func equalIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func normal(id, name, ref string, init int) *Participant {
	return &Participant{ID: id, Name: name, EntityRef: ref, Kind: KindNormal, Initiative: intPtr(init)}
}

func TestSorterTieBreakChain(t *testing.T) {
	sorter := NewSorter(nil, 0, "en")

	tests := []struct {
		name string
		a, b *Entity
		an   string
		bn   string
		want int
	}{
		{
			name: "RolePriority",
			a:    &Entity{Ref: "a", Role: RoleHostile},
			b:    &Entity{Ref: "b", Role: RolePrimary},
			an:   "A", bn: "B",
			want: 1,
		},
		{
			name: "UnknownRoleLast",
			a:    &Entity{Ref: "a", Role: "bystander"},
			b:    &Entity{Ref: "b", Role: RoleMinor},
			an:   "A", bn: "B",
			want: 1,
		},
		{
			name: "PendingBonusTurnActsLater",
			a:    &Entity{Ref: "a", Role: RoleAlly, BonusTurn: BonusTurnState{Remaining: 1, Max: 1}},
			b:    &Entity{Ref: "b", Role: RoleAlly},
			an:   "A", bn: "B",
			want: 1,
		},
		{
			name: "PerceptionDescending",
			a:    &Entity{Ref: "a", Role: RoleAlly, Perception: 3},
			b:    &Entity{Ref: "b", Role: RoleAlly, Perception: 5},
			an:   "A", bn: "B",
			want: 1,
		},
		{
			name: "WillpowerDescending",
			a:    &Entity{Ref: "a", Role: RoleAlly, Perception: 5, Willpower: 9},
			b:    &Entity{Ref: "b", Role: RoleAlly, Perception: 5, Willpower: 2},
			an:   "A", bn: "B",
			want: -1,
		},
		{
			name: "NameAscending",
			a:    &Entity{Ref: "a", Role: RoleAlly},
			b:    &Entity{Ref: "b", Role: RoleAlly},
			an:   "Zed", bn: "amos",
			want: 1,
		},
		{
			name: "FullTie",
			a:    &Entity{Ref: "a", Role: RoleAlly},
			b:    &Entity{Ref: "b", Role: RoleAlly},
			an:   "Same", bn: "Same",
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			roster := NewRoster(tt.a, tt.b)
			pa := normal("pa", tt.an, "a", 8)
			pb := normal("pb", tt.bn, "b", 8)
			if got := sorter.Compare(pa, pb, roster); got != tt.want {
				t.Fatalf("Compare(a, b) = %d, want %d", got, tt.want)
			}
			if got := sorter.Compare(pb, pa, roster); got != -tt.want {
				t.Fatalf("Compare(b, a) = %d, want %d", got, -tt.want)
			}
		})
	}
}

func TestSorterInitiativeDominates(t *testing.T) {
	sorter := NewSorter(nil, 0, "en")
	roster := NewRoster(
		&Entity{Ref: "a", Role: RoleMinor},
		&Entity{Ref: "b", Role: RolePrimary},
	)
	if got := sorter.Compare(normal("pa", "A", "a", 9), normal("pb", "B", "b", 8), roster); got != -1 {
		t.Fatalf("Compare() = %d, want -1", got)
	}
}

func TestSorterMissingInitiativeSortsLast(t *testing.T) {
	sorter := NewSorter(nil, 0, "en")
	unset := &Participant{ID: "u", Kind: KindNormal}
	low := normal("l", "L", "", -9998)
	if got := sorter.Compare(unset, low, nil); got != 1 {
		t.Fatalf("Compare(unset, low) = %d, want 1", got)
	}
}

func TestSorterEntityLessParticipantsTie(t *testing.T) {
	sorter := NewSorter(nil, 0, "en")
	roster := NewRoster(&Entity{Ref: "b", Role: RolePrimary})
	a := normal("pa", "A", "", 3)
	b := normal("pb", "B", "b", 3)
	if got := sorter.Compare(a, b, roster); got != 0 {
		t.Fatalf("Compare() = %d, want 0", got)
	}
}

func TestSorterSentinelBounds(t *testing.T) {
	s := NewSession("bounds")
	roster := NewRoster(
		&Entity{Ref: "max", BaseInitiative: 1 << 20},
		&Entity{Ref: "min", BaseInitiative: -(1 << 20)},
		&Entity{Ref: "pen", BaseInitiative: -50, BonusPenalty: intPtr(-9999)},
	)
	for _, ref := range []string{"max", "min", "pen"} {
		if err := s.Add(&Participant{ID: ref, Name: ref, EntityRef: ref}); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}
	NewInitiativeCalculator(9999).Apply(s, roster)
	order := NewSorter(nil, 0, "en").Sort(s.ByID(), roster)

	if order[0].ID != s.SetupID {
		t.Fatalf("first = %s, want setup sentinel", order[0].ID)
	}
	if order[len(order)-1].ID != s.CleanupID {
		t.Fatalf("last = %s, want cleanup sentinel", order[len(order)-1].ID)
	}
}

func TestSorterDeterministic(t *testing.T) {
	s := NewSession("det")
	roster := NewRoster(
		&Entity{Ref: "a", Role: RoleAlly},
		&Entity{Ref: "b", Role: RoleAlly},
	)
	s.Add(&Participant{ID: "x2", Name: "Same", EntityRef: "a"})
	s.Add(&Participant{ID: "x1", Name: "Same", EntityRef: "b"})
	s.Add(&Participant{ID: "x3", Name: "Loose"})
	NewInitiativeCalculator(9999).Apply(s, roster)
	sorter := NewSorter(nil, 0, "en")

	first := orderIDs(sorter.Sort(s.ByID(), roster))
	for i := 0; i < 20; i++ {
		if got := orderIDs(sorter.Sort(s.ByID(), roster)); !equalIDs(got, first) {
			t.Fatalf("order changed between runs: %v vs %v", got, first)
		}
	}
}

func TestSorterCustomRanks(t *testing.T) {
	sorter := NewSorter(map[string]int{RoleHostile: 1, RolePrimary: 2}, 50, "en")
	roster := NewRoster(
		&Entity{Ref: "a", Role: RolePrimary},
		&Entity{Ref: "b", Role: RoleHostile},
	)
	if got := sorter.Compare(normal("pa", "A", "a", 1), normal("pb", "B", "b", 1), roster); got != 1 {
		t.Fatalf("Compare() = %d, want 1", got)
	}
	if got := sorter.RoleRank("nobody"); got != 50 {
		t.Fatalf("RoleRank(nobody) = %d, want 50", got)
	}
}

func TestSorterExampleScenario(t *testing.T) {
	s := NewSession("ex")
	roster := NewRoster(
		&Entity{Ref: "a", Role: RolePrimary, BaseInitiative: 8, Vitality: 10},
		&Entity{Ref: "b", Role: RoleHostile, BaseInitiative: 8, Vitality: 10},
	)
	s.Add(&Participant{ID: "B", Name: "B", EntityRef: "b"})
	s.Add(&Participant{ID: "A", Name: "A", EntityRef: "a"})
	calc := NewInitiativeCalculator(9999)
	sorter := NewSorter(nil, 0, "en")

	calc.Apply(s, roster)
	got := orderIDs(sorter.Sort(s.ByID(), roster))
	want := []string{s.SetupID, "A", "B", s.CleanupID}
	if !equalIDs(got, want) {
		t.Fatalf("order = %v, want %v", got, want)
	}

	a, _ := roster.Lookup("a")
	DelayTurn(a, s, roster)
	calc.Apply(s, roster)
	if v, _ := s.Get("A").InitiativeValue(); v != -1 {
		t.Fatalf("A initiative = %d, want -1", v)
	}
	got = orderIDs(sorter.Sort(s.ByID(), roster))
	want = []string{s.SetupID, "B", "A", s.CleanupID}
	if !equalIDs(got, want) {
		t.Fatalf("order after delay = %v, want %v", got, want)
	}
}
