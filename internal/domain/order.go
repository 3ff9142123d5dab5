package domain

import (
	"sort"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// UnknownRoleRank is the rank of roles missing from the rank table.
const UnknownRoleRank = 99

// DefaultRoleRanks is the stock rank table; lower ranks act first.
var DefaultRoleRanks = map[string]int{
	RolePrimary: 1,
	RoleHostile: 2,
	RoleAlly:    3,
	RoleGroup:   4,
	RoleMinor:   5,
}

// Sorter orders participants by the initiative tie-break chain.
// A Sorter is not safe for concurrent use because the collator keeps internal buffers.
type Sorter struct {
	ranks       map[string]int
	unknownRank int
	collator    *collate.Collator
}

// NewSorter builds a sorter for the given rank table and BCP 47 locale.
// A nil table selects DefaultRoleRanks; an unparsable locale falls back to English.
func NewSorter(ranks map[string]int, unknownRank int, locale string) *Sorter {
	if ranks == nil {
		ranks = DefaultRoleRanks
	}
	if unknownRank == 0 {
		unknownRank = UnknownRoleRank
	}
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.English
	}
	return &Sorter{
		ranks:       ranks,
		unknownRank: unknownRank,
		collator:    collate.New(tag),
	}
}

// RoleRank returns the rank for role.
func (s *Sorter) RoleRank(role string) int {
	if r, ok := s.ranks[role]; ok {
		return r
	}
	return s.unknownRank
}

// Compare returns -1 when a acts before b, 1 when after, 0 when tied.
func (s *Sorter) Compare(a, b *Participant, stats Stats) int {
	ai, aok := a.InitiativeValue()
	bi, bok := b.InitiativeValue()
	switch {
	case aok && !bok:
		return -1
	case !aok && bok:
		return 1
	case aok && bok && ai != bi:
		return desc(ai, bi)
	}

	ae := resolve(stats, a.EntityRef)
	be := resolve(stats, b.EntityRef)
	if ae == nil || be == nil {
		return 0
	}

	if ra, rb := s.RoleRank(ae.GetRolePriority()), s.RoleRank(be.GetRolePriority()); ra != rb {
		return asc(ra, rb)
	}

	if pa, pb := ae.HasPendingBonusTurn(), be.HasPendingBonusTurn(); pa != pb {
		if pa {
			return 1
		}
		return -1
	}

	aPer, aWill := ae.GetSecondaryAttributes()
	bPer, bWill := be.GetSecondaryAttributes()
	if aPer != bPer {
		return desc(aPer, bPer)
	}
	if aWill != bWill {
		return desc(aWill, bWill)
	}

	return s.collator.CompareString(a.Name, b.Name)
}

// Sort returns participants in turn order. Input is first ordered by id so
// ties resolve identically regardless of storage order.
func (s *Sorter) Sort(participants []*Participant, stats Stats) []*Participant {
	out := append([]*Participant(nil), participants...)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	sort.SliceStable(out, func(i, j int) bool {
		return s.Compare(out[i], out[j], stats) < 0
	})
	return out
}

func desc(a, b int) int {
	if a > b {
		return -1
	}
	return 1
}

func asc(a, b int) int {
	if a < b {
		return -1
	}
	return 1
}
