package lineup

import (
	"sort"

	"github.com/aatrey56/lineup-planner/internal/model"
)

// Selection is the set of players tentatively marked for sale. The zero
// value is an empty set ready to use.
type Selection struct {
	ids map[model.PlayerID]struct{}
}

func NewSelection(ids ...model.PlayerID) Selection {
	var s Selection
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

// Add inserts id and reports whether it was absent before.
func (s *Selection) Add(id model.PlayerID) bool {
	if s.ids == nil {
		s.ids = make(map[model.PlayerID]struct{})
	}
	if _, ok := s.ids[id]; ok {
		return false
	}
	s.ids[id] = struct{}{}
	return true
}

// Remove deletes id and reports whether it was present.
func (s *Selection) Remove(id model.PlayerID) bool {
	if _, ok := s.ids[id]; !ok {
		return false
	}
	delete(s.ids, id)
	return true
}

func (s Selection) Has(id model.PlayerID) bool {
	_, ok := s.ids[id]
	return ok
}

func (s Selection) Len() int { return len(s.ids) }

func (s *Selection) Clear() { s.ids = nil }

// IDs returns the members in ascending order.
func (s Selection) IDs() []model.PlayerID {
	out := make([]model.PlayerID, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Clone returns an independent copy.
func (s Selection) Clone() Selection {
	return NewSelection(s.IDs()...)
}
