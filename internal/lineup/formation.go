package lineup

import (
	"errors"
	"fmt"
	"sort"
)

const (
	// SquadSize is the number of players on the pitch.
	SquadSize = 11
	// OutfieldSize excludes the goalkeeper.
	OutfieldSize = SquadSize - 1
)

var (
	ErrInvalidShape   = errors.New("invalid formation shape")
	ErrDuplicateShape = errors.New("duplicate formation shape")
	ErrEmptyCatalog   = errors.New("formation catalog is empty")
)

// Shape is a (defenders, midfielders, attackers) triple.
type Shape struct {
	Defense  int `json:"defense"`
	Midfield int `json:"midfield"`
	Attack   int `json:"attack"`
}

// ShapeOf builds a Shape from a [d, m, a] triple.
func ShapeOf(t [NumBuckets]int) Shape {
	return Shape{Defense: t[Defense], Midfield: t[Midfield], Attack: t[Attack]}
}

func (s Shape) Need(b Bucket) int {
	switch b {
	case Defense:
		return s.Defense
	case Midfield:
		return s.Midfield
	case Attack:
		return s.Attack
	}
	return 0
}

func (s Shape) Outfield() int { return s.Defense + s.Midfield + s.Attack }

func (s Shape) String() string {
	return fmt.Sprintf("%d-%d-%d", s.Defense, s.Midfield, s.Attack)
}

// Less orders shapes lexicographically on (d, m, a).
func (s Shape) Less(o Shape) bool {
	if s.Defense != o.Defense {
		return s.Defense < o.Defense
	}
	if s.Midfield != o.Midfield {
		return s.Midfield < o.Midfield
	}
	return s.Attack < o.Attack
}

func (s Shape) validate() error {
	if s.Defense < 1 || s.Midfield < 1 || s.Attack < 1 {
		return fmt.Errorf("%w: %s needs at least one player per line", ErrInvalidShape, s)
	}
	if s.Outfield() != OutfieldSize {
		return fmt.Errorf("%w: %s fields %d outfield players, want %d", ErrInvalidShape, s, s.Outfield(), OutfieldSize)
	}
	return nil
}

// defaultShapes is the catalog the planner has always offered, kept exactly
// as listed.
var defaultShapes = []Shape{
	{3, 4, 3}, {4, 4, 2}, {3, 5, 2}, {4, 5, 1}, {3, 6, 1},
	{5, 2, 3}, {4, 2, 4}, {5, 3, 2}, {4, 3, 3}, {5, 4, 1},
}

// Catalog is an immutable, validated, sorted list of formation shapes.
type Catalog struct {
	shapes []Shape
}

// NewCatalog validates shapes and returns them in lexicographic order.
func NewCatalog(shapes ...Shape) (Catalog, error) {
	if len(shapes) == 0 {
		return Catalog{}, ErrEmptyCatalog
	}
	seen := make(map[Shape]struct{}, len(shapes))
	out := make([]Shape, 0, len(shapes))
	for _, s := range shapes {
		if err := s.validate(); err != nil {
			return Catalog{}, err
		}
		if _, dup := seen[s]; dup {
			return Catalog{}, fmt.Errorf("%w: %s", ErrDuplicateShape, s)
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return Catalog{shapes: out}, nil
}

// DefaultCatalog returns the reference catalog.
func DefaultCatalog() Catalog {
	c, err := NewCatalog(defaultShapes...)
	if err != nil {
		panic(err)
	}
	return c
}

func (c Catalog) Len() int { return len(c.shapes) }

func (c Catalog) Shapes() []Shape {
	out := make([]Shape, len(c.shapes))
	copy(out, c.shapes)
	return out
}

// Feasibility is one row of the formation grid.
type Feasibility struct {
	Formation string `json:"formation"`
	Shape     Shape  `json:"shape"`
	Fieldable bool   `json:"fieldable"`
}

// Evaluate checks every shape against t, in catalog order. Each bucket is
// checked on its own; players never cover for another line.
func (c Catalog) Evaluate(t Tally) []Feasibility {
	out := make([]Feasibility, 0, len(c.shapes))
	for _, s := range c.shapes {
		out = append(out, Feasibility{
			Formation: s.String(),
			Shape:     s,
			Fieldable: t.Covers(s),
		})
	}
	return out
}

// Fieldable returns only the shapes t can field.
func (c Catalog) Fieldable(t Tally) []Shape {
	var out []Shape
	for _, s := range c.shapes {
		if t.Covers(s) {
			out = append(out, s)
		}
	}
	return out
}
