package lineup

import (
	"encoding/json"
	"fmt"

	"github.com/aatrey56/lineup-planner/internal/model"
)

// Bucket is one of the three outfield groups formations are built from.
type Bucket int

const (
	Defense Bucket = iota
	Midfield
	Attack

	NumBuckets = 3
)

func (b Bucket) String() string {
	switch b {
	case Defense:
		return "defense"
	case Midfield:
		return "midfield"
	case Attack:
		return "attack"
	}
	return fmt.Sprintf("bucket(%d)", int(b))
}

// BucketOf maps a position to its bucket. Goalkeepers and unknown positions
// have no bucket.
func BucketOf(pos model.Position) (Bucket, bool) {
	switch pos {
	case model.PositionDefender:
		return Defense, true
	case model.PositionMidfielder:
		return Midfield, true
	case model.PositionForward:
		return Attack, true
	}
	return 0, false
}

// Tally counts the unselected outfield players per bucket.
type Tally [NumBuckets]int

// CountTally counts the roster players not in sel.
func CountTally(r Roster, sel Selection) Tally {
	var t Tally
	for _, p := range r.players {
		if sel.Has(p.ID) {
			continue
		}
		if b, ok := BucketOf(p.Position); ok {
			t[b]++
		}
	}
	return t
}

func (t Tally) Total() int { return t[Defense] + t[Midfield] + t[Attack] }

// Covers reports whether every bucket holds at least what s needs.
func (t Tally) Covers(s Shape) bool {
	for b := Bucket(0); b < NumBuckets; b++ {
		if s.Need(b) > t[b] {
			return false
		}
	}
	return true
}

func (t Tally) String() string {
	return fmt.Sprintf("%d-%d-%d", t[Defense], t[Midfield], t[Attack])
}

func (t Tally) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Defense  int    `json:"defense"`
		Midfield int    `json:"midfield"`
		Attack   int    `json:"attack"`
		Total    int    `json:"total"`
		Label    string `json:"label"`
	}{t[Defense], t[Midfield], t[Attack], t.Total(), t.String()})
}
