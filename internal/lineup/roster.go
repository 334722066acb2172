// Package lineup works out which formations a manager can still field after
// a set of tentative sales, and what the cash balance would be afterwards.
package lineup

import (
	"sort"

	"github.com/aatrey56/lineup-planner/internal/model"
)

// Managers returns the distinct owners in the order they first appear in
// the feed. The feed is the only manager registry.
func Managers(players []model.Player) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, p := range players {
		if _, ok := seen[p.Owner]; ok {
			continue
		}
		seen[p.Owner] = struct{}{}
		out = append(out, p.Owner)
	}
	return out
}

// Roster is the read-only set of players owned by one manager.
type Roster struct {
	manager string
	players []model.Player
	byID    map[model.PlayerID]int
}

// NewRoster filters players down to those owned by manager. An unknown
// manager produces an empty roster.
func NewRoster(players []model.Player, manager string) Roster {
	r := Roster{manager: manager, byID: make(map[model.PlayerID]int)}
	for _, p := range players {
		if p.Owner != manager {
			continue
		}
		if _, dup := r.byID[p.ID]; dup {
			continue
		}
		r.byID[p.ID] = len(r.players)
		r.players = append(r.players, p)
	}
	return r
}

func (r Roster) Manager() string { return r.manager }

func (r Roster) Len() int { return len(r.players) }

func (r Roster) Owns(id model.PlayerID) bool {
	_, ok := r.byID[id]
	return ok
}

func (r Roster) Player(id model.PlayerID) (model.Player, bool) {
	i, ok := r.byID[id]
	if !ok {
		return model.Player{}, false
	}
	return r.players[i], true
}

// Players returns a copy sorted by market value, highest first, with the
// player id breaking ties.
func (r Roster) Players() []model.Player {
	out := make([]model.Player, len(r.players))
	copy(out, r.players)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].MarketValue != out[j].MarketValue {
			return out[i].MarketValue > out[j].MarketValue
		}
		return out[i].ID < out[j].ID
	})
	return out
}
