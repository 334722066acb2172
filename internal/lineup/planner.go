package lineup

import (
	"errors"
	"fmt"

	"github.com/aatrey56/lineup-planner/internal/model"
)

var ErrNotOnRoster = errors.New("player is not on the active roster")

// View is everything derived from the planner state at one point in time.
type View struct {
	Manager    string           `json:"manager"`
	RosterSize int              `json:"roster_size"`
	Tally      Tally            `json:"tally"`
	Formations []Feasibility    `json:"formations"`
	Balance    Projection       `json:"balance"`
	Selected   []model.PlayerID `json:"selected"`
}

// Fieldable counts the fieldable formations.
func (v View) Fieldable() int {
	n := 0
	for _, f := range v.Formations {
		if f.Fieldable {
			n++
		}
	}
	return n
}

type subscriber struct {
	id int
	fn func(View)
}

// Planner holds one planning session over an immutable feed snapshot.
// Every mutation recomputes the View before any subscriber is told about it.
// A Planner is not safe for concurrent use.
type Planner struct {
	players  []model.Player
	managers []string
	catalog  Catalog

	manager   string
	roster    Roster
	selection Selection
	balance   int64

	view   View
	subs   []subscriber
	nextID int
}

// NewPlanner starts on the first manager in the feed.
func NewPlanner(players []model.Player, catalog Catalog) *Planner {
	p := &Planner{
		players:  players,
		managers: Managers(players),
		catalog:  catalog,
	}
	if len(p.managers) > 0 {
		p.manager = p.managers[0]
	}
	p.roster = NewRoster(players, p.manager)
	p.recompute()
	return p
}

func (p *Planner) Managers() []string {
	out := make([]string, len(p.managers))
	copy(out, p.managers)
	return out
}

func (p *Planner) Manager() string { return p.manager }

func (p *Planner) Roster() Roster { return p.roster }

func (p *Planner) Catalog() Catalog { return p.catalog }

func (p *Planner) Balance() int64 { return p.balance }

func (p *Planner) View() View { return p.view }

func (p *Planner) IsSelected(id model.PlayerID) bool { return p.selection.Has(id) }

// HasManager reports whether id owns at least one player in the feed.
func (p *Planner) HasManager(id string) bool {
	for _, m := range p.managers {
		if m == id {
			return true
		}
	}
	return false
}

// SwitchManager rebuilds the roster for id and empties the selection, even
// when id is already active. Unknown managers get an empty roster.
func (p *Planner) SwitchManager(id string) View {
	p.manager = id
	p.roster = NewRoster(p.players, id)
	p.selection.Clear()
	return p.commit()
}

// Toggle flips id in or out of the selection and reports whether it is now
// selected.
func (p *Planner) Toggle(id model.PlayerID) (bool, error) {
	if p.selection.Remove(id) {
		p.commit()
		return false, nil
	}
	if err := p.Select(id); err != nil {
		return false, err
	}
	return true, nil
}

// Select marks id for sale. Selecting an already selected player is a no-op.
func (p *Planner) Select(id model.PlayerID) error {
	if !p.roster.Owns(id) {
		return fmt.Errorf("%w: %s (manager %s)", ErrNotOnRoster, id, p.manager)
	}
	if p.selection.Add(id) {
		p.commit()
	}
	return nil
}

// Deselect unmarks id. Unknown ids are ignored.
func (p *Planner) Deselect(id model.PlayerID) {
	if p.selection.Remove(id) {
		p.commit()
	}
}

// SelectAll replaces the selection with every id the active roster owns and
// returns the ids it had to skip.
func (p *Planner) SelectAll(ids []model.PlayerID) []model.PlayerID {
	var skipped []model.PlayerID
	p.selection.Clear()
	for _, id := range ids {
		if !p.roster.Owns(id) {
			skipped = append(skipped, id)
			continue
		}
		p.selection.Add(id)
	}
	p.commit()
	return skipped
}

func (p *Planner) ClearSelection() View {
	p.selection.Clear()
	return p.commit()
}

// SetBalance records the manually entered cash balance. Negative values
// represent debt.
func (p *Planner) SetBalance(balance int64) View {
	p.balance = balance
	return p.commit()
}

// Subscribe registers fn to be called with the fresh View after each
// mutation. The returned func unregisters it.
func (p *Planner) Subscribe(fn func(View)) (cancel func()) {
	id := p.nextID
	p.nextID++
	p.subs = append(p.subs, subscriber{id: id, fn: fn})
	return func() {
		for i, s := range p.subs {
			if s.id == id {
				p.subs = append(p.subs[:i], p.subs[i+1:]...)
				return
			}
		}
	}
}

func (p *Planner) commit() View {
	p.recompute()
	subs := make([]subscriber, len(p.subs))
	copy(subs, p.subs)
	for _, s := range subs {
		s.fn(p.view)
	}
	return p.view
}

func (p *Planner) recompute() {
	tally := CountTally(p.roster, p.selection)
	p.view = View{
		Manager:    p.manager,
		RosterSize: p.roster.Len(),
		Tally:      tally,
		Formations: p.catalog.Evaluate(tally),
		Balance:    Project(p.balance, p.roster, p.selection),
		Selected:   p.selection.IDs(),
	}
}
