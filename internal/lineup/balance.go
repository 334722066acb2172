package lineup

import "encoding/json"

// Projection is the cash position after selling the selection.
type Projection struct {
	// Current may be negative when the manager is in debt.
	Current  int64
	Selected int64
}

func (p Projection) Projected() int64 { return p.Current + p.Selected }

func (p Projection) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Current   int64 `json:"current"`
		Selected  int64 `json:"selected_value"`
		Projected int64 `json:"projected"`
	}{p.Current, p.Selected, p.Projected()})
}

// Project adds the market value of every selected roster player to balance.
// Values are taken as the feed supplies them.
func Project(balance int64, r Roster, sel Selection) Projection {
	var sum int64
	for _, p := range r.players {
		if sel.Has(p.ID) {
			sum += p.MarketValue
		}
	}
	return Projection{Current: balance, Selected: sum}
}
