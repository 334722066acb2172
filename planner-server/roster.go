package main

import (
	"github.com/aatrey56/lineup-planner/internal/lineup"
	"github.com/aatrey56/lineup-planner/internal/model"
)

// RosterRow describes one player on the active manager's roster.
type RosterRow struct {
	PlayerID    model.PlayerID `json:"player_id"`
	Name        string         `json:"name"`
	TeamID      string         `json:"team_id"`
	Position    model.Position `json:"position"`
	Status      int            `json:"status"`
	Trend       int            `json:"trend"`
	BuyPrice    int64          `json:"buy_price"`
	MarketValue int64          `json:"market_value"`
	Turnover    int64          `json:"turnover"`
	Selected    bool           `json:"selected"`
}

// RosterOutput is the output of the roster tool.
type RosterOutput struct {
	Manager string      `json:"manager"`
	Players []RosterRow `json:"players"`
}

func (a *app) buildRoster(args SessionArgs) (RosterOutput, error) {
	var out RosterOutput
	err := a.withPlanner(args.SessionID, func(p *lineup.Planner) error {
		players := p.Roster().Players()
		rows := make([]RosterRow, 0, len(players))
		for _, pl := range players {
			rows = append(rows, RosterRow{
				PlayerID:    pl.ID,
				Name:        pl.Name(),
				TeamID:      pl.TeamID,
				Position:    pl.Position,
				Status:      pl.Status,
				Trend:       pl.Trend,
				BuyPrice:    pl.BuyPrice,
				MarketValue: pl.MarketValue,
				Turnover:    pl.Turnover(),
				Selected:    p.IsSelected(pl.ID),
			})
		}
		out = RosterOutput{Manager: p.Manager(), Players: rows}
		return nil
	})
	return out, err
}
