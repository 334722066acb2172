package main

import (
	"fmt"
	"strings"

	"github.com/aatrey56/lineup-planner/internal/lineup"
	"github.com/aatrey56/lineup-planner/internal/model"
)

// ToggleSaleArgs are the input arguments for the toggle_sale tool.
type ToggleSaleArgs struct {
	SessionID string `json:"session_id" jsonschema:"Planner session id (required)"`
	PlayerID  string `json:"player_id" jsonschema:"Player id on the active roster (required)"`
}

// ToggleSaleOutput is the output of the toggle_sale tool.
type ToggleSaleOutput struct {
	PlayerID model.PlayerID `json:"player_id"`
	Selected bool           `json:"selected"`
	View     lineup.View    `json:"plan"`
}

// SetBalanceArgs are the input arguments for the set_balance tool.
type SetBalanceArgs struct {
	SessionID string `json:"session_id" jsonschema:"Planner session id (required)"`
	Balance   int64  `json:"balance" jsonschema:"Current cash balance; negative means debt"`
}

func (a *app) buildToggleSale(args ToggleSaleArgs) (ToggleSaleOutput, error) {
	id := model.PlayerID(strings.TrimSpace(args.PlayerID))
	if id == "" {
		return ToggleSaleOutput{}, fmt.Errorf("player_id is required")
	}
	var out ToggleSaleOutput
	err := a.withPlanner(args.SessionID, func(p *lineup.Planner) error {
		selected, err := p.Toggle(id)
		if err != nil {
			return err
		}
		out = ToggleSaleOutput{PlayerID: id, Selected: selected, View: p.View()}
		return nil
	})
	return out, err
}

func (a *app) buildClearSelection(args SessionArgs) (lineup.View, error) {
	var v lineup.View
	err := a.withPlanner(args.SessionID, func(p *lineup.Planner) error {
		v = p.ClearSelection()
		return nil
	})
	return v, err
}

func (a *app) buildSetBalance(args SetBalanceArgs) (lineup.View, error) {
	var v lineup.View
	err := a.withPlanner(args.SessionID, func(p *lineup.Planner) error {
		v = p.SetBalance(args.Balance)
		return nil
	})
	return v, err
}

func (a *app) buildLineupPlan(args SessionArgs) (lineup.View, error) {
	var v lineup.View
	err := a.withPlanner(args.SessionID, func(p *lineup.Planner) error {
		v = p.View()
		return nil
	})
	return v, err
}
