package model

import (
	"encoding/json"
	"strings"
)

// PlayerID identifies a player within a season. The upstream feed emits it
// either as a string or as a number; both decode to the same PlayerID.
type PlayerID string

// Position is the tactical position as numbered by the upstream feed
// (1 = goalkeeper, 2 = defender, 3 = midfielder, 4 = forward).
type Position int

const (
	PositionUnknown Position = iota
	PositionGoalkeeper
	PositionDefender
	PositionMidfielder
	PositionForward
)

var positionCodes = map[Position]string{
	PositionGoalkeeper: "TW",
	PositionDefender:   "ABW",
	PositionMidfielder: "MF",
	PositionForward:    "ANG",
}

// Code returns the short code used by the snapshot feed ("TW", "ABW", "MF", "ANG").
func (p Position) Code() string {
	if c, ok := positionCodes[p]; ok {
		return c
	}
	return "?"
}

func (p Position) String() string { return p.Code() }

func (p Position) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.Code())
}

// ParsePosition maps a feed code to a Position. Unrecognised codes yield
// PositionUnknown rather than an error.
func ParsePosition(code string) Position {
	code = strings.ToUpper(strings.TrimSpace(code))
	for p, c := range positionCodes {
		if c == code {
			return p
		}
	}
	return PositionUnknown
}

// PositionFromNumber maps the numeric position used by the league API.
func PositionFromNumber(n int) Position {
	p := Position(n)
	if _, ok := positionCodes[p]; ok {
		return p
	}
	return PositionUnknown
}

// Player is one record of the taken-players snapshot.
type Player struct {
	ID          PlayerID `json:"player_id"`
	Owner       string   `json:"owner"`
	Position    Position `json:"position"`
	MarketValue int64    `json:"market_value"`
	// BuyPrice is 0 for players assigned on league join (never purchased).
	BuyPrice  int64  `json:"buy_price"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	TeamID    string `json:"team_id,omitempty"`
	Status    int    `json:"status"`
	Trend     int    `json:"trend"`
}

// Name returns "First Last", or whichever half is present.
func (p Player) Name() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// StartingSquad reports whether the player came with the initial squad.
func (p Player) StartingSquad() bool { return p.BuyPrice == 0 }

// Turnover is the paper profit on a purchased player. Starting-squad
// players have no purchase price and report 0.
func (p Player) Turnover() int64 {
	if p.StartingSquad() {
		return 0
	}
	return p.MarketValue - p.BuyPrice
}
