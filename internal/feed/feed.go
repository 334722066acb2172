// Package feed decodes the taken-players snapshot produced by the upstream
// scraper. Malformed records are skipped and reported, never fatal.
package feed

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/aatrey56/lineup-planner/internal/model"
	"github.com/aatrey56/lineup-planner/internal/store"
)

// DefaultFile is the snapshot name written by the scraper.
const DefaultFile = "taken_players.json"

// ErrMalformed marks a snapshot that is not a JSON array of records.
var ErrMalformed = errors.New("feed: malformed snapshot")

// Issue describes one record that was excluded from the snapshot.
type Issue struct {
	Index    int    `json:"index"`
	PlayerID string `json:"player_id,omitempty"`
	Reason   string `json:"reason"`
}

func (i Issue) String() string {
	if i.PlayerID != "" {
		return fmt.Sprintf("record %d (player %s): %s", i.Index, i.PlayerID, i.Reason)
	}
	return fmt.Sprintf("record %d: %s", i.Index, i.Reason)
}

// Snapshot is the parsed feed. Players keeps feed order.
type Snapshot struct {
	Players []model.Player
	Issues  []Issue
}

type rawRecord struct {
	PlayerID    json.RawMessage `json:"playerId"`
	Owner       *string         `json:"owner"`
	User        *string         `json:"user"`
	Position    json.RawMessage `json:"position"`
	MarketValue *int64          `json:"marketValue"`
	BuyPrice    *int64          `json:"buyPrice"`
	FirstName   string          `json:"firstName"`
	LastName    string          `json:"lastName"`
	TeamID      json.RawMessage `json:"teamId"`
	Status      int             `json:"status"`
	Trend       int             `json:"trend"`
}

// Load reads rel from st and parses it.
func Load(st *store.JSONStore, rel string) (Snapshot, error) {
	raw, err := st.ReadRaw(rel)
	if err != nil {
		return Snapshot{}, err
	}
	return Parse(raw)
}

// Parse decodes a snapshot document.
func Parse(data []byte) (Snapshot, error) {
	var records []json.RawMessage
	if err := json.Unmarshal(data, &records); err != nil {
		return Snapshot{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	out := Snapshot{Players: make([]model.Player, 0, len(records))}
	seen := make(map[model.PlayerID]int, len(records))
	for i, rec := range records {
		p, err := decodeRecord(rec)
		if err != nil {
			out.Issues = append(out.Issues, Issue{Index: i, PlayerID: string(p.ID), Reason: err.Error()})
			continue
		}
		if first, dup := seen[p.ID]; dup {
			out.Issues = append(out.Issues, Issue{
				Index:    i,
				PlayerID: string(p.ID),
				Reason:   fmt.Sprintf("duplicate of record %d", first),
			})
			continue
		}
		seen[p.ID] = i
		out.Players = append(out.Players, p)
	}
	return out, nil
}

func decodeRecord(rec json.RawMessage) (model.Player, error) {
	var r rawRecord
	if err := json.Unmarshal(rec, &r); err != nil {
		return model.Player{}, fmt.Errorf("decode: %v", err)
	}

	id, ok := scalar(r.PlayerID)
	if !ok || id == "" {
		return model.Player{}, errors.New("missing playerId")
	}
	p := model.Player{
		ID:        model.PlayerID(id),
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Status:    r.Status,
		Trend:     r.Trend,
	}
	p.TeamID, _ = scalar(r.TeamID)

	// Older snapshots name the owning manager "user".
	owner := r.Owner
	if owner == nil {
		owner = r.User
	}
	if owner == nil || strings.TrimSpace(*owner) == "" {
		return p, errors.New("missing owner")
	}
	p.Owner = strings.TrimSpace(*owner)

	pos, ok := position(r.Position)
	if !ok {
		return p, errors.New("missing position")
	}
	p.Position = pos

	if r.MarketValue == nil {
		return p, errors.New("missing marketValue")
	}
	if *r.MarketValue < 0 {
		return p, fmt.Errorf("negative marketValue %d", *r.MarketValue)
	}
	p.MarketValue = *r.MarketValue

	if r.BuyPrice == nil {
		return p, errors.New("missing buyPrice")
	}
	p.BuyPrice = *r.BuyPrice
	return p, nil
}

// scalar renders a JSON string or number as a string. Absent and null
// values report false.
func scalar(raw json.RawMessage) (string, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", false
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", false
		}
		return strings.TrimSpace(s), true
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", false
	}
	return n.String(), true
}

func position(raw json.RawMessage) (model.Position, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return model.PositionUnknown, false
	}
	if raw[0] == '"' {
		s, ok := scalar(raw)
		if !ok || s == "" {
			return model.PositionUnknown, false
		}
		return model.ParsePosition(s), true
	}
	n, err := strconv.Atoi(string(raw))
	if err != nil {
		return model.PositionUnknown, false
	}
	return model.PositionFromNumber(n), true
}
