package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/aatrey56/lineup-planner/internal/lineup"
	"github.com/aatrey56/lineup-planner/internal/metrics"
	"github.com/aatrey56/lineup-planner/internal/model"
	"github.com/aatrey56/lineup-planner/internal/planstore"
	"github.com/aatrey56/lineup-planner/internal/session"
)

// ---- shared test helpers ----

func writeJSON(t *testing.T, path string, v any) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func rec(id, owner, pos string, buy, market int64) map[string]any {
	return map[string]any{
		"playerId":    id,
		"owner":       owner,
		"position":    pos,
		"firstName":   "P",
		"lastName":    id,
		"buyPrice":    buy,
		"marketValue": market,
	}
}

// squadRecords returns a 4-4-2 squad for anna plus one player for ben:
//
//	a1 = TW, a2..a5 = ABW, a6..a9 = MF, a10..a11 = ANG
//	b1 = MF (ben)
func squadRecords() []any {
	out := []any{rec("a1", "anna", "TW", 0, 100)}
	for _, id := range []string{"a2", "a3", "a4", "a5"} {
		out = append(out, rec(id, "anna", "ABW", 100, 200))
	}
	for _, id := range []string{"a6", "a7", "a8", "a9"} {
		out = append(out, rec(id, "anna", "MF", 0, 300))
	}
	out = append(out, rec("a10", "anna", "ANG", 500, 400), rec("a11", "anna", "ANG", 0, 400))
	out = append(out, rec("b1", "ben", "MF", 0, 1000))
	return out
}

// newTestApp writes records as the snapshot in a temp raw root and opens a
// plan store in the same directory.
func newTestApp(t *testing.T, records []any) *app {
	t.Helper()
	dir := t.TempDir()
	cfg := ServerConfig{
		RawRoot:     filepath.Join(dir, "raw"),
		DerivedRoot: filepath.Join(dir, "derived"),
		FeedFile:    "taken_players.json",
	}
	if records != nil {
		writeJSON(t, filepath.Join(cfg.RawRoot, cfg.FeedFile), records)
	}
	plans, err := planstore.Open(filepath.Join(dir, "plans.db"))
	if err != nil {
		t.Fatalf("open plans: %v", err)
	}
	t.Cleanup(func() { _ = plans.Close() })
	return newApp(cfg, lineup.DefaultCatalog(), plans, metrics.New())
}

func openSession(t *testing.T, a *app, args OpenArgs) OpenOutput {
	t.Helper()
	out, err := a.buildOpen(context.Background(), args)
	if err != nil {
		t.Fatalf("buildOpen: %v", err)
	}
	return out
}

// ---- planner_open / planner_close ----

func TestBuildOpen_DefaultsToFirstManager(t *testing.T) {
	a := newTestApp(t, squadRecords())
	out := openSession(t, a, OpenArgs{})

	if out.SessionID == "" {
		t.Fatal("empty session id")
	}
	if out.View.Manager != "anna" {
		t.Errorf("manager=%q want anna", out.View.Manager)
	}
	if len(out.Managers) != 2 || out.Managers[0] != "anna" || out.Managers[1] != "ben" {
		t.Errorf("managers=%v", out.Managers)
	}
	if out.View.RosterSize != 11 {
		t.Errorf("roster size=%d want 11", out.View.RosterSize)
	}
	if got := out.View.Tally.String(); got != "4-4-2" {
		t.Errorf("tally=%s want 4-4-2", got)
	}
	if n := out.View.Fieldable(); n != 1 {
		t.Errorf("fieldable=%d want 1", n)
	}
	if len(out.Skipped) != 0 {
		t.Errorf("skipped=%v want none", out.Skipped)
	}
	if a.sessions.Len() != 1 {
		t.Errorf("sessions=%d want 1", a.sessions.Len())
	}
}

func TestBuildOpen_ManagerAndBalance(t *testing.T) {
	a := newTestApp(t, squadRecords())
	ben := "ben"
	bal := int64(-250)
	out := openSession(t, a, OpenArgs{Manager: &ben, Balance: &bal})

	if out.View.Manager != "ben" || out.View.RosterSize != 1 {
		t.Errorf("view=%+v", out.View)
	}
	if out.View.Balance.Current != -250 || out.View.Balance.Projected() != -250 {
		t.Errorf("balance=%+v", out.View.Balance)
	}
}

func TestBuildOpen_ReportsSkippedRecords(t *testing.T) {
	records := squadRecords()
	records = append(records, map[string]any{"playerId": "x", "owner": "anna"})
	a := newTestApp(t, records)
	out := openSession(t, a, OpenArgs{})

	if len(out.Skipped) != 1 || out.Skipped[0].PlayerID != "x" {
		t.Errorf("skipped=%+v want record x", out.Skipped)
	}
	if out.View.RosterSize != 11 {
		t.Errorf("roster size=%d want 11", out.View.RosterSize)
	}
}

func TestBuildOpen_MissingSnapshot(t *testing.T) {
	a := newTestApp(t, nil)
	if _, err := a.buildOpen(context.Background(), OpenArgs{}); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("err=%v want os.ErrNotExist", err)
	}
}

func TestBuildClose(t *testing.T) {
	a := newTestApp(t, squadRecords())
	out := openSession(t, a, OpenArgs{})

	if _, err := a.buildClose(SessionArgs{SessionID: out.SessionID}); err != nil {
		t.Fatalf("close: %v", err)
	}
	if a.sessions.Len() != 0 {
		t.Errorf("sessions=%d want 0", a.sessions.Len())
	}
	if _, err := a.buildClose(SessionArgs{SessionID: out.SessionID}); !errors.Is(err, session.ErrNotFound) {
		t.Errorf("second close err=%v want ErrNotFound", err)
	}
	if _, err := a.buildClose(SessionArgs{}); err == nil {
		t.Error("expected error for empty session id")
	}
}

// ---- managers / roster / selection ----

func TestBuildSwitchManager_ClearsSelection(t *testing.T) {
	a := newTestApp(t, squadRecords())
	id := openSession(t, a, OpenArgs{}).SessionID

	if _, err := a.buildToggleSale(ToggleSaleArgs{SessionID: id, PlayerID: "a2"}); err != nil {
		t.Fatal(err)
	}
	v, err := a.buildSwitchManager(context.Background(), SwitchManagerArgs{SessionID: id, Manager: "anna"})
	if err != nil {
		t.Fatal(err)
	}
	if len(v.Selected) != 0 {
		t.Errorf("selected=%v want empty after switch", v.Selected)
	}

	v, err = a.buildSwitchManager(context.Background(), SwitchManagerArgs{SessionID: id, Manager: "ben"})
	if err != nil {
		t.Fatal(err)
	}
	if v.Manager != "ben" || v.Tally.String() != "0-1-0" {
		t.Errorf("view manager=%s tally=%s", v.Manager, v.Tally)
	}

	m, err := a.buildManagers(SessionArgs{SessionID: id})
	if err != nil {
		t.Fatal(err)
	}
	if m.Active != "ben" {
		t.Errorf("active=%s want ben", m.Active)
	}
	if _, err := a.buildSwitchManager(context.Background(), SwitchManagerArgs{SessionID: id}); err == nil {
		t.Error("expected error for empty manager")
	}
}

func TestBuildSwitchManager_OwnerWithPadding(t *testing.T) {
	a := newTestApp(t, []any{
		rec("a1", "anna", "ABW", 0, 10),
		rec("b1", "Bob ", "ABW", 0, 10),
	})
	out := openSession(t, a, OpenArgs{})
	if len(out.Managers) != 2 || out.Managers[1] != "Bob" {
		t.Fatalf("managers=%q want [anna Bob]", out.Managers)
	}

	for _, name := range []string{out.Managers[1], "Bob "} {
		v, err := a.buildSwitchManager(context.Background(), SwitchManagerArgs{SessionID: out.SessionID, Manager: name})
		if err != nil {
			t.Fatal(err)
		}
		if v.Manager != "Bob" || v.RosterSize != 1 {
			t.Errorf("switch %q: manager=%q roster size=%d want Bob/1", name, v.Manager, v.RosterSize)
		}
	}
}

func TestBuildRoster_SortedByMarketValue(t *testing.T) {
	a := newTestApp(t, squadRecords())
	id := openSession(t, a, OpenArgs{}).SessionID
	if _, err := a.buildToggleSale(ToggleSaleArgs{SessionID: id, PlayerID: "a10"}); err != nil {
		t.Fatal(err)
	}

	out, err := a.buildRoster(SessionArgs{SessionID: id})
	if err != nil {
		t.Fatal(err)
	}
	if len(out.Players) != 11 {
		t.Fatalf("players=%d want 11", len(out.Players))
	}
	for i := 1; i < len(out.Players); i++ {
		if out.Players[i-1].MarketValue < out.Players[i].MarketValue {
			t.Fatalf("not sorted at %d: %d < %d", i, out.Players[i-1].MarketValue, out.Players[i].MarketValue)
		}
	}
	if first := out.Players[0]; first.PlayerID != "a10" || !first.Selected || first.Turnover != -100 {
		t.Errorf("first row=%+v want a10 selected with turnover -100", first)
	}
	for _, row := range out.Players {
		if row.PlayerID == "a1" && row.Turnover != 0 {
			t.Errorf("a1 turnover=%d want 0 (no buy price)", row.Turnover)
		}
	}
}

func TestBuildToggleSale(t *testing.T) {
	a := newTestApp(t, squadRecords())
	id := openSession(t, a, OpenArgs{}).SessionID

	out, err := a.buildToggleSale(ToggleSaleArgs{SessionID: id, PlayerID: "a2"})
	if err != nil {
		t.Fatal(err)
	}
	if !out.Selected {
		t.Error("a2 should be selected")
	}
	if got := out.View.Tally.String(); got != "3-4-2" {
		t.Errorf("tally=%s want 3-4-2", got)
	}
	if n := out.View.Fieldable(); n != 0 {
		t.Errorf("fieldable=%d want 0", n)
	}
	if out.View.Balance.Selected != 200 || out.View.Balance.Projected() != 200 {
		t.Errorf("balance=%+v", out.View.Balance)
	}

	out, err = a.buildToggleSale(ToggleSaleArgs{SessionID: id, PlayerID: "a2"})
	if err != nil {
		t.Fatal(err)
	}
	if out.Selected || out.View.Tally.String() != "4-4-2" {
		t.Errorf("second toggle selected=%v tally=%s", out.Selected, out.View.Tally)
	}

	if _, err := a.buildToggleSale(ToggleSaleArgs{SessionID: id, PlayerID: "b1"}); !errors.Is(err, lineup.ErrNotOnRoster) {
		t.Errorf("err=%v want ErrNotOnRoster", err)
	}
	if _, err := a.buildToggleSale(ToggleSaleArgs{SessionID: id}); err == nil {
		t.Error("expected error for empty player id")
	}
	if _, err := a.buildToggleSale(ToggleSaleArgs{SessionID: "nope", PlayerID: "a2"}); !errors.Is(err, session.ErrNotFound) {
		t.Errorf("err=%v want session.ErrNotFound", err)
	}
}

func TestBuildSetBalanceAndClear(t *testing.T) {
	a := newTestApp(t, squadRecords())
	id := openSession(t, a, OpenArgs{}).SessionID

	for _, pid := range []string{"a6", "a7"} {
		if _, err := a.buildToggleSale(ToggleSaleArgs{SessionID: id, PlayerID: pid}); err != nil {
			t.Fatal(err)
		}
	}
	v, err := a.buildSetBalance(SetBalanceArgs{SessionID: id, Balance: -1000})
	if err != nil {
		t.Fatal(err)
	}
	if v.Balance.Projected() != -400 {
		t.Errorf("projected=%d want -400", v.Balance.Projected())
	}

	v, err = a.buildClearSelection(SessionArgs{SessionID: id})
	if err != nil {
		t.Fatal(err)
	}
	if len(v.Selected) != 0 || v.Balance.Projected() != -1000 {
		t.Errorf("after clear selected=%v projected=%d", v.Selected, v.Balance.Projected())
	}

	plan, err := a.buildLineupPlan(SessionArgs{SessionID: id})
	if err != nil {
		t.Fatal(err)
	}
	if plan.Tally.String() != "4-4-2" || plan.Balance.Current != -1000 {
		t.Errorf("plan=%+v", plan)
	}
}

// ---- saved plans ----

func TestPlanSaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	a := newTestApp(t, squadRecords())
	id := openSession(t, a, OpenArgs{}).SessionID

	for _, pid := range []string{"a2", "a11"} {
		if _, err := a.buildToggleSale(ToggleSaleArgs{SessionID: id, PlayerID: pid}); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := a.buildSetBalance(SetBalanceArgs{SessionID: id, Balance: 50}); err != nil {
		t.Fatal(err)
	}
	saved, err := a.buildPlanSave(ctx, PlanArgs{SessionID: id, Name: " sell two "})
	if err != nil {
		t.Fatal(err)
	}
	if saved.Name != "sell two" || saved.Manager != "anna" || saved.Balance != 50 || len(saved.Selection) != 2 {
		t.Errorf("saved=%+v", saved)
	}

	// Load into a fresh session that sits on another manager.
	ben := "ben"
	other := openSession(t, a, OpenArgs{Manager: &ben}).SessionID
	out, err := a.buildPlanLoad(ctx, PlanArgs{SessionID: other, Name: "sell two"})
	if err != nil {
		t.Fatal(err)
	}
	if out.View.Manager != "anna" || out.View.Balance.Current != 50 {
		t.Errorf("view=%+v", out.View)
	}
	if got := out.View.Tally.String(); got != "3-4-1" {
		t.Errorf("tally=%s want 3-4-1", got)
	}
	if out.View.Balance.Projected() != 50+200+400 {
		t.Errorf("projected=%d want 650", out.View.Balance.Projected())
	}
	if len(out.Skipped) != 0 {
		t.Errorf("skipped=%v", out.Skipped)
	}

	list, err := a.buildPlanList(ctx, PlanListArgs{Manager: "anna"})
	if err != nil {
		t.Fatal(err)
	}
	if len(list.Plans) != 1 {
		t.Errorf("plans=%d want 1", len(list.Plans))
	}
	list, err = a.buildPlanList(ctx, PlanListArgs{Manager: "ben"})
	if err != nil {
		t.Fatal(err)
	}
	if len(list.Plans) != 0 {
		t.Errorf("ben plans=%d want 0", len(list.Plans))
	}
}

func TestPlanLoad_SkipsPlayersNoLongerOwned(t *testing.T) {
	ctx := context.Background()
	a := newTestApp(t, squadRecords())
	id := openSession(t, a, OpenArgs{}).SessionID

	_, err := a.plans.Save(ctx, planstore.Plan{
		Name:      "stale",
		Manager:   "anna",
		Selection: []model.PlayerID{"a3", "gone"},
	})
	if err != nil {
		t.Fatal(err)
	}
	out, err := a.buildPlanLoad(ctx, PlanArgs{SessionID: id, Name: "stale"})
	if err != nil {
		t.Fatal(err)
	}
	if len(out.Skipped) != 1 || out.Skipped[0] != "gone" {
		t.Errorf("skipped=%v want [gone]", out.Skipped)
	}
	if len(out.View.Selected) != 1 || out.View.Selected[0] != "a3" {
		t.Errorf("selected=%v want [a3]", out.View.Selected)
	}
}

func TestPlanDelete(t *testing.T) {
	ctx := context.Background()
	a := newTestApp(t, squadRecords())
	id := openSession(t, a, OpenArgs{}).SessionID

	if _, err := a.buildPlanSave(ctx, PlanArgs{SessionID: id, Name: "keep"}); err != nil {
		t.Fatal(err)
	}
	if _, err := a.buildPlanDelete(ctx, PlanArgs{Name: "keep"}); err != nil {
		t.Fatal(err)
	}
	if _, err := a.buildPlanDelete(ctx, PlanArgs{Name: "keep"}); !errors.Is(err, planstore.ErrNotFound) {
		t.Errorf("err=%v want ErrNotFound", err)
	}
	if _, err := a.buildPlanLoad(ctx, PlanArgs{SessionID: id, Name: "keep"}); !errors.Is(err, planstore.ErrNotFound) {
		t.Errorf("load err=%v want ErrNotFound", err)
	}
	if _, err := a.buildPlanSave(ctx, PlanArgs{SessionID: id}); err == nil {
		t.Error("expected error for empty name")
	}
}

func TestPlanExport_WritesJSON(t *testing.T) {
	a := newTestApp(t, squadRecords())
	id := openSession(t, a, OpenArgs{}).SessionID
	if _, err := a.buildToggleSale(ToggleSaleArgs{SessionID: id, PlayerID: "a6"}); err != nil {
		t.Fatal(err)
	}

	out, err := a.buildPlanExport(SessionArgs{SessionID: id})
	if err != nil {
		t.Fatal(err)
	}
	if out.Path != a.derived.Path(filepath.Join("plans", id+".json")) {
		t.Errorf("path=%s", out.Path)
	}
	if out.Overwrote {
		t.Error("first export should not report an overwrite")
	}
	b, err := os.ReadFile(out.Path)
	if err != nil {
		t.Fatal(err)
	}
	var doc struct {
		SessionID string `json:"session_id"`
		View      struct {
			Manager  string   `json:"manager"`
			Selected []string `json:"selected"`
			Tally    struct {
				Label string `json:"label"`
			} `json:"tally"`
		} `json:"view"`
	}
	if err := json.Unmarshal(b, &doc); err != nil {
		t.Fatalf("decode export: %v", err)
	}
	if doc.SessionID != id || doc.View.Manager != "anna" {
		t.Errorf("doc=%+v", doc)
	}
	if len(doc.View.Selected) != 1 || doc.View.Selected[0] != "a6" {
		t.Errorf("selected=%v want [a6]", doc.View.Selected)
	}
	if doc.View.Tally.Label != "4-3-2" {
		t.Errorf("tally label=%q want 4-3-2", doc.View.Tally.Label)
	}

	again, err := a.buildPlanExport(SessionArgs{SessionID: id})
	if err != nil {
		t.Fatal(err)
	}
	if !again.Overwrote {
		t.Error("second export should report an overwrite")
	}
}

func TestPlanExport_UnknownSession(t *testing.T) {
	a := newTestApp(t, squadRecords())
	if _, err := a.buildPlanExport(SessionArgs{SessionID: "nope"}); !errors.Is(err, session.ErrNotFound) {
		t.Errorf("err=%v want session.ErrNotFound", err)
	}
	if _, err := a.buildPlanExport(SessionArgs{}); err == nil {
		t.Error("expected error for empty session id")
	}
}

// ---- HTTP ----

func TestAuthMiddleware(t *testing.T) {
	ok := func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }
	h := authMiddleware("secret", "X-API-Key")(ok)

	cases := []struct {
		name   string
		header string
		value  string
		want   int
	}{
		{"missing", "", "", http.StatusUnauthorized},
		{"wrong key", "X-API-Key", "nope", http.StatusUnauthorized},
		{"api key", "X-API-Key", "secret", http.StatusOK},
		{"bearer", "Authorization", "Bearer secret", http.StatusOK},
		{"bearer lower", "Authorization", "bearer secret", http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/health", nil)
			if tc.header != "" {
				req.Header.Set(tc.header, tc.value)
			}
			rr := httptest.NewRecorder()
			h(rr, req)
			if rr.Code != tc.want {
				t.Errorf("status=%d want %d", rr.Code, tc.want)
			}
		})
	}

	open := authMiddleware("", "X-API-Key")(ok)
	rr := httptest.NewRecorder()
	open(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rr.Code != http.StatusOK {
		t.Errorf("no key configured: status=%d want 200", rr.Code)
	}
}
