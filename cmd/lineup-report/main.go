// Command lineup-report reads the taken-players snapshot offline and writes,
// for every manager, the squad tally, the formations it can field and the
// squad's market value.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/aatrey56/lineup-planner/internal/config"
	"github.com/aatrey56/lineup-planner/internal/feed"
	"github.com/aatrey56/lineup-planner/internal/lineup"
	"github.com/aatrey56/lineup-planner/internal/logging"
	"github.com/aatrey56/lineup-planner/internal/model"
	"github.com/aatrey56/lineup-planner/internal/store"
)

type Report struct {
	GeneratedAtUTC string          `json:"generated_at_utc"`
	Source         string          `json:"source"`
	Skipped        int             `json:"skipped_records"`
	Managers       []ManagerReport `json:"managers"`
}

type ManagerReport struct {
	Manager     string         `json:"manager"`
	RosterSize  int            `json:"roster_size"`
	Goalkeepers int            `json:"goalkeepers"`
	Tally       lineup.Tally   `json:"tally"`
	Fieldable   []lineup.Shape `json:"fieldable"`
	MarketValue int64          `json:"market_value"`
	Turnover    int64          `json:"turnover"`
}

func main() {
	def := config.Default()
	var (
		configPath  = flag.String("config", "", "optional YAML config file")
		rawRoot     = flag.String("raw-root", def.RawRoot, "directory holding the snapshot")
		derivedRoot = flag.String("derived-root", def.DerivedRoot, "directory for the report")
		feedFile    = flag.String("feed-file", def.FeedFile, "snapshot file name below raw-root")
		outPath     = flag.String("out", "lineup_report.json", "output path below derived-root")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "raw-root":
			cfg.RawRoot = *rawRoot
		case "derived-root":
			cfg.DerivedRoot = *derivedRoot
		case "feed-file":
			cfg.FeedFile = *feedFile
		}
	})
	if _, err := logging.Setup(os.Stderr, cfg.LogLevel, cfg.LogFormat, "lineup-report"); err != nil {
		fmt.Fprintf(os.Stderr, "logging: %v\n", err)
		os.Exit(1)
	}

	catalog, err := cfg.Catalog()
	must(err)

	raw := store.NewJSONStore(cfg.RawRoot)
	snap, err := feed.Load(raw, cfg.FeedFile)
	must(err)
	for _, is := range snap.Issues {
		slog.Warn("skipping snapshot record", "index", is.Index, "player_id", is.PlayerID, "reason", is.Reason)
	}

	rep := buildReport(snap.Players, catalog)
	rep.GeneratedAtUTC = time.Now().UTC().Format(time.RFC3339)
	rep.Source = raw.Path(cfg.FeedFile)
	rep.Skipped = len(snap.Issues)

	out := store.NewJSONStore(cfg.DerivedRoot)
	must(out.WriteJSON(*outPath, rep))
	slog.Info("wrote lineup report", "path", out.Path(*outPath), "managers", len(rep.Managers))
}

func must(err error) {
	if err != nil {
		slog.Error("lineup-report", "err", err)
		os.Exit(1)
	}
}

// buildReport walks managers in snapshot order with nothing marked for sale.
func buildReport(players []model.Player, catalog lineup.Catalog) Report {
	p := lineup.NewPlanner(players, catalog)
	rep := Report{Managers: make([]ManagerReport, 0)}
	for _, m := range p.Managers() {
		v := p.SwitchManager(m)
		mr := ManagerReport{
			Manager:    m,
			RosterSize: v.RosterSize,
			Tally:      v.Tally,
			Fieldable:  catalog.Fieldable(v.Tally),
		}
		for _, pl := range p.Roster().Players() {
			if pl.Position == model.PositionGoalkeeper {
				mr.Goalkeepers++
			}
			mr.MarketValue += pl.MarketValue
			mr.Turnover += pl.Turnover()
		}
		if mr.Fieldable == nil {
			mr.Fieldable = []lineup.Shape{}
		}
		rep.Managers = append(rep.Managers, mr)
	}
	return rep
}
