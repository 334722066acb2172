// Command feed-inventory scans the taken-players snapshot and writes the set
// of JSON paths and value types seen across its records, together with the
// records the planner would skip.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/aatrey56/lineup-planner/internal/config"
	"github.com/aatrey56/lineup-planner/internal/feed"
	"github.com/aatrey56/lineup-planner/internal/logging"
	"github.com/aatrey56/lineup-planner/internal/store"
)

type typeSet map[string]struct{}

type schemaMap map[string]typeSet

type Inventory struct {
	GeneratedAtUTC string       `json:"generated_at_utc"`
	Source         string       `json:"source"`
	Records        int          `json:"records"`
	Accepted       int          `json:"accepted"`
	Fields         []Field      `json:"fields"`
	Skipped        []feed.Issue `json:"skipped"`
}

type Field struct {
	Path  string   `json:"path"`
	Seen  int      `json:"seen"`
	Types []string `json:"types"`
}

func main() {
	def := config.Default()
	var (
		configPath = flag.String("config", "", "optional YAML config file")
		rawRoot    = flag.String("raw-root", def.RawRoot, "directory holding the snapshot")
		feedFile   = flag.String("feed-file", def.FeedFile, "snapshot file name below raw-root")
		outPath    = flag.String("out", "feed_inventory.json", "output path below derived-root")
		derived    = flag.String("derived-root", def.DerivedRoot, "directory for the report")
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
		case "feed-file":
			cfg.FeedFile = *feedFile
		case "derived-root":
			cfg.DerivedRoot = *derived
		}
	})
	if _, err := logging.Setup(os.Stderr, cfg.LogLevel, cfg.LogFormat, "feed-inventory"); err != nil {
		fmt.Fprintf(os.Stderr, "logging: %v\n", err)
		os.Exit(1)
	}

	raw := store.NewJSONStore(cfg.RawRoot)
	body, err := raw.ReadRaw(cfg.FeedFile)
	if err != nil {
		slog.Error("read snapshot", "err", err)
		os.Exit(1)
	}
	inv, err := buildInventory(body)
	if err != nil {
		slog.Error("inventory", "err", err)
		os.Exit(1)
	}
	inv.GeneratedAtUTC = time.Now().UTC().Format(time.RFC3339)
	inv.Source = raw.Path(cfg.FeedFile)

	out := store.NewJSONStore(cfg.DerivedRoot)
	if err := out.WriteJSON(*outPath, inv); err != nil {
		slog.Error("write inventory", "err", err)
		os.Exit(1)
	}
	slog.Info("wrote inventory", "path", out.Path(*outPath), "records", inv.Records, "skipped", len(inv.Skipped))
}

// buildInventory walks every record of a snapshot document. Paths are rooted
// at "$" for the record itself.
func buildInventory(body []byte) (Inventory, error) {
	var records []any
	if err := json.Unmarshal(body, &records); err != nil {
		return Inventory{}, fmt.Errorf("%w: %v", feed.ErrMalformed, err)
	}
	snap, err := feed.Parse(body)
	if err != nil {
		return Inventory{}, err
	}

	schema := make(schemaMap)
	seen := make(map[string]int)
	for _, r := range records {
		walkSchema(r, "$", schema, seen)
	}
	skipped := snap.Issues
	if skipped == nil {
		skipped = []feed.Issue{}
	}
	return Inventory{
		Records:  len(records),
		Accepted: len(snap.Players),
		Fields:   schemaToFields(schema, seen),
		Skipped:  skipped,
	}, nil
}

func walkSchema(v any, path string, schema schemaMap, seen map[string]int) {
	seen[path]++
	switch x := v.(type) {
	case map[string]any:
		addType(schema, path, "object")
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			walkSchema(x[k], path+"."+k, schema, seen)
		}
	case []any:
		addType(schema, path, "array")
		for _, el := range x {
			walkSchema(el, path+"[]", schema, seen)
		}
	case string:
		addType(schema, path, "string")
	case bool:
		addType(schema, path, "bool")
	case float64:
		addType(schema, path, "number")
	case nil:
		addType(schema, path, "null")
	default:
		addType(schema, path, fmt.Sprintf("%T", v))
	}
}

func addType(schema schemaMap, path, typ string) {
	set, ok := schema[path]
	if !ok {
		set = make(typeSet)
		schema[path] = set
	}
	set[typ] = struct{}{}
}

func schemaToFields(schema schemaMap, seen map[string]int) []Field {
	paths := make([]string, 0, len(schema))
	for p := range schema {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	fields := make([]Field, 0, len(paths))
	for _, p := range paths {
		types := make([]string, 0, len(schema[p]))
		for t := range schema[p] {
			types = append(types, t)
		}
		sort.Strings(types)
		fields = append(fields, Field{Path: p, Seen: seen[p], Types: types})
	}
	return fields
}
