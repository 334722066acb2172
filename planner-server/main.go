package main

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"golang.org/x/sync/errgroup"

	"github.com/aatrey56/lineup-planner/internal/config"
	"github.com/aatrey56/lineup-planner/internal/lineup"
	"github.com/aatrey56/lineup-planner/internal/logging"
	"github.com/aatrey56/lineup-planner/internal/metrics"
	"github.com/aatrey56/lineup-planner/internal/planstore"
	"github.com/aatrey56/lineup-planner/internal/session"
	"github.com/aatrey56/lineup-planner/internal/store"
)

type ServerConfig struct {
	RawRoot     string
	DerivedRoot string
	FeedFile    string
}

// app is the state shared by every tool handler.
type app struct {
	cfg      ServerConfig
	raw      *store.JSONStore
	derived  *store.JSONStore
	catalog  lineup.Catalog
	sessions *session.Registry
	plans    *planstore.Store
	metrics  *metrics.Metrics
}

func newApp(cfg ServerConfig, catalog lineup.Catalog, plans *planstore.Store, m *metrics.Metrics) *app {
	return &app{
		cfg:      cfg,
		raw:      store.NewJSONStore(cfg.RawRoot),
		derived:  store.NewJSONStore(cfg.DerivedRoot),
		catalog:  catalog,
		sessions: session.NewRegistry(),
		plans:    plans,
		metrics:  m,
	}
}

type toolInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func main() {
	def := config.Default()
	var (
		configPath  = flag.String("config", "", "optional YAML config file")
		addr        = flag.String("addr", def.Addr, "HTTP listen address")
		mcpPath     = flag.String("path", def.Path, "HTTP path for MCP endpoint")
		rawRoot     = flag.String("raw-root", def.RawRoot, "directory holding the taken-players snapshot")
		derivedRoot = flag.String("derived-root", def.DerivedRoot, "directory for exported plans")
		feedFile    = flag.String("feed-file", def.FeedFile, "snapshot file name below raw-root")
		plansDB     = flag.String("plans-db", def.PlansDB, "SQLite file for saved plans")
		requireAuth = flag.Bool("require-auth", def.RequireAuth, "require API key auth via LINEUP_MCP_API_KEY")
		authHeader  = flag.String("auth-header", def.AuthHeader, "HTTP header to read API key from")
		logLevel    = flag.String("log-level", def.LogLevel, "debug|info|warn|error")
		logFormat   = flag.String("log-format", def.LogFormat, "text|json")
		idleTTL     = flag.Duration("session-idle-ttl", def.SessionIdleTTL, "close sessions idle this long (0 = never)")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	// Flags given on the command line win over the file.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "addr":
			cfg.Addr = *addr
		case "path":
			cfg.Path = *mcpPath
		case "raw-root":
			cfg.RawRoot = *rawRoot
		case "derived-root":
			cfg.DerivedRoot = *derivedRoot
		case "feed-file":
			cfg.FeedFile = *feedFile
		case "plans-db":
			cfg.PlansDB = *plansDB
		case "require-auth":
			cfg.RequireAuth = *requireAuth
		case "auth-header":
			cfg.AuthHeader = *authHeader
		case "log-level":
			cfg.LogLevel = *logLevel
		case "log-format":
			cfg.LogFormat = *logFormat
		case "session-idle-ttl":
			cfg.SessionIdleTTL = *idleTTL
		}
	})
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	if _, err := logging.Setup(os.Stderr, cfg.LogLevel, cfg.LogFormat, "lineup-planner"); err != nil {
		fmt.Fprintf(os.Stderr, "logging: %v\n", err)
		os.Exit(1)
	}

	catalog, err := cfg.Catalog()
	if err != nil {
		fatal("formation catalog", err)
	}
	plans, err := planstore.Open(cfg.PlansDB)
	if err != nil {
		fatal("open plan store", err)
	}
	defer plans.Close()

	m := metrics.New()
	a := newApp(ServerConfig{
		RawRoot:     cfg.RawRoot,
		DerivedRoot: cfg.DerivedRoot,
		FeedFile:    cfg.FeedFile,
	}, catalog, plans, m)

	server := mcp.NewServer(
		&mcp.Implementation{
			Name:    "lineup-planner-mcp",
			Version: "0.1.0",
		},
		nil,
	)
	registry := a.registerTools(server)

	handler := mcp.NewStreamableHTTPHandler(func(r *http.Request) *mcp.Server {
		return server
	}, &mcp.StreamableHTTPOptions{JSONResponse: true})

	apiKey := strings.TrimSpace(os.Getenv("LINEUP_MCP_API_KEY"))
	if cfg.RequireAuth && apiKey == "" {
		fatal("startup", fmt.Errorf("LINEUP_MCP_API_KEY is required (set env var or run with --require-auth=false)"))
	}
	withAuth := authMiddleware(apiKey, cfg.AuthHeader)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", withAuth(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}))
	mux.HandleFunc("/tools", withAuth(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		b, _ := json.MarshalIndent(map[string]any{"tools": registry}, "", "  ")
		w.Write(b)
	}))
	mux.HandleFunc("/metrics", withAuth(m.Handler().ServeHTTP))
	mux.HandleFunc(cfg.Path, withAuth(handler.ServeHTTP))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{Addr: cfg.Addr, Handler: mux}
	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		slog.Info("MCP HTTP server listening", "addr", cfg.Addr, "path", cfg.Path, "feed", a.raw.Path(cfg.FeedFile))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	eg.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if cfg.SessionIdleTTL > 0 {
		eg.Go(func() error {
			a.pruneSessions(ctx, cfg.SessionIdleTTL)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		fatal("serve", err)
	}
	slog.Info("server stopped")
}

func fatal(msg string, err error) {
	slog.Error(msg, "err", err)
	os.Exit(1)
}

func authMiddleware(apiKey, header string) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if apiKey == "" {
				next(w, r)
				return
			}
			key := strings.TrimSpace(r.Header.Get(header))
			if key == "" {
				if authz := r.Header.Get("Authorization"); strings.HasPrefix(strings.ToLower(authz), "bearer ") {
					key = strings.TrimSpace(authz[7:])
				}
			}
			if subtle.ConstantTimeCompare([]byte(key), []byte(apiKey)) != 1 {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"error":"unauthorized"}`))
				return
			}
			next(w, r)
		}
	}
}

func (a *app) pruneSessions(ctx context.Context, ttl time.Duration) {
	every := ttl / 4
	if every < time.Second {
		every = time.Second
	}
	tick := time.NewTicker(every)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			if n := a.sessions.Prune(ttl); n > 0 {
				slog.InfoContext(ctx, "closed idle sessions", "count", n)
				a.metrics.SetSessions(a.sessions.Len())
			}
		}
	}
}

func (a *app) registerTools(server *mcp.Server) []toolInfo {
	registry := make([]toolInfo, 0, 16)

	addTool(a, server, &registry, &mcp.Tool{
		Name:        "planner_open",
		Description: "Open a lineup planning session over the current taken-players snapshot",
	}, func(ctx context.Context, args OpenArgs) (any, error) {
		return a.buildOpen(ctx, args)
	})

	addTool(a, server, &registry, &mcp.Tool{
		Name:        "planner_close",
		Description: "Close a planning session",
	}, func(ctx context.Context, args SessionArgs) (any, error) {
		return a.buildClose(args)
	})

	addTool(a, server, &registry, &mcp.Tool{
		Name:        "managers",
		Description: "List the managers in the snapshot and the active one",
	}, func(ctx context.Context, args SessionArgs) (any, error) {
		return a.buildManagers(args)
	})

	addTool(a, server, &registry, &mcp.Tool{
		Name:        "switch_manager",
		Description: "Make another manager active; clears the sale selection",
	}, func(ctx context.Context, args SwitchManagerArgs) (any, error) {
		return a.buildSwitchManager(ctx, args)
	})

	addTool(a, server, &registry, &mcp.Tool{
		Name:        "roster",
		Description: "Active manager's players with market value, turnover and sale flag",
	}, func(ctx context.Context, args SessionArgs) (any, error) {
		return a.buildRoster(args)
	})

	addTool(a, server, &registry, &mcp.Tool{
		Name:        "toggle_sale",
		Description: "Mark or unmark a player for sale and return the recomputed plan",
	}, func(ctx context.Context, args ToggleSaleArgs) (any, error) {
		return a.buildToggleSale(args)
	})

	addTool(a, server, &registry, &mcp.Tool{
		Name:        "clear_selection",
		Description: "Unmark every player",
	}, func(ctx context.Context, args SessionArgs) (any, error) {
		return a.buildClearSelection(args)
	})

	addTool(a, server, &registry, &mcp.Tool{
		Name:        "set_balance",
		Description: "Set the current cash balance (negative = debt)",
	}, func(ctx context.Context, args SetBalanceArgs) (any, error) {
		return a.buildSetBalance(args)
	})

	addTool(a, server, &registry, &mcp.Tool{
		Name:        "lineup_plan",
		Description: "Position tally, fieldable formations and projected balance after the marked sales",
	}, func(ctx context.Context, args SessionArgs) (any, error) {
		return a.buildLineupPlan(args)
	})

	addTool(a, server, &registry, &mcp.Tool{
		Name:        "plan_save",
		Description: "Save the session's manager, balance and selection under a name",
	}, func(ctx context.Context, args PlanArgs) (any, error) {
		return a.buildPlanSave(ctx, args)
	})

	addTool(a, server, &registry, &mcp.Tool{
		Name:        "plan_load",
		Description: "Restore a saved plan into the session",
	}, func(ctx context.Context, args PlanArgs) (any, error) {
		return a.buildPlanLoad(ctx, args)
	})

	addTool(a, server, &registry, &mcp.Tool{
		Name:        "plan_list",
		Description: "List saved plans, optionally for one manager",
	}, func(ctx context.Context, args PlanListArgs) (any, error) {
		return a.buildPlanList(ctx, args)
	})

	addTool(a, server, &registry, &mcp.Tool{
		Name:        "plan_delete",
		Description: "Delete a saved plan",
	}, func(ctx context.Context, args PlanArgs) (any, error) {
		return a.buildPlanDelete(ctx, args)
	})

	addTool(a, server, &registry, &mcp.Tool{
		Name:        "plan_export",
		Description: "Write the session's current plan as JSON under the derived root",
	}, func(ctx context.Context, args SessionArgs) (any, error) {
		return a.buildPlanExport(args)
	})

	return registry
}

// addTool registers build as an MCP tool. Build errors become error results,
// successful outputs are returned as indented JSON text.
func addTool[T any](a *app, server *mcp.Server, registry *[]toolInfo, tool *mcp.Tool, build func(context.Context, T) (any, error)) {
	*registry = append(*registry, toolInfo{Name: tool.Name, Description: tool.Description})
	mcp.AddTool(server, tool, func(ctx context.Context, req *mcp.CallToolRequest, args T) (*mcp.CallToolResult, any, error) {
		out, err := build(ctx, args)
		a.metrics.ObserveTool(tool.Name, err)
		if err != nil {
			slog.WarnContext(ctx, "tool failed", "tool", tool.Name, "err", err)
			return toolError(err), nil, nil
		}
		b, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return toolError(err), nil, nil
		}
		return toolJSONBytes(b), nil, nil
	})
}

func toolJSONBytes(res []byte) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(res)},
		},
	}
}

func toolError(err error) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{
			&mcp.TextContent{Text: fmt.Sprintf("error: %v", err)},
		},
	}
}
