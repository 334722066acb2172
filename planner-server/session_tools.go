package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aatrey56/lineup-planner/internal/feed"
	"github.com/aatrey56/lineup-planner/internal/lineup"
	"github.com/aatrey56/lineup-planner/internal/session"
)

// SessionArgs identifies a planning session.
type SessionArgs struct {
	SessionID string `json:"session_id" jsonschema:"Planner session id from planner_open (required)"`
}

// OpenArgs are the input arguments for the planner_open tool.
type OpenArgs struct {
	Manager *string `json:"manager,omitempty" jsonschema:"Manager to start with (default: first in snapshot)"`
	Balance *int64  `json:"balance,omitempty" jsonschema:"Starting cash balance, negative for debt (default 0)"`
}

// OpenOutput is the output of the planner_open tool.
type OpenOutput struct {
	SessionID string       `json:"session_id"`
	Source    string       `json:"source"`
	Managers  []string     `json:"managers"`
	Skipped   []feed.Issue `json:"skipped_records"`
	View      lineup.View  `json:"plan"`
}

// SwitchManagerArgs are the input arguments for the switch_manager tool.
type SwitchManagerArgs struct {
	SessionID string `json:"session_id" jsonschema:"Planner session id (required)"`
	Manager   string `json:"manager" jsonschema:"Manager to make active (required)"`
}

// ManagersOutput is the output of the managers tool.
type ManagersOutput struct {
	Active   string   `json:"active"`
	Managers []string `json:"managers"`
}

type CloseOutput struct {
	SessionID string `json:"session_id"`
	Closed    bool   `json:"closed"`
}

func (a *app) buildOpen(ctx context.Context, args OpenArgs) (OpenOutput, error) {
	snap, err := feed.Load(a.raw, a.cfg.FeedFile)
	if err != nil {
		return OpenOutput{}, fmt.Errorf("taken players snapshot not available: %w", err)
	}
	for _, is := range snap.Issues {
		slog.WarnContext(ctx, "skipping snapshot record", "index", is.Index, "player_id", is.PlayerID, "reason", is.Reason)
	}
	a.metrics.AddFeedSkips(len(snap.Issues))

	p := lineup.NewPlanner(snap.Players, a.catalog)
	if args.Manager != nil {
		name := strings.TrimSpace(*args.Manager)
		if !p.HasManager(name) {
			slog.WarnContext(ctx, "manager not in snapshot", "manager", name)
		}
		p.SwitchManager(name)
	}
	if args.Balance != nil {
		p.SetBalance(*args.Balance)
	}

	s := a.sessions.Open(p, a.cfg.FeedFile)
	a.metrics.SetSessions(a.sessions.Len())
	slog.InfoContext(ctx, "session opened", "session_id", s.ID, "players", len(snap.Players), "manager", p.Manager())

	issues := snap.Issues
	if issues == nil {
		issues = []feed.Issue{}
	}
	return OpenOutput{
		SessionID: s.ID,
		Source:    s.Source,
		Managers:  p.Managers(),
		Skipped:   issues,
		View:      p.View(),
	}, nil
}

func (a *app) buildClose(args SessionArgs) (CloseOutput, error) {
	if strings.TrimSpace(args.SessionID) == "" {
		return CloseOutput{}, fmt.Errorf("session_id is required")
	}
	if err := a.sessions.Close(args.SessionID); err != nil {
		return CloseOutput{}, err
	}
	a.metrics.SetSessions(a.sessions.Len())
	return CloseOutput{SessionID: args.SessionID, Closed: true}, nil
}

func (a *app) buildManagers(args SessionArgs) (ManagersOutput, error) {
	var out ManagersOutput
	err := a.withPlanner(args.SessionID, func(p *lineup.Planner) error {
		out = ManagersOutput{Active: p.Manager(), Managers: p.Managers()}
		return nil
	})
	return out, err
}

func (a *app) buildSwitchManager(ctx context.Context, args SwitchManagerArgs) (lineup.View, error) {
	name := strings.TrimSpace(args.Manager)
	if name == "" {
		return lineup.View{}, fmt.Errorf("manager is required")
	}
	var v lineup.View
	err := a.withPlanner(args.SessionID, func(p *lineup.Planner) error {
		if !p.HasManager(name) {
			slog.WarnContext(ctx, "manager not in snapshot", "manager", name)
		}
		v = p.SwitchManager(name)
		return nil
	})
	return v, err
}

// withPlanner resolves the session and runs fn under its lock.
func (a *app) withPlanner(sessionID string, fn func(p *lineup.Planner) error) error {
	_, err := a.withSession(sessionID, fn)
	return err
}

// withSession is withPlanner for tools that also need the session itself.
func (a *app) withSession(sessionID string, fn func(p *lineup.Planner) error) (*session.Session, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, fmt.Errorf("session_id is required")
	}
	s, err := a.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}
	return s, s.Do(fn)
}
