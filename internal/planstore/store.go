// Package planstore persists named lineup plans in SQLite.
package planstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"github.com/aatrey56/lineup-planner/internal/model"
)

var ErrNotFound = errors.New("planstore: plan not found")

// Plan is a saved planning state: which manager, what balance, and which
// players were marked for sale.
type Plan struct {
	Name      string           `json:"name"`
	Manager   string           `json:"manager"`
	Balance   int64            `json:"balance"`
	Selection []model.PlayerID `json:"selection"`
	SavedAt   time.Time        `json:"saved_at"`
}

type Store struct {
	db  *sql.DB
	clk func() time.Time
}

// Open creates the database file and schema if needed.
func Open(path string) (*Store, error) {
	if path == "" {
		path = "plans.db"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One writer at a time; concurrent tool calls queue on the pool.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(`PRAGMA busy_timeout = 5000`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS plans (
		name TEXT PRIMARY KEY,
		manager TEXT NOT NULL,
		balance INTEGER NOT NULL,
		selection BLOB NOT NULL,
		saved_at TEXT NOT NULL
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create plans table: %w", err)
	}
	return &Store{db: db, clk: time.Now}, nil
}

// WithClock swaps the time source, for tests.
func (s *Store) WithClock(clock func() time.Time) *Store {
	if clock != nil {
		s.clk = clock
	}
	return s
}

func (s *Store) Close() error { return s.db.Close() }

// Save inserts or replaces the plan with the same name. SavedAt is set by
// the store.
func (s *Store) Save(ctx context.Context, p Plan) (Plan, error) {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return Plan{}, errors.New("plan name is required")
	}
	if p.Selection == nil {
		p.Selection = []model.PlayerID{}
	}
	sel, err := json.Marshal(p.Selection)
	if err != nil {
		return Plan{}, fmt.Errorf("encode selection: %w", err)
	}
	p.SavedAt = s.clk().UTC().Truncate(time.Second)
	_, err = s.db.ExecContext(ctx, `INSERT INTO plans(name, manager, balance, selection, saved_at)
		VALUES(?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			manager = excluded.manager,
			balance = excluded.balance,
			selection = excluded.selection,
			saved_at = excluded.saved_at`,
		p.Name, p.Manager, p.Balance, sel, p.SavedAt.Format(time.RFC3339))
	if err != nil {
		return Plan{}, fmt.Errorf("save plan %s: %w", p.Name, err)
	}
	return p, nil
}

func (s *Store) Load(ctx context.Context, name string) (Plan, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT name, manager, balance, selection, saved_at FROM plans WHERE name = ?`,
		strings.TrimSpace(name))
	p, err := scanPlan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Plan{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return Plan{}, fmt.Errorf("load plan %s: %w", name, err)
	}
	return p, nil
}

// List returns every plan ordered by name. An empty manager lists all.
func (s *Store) List(ctx context.Context, manager string) ([]Plan, error) {
	q := `SELECT name, manager, balance, selection, saved_at FROM plans`
	var args []any
	if manager != "" {
		q += ` WHERE manager = ?`
		args = append(args, manager)
	}
	q += ` ORDER BY name`
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := make([]Plan, 0)
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) Delete(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM plans WHERE name = ?`, strings.TrimSpace(name))
	if err != nil {
		return fmt.Errorf("delete plan %s: %w", name, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPlan(sc scanner) (Plan, error) {
	var (
		p       Plan
		sel     []byte
		savedAt string
	)
	if err := sc.Scan(&p.Name, &p.Manager, &p.Balance, &sel, &savedAt); err != nil {
		return Plan{}, err
	}
	if err := json.Unmarshal(sel, &p.Selection); err != nil {
		return Plan{}, fmt.Errorf("decode selection: %w", err)
	}
	t, err := time.Parse(time.RFC3339, savedAt)
	if err != nil {
		return Plan{}, fmt.Errorf("decode saved_at: %w", err)
	}
	p.SavedAt = t
	return p, nil
}
