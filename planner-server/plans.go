package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/aatrey56/lineup-planner/internal/lineup"
	"github.com/aatrey56/lineup-planner/internal/model"
	"github.com/aatrey56/lineup-planner/internal/planstore"
)

// PlanArgs are the input arguments for plan_save, plan_load and plan_delete.
type PlanArgs struct {
	SessionID string `json:"session_id,omitempty" jsonschema:"Planner session id (required for save and load)"`
	Name      string `json:"name" jsonschema:"Plan name (required)"`
}

// PlanListArgs are the input arguments for the plan_list tool.
type PlanListArgs struct {
	Manager string `json:"manager,omitempty" jsonschema:"Only list plans for this manager"`
}

// PlanLoadOutput is the output of the plan_load tool.
type PlanLoadOutput struct {
	Plan    planstore.Plan   `json:"plan"`
	Skipped []model.PlayerID `json:"skipped_players"`
	View    lineup.View      `json:"view"`
}

type PlanListOutput struct {
	Plans []planstore.Plan `json:"plans"`
}

type PlanDeleteOutput struct {
	Name    string `json:"name"`
	Deleted bool   `json:"deleted"`
}

// PlanExportOutput is the output of the plan_export tool.
type PlanExportOutput struct {
	Path      string      `json:"path"`
	Overwrote bool        `json:"overwrote"`
	View      lineup.View `json:"view"`
}

type exportedPlan struct {
	SessionID  string      `json:"session_id"`
	Source     string      `json:"source"`
	ExportedAt time.Time   `json:"exported_at"`
	View       lineup.View `json:"view"`
}

func (a *app) buildPlanSave(ctx context.Context, args PlanArgs) (planstore.Plan, error) {
	name := strings.TrimSpace(args.Name)
	if name == "" {
		return planstore.Plan{}, fmt.Errorf("name is required")
	}
	var plan planstore.Plan
	err := a.withPlanner(args.SessionID, func(p *lineup.Planner) error {
		v := p.View()
		plan = planstore.Plan{
			Name:      name,
			Manager:   v.Manager,
			Balance:   v.Balance.Current,
			Selection: v.Selected,
		}
		return nil
	})
	if err != nil {
		return planstore.Plan{}, err
	}
	saved, err := a.plans.Save(ctx, plan)
	if err != nil {
		return planstore.Plan{}, err
	}
	slog.InfoContext(ctx, "plan saved", "name", saved.Name, "manager", saved.Manager, "selected", len(saved.Selection))
	return saved, nil
}

// buildPlanLoad switches to the plan's manager, which clears the selection,
// then reapplies the balance and whichever saved players are still owned.
func (a *app) buildPlanLoad(ctx context.Context, args PlanArgs) (PlanLoadOutput, error) {
	name := strings.TrimSpace(args.Name)
	if name == "" {
		return PlanLoadOutput{}, fmt.Errorf("name is required")
	}
	if strings.TrimSpace(args.SessionID) == "" {
		return PlanLoadOutput{}, fmt.Errorf("session_id is required")
	}
	plan, err := a.plans.Load(ctx, name)
	if err != nil {
		return PlanLoadOutput{}, err
	}
	var out PlanLoadOutput
	err = a.withPlanner(args.SessionID, func(p *lineup.Planner) error {
		p.SwitchManager(plan.Manager)
		skipped := p.SelectAll(plan.Selection)
		v := p.SetBalance(plan.Balance)
		if skipped == nil {
			skipped = []model.PlayerID{}
		}
		out = PlanLoadOutput{Plan: plan, Skipped: skipped, View: v}
		return nil
	})
	if err != nil {
		return PlanLoadOutput{}, err
	}
	if len(out.Skipped) > 0 {
		slog.WarnContext(ctx, "saved players no longer on roster", "plan", plan.Name, "count", len(out.Skipped))
	}
	return out, nil
}

func (a *app) buildPlanList(ctx context.Context, args PlanListArgs) (PlanListOutput, error) {
	plans, err := a.plans.List(ctx, strings.TrimSpace(args.Manager))
	if err != nil {
		return PlanListOutput{}, err
	}
	return PlanListOutput{Plans: plans}, nil
}

func (a *app) buildPlanDelete(ctx context.Context, args PlanArgs) (PlanDeleteOutput, error) {
	name := strings.TrimSpace(args.Name)
	if name == "" {
		return PlanDeleteOutput{}, fmt.Errorf("name is required")
	}
	if err := a.plans.Delete(ctx, name); err != nil {
		return PlanDeleteOutput{}, err
	}
	return PlanDeleteOutput{Name: name, Deleted: true}, nil
}

func (a *app) buildPlanExport(args SessionArgs) (PlanExportOutput, error) {
	var v lineup.View
	s, err := a.withSession(args.SessionID, func(p *lineup.Planner) error {
		v = p.View()
		return nil
	})
	if err != nil {
		return PlanExportOutput{}, err
	}
	rel := filepath.Join("plans", s.ID+".json")
	overwrote := a.derived.Exists(rel)
	doc := exportedPlan{
		SessionID:  s.ID,
		Source:     s.Source,
		ExportedAt: time.Now().UTC().Truncate(time.Second),
		View:       v,
	}
	if err := a.derived.WriteJSON(rel, doc); err != nil {
		return PlanExportOutput{}, fmt.Errorf("export plan: %w", err)
	}
	return PlanExportOutput{Path: a.derived.Path(rel), Overwrote: overwrote, View: v}, nil
}
