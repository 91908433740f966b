package core

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mohammad-safakhou/axiom/internal/agent/telemetry"
	"github.com/mohammad-safakhou/axiom/provider"
)

// ErrEmptyPlan is returned by strategies that cannot run without a plan.
var ErrEmptyPlan = errors.New("failed to generate a research plan")

// Planner decomposes a query into dependent research steps
type Planner struct {
	gen       provider.Generator
	maxSteps  int
	telemetry *telemetry.Telemetry
	logger    *zap.Logger
}

// NewPlanner creates a new planner instance
func NewPlanner(gen provider.Generator, maxSteps int, tel *telemetry.Telemetry, logger *zap.Logger) *Planner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxSteps <= 0 {
		maxSteps = 4
	}
	return &Planner{gen: gen, maxSteps: maxSteps, telemetry: tel, logger: logger.Named("planner")}
}

// Build makes one generation call and returns the validated plan sorted by id. Any
// failure yields an empty plan; callers decide whether that is fatal.
func (p *Planner) Build(ctx context.Context, query string) []PlanStep {
	start := time.Now()
	resp, err := p.gen.Complete(ctx, provider.Request{
		Tier:     provider.Fast,
		Messages: provider.SystemAndUser("", planPrompt(query, p.maxSteps)),
	})
	if err != nil {
		p.logger.Warn("plan generation failed", zap.Error(err))
		return []PlanStep{}
	}

	parsed := ParsePlan(resp)
	if !parsed.OK {
		p.telemetry.RecordParseFailure("plan")
		p.logger.Warn("plan response unparseable", zap.Int("bytes", len(resp)))
		return []PlanStep{}
	}
	if err := ValidatePlan(parsed.Value, p.maxSteps); err != nil {
		p.telemetry.RecordParseFailure("plan")
		p.logger.Warn("plan rejected", zap.Error(err))
		return []PlanStep{}
	}

	steps := append([]PlanStep(nil), parsed.Value...)
	sort.SliceStable(steps, func(i, j int) bool { return steps[i].ID < steps[j].ID })
	p.logger.Debug("plan built", zap.Int("steps", len(steps)), zap.Duration("took", time.Since(start)))
	return steps
}

// ValidatePlan checks the structural rules of a plan: unique ids numbered 0..n-1, non-empty
// descriptions and dependencies that name existing, strictly smaller ids. The last rule rules out self
// references and cycles.
func ValidatePlan(steps []PlanStep, maxSteps int) error {
	if len(steps) == 0 {
		return errors.New("plan has no steps")
	}
	if maxSteps > 0 && len(steps) > maxSteps {
		return fmt.Errorf("plan has %d steps, limit is %d", len(steps), maxSteps)
	}
	ids := make(map[int]bool, len(steps))
	for _, s := range steps {
		if ids[s.ID] {
			return fmt.Errorf("duplicate step id %d", s.ID)
		}
		if s.ID < 0 || s.ID >= len(steps) {
			return fmt.Errorf("step id %d out of range, ids must run from 0 to %d", s.ID, len(steps)-1)
		}
		if strings.TrimSpace(s.Description) == "" {
			return fmt.Errorf("step %d has no description", s.ID)
		}
		ids[s.ID] = true
	}
	for _, s := range steps {
		seen := make(map[int]bool, len(s.Dependencies))
		for _, dep := range s.Dependencies {
			if dep >= s.ID {
				return fmt.Errorf("step %d depends on later or same step %d", s.ID, dep)
			}
			if !ids[dep] {
				return fmt.Errorf("step %d depends on unknown step %d", s.ID, dep)
			}
			if seen[dep] {
				return fmt.Errorf("step %d lists dependency %d twice", s.ID, dep)
			}
			seen[dep] = true
		}
	}
	return nil
}

// planLines renders a plan for the plan event.
func planLines(steps []PlanStep) []string {
	out := make([]string, 0, len(steps))
	for _, s := range steps {
		out = append(out, s.Description)
	}
	return out
}

// planHint renders a plan as the suggestion given to the autonomous loop.
func planHint(steps []PlanStep) string {
	var b strings.Builder
	b.WriteString("**SUGGESTED PLAN:**\n")
	for _, s := range steps {
		fmt.Fprintf(&b, "%d. %s\n", s.ID+1, s.Description)
	}
	b.WriteString("(You can follow this plan or adapt it based on new findings.)")
	return b.String()
}
