package core

import (
	"context"
	"strings"
	"testing"
)

func TestValidatePlan(t *testing.T) {
	cases := []struct {
		name    string
		steps   []PlanStep
		wantErr string
	}{
		{"valid diamond", []PlanStep{
			{ID: 0, Description: "a", Dependencies: []int{}},
			{ID: 1, Description: "b", Dependencies: []int{}},
			{ID: 2, Description: "c", Dependencies: []int{0, 1}},
		}, ""},
		{"empty", nil, "no steps"},
		{"duplicate id", []PlanStep{
			{ID: 0, Description: "a"},
			{ID: 0, Description: "b"},
		}, "duplicate step id"},
		{"self reference", []PlanStep{
			{ID: 0, Description: "a", Dependencies: []int{0}},
		}, "later or same"},
		{"forward reference", []PlanStep{
			{ID: 0, Description: "a", Dependencies: []int{1}},
			{ID: 1, Description: "b"},
		}, "later or same"},
		{"unknown dependency", []PlanStep{
			{ID: 0, Description: "a"},
			{ID: 1, Description: "b", Dependencies: []int{-1}},
		}, "unknown step"},
		{"gap in ids", []PlanStep{
			{ID: 0, Description: "a"},
			{ID: 2, Description: "b", Dependencies: []int{0}},
		}, "out of range"},
		{"ids not starting at zero", []PlanStep{
			{ID: 3, Description: "a"},
			{ID: 7, Description: "b", Dependencies: []int{3}},
		}, "out of range"},
		{"negative id", []PlanStep{
			{ID: -1, Description: "a"},
		}, "out of range"},
		{"missing description", []PlanStep{
			{ID: 0, Description: "  "},
		}, "no description"},
		{"too many steps", []PlanStep{
			{ID: 0, Description: "a"}, {ID: 1, Description: "b"}, {ID: 2, Description: "c"},
			{ID: 3, Description: "d"}, {ID: 4, Description: "e"},
		}, "limit is 4"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidatePlan(tc.steps, 4)
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestPlannerBuildSortsByID(t *testing.T) {
	gen := newStubGen(map[string][]string{
		"plan": {`[{"id": 1, "step": "Compare", "dependencies": [0]}, {"id": 0, "step": "Research", "dependencies": []}]`},
	}, "")
	steps := NewPlanner(gen, 4, nil, nil).Build(context.Background(), "q")
	if len(steps) != 2 || steps[0].ID != 0 || steps[1].ID != 1 {
		t.Fatalf("expected plan sorted by id, got %+v", steps)
	}
}

func TestPlannerBuildFailuresYieldEmptyPlan(t *testing.T) {
	for name, reply := range map[string]string{
		"unparseable": "I cannot help with that",
		"cycle":       `[{"id": 0, "step": "a", "dependencies": [1]}, {"id": 1, "step": "b", "dependencies": [0]}]`,
		"upstream":    replyError,
	} {
		t.Run(name, func(t *testing.T) {
			gen := newStubGen(map[string][]string{"plan": {reply}}, "")
			steps := NewPlanner(gen, 4, nil, nil).Build(context.Background(), "q")
			if steps == nil || len(steps) != 0 {
				t.Fatalf("expected empty non-nil plan, got %+v", steps)
			}
			if n := len(gen.calls("plan")); n != 1 {
				t.Fatalf("expected exactly one plan call (no retry), got %d", n)
			}
		})
	}
}

func TestPlanHint(t *testing.T) {
	hint := planHint([]PlanStep{{ID: 0, Description: "Research"}, {ID: 1, Description: "Compare"}})
	want := "**SUGGESTED PLAN:**\n1. Research\n2. Compare\n(You can follow this plan or adapt it based on new findings.)"
	if hint != want {
		t.Fatalf("unexpected hint:\n%s", hint)
	}
}
