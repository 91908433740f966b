package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestCheckPlan(t *testing.T) {
	var out bytes.Buffer
	reply := "```json\n[{\"id\": 0, \"step\": \"Research\", \"dependencies\": []}, {\"id\": 1, \"step\": \"Compare\", \"dependencies\": [0]}]\n```"
	if err := checkPlan(strings.NewReader(reply), &out, 4); err != nil {
		t.Fatalf("checkPlan: %v", err)
	}
	if out.String() != "0. Research []\n1. Compare [0]\n" {
		t.Fatalf("unexpected output %q", out.String())
	}
}

func TestCheckPlanRejects(t *testing.T) {
	cases := map[string]string{
		"prose": "no plan here",
		"cycle": `[{"id": 0, "step": "a", "dependencies": [1]}, {"id": 1, "step": "b", "dependencies": [0]}]`,
		"gap":   `[{"id": 1, "step": "a", "dependencies": []}, {"id": 2, "step": "b", "dependencies": [1]}]`,
	}
	for name, reply := range cases {
		t.Run(name, func(t *testing.T) {
			if err := checkPlan(strings.NewReader(reply), &bytes.Buffer{}, 4); err == nil {
				t.Fatalf("expected %s to be rejected", name)
			}
		})
	}
}
