package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	core "github.com/mohammad-safakhou/axiom/internal/agent/core"
	"github.com/mohammad-safakhou/axiom/provider"
	"github.com/mohammad-safakhou/axiom/tools/web_search/models"
)

func askCMD(cfgPath *string) *cobra.Command {
	var (
		mode    core.ModeFlags
		focus   string
		model   string
		raw     bool
		persist bool
	)
	var ask = &cobra.Command{
		Use:   "ask [query]",
		Short: "Run one research session and print its events",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := buildApp(ctx, *cfgPath, persist)
			if err != nil {
				return err
			}
			defer a.close(context.Background())

			mode.FocusMode = models.FocusMode(strings.ToLower(strings.TrimSpace(focus)))
			req := core.Request{
				Query:   strings.Join(args, " "),
				Mode:    mode,
				Model:   provider.ParseTier(model),
				Persist: &persist,
				UserID:  "cli",
			}
			var sink core.Sink = &textPrinter{w: cmd.OutOrStdout()}
			if raw {
				sink = core.SinkFunc(func(ev core.Event) error { return core.WriteEvent(cmd.OutOrStdout(), ev) })
			}
			return a.orch.Run(ctx, req, sink)
		},
	}
	ask.Flags().BoolVar(&mode.Expert, "expert", false, "plan the research and execute it step by step")
	ask.Flags().BoolVar(&mode.Agentic, "agentic", false, "let the agent search and read autonomously")
	ask.Flags().BoolVar(&mode.Deep, "deep", false, "read the top pages and answer from their passages")
	ask.Flags().StringVar(&focus, "focus", "web", "focus mode: web, academic, social, video, writing")
	ask.Flags().StringVar(&model, "model", "fast", "answer model tier for basic mode: fast, powerful, hyper")
	ask.Flags().BoolVar(&raw, "raw", false, "print wire-format events instead of text")
	ask.Flags().BoolVar(&persist, "persist", false, "save the exchange when postgres is configured")
	ask.MarkFlagsMutuallyExclusive("expert", "agentic", "deep")

	return ask
}

// textPrinter renders a session for a terminal: the answer as it streams, then sources and
// follow-up questions.
type textPrinter struct {
	w       io.Writer
	sources []core.SearchResult
}

func (p *textPrinter) Send(ev core.Event) error {
	var err error
	switch d := ev.Data.(type) {
	case core.PlanData:
		_, err = fmt.Fprintf(p.w, "Plan:\n  %s\n\n", strings.Join(d.Steps, "\n  "))
	case core.StepQueriesData:
		_, err = fmt.Fprintf(p.w, "[step %d] %s\n", d.StepNumber, strings.Join(d.Queries, " | "))
	case core.AgentActionData:
		_, err = fmt.Fprintf(p.w, "[agent %d] %s %s%s\n", d.Step, d.Action.Kind, d.Action.Query, d.Action.URL)
	case core.SearchResultsData:
		p.sources = d.Results
	case core.TextChunkData:
		_, err = io.WriteString(p.w, d.Text)
	case core.FinalResponseData:
		_, err = io.WriteString(p.w, "\n")
		if err == nil && len(p.sources) > 0 {
			_, err = io.WriteString(p.w, "\nSources:\n")
			for i, s := range p.sources {
				if err != nil {
					break
				}
				_, err = fmt.Fprintf(p.w, "  [%d] %s - %s\n", i+1, s.Title, s.URL)
			}
		}
	case core.RelatedQueriesData:
		if len(d.RelatedQueries) > 0 {
			_, err = fmt.Fprintf(p.w, "\nRelated:\n  %s\n", strings.Join(d.RelatedQueries, "\n  "))
		}
	case core.ErrorData:
		_, err = fmt.Fprintf(p.w, "\nerror: %s\n", d.Message)
	case core.EndData:
		if d.ThreadID != core.NotPersisted {
			_, err = fmt.Fprintf(p.w, "\nsaved to thread %d\n", d.ThreadID)
		}
	}
	return err
}
