package main

import (
	"fmt"
	"io"

	"turnkeeper/internal/app"
	"turnkeeper/internal/scenario"

	"github.com/spf13/cobra"
)

func newReplayCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "replay <scenario.yaml>",
		Short: "Run a scripted encounter and print every step",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := scenario.Load(args[0])
			if err != nil {
				return err
			}
			h, err := s.Build(cmd.Context(), app.NewService(c.cfg, nil))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if err := s.Run(cmd.Context(), h, func(r scenario.Result) { printStep(out, r) }); err != nil {
				return err
			}
			c.logger.Info("replayed %d steps of %s", len(s.Steps), s.Session)
			return nil
		},
	}
}

func printStep(w io.Writer, r scenario.Result) {
	acting := r.Acting
	if acting == "" {
		acting = "-"
	}
	fmt.Fprintf(w, "%2d %-18s round=%d phase=%-7s acting=%s\n", r.Index, r.Op, r.Round, r.Phase, acting)
	if r.Err != nil {
		fmt.Fprintf(w, "   error: %v\n", r.Err)
	}
	for _, ev := range r.Events {
		fmt.Fprintf(w, "   %s\n", describeEvent(ev))
	}
}

func describeEvent(ev app.Event) string {
	switch p := ev.Payload.(type) {
	case app.RoundStartedPayload:
		return fmt.Sprintf("round %d started", p.Round)
	case app.PhaseChangedPayload:
		return fmt.Sprintf("phase -> %s", p.Phase)
	case app.ActorChangedPayload:
		return fmt.Sprintf("actor -> %s", p.DisplayName)
	case app.OrderChangedPayload:
		s := "order:"
		for i, o := range p.Order {
			marker := " "
			if i == p.TurnIndex {
				marker = ">"
			}
			s += fmt.Sprintf(" %s%s(%d)", marker, o.DisplayName, o.Initiative)
		}
		return s
	case app.CombatEndedPayload:
		return fmt.Sprintf("combat ended in round %d", p.Round)
	}
	return string(ev.Kind)
}
