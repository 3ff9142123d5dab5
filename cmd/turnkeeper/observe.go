package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"turnkeeper/internal/app"
	"turnkeeper/internal/ports/natsbus"
	"turnkeeper/internal/relay"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"
)

var errQuit = errors.New("quit")

// command is one parsed line of observer input.
type command struct {
	op   string
	args map[string]any
}

// parseCommand maps an input line to an operation. Blank lines yield ok=false.
func parseCommand(line string) (command, bool, error) {
	fields := strings.Fields(strings.ToLower(line))
	if len(fields) == 0 {
		return command{}, false, nil
	}
	switch fields[0] {
	case "end", "delay", "cancel":
		return command{op: app.OpAdvanceTurn, args: map[string]any{"decision": fields[0]}}, true, nil
	case "begin":
		return command{op: app.OpBeginMainLoop}, true, nil
	case "recompute":
		return command{op: app.OpRecomputeOrder}, true, nil
	case "quit", "exit":
		return command{}, false, errQuit
	}
	return command{}, false, fmt.Errorf("%w: %q", app.ErrUnknownOperation, fields[0])
}

func printProjection(w io.Writer, p *relay.Projection) {
	if p.Ended {
		fmt.Fprintf(w, "[%s] combat ended in round %d\n", p.SessionID, p.Round)
		return
	}
	acting := p.ActingName
	if acting == "" {
		acting = "-"
	}
	fmt.Fprintf(w, "[%s] round %d %s acting=%s", p.SessionID, p.Round, p.Phase, acting)
	if p.Suspension != "" {
		fmt.Fprintf(w, " waiting=%s", p.Suspension)
	}
	fmt.Fprintln(w)
	for i, o := range p.Order {
		marker := " "
		if i == p.TurnIndex {
			marker = ">"
		}
		fmt.Fprintf(w, "  %s %-16s %3d\n", marker, o.DisplayName, o.Initiative)
	}
}

func newObserveCmd(c *cli) *cobra.Command {
	var sessionID string

	cmd := &cobra.Command{
		Use:   "observe",
		Short: "Follow a hosted session and relay decisions read from stdin",
		Long: `observe prints the host's turn order as it changes. Type end, delay or
cancel to resolve the current turn, begin to start the main loop, recompute
to request a fresh order, quit to leave.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			token := c.env.RelayToken
			if token == "" && c.env.RelaySecret != "" {
				tokens := app.NewRelayTokenService(c.env.RelaySecret, c.env.RelayIssuer, clockwork.NewRealClock())
				issued, err := tokens.Issue(c.env.UserID, sessionID)
				if err != nil {
					return err
				}
				token = issued
			}

			bus, err := natsbus.Connect(natsbus.Config{
				URL:           c.env.NATSURL,
				SubjectPrefix: c.env.SubjectPrefix,
				MaxReconnects: natsbus.DefaultConfig().MaxReconnects,
				ReconnectWait: natsbus.DefaultConfig().ReconnectWait,
			}, c.logger)
			if err != nil {
				return err
			}
			defer bus.Close()

			r := relay.New(relay.Options{
				Role:      relay.RoleObserver,
				SessionID: sessionID,
				Origin:    c.env.UserID,
				Token:     token,
				Transport: bus,
				Logger:    c.logger,
			})

			notes := make(chan relay.Notification, 64)
			sub, err := bus.SubscribeNotifications(sessionID, func(n relay.Notification) {
				select {
				case notes <- n:
				default:
					c.logger.Warn("notification queue full, dropping %s", n.Type)
				}
			})
			if err != nil {
				return err
			}
			defer sub.Unsubscribe()

			lines := make(chan string)
			go func() {
				defer close(lines)
				scanner := bufio.NewScanner(cmd.InOrStdin())
				for scanner.Scan() {
					select {
					case lines <- scanner.Text():
					case <-ctx.Done():
						return
					}
				}
			}()

			out := cmd.OutOrStdout()
			view := relay.NewProjection(sessionID)
			c.logger.Info("observing session %s as %q", sessionID, c.env.UserID)
			for {
				select {
				case <-ctx.Done():
					return nil
				case n := <-notes:
					if view.Apply(n) {
						printProjection(out, view)
					}
				case line, ok := <-lines:
					if !ok {
						return nil
					}
					parsed, ok, err := parseCommand(line)
					if errors.Is(err, errQuit) {
						return nil
					}
					if err != nil {
						fmt.Fprintln(out, err)
						continue
					}
					if !ok {
						continue
					}
					if _, err := r.Submit(ctx, parsed.op, parsed.args); err != nil && !errors.Is(err, context.Canceled) {
						fmt.Fprintln(out, err)
					}
				}
			}
		},
	}

	cmd.Flags().StringVarP(&sessionID, "session", "s", "", "session id to observe")
	_ = cmd.MarkFlagRequired("session")
	return cmd
}
