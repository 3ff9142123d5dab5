package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"turnkeeper/internal/app"
	"turnkeeper/internal/host"
	"turnkeeper/internal/ports/natsbus"
	"turnkeeper/internal/relay"
	"turnkeeper/internal/scenario"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"
)

func newHostCmd(c *cli) *cobra.Command {
	var sessionID, scenarioPath string

	cmd := &cobra.Command{
		Use:   "host",
		Short: "Host an authoritative session over NATS",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			svc := app.NewService(c.cfg, nil)
			var handler *app.Handler
			if scenarioPath != "" {
				s, err := scenario.Load(scenarioPath)
				if err != nil {
					return err
				}
				if sessionID != "" {
					s.Session = sessionID
				}
				// Only the roster is used; steps are left to connected observers.
				s.Steps = nil
				if handler, err = s.Build(ctx, svc); err != nil {
					return err
				}
			} else {
				if sessionID == "" {
					sessionID = uuid.NewString()
				}
				handler = app.NewHandler(svc, app.NewEncounter(sessionID, nil))
			}
			sessionID = handler.Encounter.Session.ID

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

			var verifier relay.OriginVerifier
			if c.env.RelaySecret != "" {
				verifier = relay.TokenVerifier{Tokens: app.NewRelayTokenService(c.env.RelaySecret, c.env.RelayIssuer, clockwork.NewRealClock())}
			} else {
				c.logger.Warn("TURNKEEPER_RELAY_SECRET not set, intents are accepted without verification")
			}

			r := relay.New(relay.Options{
				Role:         relay.RoleHost,
				SessionID:    sessionID,
				Origin:       c.env.UserID,
				Transport:    bus,
				Executor:     handler,
				Verifier:     verifier,
				Logger:       c.logger,
				RecentWindow: c.cfg.RecentIntentWindow,
			})

			intents := make(chan relay.Intent, 64)
			sub, err := bus.SubscribeIntents(sessionID, func(in relay.Intent) {
				select {
				case intents <- in:
				default:
					c.logger.Warn("intent queue full, dropping %s (%s)", in.ID, in.Operation)
				}
			})
			if err != nil {
				return err
			}
			defer sub.Unsubscribe()

			c.logger.Info("hosting session %s on %s", sessionID, c.env.NATSURL)
			h := host.New(host.Options{
				Relay:       r,
				Handler:     handler,
				TurnTimeout: c.turnTimeout(),
				Logger:      c.logger,
			})
			if err := h.Run(ctx, intents); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			c.logger.Info("session %s stopped", sessionID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&sessionID, "session", "s", "", "session id (default: scenario session or a new uuid)")
	cmd.Flags().StringVar(&scenarioPath, "scenario", "", "seed the roster from a scenario file")
	return cmd
}
