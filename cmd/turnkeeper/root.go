package main

import (
	"fmt"
	"time"

	"turnkeeper/internal/config"
	"turnkeeper/internal/logging"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// Env holds the process environment for every subcommand.
type Env struct {
	LogLevel      string        `env:"TURNKEEPER_LOG_LEVEL"      envDefault:"info"`
	ConfigPath    string        `env:"TURNKEEPER_CONFIG"         envDefault:"data/combat_config.json"`
	NATSURL       string        `env:"TURNKEEPER_NATS_URL"       envDefault:"nats://127.0.0.1:4222"`
	SubjectPrefix string        `env:"TURNKEEPER_SUBJECT_PREFIX" envDefault:"turnkeeper"`
	RelaySecret   string        `env:"TURNKEEPER_RELAY_SECRET"`
	RelayIssuer   string        `env:"TURNKEEPER_RELAY_ISSUER"   envDefault:"turnkeeper"`
	RelayToken    string        `env:"TURNKEEPER_RELAY_TOKEN"`
	UserID        string        `env:"TURNKEEPER_USER_ID"`
	TurnTimeout   time.Duration `env:"TURNKEEPER_TURN_TIMEOUT"`
}

// ParseEnv loads Env from the environment.
func ParseEnv() (Env, error) {
	var e Env
	if err := env.Parse(&e); err != nil {
		return e, fmt.Errorf("parse env: %w", err)
	}
	return e, nil
}

// cli is the state shared by subcommands once the root has initialized.
type cli struct {
	env    Env
	logger *logging.Zerolog
	cfg    *config.CombatConfig
}

// turnTimeout prefers the environment, then the combat config.
func (c *cli) turnTimeout() time.Duration {
	if c.env.TurnTimeout > 0 {
		return c.env.TurnTimeout
	}
	return time.Duration(c.cfg.TurnTimeoutSeconds) * time.Second
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	var logLevel, configPath string

	root := &cobra.Command{
		Use:   "turnkeeper",
		Short: "Turn-order engine for tactical combat",
		Long: `turnkeeper runs the initiative and turn-advancement engine outside of
Nakama: replay scripted encounters, host an authoritative session over NATS,
or observe one and relay turn decisions to its host.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			dotenvErr := godotenv.Load()

			e, err := ParseEnv()
			if err != nil {
				return err
			}
			if logLevel != "" {
				e.LogLevel = logLevel
			}
			if configPath != "" {
				e.ConfigPath = configPath
			}
			c.env = e
			c.logger = logging.Console(cmd.ErrOrStderr(), e.LogLevel)
			if dotenvErr != nil {
				c.logger.Debug("could not load .env file: %v", dotenvErr)
			}

			if err := config.LoadCombatConfig(e.ConfigPath); err != nil {
				c.logger.Warn("could not load combat config %s, using defaults: %v", e.ConfigPath, err)
			}
			c.cfg = config.Get()
			return nil
		},
	}

	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (default from TURNKEEPER_LOG_LEVEL)")
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "combat config file (default from TURNKEEPER_CONFIG)")

	root.AddCommand(newReplayCmd(c), newHostCmd(c), newObserveCmd(c))
	return root
}
