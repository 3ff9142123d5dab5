package nakama

import (
	"context"
	"database/sql"

	"turnkeeper/internal/config"

	"github.com/heroiclabs/nakama-common/runtime"
)

// InitModule wires RPCs and match handlers for Nakama runtime.
func InitModule(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, initializer runtime.Initializer) error {
	if err := config.LoadCombatConfig(CombatConfigPath); err != nil {
		logger.Warn("InitModule: Could not load combat config, using defaults: %v", err)
	}

	if err := RegisterRPCs(initializer); err != nil {
		return err
	}

	if err := initializer.RegisterMatch(MatchNameCombat, NewMatch); err != nil {
		return err
	}

	logger.Info("Turnkeeper Go module loaded.")
	return nil
}
