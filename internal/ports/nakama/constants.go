package nakama

import (
	"turnkeeper/internal/app"
	"turnkeeper/internal/relay"
)

const (
	// RpcCreateCombat creates an authoritative combat match.
	RpcCreateCombat = "create_combat"
	// RpcIssueRelayToken issues an origin token for out-of-socket intents.
	RpcIssueRelayToken = "issue_relay_token"
	// RpcRelayIntent forwards a token-authenticated intent to a match via signal.
	RpcRelayIntent = "relay_intent"

	// MatchNameCombat is the authoritative match handler name registered with Nakama.
	MatchNameCombat = "turnkeeper_combat"

	// ParamSessionID selects (or restores) the session a match hosts.
	ParamSessionID = "session_id"

	// CombatConfigPath is read once at module load.
	CombatConfigPath = "data/combat_config.json"
)

// Op codes for client messages and server events.
const (
	// Client -> Server
	OpStartCombat       int64 = 1
	OpAdvanceTurn       int64 = 2
	OpRecomputeOrder    int64 = 3
	OpBeginMainLoop     int64 = 4
	OpAddParticipant    int64 = 5
	OpRemoveParticipant int64 = 6
	OpSyncEntity        int64 = 7
	OpPreviousTurn      int64 = 8
	OpNextRound         int64 = 9
	OpEndCombat         int64 = 10

	// Server -> Client events
	OpSessionSnapshot int64 = 101
	OpActorChanged    int64 = 102
	OpPhaseChanged    int64 = 103
	OpRoundStarted    int64 = 104
	OpOrderChanged    int64 = 105
	OpCombatEnded     int64 = 106
	OpError           int64 = 199
)

var operationByOpCode = map[int64]string{
	OpStartCombat:       app.OpStartCombat,
	OpAdvanceTurn:       app.OpAdvanceTurn,
	OpRecomputeOrder:    app.OpRecomputeOrder,
	OpBeginMainLoop:     app.OpBeginMainLoop,
	OpAddParticipant:    app.OpAddParticipant,
	OpRemoveParticipant: app.OpRemoveParticipant,
	OpSyncEntity:        app.OpSyncEntity,
	OpPreviousTurn:      app.OpPreviousTurn,
	OpNextRound:         app.OpNextRound,
	OpEndCombat:         app.OpEndCombat,
}

var opCodeByNotification = map[relay.NotificationType]int64{
	relay.NotifySessionSnapshot: OpSessionSnapshot,
	relay.NotifyActorChanged:    OpActorChanged,
	relay.NotifyPhaseChanged:    OpPhaseChanged,
	relay.NotifyRoundStarted:    OpRoundStarted,
	relay.NotifyOrderChanged:    OpOrderChanged,
	relay.NotifyCombatEnded:     OpCombatEnded,
}
