package app

// Operation names accepted by Handler. The first three are the ones observers
// relay during normal play; the rest manage the session itself.
const (
	OpAdvanceTurn       = "advanceTurn"
	OpRecomputeOrder    = "recomputeOrder"
	OpBeginMainLoop     = "beginMainLoop"
	OpStartCombat       = "startCombat"
	OpAddParticipant    = "addParticipant"
	OpRemoveParticipant = "removeParticipant"
	OpSyncEntity        = "syncEntity"
	OpPreviousTurn      = "previousTurn"
	OpNextRound         = "nextRound"
	OpEndCombat         = "endCombat"
)

// Operations lists every operation name in a stable order.
var Operations = []string{
	OpAdvanceTurn,
	OpRecomputeOrder,
	OpBeginMainLoop,
	OpStartCombat,
	OpAddParticipant,
	OpRemoveParticipant,
	OpSyncEntity,
	OpPreviousTurn,
	OpNextRound,
	OpEndCombat,
}
