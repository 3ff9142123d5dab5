package nakama

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"turnkeeper/internal/app"
	"turnkeeper/internal/config"
	"turnkeeper/internal/domain"
	"turnkeeper/internal/ports"
	"turnkeeper/internal/relay"

	"github.com/google/uuid"
	"github.com/heroiclabs/nakama-common/runtime"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	MatchLabelKey_Open = "open" // Key for whether the combat still accepts joins

	errCodeForbidden  = 403
	errCodeBadRequest = 400
)

// MatchState holds the authoritative runtime state for one combat session.
type MatchState struct {
	SessionID      string                      `json:"session_id"`
	OwnerUserID    string                      `json:"owner_user_id"`    // First connected user; may run every operation
	JoinOrder      []string                    `json:"join_order"`       // Connected user ids in join order, for owner handover
	Tick           int64                       `json:"tick"`             // Current tick of the match
	LastActorID    string                      `json:"last_actor_id"`    // Acting participant seen by the timeout check
	ActorSinceTick int64                       `json:"actor_since_tick"` // Tick when LastActorID started acting
	Ended          bool                        `json:"ended"`            // Combat ended; the match terminates
	Presences      map[string]runtime.Presence `json:"-"`                // Map UserId -> Presence for targeted messaging
	Config         *config.CombatConfig        `json:"-"`
	Handler        *app.Handler                `json:"-"` // Service bound to the session's encounter
	Relay          *relay.Relay                `json:"-"` // Host-side relay; every mutation runs through it
	Transport      *dispatcherTransport        `json:"-"`
	Store          ports.SessionStore          `json:"-"` // nil disables persistence
}

// Session returns the hosted session.
func (ms *MatchState) Session() *domain.Session {
	return ms.Handler.Encounter.Session
}

// authorized reports whether userID may run op. The owner may run anything;
// the controller of the acting participant may end its own turn.
func (ms *MatchState) authorized(userID, op string) bool {
	if userID != "" && userID == ms.OwnerUserID {
		return true
	}
	switch op {
	case app.OpRecomputeOrder:
		return true
	case app.OpAdvanceTurn:
		acting := ms.Session().Acting()
		return acting != nil && acting.ControllerID != "" && acting.ControllerID == userID
	}
	return false
}

func newMatchState(cfg *config.CombatConfig, enc *app.Encounter, hooks app.Hooks, store ports.SessionStore, logger runtime.Logger) *MatchState {
	transport := &dispatcherTransport{logger: logger}
	handler := app.NewHandler(app.NewService(cfg, hooks), enc)
	return &MatchState{
		SessionID: enc.Session.ID,
		Presences: make(map[string]runtime.Presence),
		Config:    cfg,
		Handler:   handler,
		Transport: transport,
		Store:     store,
		Relay: relay.New(relay.Options{
			Role:         relay.RoleHost,
			SessionID:    enc.Session.ID,
			Transport:    transport,
			Executor:     handler,
			Logger:       logger,
			RecentWindow: cfg.RecentIntentWindow,
		}),
	}
}

// restoreEncounter loads sessionID from store, or starts a fresh encounter
// when nothing is stored.
func restoreEncounter(ctx context.Context, store ports.SessionStore, sessionID string) (*app.Encounter, error) {
	if sessionID == "" {
		return app.NewEncounter(uuid.NewString(), nil), nil
	}
	if store == nil {
		return app.NewEncounter(sessionID, nil), nil
	}
	snap, err := store.Load(ctx, sessionID)
	if errors.Is(err, ports.ErrSessionNotFound) {
		return app.NewEncounter(sessionID, nil), nil
	}
	if err != nil {
		return nil, err
	}
	sess, roster, err := snap.Restore()
	if err != nil {
		return nil, err
	}
	return &app.Encounter{Session: sess, Roster: roster}, nil
}

// NewMatch is the factory function registered with Nakama.
func NewMatch(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule) (runtime.Match, error) {
	return newMatchHandler(), nil
}

func newMatchHandler() *matchHandler {
	return &matchHandler{}
}

type matchHandler struct{}

// MatchInit is called when the match is created.
func (mh *matchHandler) MatchInit(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, params map[string]interface{}) (interface{}, int, string) {
	cfg := config.Get()
	if env, ok := ctx.Value(runtime.RUNTIME_CTX_ENV).(map[string]string); ok {
		cfg.ApplyEnv(env)
	}

	var store ports.SessionStore
	var hooks app.Hooks = app.NopHooks{}
	if nk != nil {
		store = NewNakamaSessionStore(nk)
		hooks = NewEventHooks(nk, logger)
	}

	sessionID, _ := params[ParamSessionID].(string)
	enc, err := restoreEncounter(ctx, store, sessionID)
	if err != nil {
		logger.Error("MatchInit: Failed to restore session %s: %v", sessionID, err)
		return nil, 0, ""
	}

	state := newMatchState(cfg, enc, hooks, store, logger)
	label, err := matchLabel(state)
	if err != nil {
		logger.Error("MatchInit: Failed to marshal label: %v", err)
		return nil, 0, ""
	}

	logger.Debug("MatchInit: Hosting session %s (round %d, started=%t).", state.SessionID, enc.Session.Round, enc.Session.Started)
	return state, cfg.TickRate, label
}

func (mh *matchHandler) MatchJoinAttempt(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presence runtime.Presence, metadata map[string]string) (interface{}, bool, string) {
	matchState, ok := state.(*MatchState)
	if !ok {
		return state, false, "state not found"
	}
	if matchState.Ended {
		return state, false, "Combat ended"
	}
	return state, true, ""
}

func (mh *matchHandler) MatchJoin(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		logger.Error("MatchJoin: state not found")
		return state
	}
	matchState.Transport.dispatcher = dispatcher

	for _, p := range presences {
		userID := p.GetUserId()
		if _, exists := matchState.Presences[userID]; !exists {
			matchState.JoinOrder = append(matchState.JoinOrder, userID)
		}
		matchState.Presences[userID] = p
	}

	if matchState.OwnerUserID == "" && len(matchState.JoinOrder) > 0 {
		matchState.OwnerUserID = matchState.JoinOrder[0]
		logger.Debug("MatchJoin: Owner set to %s.", matchState.OwnerUserID)
	}

	// Late joiners get the whole session at once.
	snapshot := relay.Snapshot(ctx, matchState.Handler.Service, matchState.Handler.Encounter)
	if err := matchState.Transport.send(presences, snapshot); err != nil {
		logger.Warn("MatchJoin: Failed to send snapshot: %v", err)
	}

	mh.updateLabel(matchState, logger)
	return matchState
}

// MatchLeave is called when one or more users leave the match.
func (mh *matchHandler) MatchLeave(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		logger.Error("MatchLeave: state not found")
		return state
	}
	matchState.Transport.dispatcher = dispatcher

	for _, p := range presences {
		userID := p.GetUserId()
		delete(matchState.Presences, userID)
		matchState.JoinOrder = removeUser(matchState.JoinOrder, userID)
		if userID == matchState.OwnerUserID {
			matchState.OwnerUserID = ""
		}
	}

	if matchState.OwnerUserID == "" && len(matchState.JoinOrder) > 0 {
		matchState.OwnerUserID = matchState.JoinOrder[0]
		logger.Debug("MatchLeave: Owner handed over to %s.", matchState.OwnerUserID)
	}

	if len(matchState.Presences) == 0 {
		logger.Info("MatchLeave: Terminating empty match for session %s.", matchState.SessionID)
		mh.persist(ctx, matchState, logger)
		return nil
	}

	mh.updateLabel(matchState, logger)
	return matchState
}

func (mh *matchHandler) MatchLoop(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, messages []runtime.MatchData) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		return state
	}

	matchState.Tick = tick
	matchState.Transport.dispatcher = dispatcher

	for _, msg := range messages {
		op, known := operationByOpCode[msg.GetOpCode()]
		if !known {
			logger.Warn("MatchLoop: Unknown opcode received: %d", msg.GetOpCode())
			continue
		}
		mh.handleMessage(ctx, matchState, logger, msg, op)
		if matchState.Ended {
			logger.Info("MatchLoop: Combat %s ended, terminating match.", matchState.SessionID)
			return nil
		}
	}

	mh.checkTurnTimeout(ctx, matchState, logger)
	if matchState.Ended {
		return nil
	}
	return matchState
}

func (mh *matchHandler) handleMessage(ctx context.Context, state *MatchState, logger runtime.Logger, msg runtime.MatchData, op string) {
	senderID := msg.GetUserId()
	if !state.authorized(senderID, op) {
		logger.Warn("MatchLoop: User %s may not run %s (owner=%s)", senderID, op, state.OwnerUserID)
		mh.sendError(state, logger, senderID, errCodeForbidden, "not permitted: "+op)
		return
	}

	args, err := decodeArgs(msg.GetData())
	if err != nil {
		logger.Warn("MatchLoop: Invalid %s payload from %s: %v", op, senderID, err)
		mh.sendError(state, logger, senderID, errCodeBadRequest, err.Error())
		return
	}

	in := relay.Intent{
		ID:        app.StringArg(args, "intentId"),
		Operation: op,
		SessionID: state.SessionID,
		Origin:    senderID,
		Args:      args,
	}
	ns, err := state.Relay.Receive(ctx, in)
	if err != nil {
		logger.Error("MatchLoop: %s from %s not executed: %v", op, senderID, err)
		return
	}
	mh.afterMutation(ctx, state, logger, ns)
}

// checkTurnTimeout ends the current turn once it has been held longer than
// the configured timeout, and reselects when the actor disappeared.
func (mh *matchHandler) checkTurnTimeout(ctx context.Context, state *MatchState, logger runtime.Logger) {
	sess := state.Session()
	if !sess.Started || sess.Process.Phase != domain.PhaseMain {
		state.LastActorID = ""
		return
	}

	acting := sess.Acting()
	if acting == nil {
		evs, err := state.Handler.Service.Refresh(ctx, state.Handler.Encounter)
		if err != nil {
			logger.Warn("TurnTimeout: Refresh failed: %v", err)
			return
		}
		mh.afterMutation(ctx, state, logger, state.Relay.Publish(ctx, evs))
		return
	}

	if acting.ID != state.LastActorID {
		state.LastActorID = acting.ID
		state.ActorSinceTick = state.Tick
		return
	}

	timeout := state.Config.TurnTimeoutSeconds
	if timeout <= 0 {
		return
	}
	if state.Tick-state.ActorSinceTick < int64(timeout*state.Config.TickRate) {
		return
	}

	logger.Info("TurnTimeout: %s held the turn for %d ticks, ending it.", acting.ID, state.Tick-state.ActorSinceTick)
	// A bonus turn keeps the same actor; its clock restarts.
	state.ActorSinceTick = state.Tick
	ns, err := state.Relay.Submit(ctx, app.OpAdvanceTurn, map[string]any{"decision": string(domain.DecisionEnd)})
	if err != nil {
		logger.Warn("TurnTimeout: Advance failed: %v", err)
		return
	}
	mh.afterMutation(ctx, state, logger, ns)
}

// afterMutation persists the session and refreshes the label, or tears the
// stored session down once combat has ended.
func (mh *matchHandler) afterMutation(ctx context.Context, state *MatchState, logger runtime.Logger, ns []relay.Notification) {
	if len(ns) == 0 {
		return
	}
	for _, n := range ns {
		if n.Type == relay.NotifyCombatEnded {
			state.Ended = true
		}
	}
	if state.Ended {
		if state.Store != nil {
			if err := state.Store.Delete(ctx, state.SessionID); err != nil {
				logger.Warn("Persist: %v", err)
			}
		}
		return
	}
	mh.persist(ctx, state, logger)
	mh.updateLabel(state, logger)
}

func (mh *matchHandler) persist(ctx context.Context, state *MatchState, logger runtime.Logger) {
	if state.Store == nil || state.Ended {
		return
	}
	enc := state.Handler.Encounter
	if err := state.Store.Save(ctx, domain.TakeSnapshot(enc.Session, enc.Roster)); err != nil {
		logger.Error("Persist: %v", err)
	}
}

// sendError sends an error notice to a specific user.
func (mh *matchHandler) sendError(state *MatchState, logger runtime.Logger, userID string, code int, message string) {
	presence, ok := state.Presences[userID]
	if !ok {
		logger.Warn("Cannot send error to %s: Presence not found", userID)
		return
	}
	st, err := structpb.NewStruct(map[string]any{"code": code, "message": message})
	if err != nil {
		logger.Error("Failed to build error payload: %v", err)
		return
	}
	bytes, err := proto.Marshal(st)
	if err != nil {
		logger.Error("Failed to marshal error payload: %v", err)
		return
	}
	if state.Transport.dispatcher == nil {
		return
	}
	state.Transport.dispatcher.BroadcastMessage(OpError, bytes, []runtime.Presence{presence}, nil, true)
}

func (mh *matchHandler) updateLabel(state *MatchState, logger runtime.Logger) {
	if state.Transport.dispatcher == nil {
		return
	}
	label, err := matchLabel(state)
	if err != nil {
		logger.Error("UpdateLabel: Failed to marshal: %v", err)
		return
	}
	if err := state.Transport.dispatcher.MatchLabelUpdate(label); err != nil {
		logger.Error("UpdateLabel: Failed to update: %v", err)
	}
}

func matchLabel(state *MatchState) (string, error) {
	sess := state.Session()
	label, err := structpb.NewStruct(map[string]any{
		"game":             "turnkeeper",
		MatchLabelKey_Open: !state.Ended,
		"session_id":       state.SessionID,
		"phase":            string(sess.Process.Phase),
		"round":            sess.Round,
		"started":          sess.Started,
		"participants":     len(sess.Participants),
	})
	if err != nil {
		return "", err
	}
	labelBytes, err := (&protojson.MarshalOptions{EmitUnpopulated: true}).Marshal(label)
	if err != nil {
		return "", err
	}
	return string(labelBytes), nil
}

// decodeArgs parses a client payload. An empty payload carries no arguments.
func decodeArgs(data []byte) (map[string]any, error) {
	if len(data) == 0 {
		return map[string]any{}, nil
	}
	st := &structpb.Struct{}
	if err := proto.Unmarshal(data, st); err != nil {
		return nil, fmt.Errorf("decode args: %w", err)
	}
	return st.AsMap(), nil
}

func removeUser(ids []string, userID string) []string {
	out := ids[:0]
	for _, id := range ids {
		if id != userID {
			out = append(out, id)
		}
	}
	return out
}

func (mh *matchHandler) MatchTerminate(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, graceSeconds int) interface{} {
	matchState, ok := state.(*MatchState)
	if ok {
		mh.persist(ctx, matchState, logger)
	}
	logger.Debug("MatchTerminate: Match terminated with %d grace seconds", graceSeconds)
	return state
}

// MatchSignal executes an intent relayed by the relay_intent RPC. The RPC has
// already verified the origin token; the match still applies its own
// authorization and duplicate suppression.
func (mh *matchHandler) MatchSignal(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, data string) (interface{}, string) {
	matchState, ok := state.(*MatchState)
	if !ok {
		return state, "state not found"
	}
	matchState.Transport.dispatcher = dispatcher

	in, err := decodeSignal(data)
	if err != nil {
		logger.Warn("MatchSignal: %v", err)
		return matchState, "invalid intent"
	}
	if !matchState.authorized(in.Origin, in.Operation) {
		logger.Warn("MatchSignal: User %s may not run %s", in.Origin, in.Operation)
		return matchState, "not permitted"
	}

	ns, err := matchState.Relay.Receive(ctx, in)
	if err != nil {
		logger.Error("MatchSignal: %s from %s not executed: %v", in.Operation, in.Origin, err)
		return matchState, "ok"
	}
	mh.afterMutation(ctx, matchState, logger, ns)
	if matchState.Ended {
		return nil, "ok"
	}
	return matchState, "ok"
}
