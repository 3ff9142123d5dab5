package nakama

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"turnkeeper/internal/app"
	"turnkeeper/internal/config"
	"turnkeeper/internal/relay"

	"github.com/google/uuid"
	"github.com/heroiclabs/nakama-common/api"
	"github.com/heroiclabs/nakama-common/runtime"
	"github.com/jonboulle/clockwork"
)

const defaultRelayIssuer = "turnkeeper"

// relayTokens overrides the env-configured token service. Tests set it.
var relayTokens *app.RelayTokenService

// CreateCombatRequest is the create_combat payload. SessionID is optional.
type CreateCombatRequest struct {
	SessionID string `json:"session_id"`
}

// CreateCombatResponse is returned to clients after create_combat.
type CreateCombatResponse struct {
	MatchID   string `json:"match_id"`
	SessionID string `json:"session_id"`
	IsNew     bool   `json:"is_new"`
}

// RelayTokenRequest is the issue_relay_token payload.
type RelayTokenRequest struct {
	SessionID string `json:"session_id"`
}

// RelayIntentRequest is the relay_intent payload.
type RelayIntentRequest struct {
	MatchID   string         `json:"match_id"`
	SessionID string         `json:"session_id"`
	IntentID  string         `json:"intent_id"`
	Operation string         `json:"operation"`
	Token     string         `json:"token"`
	Args      map[string]any `json:"args"`
}

type matchFinder interface {
	MatchList(ctx context.Context, limit int, authoritative bool, label string, minSize, maxSize *int, query string) ([]*api.Match, error)
	MatchCreate(ctx context.Context, module string, params map[string]interface{}) (string, error)
}

type matchSignaler interface {
	MatchSignal(ctx context.Context, id string, data string) (string, error)
}

// RegisterRPCs registers Nakama RPC endpoints.
func RegisterRPCs(initializer runtime.Initializer) error {
	if err := initializer.RegisterRpc(RpcCreateCombat, rpcCreateCombat); err != nil {
		return err
	}
	if err := initializer.RegisterRpc(RpcIssueRelayToken, rpcIssueRelayToken); err != nil {
		return err
	}
	return initializer.RegisterRpc(RpcRelayIntent, rpcRelayIntent)
}

func rpcCreateCombat(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	return createCombat(ctx, logger, nk, payload)
}

// createCombat returns the live match hosting the requested session, or
// creates one. Creation restores a stored session with the same id.
func createCombat(ctx context.Context, logger runtime.Logger, nk matchFinder, payload string) (string, error) {
	userID, _ := ctx.Value(runtime.RUNTIME_CTX_USER_ID).(string)

	var req CreateCombatRequest
	if payload != "" {
		if err := json.Unmarshal([]byte(payload), &req); err != nil {
			return "", runtime.NewError("Invalid payload", 3) // INVALID_ARGUMENT
		}
	}

	if req.SessionID != "" {
		query := fmt.Sprintf("+label.game:turnkeeper +label.%s:T +label.session_id:%s", MatchLabelKey_Open, req.SessionID)
		matches, err := nk.MatchList(ctx, 1, true, "", nil, nil, query)
		if err != nil {
			logger.Error("RpcCreateCombat [User:%s]: Failed to list matches: %v", userID, err)
			return "", err
		}
		if len(matches) > 0 {
			logger.Info("RpcCreateCombat [User:%s]: Session %s already hosted by %s", userID, req.SessionID, matches[0].MatchId)
			return marshalResponse(CreateCombatResponse{MatchID: matches[0].MatchId, SessionID: req.SessionID})
		}
	} else {
		req.SessionID = uuid.NewString()
	}

	matchID, err := nk.MatchCreate(ctx, MatchNameCombat, map[string]interface{}{ParamSessionID: req.SessionID})
	if err != nil {
		logger.Error("RpcCreateCombat [User:%s]: Failed to create match: %v", userID, err)
		return "", err
	}

	logger.Info("RpcCreateCombat [User:%s]: Created match %s for session %s", userID, matchID, req.SessionID)
	return marshalResponse(CreateCombatResponse{MatchID: matchID, SessionID: req.SessionID, IsNew: true})
}

// rpcIssueRelayToken binds the caller to a session so it can relay intents
// without holding a match socket.
func rpcIssueRelayToken(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	userID, _ := ctx.Value(runtime.RUNTIME_CTX_USER_ID).(string)
	if userID == "" {
		return "", runtime.NewError("Authentication required", 16) // UNAUTHENTICATED
	}

	var req RelayTokenRequest
	if err := json.Unmarshal([]byte(payload), &req); err != nil || req.SessionID == "" {
		return "", runtime.NewError("session_id required", 3)
	}

	tokens, err := relayTokenService(ctx)
	if err != nil {
		logger.Error("RpcIssueRelayToken: %v", err)
		return "", runtime.NewError("Relay tokens not configured", 9) // FAILED_PRECONDITION
	}
	token, err := tokens.Issue(userID, req.SessionID)
	if err != nil {
		logger.Error("RpcIssueRelayToken [User:%s]: Failed to issue token: %v", userID, err)
		return "", runtime.NewError("Internal error", 13) // INTERNAL
	}

	return marshalResponse(map[string]any{
		"token":      token,
		"expires_in": int(app.DefaultRelayTokenTTL.Seconds()),
	})
}

func rpcRelayIntent(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	return relayIntent(ctx, logger, nk, payload)
}

// relayIntent verifies the caller's origin token and forwards the intent to
// the hosting match as a signal.
func relayIntent(ctx context.Context, logger runtime.Logger, nk matchSignaler, payload string) (string, error) {
	userID, _ := ctx.Value(runtime.RUNTIME_CTX_USER_ID).(string)

	var req RelayIntentRequest
	if err := json.Unmarshal([]byte(payload), &req); err != nil {
		return "", runtime.NewError("Invalid payload", 3)
	}
	if req.MatchID == "" || req.Operation == "" {
		return "", runtime.NewError("match_id and operation required", 3)
	}

	tokens, err := relayTokenService(ctx)
	if err != nil {
		logger.Error("RpcRelayIntent: %v", err)
		return "", runtime.NewError("Relay tokens not configured", 9)
	}

	in := relay.Intent{
		ID:        req.IntentID,
		Operation: req.Operation,
		SessionID: req.SessionID,
		Origin:    userID,
		Token:     req.Token,
		Args:      req.Args,
	}
	if in.ID == "" {
		in.ID = uuid.NewString()
	}
	if err := (relay.TokenVerifier{Tokens: tokens}).VerifyOrigin(in); err != nil {
		logger.Warn("RpcRelayIntent [User:%s]: Rejected intent %s: %v", userID, in.ID, err)
		return "", runtime.NewError("Invalid relay token", 7) // PERMISSION_DENIED
	}

	data, err := encodeSignal(in)
	if err != nil {
		return "", runtime.NewError("Invalid args", 3)
	}
	result, err := nk.MatchSignal(ctx, req.MatchID, data)
	if err != nil {
		logger.Error("RpcRelayIntent [User:%s]: Signal to %s failed: %v", userID, req.MatchID, err)
		return "", err
	}

	return marshalResponse(map[string]string{"intent_id": in.ID, "result": result})
}

func relayTokenService(ctx context.Context) (*app.RelayTokenService, error) {
	if relayTokens != nil {
		return relayTokens, nil
	}
	env, _ := ctx.Value(runtime.RUNTIME_CTX_ENV).(map[string]string)
	secret := env[config.EnvRelaySecret]
	if secret == "" {
		return nil, fmt.Errorf("%s is not set", config.EnvRelaySecret)
	}
	issuer := env[config.EnvRelayIssuer]
	if issuer == "" {
		issuer = defaultRelayIssuer
	}
	return app.NewRelayTokenService(secret, issuer, clockwork.NewRealClock()), nil
}

func marshalResponse(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", runtime.NewError("Internal error", 13)
	}
	return string(b), nil
}
