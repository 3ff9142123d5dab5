package nakama

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"turnkeeper/internal/relay"

	"github.com/heroiclabs/nakama-common/runtime"
)

var errMatchSendsNoIntents = errors.New("match host does not send intents")

// dispatcherTransport broadcasts relay notifications through the match
// dispatcher. The dispatcher is refreshed on every match callback.
type dispatcherTransport struct {
	dispatcher runtime.MatchDispatcher
	logger     runtime.Logger
}

func (t *dispatcherTransport) SendIntent(context.Context, relay.Intent) error {
	return errMatchSendsNoIntents
}

func (t *dispatcherTransport) Broadcast(_ context.Context, ns []relay.Notification) error {
	return t.send(nil, ns...)
}

// send delivers ns to presences, or to everyone when presences is nil.
func (t *dispatcherTransport) send(presences []runtime.Presence, ns ...relay.Notification) error {
	if t.dispatcher == nil {
		return errors.New("no dispatcher")
	}
	for _, n := range ns {
		opCode, ok := opCodeByNotification[n.Type]
		if !ok {
			t.logger.Warn("Transport: no opcode for notification %s", n.Type)
			continue
		}
		data, err := relay.EncodeNotification(n)
		if err != nil {
			return err
		}
		if err := t.dispatcher.BroadcastMessage(opCode, data, presences, nil, true); err != nil {
			return fmt.Errorf("broadcast %s: %w", n.Type, err)
		}
	}
	return nil
}

// encodeSignal packs an intent into a match signal payload.
func encodeSignal(in relay.Intent) (string, error) {
	data, err := relay.EncodeIntent(in)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

func decodeSignal(data string) (relay.Intent, error) {
	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return relay.Intent{}, fmt.Errorf("decode signal: %w", err)
	}
	return relay.DecodeIntent(raw)
}

var _ relay.Transport = (*dispatcherTransport)(nil)
