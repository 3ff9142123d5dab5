// Package natsbus carries relay intents and notifications over core NATS
// subjects. Core pub/sub is at-most-once, which is all the relay asks for.
package natsbus

import (
	"context"
	"fmt"
	"time"

	"turnkeeper/internal/relay"

	"github.com/heroiclabs/nakama-common/runtime"
	"github.com/nats-io/nats.go"
)

// Config holds connection settings.
type Config struct {
	URL           string
	SubjectPrefix string
	MaxReconnects int
	ReconnectWait time.Duration
}

// DefaultConfig returns settings for a local server.
func DefaultConfig() Config {
	return Config{
		URL:           nats.DefaultURL,
		SubjectPrefix: "turnkeeper",
		MaxReconnects: -1,
		ReconnectWait: 2 * time.Second,
	}
}

// IntentSubject is where observers publish intents for sessionID.
func IntentSubject(prefix, sessionID string) string {
	return fmt.Sprintf("%s.%s.intents", prefix, sessionID)
}

// NotificationSubject is where the host publishes notifications for sessionID.
func NotificationSubject(prefix, sessionID string) string {
	return fmt.Sprintf("%s.%s.notifications", prefix, sessionID)
}

type publisher interface {
	Publish(subj string, data []byte) error
}

// Bus implements relay.Transport over NATS.
type Bus struct {
	nc     *nats.Conn
	pub    publisher
	prefix string
	logger runtime.Logger
}

// Connect dials NATS and returns a Bus.
func Connect(cfg Config, logger runtime.Logger) (*Bus, error) {
	opts := []nats.Option{
		nats.Name("turnkeeper"),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			logger.Warn("NATS disconnected: %v", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("NATS reconnected to %s", nc.ConnectedUrl())
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			logger.Error("NATS error: %v", err)
		}),
	}
	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	prefix := cfg.SubjectPrefix
	if prefix == "" {
		prefix = DefaultConfig().SubjectPrefix
	}
	return &Bus{nc: nc, pub: nc, prefix: prefix, logger: logger}, nil
}

// SendIntent publishes in on its session's intent subject.
func (b *Bus) SendIntent(_ context.Context, in relay.Intent) error {
	data, err := relay.EncodeIntent(in)
	if err != nil {
		return err
	}
	return b.pub.Publish(IntentSubject(b.prefix, in.SessionID), data)
}

// Broadcast publishes each notification. The first failure stops the batch.
func (b *Bus) Broadcast(_ context.Context, ns []relay.Notification) error {
	for _, n := range ns {
		data, err := relay.EncodeNotification(n)
		if err != nil {
			return err
		}
		if err := b.pub.Publish(NotificationSubject(b.prefix, n.SessionID), data); err != nil {
			return fmt.Errorf("publish %s: %w", n.Type, err)
		}
	}
	return nil
}

// SubscribeIntents delivers decoded intents for sessionID to fn.
func (b *Bus) SubscribeIntents(sessionID string, fn func(relay.Intent)) (*nats.Subscription, error) {
	sub, err := b.nc.Subscribe(IntentSubject(b.prefix, sessionID), intentHandler(b.logger, fn))
	if err != nil {
		return nil, fmt.Errorf("subscribe intents: %w", err)
	}
	return sub, nil
}

// SubscribeNotifications delivers decoded notifications for sessionID to fn.
func (b *Bus) SubscribeNotifications(sessionID string, fn func(relay.Notification)) (*nats.Subscription, error) {
	sub, err := b.nc.Subscribe(NotificationSubject(b.prefix, sessionID), notificationHandler(b.logger, fn))
	if err != nil {
		return nil, fmt.Errorf("subscribe notifications: %w", err)
	}
	return sub, nil
}

// Close drains pending messages and closes the connection.
func (b *Bus) Close() error {
	if b.nc == nil {
		return nil
	}
	return b.nc.Drain()
}

func intentHandler(logger runtime.Logger, fn func(relay.Intent)) nats.MsgHandler {
	return func(msg *nats.Msg) {
		in, err := relay.DecodeIntent(msg.Data)
		if err != nil {
			logger.Debug("NATS: dropping undecodable intent on %s: %v", msg.Subject, err)
			return
		}
		fn(in)
	}
}

func notificationHandler(logger runtime.Logger, fn func(relay.Notification)) nats.MsgHandler {
	return func(msg *nats.Msg) {
		n, err := relay.DecodeNotification(msg.Data)
		if err != nil {
			logger.Debug("NATS: dropping undecodable notification on %s: %v", msg.Subject, err)
			return
		}
		fn(n)
	}
}

var _ relay.Transport = (*Bus)(nil)
