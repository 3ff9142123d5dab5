package relay

import (
	"context"
	"errors"

	"turnkeeper/internal/app"
	"turnkeeper/internal/logging"

	"github.com/google/uuid"
	"github.com/heroiclabs/nakama-common/runtime"
)

// Role is the authority a process holds over a session.
type Role int

const (
	RoleObserver Role = iota
	RoleHost
)

func (r Role) String() string {
	if r == RoleHost {
		return "host"
	}
	return "observer"
}

var ErrNotHost = errors.New("only the host may execute intents")

// Transport moves intents to the host and notifications to everyone.
// Delivery is best effort; nothing is retried.
type Transport interface {
	SendIntent(ctx context.Context, in Intent) error
	Broadcast(ctx context.Context, ns []Notification) error
}

// Executor runs an operation against the authoritative session.
type Executor interface {
	Handle(ctx context.Context, op string, args map[string]any) ([]app.Event, error)
}

// OriginVerifier authenticates the origin of an intent before execution.
type OriginVerifier interface {
	VerifyOrigin(in Intent) error
}

// Options configures a Relay.
type Options struct {
	Role      Role
	SessionID string
	// Origin is stamped on intents this process submits.
	Origin string
	// Token accompanies submitted intents when the host requires verification.
	Token     string
	Transport Transport
	Executor  Executor // required for RoleHost
	Verifier  OriginVerifier
	Logger    runtime.Logger
	// RecentWindow bounds how many intent ids are remembered for duplicate suppression.
	RecentWindow int
}

// Relay routes mutating operations so they execute exactly once, on the host.
type Relay struct {
	role      Role
	sessionID string
	origin    string
	token     string
	transport Transport
	executor  Executor
	verifier  OriginVerifier
	logger    runtime.Logger
	recent    *recentIDs
}

// New builds a relay from opts.
func New(opts Options) *Relay {
	window := opts.RecentWindow
	if window <= 0 {
		window = 256
	}
	var logger runtime.Logger = logging.Nop()
	if opts.Logger != nil {
		logger = opts.Logger
	}
	return &Relay{
		role:      opts.Role,
		sessionID: opts.SessionID,
		origin:    opts.Origin,
		token:     opts.Token,
		transport: opts.Transport,
		executor:  opts.Executor,
		verifier:  opts.Verifier,
		logger:    logger,
		recent:    newRecentIDs(window),
	}
}

func (r *Relay) Role() Role        { return r.role }
func (r *Relay) SessionID() string { return r.sessionID }

// SetTransport swaps the transport, e.g. when a match dispatcher is refreshed.
func (r *Relay) SetTransport(t Transport) { r.transport = t }

// SetSessionID rebinds the relay after the host restores or replaces a session.
func (r *Relay) SetSessionID(id string) { r.sessionID = id }

// Submit requests op. A host executes it immediately and broadcasts the
// result. An observer sends an intent and returns without waiting; a failed
// send is dropped.
func (r *Relay) Submit(ctx context.Context, op string, args map[string]any) ([]Notification, error) {
	in := Intent{
		ID:        uuid.NewString(),
		Operation: op,
		SessionID: r.sessionID,
		Origin:    r.origin,
		Token:     r.token,
		Args:      args,
	}
	if r.role == RoleHost {
		r.recent.add(in.ID)
		return r.execute(ctx, in)
	}
	if r.transport == nil {
		r.logger.Debug("Relay: no transport, dropping intent %s (%s)", in.ID, op)
		return nil, nil
	}
	if err := r.transport.SendIntent(ctx, in); err != nil {
		r.logger.Debug("Relay: intent %s (%s) dropped: %v", in.ID, op, err)
	}
	return nil, nil
}

// Receive handles an intent that arrived from another process. Intents for
// other sessions, with a bad origin or already seen are dropped silently.
// An operation the session rejects is logged and dropped; the only error
// returned is ErrNotHost.
func (r *Relay) Receive(ctx context.Context, in Intent) ([]Notification, error) {
	if r.role != RoleHost {
		return nil, ErrNotHost
	}
	if in.SessionID != r.sessionID {
		r.logger.Debug("Relay: intent %s for session %s ignored (host owns %s)", in.ID, in.SessionID, r.sessionID)
		return nil, nil
	}
	if r.verifier != nil {
		if err := r.verifier.VerifyOrigin(in); err != nil {
			r.logger.Warn("Relay: intent %s from %s rejected: %v", in.ID, in.Origin, err)
			return nil, nil
		}
	}
	if in.ID != "" && !r.recent.add(in.ID) {
		r.logger.Debug("Relay: duplicate intent %s ignored", in.ID)
		return nil, nil
	}
	return r.execute(ctx, in)
}

func (r *Relay) execute(ctx context.Context, in Intent) ([]Notification, error) {
	if r.executor == nil {
		return nil, ErrNotHost
	}
	evs, err := r.executor.Handle(ctx, in.Operation, in.Args)
	if err != nil {
		r.logger.Warn("Relay: intent %s (%s) from %s dropped: %v", in.ID, in.Operation, in.Origin, err)
		return nil, nil
	}
	ns := FromEvents(r.sessionID, evs)
	r.broadcast(ctx, in.Operation, ns)
	return ns, nil
}

// Publish broadcasts events the host produced without an intent, such as a
// timer-driven reselection.
func (r *Relay) Publish(ctx context.Context, evs []app.Event) []Notification {
	ns := FromEvents(r.sessionID, evs)
	r.broadcast(ctx, "publish", ns)
	return ns
}

func (r *Relay) broadcast(ctx context.Context, cause string, ns []Notification) {
	if len(ns) == 0 || r.transport == nil {
		return
	}
	if err := r.transport.Broadcast(ctx, ns); err != nil {
		r.logger.Warn("Relay: broadcast after %s failed: %v", cause, err)
	}
}

// recentIDs is a fixed-size ring of intent ids with set lookup.
type recentIDs struct {
	ring []string
	next int
	seen map[string]struct{}
}

func newRecentIDs(size int) *recentIDs {
	return &recentIDs{ring: make([]string, size), seen: make(map[string]struct{}, size)}
}

// add records id and reports whether it was new.
func (r *recentIDs) add(id string) bool {
	if _, ok := r.seen[id]; ok {
		return false
	}
	if old := r.ring[r.next]; old != "" {
		delete(r.seen, old)
	}
	r.ring[r.next] = id
	r.seen[id] = struct{}{}
	r.next = (r.next + 1) % len(r.ring)
	return true
}
