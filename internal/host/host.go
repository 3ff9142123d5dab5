// Package host runs an authoritative session outside Nakama. Intents and
// turn timeouts are serialized on the goroutine that calls Run.
package host

import (
	"context"
	"time"

	"turnkeeper/internal/app"
	"turnkeeper/internal/domain"
	"turnkeeper/internal/logging"
	"turnkeeper/internal/relay"

	"github.com/heroiclabs/nakama-common/runtime"
	"github.com/jonboulle/clockwork"
)

// Options configures a Host.
type Options struct {
	Relay   *relay.Relay // must hold relay.RoleHost
	Handler *app.Handler
	Clock   clockwork.Clock
	// TurnTimeout ends an idle turn; zero disables it.
	TurnTimeout time.Duration
	Logger      runtime.Logger
}

// Host owns one session.
type Host struct {
	relay   *relay.Relay
	handler *app.Handler
	clock   clockwork.Clock
	timeout time.Duration
	logger  runtime.Logger

	timer      clockwork.Timer
	timedActor string
}

func New(opts Options) *Host {
	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	var logger runtime.Logger = logging.Nop()
	if opts.Logger != nil {
		logger = opts.Logger
	}
	return &Host{
		relay:   opts.Relay,
		handler: opts.Handler,
		clock:   clock,
		timeout: opts.TurnTimeout,
		logger:  logger,
	}
}

// Session returns the hosted session. Only read it from the Run goroutine.
func (h *Host) Session() *domain.Session {
	return h.handler.Encounter.Session
}

// Run consumes intents until ctx is done or intents is closed.
func (h *Host) Run(ctx context.Context, intents <-chan relay.Intent) error {
	defer h.stopTimer()
	for {
		var timeoutC <-chan time.Time
		if h.timer != nil {
			timeoutC = h.timer.Chan()
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case in, ok := <-intents:
			if !ok {
				return nil
			}
			if _, err := h.HandleIntent(ctx, in); err != nil {
				h.logger.Warn("Host: intent %s (%s) from %s failed: %v", in.ID, in.Operation, in.Origin, err)
			}
		case <-timeoutC:
			h.timer = nil
			if _, err := h.HandleTimeout(ctx); err != nil {
				h.logger.Warn("Host: timeout handling failed: %v", err)
			}
		}
	}
}

// HandleIntent executes in through the relay and re-arms the turn timer.
// The timer follows the session even when the intent was not executed.
func (h *Host) HandleIntent(ctx context.Context, in relay.Intent) ([]relay.Notification, error) {
	ns, err := h.relay.Receive(ctx, in)
	ns = append(ns, h.refresh(ctx)...)
	h.schedule(ns)
	return ns, err
}

// HandleTimeout ends the turn of the participant the timer was armed for.
// A timer that outlived its actor only re-arms.
func (h *Host) HandleTimeout(ctx context.Context) ([]relay.Notification, error) {
	acting := h.Session().Acting()
	timed := h.timedActor
	h.timedActor = ""

	var ns []relay.Notification
	if acting != nil && acting.ID == timed && h.Session().Process.Phase == domain.PhaseMain {
		h.logger.Info("Host: %s timed out after %s, ending turn", acting.ID, h.timeout)
		out, err := h.relay.Submit(ctx, app.OpAdvanceTurn, map[string]any{"decision": string(domain.DecisionEnd)})
		if err != nil {
			return nil, err
		}
		ns = out
	}
	ns = append(ns, h.refresh(ctx)...)
	h.schedule(ns)
	return ns, nil
}

// refresh reselects when the acting participant was removed.
func (h *Host) refresh(ctx context.Context) []relay.Notification {
	evs, err := h.handler.Service.Refresh(ctx, h.handler.Encounter)
	if err != nil || len(evs) == 0 {
		return nil
	}
	return h.relay.Publish(ctx, evs)
}

// schedule arms the timer for a newly started turn, keeps it for an
// ongoing one and stops it outside the main phase.
func (h *Host) schedule(ns []relay.Notification) {
	if h.timeout <= 0 {
		return
	}
	sess := h.Session()
	acting := sess.Acting()
	if !sess.Started || sess.Process.Phase != domain.PhaseMain || acting == nil {
		h.stopTimer()
		return
	}
	restarted := false
	for _, n := range ns {
		if n.Type == relay.NotifyActorChanged {
			restarted = true
		}
	}
	if h.timer != nil && acting.ID == h.timedActor && !restarted {
		return
	}
	h.stopTimer()
	h.timer = h.clock.NewTimer(h.timeout)
	h.timedActor = acting.ID
}

func (h *Host) stopTimer() {
	if h.timer == nil {
		return
	}
	if !h.timer.Stop() {
		select {
		case <-h.timer.Chan():
		default:
		}
	}
	h.timer = nil
}
