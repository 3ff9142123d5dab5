package app

import (
	"context"

	"turnkeeper/internal/domain"
)

// Hooks are trigger points for externally owned side effects such as
// scripted phase effects or condition clearing at teardown.
type Hooks interface {
	PhaseEntered(ctx context.Context, sessionID string, phase domain.Phase, round int)
	TurnStarted(ctx context.Context, sessionID string, p *domain.Participant)
	Teardown(ctx context.Context, sessionID string, e *domain.Entity)
}

// NopHooks ignores every trigger.
type NopHooks struct{}

func (NopHooks) PhaseEntered(context.Context, string, domain.Phase, int)  {}
func (NopHooks) TurnStarted(context.Context, string, *domain.Participant) {}
func (NopHooks) Teardown(context.Context, string, *domain.Entity)         {}
