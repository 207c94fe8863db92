package risk

import (
	"context"
	"time"

	"polyflow/internal/logger"
	"polyflow/internal/types"
)

// Approver decides large positions that exceed the automatic threshold.
type Approver interface {
	Approve(ctx context.Context, p types.Position) bool
}

// AutoApprover stands in for a human desk in paper mode: it waits the
// configured review delay and approves. The delay keeps the pipeline's
// timing realistic so downstream stages see the same latency a real desk
// would add.
type AutoApprover struct {
	Delay time.Duration
}

func (a AutoApprover) Approve(ctx context.Context, p types.Position) bool {
	logger.Infof("risk: position %s (%.0f USD) queued for approval", p.SignalID, p.Size)
	if a.Delay > 0 {
		timer := time.NewTimer(a.Delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return false
		case <-timer.C:
		}
	}
	logger.Infof("risk: position %s approved", p.SignalID)
	return true
}

// ApproverFunc adapts a function to the Approver interface.
type ApproverFunc func(ctx context.Context, p types.Position) bool

func (f ApproverFunc) Approve(ctx context.Context, p types.Position) bool { return f(ctx, p) }
