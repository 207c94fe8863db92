package risk

import (
	"context"
	"fmt"
	"time"

	"polyflow/internal/bus"
	"polyflow/internal/config"
	"polyflow/internal/logger"
	"polyflow/internal/metrics"
	"polyflow/internal/types"
)

const layerName = "risk"

const (
	correlationSizeCut  = 0.5
	correlationCeiling  = 0.5
	platformRiskCeiling = 0.7
	monitorCorrWarnAt   = 0.7
)

// AuditEntry is one gate decision, written to the audit log whether the
// signal passed or not.
type AuditEntry struct {
	SignalID      string
	Market        string
	Decision      string
	Reason        string
	RequestedSize float64
	ApprovedSize  float64
	At            time.Time
}

// AuditSink receives gate decisions. A nil sink disables auditing.
type AuditSink interface {
	Record(ctx context.Context, e AuditEntry) error
}

// Gate sits between validated signals and execution. Every validated signal
// runs the same ordered checks: portfolio exposure, correlation sizing,
// tail risk, platform risk, Kelly sizing, and human approval for large
// positions. Only survivors reach the execution layer.
type Gate struct {
	bus       *bus.Bus
	cfg       config.TradingConfig
	model     Model
	approver  Approver
	audit     AuditSink
	positions *positionTable
	nowFn     func() time.Time
}

func NewGate(b *bus.Bus, cfg config.TradingConfig, model Model, approver Approver, audit AuditSink) *Gate {
	return &Gate{
		bus:       b,
		cfg:       cfg,
		model:     model,
		approver:  approver,
		audit:     audit,
		positions: newPositionTable(),
		nowFn:     time.Now,
	}
}

func (g *Gate) Bind() {
	g.bus.Subscribe(bus.TypeValidatedSignal, "risk.gate", g.onValidatedSignal)
	g.bus.Subscribe(bus.TypePositionUpdate, "risk.correlation", g.onPositionUpdate)
	g.bus.Subscribe(bus.TypeExecutionFailed, "risk.release", g.onExecutionFailed)
	g.bus.Subscribe(bus.TypeResolutionFeedback, "risk.resolution", g.onResolution)
}

func (g *Gate) onValidatedSignal(ctx context.Context, evt bus.Event) error {
	vs, ok := evt.Payload.(types.ValidatedSignal)
	if !ok {
		return fmt.Errorf("unexpected validated_signal payload %T", evt.Payload)
	}
	sig := vs.Signal

	// Check 1: portfolio exposure. The book plus the new position must stay
	// under 80% of portfolio value. The requested size is reserved in the
	// same step as the check, so concurrent signals racing through the
	// slower checks below cannot overcommit the book; the hold is dropped
	// if a later check rejects.
	exposureLimit := g.cfg.PortfolioValue * 0.8
	booked, ok := g.positions.reserve(sig.ID, sig.Size, exposureLimit)
	if !ok {
		g.reject(ctx, sig, "exposure_limit",
			fmt.Sprintf("exposure %.0f + %.0f exceeds %.0f", booked, sig.Size, exposureLimit))
		return nil
	}

	// Check 2: correlation with the existing book halves the size.
	working := sig.Size
	corr := g.model.Correlation(sig.Market)
	if corr > correlationCeiling {
		working *= correlationSizeCut
		logger.Infof("risk: %s correlated %.2f with book, size cut to %.0f", sig.ID, corr, working)
	}

	// Check 3: tail risk on the correlation-adjusted size.
	tailRisk := working * g.cfg.AssumedVolatility * g.cfg.VaRConfidenceQuantile / g.cfg.PortfolioValue
	if tailRisk > g.cfg.MaxPortfolioRisk {
		g.rejectReserved(ctx, sig, "tail_risk", fmt.Sprintf("VaR %.4f exceeds %.2f", tailRisk, g.cfg.MaxPortfolioRisk))
		return nil
	}

	// Check 4: platform risk triggers a protective hedge rather than a
	// rejection.
	hedged := false
	if pr := g.model.PlatformRisk(); pr > platformRiskCeiling {
		hedged = true
		logger.Warnf("risk: platform risk %.2f above %.2f, hedging %s", pr, platformRiskCeiling, sig.ID)
	}

	// Check 5: fractional Kelly caps the final size.
	kelly := g.cfg.PortfolioValue * sig.ExpectedReturn * sig.Confidence * g.cfg.KellyFraction
	final := working
	if kelly < final {
		final = kelly
	}
	if g.cfg.MaxPositionSize < final {
		final = g.cfg.MaxPositionSize
	}
	if final <= 0 {
		g.rejectReserved(ctx, sig, "kelly_zero", "kelly sizing produced no position")
		return nil
	}

	position := types.Position{
		SignalID:           sig.ID,
		Market:             sig.Market,
		Direction:          sig.Direction,
		Size:               final,
		CorrelationScore:   corr,
		TailRisk:           tailRisk,
		NeedsHumanApproval: final > g.cfg.ApprovalThresholdUSD,
		Hedged:             hedged,
		OpenedAt:           g.nowFn(),
	}

	// Check 6: human approval for positions above the desk threshold.
	if position.NeedsHumanApproval {
		if !g.approver.Approve(ctx, position) {
			g.rejectReserved(ctx, sig, "approval_denied", "human approval denied")
			return nil
		}
		position.Approved = true
	}

	g.positions.commit(position)
	g.recordAudit(ctx, AuditEntry{
		SignalID:      sig.ID,
		Market:        sig.Market,
		Decision:      "approved",
		RequestedSize: sig.Size,
		ApprovedSize:  final,
		At:            g.nowFn(),
	})
	logger.Infof("risk: %s approved at %.0f USD (requested %.0f)", sig.ID, final, sig.Size)
	g.bus.Publish(ctx, bus.NewEvent(bus.TypeRiskApproved, "risk_gate", layerName, types.RiskApproved{
		SignalID: sig.ID,
		Signal:   sig,
		Position: position,
	}))
	return nil
}

// rejectReserved drops the exposure hold taken by check 1 before recording
// the rejection.
func (g *Gate) rejectReserved(ctx context.Context, sig types.Signal, reason, detail string) {
	g.positions.unreserve(sig.ID)
	g.reject(ctx, sig, reason, detail)
}

func (g *Gate) reject(ctx context.Context, sig types.Signal, reason, detail string) {
	metrics.RiskRejections.WithLabelValues(reason).Inc()
	logger.Warnf("risk: %s rejected (%s): %s", sig.ID, reason, detail)
	g.recordAudit(ctx, AuditEntry{
		SignalID:      sig.ID,
		Market:        sig.Market,
		Decision:      "rejected",
		Reason:        reason,
		RequestedSize: sig.Size,
		At:            g.nowFn(),
	})
}

func (g *Gate) recordAudit(ctx context.Context, e AuditEntry) {
	if g.audit == nil {
		return
	}
	if err := g.audit.Record(ctx, e); err != nil {
		logger.Errorf("risk: audit write failed for %s: %v", e.SignalID, err)
	}
}

// onPositionUpdate refreshes marks and re-checks correlation for the open
// book after every executed position change.
func (g *Gate) onPositionUpdate(_ context.Context, evt bus.Event) error {
	pu, ok := evt.Payload.(types.PositionUpdate)
	if !ok {
		return nil
	}
	g.positions.updatePrice(pu.SignalID, pu.Price)
	for _, p := range g.positions.list() {
		corr := g.model.Correlation(p.Market)
		g.positions.setCorrelation(p.SignalID, corr)
		if corr > monitorCorrWarnAt {
			logger.Warnf("risk: open position %s correlation drifted to %.2f", p.SignalID, corr)
		}
	}
	return nil
}

func (g *Gate) onExecutionFailed(_ context.Context, evt bus.Event) error {
	res, ok := evt.Payload.(types.ExecutionResult)
	if !ok {
		return nil
	}
	if p, released := g.positions.release(res.SignalID); released {
		logger.Infof("risk: released %.0f USD exposure after failed execution of %s", p.Size, p.SignalID)
	}
	return nil
}

// onResolution frees exposure once the market resolved the trade.
func (g *Gate) onResolution(_ context.Context, evt bus.Event) error {
	res, ok := evt.Payload.(types.Resolution)
	if !ok || !res.Resolved {
		return nil
	}
	if p, released := g.positions.release(res.TradeID); released {
		logger.Infof("risk: closed %s on resolution (%s, pnl=%.2f)", p.SignalID, res.Outcome, res.PnL)
	}
	return nil
}

// Exposure reports the open book's total size for the status API.
func (g *Gate) Exposure() float64 { return g.positions.exposure() }

// OpenPositions returns a snapshot of the book.
func (g *Gate) OpenPositions() []types.Position { return g.positions.list() }
