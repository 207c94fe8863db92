package bus

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventType enumerates every kind of message that can travel on the bus.
// Stages dispatch on these constants instead of free-form strings so the
// full event-type graph (including the Monitoring → Ingestion feedback
// cycle) is visible in one place.
type EventType string

const (
	// Raw ingestion events.
	TypePriceUpdate   EventType = "price_update"
	TypeNewsArticle   EventType = "news_article"
	TypeSocialPost    EventType = "social_post"
	TypeWhaleMovement EventType = "whale_movement"

	// Research output.
	TypeResearchInsight EventType = "research_insight"

	// Signal lifecycle.
	TypeAlphaSignal       EventType = "alpha_signal"
	TypeChallengeComplete EventType = "challenge_complete"
	TypeBacktestComplete  EventType = "backtest_complete"
	TypeValidatedSignal   EventType = "validated_signal"

	// Risk gate and execution.
	TypeRiskApproved      EventType = "risk_approved"
	TypePositionUpdate    EventType = "position_update"
	TypeExecutionComplete EventType = "execution_complete"
	TypeExecutionFailed   EventType = "execution_failed"
	TypeTradeExecuted     EventType = "trade_executed"

	// Monitoring feedback.
	TypeResolutionFeedback EventType = "resolution_feedback"
	TypeDriftAlert         EventType = "drift_alert"
	TypeStrategyUpdate     EventType = "strategy_update"

	// Wildcard matches every type; it has its own subscription bucket.
	Wildcard EventType = "*"
)

// Event is the immutable unit of communication between stages. Payload holds
// a stage-owned struct; events must never be mutated after Publish.
type Event struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	Source    string    `json:"source"`
	Layer     string    `json:"layer"`
	Payload   any       `json:"payload"`
}

// NewEvent stamps an event with a content-derived id. The uuid nonce keeps
// ids unique even for identical content published in the same nanosecond.
func NewEvent(typ EventType, source, layer string, payload any) Event {
	ts := time.Now()
	sum := md5.Sum([]byte(fmt.Sprintf("%s:%s:%s", ts.Format(time.RFC3339Nano), typ, uuid.NewString())))
	return Event{
		ID:        hex.EncodeToString(sum[:])[:16],
		Timestamp: ts,
		Type:      typ,
		Source:    source,
		Layer:     layer,
		Payload:   payload,
	}
}
