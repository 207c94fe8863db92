package research

import (
	"context"
	"sync"

	"polyflow/internal/bus"
	"polyflow/internal/types"
)

// SentimentAnalyzer keeps a rolling window of scored text events and emits
// the windowed average for the primary watched market. News carries full
// weight, social chatter less, whale flow is mapped to a directional score.
type SentimentAnalyzer struct {
	markets func() []string
	window  int

	mu     sync.Mutex
	scores []float64
}

func NewSentimentAnalyzer(markets func() []string, window int) *SentimentAnalyzer {
	if window <= 0 {
		window = 20
	}
	return &SentimentAnalyzer{markets: markets, window: window}
}

func (a *SentimentAnalyzer) Name() string { return "sentiment" }

func (a *SentimentAnalyzer) Interested(typ bus.EventType) bool {
	return typ == bus.TypeNewsArticle || typ == bus.TypeSocialPost || typ == bus.TypeWhaleMovement
}

func (a *SentimentAnalyzer) Analyze(_ context.Context, evt bus.Event) (*types.Insight, bool) {
	var score float64
	switch p := evt.Payload.(type) {
	case types.NewsArticle:
		score = p.Sentiment
	case types.SocialPost:
		score = p.Sentiment * 0.7
	case types.WhaleMovement:
		if p.Side == "buy" {
			score = 0.5
		} else {
			score = -0.5
		}
	default:
		return nil, false
	}

	a.mu.Lock()
	a.scores = append(a.scores, score)
	if len(a.scores) > a.window {
		a.scores = a.scores[len(a.scores)-a.window:]
	}
	var sum float64
	for _, s := range a.scores {
		sum += s
	}
	avg := sum / float64(len(a.scores))
	n := len(a.scores)
	a.mu.Unlock()

	slugs := a.markets()
	if len(slugs) == 0 {
		return nil, false
	}
	// Confidence grows with sample size up to 0.8, matching the prior the
	// signal layer was tuned on.
	confidence := 0.8 * float64(n) / float64(a.window)
	if confidence > 0.8 {
		confidence = 0.8
	}
	return &types.Insight{
		Kind:       types.InsightSentiment,
		Market:     slugs[0],
		Sentiment:  avg,
		Confidence: confidence,
	}, true
}
