package ingestion

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"polyflow/internal/bus"
	"polyflow/internal/types"
)

// Simulated sources for paper mode. Each one produces a small random payload
// per cycle, shaped exactly like its live counterpart would.

// SimPriceSource emits a random-walk price tick per watched market.
type SimPriceSource struct {
	markets func() []string

	mu     sync.Mutex
	rng    *rand.Rand
	prices map[string]float64
}

func NewSimPriceSource(markets func() []string, seed int64) *SimPriceSource {
	return &SimPriceSource{
		markets: markets,
		rng:     rand.New(rand.NewSource(seed)),
		prices:  make(map[string]float64),
	}
}

func (s *SimPriceSource) Name() string { return "polymarket_sim" }

func (s *SimPriceSource) Fetch(_ context.Context) FetchResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	var events []RawEvent
	for _, market := range s.markets() {
		price, ok := s.prices[market]
		if !ok {
			price = 0.94 + s.rng.Float64()*0.02
		}
		price += (s.rng.Float64() - 0.5) * 0.01
		if price < 0.01 {
			price = 0.01
		}
		if price > 0.99 {
			price = 0.99
		}
		s.prices[market] = price
		spread := 0.005
		events = append(events, RawEvent{
			Timestamp: now,
			Type:      bus.TypePriceUpdate,
			Source:    s.Name(),
			Payload: types.PriceUpdate{
				Market:    market,
				Price:     price,
				BestBid:   price - spread/2,
				BestAsk:   price + spread/2,
				Spread:    spread,
				Volume24h: 1e6 + s.rng.Float64()*4e7,
			},
		})
	}
	return Successful(events...)
}

// SimNewsSource emits one pre-scored headline per cycle.
type SimNewsSource struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewSimNewsSource(seed int64) *SimNewsSource {
	return &SimNewsSource{rng: rand.New(rand.NewSource(seed))}
}

func (s *SimNewsSource) Name() string { return "news_sim" }

var simHeadlines = []struct {
	text      string
	sentiment float64
}{
	{"Trump expected to nominate Warsh for Fed chair", 0.8},
	{"Senate hearing delayed amid procedural dispute", -0.5},
	{"Prediction market volume hits monthly high", 0.5},
	{"No new developments in confirmation process", 0.0},
}

func (s *SimNewsSource) Fetch(_ context.Context) FetchResult {
	s.mu.Lock()
	h := simHeadlines[s.rng.Intn(len(simHeadlines))]
	s.mu.Unlock()
	return Successful(RawEvent{
		Timestamp: time.Now(),
		Type:      bus.TypeNewsArticle,
		Source:    s.Name(),
		Payload:   types.NewsArticle{Headline: h.text, Sentiment: h.sentiment},
	})
}

// SimSocialSource emits one scored social post per cycle.
type SimSocialSource struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewSimSocialSource(seed int64) *SimSocialSource {
	return &SimSocialSource{rng: rand.New(rand.NewSource(seed))}
}

func (s *SimSocialSource) Name() string { return "social_sim" }

func (s *SimSocialSource) Fetch(_ context.Context) FetchResult {
	s.mu.Lock()
	sentiment := []float64{-0.5, 0, 0.5, 0.8}[s.rng.Intn(4)]
	s.mu.Unlock()
	return Successful(RawEvent{
		Timestamp: time.Now(),
		Type:      bus.TypeSocialPost,
		Source:    s.Name(),
		Payload:   types.SocialPost{Text: "market chatter", Sentiment: sentiment},
	})
}

// SimWhaleSource emits an occasional large-transfer observation; most cycles
// produce nothing, which is a successful empty fetch.
type SimWhaleSource struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewSimWhaleSource(seed int64) *SimWhaleSource {
	return &SimWhaleSource{rng: rand.New(rand.NewSource(seed))}
}

func (s *SimWhaleSource) Name() string { return "whale_sim" }

func (s *SimWhaleSource) Fetch(_ context.Context) FetchResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rng.Float64() > 0.2 {
		return Successful()
	}
	side := "buy"
	if s.rng.Float64() < 0.5 {
		side = "sell"
	}
	return Successful(RawEvent{
		Timestamp: time.Now(),
		Type:      bus.TypeWhaleMovement,
		Source:    s.Name(),
		Payload:   types.WhaleMovement{Amount: 50000 + s.rng.Float64()*450000, Side: side},
	})
}
