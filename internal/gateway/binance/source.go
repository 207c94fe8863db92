package binance

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/adshao/go-binance/v2"

	"polyflow/internal/bus"
	"polyflow/internal/config"
	"polyflow/internal/ingestion"
	"polyflow/internal/types"
)

// Source implements ingestion.Source on top of the go-binance SDK. It polls
// the spot book ticker for the configured symbols and turns each quote into
// a price_update, so live crypto prices flow through the same pipeline path
// as the simulated polymarket feed.
type Source struct {
	cfg    config.BinanceConfig
	client *binance.Client
}

func New(cfg config.BinanceConfig) *Source {
	client := binance.NewClient("", "")
	if base := strings.TrimSpace(cfg.RESTBaseURL); base != "" {
		client.BaseURL = base
	}
	return &Source{cfg: cfg, client: client}
}

func (s *Source) Name() string { return "binance" }

func (s *Source) Fetch(ctx context.Context) ingestion.FetchResult {
	events := make([]ingestion.RawEvent, 0, len(s.cfg.Symbols))
	now := time.Now()
	for _, symbol := range s.cfg.Symbols {
		symbol = strings.ToUpper(strings.TrimSpace(symbol))
		if symbol == "" {
			continue
		}
		tickers, err := s.client.NewListBookTickersService().Symbol(symbol).Do(ctx)
		if err != nil {
			return ingestion.Failure(err)
		}
		for _, tk := range tickers {
			if tk == nil {
				continue
			}
			bid := parseFloat(tk.BidPrice)
			ask := parseFloat(tk.AskPrice)
			if bid <= 0 || ask <= 0 {
				continue
			}
			events = append(events, ingestion.RawEvent{
				Timestamp: now,
				Type:      bus.TypePriceUpdate,
				Source:    s.Name(),
				Payload: types.PriceUpdate{
					Market:  strings.ToLower(tk.Symbol),
					Price:   (bid + ask) / 2,
					BestBid: bid,
					BestAsk: ask,
					Spread:  ask - bid,
				},
			})
		}
	}
	return ingestion.Successful(events...)
}

func parseFloat(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return v
}
