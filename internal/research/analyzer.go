package research

import (
	"context"

	"polyflow/internal/bus"
	"polyflow/internal/logger"
	"polyflow/internal/types"
)

const layerName = "research"

// Analyzer turns raw market events into insights. Interested gates which
// event types reach Analyze; returning ok=false means the event carried no
// signal worth publishing.
type Analyzer interface {
	Name() string
	Interested(typ bus.EventType) bool
	Analyze(ctx context.Context, evt bus.Event) (*types.Insight, bool)
}

// Service fans every raw event out to its analyzers and publishes whatever
// insights come back.
type Service struct {
	bus       *bus.Bus
	analyzers []Analyzer
}

func NewService(b *bus.Bus, analyzers ...Analyzer) *Service {
	return &Service{bus: b, analyzers: analyzers}
}

// Bind subscribes the fan-out handler. Analyzers themselves never touch the
// bus; the service owns publishing so every insight leaves through one path.
func (s *Service) Bind() {
	s.bus.Subscribe(bus.Wildcard, "research.fanout", s.onEvent)
}

func (s *Service) onEvent(ctx context.Context, evt bus.Event) error {
	if evt.Layer != "ingestion" {
		return nil
	}
	for _, a := range s.analyzers {
		if !a.Interested(evt.Type) {
			continue
		}
		insight, ok := a.Analyze(ctx, evt)
		if !ok || insight == nil {
			continue
		}
		insight.Agent = a.Name()
		logger.Debugf("research: %s produced %s insight for %s (confidence=%.2f)",
			a.Name(), insight.Kind, insight.Market, insight.Confidence)
		s.bus.Publish(ctx, bus.NewEvent(bus.TypeResearchInsight, a.Name(), layerName, *insight))
	}
	return nil
}
