package app

import (
	"context"
	"fmt"
	"time"

	"polyflow/internal/bus"
	"polyflow/internal/config"
	"polyflow/internal/execution"
	binancegw "polyflow/internal/gateway/binance"
	"polyflow/internal/gateway/newsfeed"
	"polyflow/internal/ingestion"
	"polyflow/internal/logger"
	"polyflow/internal/markets"
	"polyflow/internal/monitor"
	"polyflow/internal/research"
	"polyflow/internal/risk"
	"polyflow/internal/signal"
	"polyflow/internal/store"
	"polyflow/internal/store/auditlog"
	"polyflow/internal/store/sqlite"
	pipelinehttp "polyflow/internal/transport/http"
)

// AppBuilder assembles the pipeline stage by stage. The function fields are
// override points so tests can swap the stochastic parts for deterministic
// ones without touching the wiring order.
type AppBuilder struct {
	cfg *config.Config

	watchlistFn func(config.MarketsConfig) (*markets.Watchlist, error)
	sourcesFn   func(*config.Config, *markets.Watchlist) []sourceBinding
	riskModelFn func() risk.Model
	approverFn  func(config.TradingConfig) risk.Approver
	fillModelFn func(config.ExecutionConfig) execution.FillModel
	journalFn   func(config.StoreConfig) (store.Journal, error)
	auditFn     func(config.StoreConfig) (*auditlog.Store, error)
}

type sourceBinding struct {
	source   ingestion.Source
	interval time.Duration
}

func NewAppBuilder(cfg *config.Config) *AppBuilder {
	return &AppBuilder{
		cfg:         cfg,
		watchlistFn: buildWatchlist,
		sourcesFn:   buildSources,
		riskModelFn: func() risk.Model { return risk.NewStochasticModel(time.Now().UnixNano()) },
		approverFn:  buildApprover,
		fillModelFn: buildFillModel,
		journalFn:   buildJournal,
		auditFn:     buildAuditLog,
	}
}

func buildWatchlist(cfg config.MarketsConfig) (*markets.Watchlist, error) {
	if cfg.Path != "" {
		return markets.NewFromFile(cfg.Path)
	}
	return markets.NewStatic(cfg.Symbols)
}

func buildSources(cfg *config.Config, wl *markets.Watchlist) []sourceBinding {
	seed := time.Now().UnixNano()
	ing := cfg.Ingestion
	bindings := []sourceBinding{
		{ingestion.NewSimPriceSource(wl.Slugs, seed), time.Duration(ing.PriceIntervalSeconds) * time.Second},
		{ingestion.NewSimSocialSource(seed + 2), time.Duration(ing.SocialIntervalSeconds) * time.Second},
		{ingestion.NewSimWhaleSource(seed + 3), time.Duration(ing.WhaleIntervalSeconds) * time.Second},
	}
	if ing.Newsfeed.Enabled {
		bindings = append(bindings, sourceBinding{newsfeed.New(ing.Newsfeed), time.Duration(ing.NewsIntervalSeconds) * time.Second})
	} else {
		bindings = append(bindings, sourceBinding{ingestion.NewSimNewsSource(seed + 1), time.Duration(ing.NewsIntervalSeconds) * time.Second})
	}
	if ing.Binance.Enabled && cfg.Trading.Live() {
		bindings = append(bindings, sourceBinding{binancegw.New(ing.Binance), time.Duration(ing.PriceIntervalSeconds) * time.Second})
	}
	return bindings
}

func buildApprover(cfg config.TradingConfig) risk.Approver {
	return risk.AutoApprover{Delay: time.Duration(cfg.ApprovalDelaySeconds) * time.Second}
}

func buildFillModel(cfg config.ExecutionConfig) execution.FillModel {
	return execution.NewSimFillModel(cfg.MaxSlippage, cfg.FeeRate, cfg.FillThreshold, time.Second, time.Now().UnixNano())
}

func buildJournal(cfg config.StoreConfig) (store.Journal, error) {
	if cfg.JournalPath == "" {
		return nil, nil
	}
	return sqlite.NewSqliteStore(cfg.JournalPath)
}

func buildAuditLog(cfg config.StoreConfig) (*auditlog.Store, error) {
	if cfg.AuditPath == "" {
		return nil, nil
	}
	return auditlog.New(cfg.AuditPath)
}

// Build wires every stage onto one bus. Subscription order here is delivery
// order on the bus, so the pipeline stages register top to bottom.
func (b *AppBuilder) Build(ctx context.Context) (*App, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if b.cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	cfg := b.cfg
	logger.SetLevel(cfg.App.LogLevel)

	eventBus := bus.New(cfg.Bus.HistoryCap)

	watchlist, err := b.watchlistFn(cfg.Markets)
	if err != nil {
		return nil, fmt.Errorf("build watchlist: %w", err)
	}
	logger.Infof("app: watching %d markets: %v", len(watchlist.Slugs()), watchlist.Slugs())

	journal, err := b.journalFn(cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("open trade journal: %w", err)
	}
	audit, err := b.auditFn(cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}

	tunables := ingestion.NewTunables(cfg.Signal.SentimentThreshold)

	researchSvc := research.NewService(eventBus,
		research.NewSentimentAnalyzer(watchlist.Slugs, 20),
		research.NewForecastAnalyzer(),
		research.NewCalibrationAnalyzer(cfg.Monitor.CalibrationTolerance),
		research.NewLiquidityAnalyzer(),
	)
	researchSvc.Bind()

	signalSvc := signal.NewService(eventBus, cfg.Signal, tunables)
	signalSvc.Bind()

	var auditSink risk.AuditSink
	if audit != nil {
		auditSink = audit
	}
	gate := risk.NewGate(eventBus, cfg.Trading, b.riskModelFn(), b.approverFn(cfg.Trading), auditSink)
	gate.Bind()

	sniper := execution.NewSniper(cfg.Execution.SnipeEpsilon, time.Now().UnixNano())
	executionSvc := execution.NewService(eventBus, cfg.Trading, sniper, b.fillModelFn(cfg.Execution))
	executionSvc.Bind()

	memory := monitor.NewMemoryLog(cfg.Monitor.MemoryCap)
	monitorSvc := monitor.NewService(eventBus, cfg.Monitor, memory, journal, time.Now().UnixNano())
	monitorSvc.Bind()

	ingestionSvc := ingestion.NewService(eventBus, cfg.Ingestion, tunables)
	ingestionSvc.Bind()
	for _, binding := range b.sourcesFn(cfg, watchlist) {
		ingestionSvc.Register(binding.source, binding.interval)
	}

	var auditReader pipelinehttp.AuditReader
	if audit != nil {
		auditReader = audit
	}
	httpServer, err := pipelinehttp.NewServer(pipelinehttp.Config{
		Addr:    cfg.App.HTTPAddr,
		Bus:     eventBus,
		Gate:    gate,
		Signals: signalSvc,
		Monitor: monitorSvc,
		Journal: journal,
		Audit:   auditReader,
	})
	if err != nil {
		return nil, fmt.Errorf("build http server: %w", err)
	}

	return &App{
		cfg:       cfg,
		bus:       eventBus,
		watchlist: watchlist,
		ingestion: ingestionSvc,
		signals:   signalSvc,
		monitor:   monitorSvc,
		http:      httpServer,
		journal:   journal,
		audit:     audit,
	}, nil
}
