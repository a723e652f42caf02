package commands

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/wonny/recap/backend/internal/brain"
	"github.com/wonny/recap/backend/internal/contracts"
	"github.com/wonny/recap/backend/internal/external/gnews"
	"github.com/wonny/recap/backend/internal/external/yahoo"
	"github.com/wonny/recap/backend/internal/monitor"
	"github.com/wonny/recap/backend/internal/render"
	"github.com/wonny/recap/backend/internal/universe"
	"github.com/wonny/recap/backend/pkg/config"
	"github.com/wonny/recap/backend/pkg/httputil"
	"github.com/wonny/recap/backend/pkg/logger"
)

// app holds every wired component shared by the commands
type app struct {
	cfg          *config.Config
	logger       *logger.Logger
	universe     *universe.Config
	store        *monitor.RunStore
	registry     *prometheus.Registry
	orchestrator *brain.Orchestrator
}

// newApp wires config → sources → sinks → orchestrator
// ⭐ SSOT: 의존성 조립은 여기서만
func newApp() (*app, error) {
	// 1. 환경 설정 + 로거
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	log := logger.New(cfg)

	// 2. Universe (파일 → 기본값, CLI 오버라이드)
	ucfg, err := loadUniverse(cfg)
	if err != nil {
		return nil, err
	}

	// 3. 외부 소스 (단일 시도, 재시도는 collector 책임)
	httpClient := httputil.NewWithTimeout(cfg, log, ucfg.Fetch.RequestTimeout)
	prices := yahoo.NewClient(httpClient, log, cfg.Yahoo.BaseURL)
	news := gnews.NewClient(httpClient, log, cfg.News.BaseURL, cfg.News.Language, cfg.News.Region)

	// 4. 렌더러
	renderers, err := render.New(ucfg.Report.Formats, ucfg.Report.OutputDir, log)
	if err != nil {
		return nil, err
	}

	// 5. 이벤트 싱크 (로그 + 메모리 + 메트릭)
	store := monitor.NewRunStore(30)
	registry := prometheus.NewRegistry()
	sinks := []contracts.EventSink{monitor.NewLogSink(log), store}
	if cfg.MetricsEnabled {
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		sinks = append(sinks, monitor.NewMetricsSink(registry))
	}

	orchestrator := brain.NewOrchestrator(ucfg, brain.Deps{
		Prices:    prices,
		News:      news,
		Renderers: renderers,
		Sink:      monitor.NewFanout(sinks...),
		Logger:    log,
	})

	return &app{
		cfg:          cfg,
		logger:       log,
		universe:     ucfg,
		store:        store,
		registry:     registry,
		orchestrator: orchestrator,
	}, nil
}

// loadUniverse resolves the universe from flags, env and defaults
func loadUniverse(cfg *config.Config) (*universe.Config, error) {
	path := universeFile
	if path == "" {
		path = cfg.UniverseFile
	}

	var ucfg *universe.Config
	if path != "" {
		loaded, err := universe.Load(path)
		if err != nil {
			return nil, fmt.Errorf("load universe %s: %w", path, err)
		}
		ucfg = loaded
	} else {
		ucfg = universe.Default()
	}

	if instruments != "" {
		overridden, err := universe.WithInstruments(ucfg, instruments)
		if err != nil {
			return nil, fmt.Errorf("--instruments: %w", err)
		}
		ucfg = overridden
	}

	switch {
	case outputDir != "":
		ucfg.Report.OutputDir = outputDir
	case cfg.OutputDir != "":
		ucfg.Report.OutputDir = cfg.OutputDir
	}

	return ucfg, nil
}
