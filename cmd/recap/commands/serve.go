package commands

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/wonny/recap/backend/internal/api"
	"github.com/wonny/recap/backend/internal/api/handlers"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "스케줄러 + 상태 API 서버 실행",
	Long: `크론 스케줄러와 HTTP 상태 API를 함께 실행합니다.

Endpoints:
  GET  /health
  GET  /api/runs                  최근 실행 목록
  POST /api/runs                  즉시 실행 (비동기)
  GET  /api/runs/latest           최근 실행 요약
  GET  /api/runs/latest/quality   최근 품질 리포트
  GET  /api/universe              종목/임계값
  GET  /api/jobs                  스케줄러 상태
  GET  /metrics                   Prometheus

Example:
  PORT=8089 go run ./cmd/recap serve`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return fmt.Errorf("init: %w", err)
	}

	sched, err := initScheduler(a)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	var metrics http.Handler
	if a.cfg.MetricsEnabled {
		metrics = promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{})
	}
	runHandler := handlers.NewRunHandler(a.store, sched, a.universe, a.logger)
	server := api.New(a.cfg, a.logger, api.NewRouter(runHandler, metrics, a.logger))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sched.Start()
	defer sched.Stop()

	PrintSuccess(fmt.Sprintf("Serving on :%s (schedule %s)", a.cfg.Port, a.cfg.Schedule))
	return server.Run(ctx)
}
