package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/recap/backend/internal/brain"
	"github.com/wonny/recap/backend/internal/contracts"
)

var (
	runCmd = &cobra.Command{
		Use:   "run",
		Short: "리캡 파이프라인 1회 실행",
		Long: `파이프라인을 한 번 실행하고 결과를 출력합니다.

S0(가격 ‖ 뉴스) → S1 수익률 → S2 품질 게이트 → S3 리포트

종료 코드:
  0  COMPLETED 또는 DEGRADED
  1  FAILED (설정 오류, 타임아웃 등)

Example:
  go run ./cmd/recap run
  go run ./cmd/recap run --date 2024-01-05
  go run ./cmd/recap run --instruments AAPL,MSFT,BTC-USD`,
		RunE: runRecap,
	}

	// Flags
	runDate string
)

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVar(&runDate, "date", "", "실행 날짜 (YYYY-MM-DD, 기본: 오늘)")
}

func runRecap(cmd *cobra.Command, args []string) error {
	date := time.Now()
	if runDate != "" {
		parsed, err := time.Parse(contracts.DateLayout, runDate)
		if err != nil {
			return fmt.Errorf("invalid date format: %w", err)
		}
		date = parsed
	}

	a, err := newApp()
	if err != nil {
		return fmt.Errorf("init: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	PrintHeader("Daily Market Recap", date, len(a.universe.Instruments))

	result, err := a.orchestrator.Run(ctx, brain.RunConfig{Date: date})
	PrintRunResult(result)
	if err != nil {
		return fmt.Errorf("run failed: %w", err)
	}
	return nil
}
