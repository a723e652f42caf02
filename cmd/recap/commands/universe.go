package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wonny/recap/backend/pkg/config"
)

var (
	universeCmd = &cobra.Command{
		Use:   "universe",
		Short: "종목 유니버스와 설정 확인",
		Long: `유니버스 파일을 로드/검증하고 종목과 주요 설정을 출력합니다.
설정 오류는 여기서 미리 확인할 수 있습니다.

Example:
  go run ./cmd/recap universe --universe config/universe.yaml`,
		RunE: showUniverse,
	}
)

func init() {
	rootCmd.AddCommand(universeCmd)
}

func showUniverse(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	ucfg, err := loadUniverse(cfg)
	if err != nil {
		return err
	}

	PrintDoubleSeparator()
	fmt.Printf("  Instrument Universe (%d)\n", len(ucfg.Instruments))
	PrintSeparator()
	for i := 0; i < len(ucfg.Instruments); i += 10 {
		end := i + 10
		if end > len(ucfg.Instruments) {
			end = len(ucfg.Instruments)
		}
		fmt.Printf("   %s\n", strings.Join(ucfg.Instruments[i:end], ", "))
	}

	PrintSeparator()
	f, q, r := ucfg.Fetch, ucfg.Quality, ucfg.Report
	PrintKeyValue("Lookback", fmt.Sprintf("%d bars (%d calendar days)", f.LookbackDays, f.CalendarDays), 16)
	PrintKeyValue("Retries", fmt.Sprintf("%d x %s (%s)", f.MaxRetries, f.RetryDelay, f.Backoff), 16)
	PrintKeyValue("Pacing", fmt.Sprintf("prices %s, news %s", f.RequestDelay, f.NewsRequestDelay), 16)
	PrintKeyValue("News", fmt.Sprintf("%d per instrument", f.NewsPerInstrument), 16)
	PrintKeyValue("Completeness", fmt.Sprintf(">= %.0f%%", q.MinCompleteness*100), 16)
	PrintKeyValue("Price range", fmt.Sprintf("[%.2f, %.2f]", q.MinPrice, q.MaxPrice), 16)
	PrintKeyValue("Max |return|", fmt.Sprintf("%.0f%%", q.MaxReturnPct), 16)
	PrintKeyValue("Pass threshold", fmt.Sprintf("%.0f%%", q.PassThreshold*100), 16)
	PrintKeyValue("Report", fmt.Sprintf("top %d, policy %s, %s → %s", r.TopN, r.Policy, strings.Join(r.Formats, "+"), r.OutputDir), 16)
	PrintKeyValue("Timeout", ucfg.Run.Timeout.String(), 16)
	PrintDoubleSeparator()

	return nil
}
