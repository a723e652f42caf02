package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	universeFile string
	instruments  string
	outputDir    string
	verbose      bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:           "recap",
	Short:         "Daily market recap pipeline",
	SilenceUsage:  true,
	SilenceErrors: true,
	Long: `Market Recap CLI

가격/뉴스 수집 → 수익률 계산 → 품질 게이트 → 리포트 생성.

Usage:
  go run ./cmd/recap [command]

Examples:
  go run ./cmd/recap run
  go run ./cmd/recap run --date 2024-01-05 --instruments AAPL,MSFT
  go run ./cmd/recap schedule
  go run ./cmd/recap serve
  go run ./cmd/recap universe`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		PrintError(err.Error())
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().StringVar(&universeFile, "universe", "", "universe YAML file (default: $UNIVERSE_FILE or built-in list)")
	rootCmd.PersistentFlags().StringVar(&instruments, "instruments", "", "comma separated tickers overriding the universe (e.g. AAPL,MSFT)")
	rootCmd.PersistentFlags().StringVar(&outputDir, "output-dir", "", "artifact directory (default: report.output_dir)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}
