package commands

import (
	"fmt"
	"time"

	"github.com/wonny/recap/backend/internal/brain"
	"github.com/wonny/recap/backend/internal/contracts"
)

// ═══════════════════════════════════════════════════════════
// Common Formatting Utilities
// 모든 커맨드가 동일한 출력 포맷을 사용하도록 통일
// ═══════════════════════════════════════════════════════════

// PrintHeader prints a formatted run header
func PrintHeader(title string, date time.Time, instruments int) {
	fmt.Println()
	PrintDoubleSeparator()
	fmt.Printf("  %s\n", title)
	PrintSeparator()
	fmt.Printf("  Date        : %s\n", date.Format(contracts.DateLayout))
	fmt.Printf("  Instruments : %d\n", instruments)
	PrintSeparator()
}

// PrintRunResult prints the outcome of one pipeline run
func PrintRunResult(result *brain.RunResult) {
	if result == nil {
		return
	}

	fmt.Println()
	PrintKeyValue("Run ID", result.RunID, 10)
	PrintKeyValue("Status", string(result.Status), 10)
	PrintKeyValue("Duration", fmt.Sprintf("%.2fs", result.Duration.Seconds()), 10)
	PrintKeyValue("Stages", fmt.Sprintf("%d/%d", len(result.CompletedStages), len(contracts.AllStages())), 10)

	if result.Quality != nil {
		PrintKeyValue("Quality", fmt.Sprintf("%.0f%% (threshold %.0f%%)", result.Quality.Score*100, result.Quality.Threshold*100), 10)
		for _, c := range result.Quality.Checks {
			mark := "✓"
			if !c.Passed {
				mark = "✗"
			}
			fmt.Printf("     %s %-15s %s\n", mark, c.Rule, c.Detail)
		}
	}

	if result.Recap != nil {
		s := result.Recap.Summary
		PrintKeyValue("Market", fmt.Sprintf("avg %+.2f%%, %d up / %d down", s.MeanReturnPct, s.Gainers, s.Losers), 10)
	}

	fmt.Println()
	switch result.Status {
	case contracts.RunCompleted:
		for _, path := range result.Artifacts {
			PrintSuccess("Report written: " + path)
		}
	case contracts.RunDegraded:
		if len(result.Artifacts) > 0 {
			for _, path := range result.Artifacts {
				PrintWarning("Report marked DEGRADED: " + path)
			}
		} else {
			PrintWarning("Report withheld: data quality check failed")
		}
	}
}

// PrintSeparator prints a visual separator
func PrintSeparator() {
	fmt.Println("───────────────────────────────────────────────────────────")
}

// PrintDoubleSeparator prints a double-line separator
func PrintDoubleSeparator() {
	fmt.Println("═══════════════════════════════════════════════════════════")
}

// PrintWarning prints a warning message
func PrintWarning(message string) {
	fmt.Printf("⚠️  %s\n", message)
}

// PrintSuccess prints a success message
func PrintSuccess(message string) {
	fmt.Printf("✅ %s\n", message)
}

// PrintError prints an error message
func PrintError(message string) {
	fmt.Printf("❌ %s\n", message)
}

// PrintInfo prints an info message
func PrintInfo(message string) {
	fmt.Printf("ℹ️  %s\n", message)
}

// PrintKeyValue prints key-value pairs
func PrintKeyValue(key string, value string, keyWidth int) {
	fmt.Printf("   %-*s : %s\n", keyWidth, key, value)
}
