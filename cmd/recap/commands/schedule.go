package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wonny/recap/backend/internal/scheduler"
	"github.com/wonny/recap/backend/internal/scheduler/jobs"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "크론 스케줄로 리캡 실행 (데몬)",
	Long: `RECAP_SCHEDULE (초 포함 cron 식, 기본 "0 30 18 * * MON-FRI")에 맞춰
리캡을 실행합니다. 실패한 실행은 RECAP_JOB_RETRIES 만큼
RECAP_JOB_RETRY_DELAY 간격으로 다시 실행합니다. 상태 API가 필요하면 serve를 사용하세요.

스케줄러는 Ctrl+C로 종료할 수 있습니다.

Example:
  RECAP_SCHEDULE="0 0 22 * * *" go run ./cmd/recap schedule`,
	RunE: runSchedule,
}

func init() {
	rootCmd.AddCommand(scheduleCmd)
}

// initScheduler registers the recap job on a new scheduler
func initScheduler(a *app) (*scheduler.Scheduler, error) {
	sched := scheduler.New(a.logger, scheduler.WithRetry(a.cfg.JobRetries, a.cfg.JobRetryDelay))
	job := jobs.NewRecapJob(a.orchestrator, a.cfg.Schedule, a.logger)
	if err := sched.AddJob(job); err != nil {
		return nil, err
	}
	return sched, nil
}

func runSchedule(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return fmt.Errorf("init: %w", err)
	}

	sched, err := initScheduler(a)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	sched.Start()

	PrintSuccess("Scheduler started")
	PrintKeyValue("Jobs", strings.Join(sched.GetAllJobs(), ", "), 10)
	PrintKeyValue("Schedule", a.cfg.Schedule, 10)
	PrintKeyValue("Retries", fmt.Sprintf("%d (every %s)", a.cfg.JobRetries, a.cfg.JobRetryDelay), 10)
	PrintInfo("Press Ctrl+C to stop")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	fmt.Println("\nShutting down scheduler...")
	sched.Stop()
	return nil
}
