package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/recap/backend/internal/brain"
	"github.com/wonny/recap/backend/internal/contracts"
	"github.com/wonny/recap/backend/pkg/logger"
)

// JobName is the registered name of the daily recap job
const JobName = "market_recap"

// Runner executes one pipeline run (*brain.Orchestrator)
type Runner interface {
	Run(ctx context.Context, config brain.RunConfig) (*brain.RunResult, error)
}

// RecapJob runs the market recap pipeline on a cron schedule
// ⭐ SSOT: 일일 리캡 스케줄은 이 Job에서만
type RecapJob struct {
	runner   Runner
	schedule string
	logger   *logger.Logger
	now      func() time.Time
}

// NewRecapJob creates a new recap job
func NewRecapJob(runner Runner, schedule string, log *logger.Logger) *RecapJob {
	return &RecapJob{
		runner:   runner,
		schedule: schedule,
		logger:   log.WithField("job", JobName),
		now:      time.Now,
	}
}

// Name returns the job name
func (j *RecapJob) Name() string {
	return JobName
}

// Schedule returns the cron schedule
func (j *RecapJob) Schedule() string {
	return j.schedule
}

// Run executes one recap for today's date.
// A DEGRADED run is not an error; only FAILED runs are.
func (j *RecapJob) Run(ctx context.Context) error {
	date := j.now()
	j.logger.WithField("date", date.Format(contracts.DateLayout)).Info("Starting scheduled market recap")

	result, err := j.runner.Run(ctx, brain.RunConfig{Date: date})
	if err != nil {
		return fmt.Errorf("market recap %s: %w", date.Format(contracts.DateLayout), err)
	}

	log := j.logger.WithFields(map[string]interface{}{
		"run_id":    result.RunID,
		"status":    result.Status,
		"artifacts": result.Artifacts,
	})
	if result.Status == contracts.RunDegraded {
		log.Warn("Scheduled market recap degraded")
		return nil
	}
	log.Info("Scheduled market recap completed")
	return nil
}
