package mining

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/sentinel-iga/sentinel/internal/jobs"
	"github.com/sentinel-iga/sentinel/jobs"
)

// RunJob processes queued mining run tasks.
type RunJob struct {
	service *Service
	metrics *jobmetrics.Metrics
	logger  *slog.Logger
}

// NewRunJob constructs a job handler.
func NewRunJob(service *Service, metrics *jobmetrics.Metrics, logger *slog.Logger) *RunJob {
	return &RunJob{service: service, metrics: metrics, logger: logger}
}

// Handle fulfils the asynq.HandlerFunc contract.
func (j *RunJob) Handle(ctx context.Context, task *asynq.Task) error {
	var payload jobs.MiningRunPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.RunID == "" {
		return asynq.SkipRetry
	}
	tracker := j.metrics.Track(jobs.TaskMiningRun)
	if err := tracker.End(j.service.ProcessRun(ctx, payload.RunID)); err != nil {
		if errors.Is(err, ErrRunNotFound) {
			return asynq.SkipRetry
		}
		if j.logger != nil {
			j.logger.Error("mining run", slog.String("run_id", payload.RunID), slog.Any("error", err))
		}
		return err
	}
	j.recordOutcome(ctx, payload.RunID)
	return nil
}

func (j *RunJob) recordOutcome(ctx context.Context, runID string) {
	if j.metrics == nil {
		return
	}
	run, err := j.service.GetRun(ctx, runID)
	if err != nil || run.Result == nil || run.Result.Status != RunCompleted {
		return
	}
	j.metrics.AddClusters(string(run.Result.Algorithm), len(run.Result.Clusters))
	for _, cluster := range run.Result.Clusters {
		for _, conflict := range cluster.SoDConflicts {
			j.metrics.AddConflicts(conflict.Severity, 1)
		}
	}
}

// ScheduledJob triggers a fresh mining run on a cron schedule.
type ScheduledJob struct {
	service *Service
	logger  *slog.Logger
}

// NewScheduledJob constructs the recurring trigger handler.
func NewScheduledJob(service *Service, logger *slog.Logger) *ScheduledJob {
	return &ScheduledJob{service: service, logger: logger}
}

// Handle fulfils the asynq.HandlerFunc contract.
func (j *ScheduledJob) Handle(ctx context.Context, task *asynq.Task) error {
	var payload jobs.MiningScheduledPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.Algorithm == "" {
		payload.Algorithm = string(AlgorithmAttribute)
	}
	run, err := j.service.TriggerRun(ctx, RunRequest{Algorithm: payload.Algorithm, RequestedBy: payload.RequestedBy})
	if err != nil {
		if errors.Is(err, ErrUnknownAlgorithm) {
			return asynq.SkipRetry
		}
		return err
	}
	if j.logger != nil {
		j.logger.Info("scheduled mining run triggered", slog.String("run_id", run.RunID), slog.String("algorithm", payload.Algorithm))
	}
	return nil
}
