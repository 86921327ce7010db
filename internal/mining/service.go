package mining

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

// RunStore persists runs and results; *Repository is the Postgres
// implementation.
type RunStore interface {
	InsertRun(ctx context.Context, runID string, cfg Config, requestedBy string) (Run, error)
	UpdateStatus(ctx context.Context, runID string, status RunStatus) error
	SaveResult(ctx context.Context, result *MiningResult) error
	GetRun(ctx context.Context, runID string) (Run, error)
	ListRuns(ctx context.Context, limit int) ([]Run, error)
}

// SnapshotPort loads the access population for a run.
type SnapshotPort interface {
	Snapshot(ctx context.Context) ([]AccessRecord, error)
}

// Enqueuer submits a queued mining task for the run id.
type Enqueuer interface {
	EnqueueMiningRun(ctx context.Context, runID string) error
}

// RunRequest captures the recognised trigger options.
type RunRequest struct {
	Algorithm              string  `json:"algorithm" validate:"required"`
	MinClusterSize         int     `json:"min_cluster_size" validate:"omitempty,min=1"`
	MaxClusters            int     `json:"max_clusters" validate:"omitempty,min=1"`
	MinPermissionFrequency float64 `json:"min_permission_frequency" validate:"omitempty,gt=0,lte=1"`
	IncludeRiskAnalysis    *bool   `json:"include_risk_analysis"`
	RequestedBy            string  `json:"requested_by"`
}

// Config resolves the request into a normalized engine configuration.
func (req RunRequest) Config() (Config, error) {
	algorithm, err := ParseAlgorithm(req.Algorithm)
	if err != nil {
		return Config{}, err
	}
	cfg := Config{
		Algorithm:              algorithm,
		MinClusterSize:         req.MinClusterSize,
		MaxClusters:            req.MaxClusters,
		MinPermissionFrequency: req.MinPermissionFrequency,
		IncludeRiskAnalysis:    true,
	}
	if req.IncludeRiskAnalysis != nil {
		cfg.IncludeRiskAnalysis = *req.IncludeRiskAnalysis
	}
	return cfg.Normalize(), nil
}

// Service owns the run lifecycle around the engine: persist, enqueue,
// process, and serve results.
type Service struct {
	store     RunStore
	snapshots SnapshotPort
	miner     *Miner
	cache     *Cache
	enqueuer  Enqueuer
	logger    *slog.Logger
	group     singleflight.Group
}

// NewService wires the run lifecycle dependencies. Cache and enqueuer may
// be nil; a nil enqueuer limits the service to synchronous processing.
func NewService(store RunStore, snapshots SnapshotPort, miner *Miner, cache *Cache, enqueuer Enqueuer, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:     store,
		snapshots: snapshots,
		miner:     miner,
		cache:     cache,
		enqueuer:  enqueuer,
		logger:    logger,
	}
}

// TriggerRun registers a pending run and submits it to the queue.
func (s *Service) TriggerRun(ctx context.Context, req RunRequest) (Run, error) {
	cfg, err := req.Config()
	if err != nil {
		return Run{}, err
	}
	runID := uuid.NewString()
	run, err := s.store.InsertRun(ctx, runID, cfg, req.RequestedBy)
	if err != nil {
		return Run{}, err
	}
	if s.enqueuer != nil {
		if err := s.enqueuer.EnqueueMiningRun(ctx, runID); err != nil {
			if statusErr := s.store.UpdateStatus(ctx, runID, RunFailed); statusErr != nil {
				s.logger.Error("mark run failed after enqueue error", slog.String("run_id", runID), slog.Any("error", statusErr))
			}
			return Run{}, fmt.Errorf("mining: enqueue run: %w", err)
		}
	}
	s.logger.Info("mining run queued", slog.String("run_id", runID), slog.String("algorithm", string(cfg.Algorithm)))
	return run, nil
}

// ProcessRun executes one queued run to its terminal state. Engine-level
// failures (insufficient data, unknown algorithm) are terminal and
// persisted, not returned. Snapshot failures are persisted as FAILED and
// also returned so job accounting records the failure; store errors
// propagate untouched so the queue retries while the run is still live.
func (s *Service) ProcessRun(ctx context.Context, runID string) error {
	run, err := s.store.GetRun(ctx, runID)
	if err != nil {
		return err
	}
	if run.Status == RunCompleted || run.Status == RunFailed {
		s.logger.Info("run already terminal, skipping", slog.String("run_id", runID), slog.String("status", string(run.Status)))
		return nil
	}
	if err := s.store.UpdateStatus(ctx, runID, RunRunning); err != nil {
		return err
	}

	records, err := s.snapshots.Snapshot(ctx)
	if err != nil {
		failed := s.failedResult(runID, run.Config, fmt.Sprintf("load access snapshot: %v", err))
		if saveErr := s.store.SaveResult(ctx, failed); saveErr != nil {
			return saveErr
		}
		return err
	}

	result := s.miner.MineWithJobID(ctx, runID, records, run.Config)
	if err := s.store.SaveResult(ctx, result); err != nil {
		return err
	}
	if err := s.cache.Put(ctx, result); err != nil {
		s.logger.Warn("cache mining result", slog.String("run_id", runID), slog.Any("error", err))
	}
	return nil
}

// GetRun serves one run, preferring the result cache for terminal runs.
// Concurrent reads of the same run collapse into a single store load.
func (s *Service) GetRun(ctx context.Context, runID string) (Run, error) {
	if cached, err := s.cache.Get(ctx, runID); err == nil && cached != nil {
		return runFromResult(cached), nil
	} else if err != nil {
		s.logger.Warn("mining cache read", slog.String("run_id", runID), slog.Any("error", err))
	}
	value, err, _ := s.group.Do(runID, func() (any, error) {
		run, err := s.store.GetRun(ctx, runID)
		if err != nil {
			return Run{}, err
		}
		if run.Result != nil && run.Result.Terminal() {
			if err := s.cache.Put(ctx, run.Result); err != nil {
				s.logger.Warn("cache mining result", slog.String("run_id", runID), slog.Any("error", err))
			}
		}
		return run, nil
	})
	if err != nil {
		return Run{}, err
	}
	return value.(Run), nil
}

// ListRuns returns recent runs without result payloads.
func (s *Service) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	return s.store.ListRuns(ctx, limit)
}

func (s *Service) failedResult(runID string, cfg Config, message string) *MiningResult {
	now := time.Now().UTC()
	return &MiningResult{
		JobID:                        runID,
		Status:                       RunFailed,
		Algorithm:                    cfg.Algorithm,
		ErrorMessage:                 message,
		StartedAt:                    now,
		CompletedAt:                  &now,
		Clusters:                     []RoleCluster{},
		RecommendedRoles:             []RoleRecommendation{},
		RedundantRoles:               []RedundantRolePair{},
		RoleConsolidationSuggestions: []string{},
	}
}

func runFromResult(result *MiningResult) Run {
	return Run{
		RunID:        result.JobID,
		Algorithm:    result.Algorithm,
		Status:       result.Status,
		ErrorMessage: result.ErrorMessage,
		Result:       result,
		CreatedAt:    result.StartedAt,
		CompletedAt:  result.CompletedAt,
	}
}
