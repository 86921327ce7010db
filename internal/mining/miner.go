package mining

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Miner is the top-level mining orchestrator. Each Mine invocation owns
// its working state (vectors, distance computations, in-progress clusters)
// and shares nothing with other runs except the registry, so concurrent
// runs are safe.
type Miner struct {
	vectorizer *Vectorizer
	checker    ConflictChecker
	registry   *Registry
	logger     *slog.Logger
	now        func() time.Time
}

// NewMiner builds a miner. The conflict checker and registry may be nil;
// a nil checker simply skips risk analysis.
func NewMiner(checker ConflictChecker, registry *Registry, logger *slog.Logger) *Miner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Miner{
		vectorizer: NewVectorizer(logger),
		checker:    checker,
		registry:   registry,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Mine runs the full pipeline under a fresh job id. See MineWithJobID.
func (m *Miner) Mine(ctx context.Context, records []AccessRecord, cfg Config) *MiningResult {
	return m.MineWithJobID(ctx, uuid.NewString(), records, cfg)
}

// MineWithJobID runs the full pipeline and always returns a MiningResult:
// failures are communicated through Status and ErrorMessage, never through
// a panic or error escaping this boundary. Hosts that persist runs ahead
// of execution pass their own job id.
func (m *Miner) MineWithJobID(ctx context.Context, jobID string, records []AccessRecord, cfg Config) (result *MiningResult) {
	cfg = cfg.Normalize()
	result = &MiningResult{
		JobID:                        jobID,
		Status:                       RunPending,
		Algorithm:                    cfg.Algorithm,
		StartedAt:                    m.now(),
		Clusters:                     []RoleCluster{},
		RecommendedRoles:             []RoleRecommendation{},
		RedundantRoles:               []RedundantRolePair{},
		RoleConsolidationSuggestions: []string{},
	}
	m.publish(result)

	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("mining run panicked", slog.String("job_id", result.JobID), slog.Any("panic", r))
			m.fail(result, fmt.Sprintf("internal error: %v", r))
		}
	}()

	logger := m.logger.With(slog.String("job_id", result.JobID), slog.String("algorithm", string(cfg.Algorithm)))

	strategy, err := NewStrategy(cfg.Algorithm)
	if err != nil {
		m.fail(result, err.Error())
		return result
	}

	vectors, globalPermissions, skipped := m.vectorizer.Vectorize(records)
	if skipped > 0 {
		logger.Warn("malformed records dropped", slog.Int("skipped", skipped))
	}
	result.TotalUsers = len(vectors)
	result.UniquePermissions = len(globalPermissions)
	for _, vec := range vectors {
		result.TotalPermissions += len(vec.Permissions)
	}

	if len(vectors) < cfg.MinClusterSize {
		m.fail(result, fmt.Sprintf("%v: have %d users, need at least %d", ErrInsufficientData, len(vectors), cfg.MinClusterSize))
		return result
	}

	result.Status = RunRunning
	m.publish(result)
	logger.Info("clustering started", slog.Int("users", len(vectors)), slog.Int("unique_permissions", len(globalPermissions)))

	raw := strategy.Cluster(vectors, globalPermissions, cfg)
	// Agglomerative merges and density noise handling can leave clusters
	// below the configured floor; drop them before analysis.
	kept := raw[:0]
	for _, rc := range raw {
		if len(rc.MemberIDs) >= cfg.MinClusterSize {
			kept = append(kept, rc)
		}
	}

	byUser := make(map[string]AccessVector, len(vectors))
	for _, vec := range vectors {
		byUser[vec.UserID] = vec
	}

	analyzer := NewAnalyzer(cfg)
	result.Clusters = analyzer.Analyze(kept, byUser)

	if cfg.IncludeRiskAnalysis {
		applyRiskAnalysis(ctx, m.checker, result.Clusters, logger)
	}

	result.SilhouetteScore = silhouetteScore(result.Clusters, byUser)
	result.TotalCoverage = totalCoverage(result.Clusters, byUser)
	result.RedundantRoles = redundantRoles(result.Clusters)
	result.RoleConsolidationSuggestions = consolidationSuggestions(result.Clusters)
	result.RecommendedRoles = roleRecommendations(result.Clusters)

	completed := m.now()
	result.CompletedAt = &completed
	result.DurationSeconds = completed.Sub(result.StartedAt).Seconds()
	result.Status = RunCompleted
	m.publish(result)
	logger.Info("clustering completed",
		slog.Int("clusters", len(result.Clusters)),
		slog.Float64("silhouette", result.SilhouetteScore),
		slog.Float64("coverage", result.TotalCoverage),
		slog.Float64("duration_seconds", result.DurationSeconds),
	)
	return result
}

func (m *Miner) fail(result *MiningResult, message string) {
	completed := m.now()
	result.Status = RunFailed
	result.ErrorMessage = message
	result.CompletedAt = &completed
	result.DurationSeconds = completed.Sub(result.StartedAt).Seconds()
	m.publish(result)
}

func (m *Miner) publish(result *MiningResult) {
	if m.registry != nil {
		m.registry.Put(*result)
	}
}
