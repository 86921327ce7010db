package directory

import (
	"context"

	"github.com/sentinel-iga/sentinel/internal/mining"
)

// SnapshotPort loads the population for a mining run.
type SnapshotPort interface {
	Snapshot(ctx context.Context) ([]mining.AccessRecord, error)
}

// Service exposes directory reads to the rest of the application.
type Service struct {
	repo SnapshotPort
}

// NewService builds the service.
func NewService(repo SnapshotPort) *Service {
	return &Service{repo: repo}
}

// Snapshot returns the current access population.
func (s *Service) Snapshot(ctx context.Context) ([]mining.AccessRecord, error) {
	return s.repo.Snapshot(ctx)
}
