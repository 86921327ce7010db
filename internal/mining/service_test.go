package mining

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"
)

type stubStore struct {
	runs     map[string]Run
	inserted []string
	statuses []RunStatus
	saved    []*MiningResult

	insertErr  error
	enqueueErr error
}

func newStubStore() *stubStore {
	return &stubStore{runs: map[string]Run{}}
}

func (s *stubStore) InsertRun(_ context.Context, runID string, cfg Config, requestedBy string) (Run, error) {
	if s.insertErr != nil {
		return Run{}, s.insertErr
	}
	run := Run{
		RunID:       runID,
		Algorithm:   cfg.Algorithm,
		Status:      RunPending,
		Config:      cfg,
		RequestedBy: requestedBy,
		CreatedAt:   time.Now().UTC(),
	}
	s.runs[runID] = run
	s.inserted = append(s.inserted, runID)
	return run, nil
}

func (s *stubStore) UpdateStatus(_ context.Context, runID string, status RunStatus) error {
	run, ok := s.runs[runID]
	if !ok {
		return ErrRunNotFound
	}
	run.Status = status
	s.runs[runID] = run
	s.statuses = append(s.statuses, status)
	return nil
}

func (s *stubStore) SaveResult(_ context.Context, result *MiningResult) error {
	run, ok := s.runs[result.JobID]
	if !ok {
		return ErrRunNotFound
	}
	run.Status = result.Status
	run.ErrorMessage = result.ErrorMessage
	run.Result = result
	run.CompletedAt = result.CompletedAt
	s.runs[result.JobID] = run
	s.saved = append(s.saved, result)
	return nil
}

func (s *stubStore) GetRun(_ context.Context, runID string) (Run, error) {
	run, ok := s.runs[runID]
	if !ok {
		return Run{}, ErrRunNotFound
	}
	return run, nil
}

func (s *stubStore) ListRuns(_ context.Context, limit int) ([]Run, error) {
	out := make([]Run, 0, len(s.runs))
	for _, run := range s.runs {
		out = append(out, run)
	}
	return out, nil
}

type stubSnapshots struct {
	records []AccessRecord
	err     error
}

func (s *stubSnapshots) Snapshot(context.Context) ([]AccessRecord, error) {
	return s.records, s.err
}

type stubEnqueuer struct {
	enqueued []string
	err      error
}

func (s *stubEnqueuer) EnqueueMiningRun(_ context.Context, runID string) error {
	if s.err != nil {
		return s.err
	}
	s.enqueued = append(s.enqueued, runID)
	return nil
}

func newTestService(store *stubStore, snapshots *stubSnapshots, enqueuer *stubEnqueuer) *Service {
	miner := NewMiner(nil, NewRegistry(), slog.Default())
	var eq Enqueuer
	if enqueuer != nil {
		eq = enqueuer
	}
	return NewService(store, snapshots, miner, nil, eq, slog.Default())
}

func TestTriggerRunPersistsAndEnqueues(t *testing.T) {
	store := newStubStore()
	enqueuer := &stubEnqueuer{}
	svc := newTestService(store, &stubSnapshots{}, enqueuer)

	run, err := svc.TriggerRun(context.Background(), RunRequest{Algorithm: "attribute-hierarchy", RequestedBy: "auditor"})
	if err != nil {
		t.Fatalf("trigger: %v", err)
	}
	if run.Status != RunPending {
		t.Fatalf("expected PENDING, got %s", run.Status)
	}
	if run.Config.MinClusterSize != 3 || run.Config.MaxClusters != 20 {
		t.Fatalf("config not normalized: %+v", run.Config)
	}
	if len(enqueuer.enqueued) != 1 || enqueuer.enqueued[0] != run.RunID {
		t.Fatalf("run not enqueued: %v", enqueuer.enqueued)
	}
}

func TestTriggerRunRejectsUnknownAlgorithm(t *testing.T) {
	store := newStubStore()
	svc := newTestService(store, &stubSnapshots{}, &stubEnqueuer{})

	if _, err := svc.TriggerRun(context.Background(), RunRequest{Algorithm: "voronoi"}); !errors.Is(err, ErrUnknownAlgorithm) {
		t.Fatalf("expected ErrUnknownAlgorithm, got %v", err)
	}
	if len(store.inserted) != 0 {
		t.Fatalf("no run should be persisted for an invalid request")
	}
}

func TestTriggerRunMarksFailedWhenEnqueueFails(t *testing.T) {
	store := newStubStore()
	enqueuer := &stubEnqueuer{err: errors.New("redis down")}
	svc := newTestService(store, &stubSnapshots{}, enqueuer)

	_, err := svc.TriggerRun(context.Background(), RunRequest{Algorithm: "centroid"})
	if err == nil {
		t.Fatal("expected enqueue error to propagate")
	}
	if len(store.inserted) != 1 {
		t.Fatalf("run should have been persisted before enqueue")
	}
	if got := store.runs[store.inserted[0]].Status; got != RunFailed {
		t.Fatalf("expected FAILED after enqueue error, got %s", got)
	}
}

func TestProcessRunCompletesAndPersistsResult(t *testing.T) {
	store := newStubStore()
	snapshots := &stubSnapshots{records: financeRecords(6)}
	svc := newTestService(store, snapshots, nil)

	run, err := svc.TriggerRun(context.Background(), RunRequest{Algorithm: "attribute-hierarchy"})
	if err != nil {
		t.Fatalf("trigger: %v", err)
	}
	if err := svc.ProcessRun(context.Background(), run.RunID); err != nil {
		t.Fatalf("process: %v", err)
	}

	stored := store.runs[run.RunID]
	if stored.Status != RunCompleted {
		t.Fatalf("expected COMPLETED, got %s (%s)", stored.Status, stored.ErrorMessage)
	}
	if stored.Result == nil || len(stored.Result.Clusters) != 1 {
		t.Fatalf("expected one persisted cluster, got %+v", stored.Result)
	}
	if stored.Result.JobID != run.RunID {
		t.Fatalf("result job id %q does not match run id %q", stored.Result.JobID, run.RunID)
	}
}

func TestProcessRunPersistsEngineFailureWithoutError(t *testing.T) {
	store := newStubStore()
	snapshots := &stubSnapshots{records: financeRecords(2)}
	svc := newTestService(store, snapshots, nil)

	run, err := svc.TriggerRun(context.Background(), RunRequest{Algorithm: "centroid"})
	if err != nil {
		t.Fatalf("trigger: %v", err)
	}
	if err := svc.ProcessRun(context.Background(), run.RunID); err != nil {
		t.Fatalf("engine failures must not bubble as handler errors, got %v", err)
	}
	stored := store.runs[run.RunID]
	if stored.Status != RunFailed || stored.Result == nil || stored.Result.ErrorMessage == "" {
		t.Fatalf("expected persisted FAILED result, got %+v", stored)
	}
}

func TestProcessRunRecordsSnapshotFailure(t *testing.T) {
	store := newStubStore()
	snapshots := &stubSnapshots{err: errors.New("directory unavailable")}
	svc := newTestService(store, snapshots, nil)

	run, err := svc.TriggerRun(context.Background(), RunRequest{Algorithm: "density"})
	if err != nil {
		t.Fatalf("trigger: %v", err)
	}
	if err := svc.ProcessRun(context.Background(), run.RunID); err == nil {
		t.Fatal("expected snapshot error to propagate for retry")
	}
	if got := store.runs[run.RunID].Status; got != RunFailed {
		t.Fatalf("expected FAILED recorded on snapshot error, got %s", got)
	}
}

func TestProcessRunSkipsTerminalRuns(t *testing.T) {
	store := newStubStore()
	svc := newTestService(store, &stubSnapshots{records: financeRecords(6)}, nil)

	run, err := svc.TriggerRun(context.Background(), RunRequest{Algorithm: "attribute-hierarchy"})
	if err != nil {
		t.Fatalf("trigger: %v", err)
	}
	if err := svc.ProcessRun(context.Background(), run.RunID); err != nil {
		t.Fatalf("process: %v", err)
	}
	saved := len(store.saved)
	if err := svc.ProcessRun(context.Background(), run.RunID); err != nil {
		t.Fatalf("reprocess: %v", err)
	}
	if len(store.saved) != saved {
		t.Fatalf("terminal run must not be reprocessed")
	}
}

func TestGetRunUnknownID(t *testing.T) {
	svc := newTestService(newStubStore(), &stubSnapshots{}, nil)
	if _, err := svc.GetRun(context.Background(), "missing"); !errors.Is(err, ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound, got %v", err)
	}
}
