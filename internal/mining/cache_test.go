package mining

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCache(client, time.Minute)
}

func terminalResult(jobID string) *MiningResult {
	completed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return &MiningResult{
		JobID:       jobID,
		Status:      RunCompleted,
		Algorithm:   AlgorithmAttribute,
		TotalUsers:  6,
		StartedAt:   completed.Add(-2 * time.Second),
		CompletedAt: &completed,
	}
}

func TestCacheRoundTrip(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()

	if err := cache.Put(ctx, terminalResult("run-1")); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, err := cache.Get(ctx, "run-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil || got.TotalUsers != 6 || got.Status != RunCompleted {
		t.Fatalf("unexpected cached result: %+v", got)
	}

	if err := cache.Invalidate(ctx, "run-1"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if got, err := cache.Get(ctx, "run-1"); err != nil || got != nil {
		t.Fatalf("expected miss after invalidate, got %+v err %v", got, err)
	}
}

func TestCacheSkipsNonTerminalResults(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()

	running := terminalResult("run-2")
	running.Status = RunRunning
	if err := cache.Put(ctx, running); err != nil {
		t.Fatalf("put: %v", err)
	}
	if got, err := cache.Get(ctx, "run-2"); err != nil || got != nil {
		t.Fatalf("running snapshots must not be cached, got %+v err %v", got, err)
	}
}

func TestCacheNilClientIsTransparent(t *testing.T) {
	var cache *Cache
	ctx := context.Background()
	if err := cache.Put(ctx, terminalResult("run-3")); err != nil {
		t.Fatalf("nil cache put: %v", err)
	}
	if got, err := cache.Get(ctx, "run-3"); err != nil || got != nil {
		t.Fatalf("nil cache get should miss silently, got %+v err %v", got, err)
	}
}
