package mining

import (
	"math"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func permSet(keys ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		set[key] = struct{}{}
	}
	return set
}

func TestJaccardDistanceEdgeCases(t *testing.T) {
	if d := JaccardDistance(permSet(), permSet()); d != 0.0 {
		t.Fatalf("two empty sets should be identical, got %f", d)
	}
	if d := JaccardDistance(permSet("a"), permSet()); d != 1.0 {
		t.Fatalf("one empty set should be maximally distant, got %f", d)
	}
	if d := JaccardDistance(permSet(), permSet("a")); d != 1.0 {
		t.Fatalf("empty-set rule must hold on either side, got %f", d)
	}
	if d := JaccardDistance(permSet("a", "b"), permSet("a", "b")); d != 0.0 {
		t.Fatalf("identical sets should have zero distance, got %f", d)
	}
	got := JaccardDistance(permSet("a", "b", "c"), permSet("b", "c", "d"))
	if math.Abs(got-0.5) > 1e-9 {
		t.Fatalf("expected 1 - 2/4 = 0.5, got %f", got)
	}
}

func TestEuclideanDistance(t *testing.T) {
	a := []float64{1, 0, 1, 0}
	b := []float64{0, 0, 1, 1}
	if got := EuclideanDistance(a, b); math.Abs(got-math.Sqrt(2)) > 1e-9 {
		t.Fatalf("expected sqrt(2), got %f", got)
	}
	if got := EuclideanDistance(a, a); got != 0 {
		t.Fatalf("distance to self should be zero, got %f", got)
	}
}

// TestJaccardProperties verifies the metric laws the clustering strategies
// rely on: symmetry, identity and the [0,1] range.
func TestJaccardProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50

	properties := gopter.NewProperties(parameters)

	toSet := func(keys []string) map[string]struct{} {
		return permSet(keys...)
	}

	properties.Property("symmetric", prop.ForAll(
		func(a, b []string) bool {
			return JaccardDistance(toSet(a), toSet(b)) == JaccardDistance(toSet(b), toSet(a))
		},
		gen.SliceOf(gen.AlphaString()),
		gen.SliceOf(gen.AlphaString()),
	))

	properties.Property("identity", prop.ForAll(
		func(a []string) bool {
			return JaccardDistance(toSet(a), toSet(a)) == 0.0
		},
		gen.SliceOf(gen.AlphaString()),
	))

	properties.Property("bounded", prop.ForAll(
		func(a, b []string) bool {
			d := JaccardDistance(toSet(a), toSet(b))
			return d >= 0.0 && d <= 1.0
		},
		gen.SliceOf(gen.AlphaString()),
		gen.SliceOf(gen.AlphaString()),
	))

	properties.TestingRun(t)
}
