package mining

import (
	"math/rand"
	"time"
)

// CentroidStrategy is a K-Means style partitioner over dense binary
// vectors. Initial centroids are sampled uniformly from the user vectors,
// so unseeded runs are intentionally non-deterministic; tests inject a
// seeded rand via Config.Rand.
type CentroidStrategy struct{}

// Cluster assigns every user to the nearest of k centroids, recomputing
// centroids as per-dimension means until assignments stabilise or the
// iteration cap is reached. Hitting the cap is not an error; the last
// assignment wins.
func (s *CentroidStrategy) Cluster(vectors []AccessVector, globalPermissions []string, cfg Config) []RawCluster {
	n := len(vectors)
	if n == 0 || cfg.MinClusterSize > n {
		return nil
	}
	limit := n / cfg.MinClusterSize
	if limit == 0 {
		return nil
	}
	k := cfg.MaxClusters
	if k > limit {
		k = limit
	}
	if k < 2 {
		k = 2
	}
	if k > n {
		k = n
	}

	rng := cfg.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	points := make([][]float64, n)
	for i, vec := range vectors {
		points[i] = BinaryVector(vec, globalPermissions)
	}
	dims := len(globalPermissions)

	centroids := make([][]float64, k)
	for i, idx := range rng.Perm(n)[:k] {
		centroid := make([]float64, dims)
		copy(centroid, points[idx])
		centroids[i] = centroid
	}

	assignments := make([]int, n)
	previous := make([]int, n)
	for i := range previous {
		previous[i] = -1
	}

	for iter := 0; iter < cfg.MaxIterations; iter++ {
		for i, point := range points {
			best := 0
			bestDist := EuclideanDistance(point, centroids[0])
			for c := 1; c < k; c++ {
				// Strict comparison keeps the lowest cluster index on ties.
				if d := EuclideanDistance(point, centroids[c]); d < bestDist {
					best = c
					bestDist = d
				}
			}
			assignments[i] = best
		}
		if equalAssignments(assignments, previous) {
			break
		}
		copy(previous, assignments)

		counts := make([]int, k)
		sums := make([][]float64, k)
		for c := range sums {
			sums[c] = make([]float64, dims)
		}
		for i, point := range points {
			c := assignments[i]
			counts[c]++
			for d, v := range point {
				sums[c][d] += v
			}
		}
		for c := 0; c < k; c++ {
			if counts[c] == 0 {
				// Empty cluster keeps its previous centroid.
				continue
			}
			for d := range sums[c] {
				sums[c][d] /= float64(counts[c])
			}
			centroids[c] = sums[c]
		}
	}

	members := make([][]string, k)
	for i, vec := range vectors {
		c := assignments[i]
		members[c] = append(members[c], vec.UserID)
	}
	clusters := make([]RawCluster, 0, k)
	for _, ids := range members {
		if len(ids) == 0 {
			continue
		}
		clusters = append(clusters, RawCluster{MemberIDs: ids})
	}
	return clusters
}

func equalAssignments(a, b []int) bool {
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
