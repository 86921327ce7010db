package mining

const (
	labelUnvisited = 0
	labelNoise     = -1
)

// DensityStrategy is a DBSCAN style partitioner over Jaccard distance.
// Users never reached from any core point are labelled noise and excluded
// from the output, so this is the one strategy whose partition is not
// exhaustive.
type DensityStrategy struct{}

// Cluster grows clusters by density-reachability from core points. A user
// is a core point when at least min_cluster_size users (itself included)
// sit within the eps neighborhood.
func (s *DensityStrategy) Cluster(vectors []AccessVector, globalPermissions []string, cfg Config) []RawCluster {
	n := len(vectors)
	if n == 0 || cfg.MinClusterSize > n {
		return nil
	}
	minSamples := cfg.MinClusterSize
	eps := cfg.Eps

	neighbors := make([][]int, n)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			if i == j {
				neighbors[i] = append(neighbors[i], i)
				continue
			}
			if JaccardDistance(vectors[i].Permissions, vectors[j].Permissions) <= eps {
				neighbors[i] = append(neighbors[i], j)
				neighbors[j] = append(neighbors[j], i)
			}
		}
	}

	labels := make([]int, n)
	clusterID := 0
	for i := 0; i < n; i++ {
		if labels[i] != labelUnvisited {
			continue
		}
		if len(neighbors[i]) < minSamples {
			labels[i] = labelNoise
			continue
		}
		clusterID++
		labels[i] = clusterID
		queue := append([]int(nil), neighbors[i]...)
		for len(queue) > 0 {
			p := queue[0]
			queue = queue[1:]
			if labels[p] == labelNoise {
				// Border point: reachable but not core.
				labels[p] = clusterID
			}
			if labels[p] != labelUnvisited {
				continue
			}
			labels[p] = clusterID
			if len(neighbors[p]) >= minSamples {
				queue = append(queue, neighbors[p]...)
			}
		}
	}

	members := make(map[int][]string, clusterID)
	for i, vec := range vectors {
		if labels[i] == labelNoise {
			continue
		}
		members[labels[i]] = append(members[labels[i]], vec.UserID)
	}
	clusters := make([]RawCluster, 0, clusterID)
	for id := 1; id <= clusterID; id++ {
		if ids := members[id]; len(ids) > 0 {
			clusters = append(clusters, RawCluster{MemberIDs: ids})
		}
	}
	return clusters
}
