package mining

// AgglomerativeStrategy merges singleton clusters bottom-up using
// average-linkage Jaccard distance until the target cluster count is
// reached. After a merge, the distance from the merged cluster to any
// other is the simple average of the two pre-merge distances; this
// unweighted average is the engine's defined behaviour, not the
// member-weighted textbook variant.
type AgglomerativeStrategy struct{}

// Cluster performs the hierarchical merge. Ties on the smallest distance
// are broken by merging the lowest-indexed pair first.
func (s *AgglomerativeStrategy) Cluster(vectors []AccessVector, globalPermissions []string, cfg Config) []RawCluster {
	n := len(vectors)
	if n == 0 || cfg.MinClusterSize > n {
		return nil
	}
	target := cfg.MaxClusters
	if target < 1 {
		target = 1
	}

	// Pairwise distance matrix over active clusters, seeded from singletons.
	dist := make([][]float64, n)
	for i := range dist {
		dist[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d := JaccardDistance(vectors[i].Permissions, vectors[j].Permissions)
			dist[i][j] = d
			dist[j][i] = d
		}
	}

	members := make([][]int, n)
	for i := range members {
		members[i] = []int{i}
	}
	active := make([]int, n)
	for i := range active {
		active[i] = i
	}

	for len(active) > target {
		bestA, bestB := -1, -1
		bestDist := 0.0
		for ai := 0; ai < len(active); ai++ {
			for bi := ai + 1; bi < len(active); bi++ {
				i, j := active[ai], active[bi]
				if bestA == -1 || dist[i][j] < bestDist {
					bestA, bestB = ai, bi
					bestDist = dist[i][j]
				}
			}
		}
		if bestA == -1 {
			break
		}
		i, j := active[bestA], active[bestB]
		members[i] = append(members[i], members[j]...)
		for _, k := range active {
			if k == i || k == j {
				continue
			}
			avg := (dist[i][k] + dist[j][k]) / 2
			dist[i][k] = avg
			dist[k][i] = avg
		}
		active = append(active[:bestB], active[bestB+1:]...)
	}

	clusters := make([]RawCluster, 0, len(active))
	for _, idx := range active {
		ids := make([]string, 0, len(members[idx]))
		for _, m := range members[idx] {
			ids = append(ids, vectors[m].UserID)
		}
		clusters = append(clusters, RawCluster{MemberIDs: ids})
	}
	return clusters
}
