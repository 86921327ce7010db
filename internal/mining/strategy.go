package mining

import "fmt"

// Strategy is the contract shared by all clustering algorithms: partition
// the vectors into raw clusters of user ids. Implementations are pure with
// respect to their inputs; the centroid strategy additionally draws from
// the RNG supplied in Config.
//
// Every strategy returns zero clusters, not an error, when
// min_cluster_size exceeds the number of users.
type Strategy interface {
	Cluster(vectors []AccessVector, globalPermissions []string, cfg Config) []RawCluster
}

// NewStrategy selects the strategy variant for the configured algorithm.
func NewStrategy(algorithm Algorithm) (Strategy, error) {
	switch algorithm {
	case AlgorithmCentroid:
		return &CentroidStrategy{}, nil
	case AlgorithmAgglomerative:
		return &AgglomerativeStrategy{}, nil
	case AlgorithmDensity:
		return &DensityStrategy{}, nil
	case AlgorithmAttribute:
		return &AttributeStrategy{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, algorithm)
}
