package mining

import (
	"sort"
	"strings"
)

// AttributeStrategy groups users by department, then by job title within
// department, with no distance computation at all. It is the fallback for
// populations whose access-pattern data is sparse or absent, and the only
// fully deterministic strategy.
type AttributeStrategy struct{}

// Cluster emits one cluster per (department, job_title) pair meeting
// min_cluster_size, in sorted attribute order. Names are pre-assigned so
// the analyzer keeps them as-is.
func (s *AttributeStrategy) Cluster(vectors []AccessVector, globalPermissions []string, cfg Config) []RawCluster {
	if len(vectors) == 0 || cfg.MinClusterSize > len(vectors) {
		return nil
	}

	byDept := make(map[string]map[string][]string)
	for _, vec := range vectors {
		dept := attributeValue(vec.Department)
		title := attributeValue(vec.JobTitle)
		if byDept[dept] == nil {
			byDept[dept] = make(map[string][]string)
		}
		byDept[dept][title] = append(byDept[dept][title], vec.UserID)
	}

	departments := make([]string, 0, len(byDept))
	for dept := range byDept {
		departments = append(departments, dept)
	}
	sort.Strings(departments)

	var clusters []RawCluster
	for _, dept := range departments {
		titles := make([]string, 0, len(byDept[dept]))
		for title := range byDept[dept] {
			titles = append(titles, title)
		}
		sort.Strings(titles)
		for _, title := range titles {
			ids := byDept[dept][title]
			if len(ids) < cfg.MinClusterSize {
				continue
			}
			clusters = append(clusters, RawCluster{
				Name:      attributeClusterName(dept, title),
				MemberIDs: ids,
			})
		}
	}
	return clusters
}

func attributeValue(v string) string {
	if strings.TrimSpace(v) == "" {
		return "UNASSIGNED"
	}
	return v
}

func attributeClusterName(dept, title string) string {
	name := strings.ToUpper(dept + "_" + title)
	return strings.ReplaceAll(name, " ", "_")
}
