package mining

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
)

// RiskPerConflict is the linear weight applied per flagged SoD conflict.
// The score is deliberately uncapped beyond the conflict count itself.
const RiskPerConflict = 25.0

// redundantOverlapThreshold flags cluster pairs whose core permission sets
// overlap beyond this ratio relative to the smaller set.
const redundantOverlapThreshold = 0.8

// consolidationClusterLimit is the number of clusters a department may
// accumulate before a consolidation hint is raised.
const consolidationClusterLimit = 3

// ConflictChecker is the consumed segregation-of-duties rule engine. It is
// optional: a nil checker, or one returning an error, degrades to empty
// conflict lists without failing the run.
type ConflictChecker interface {
	CheckConflicts(ctx context.Context, permissionIDs []string) ([]SoDConflict, error)
}

// applyRiskAnalysis queries the rule engine for each cluster's combined
// core and common permissions and attaches the flagged pairs.
func applyRiskAnalysis(ctx context.Context, checker ConflictChecker, clusters []RoleCluster, logger *slog.Logger) {
	if checker == nil {
		return
	}
	for i := range clusters {
		ids := make([]string, 0, len(clusters[i].CorePermissions)+len(clusters[i].CommonPermissions))
		ids = append(ids, clusters[i].CorePermissions...)
		ids = append(ids, clusters[i].CommonPermissions...)
		conflicts, err := checker.CheckConflicts(ctx, ids)
		if err != nil {
			if logger != nil {
				logger.Warn("sod check unavailable, skipping", slog.String("cluster_id", clusters[i].ClusterID), slog.Any("error", err))
			}
			continue
		}
		if conflicts == nil {
			conflicts = []SoDConflict{}
		}
		clusters[i].SoDConflicts = conflicts
		clusters[i].RiskScore = RiskPerConflict * float64(len(conflicts))
	}
}

// silhouetteScore measures cluster separation over Jaccard distance. For
// each clustered user, a is the mean distance to the members of its own
// cluster (the user itself included) and b the minimum over other clusters
// of the mean distance to that cluster's members. Noise users are excluded.
// Fewer than two clusters score 0.0.
func silhouetteScore(clusters []RoleCluster, byUser map[string]AccessVector) float64 {
	if len(clusters) < 2 {
		return 0.0
	}
	var sum float64
	users := 0
	for ci, cluster := range clusters {
		for _, userID := range cluster.MemberUserIDs {
			vec, ok := byUser[userID]
			if !ok {
				continue
			}
			a := meanDistanceTo(vec, cluster.MemberUserIDs, byUser)
			b := -1.0
			for cj, other := range clusters {
				if cj == ci {
					continue
				}
				d := meanDistanceTo(vec, other.MemberUserIDs, byUser)
				if b < 0 || d < b {
					b = d
				}
			}
			max := a
			if b > max {
				max = b
			}
			if max > 0 {
				sum += (b - a) / max
			}
			users++
		}
	}
	if users == 0 {
		return 0.0
	}
	return sum / float64(users)
}

func meanDistanceTo(vec AccessVector, memberIDs []string, byUser map[string]AccessVector) float64 {
	var sum float64
	count := 0
	for _, id := range memberIDs {
		other, ok := byUser[id]
		if !ok {
			continue
		}
		sum += JaccardDistance(vec.Permissions, other.Permissions)
		count++
	}
	if count == 0 {
		return 0.0
	}
	return sum / float64(count)
}

// totalCoverage is the share of clustered users' permissions captured by
// their cluster's core set, as a percentage.
func totalCoverage(clusters []RoleCluster, byUser map[string]AccessVector) float64 {
	covered := 0
	total := 0
	for _, cluster := range clusters {
		coreSet := make(map[string]struct{}, len(cluster.CorePermissions))
		for _, key := range cluster.CorePermissions {
			coreSet[key] = struct{}{}
		}
		for _, userID := range cluster.MemberUserIDs {
			vec, ok := byUser[userID]
			if !ok {
				continue
			}
			total += len(vec.Permissions)
			for key := range vec.Permissions {
				if _, ok := coreSet[key]; ok {
					covered++
				}
			}
		}
	}
	if total == 0 {
		return 0.0
	}
	return float64(covered) / float64(total) * 100
}

// redundantRoles reports cluster pairs whose core permission sets overlap
// by more than the threshold relative to the smaller set, once per
// unordered pair.
func redundantRoles(clusters []RoleCluster) []RedundantRolePair {
	pairs := make([]RedundantRolePair, 0)
	for i := 0; i < len(clusters); i++ {
		for j := i + 1; j < len(clusters); j++ {
			smaller := len(clusters[i].CorePermissions)
			if len(clusters[j].CorePermissions) < smaller {
				smaller = len(clusters[j].CorePermissions)
			}
			if smaller == 0 {
				continue
			}
			overlap := intersectionSize(clusters[i].CorePermissions, clusters[j].CorePermissions)
			ratio := float64(overlap) / float64(smaller)
			if ratio > redundantOverlapThreshold {
				pairs = append(pairs, RedundantRolePair{
					RoleA:      clusters[i].SuggestedRoleName,
					RoleB:      clusters[j].SuggestedRoleName,
					OverlapPct: ratio * 100,
				})
			}
		}
	}
	return pairs
}

func intersectionSize(a, b []string) int {
	set := make(map[string]struct{}, len(a))
	for _, key := range a {
		set[key] = struct{}{}
	}
	count := 0
	for _, key := range b {
		if _, ok := set[key]; ok {
			count++
		}
	}
	return count
}

// consolidationSuggestions flags departments fragmented across more than
// three discovered clusters.
func consolidationSuggestions(clusters []RoleCluster) []string {
	perDept := make(map[string]int)
	for _, cluster := range clusters {
		if cluster.PrimaryDepartment == "" {
			continue
		}
		perDept[cluster.PrimaryDepartment]++
	}
	departments := make([]string, 0, len(perDept))
	for dept, count := range perDept {
		if count > consolidationClusterLimit {
			departments = append(departments, dept)
		}
	}
	sort.Strings(departments)
	suggestions := make([]string, 0, len(departments))
	for _, dept := range departments {
		suggestions = append(suggestions, fmt.Sprintf("Department %s is fragmented across %d clusters; consider consolidating overlapping roles", dept, perDept[dept]))
	}
	return suggestions
}

// roleRecommendations proposes one role per discovered cluster.
func roleRecommendations(clusters []RoleCluster) []RoleRecommendation {
	recs := make([]RoleRecommendation, 0, len(clusters))
	for _, cluster := range clusters {
		recs = append(recs, RoleRecommendation{
			ClusterID:       cluster.ClusterID,
			RoleName:        cluster.SuggestedRoleName,
			MemberCount:     len(cluster.MemberUserIDs),
			PermissionCount: len(cluster.CorePermissions),
		})
	}
	return recs
}
