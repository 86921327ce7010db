package mining

import (
	"strconv"
	"strings"
)

// ExportClusters formats discovered clusters into CSV-ready strings.
func ExportClusters(clusters []RoleCluster) [][]string {
	out := make([][]string, 0, len(clusters)+1)
	out = append(out, []string{
		"cluster_id", "suggested_role_name", "member_count",
		"core_permissions", "common_permissions", "outlier_permissions",
		"cohesion_score", "permission_overlap_pct",
		"primary_department", "primary_job_title",
		"sod_conflicts", "risk_score",
	})
	for _, cluster := range clusters {
		out = append(out, []string{
			cluster.ClusterID,
			cluster.SuggestedRoleName,
			strconv.Itoa(len(cluster.MemberUserIDs)),
			strings.Join(cluster.CorePermissions, ";"),
			strings.Join(cluster.CommonPermissions, ";"),
			strings.Join(cluster.OutlierPermissions, ";"),
			formatScore(cluster.CohesionScore),
			formatScore(cluster.PermissionOverlapPct),
			cluster.PrimaryDepartment,
			cluster.PrimaryJobTitle,
			strconv.Itoa(len(cluster.SoDConflicts)),
			formatScore(cluster.RiskScore),
		})
	}
	return out
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
