package mining

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var roleNameCaser = cases.Upper(language.Und)

// Analyzer turns raw clusters into characterised RoleClusters. It is the
// only writer of RoleCluster fields; results are read-only afterwards.
type Analyzer struct {
	cfg Config
}

// NewAnalyzer builds an analyzer for one run's configuration.
func NewAnalyzer(cfg Config) *Analyzer {
	return &Analyzer{cfg: cfg}
}

// Analyze characterises every raw cluster against its members' vectors.
func (a *Analyzer) Analyze(raw []RawCluster, byUser map[string]AccessVector) []RoleCluster {
	clusters := make([]RoleCluster, 0, len(raw))
	for _, rc := range raw {
		clusters = append(clusters, a.analyzeOne(rc, byUser))
	}
	return clusters
}

func (a *Analyzer) analyzeOne(raw RawCluster, byUser map[string]AccessVector) RoleCluster {
	members := make([]AccessVector, 0, len(raw.MemberIDs))
	for _, id := range raw.MemberIDs {
		if vec, ok := byUser[id]; ok {
			members = append(members, vec)
		}
	}

	frequency := make(map[string]int)
	for _, vec := range members {
		for key := range vec.Permissions {
			frequency[key]++
		}
	}

	var core, common, outlier []string
	total := float64(len(members))
	for key, count := range frequency {
		switch freq := float64(count) / total; {
		case freq >= a.cfg.MinPermissionFrequency:
			core = append(core, key)
		case freq >= 0.5:
			common = append(common, key)
		default:
			outlier = append(outlier, key)
		}
	}
	sort.Strings(core)
	sort.Strings(common)
	sort.Strings(outlier)

	primaryDept := majorityValue(members, func(v AccessVector) string { return v.Department })
	primaryTitle := majorityValue(members, func(v AccessVector) string { return v.JobTitle })

	name := raw.Name
	if name == "" {
		name = suggestRoleName(primaryDept, primaryTitle)
	}

	overlapPct := 0.0
	if len(frequency) > 0 {
		overlapPct = float64(len(core)) / float64(len(frequency)) * 100
	}

	return RoleCluster{
		ClusterID:            uuid.NewString(),
		SuggestedRoleName:    name,
		Description:          fmt.Sprintf("Suggested role covering %d users in %s (%d core permissions)", len(members), attributeValue(primaryDept), len(core)),
		MemberUserIDs:        raw.MemberIDs,
		CorePermissions:      core,
		CommonPermissions:    common,
		OutlierPermissions:   outlier,
		CohesionScore:        cohesion(members),
		PermissionOverlapPct: overlapPct,
		Departments:          uniqueValues(members, func(v AccessVector) string { return v.Department }),
		JobTitles:            uniqueValues(members, func(v AccessVector) string { return v.JobTitle }),
		PrimaryDepartment:    primaryDept,
		PrimaryJobTitle:      primaryTitle,
		SoDConflicts:         []SoDConflict{},
	}
}

// cohesion is the mean pairwise Jaccard similarity among members; a
// single-member cluster has no pairs and scores 0.0.
func cohesion(members []AccessVector) float64 {
	if len(members) < 2 {
		return 0.0
	}
	var sum float64
	pairs := 0
	for i := 0; i < len(members); i++ {
		for j := i + 1; j < len(members); j++ {
			sum += JaccardSimilarity(members[i].Permissions, members[j].Permissions)
			pairs++
		}
	}
	return sum / float64(pairs)
}

// majorityValue returns the most frequent attribute value among members,
// breaking ties in favour of the first-seen value.
func majorityValue(members []AccessVector, pick func(AccessVector) string) string {
	counts := make(map[string]int)
	var order []string
	for _, vec := range members {
		value := pick(vec)
		if _, seen := counts[value]; !seen {
			order = append(order, value)
		}
		counts[value]++
	}
	best := ""
	bestCount := 0
	for _, value := range order {
		if counts[value] > bestCount {
			best = value
			bestCount = counts[value]
		}
	}
	return best
}

func uniqueValues(members []AccessVector, pick func(AccessVector) string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, vec := range members {
		value := pick(vec)
		if value == "" {
			continue
		}
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, value)
	}
	sort.Strings(out)
	return out
}

// suggestRoleName builds the deterministic Z_<dept>_<title> candidate name
// from the first three letters of the department and five of the title.
func suggestRoleName(dept, title string) string {
	return "Z_" + namePart(dept, 3) + "_" + namePart(title, 5)
}

func namePart(value string, max int) string {
	part := roleNameCaser.String(strings.ReplaceAll(attributeValue(value), " ", "_"))
	runes := []rune(part)
	if len(runes) > max {
		runes = runes[:max]
	}
	return string(runes)
}
