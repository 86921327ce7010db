package mining

import (
	"reflect"
	"testing"
)

func byUserIndex(vectors []AccessVector) map[string]AccessVector {
	byUser := make(map[string]AccessVector, len(vectors))
	for _, vec := range vectors {
		byUser[vec.UserID] = vec
	}
	return byUser
}

func TestAnalyzerClassifiesFrequencyBuckets(t *testing.T) {
	// 5 members: CORE held by 4 (80%), MID by 3 (60%), RARE by 1 (20%).
	vectors := []AccessVector{
		vector("u1", "Finance", "Analyst", "SAP:CORE:", "SAP:MID:", "SAP:RARE:"),
		vector("u2", "Finance", "Analyst", "SAP:CORE:", "SAP:MID:"),
		vector("u3", "Finance", "Analyst", "SAP:CORE:", "SAP:MID:"),
		vector("u4", "Finance", "Analyst", "SAP:CORE:"),
		vector("u5", "Finance", "Analyst"),
	}
	analyzer := NewAnalyzer(DefaultConfig(AlgorithmAgglomerative))
	clusters := analyzer.Analyze([]RawCluster{{MemberIDs: []string{"u1", "u2", "u3", "u4", "u5"}}}, byUserIndex(vectors))
	if len(clusters) != 1 {
		t.Fatalf("expected one cluster, got %d", len(clusters))
	}
	c := clusters[0]
	if !reflect.DeepEqual(c.CorePermissions, []string{"SAP:CORE:"}) {
		t.Fatalf("core = %v", c.CorePermissions)
	}
	if !reflect.DeepEqual(c.CommonPermissions, []string{"SAP:MID:"}) {
		t.Fatalf("common = %v", c.CommonPermissions)
	}
	if !reflect.DeepEqual(c.OutlierPermissions, []string{"SAP:RARE:"}) {
		t.Fatalf("outlier = %v", c.OutlierPermissions)
	}
	assertBucketsDisjoint(t, c)
	if c.ClusterID == "" {
		t.Fatal("cluster id must be assigned explicitly")
	}
}

func assertBucketsDisjoint(t *testing.T, c RoleCluster) {
	t.Helper()
	core := permSet(c.CorePermissions...)
	for _, key := range c.OutlierPermissions {
		if _, ok := core[key]; ok {
			t.Fatalf("permission %q in both core and outlier buckets", key)
		}
	}
}

func TestAnalyzerCohesion(t *testing.T) {
	identical := []AccessVector{
		vector("u1", "Finance", "Analyst", "SAP:P1:", "SAP:P2:"),
		vector("u2", "Finance", "Analyst", "SAP:P1:", "SAP:P2:"),
		vector("u3", "Finance", "Analyst", "SAP:P1:", "SAP:P2:"),
	}
	analyzer := NewAnalyzer(DefaultConfig(AlgorithmAttribute))
	clusters := analyzer.Analyze([]RawCluster{{MemberIDs: []string{"u1", "u2", "u3"}}}, byUserIndex(identical))
	if got := clusters[0].CohesionScore; got != 1.0 {
		t.Fatalf("identical members should score 1.0 cohesion, got %f", got)
	}

	single := analyzer.Analyze([]RawCluster{{MemberIDs: []string{"u1"}}}, byUserIndex(identical))
	if got := single[0].CohesionScore; got != 0.0 {
		t.Fatalf("single-member cluster has no pairs, expected 0.0, got %f", got)
	}
}

func TestAnalyzerPrimaryAttributesMajorityWithFirstSeenTie(t *testing.T) {
	vectors := []AccessVector{
		vector("u1", "Ops", "Engineer"),
		vector("u2", "Eng", "Engineer"),
		vector("u3", "Ops", "Manager"),
		vector("u4", "Eng", "Manager"),
	}
	analyzer := NewAnalyzer(DefaultConfig(AlgorithmAgglomerative))
	clusters := analyzer.Analyze([]RawCluster{{MemberIDs: []string{"u1", "u2", "u3", "u4"}}}, byUserIndex(vectors))
	if got := clusters[0].PrimaryDepartment; got != "Ops" {
		t.Fatalf("tie should keep first-seen department, got %q", got)
	}
	if got := clusters[0].PrimaryJobTitle; got != "Engineer" {
		t.Fatalf("tie should keep first-seen title, got %q", got)
	}
	if !reflect.DeepEqual(clusters[0].Departments, []string{"Eng", "Ops"}) {
		t.Fatalf("departments = %v", clusters[0].Departments)
	}
}

func TestAnalyzerSuggestedRoleName(t *testing.T) {
	vectors := []AccessVector{
		vector("u1", "Finance", "Analyst II", "SAP:P1:"),
		vector("u2", "Finance", "Analyst II", "SAP:P1:"),
	}
	analyzer := NewAnalyzer(DefaultConfig(AlgorithmAgglomerative))

	generated := analyzer.Analyze([]RawCluster{{MemberIDs: []string{"u1", "u2"}}}, byUserIndex(vectors))
	if got := generated[0].SuggestedRoleName; got != "Z_FIN_ANALY" {
		t.Fatalf("generated name = %q", got)
	}

	named := analyzer.Analyze([]RawCluster{{Name: "FINANCE_ANALYST", MemberIDs: []string{"u1", "u2"}}}, byUserIndex(vectors))
	if got := named[0].SuggestedRoleName; got != "FINANCE_ANALYST" {
		t.Fatalf("strategy-supplied name must be kept, got %q", got)
	}
}
