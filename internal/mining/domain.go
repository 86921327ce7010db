// Package mining implements the role mining / access clustering engine:
// it groups users with similar entitlements into candidate roles,
// characterises each cluster by its core, common and outlier permissions
// and scores the overall partition quality.
package mining

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"
)

// DefaultSystem is assumed when a permission grant does not name its source system.
const DefaultSystem = "SAP"

// RunStatus enumerates the mining run lifecycle.
type RunStatus string

const (
	// RunPending indicates the run is registered but not started.
	RunPending RunStatus = "PENDING"
	// RunRunning indicates clustering is in progress.
	RunRunning RunStatus = "RUNNING"
	// RunCompleted indicates the result is final and valid.
	RunCompleted RunStatus = "COMPLETED"
	// RunFailed indicates the run terminated with an error captured on the result.
	RunFailed RunStatus = "FAILED"
)

// Algorithm selects one of the clustering strategies.
type Algorithm string

const (
	// AlgorithmCentroid is the K-Means style strategy over binary vectors.
	AlgorithmCentroid Algorithm = "centroid"
	// AlgorithmAgglomerative is average-linkage hierarchical clustering.
	AlgorithmAgglomerative Algorithm = "agglomerative"
	// AlgorithmDensity is the DBSCAN style strategy; it may leave noise users unclustered.
	AlgorithmDensity Algorithm = "density"
	// AlgorithmAttribute groups by department and job title without distance computation.
	AlgorithmAttribute Algorithm = "attribute-hierarchy"
)

// ParseAlgorithm maps a request string onto a known Algorithm.
func ParseAlgorithm(s string) (Algorithm, error) {
	switch Algorithm(strings.ToLower(strings.TrimSpace(s))) {
	case AlgorithmCentroid:
		return AlgorithmCentroid, nil
	case AlgorithmAgglomerative:
		return AlgorithmAgglomerative, nil
	case AlgorithmDensity:
		return AlgorithmDensity, nil
	case AlgorithmAttribute:
		return AlgorithmAttribute, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownAlgorithm, s)
}

var (
	// ErrInsufficientData occurs when fewer users than min_cluster_size are supplied.
	ErrInsufficientData = errors.New("mining: insufficient users for requested min cluster size")
	// ErrUnknownAlgorithm occurs when an unrecognised algorithm is requested.
	ErrUnknownAlgorithm = errors.New("mining: unknown algorithm")
	// ErrRunNotFound occurs when a run id is not present in the registry or store.
	ErrRunNotFound = errors.New("mining: run not found")
)

// Permission identifies a single entitlement. Two permissions are equal
// iff all five fields match. Instances are created during vectorization
// and never mutated.
type Permission struct {
	System     string `json:"system"`
	ObjectType string `json:"object_type,omitempty"`
	ObjectName string `json:"object_name"`
	Field      string `json:"field,omitempty"`
	Value      string `json:"value,omitempty"`
}

// Key returns the normalized string identity used throughout clustering.
func (p Permission) Key() string {
	system := p.System
	if system == "" {
		system = DefaultSystem
	}
	return system + ":" + p.ObjectName + ":" + p.Value
}

// PermissionGrant is one entry of an access record's permission list. The
// wire format accepts either a structured object or a bare string naming
// the object.
type PermissionGrant struct {
	Permission
}

// UnmarshalJSON accepts `"OBJECT"` as shorthand for `{"object_name":"OBJECT"}`.
func (g *PermissionGrant) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		g.Permission = Permission{ObjectName: name}
		return nil
	}
	var p Permission
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	g.Permission = p
	return nil
}

// MarshalJSON renders the structured form.
func (g PermissionGrant) MarshalJSON() ([]byte, error) {
	return json.Marshal(g.Permission)
}

// AccessRecord is the raw input shape for one user.
type AccessRecord struct {
	UserID      string            `json:"user_id"`
	Department  string            `json:"department,omitempty"`
	JobTitle    string            `json:"job_title,omitempty"`
	Roles       []string          `json:"roles,omitempty"`
	Permissions []PermissionGrant `json:"permissions,omitempty"`
	Attributes  map[string]any    `json:"attributes,omitempty"`
}

// AccessVector is one user's access snapshot used as clustering input.
// Vectors are built once per run and never mutated afterwards.
type AccessVector struct {
	UserID     string
	Department string
	JobTitle   string
	Roles      []string
	// Permissions holds normalized permission keys with set semantics.
	Permissions map[string]struct{}
}

// HasPermission reports whether the user holds the given permission key.
func (v AccessVector) HasPermission(key string) bool {
	_, ok := v.Permissions[key]
	return ok
}

// SoDConflict is a flagged pair of conflicting permissions inside one cluster.
type SoDConflict struct {
	PermissionA string `json:"permission_a"`
	PermissionB string `json:"permission_b"`
	Severity    string `json:"severity"`
}

// RoleCluster is a discovered grouping of users with similar access.
// Built by the cluster analyzer; read-only afterwards.
type RoleCluster struct {
	ClusterID         string   `json:"cluster_id"`
	SuggestedRoleName string   `json:"suggested_role_name"`
	Description       string   `json:"description"`
	MemberUserIDs     []string `json:"member_user_ids"`
	// CorePermissions are held by at least the configured frequency threshold of members.
	CorePermissions []string `json:"core_permissions"`
	// CommonPermissions are held by at least half of members but below the core threshold.
	CommonPermissions []string `json:"common_permissions"`
	// OutlierPermissions are held by fewer than half of members.
	OutlierPermissions   []string      `json:"outlier_permissions"`
	CohesionScore        float64       `json:"cohesion_score"`
	PermissionOverlapPct float64       `json:"permission_overlap_pct"`
	Departments          []string      `json:"departments"`
	JobTitles            []string      `json:"job_titles"`
	PrimaryDepartment    string        `json:"primary_department"`
	PrimaryJobTitle      string        `json:"primary_job_title"`
	SoDConflicts         []SoDConflict `json:"sod_conflicts"`
	RiskScore            float64       `json:"risk_score"`
}

// RoleRecommendation proposes creating a role from a discovered cluster.
type RoleRecommendation struct {
	ClusterID       string `json:"cluster_id"`
	RoleName        string `json:"role_name"`
	MemberCount     int    `json:"member_count"`
	PermissionCount int    `json:"permission_count"`
}

// RedundantRolePair flags two clusters whose core permission sets overlap heavily.
type RedundantRolePair struct {
	RoleA      string  `json:"role_a"`
	RoleB      string  `json:"role_b"`
	OverlapPct float64 `json:"overlap_pct"`
}

// MiningResult is the root aggregate for one run. The orchestrator owns it
// exclusively until it reaches a terminal status, after which it is immutable.
type MiningResult struct {
	JobID             string    `json:"job_id"`
	Status            RunStatus `json:"status"`
	Algorithm         Algorithm `json:"algorithm"`
	TotalUsers        int       `json:"total_users"`
	TotalPermissions  int       `json:"total_permissions"`
	UniquePermissions int       `json:"unique_permissions"`

	Clusters []RoleCluster `json:"clusters"`

	SilhouetteScore float64 `json:"silhouette_score"`
	TotalCoverage   float64 `json:"total_coverage"`

	RecommendedRoles             []RoleRecommendation `json:"recommended_roles"`
	RedundantRoles               []RedundantRolePair  `json:"redundant_roles"`
	RoleConsolidationSuggestions []string             `json:"role_consolidation_suggestions"`

	StartedAt       time.Time  `json:"started_at"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	DurationSeconds float64    `json:"duration_seconds"`
	ErrorMessage    string     `json:"error_message,omitempty"`
}

// Terminal reports whether the result reached COMPLETED or FAILED.
func (r *MiningResult) Terminal() bool {
	return r.Status == RunCompleted || r.Status == RunFailed
}

// Config carries the recognised mining options. Zero values are replaced
// by defaults in Normalize; construction is always explicit.
type Config struct {
	Algorithm              Algorithm `json:"algorithm"`
	MinClusterSize         int       `json:"min_cluster_size"`
	MaxClusters            int       `json:"max_clusters"`
	MinPermissionFrequency float64   `json:"min_permission_frequency"`
	IncludeRiskAnalysis    bool      `json:"include_risk_analysis"`
	// Eps is the neighborhood radius (Jaccard distance) for the density strategy.
	Eps float64 `json:"eps"`
	// MaxIterations bounds the centroid strategy. Reaching the cap without
	// convergence is not an error.
	MaxIterations int `json:"max_iterations"`
	// Rand seeds centroid initialisation. Leave nil for non-deterministic runs;
	// inject a seeded source for reproducibility in tests.
	Rand *rand.Rand `json:"-"`
}

// DefaultConfig returns the documented defaults for the given algorithm.
func DefaultConfig(algorithm Algorithm) Config {
	return Config{
		Algorithm:              algorithm,
		MinClusterSize:         3,
		MaxClusters:            20,
		MinPermissionFrequency: 0.7,
		IncludeRiskAnalysis:    true,
		Eps:                    0.3,
		MaxIterations:          100,
	}
}

// Normalize fills unset fields with defaults and returns the result.
func (c Config) Normalize() Config {
	def := DefaultConfig(c.Algorithm)
	if c.MinClusterSize <= 0 {
		c.MinClusterSize = def.MinClusterSize
	}
	if c.MaxClusters <= 0 {
		c.MaxClusters = def.MaxClusters
	}
	if c.MinPermissionFrequency <= 0 || c.MinPermissionFrequency > 1 {
		c.MinPermissionFrequency = def.MinPermissionFrequency
	}
	if c.Eps <= 0 {
		c.Eps = def.Eps
	}
	if c.MaxIterations <= 0 {
		c.MaxIterations = def.MaxIterations
	}
	return c
}

// RawCluster is a strategy's output before analysis: a set of member user ids
// and, for the attribute strategy, a pre-assigned name.
type RawCluster struct {
	Name      string
	MemberIDs []string
}
