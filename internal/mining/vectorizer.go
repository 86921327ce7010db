package mining

import (
	"log/slog"
	"sort"
)

// Vectorizer turns raw access records into AccessVectors plus the global
// permission universe for the run. It keeps no state between runs.
type Vectorizer struct {
	logger *slog.Logger
}

// NewVectorizer builds a vectorizer. A nil logger falls back to slog.Default.
func NewVectorizer(logger *slog.Logger) *Vectorizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Vectorizer{logger: logger}
}

// Vectorize normalizes records into vectors and the sorted list of all
// distinct permission keys. Records missing a user id are skipped with a
// warning; the count of skipped records is returned.
func (v *Vectorizer) Vectorize(records []AccessRecord) ([]AccessVector, []string, int) {
	vectors := make([]AccessVector, 0, len(records))
	universe := make(map[string]struct{})
	skipped := 0

	for _, record := range records {
		if record.UserID == "" {
			skipped++
			v.logger.Warn("skipping malformed access record", slog.String("reason", "missing user_id"))
			continue
		}
		perms := make(map[string]struct{}, len(record.Permissions))
		for _, grant := range record.Permissions {
			key := grant.Key()
			perms[key] = struct{}{}
			universe[key] = struct{}{}
		}
		roles := make([]string, len(record.Roles))
		copy(roles, record.Roles)
		vectors = append(vectors, AccessVector{
			UserID:      record.UserID,
			Department:  record.Department,
			JobTitle:    record.JobTitle,
			Roles:       roles,
			Permissions: perms,
		})
	}

	global := make([]string, 0, len(universe))
	for key := range universe {
		global = append(global, key)
	}
	sort.Strings(global)
	return vectors, global, skipped
}

// BinaryVector projects a user's permission set onto the global sorted
// permission list: 1.0 where the permission is held, 0.0 otherwise. Only
// the centroid strategy needs this dense representation.
func BinaryVector(vec AccessVector, globalPermissions []string) []float64 {
	out := make([]float64, len(globalPermissions))
	for i, key := range globalPermissions {
		if vec.HasPermission(key) {
			out[i] = 1
		}
	}
	return out
}
