package sod

import (
	"context"

	"github.com/sentinel-iga/sentinel/internal/mining"
)

// RulePort supplies the active conflict rules.
type RulePort interface {
	ListActiveRules(ctx context.Context) ([]Rule, error)
}

// Engine answers pairwise conflict queries against the rule matrix. It
// satisfies mining.ConflictChecker.
type Engine struct {
	rules RulePort
}

// NewEngine builds an engine over the given rule source.
func NewEngine(rules RulePort) *Engine {
	return &Engine{rules: rules}
}

// StaticRules adapts a fixed rule list to RulePort, mainly for tests and
// deployments without a rules table.
type StaticRules []Rule

// ListActiveRules returns the active subset of the fixed list.
func (s StaticRules) ListActiveRules(_ context.Context) ([]Rule, error) {
	out := make([]Rule, 0, len(s))
	for _, rule := range s {
		if rule.Active {
			out = append(out, rule)
		}
	}
	return out, nil
}

// CheckConflicts reports every rule whose permission pair is fully
// contained in the supplied permission ids.
func (e *Engine) CheckConflicts(ctx context.Context, permissionIDs []string) ([]mining.SoDConflict, error) {
	rules, err := e.rules.ListActiveRules(ctx)
	if err != nil {
		return nil, err
	}
	held := make(map[string]struct{}, len(permissionIDs))
	for _, id := range permissionIDs {
		held[id] = struct{}{}
	}
	seen := make(map[string]struct{}, len(rules))
	conflicts := make([]mining.SoDConflict, 0)
	for _, rule := range rules {
		if _, ok := held[rule.PermissionA]; !ok {
			continue
		}
		if _, ok := held[rule.PermissionB]; !ok {
			continue
		}
		key := pairKey(rule.PermissionA, rule.PermissionB)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		conflicts = append(conflicts, mining.SoDConflict{
			PermissionA: rule.PermissionA,
			PermissionB: rule.PermissionB,
			Severity:    rule.Severity,
		})
	}
	return conflicts, nil
}
