// Package sod implements the segregation-of-duties rule engine consumed by
// the mining pipeline: a matrix of permission pairs that must not be held
// by the same identity.
package sod

import (
	"errors"
	"strings"
)

// Rule declares that two permissions conflict.
type Rule struct {
	ID          int64
	PermissionA string
	PermissionB string
	Severity    string
	Description string
	Active      bool
}

// Validate ensures the rule names two distinct permissions.
func (r Rule) Validate() error {
	if strings.TrimSpace(r.PermissionA) == "" || strings.TrimSpace(r.PermissionB) == "" {
		return errors.New("sod: both permissions required")
	}
	if r.PermissionA == r.PermissionB {
		return errors.New("sod: a permission cannot conflict with itself")
	}
	return nil
}

// pairKey is the order-independent identity of a rule's permission pair.
func pairKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + "\x00" + b
}
