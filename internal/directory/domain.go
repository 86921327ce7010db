// Package directory loads identity snapshots (users, their assigned
// roles and their granted permissions) as input for a mining run.
package directory

import "time"

// User is one identity in the directory.
type User struct {
	UserID     string
	Department string
	JobTitle   string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Grant is one raw entitlement row for a user.
type Grant struct {
	UserID     string
	System     string
	ObjectType string
	ObjectName string
	Field      string
	Value      string
}
