// Package rbac resolves effective permissions for users and guards HTTP
// routes with them.
package rbac

import "time"

// Role groups permissions under a name.
type Role struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// Permission is a named capability such as "invoices.edit".
type Permission struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}
