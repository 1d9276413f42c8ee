// Package roles exposes role administration on top of the rbac store.
package roles

import (
	"context"
	"errors"
	"strings"

	"github.com/pressroom-erp/pressroom-erp/internal/rbac"
)

var (
	ErrNameRequired = errors.New("role name is required")
	ErrNotFound     = errors.New("role not found")
)

// RoleWithPermissions pairs a role with its granted permission names.
type RoleWithPermissions struct {
	rbac.Role
	Permissions []string `json:"permissions"`
}

// Store is the slice of the rbac service role administration needs.
type Store interface {
	ListRoles(ctx context.Context) ([]rbac.Role, error)
	RoleByName(ctx context.Context, name string) (rbac.Role, error)
	RolePermissions(ctx context.Context, roleID int64) ([]string, error)
	EnsureRole(ctx context.Context, name, description string) (rbac.Role, error)
	EnsurePermission(ctx context.Context, name, description string) (rbac.Permission, error)
	GrantRolePermission(ctx context.Context, roleID, permissionID int64) error
}

// Service coordinates role administration.
type Service struct {
	store Store
}

// NewService builds Service instance.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// ListRoles returns every role with its permissions.
func (s *Service) ListRoles(ctx context.Context) ([]RoleWithPermissions, error) {
	roles, err := s.store.ListRoles(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]RoleWithPermissions, 0, len(roles))
	for _, role := range roles {
		perms, err := s.store.RolePermissions(ctx, role.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, RoleWithPermissions{Role: role, Permissions: perms})
	}
	return out, nil
}

// CreateRole upserts a role and grants the listed permissions.
func (s *Service) CreateRole(ctx context.Context, name, description string, permissions []string) (*RoleWithPermissions, error) {
	name = strings.TrimSpace(strings.ToLower(name))
	if name == "" {
		return nil, ErrNameRequired
	}
	role, err := s.store.EnsureRole(ctx, name, description)
	if err != nil {
		return nil, err
	}
	for _, permName := range permissions {
		permName = strings.TrimSpace(strings.ToLower(permName))
		if permName == "" {
			continue
		}
		perm, err := s.store.EnsurePermission(ctx, permName, "")
		if err != nil {
			return nil, err
		}
		if err := s.store.GrantRolePermission(ctx, role.ID, perm.ID); err != nil {
			return nil, err
		}
	}
	granted, err := s.store.RolePermissions(ctx, role.ID)
	if err != nil {
		return nil, err
	}
	return &RoleWithPermissions{Role: role, Permissions: granted}, nil
}
