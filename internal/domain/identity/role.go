package identity

import (
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pharmapos/backend/internal/domain/shared"
)

var roleCodeRegex = regexp.MustCompile(`^[A-Z][A-Z0-9_]{1,49}$`)

// Role is a named set of permission codes
type Role struct {
	shared.BaseAggregateRoot
	Code        string   `gorm:"type:varchar(50);not null;uniqueIndex"`
	Name        string   `gorm:"type:varchar(100);not null"`
	Description string   `gorm:"type:text"`
	IsSystem    bool     `gorm:"not null;default:false"`
	Permissions []string `gorm:"-"`
}

// TableName returns the table name for GORM
func (Role) TableName() string {
	return "roles"
}

// RolePermission is the join row between a role and a permission code
type RolePermission struct {
	RoleID    uuid.UUID `gorm:"type:uuid;primaryKey"`
	Code      string    `gorm:"type:varchar(100);primaryKey"`
	CreatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (RolePermission) TableName() string {
	return "role_permissions"
}

// NewRole creates a role with no permissions
func NewRole(code, name, description string) (*Role, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if !roleCodeRegex.MatchString(code) {
		return nil, shared.NewDomainError("INVALID_ROLE_CODE", "Role code must be 2-50 upper-case letters, digits or underscores")
	}
	if err := validateRoleName(name); err != nil {
		return nil, err
	}
	return &Role{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Code:              code,
		Name:              strings.TrimSpace(name),
		Description:       description,
		Permissions:       make([]string, 0),
	}, nil
}

// NewSystemRole creates a role that cannot be deleted
func NewSystemRole(code, name, description string, permissions []string) (*Role, error) {
	role, err := NewRole(code, name, description)
	if err != nil {
		return nil, err
	}
	role.IsSystem = true
	if err := role.SetPermissions(permissions); err != nil {
		return nil, err
	}
	return role, nil
}

// Update changes the name and description
func (r *Role) Update(name, description string) error {
	if err := validateRoleName(name); err != nil {
		return err
	}
	r.Name = strings.TrimSpace(name)
	r.Description = description
	r.Touch()
	return nil
}

// SetPermissions replaces the permission set. Codes must exist in the catalog.
func (r *Role) SetPermissions(codes []string) error {
	seen := make(map[string]bool, len(codes))
	perms := make([]string, 0, len(codes))
	for _, code := range codes {
		code = strings.ToLower(strings.TrimSpace(code))
		if !IsKnownPermission(code) {
			return shared.NewDomainError("INVALID_PERMISSION", "Unknown permission: "+code)
		}
		if seen[code] {
			continue
		}
		seen[code] = true
		perms = append(perms, code)
	}
	sort.Strings(perms)

	r.Permissions = perms
	r.Touch()
	r.AddDomainEvent(NewRolePermissionsChangedEvent(r))
	return nil
}

// HasPermission checks a code, honouring the wildcard
func (r *Role) HasPermission(code string) bool {
	return PermissionGranted(r.Permissions, code)
}

// CanDelete reports whether the role may be removed
func (r *Role) CanDelete() error {
	if r.IsSystem {
		return shared.NewDomainError("SYSTEM_ROLE", "System roles cannot be deleted")
	}
	return nil
}

func validateRoleName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return shared.NewDomainError("INVALID_ROLE_NAME", "Role name cannot be empty")
	}
	if len(name) > 100 {
		return shared.NewDomainError("INVALID_ROLE_NAME", "Role name cannot exceed 100 characters")
	}
	return nil
}
