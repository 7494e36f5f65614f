package identity

import (
	"github.com/google/uuid"
	"github.com/pharmapos/backend/internal/domain/shared"
)

// Aggregate type constants
const (
	AggregateTypeUser = "User"
	AggregateTypeRole = "Role"
)

// Event type constants
const (
	EventTypeUserCreated            = "UserCreated"
	EventTypeUserDeactivated        = "UserDeactivated"
	EventTypeUserPasswordChanged    = "UserPasswordChanged"
	EventTypeUserRoleChanged        = "UserRoleChanged"
	EventTypeRolePermissionsChanged = "RolePermissionsChanged"
)

// UserEvent is published on user lifecycle changes
type UserEvent struct {
	shared.BaseDomainEvent
	UserID uuid.UUID `json:"user_id"`
	Email  string    `json:"email"`
	RoleID uuid.UUID `json:"role_id"`
}

// NewUserEvent creates a user event of the given type
func NewUserEvent(eventType string, u *User) *UserEvent {
	return &UserEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, AggregateTypeUser, u.ID),
		UserID:          u.ID,
		Email:           u.Email,
		RoleID:          u.RoleID,
	}
}

// RolePermissionsChangedEvent is published when a role's permission set changes
type RolePermissionsChangedEvent struct {
	shared.BaseDomainEvent
	RoleID      uuid.UUID `json:"role_id"`
	Code        string    `json:"code"`
	Permissions []string  `json:"permissions"`
}

// NewRolePermissionsChangedEvent creates a RolePermissionsChangedEvent
func NewRolePermissionsChangedEvent(r *Role) *RolePermissionsChangedEvent {
	return &RolePermissionsChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeRolePermissionsChanged, AggregateTypeRole, r.ID),
		RoleID:          r.ID,
		Code:            r.Code,
		Permissions:     r.Permissions,
	}
}
