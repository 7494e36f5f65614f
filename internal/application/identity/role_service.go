package identity

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/pharmapos/backend/internal/domain/identity"
	"github.com/pharmapos/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// RoleService manages roles and their permission sets
type RoleService struct {
	roleRepo identity.RoleRepository
	userRepo identity.UserRepository
	events   shared.EventPublisher
	logger   *zap.Logger
}

// NewRoleService creates a new RoleService
func NewRoleService(roleRepo identity.RoleRepository, userRepo identity.UserRepository, events shared.EventPublisher, logger *zap.Logger) *RoleService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RoleService{roleRepo: roleRepo, userRepo: userRepo, events: events, logger: logger}
}

// Create creates a custom role
func (s *RoleService) Create(ctx context.Context, req CreateRoleRequest) (*RoleResponse, error) {
	role, err := identity.NewRole(req.Code, req.Name, req.Description)
	if err != nil {
		return nil, err
	}
	if _, err := s.roleRepo.FindByCode(ctx, role.Code); err == nil {
		return nil, shared.NewDomainError("ROLE_CODE_TAKEN", "A role with this code already exists")
	} else if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}
	if len(req.Permissions) > 0 {
		if err := role.SetPermissions(req.Permissions); err != nil {
			return nil, err
		}
	}

	if err := s.roleRepo.Save(ctx, role); err != nil {
		return nil, err
	}
	s.publish(ctx, role)

	s.logger.Info("Role created", zap.String("code", role.Code), zap.Int("permissions", len(role.Permissions)))
	resp := ToRoleResponse(role, 0)
	return &resp, nil
}

// GetByID retrieves a role with its user count
func (s *RoleService) GetByID(ctx context.Context, id uuid.UUID) (*RoleResponse, error) {
	role, err := s.roleRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	count, err := s.userRepo.CountByRole(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToRoleResponse(role, count)
	return &resp, nil
}

// List returns every role
func (s *RoleService) List(ctx context.Context) ([]RoleResponse, error) {
	roles, err := s.roleRepo.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]RoleResponse, len(roles))
	for i := range roles {
		count, err := s.userRepo.CountByRole(ctx, roles[i].ID)
		if err != nil {
			return nil, err
		}
		out[i] = ToRoleResponse(&roles[i], count)
	}
	return out, nil
}

// Update changes a role's name or description
func (s *RoleService) Update(ctx context.Context, id uuid.UUID, req UpdateRoleRequest) (*RoleResponse, error) {
	role, err := s.roleRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	name, description := role.Name, role.Description
	if req.Name != nil {
		name = *req.Name
	}
	if req.Description != nil {
		description = *req.Description
	}
	if err := role.Update(name, description); err != nil {
		return nil, err
	}
	if err := s.roleRepo.Save(ctx, role); err != nil {
		return nil, err
	}
	return s.GetByID(ctx, id)
}

// SetPermissions replaces a role's permissions. The administrator role always keeps "*".
func (s *RoleService) SetPermissions(ctx context.Context, id uuid.UUID, req SetPermissionsRequest) (*RoleResponse, error) {
	role, err := s.roleRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if role.Code == identity.RoleAdmin {
		return nil, shared.NewDomainError("ROLE_PROTECTED", "Administrator permissions cannot be changed")
	}
	if err := role.SetPermissions(req.Permissions); err != nil {
		return nil, err
	}
	if err := s.roleRepo.Save(ctx, role); err != nil {
		return nil, err
	}
	s.publish(ctx, role)

	s.logger.Info("Role permissions changed", zap.String("code", role.Code), zap.Strings("permissions", role.Permissions))
	return s.GetByID(ctx, id)
}

// Delete removes a custom role that no user holds
func (s *RoleService) Delete(ctx context.Context, id uuid.UUID) error {
	role, err := s.roleRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := role.CanDelete(); err != nil {
		return err
	}
	count, err := s.userRepo.CountByRole(ctx, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return shared.NewDomainError("ROLE_IN_USE", "Role is assigned to users")
	}
	if err := s.roleRepo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("Role deleted", zap.String("code", role.Code))
	return nil
}

// ListPermissions returns the catalog of permission codes
func (s *RoleService) ListPermissions() []identity.Permission {
	return identity.Catalog
}

func (s *RoleService) publish(ctx context.Context, role *identity.Role) {
	if err := shared.PublishAndClear(ctx, s.events, role); err != nil {
		s.logger.Warn("Failed to publish role events", zap.String("role_id", role.ID.String()), zap.Error(err))
	}
}
