package identity

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/pharmapos/backend/internal/domain/identity"
	"github.com/pharmapos/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// SessionRevoker signs a user out of every session
type SessionRevoker interface {
	AddUserTokensToBlacklist(ctx context.Context, userID string, ttl time.Duration) error
}

// UserService manages staff accounts
type UserService struct {
	userRepo   identity.UserRepository
	roleRepo   identity.RoleRepository
	events     shared.EventPublisher
	revoker    SessionRevoker
	sessionTTL time.Duration
	logger     *zap.Logger
}

// NewUserService creates a new UserService. sessionTTL should match the refresh token lifetime.
func NewUserService(
	userRepo identity.UserRepository,
	roleRepo identity.RoleRepository,
	events shared.EventPublisher,
	revoker SessionRevoker,
	sessionTTL time.Duration,
	logger *zap.Logger,
) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{
		userRepo:   userRepo,
		roleRepo:   roleRepo,
		events:     events,
		revoker:    revoker,
		sessionTTL: sessionTTL,
		logger:     logger,
	}
}

// Create creates a user with the given role
func (s *UserService) Create(ctx context.Context, req CreateUserRequest) (*UserResponse, error) {
	role, err := s.role(ctx, req.RoleID)
	if err != nil {
		return nil, err
	}

	user, err := identity.NewUser(req.Email, req.FullName, req.Password, role.ID)
	if err != nil {
		return nil, err
	}
	if req.Phone != "" {
		if err := user.UpdateProfile(user.FullName, req.Phone); err != nil {
			return nil, err
		}
	}

	exists, err := s.userRepo.ExistsByEmail(ctx, user.Email, nil)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, shared.NewDomainError("EMAIL_TAKEN", "A user with this email already exists")
	}

	if err := s.userRepo.Save(ctx, user); err != nil {
		return nil, err
	}
	s.publish(ctx, user)

	s.logger.Info("User created", zap.String("user_id", user.ID.String()), zap.String("role", role.Code))
	resp := ToUserResponse(user, role)
	return &resp, nil
}

// GetByID retrieves a user by ID
func (s *UserService) GetByID(ctx context.Context, id uuid.UUID) (*UserResponse, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	role, err := s.roleRepo.FindByID(ctx, user.RoleID)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}
	resp := ToUserResponse(user, role)
	return &resp, nil
}

// List retrieves a page of users
func (s *UserService) List(ctx context.Context, filter UserListFilter) ([]UserResponse, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	if filter.OrderBy == "" {
		filter.OrderBy = "full_name"
	}
	if filter.OrderDir == "" {
		filter.OrderDir = "asc"
	}

	domainFilter := shared.Filter{
		Page:     filter.Page,
		PageSize: filter.PageSize,
		OrderBy:  filter.OrderBy,
		OrderDir: filter.OrderDir,
		Search:   filter.Search,
		Filters:  make(map[string]interface{}),
	}
	if filter.Status != "" {
		domainFilter.Filters["status"] = filter.Status
	}
	if filter.RoleID != "" {
		roleID, err := uuid.Parse(filter.RoleID)
		if err != nil {
			return nil, 0, shared.ErrInvalidInput
		}
		domainFilter.Filters["role_id"] = roleID
	}

	users, err := s.userRepo.FindAll(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.userRepo.Count(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	roles, err := s.roleRepo.FindAll(ctx)
	if err != nil {
		return nil, 0, err
	}
	byID := make(map[uuid.UUID]*identity.Role, len(roles))
	for i := range roles {
		byID[roles[i].ID] = &roles[i]
	}

	out := make([]UserResponse, len(users))
	for i := range users {
		out[i] = ToUserResponse(&users[i], byID[users[i].RoleID])
	}
	return out, total, nil
}

// Update applies a partial profile update
func (s *UserService) Update(ctx context.Context, id uuid.UUID, req UpdateUserRequest) (*UserResponse, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Email != nil {
		if err := user.SetEmail(*req.Email); err != nil {
			return nil, err
		}
		exists, err := s.userRepo.ExistsByEmail(ctx, user.Email, &user.ID)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, shared.NewDomainError("EMAIL_TAKEN", "A user with this email already exists")
		}
	}
	if req.FullName != nil || req.Phone != nil {
		fullName, phone := user.FullName, user.Phone
		if req.FullName != nil {
			fullName = *req.FullName
		}
		if req.Phone != nil {
			phone = *req.Phone
		}
		if err := user.UpdateProfile(fullName, phone); err != nil {
			return nil, err
		}
	}

	if err := s.userRepo.Save(ctx, user); err != nil {
		return nil, err
	}
	return s.GetByID(ctx, id)
}

// Activate enables a user
func (s *UserService) Activate(ctx context.Context, id uuid.UUID) (*UserResponse, error) {
	return s.mutate(ctx, id, false, (*identity.User).Activate)
}

// Deactivate disables a user and ends their sessions. Users cannot deactivate themselves.
func (s *UserService) Deactivate(ctx context.Context, actorID, id uuid.UUID) (*UserResponse, error) {
	if actorID == id {
		return nil, shared.NewDomainError("CANNOT_MODIFY_SELF", "You cannot deactivate your own account")
	}
	return s.mutate(ctx, id, true, (*identity.User).Deactivate)
}

// Unlock clears a login lock
func (s *UserService) Unlock(ctx context.Context, id uuid.UUID) (*UserResponse, error) {
	return s.mutate(ctx, id, false, (*identity.User).Unlock)
}

// ResetPassword sets a new password without the old one and ends the user's sessions
func (s *UserService) ResetPassword(ctx context.Context, id uuid.UUID, req ResetPasswordRequest) error {
	_, err := s.mutate(ctx, id, true, func(u *identity.User) error {
		return u.SetPassword(req.NewPassword)
	})
	return err
}

// AssignRole moves a user to another role. The new permissions apply from the next token refresh.
func (s *UserService) AssignRole(ctx context.Context, id uuid.UUID, req AssignRoleRequest) (*UserResponse, error) {
	if _, err := s.role(ctx, req.RoleID); err != nil {
		return nil, err
	}
	return s.mutate(ctx, id, false, func(u *identity.User) error {
		return u.AssignRole(req.RoleID)
	})
}

// Delete soft-deletes a user. Users cannot delete themselves.
func (s *UserService) Delete(ctx context.Context, actorID, id uuid.UUID) error {
	if actorID == id {
		return shared.NewDomainError("CANNOT_DELETE_SELF", "You cannot delete your own account")
	}
	if err := s.userRepo.Delete(ctx, id); err != nil {
		return err
	}
	s.revokeSessions(ctx, id)
	s.logger.Info("User deleted", zap.String("user_id", id.String()), zap.String("actor_id", actorID.String()))
	return nil
}

func (s *UserService) mutate(ctx context.Context, id uuid.UUID, revoke bool, change func(*identity.User) error) (*UserResponse, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := change(user); err != nil {
		return nil, err
	}
	if err := s.userRepo.Save(ctx, user); err != nil {
		return nil, err
	}
	s.publish(ctx, user)
	if revoke {
		s.revokeSessions(ctx, user.ID)
	}
	return s.GetByID(ctx, id)
}

func (s *UserService) role(ctx context.Context, id uuid.UUID) (*identity.Role, error) {
	role, err := s.roleRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError("INVALID_ROLE", "Role does not exist")
		}
		return nil, err
	}
	return role, nil
}

func (s *UserService) revokeSessions(ctx context.Context, userID uuid.UUID) {
	if s.revoker == nil {
		return
	}
	if err := s.revoker.AddUserTokensToBlacklist(ctx, userID.String(), s.sessionTTL); err != nil {
		s.logger.Error("Failed to revoke user sessions", zap.String("user_id", userID.String()), zap.Error(err))
	}
}

func (s *UserService) publish(ctx context.Context, user *identity.User) {
	if err := shared.PublishAndClear(ctx, s.events, user); err != nil {
		s.logger.Warn("Failed to publish user events", zap.String("user_id", user.ID.String()), zap.Error(err))
	}
}
