package identity

import (
	"context"
	"errors"

	"github.com/pharmapos/backend/internal/domain/identity"
	"github.com/pharmapos/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// AdminSeed holds the bootstrap administrator account
type AdminSeed struct {
	Email    string
	Password string
	FullName string
}

// Seeder creates the system roles and the first administrator
type Seeder struct {
	roleRepo identity.RoleRepository
	userRepo identity.UserRepository
	logger   *zap.Logger
}

// NewSeeder creates a new Seeder
func NewSeeder(roleRepo identity.RoleRepository, userRepo identity.UserRepository, logger *zap.Logger) *Seeder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Seeder{roleRepo: roleRepo, userRepo: userRepo, logger: logger}
}

// SeedSystemRoles creates any missing system role. Existing roles keep their edited permissions.
func (s *Seeder) SeedSystemRoles(ctx context.Context) (int, error) {
	created := 0
	for _, def := range identity.SystemRoles() {
		_, err := s.roleRepo.FindByCode(ctx, def.Code)
		if err == nil {
			continue
		}
		if !errors.Is(err, shared.ErrNotFound) {
			return created, err
		}

		role, err := identity.NewSystemRole(def.Code, def.Name, def.Description, def.Permissions)
		if err != nil {
			return created, err
		}
		role.ClearDomainEvents()
		if err := s.roleRepo.Save(ctx, role); err != nil {
			return created, err
		}
		created++
		s.logger.Info("Seeded system role", zap.String("code", def.Code))
	}
	return created, nil
}

// SeedAdmin creates the administrator when no user exists yet. Returns false when users already exist.
func (s *Seeder) SeedAdmin(ctx context.Context, seed AdminSeed) (bool, error) {
	count, err := s.userRepo.Count(ctx, shared.Filter{})
	if err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}
	if seed.Email == "" || seed.Password == "" {
		return false, shared.NewDomainError("ADMIN_SEED_MISSING", "Administrator email and password are required for the first start")
	}

	role, err := s.roleRepo.FindByCode(ctx, identity.RoleAdmin)
	if err != nil {
		return false, err
	}
	fullName := seed.FullName
	if fullName == "" {
		fullName = "Administrator"
	}
	admin, err := identity.NewUser(seed.Email, fullName, seed.Password, role.ID)
	if err != nil {
		return false, err
	}
	admin.ClearDomainEvents()
	if err := s.userRepo.Save(ctx, admin); err != nil {
		return false, err
	}
	s.logger.Info("Seeded administrator", zap.String("email", admin.Email))
	return true, nil
}
