package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/reelworks/crm-api/internal/dto"
	"github.com/reelworks/crm-api/internal/entity"
	"github.com/reelworks/crm-api/internal/repository"
)

var (
	// ErrInvalidRole is returned for roles the dashboard does not know.
	ErrInvalidRole = errors.New("invalid role")
	// ErrLastAdmin is returned when an operation would leave no admin account.
	ErrLastAdmin = errors.New("cannot remove the last admin")
)

// UserService encapsulates administrative operations for users.
type UserService struct {
	repo repository.UsersRepository
}

// NewUserService builds a new UserService instance.
func NewUserService(repo repository.UsersRepository) *UserService {
	return &UserService{repo: repo}
}

// ListUsers returns all users as DTOs.
func (s *UserService) ListUsers(ctx context.Context) ([]dto.UserResponse, error) {
	users, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	responses := make([]dto.UserResponse, 0, len(users))
	for _, u := range users {
		responses = append(responses, userResponse(&u))
	}
	return responses, nil
}

// CreateUser creates a new user with the supplied role. An empty role
// defaults to sales, the least privileged one.
func (s *UserService) CreateUser(ctx context.Context, req dto.CreateUserRequest) (*dto.UserResponse, error) {
	req.Email = strings.TrimSpace(req.Email)
	req.FullName = strings.TrimSpace(req.FullName)
	req.Role = strings.TrimSpace(req.Role)

	if req.Email == "" || req.Password == "" {
		return nil, errors.New("email and password are required")
	}
	if req.Role == "" {
		req.Role = entity.RoleSales
	}
	if !entity.ValidRole(req.Role) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidRole, req.Role)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.repo.Create(ctx, req.Email, req.FullName, string(hashed), req.Role)
	if err != nil {
		if errors.Is(err, repository.ErrEmailDuplicate) {
			return nil, repository.ErrEmailDuplicate
		}
		return nil, err
	}

	resp := userResponse(user)
	return &resp, nil
}

// UpdateUser mutates selected user fields.
func (s *UserService) UpdateUser(ctx context.Context, id string, req dto.UpdateUserRequest) (*dto.UserResponse, error) {
	userID, err := uuid.Parse(id)
	if err != nil {
		return nil, errors.New("invalid user id")
	}

	var patch repository.UserPatch

	if req.Email != nil {
		trimmed := strings.TrimSpace(*req.Email)
		if trimmed == "" {
			return nil, errors.New("email cannot be empty")
		}
		patch.Email = &trimmed
	}

	if req.FullName != nil {
		trimmed := strings.TrimSpace(*req.FullName)
		patch.FullName = &trimmed
	}

	if req.Role != nil {
		trimmed := strings.TrimSpace(*req.Role)
		if trimmed == "" {
			return nil, errors.New("role cannot be empty")
		}
		if !entity.ValidRole(trimmed) {
			return nil, fmt.Errorf("%w: %s", ErrInvalidRole, trimmed)
		}
		// demoting the only admin would lock everyone out of /admin
		if trimmed != entity.RoleAdmin {
			if err := s.guardLastAdmin(ctx, userID); err != nil {
				return nil, err
			}
		}
		patch.Role = &trimmed
	}

	if req.Password != nil {
		if strings.TrimSpace(*req.Password) == "" {
			return nil, errors.New("password cannot be empty")
		}
		hashed, err := bcrypt.GenerateFromPassword([]byte(*req.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		pwd := string(hashed)
		patch.PasswordHash = &pwd
	}

	user, err := s.repo.Update(ctx, userID, patch)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, repository.ErrUserNotFound
		}
		if errors.Is(err, repository.ErrEmailDuplicate) {
			return nil, repository.ErrEmailDuplicate
		}
		return nil, err
	}

	resp := userResponse(user)
	return &resp, nil
}

// DeleteUser removes a user by id. Deleting the last admin is refused.
func (s *UserService) DeleteUser(ctx context.Context, id string) error {
	userID, err := uuid.Parse(id)
	if err != nil {
		return errors.New("invalid user id")
	}

	if err := s.guardLastAdmin(ctx, userID); err != nil {
		return err
	}

	return s.repo.Delete(ctx, userID)
}

// guardLastAdmin returns ErrLastAdmin when id identifies the only remaining
// admin account. Unknown ids pass; the repository reports those.
func (s *UserService) guardLastAdmin(ctx context.Context, id uuid.UUID) error {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil
		}
		return err
	}
	if !user.IsAdmin() {
		return nil
	}

	users, err := s.repo.List(ctx)
	if err != nil {
		return err
	}
	admins := 0
	for _, u := range users {
		if u.IsAdmin() {
			admins++
		}
	}
	if admins <= 1 {
		return ErrLastAdmin
	}
	return nil
}

func userResponse(user *entity.User) dto.UserResponse {
	return dto.UserResponse{
		ID:       user.ID.String(),
		Email:    user.Email,
		FullName: user.FullName,
		Role:     user.Role,
	}
}
