package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/clinic-portal/portal-service/internal/auth"
	"github.com/clinic-portal/portal-service/internal/events"
	"github.com/clinic-portal/portal-service/internal/models"
	"github.com/clinic-portal/portal-service/internal/repositories"
	"github.com/clinic-portal/portal-service/internal/storage"
	"github.com/clinic-portal/portal-service/internal/validator"
	"gorm.io/gorm"
)

type userService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
	files     storage.FileStorage
	publisher events.EventPublisher
}

func NewUserService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validator, files storage.FileStorage, publisher events.EventPublisher) UserService {
	return &userService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: validator,
		files:     files,
		publisher: publisher,
	}
}

// ===== ADMIN CRUD =====

func (s *userService) Create(ctx context.Context, actor *models.User, req *CreateUserRequest) (*models.User, error) {
	if err := requireRole(actor, "user", "create", models.RoleAdmin); err != nil {
		return nil, err
	}

	normalizeAccount(&req.Username, &req.Email)
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	if err := s.checkUnique(ctx, req.Username, req.Email, 0); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Username:     req.Username,
		Email:        req.Email,
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		PasswordHash: hash,
		IsActive:     true,
		Profile: models.Profile{
			Role:      req.Role,
			Phone:     optionalString(req.Phone),
			BirthDate: req.BirthDate,
		},
	}

	if err := s.repo.User().Create(ctx, s.db, user); err != nil {
		if repositories.IsDuplicateError(err) {
			return nil, s.duplicateErrors(ctx, req.Username, req.Email, 0)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info("User created", "user_id", user.ID, "role", user.Role(), "created_by", actor.ID)
	events.PublishSafe(ctx, s.publisher, s.logger, events.UserCreated, events.UserCreatedEvent{
		UserID:    user.ID,
		Username:  user.Username,
		Role:      string(user.Role()),
		CreatedBy: actor.ID,
	})

	return user, nil
}

func (s *userService) GetByID(ctx context.Context, actor *models.User, id uint) (*models.User, error) {
	if err := requireAuthenticated(actor); err != nil {
		return nil, err
	}
	if actor.ID != id && !actor.Role().IsStaff() {
		return nil, NewPermissionError(actor.ID, id, "user", "read", "not own account")
	}

	return s.getUser(ctx, id)
}

func (s *userService) Update(ctx context.Context, actor *models.User, id uint, req *UpdateUserRequest) (*models.User, error) {
	if err := requireRole(actor, "user", "update", models.RoleAdmin); err != nil {
		return nil, err
	}

	normalizeAccount(&req.Username, &req.Email)
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	user, err := s.getUser(ctx, id)
	if err != nil {
		return nil, err
	}

	if actor.ID == id && (req.Role != models.RoleAdmin || !req.IsActive) {
		return nil, NewBusinessRuleError("self_demotion",
			"No puedes quitarte el rol de administrador ni desactivar tu propia cuenta.", nil)
	}

	if err := s.checkUnique(ctx, req.Username, req.Email, id); err != nil {
		return nil, err
	}

	user.Username = req.Username
	user.Email = req.Email
	user.FirstName = strings.TrimSpace(req.FirstName)
	user.LastName = strings.TrimSpace(req.LastName)
	user.IsActive = req.IsActive
	user.Profile.Role = req.Role
	user.Profile.Phone = optionalString(req.Phone)
	user.Profile.BirthDate = req.BirthDate

	if req.Password != "" {
		hash, err := auth.HashPassword(req.Password)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		user.PasswordHash = hash
	}

	if err := s.repo.User().Update(ctx, s.db, user); err != nil {
		if repositories.IsDuplicateError(err) {
			return nil, s.duplicateErrors(ctx, req.Username, req.Email, id)
		}
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	s.logger.Info("User updated", "user_id", id, "updated_by", actor.ID)
	return user, nil
}

func (s *userService) Delete(ctx context.Context, actor *models.User, id uint) error {
	if err := requireRole(actor, "user", "delete", models.RoleAdmin); err != nil {
		return err
	}
	if actor.ID == id {
		return NewBusinessRuleError("self_delete", "No puedes eliminar tu propia cuenta.", nil)
	}

	fileKeys, err := s.repo.User().OwnedFileKeys(ctx, s.db, id)
	if err != nil {
		return fmt.Errorf("failed to list user files: %w", err)
	}

	if err := s.repo.User().Delete(ctx, s.db, id); err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to delete user: %w", err)
	}

	for i := range fileKeys {
		discardUploads(ctx, s.files, s.logger, &fileKeys[i])
	}

	s.logger.Info("User deleted", "user_id", id, "deleted_by", actor.ID, "files", len(fileKeys))
	return nil
}

func (s *userService) List(ctx context.Context, actor *models.User, req *UserListRequest) (*UserListResponse, error) {
	if err := requireRole(actor, "user", "list", models.RoleAdmin); err != nil {
		return nil, err
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	limit, offset, page := paginate(req.Page)
	filters := repositories.UserFilters{
		Query:  strings.TrimSpace(req.Query),
		Limit:  limit,
		Offset: offset,
	}
	if req.Role != "" {
		role := models.Role(req.Role)
		filters.Role = &role
	}

	users, total, err := s.repo.User().List(ctx, s.db, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	return &UserListResponse{Users: users, Total: total, Page: page, Size: limit}, nil
}

// ===== DIRECTORY AND PROFILE =====

func (s *userService) ListPatients(ctx context.Context, actor *models.User) ([]*models.User, error) {
	if err := requireStaff(actor, "patient", "list"); err != nil {
		return nil, err
	}

	role := models.RolePatient
	patients, _, err := s.repo.User().List(ctx, s.db, repositories.UserFilters{Role: &role})
	if err != nil {
		return nil, fmt.Errorf("failed to list patients: %w", err)
	}
	return patients, nil
}

func (s *userService) GetProfile(ctx context.Context, actor *models.User) (*ProfileResponse, error) {
	if err := requireAuthenticated(actor); err != nil {
		return nil, err
	}

	user, err := s.getUser(ctx, actor.ID)
	if err != nil {
		return nil, err
	}

	stats, err := s.repo.User().GetStats(ctx, s.db, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user stats: %w", err)
	}

	return &ProfileResponse{User: user, Stats: stats}, nil
}

func (s *userService) UpdateProfile(ctx context.Context, actor *models.User, req *ProfileUpdateRequest) (*models.User, error) {
	if err := requireAuthenticated(actor); err != nil {
		return nil, err
	}

	req.Email = strings.TrimSpace(req.Email)
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	user, err := s.getUser(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	if err := s.checkUnique(ctx, user.Username, req.Email, user.ID); err != nil {
		return nil, err
	}

	user.FirstName = strings.TrimSpace(req.FirstName)
	user.LastName = strings.TrimSpace(req.LastName)
	user.Email = req.Email
	user.Profile.Phone = optionalString(req.Phone)
	user.Profile.BirthDate = req.BirthDate

	if err := s.repo.User().Update(ctx, s.db, user); err != nil {
		if repositories.IsDuplicateError(err) {
			return nil, s.duplicateErrors(ctx, user.Username, req.Email, user.ID)
		}
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	return user, nil
}

// ===== HELPERS =====

func (s *userService) getUser(ctx context.Context, id uint) (*models.User, error) {
	user, err := s.repo.User().GetByID(ctx, s.db, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

func (s *userService) checkUnique(ctx context.Context, username, email string, excludeID uint) error {
	conflict, err := s.repo.User().FindConflict(ctx, s.db, username, email, excludeID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil
		}
		return fmt.Errorf("failed to check account uniqueness: %w", err)
	}
	if errs := s.validator.ValidateUniqueAccount(conflict, username, email); len(errs) > 0 {
		return errs
	}
	return nil
}

// duplicateErrors explains a unique-constraint failure that raced past checkUnique.
func (s *userService) duplicateErrors(ctx context.Context, username, email string, excludeID uint) error {
	if err := s.checkUnique(ctx, username, email, excludeID); err != nil {
		return err
	}
	return ErrConflict
}

func normalizeAccount(username, email *string) {
	*username = strings.TrimSpace(*username)
	*email = strings.TrimSpace(*email)
}
