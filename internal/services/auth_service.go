package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/clinic-portal/portal-service/internal/auth"
	"github.com/clinic-portal/portal-service/internal/events"
	"github.com/clinic-portal/portal-service/internal/metrics"
	"github.com/clinic-portal/portal-service/internal/models"
	"github.com/clinic-portal/portal-service/internal/repositories"
	"github.com/clinic-portal/portal-service/internal/validator"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type authService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
	sessions  *auth.SessionManager
	directory repositories.DirectoryRepository
	publisher events.EventPublisher
}

func NewAuthService(
	repo repositories.Repository,
	db *gorm.DB,
	logger *slog.Logger,
	validator *validator.Validator,
	sessions *auth.SessionManager,
	directory repositories.DirectoryRepository,
	publisher events.EventPublisher,
) AuthService {
	return &authService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: validator,
		sessions:  sessions,
		directory: directory,
		publisher: publisher,
	}
}

func (s *authService) Login(ctx context.Context, req *LoginRequest) (*LoginResult, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	username := strings.TrimSpace(req.Username)
	user, err := s.repo.User().GetByUsername(ctx, s.db, username)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			metrics.RecordLogin("invalid")
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if err := auth.CheckPassword(user.PasswordHash, req.Password); err != nil {
		metrics.RecordLogin("invalid")
		s.logger.Info("Login rejected", "username", username)
		return nil, ErrInvalidCredentials
	}

	if !user.IsActive {
		metrics.RecordLogin("inactive")
		return nil, ErrInactiveAccount
	}

	now := time.Now()
	if err := s.repo.User().UpdateLastLogin(ctx, s.db, user.ID, now); err != nil {
		s.logger.Warn("Failed to record last login", "user_id", user.ID, "error", err)
	}
	user.LastLoginAt = &now

	token, claims, err := s.sessions.Issue(user, false)
	if err != nil {
		return nil, err
	}

	metrics.RecordLogin("success")
	s.logger.Info("User logged in", "user_id", user.ID, "role", user.Role())

	return &LoginResult{User: user, Token: token, Claims: claims}, nil
}

func (s *authService) Logout(ctx context.Context, claims *auth.Claims) error {
	if claims == nil {
		return nil
	}
	if err := s.sessions.Revoke(ctx, claims); err != nil {
		return err
	}
	s.logger.Info("User logged out", "user_id", claims.UserID)
	return nil
}

func (s *authService) Authenticate(ctx context.Context, token string) (*models.User, *auth.Claims, error) {
	claims, err := s.sessions.Parse(ctx, token)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}

	user, err := s.repo.User().GetByID(ctx, s.db, claims.UserID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, nil, ErrUnauthorized
		}
		return nil, nil, fmt.Errorf("failed to load session user: %w", err)
	}
	if !user.IsActive {
		return nil, nil, ErrUnauthorized
	}

	return user, claims, nil
}

func (s *authService) AuthenticateDirectory(ctx context.Context, bearer string) (*models.User, error) {
	if s.directory == nil {
		return nil, ErrUnauthorized
	}

	du, err := s.directory.ParseToken(ctx, bearer)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	if du.ExternalID == "" {
		return nil, ErrUnauthorized
	}

	user, err := s.findDirectoryUser(ctx, du)
	if err == nil {
		if !user.IsActive {
			return nil, ErrUnauthorized
		}
		return user, nil
	}
	if !repositories.IsNotFoundError(err) {
		return nil, fmt.Errorf("failed to look up directory user: %w", err)
	}

	return s.provisionDirectoryUser(ctx, du)
}

// findDirectoryUser resolves the local account linked to the directory entry.
// An unlinked patient account with the same email is linked on first use;
// staff accounts are never linked implicitly.
func (s *authService) findDirectoryUser(ctx context.Context, du *repositories.DirectoryUser) (*models.User, error) {
	user, err := s.repo.User().GetByExternalID(ctx, s.db, du.ExternalID)
	if err == nil || !repositories.IsNotFoundError(err) || du.Email == "" {
		return user, err
	}

	local, err := s.repo.User().GetByEmail(ctx, s.db, du.Email)
	if err != nil {
		return nil, err
	}
	if local.ExternalID != nil || local.Role().IsStaff() {
		s.logger.Warn("Refused to link directory account",
			"user_id", local.ID,
			"external_id", du.ExternalID,
			"role", local.Role())
		return nil, ErrUnauthorized
	}

	if err := s.repo.User().LinkExternalID(ctx, s.db, local.ID, du.ExternalID); err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("failed to link directory user: %w", err)
	}
	local.ExternalID = &du.ExternalID

	s.logger.Info("Linked directory account", "user_id", local.ID, "external_id", du.ExternalID)
	return local, nil
}

// provisionDirectoryUser creates a local account for a first-time SSO login.
// The password is random; such accounts sign in through the directory only.
func (s *authService) provisionDirectoryUser(ctx context.Context, du *repositories.DirectoryUser) (*models.User, error) {
	hash, err := auth.HashPassword(uuid.NewString())
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	role := du.Role
	if !role.Valid() {
		role = models.RolePatient
	}
	externalID := du.ExternalID

	user := &models.User{
		Username:     du.Username,
		Email:        du.Email,
		FirstName:    du.DisplayName,
		ExternalID:   &externalID,
		PasswordHash: hash,
		IsActive:     true,
		Profile:      models.Profile{Role: role},
	}
	if err := s.repo.User().Create(ctx, s.db, user); err != nil {
		if repositories.IsDuplicateError(err) {
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("failed to provision directory user: %w", err)
	}

	s.logger.Info("Provisioned directory user", "user_id", user.ID, "external_id", du.ExternalID, "role", role)
	events.PublishSafe(ctx, s.publisher, s.logger, events.UserCreated, events.UserCreatedEvent{
		UserID:   user.ID,
		Username: user.Username,
		Role:     string(role),
	})

	return user, nil
}

func (s *authService) SetViewAsUser(ctx context.Context, actor *models.User, claims *auth.Claims, enabled bool) (*LoginResult, error) {
	if enabled {
		if err := requireStaff(actor, "session", "view_as_user"); err != nil {
			return nil, err
		}
	} else if err := requireAuthenticated(actor); err != nil {
		return nil, err
	}

	token, fresh, err := s.sessions.Issue(actor, enabled)
	if err != nil {
		return nil, err
	}
	if err := s.sessions.Revoke(ctx, claims); err != nil {
		s.logger.Warn("Failed to revoke previous session", "user_id", actor.ID, "error", err)
	}

	s.logger.Info("View-as-user toggled", "user_id", actor.ID, "enabled", enabled)
	return &LoginResult{User: actor, Token: token, Claims: fresh}, nil
}

// EnsureAdmin creates the configured administrator when that username is free.
func (s *authService) EnsureAdmin(ctx context.Context, username, email, password string) error {
	if username == "" || password == "" {
		s.logger.Warn("Admin bootstrap skipped: username or password not configured")
		return nil
	}

	_, err := s.repo.User().GetByUsername(ctx, s.db, username)
	if err == nil {
		return nil
	}
	if !repositories.IsNotFoundError(err) {
		return fmt.Errorf("failed to check admin user: %w", err)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}

	admin := &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		IsActive:     true,
		Profile:      models.Profile{Role: models.RoleAdmin},
	}
	if err := s.repo.User().Create(ctx, s.db, admin); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return fmt.Errorf("admin email %q already belongs to another account: %w", email, ErrConflict)
		}
		return fmt.Errorf("failed to create admin user: %w", err)
	}

	s.logger.Info("Bootstrap admin created", "user_id", admin.ID, "username", username)
	events.PublishSafe(ctx, s.publisher, s.logger, events.UserCreated, events.UserCreatedEvent{
		UserID:   admin.ID,
		Username: admin.Username,
		Role:     string(models.RoleAdmin),
	})
	return nil
}

func (s *authService) SessionTTLSeconds() int {
	return int(s.sessions.TTL().Seconds())
}
