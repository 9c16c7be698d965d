package casdoor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/casdoor/casdoor-go-sdk/casdoorsdk"

	"github.com/clinic-portal/portal-service/internal/cache"
	"github.com/clinic-portal/portal-service/internal/models"
	"github.com/clinic-portal/portal-service/internal/repositories"
)

// CasdoorConfig holds the configuration for Casdoor connection
type CasdoorConfig struct {
	Endpoint         string
	ClientID         string
	ClientSecret     string
	Certificate      string
	OrganizationName string
	ApplicationName  string
}

type DirectoryCasdoor struct {
	client *casdoorsdk.Client
	cache  *cache.CacheHelper
	config CasdoorConfig

	cacheTTL time.Duration
}

func NewDirectoryCasdoor(config CasdoorConfig, cacheHelper *cache.CacheHelper) repositories.DirectoryRepository {
	client := casdoorsdk.NewClient(
		config.Endpoint,
		config.ClientID,
		config.ClientSecret,
		config.Certificate,
		config.OrganizationName,
		config.ApplicationName,
	)

	return &DirectoryCasdoor{
		client:   client,
		cache:    cacheHelper,
		config:   config,
		cacheTTL: cache.DirectoryCacheConfig.TTL,
	}
}

// ===== CONVERSION METHODS =====

func (d *DirectoryCasdoor) convertCasdoorUser(casdoorUser *casdoorsdk.User) *repositories.DirectoryUser {
	if casdoorUser == nil {
		return nil
	}

	username := casdoorUser.Name
	if username == "" {
		username = casdoorUser.Email
	}

	return &repositories.DirectoryUser{
		ExternalID:  casdoorUser.Id,
		Username:    username,
		Email:       casdoorUser.Email,
		DisplayName: casdoorUser.DisplayName,
		Role:        d.convertCasdoorRoles(casdoorUser),
	}
}

// convertCasdoorRoles picks the strongest portal role among the user's Casdoor roles.
func (d *DirectoryCasdoor) convertCasdoorRoles(casdoorUser *casdoorsdk.User) models.Role {
	if casdoorUser.IsAdmin {
		return models.RoleAdmin
	}

	roles := make([]models.Role, 0, len(casdoorUser.Roles)+1)
	for _, casdoorRole := range casdoorUser.Roles {
		if casdoorRole == nil {
			continue
		}
		roles = append(roles, mapCasdoorRole(casdoorRole.Name))
	}
	roles = append(roles, mapCasdoorRole(casdoorUser.Type))

	switch {
	case slices.Contains(roles, models.RoleAdmin):
		return models.RoleAdmin
	case slices.Contains(roles, models.RoleIntern):
		return models.RoleIntern
	default:
		return models.RolePatient
	}
}

func mapCasdoorRole(name string) models.Role {
	switch strings.ToLower(name) {
	case "admin", "administrator", "administrador":
		return models.RoleAdmin
	case "intern", "pasante", "therapist", "psychologist":
		return models.RoleIntern
	default:
		return models.RolePatient
	}
}

// ===== READ OPERATIONS =====

// ParseToken validates the bearer token against the application certificate.
func (d *DirectoryCasdoor) ParseToken(ctx context.Context, token string) (*repositories.DirectoryUser, error) {
	claims, err := d.client.ParseJwtToken(token)
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	if claims.User.Id == "" {
		return nil, errors.New("invalid user ID in token")
	}

	// The directory copy carries current roles; the token only carries roles at issue time.
	if user, err := d.GetByExternalID(ctx, claims.User.Id); err == nil {
		return user, nil
	}

	user := d.convertCasdoorUser(&claims.User)
	return user, nil
}

// GetByExternalID retrieves a directory user by Casdoor ID
func (d *DirectoryCasdoor) GetByExternalID(ctx context.Context, id string) (*repositories.DirectoryUser, error) {
	cacheKey := fmt.Sprintf("id:%s", id)

	var cached repositories.DirectoryUser
	if err := d.cache.Get(ctx, cacheKey, &cached); err == nil {
		return &cached, nil
	}

	casdoorUser, err := d.client.GetUserByUserId(id)
	if err != nil {
		return nil, fmt.Errorf("failed to get user from Casdoor: %w", err)
	}
	if casdoorUser == nil {
		return nil, fmt.Errorf("user not found with ID %s: %w", id, repositories.ErrNotFound)
	}

	user := d.convertCasdoorUser(casdoorUser)

	if err := d.cache.Set(ctx, cacheKey, user, d.cacheTTL); err != nil {
		slog.WarnContext(ctx, "Failed to cache directory user", "error", err, "external_id", id)
	}

	return user, nil
}
