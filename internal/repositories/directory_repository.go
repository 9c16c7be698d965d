package repositories

import (
	"context"

	"github.com/clinic-portal/portal-service/internal/models"
)

// DirectoryUser is an account as reported by the external identity provider.
type DirectoryUser struct {
	ExternalID  string      `json:"external_id"`
	Username    string      `json:"username"`
	Email       string      `json:"email"`
	DisplayName string      `json:"display_name"`
	Role        models.Role `json:"role"`
}

// DirectoryRepository resolves single sign-on bearer tokens into directory accounts.
type DirectoryRepository interface {
	ParseToken(ctx context.Context, token string) (*DirectoryUser, error)
	GetByExternalID(ctx context.Context, id string) (*DirectoryUser, error)
}
