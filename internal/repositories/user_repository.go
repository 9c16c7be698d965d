package repositories

import (
	"context"
	"time"

	"github.com/clinic-portal/portal-service/internal/models"
	"gorm.io/gorm"
)

// UserRepository manages accounts together with their one-to-one Profile.
type UserRepository interface {
	// Create inserts the user and its profile in a single transaction.
	Create(ctx context.Context, tx *gorm.DB, user *models.User) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.User, error)
	GetByUsername(ctx context.Context, tx *gorm.DB, username string) (*models.User, error)
	GetByEmail(ctx context.Context, tx *gorm.DB, email string) (*models.User, error)
	GetByExternalID(ctx context.Context, tx *gorm.DB, externalID string) (*models.User, error)
	LinkExternalID(ctx context.Context, tx *gorm.DB, id uint, externalID string) error
	// FindConflict returns a user other than excludeID holding the username or email.
	FindConflict(ctx context.Context, tx *gorm.DB, username, email string, excludeID uint) (*models.User, error)
	Update(ctx context.Context, tx *gorm.DB, user *models.User) error
	Delete(ctx context.Context, tx *gorm.DB, id uint) error
	// OwnedFileKeys returns the storage keys of files removed along with the user.
	OwnedFileKeys(ctx context.Context, tx *gorm.DB, id uint) ([]string, error)

	List(ctx context.Context, tx *gorm.DB, filters UserFilters) ([]*models.User, int64, error)
	UpdateLastLogin(ctx context.Context, tx *gorm.DB, id uint, at time.Time) error
	GetStats(ctx context.Context, tx *gorm.DB, id uint) (*models.UserStats, error)
}
