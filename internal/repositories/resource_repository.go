package repositories

import (
	"context"

	"github.com/clinic-portal/portal-service/internal/models"
	"gorm.io/gorm"
)

type ResourceCategoryRepository interface {
	Create(ctx context.Context, tx *gorm.DB, category *models.ResourceCategory) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.ResourceCategory, error)
	List(ctx context.Context, tx *gorm.DB) ([]*models.ResourceCategory, error)
	// Delete removes the category and every resource filed under it.
	Delete(ctx context.Context, tx *gorm.DB, id uint) error
}

type ResourceRepository interface {
	Create(ctx context.Context, tx *gorm.DB, resource *models.Resource) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Resource, error)
	Update(ctx context.Context, tx *gorm.DB, resource *models.Resource) error
	Delete(ctx context.Context, tx *gorm.DB, id uint) error
	List(ctx context.Context, tx *gorm.DB, filters ResourceFilters) ([]*models.Resource, int64, error)
	// FileReferenced reports whether any resource points at the storage key as file or cover.
	FileReferenced(ctx context.Context, tx *gorm.DB, key string) (*models.Resource, error)
}
