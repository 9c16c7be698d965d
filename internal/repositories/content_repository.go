package repositories

import (
	"context"

	"github.com/clinic-portal/portal-service/internal/models"
	"gorm.io/gorm"
)

type ContentRepository interface {
	Create(ctx context.Context, tx *gorm.DB, content *models.PersonalizedContent) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.PersonalizedContent, error)
	GetByFileKey(ctx context.Context, tx *gorm.DB, key string) (*models.PersonalizedContent, error)
	List(ctx context.Context, tx *gorm.DB, filters ContentFilters) ([]*models.PersonalizedContent, int64, error)
	Delete(ctx context.Context, tx *gorm.DB, id uint) error
}
