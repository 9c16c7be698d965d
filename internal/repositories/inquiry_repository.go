package repositories

import (
	"context"

	"github.com/clinic-portal/portal-service/internal/models"
	"gorm.io/gorm"
)

type InquiryRepository interface {
	Create(ctx context.Context, tx *gorm.DB, inquiry *models.Inquiry) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Inquiry, error)
	List(ctx context.Context, tx *gorm.DB, filters InquiryFilters) ([]*models.Inquiry, int64, error)
	// AddReply stores the reply and flags the inquiry as answered atomically.
	AddReply(ctx context.Context, tx *gorm.DB, reply *models.InquiryReply) error
	MarkRead(ctx context.Context, tx *gorm.DB, id uint) error
	CountReplies(ctx context.Context, tx *gorm.DB, inquiryID uint) (int64, error)
}
