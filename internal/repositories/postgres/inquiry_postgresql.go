package postgres

import (
	"context"
	"time"

	"github.com/clinic-portal/portal-service/internal/models"
	"github.com/clinic-portal/portal-service/internal/repositories"
	"gorm.io/gorm"
)

type inquiryPostgreSQL struct {
	db *gorm.DB
}

func NewInquiryPostgreSQL(db *gorm.DB) repositories.InquiryRepository {
	return &inquiryPostgreSQL{db: db}
}

func (r *inquiryPostgreSQL) Create(ctx context.Context, tx *gorm.DB, inquiry *models.Inquiry) error {
	db := getDB(r.db, tx)
	if err := db.WithContext(ctx).Omit("User", "Replies").Create(inquiry).Error; err != nil {
		return handleDBError(err, "create inquiry")
	}
	return nil
}

func (r *inquiryPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Inquiry, error) {
	db := getDB(r.db, tx)
	var inquiry models.Inquiry

	if err := db.WithContext(ctx).
		Preload("User").
		Preload("Replies", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC, id ASC")
		}).
		Preload("Replies.Author").
		First(&inquiry, id).Error; err != nil {
		return nil, handleDBError(err, "get inquiry by id")
	}

	return &inquiry, nil
}

func (r *inquiryPostgreSQL) List(ctx context.Context, tx *gorm.DB, filters repositories.InquiryFilters) ([]*models.Inquiry, int64, error) {
	db := getDB(r.db, tx)
	var inquiries []*models.Inquiry
	var total int64

	query := db.WithContext(ctx).Model(&models.Inquiry{})

	if filters.UserID != nil {
		query = query.Where("user_id = ?", *filters.UserID)
	}
	if filters.Answered != nil {
		query = query.Where("answered = ?", *filters.Answered)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, handleDBError(err, "count inquiries")
	}

	// Unanswered first, newest first within each group
	query = applyPagination(query.Order("answered ASC").Order("created_at DESC"), filters.Limit, filters.Offset)

	if err := query.Preload("User").Find(&inquiries).Error; err != nil {
		return nil, 0, handleDBError(err, "list inquiries")
	}

	return inquiries, total, nil
}

func (r *inquiryPostgreSQL) AddReply(ctx context.Context, tx *gorm.DB, reply *models.InquiryReply) error {
	db := getDB(r.db, tx)

	return db.WithContext(ctx).Transaction(func(inner *gorm.DB) error {
		var inquiry models.Inquiry
		if err := inner.Select("id").First(&inquiry, reply.InquiryID).Error; err != nil {
			return handleDBError(err, "get inquiry for reply")
		}

		if err := inner.Omit("Author").Create(reply).Error; err != nil {
			return handleDBError(err, "create inquiry reply")
		}

		if err := inner.Model(&models.Inquiry{}).
			Where("id = ?", reply.InquiryID).
			Updates(map[string]interface{}{
				"answered":     true,
				"read":         true,
				"latest_reply": reply.Body,
				"reply_count":  gorm.Expr("reply_count + 1"),
				"updated_at":   time.Now(),
			}).Error; err != nil {
			return handleDBError(err, "mark inquiry answered")
		}

		return nil
	})
}

func (r *inquiryPostgreSQL) MarkRead(ctx context.Context, tx *gorm.DB, id uint) error {
	db := getDB(r.db, tx)

	result := db.WithContext(ctx).Model(&models.Inquiry{}).
		Where("id = ?", id).
		Update("read", true)
	if result.Error != nil {
		return handleDBError(result.Error, "mark inquiry read")
	}
	if result.RowsAffected == 0 {
		return handleDBError(gorm.ErrRecordNotFound, "mark inquiry read")
	}

	return nil
}

func (r *inquiryPostgreSQL) CountReplies(ctx context.Context, tx *gorm.DB, inquiryID uint) (int64, error) {
	db := getDB(r.db, tx)
	var count int64

	if err := db.WithContext(ctx).Model(&models.InquiryReply{}).
		Where("inquiry_id = ?", inquiryID).
		Count(&count).Error; err != nil {
		return 0, handleDBError(err, "count inquiry replies")
	}

	return count, nil
}
