package postgres

import (
	"context"

	"github.com/clinic-portal/portal-service/internal/models"
	"github.com/clinic-portal/portal-service/internal/repositories"
	"gorm.io/gorm"
)

type contentPostgreSQL struct {
	db *gorm.DB
}

func NewContentPostgreSQL(db *gorm.DB) repositories.ContentRepository {
	return &contentPostgreSQL{db: db}
}

func (r *contentPostgreSQL) Create(ctx context.Context, tx *gorm.DB, content *models.PersonalizedContent) error {
	db := getDB(r.db, tx)
	if err := db.WithContext(ctx).Omit("Author", "Patient").Create(content).Error; err != nil {
		return handleDBError(err, "create personalized content")
	}
	return nil
}

func (r *contentPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.PersonalizedContent, error) {
	db := getDB(r.db, tx)
	var content models.PersonalizedContent

	if err := db.WithContext(ctx).
		Preload("Author").
		Preload("Patient").
		First(&content, id).Error; err != nil {
		return nil, handleDBError(err, "get personalized content by id")
	}

	return &content, nil
}

func (r *contentPostgreSQL) GetByFileKey(ctx context.Context, tx *gorm.DB, key string) (*models.PersonalizedContent, error) {
	db := getDB(r.db, tx)
	var content models.PersonalizedContent

	if err := db.WithContext(ctx).Where("file_key = ?", key).First(&content).Error; err != nil {
		return nil, handleDBError(err, "get personalized content by file key")
	}

	return &content, nil
}

func (r *contentPostgreSQL) List(ctx context.Context, tx *gorm.DB, filters repositories.ContentFilters) ([]*models.PersonalizedContent, int64, error) {
	db := getDB(r.db, tx)
	var contents []*models.PersonalizedContent
	var total int64

	query := db.WithContext(ctx).Model(&models.PersonalizedContent{})

	if filters.PatientID != nil {
		query = query.Where("patient_id = ?", *filters.PatientID)
	}
	if filters.AuthorID != nil {
		query = query.Where("author_id = ?", *filters.AuthorID)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, handleDBError(err, "count personalized content")
	}

	query = applyPagination(query.Order("created_at DESC").Order("id DESC"), filters.Limit, filters.Offset)

	if err := query.Preload("Author").Preload("Patient").Find(&contents).Error; err != nil {
		return nil, 0, handleDBError(err, "list personalized content")
	}

	return contents, total, nil
}

func (r *contentPostgreSQL) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	db := getDB(r.db, tx)

	result := db.WithContext(ctx).Delete(&models.PersonalizedContent{}, id)
	if result.Error != nil {
		return handleDBError(result.Error, "delete personalized content")
	}
	if result.RowsAffected == 0 {
		return handleDBError(gorm.ErrRecordNotFound, "delete personalized content")
	}

	return nil
}
