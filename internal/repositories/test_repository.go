package repositories

import (
	"context"

	"github.com/clinic-portal/portal-service/internal/models"
	"gorm.io/gorm"
)

// TestRepository covers the questionnaire and its immutable results.
type TestRepository interface {
	ListQuestions(ctx context.Context, tx *gorm.DB) ([]*models.TestQuestion, error)
	CountQuestions(ctx context.Context, tx *gorm.DB) (int64, error)
	SeedQuestions(ctx context.Context, tx *gorm.DB, questions []models.TestQuestion) error

	// CreateResult persists the result and its answers together.
	CreateResult(ctx context.Context, tx *gorm.DB, result *models.TestResult, answers []models.TestAnswer) error
	GetResultByID(ctx context.Context, tx *gorm.DB, id uint) (*models.TestResult, error)
	ListResults(ctx context.Context, tx *gorm.DB, filters ResultFilters) ([]*models.TestResult, int64, error)
	ListResultsWithAnswers(ctx context.Context, tx *gorm.DB, filters ResultFilters) ([]*models.TestResult, error)
}
