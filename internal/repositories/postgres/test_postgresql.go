package postgres

import (
	"context"

	"github.com/clinic-portal/portal-service/internal/models"
	"github.com/clinic-portal/portal-service/internal/repositories"
	"gorm.io/gorm"
)

type testPostgreSQL struct {
	db *gorm.DB
}

func NewTestPostgreSQL(db *gorm.DB) repositories.TestRepository {
	return &testPostgreSQL{db: db}
}

// ===== QUESTIONNAIRE =====

func (r *testPostgreSQL) ListQuestions(ctx context.Context, tx *gorm.DB) ([]*models.TestQuestion, error) {
	db := getDB(r.db, tx)
	var questions []*models.TestQuestion

	if err := db.WithContext(ctx).
		Preload("Options", func(db *gorm.DB) *gorm.DB {
			return db.Order("points ASC, id ASC")
		}).
		Order("number ASC").
		Find(&questions).Error; err != nil {
		return nil, handleDBError(err, "list test questions")
	}

	return questions, nil
}

func (r *testPostgreSQL) CountQuestions(ctx context.Context, tx *gorm.DB) (int64, error) {
	db := getDB(r.db, tx)
	var count int64

	if err := db.WithContext(ctx).Model(&models.TestQuestion{}).Count(&count).Error; err != nil {
		return 0, handleDBError(err, "count test questions")
	}

	return count, nil
}

// SeedQuestions inserts the questionnaire with its options; gorm writes the
// has-many Options in the same statement batch.
func (r *testPostgreSQL) SeedQuestions(ctx context.Context, tx *gorm.DB, questions []models.TestQuestion) error {
	if len(questions) == 0 {
		return nil
	}

	db := getDB(r.db, tx)

	return db.WithContext(ctx).Transaction(func(inner *gorm.DB) error {
		if err := inner.Create(&questions).Error; err != nil {
			return handleDBError(err, "seed test questions")
		}
		return nil
	})
}

// ===== RESULTS =====

func (r *testPostgreSQL) CreateResult(ctx context.Context, tx *gorm.DB, result *models.TestResult, answers []models.TestAnswer) error {
	db := getDB(r.db, tx)

	return db.WithContext(ctx).Transaction(func(inner *gorm.DB) error {
		if err := inner.Omit("Patient", "Answers").Create(result).Error; err != nil {
			return handleDBError(err, "create test result")
		}

		if len(answers) == 0 {
			return nil
		}

		for i := range answers {
			answers[i].ResultID = result.ID
			answers[i].PatientID = result.PatientID
		}

		if err := inner.Omit("Question", "Option").Create(&answers).Error; err != nil {
			return handleDBError(err, "create test answers")
		}
		result.Answers = answers

		return nil
	})
}

func (r *testPostgreSQL) GetResultByID(ctx context.Context, tx *gorm.DB, id uint) (*models.TestResult, error) {
	db := getDB(r.db, tx)
	var result models.TestResult

	if err := db.WithContext(ctx).
		Preload("Patient.Profile").
		Preload("Answers", func(db *gorm.DB) *gorm.DB {
			return db.Order("id ASC")
		}).
		Preload("Answers.Question").
		Preload("Answers.Option").
		First(&result, id).Error; err != nil {
		return nil, handleDBError(err, "get test result by id")
	}

	return &result, nil
}

func (r *testPostgreSQL) applyResultFilters(query *gorm.DB, filters repositories.ResultFilters) *gorm.DB {
	if filters.PatientID != nil {
		query = query.Where("patient_id = ?", *filters.PatientID)
	}
	if filters.DateFrom != nil {
		query = query.Where("created_at >= ?", *filters.DateFrom)
	}
	if filters.DateTo != nil {
		query = query.Where("created_at <= ?", *filters.DateTo)
	}
	return query
}

func (r *testPostgreSQL) ListResults(ctx context.Context, tx *gorm.DB, filters repositories.ResultFilters) ([]*models.TestResult, int64, error) {
	db := getDB(r.db, tx)
	var results []*models.TestResult
	var total int64

	query := r.applyResultFilters(db.WithContext(ctx).Model(&models.TestResult{}), filters)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, handleDBError(err, "count test results")
	}

	query = applyPagination(query.Order("created_at DESC").Order("id DESC"), filters.Limit, filters.Offset)

	if err := query.Preload("Patient.Profile").Find(&results).Error; err != nil {
		return nil, 0, handleDBError(err, "list test results")
	}

	return results, total, nil
}

// ListResultsWithAnswers feeds the spreadsheet export.
func (r *testPostgreSQL) ListResultsWithAnswers(ctx context.Context, tx *gorm.DB, filters repositories.ResultFilters) ([]*models.TestResult, error) {
	db := getDB(r.db, tx)
	var results []*models.TestResult

	query := r.applyResultFilters(db.WithContext(ctx).Model(&models.TestResult{}), filters)
	query = applyPagination(query.Order("created_at DESC").Order("id DESC"), filters.Limit, filters.Offset)

	if err := query.
		Preload("Patient").
		Preload("Answers", func(db *gorm.DB) *gorm.DB {
			return db.Order("id ASC")
		}).
		Preload("Answers.Question").
		Preload("Answers.Option").
		Find(&results).Error; err != nil {
		return nil, handleDBError(err, "list test results with answers")
	}

	return results, nil
}
