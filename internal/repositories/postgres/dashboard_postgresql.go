package postgres

import (
	"context"
	"fmt"

	"github.com/clinic-portal/portal-service/internal/cache"
	"github.com/clinic-portal/portal-service/internal/models"
	"github.com/clinic-portal/portal-service/internal/repositories"
	"gorm.io/gorm"
)

type dashboardRepository struct {
	db    *gorm.DB
	cache *cache.CacheManager
}

func NewDashboardRepository(db *gorm.DB, cacheManager *cache.CacheManager) repositories.DashboardRepository {
	return &dashboardRepository{db: db, cache: cacheManager}
}

func (r *dashboardRepository) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

// ===== DASHBOARD STATS =====

func (r *dashboardRepository) GetAdminStats(ctx context.Context, tx *gorm.DB) (*repositories.AdminStats, error) {
	var stats repositories.AdminStats

	err := r.cache.Stats.CacheOrExecute(ctx, "admin", &stats, cache.StatsCacheConfig.TTL, func() (interface{}, error) {
		return r.computeAdminStats(ctx, r.getDB(tx))
	})
	if err != nil {
		return nil, err
	}

	return &stats, nil
}

func (r *dashboardRepository) computeAdminStats(ctx context.Context, db *gorm.DB) (*repositories.AdminStats, error) {
	db = db.WithContext(ctx)
	stats := &repositories.AdminStats{UsersByRole: make(map[models.Role]int64)}

	var roleCounts []struct {
		Role  models.Role
		Count int64
	}
	if err := db.Model(&models.Profile{}).
		Select("role, COUNT(*) AS count").
		Group("role").
		Scan(&roleCounts).Error; err != nil {
		return nil, fmt.Errorf("failed to get users by role: %w", err)
	}
	for _, rc := range roleCounts {
		stats.UsersByRole[rc.Role] = rc.Count
		stats.TotalUsers += rc.Count
	}

	counts := []struct {
		dest  *int64
		model interface{}
		where string
		args  []interface{}
		label string
	}{
		{&stats.TotalResources, &models.Resource{}, "", nil, "total resources"},
		{&stats.PendingInquiries, &models.Inquiry{}, "answered = ?", []interface{}{false}, "pending inquiries"},
		{&stats.AnsweredInquiries, &models.Inquiry{}, "answered = ?", []interface{}{true}, "answered inquiries"},
		{&stats.TotalThreads, &models.Thread{}, "", nil, "total threads"},
		{&stats.TotalResults, &models.TestResult{}, "", nil, "total results"},
	}

	for _, c := range counts {
		query := db.Model(c.model)
		if c.where != "" {
			query = query.Where(c.where, c.args...)
		}
		if err := query.Count(c.dest).Error; err != nil {
			return nil, fmt.Errorf("failed to get %s: %w", c.label, err)
		}
	}

	return stats, nil
}

func (r *dashboardRepository) GetInternStats(ctx context.Context, tx *gorm.DB, internID uint) (*repositories.InternStats, error) {
	var stats repositories.InternStats

	key := fmt.Sprintf("intern:%d", internID)
	err := r.cache.Stats.CacheOrExecute(ctx, key, &stats, cache.StatsCacheConfig.TTL, func() (interface{}, error) {
		return r.computeInternStats(ctx, r.getDB(tx), internID)
	})
	if err != nil {
		return nil, err
	}

	return &stats, nil
}

func (r *dashboardRepository) computeInternStats(ctx context.Context, db *gorm.DB, internID uint) (*repositories.InternStats, error) {
	db = db.WithContext(ctx)
	stats := &repositories.InternStats{}

	if err := db.Model(&models.Inquiry{}).
		Where("answered = ?", false).
		Count(&stats.PendingInquiries).Error; err != nil {
		return nil, fmt.Errorf("failed to get pending inquiries: %w", err)
	}

	if err := db.Model(&models.Resource{}).
		Where("created_by = ?", internID).
		Count(&stats.OwnResources).Error; err != nil {
		return nil, fmt.Errorf("failed to get own resources: %w", err)
	}

	if err := db.Model(&models.TestResult{}).
		Count(&stats.TotalResults).Error; err != nil {
		return nil, fmt.Errorf("failed to get total results: %w", err)
	}

	if err := db.Model(&models.PersonalizedContent{}).
		Where("author_id = ?", internID).
		Count(&stats.ContentAuthored).Error; err != nil {
		return nil, fmt.Errorf("failed to get authored content: %w", err)
	}

	if err := db.Model(&models.Profile{}).
		Where("role = ?", models.RolePatient).
		Count(&stats.TotalPatients).Error; err != nil {
		return nil, fmt.Errorf("failed to get total patients: %w", err)
	}

	return stats, nil
}

// GetBandDistribution counts results per diagnosis band, in band order.
func (r *dashboardRepository) GetBandDistribution(ctx context.Context, tx *gorm.DB) ([]repositories.BandCount, error) {
	db := r.getDB(tx)

	var rows []repositories.BandCount
	if err := db.WithContext(ctx).
		Model(&models.TestResult{}).
		Select("band, COUNT(*) AS count").
		Group("band").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to get band distribution: %w", err)
	}

	byBand := make(map[models.DiagnosisBand]int64, len(rows))
	for _, row := range rows {
		byBand[row.Band] = row.Count
	}

	bands := []models.DiagnosisBand{models.BandAdequate, models.BandMild, models.BandModerate, models.BandSignificant}
	distribution := make([]repositories.BandCount, 0, len(bands))
	for _, band := range bands {
		distribution = append(distribution, repositories.BandCount{Band: band, Count: byBand[band]})
	}

	return distribution, nil
}
