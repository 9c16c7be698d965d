package repositories

import (
	"context"

	"gorm.io/gorm"
)

// DashboardRepository interface for dashboard analytics operations
type DashboardRepository interface {
	GetAdminStats(ctx context.Context, tx *gorm.DB) (*AdminStats, error)
	GetInternStats(ctx context.Context, tx *gorm.DB, internID uint) (*InternStats, error)
	GetBandDistribution(ctx context.Context, tx *gorm.DB) ([]BandCount, error)
}
