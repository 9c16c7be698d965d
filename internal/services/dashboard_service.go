package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/clinic-portal/portal-service/internal/models"
	"github.com/clinic-portal/portal-service/internal/repositories"
	"gorm.io/gorm"
)

// pendingPreview bounds the unanswered inquiries shown on the intern dashboard.
const pendingPreview = 5

type dashboardService struct {
	repo   repositories.Repository
	db     *gorm.DB
	logger *slog.Logger
}

func NewDashboardService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger) DashboardService {
	return &dashboardService{
		repo:   repo,
		db:     db,
		logger: logger,
	}
}

func (s *dashboardService) AdminDashboard(ctx context.Context, actor *models.User) (*AdminDashboard, error) {
	if err := requireRole(actor, "dashboard", "admin", models.RoleAdmin); err != nil {
		return nil, err
	}

	s.logger.Debug("Getting admin dashboard", "user_id", actor.ID)

	stats, err := s.repo.Dashboard().GetAdminStats(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get admin stats: %w", err)
	}

	bands, err := s.bandDistribution(ctx)
	if err != nil {
		return nil, err
	}

	forum, err := s.repo.Forum().GetStats(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get forum stats: %w", err)
	}

	return &AdminDashboard{Stats: stats, Bands: bands, Forum: forum}, nil
}

// InternDashboard is also reachable by admins.
func (s *dashboardService) InternDashboard(ctx context.Context, actor *models.User) (*InternDashboard, error) {
	if err := requireStaff(actor, "dashboard", "intern"); err != nil {
		return nil, err
	}

	s.logger.Debug("Getting intern dashboard", "user_id", actor.ID)

	stats, err := s.repo.Dashboard().GetInternStats(ctx, nil, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get intern stats: %w", err)
	}

	bands, err := s.bandDistribution(ctx)
	if err != nil {
		return nil, err
	}

	answered := false
	pending, _, err := s.repo.Inquiry().List(ctx, nil, repositories.InquiryFilters{
		Answered: &answered,
		Limit:    pendingPreview,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list pending inquiries: %w", err)
	}

	return &InternDashboard{Stats: stats, Bands: bands, PendingInquiries: pending}, nil
}

// bandDistribution always reports the four bands in severity order, zero-filled.
func (s *dashboardService) bandDistribution(ctx context.Context) ([]repositories.BandCount, error) {
	counts, err := s.repo.Dashboard().GetBandDistribution(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get band distribution: %w", err)
	}

	byBand := make(map[models.DiagnosisBand]int64, len(counts))
	for _, c := range counts {
		byBand[c.Band] = c.Count
	}

	ordered := []models.DiagnosisBand{models.BandAdequate, models.BandMild, models.BandModerate, models.BandSignificant}
	result := make([]repositories.BandCount, 0, len(ordered))
	for _, band := range ordered {
		result = append(result, repositories.BandCount{Band: band, Count: byBand[band]})
	}
	return result, nil
}
