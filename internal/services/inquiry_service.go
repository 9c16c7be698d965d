package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/clinic-portal/portal-service/internal/events"
	"github.com/clinic-portal/portal-service/internal/metrics"
	"github.com/clinic-portal/portal-service/internal/models"
	"github.com/clinic-portal/portal-service/internal/repositories"
	"github.com/clinic-portal/portal-service/internal/validator"
	"gorm.io/gorm"
)

type inquiryService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
	publisher events.EventPublisher
}

func NewInquiryService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validator, publisher events.EventPublisher) InquiryService {
	return &inquiryService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: validator,
		publisher: publisher,
	}
}

func (s *inquiryService) Create(ctx context.Context, actor *models.User, req *InquiryRequest) (*models.Inquiry, error) {
	if err := requireAuthenticated(actor); err != nil {
		return nil, err
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	inquiry := &models.Inquiry{
		UserID:  actor.ID,
		Kind:    req.Kind,
		Subject: strings.TrimSpace(req.Subject),
		Message: strings.TrimSpace(req.Message),
	}

	if err := s.repo.Inquiry().Create(ctx, nil, inquiry); err != nil {
		return nil, fmt.Errorf("failed to create inquiry: %w", err)
	}

	metrics.RecordInquiry("created")
	s.logger.Info("Inquiry created", "inquiry_id", inquiry.ID, "user_id", actor.ID, "kind", inquiry.Kind)

	return inquiry, nil
}

func (s *inquiryService) GetByID(ctx context.Context, actor *models.User, id uint) (*models.Inquiry, error) {
	if err := requireAuthenticated(actor); err != nil {
		return nil, err
	}

	inquiry, err := s.getInquiry(ctx, id)
	if err != nil {
		return nil, err
	}
	if inquiry.UserID != actor.ID && !actor.Role().IsStaff() {
		return nil, NewPermissionError(actor.ID, id, "inquiry", "read", "not the sender")
	}

	return inquiry, nil
}

// List returns every inquiry to staff and only the caller's own to everyone else.
func (s *inquiryService) List(ctx context.Context, actor *models.User, page int, answered *bool) (*InquiryListResponse, error) {
	if err := requireAuthenticated(actor); err != nil {
		return nil, err
	}

	limit, offset, page := paginate(page)
	filters := repositories.InquiryFilters{
		Answered: answered,
		Limit:    limit,
		Offset:   offset,
	}
	if !actor.Role().IsStaff() {
		filters.UserID = &actor.ID
	}

	inquiries, total, err := s.repo.Inquiry().List(ctx, nil, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list inquiries: %w", err)
	}

	return &InquiryListResponse{Inquiries: inquiries, Total: total, Page: page, Size: limit}, nil
}

// Reply stores a staff answer; the inquiry is flagged answered in the same transaction.
func (s *inquiryService) Reply(ctx context.Context, actor *models.User, inquiryID uint, req *InquiryReplyRequest) (*models.InquiryReply, error) {
	if err := requireStaff(actor, "inquiry", "reply"); err != nil {
		return nil, err
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	inquiry, err := s.getInquiry(ctx, inquiryID)
	if err != nil {
		return nil, err
	}

	reply := &models.InquiryReply{
		InquiryID: inquiryID,
		AuthorID:  actor.ID,
		Body:      strings.TrimSpace(req.Body),
	}
	if err := s.repo.Inquiry().AddReply(ctx, nil, reply); err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrInquiryNotFound
		}
		return nil, fmt.Errorf("failed to reply to inquiry: %w", err)
	}

	metrics.RecordInquiry("answered")
	s.logger.Info("Inquiry answered", "inquiry_id", inquiryID, "reply_id", reply.ID, "answered_by", actor.ID)
	events.PublishSafe(ctx, s.publisher, s.logger, events.InquiryAnswered, events.InquiryAnsweredEvent{
		InquiryID:  inquiryID,
		ReplyID:    reply.ID,
		UserID:     inquiry.UserID,
		AnsweredBy: actor.ID,
	})

	return reply, nil
}

func (s *inquiryService) MarkRead(ctx context.Context, actor *models.User, id uint) error {
	if err := requireStaff(actor, "inquiry", "mark_read"); err != nil {
		return err
	}

	if err := s.repo.Inquiry().MarkRead(ctx, nil, id); err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrInquiryNotFound
		}
		return fmt.Errorf("failed to mark inquiry read: %w", err)
	}
	return nil
}

func (s *inquiryService) getInquiry(ctx context.Context, id uint) (*models.Inquiry, error) {
	inquiry, err := s.repo.Inquiry().GetByID(ctx, nil, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrInquiryNotFound
		}
		return nil, fmt.Errorf("failed to get inquiry: %w", err)
	}
	return inquiry, nil
}
