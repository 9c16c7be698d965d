package services

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/clinic-portal/portal-service/internal/events"
	"github.com/clinic-portal/portal-service/internal/metrics"
	"github.com/clinic-portal/portal-service/internal/models"
	"github.com/clinic-portal/portal-service/internal/repositories"
	"github.com/clinic-portal/portal-service/internal/validator"
	"gorm.io/gorm"
)

// allCategories selects every forum category in the thread list.
const allCategories = "todas"

type forumService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
	publisher events.EventPublisher
}

func NewForumService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validator, publisher events.EventPublisher) ForumService {
	return &forumService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: validator,
		publisher: publisher,
	}
}

// ===== CATEGORIES =====

func (s *forumService) ListCategories(ctx context.Context) ([]*models.ForumCategory, error) {
	if err := s.repo.Forum().EnsureDefaultCategories(ctx, nil, models.DefaultForumCategories); err != nil {
		return nil, fmt.Errorf("failed to seed forum categories: %w", err)
	}

	categories, err := s.repo.Forum().ListActiveCategories(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list forum categories: %w", err)
	}
	return categories, nil
}

func (s *forumService) activeCategory(ctx context.Context, id uint) (*models.ForumCategory, error) {
	category, err := s.repo.Forum().GetCategoryByID(ctx, nil, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, NewValidationError("category_id", "La categoría seleccionada no existe.", id)
		}
		return nil, fmt.Errorf("failed to get forum category: %w", err)
	}
	if !category.IsActive {
		return nil, NewValidationError("category_id", "La categoría seleccionada no está activa.", id)
	}
	return category, nil
}

// ===== THREADS =====

func (s *forumService) ListThreads(ctx context.Context, actor *models.User, req *ThreadListRequest) (*ThreadListResponse, error) {
	if err := requireAuthenticated(actor); err != nil {
		return nil, err
	}
	if req == nil {
		req = &ThreadListRequest{}
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	categories, err := s.ListCategories(ctx)
	if err != nil {
		return nil, err
	}

	order := models.ThreadOrder(req.Order)
	if order == "" {
		order = models.OrderRecent
	}

	limit, offset, page := paginate(req.Page)
	filters := repositories.ThreadFilters{Order: order, Limit: limit, Offset: offset}

	category := strings.TrimSpace(req.Category)
	if category == "" {
		category = allCategories
	}
	if category != allCategories {
		// Unparseable values fall back to every category.
		if id, err := strconv.ParseUint(category, 10, 64); err == nil {
			cid := uint(id)
			filters.CategoryID = &cid
		} else {
			category = allCategories
		}
	}

	threads, total, err := s.repo.Forum().ListThreads(ctx, nil, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list threads: %w", err)
	}

	stats, err := s.repo.Forum().GetStats(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get forum stats: %w", err)
	}

	return &ThreadListResponse{
		Threads:    threads,
		Categories: categories,
		Stats:      stats,
		Category:   category,
		Order:      order,
		Total:      total,
		Page:       page,
		Size:       limit,
	}, nil
}

func (s *forumService) CreateThread(ctx context.Context, actor *models.User, req *ThreadRequest) (*models.Thread, error) {
	if err := requireAuthenticated(actor); err != nil {
		return nil, err
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	if _, err := s.activeCategory(ctx, req.CategoryID); err != nil {
		return nil, err
	}

	thread := &models.Thread{
		Title:       strings.TrimSpace(req.Title),
		Body:        strings.TrimSpace(req.Body),
		CategoryID:  req.CategoryID,
		CreatedBy:   actor.ID,
		Status:      models.ThreadOpen,
		IsAnonymous: req.IsAnonymous,
	}

	if err := s.repo.Forum().CreateThread(ctx, nil, thread); err != nil {
		return nil, fmt.Errorf("failed to create thread: %w", err)
	}

	s.logger.Info("Thread created", "thread_id", thread.ID, "category_id", thread.CategoryID, "author_id", actor.ID)
	events.PublishSafe(ctx, s.publisher, s.logger, events.ThreadCreated, events.ThreadCreatedEvent{
		ThreadID:   thread.ID,
		CategoryID: thread.CategoryID,
		AuthorID:   actor.ID,
	})

	return thread, nil
}

// ViewThread counts one visit per call, whoever the viewer is.
func (s *forumService) ViewThread(ctx context.Context, actor *models.User, id uint) (*ThreadDetail, error) {
	if err := requireAuthenticated(actor); err != nil {
		return nil, err
	}

	if err := s.repo.Forum().IncrementVisits(ctx, nil, id); err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrThreadNotFound
		}
		return nil, fmt.Errorf("failed to count visit: %w", err)
	}

	thread, err := s.getThread(ctx, id)
	if err != nil {
		return nil, err
	}

	replies, err := s.repo.Forum().ListReplies(ctx, nil, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list replies: %w", err)
	}

	votes, err := s.repo.Forum().ListThreadVotes(ctx, nil, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list thread votes: %w", err)
	}

	detail := &ThreadDetail{
		Thread:      thread,
		Replies:     replies,
		CanEdit:     thread.CreatedBy == actor.ID,
		CanDelete:   actor.Role().IsStaff(),
		CanModerate: actor.Role().IsStaff(),
		CanReply:    thread.Status != models.ThreadClosed,
	}
	for _, v := range votes {
		if v.UserID == actor.ID {
			detail.MyVote = v.Polarity
			break
		}
	}

	return detail, nil
}

func (s *forumService) GetThread(ctx context.Context, actor *models.User, id uint) (*models.Thread, error) {
	if err := requireAuthenticated(actor); err != nil {
		return nil, err
	}
	return s.getThread(ctx, id)
}

// UpdateThread is reserved to the author, staff included.
func (s *forumService) UpdateThread(ctx context.Context, actor *models.User, id uint, req *ThreadRequest) (*models.Thread, error) {
	if err := requireAuthenticated(actor); err != nil {
		return nil, err
	}

	thread, err := s.getThread(ctx, id)
	if err != nil {
		return nil, err
	}
	if thread.CreatedBy != actor.ID {
		return nil, NewPermissionError(actor.ID, id, "thread", "update", "not the author")
	}

	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	if req.CategoryID != thread.CategoryID {
		if _, err := s.activeCategory(ctx, req.CategoryID); err != nil {
			return nil, err
		}
	}

	thread.Title = strings.TrimSpace(req.Title)
	thread.Body = strings.TrimSpace(req.Body)
	thread.CategoryID = req.CategoryID
	thread.IsAnonymous = req.IsAnonymous

	if err := s.repo.Forum().UpdateThread(ctx, nil, thread); err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrThreadNotFound
		}
		return nil, fmt.Errorf("failed to update thread: %w", err)
	}

	s.logger.Info("Thread updated", "thread_id", id, "author_id", actor.ID)
	return s.getThread(ctx, id)
}

func (s *forumService) DeleteThread(ctx context.Context, actor *models.User, id uint) (*models.Thread, error) {
	if err := requireStaff(actor, "thread", "delete"); err != nil {
		return nil, err
	}

	thread, err := s.getThread(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Forum().DeleteThread(ctx, nil, id); err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrThreadNotFound
		}
		return nil, fmt.Errorf("failed to delete thread: %w", err)
	}

	s.logger.Info("Thread deleted", "thread_id", id, "deleted_by", actor.ID)
	return thread, nil
}

func (s *forumService) SetThreadStatus(ctx context.Context, actor *models.User, id uint, status models.ThreadStatus) (*models.Thread, error) {
	if err := requireStaff(actor, "thread", "moderate"); err != nil {
		return nil, err
	}
	if err := s.validator.Validate(&validator.ThreadStatusRequest{Status: status}); err != nil {
		return nil, err
	}

	if err := s.repo.Forum().UpdateThreadStatus(ctx, nil, id, status); err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrThreadNotFound
		}
		return nil, fmt.Errorf("failed to update thread status: %w", err)
	}

	s.logger.Info("Thread status changed", "thread_id", id, "status", status, "changed_by", actor.ID)
	return s.getThread(ctx, id)
}

// ===== REPLIES =====

func (s *forumService) CreateReply(ctx context.Context, actor *models.User, threadID uint, req *ForumReplyRequest) (*models.ForumReply, error) {
	if err := requireAuthenticated(actor); err != nil {
		return nil, err
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	thread, err := s.getThread(ctx, threadID)
	if err != nil {
		return nil, err
	}
	if thread.Status == models.ThreadClosed {
		return nil, ErrThreadClosed
	}

	reply := &models.ForumReply{
		ThreadID:    threadID,
		Body:        strings.TrimSpace(req.Body),
		CreatedBy:   actor.ID,
		IsAnonymous: req.IsAnonymous,
	}
	if err := s.repo.Forum().CreateReply(ctx, nil, reply); err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrThreadNotFound
		}
		return nil, fmt.Errorf("failed to create reply: %w", err)
	}

	s.logger.Info("Forum reply created", "thread_id", threadID, "reply_id", reply.ID, "author_id", actor.ID)
	return reply, nil
}

func (s *forumService) SetReplyOfficial(ctx context.Context, actor *models.User, replyID uint, official bool) (*models.ForumReply, error) {
	if err := requireStaff(actor, "forum_reply", "moderate"); err != nil {
		return nil, err
	}

	if err := s.repo.Forum().SetReplyOfficial(ctx, nil, replyID, official); err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrReplyNotFound
		}
		return nil, fmt.Errorf("failed to update reply: %w", err)
	}

	return s.getReply(ctx, replyID)
}

// ===== VOTES =====

// VoteThread records the caller's vote; voting again replaces the previous polarity.
func (s *forumService) VoteThread(ctx context.Context, actor *models.User, threadID uint, polarity models.VotePolarity) (*models.Thread, error) {
	if err := s.checkVote(actor, polarity); err != nil {
		return nil, err
	}

	vote := &models.ThreadVote{ThreadID: threadID, UserID: actor.ID, Polarity: polarity}
	if err := s.repo.Forum().UpsertThreadVote(ctx, nil, vote); err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrThreadNotFound
		}
		return nil, fmt.Errorf("failed to vote thread: %w", err)
	}

	metrics.RecordVote("thread", string(polarity))
	return s.getThread(ctx, threadID)
}

func (s *forumService) VoteReply(ctx context.Context, actor *models.User, replyID uint, polarity models.VotePolarity) (*models.ForumReply, error) {
	if err := s.checkVote(actor, polarity); err != nil {
		return nil, err
	}

	vote := &models.ReplyVote{ReplyID: replyID, UserID: actor.ID, Polarity: polarity}
	if err := s.repo.Forum().UpsertReplyVote(ctx, nil, vote); err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrReplyNotFound
		}
		return nil, fmt.Errorf("failed to vote reply: %w", err)
	}

	metrics.RecordVote("reply", string(polarity))
	return s.getReply(ctx, replyID)
}

func (s *forumService) checkVote(actor *models.User, polarity models.VotePolarity) error {
	if err := requireAuthenticated(actor); err != nil {
		return err
	}
	return s.validator.Validate(&validator.VoteRequest{Polarity: polarity})
}

func (s *forumService) getThread(ctx context.Context, id uint) (*models.Thread, error) {
	thread, err := s.repo.Forum().GetThreadByID(ctx, nil, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrThreadNotFound
		}
		return nil, fmt.Errorf("failed to get thread: %w", err)
	}
	return thread, nil
}

func (s *forumService) getReply(ctx context.Context, id uint) (*models.ForumReply, error) {
	reply, err := s.repo.Forum().GetReplyByID(ctx, nil, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrReplyNotFound
		}
		return nil, fmt.Errorf("failed to get reply: %w", err)
	}
	return reply, nil
}
