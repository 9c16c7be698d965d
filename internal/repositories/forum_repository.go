package repositories

import (
	"context"

	"github.com/clinic-portal/portal-service/internal/models"
	"gorm.io/gorm"
)

type ForumRepository interface {
	// Categories
	EnsureDefaultCategories(ctx context.Context, tx *gorm.DB, defaults []models.ForumCategory) error
	ListActiveCategories(ctx context.Context, tx *gorm.DB) ([]*models.ForumCategory, error)
	GetCategoryByID(ctx context.Context, tx *gorm.DB, id uint) (*models.ForumCategory, error)

	// Threads
	CreateThread(ctx context.Context, tx *gorm.DB, thread *models.Thread) error
	GetThreadByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Thread, error)
	UpdateThread(ctx context.Context, tx *gorm.DB, thread *models.Thread) error
	UpdateThreadStatus(ctx context.Context, tx *gorm.DB, id uint, status models.ThreadStatus) error
	// DeleteThread removes the thread with its replies and every vote on either.
	DeleteThread(ctx context.Context, tx *gorm.DB, id uint) error
	ListThreads(ctx context.Context, tx *gorm.DB, filters ThreadFilters) ([]*models.Thread, int64, error)
	IncrementVisits(ctx context.Context, tx *gorm.DB, id uint) error

	// Replies
	CreateReply(ctx context.Context, tx *gorm.DB, reply *models.ForumReply) error
	GetReplyByID(ctx context.Context, tx *gorm.DB, id uint) (*models.ForumReply, error)
	ListReplies(ctx context.Context, tx *gorm.DB, threadID uint) ([]*models.ForumReply, error)
	SetReplyOfficial(ctx context.Context, tx *gorm.DB, id uint, official bool) error

	// Votes keep one row per (target, voter) and refresh the target's tallies.
	UpsertThreadVote(ctx context.Context, tx *gorm.DB, vote *models.ThreadVote) error
	UpsertReplyVote(ctx context.Context, tx *gorm.DB, vote *models.ReplyVote) error
	ListThreadVotes(ctx context.Context, tx *gorm.DB, threadID uint) ([]*models.ThreadVote, error)

	GetStats(ctx context.Context, tx *gorm.DB) (*models.ForumStats, error)
}
