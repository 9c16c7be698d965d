package postgres

import (
	"context"
	"time"

	"github.com/clinic-portal/portal-service/internal/cache"
	"github.com/clinic-portal/portal-service/internal/models"
	"github.com/clinic-portal/portal-service/internal/repositories"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type forumPostgreSQL struct {
	db    *gorm.DB
	cache *cache.CacheManager
}

func NewForumPostgreSQL(db *gorm.DB, cacheManager *cache.CacheManager) repositories.ForumRepository {
	return &forumPostgreSQL{db: db, cache: cacheManager}
}

// ===== CATEGORIES =====

func (r *forumPostgreSQL) EnsureDefaultCategories(ctx context.Context, tx *gorm.DB, defaults []models.ForumCategory) error {
	db := getDB(r.db, tx)

	return db.WithContext(ctx).Transaction(func(inner *gorm.DB) error {
		var count int64
		if err := inner.Model(&models.ForumCategory{}).Count(&count).Error; err != nil {
			return handleDBError(err, "count forum categories")
		}
		if count > 0 {
			return nil
		}

		rows := make([]models.ForumCategory, len(defaults))
		copy(rows, defaults)
		if err := inner.Create(&rows).Error; err != nil {
			return handleDBError(err, "seed forum categories")
		}

		cache.InvalidateForumCategories(ctx, r.cache)
		return nil
	})
}

func (r *forumPostgreSQL) ListActiveCategories(ctx context.Context, tx *gorm.DB) ([]*models.ForumCategory, error) {
	db := getDB(r.db, tx)
	var categories []*models.ForumCategory

	fetch := func() (interface{}, error) {
		var rows []*models.ForumCategory
		if err := db.WithContext(ctx).
			Where("is_active = ?", true).
			Order("sort_order ASC, id ASC").
			Find(&rows).Error; err != nil {
			return nil, handleDBError(err, "list forum categories")
		}
		return rows, nil
	}

	if tx != nil {
		rows, err := fetch()
		if err != nil {
			return nil, err
		}
		return rows.([]*models.ForumCategory), nil
	}

	if err := r.cache.Forum.CacheOrExecute(ctx, "categories:active", &categories, cache.ForumCacheConfig.TTL, fetch); err != nil {
		return nil, err
	}

	return categories, nil
}

func (r *forumPostgreSQL) GetCategoryByID(ctx context.Context, tx *gorm.DB, id uint) (*models.ForumCategory, error) {
	db := getDB(r.db, tx)
	var category models.ForumCategory

	if err := db.WithContext(ctx).First(&category, id).Error; err != nil {
		return nil, handleDBError(err, "get forum category by id")
	}

	return &category, nil
}

// ===== THREADS =====

func (r *forumPostgreSQL) CreateThread(ctx context.Context, tx *gorm.DB, thread *models.Thread) error {
	db := getDB(r.db, tx)
	if thread.Status == "" {
		thread.Status = models.ThreadOpen
	}

	if err := db.WithContext(ctx).Omit(clause.Associations).Create(thread).Error; err != nil {
		return handleDBError(err, "create thread")
	}

	return nil
}

func (r *forumPostgreSQL) GetThreadByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Thread, error) {
	db := getDB(r.db, tx)
	var thread models.Thread

	if err := db.WithContext(ctx).
		Preload("Category").
		Preload("Author.Profile").
		First(&thread, id).Error; err != nil {
		return nil, handleDBError(err, "get thread by id")
	}

	return &thread, nil
}

// UpdateThread writes only the author-editable fields; counters are left alone.
func (r *forumPostgreSQL) UpdateThread(ctx context.Context, tx *gorm.DB, thread *models.Thread) error {
	db := getDB(r.db, tx)

	result := db.WithContext(ctx).Model(&models.Thread{}).
		Where("id = ?", thread.ID).
		Updates(map[string]interface{}{
			"title":        thread.Title,
			"body":         thread.Body,
			"category_id":  thread.CategoryID,
			"is_anonymous": thread.IsAnonymous,
			"updated_at":   time.Now(),
		})
	if result.Error != nil {
		return handleDBError(result.Error, "update thread")
	}
	if result.RowsAffected == 0 {
		return handleDBError(gorm.ErrRecordNotFound, "update thread")
	}

	return nil
}

func (r *forumPostgreSQL) UpdateThreadStatus(ctx context.Context, tx *gorm.DB, id uint, status models.ThreadStatus) error {
	db := getDB(r.db, tx)

	result := db.WithContext(ctx).Model(&models.Thread{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"status": status, "updated_at": time.Now()})
	if result.Error != nil {
		return handleDBError(result.Error, "update thread status")
	}
	if result.RowsAffected == 0 {
		return handleDBError(gorm.ErrRecordNotFound, "update thread status")
	}

	return nil
}

func (r *forumPostgreSQL) DeleteThread(ctx context.Context, tx *gorm.DB, id uint) error {
	db := getDB(r.db, tx)

	return db.WithContext(ctx).Transaction(func(inner *gorm.DB) error {
		replyIDs := inner.Model(&models.ForumReply{}).Select("id").Where("thread_id = ?", id)

		if err := inner.Where("reply_id IN (?)", replyIDs).Delete(&models.ReplyVote{}).Error; err != nil {
			return handleDBError(err, "delete reply votes")
		}
		if err := inner.Where("thread_id = ?", id).Delete(&models.ForumReply{}).Error; err != nil {
			return handleDBError(err, "delete thread replies")
		}
		if err := inner.Where("thread_id = ?", id).Delete(&models.ThreadVote{}).Error; err != nil {
			return handleDBError(err, "delete thread votes")
		}

		result := inner.Delete(&models.Thread{}, id)
		if result.Error != nil {
			return handleDBError(result.Error, "delete thread")
		}
		if result.RowsAffected == 0 {
			return handleDBError(gorm.ErrRecordNotFound, "delete thread")
		}

		return nil
	})
}

func (r *forumPostgreSQL) ListThreads(ctx context.Context, tx *gorm.DB, filters repositories.ThreadFilters) ([]*models.Thread, int64, error) {
	db := getDB(r.db, tx)
	var threads []*models.Thread
	var total int64

	query := db.WithContext(ctx).Model(&models.Thread{})

	if filters.CategoryID != nil {
		query = query.Where("category_id = ?", *filters.CategoryID)
	}
	if filters.CreatedBy != nil {
		query = query.Where("created_by = ?", *filters.CreatedBy)
	}
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, handleDBError(err, "count threads")
	}

	switch filters.Order {
	case models.OrderPopular:
		query = query.Order("upvotes DESC").Order("visits DESC").Order("updated_at DESC")
	case models.OrderOldest:
		query = query.Order("created_at ASC").Order("id ASC")
	default:
		query = query.Order("created_at DESC").Order("id DESC")
	}

	query = applyPagination(query, filters.Limit, filters.Offset)

	if err := query.Preload("Category").Preload("Author.Profile").Find(&threads).Error; err != nil {
		return nil, 0, handleDBError(err, "list threads")
	}

	return threads, total, nil
}

// IncrementVisits bumps the counter in SQL so concurrent views never lose an update.
func (r *forumPostgreSQL) IncrementVisits(ctx context.Context, tx *gorm.DB, id uint) error {
	db := getDB(r.db, tx)

	result := db.WithContext(ctx).Model(&models.Thread{}).
		Where("id = ?", id).
		UpdateColumn("visits", gorm.Expr("visits + 1"))
	if result.Error != nil {
		return handleDBError(result.Error, "increment thread visits")
	}
	if result.RowsAffected == 0 {
		return handleDBError(gorm.ErrRecordNotFound, "increment thread visits")
	}

	return nil
}

// ===== REPLIES =====

func (r *forumPostgreSQL) CreateReply(ctx context.Context, tx *gorm.DB, reply *models.ForumReply) error {
	db := getDB(r.db, tx)

	return db.WithContext(ctx).Transaction(func(inner *gorm.DB) error {
		if err := inner.Omit(clause.Associations).Create(reply).Error; err != nil {
			return handleDBError(err, "create forum reply")
		}

		result := inner.Model(&models.Thread{}).
			Where("id = ?", reply.ThreadID).
			UpdateColumns(map[string]interface{}{
				"reply_count": gorm.Expr("reply_count + 1"),
				"updated_at":  time.Now(),
			})
		if result.Error != nil {
			return handleDBError(result.Error, "increment reply count")
		}
		if result.RowsAffected == 0 {
			return handleDBError(gorm.ErrRecordNotFound, "increment reply count")
		}

		return nil
	})
}

func (r *forumPostgreSQL) GetReplyByID(ctx context.Context, tx *gorm.DB, id uint) (*models.ForumReply, error) {
	db := getDB(r.db, tx)
	var reply models.ForumReply

	if err := db.WithContext(ctx).Preload("Author.Profile").First(&reply, id).Error; err != nil {
		return nil, handleDBError(err, "get forum reply by id")
	}

	return &reply, nil
}

func (r *forumPostgreSQL) ListReplies(ctx context.Context, tx *gorm.DB, threadID uint) ([]*models.ForumReply, error) {
	db := getDB(r.db, tx)
	var replies []*models.ForumReply

	if err := db.WithContext(ctx).
		Where("thread_id = ?", threadID).
		Order("created_at ASC, id ASC").
		Preload("Author.Profile").
		Find(&replies).Error; err != nil {
		return nil, handleDBError(err, "list forum replies")
	}

	return replies, nil
}

func (r *forumPostgreSQL) SetReplyOfficial(ctx context.Context, tx *gorm.DB, id uint, official bool) error {
	db := getDB(r.db, tx)

	result := db.WithContext(ctx).Model(&models.ForumReply{}).
		Where("id = ?", id).
		Update("is_official", official)
	if result.Error != nil {
		return handleDBError(result.Error, "set reply official")
	}
	if result.RowsAffected == 0 {
		return handleDBError(gorm.ErrRecordNotFound, "set reply official")
	}

	return nil
}

// ===== VOTES =====

func (r *forumPostgreSQL) UpsertThreadVote(ctx context.Context, tx *gorm.DB, vote *models.ThreadVote) error {
	db := getDB(r.db, tx)

	return db.WithContext(ctx).Transaction(func(inner *gorm.DB) error {
		var thread models.Thread
		if err := inner.Select("id").First(&thread, vote.ThreadID).Error; err != nil {
			return handleDBError(err, "get thread for vote")
		}

		vote.UpdatedAt = time.Now()
		if err := inner.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "thread_id"}, {Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"polarity", "updated_at"}),
		}).Create(vote).Error; err != nil {
			return handleDBError(err, "upsert thread vote")
		}

		return recountVotes(inner, &models.Thread{}, "forum_thread_votes", "thread_id", vote.ThreadID)
	})
}

func (r *forumPostgreSQL) UpsertReplyVote(ctx context.Context, tx *gorm.DB, vote *models.ReplyVote) error {
	db := getDB(r.db, tx)

	return db.WithContext(ctx).Transaction(func(inner *gorm.DB) error {
		var reply models.ForumReply
		if err := inner.Select("id").First(&reply, vote.ReplyID).Error; err != nil {
			return handleDBError(err, "get reply for vote")
		}

		vote.UpdatedAt = time.Now()
		if err := inner.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "reply_id"}, {Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"polarity", "updated_at"}),
		}).Create(vote).Error; err != nil {
			return handleDBError(err, "upsert reply vote")
		}

		return recountVotes(inner, &models.ForumReply{}, "forum_reply_votes", "reply_id", vote.ReplyID)
	})
}

func (r *forumPostgreSQL) ListThreadVotes(ctx context.Context, tx *gorm.DB, threadID uint) ([]*models.ThreadVote, error) {
	db := getDB(r.db, tx)
	var votes []*models.ThreadVote

	if err := db.WithContext(ctx).Where("thread_id = ?", threadID).Find(&votes).Error; err != nil {
		return nil, handleDBError(err, "list thread votes")
	}

	return votes, nil
}

// recountVotes rewrites the target's tallies from the vote table so that a
// changed vote moves from one tally to the other.
func recountVotes(db *gorm.DB, target interface{}, voteTable, fkColumn string, id uint) error {
	countSQL := "(SELECT COUNT(*) FROM " + voteTable + " WHERE " + fkColumn + " = ? AND polarity = ?)"

	if err := db.Model(target).
		Where("id = ?", id).
		UpdateColumns(map[string]interface{}{
			"upvotes":   gorm.Expr(countSQL, id, models.VoteUp),
			"downvotes": gorm.Expr(countSQL, id, models.VoteDown),
		}).Error; err != nil {
		return handleDBError(err, "recount votes")
	}

	return nil
}

// recountTallies rebuilds every denormalized reply and vote counter after bulk deletes.
func recountTallies(db *gorm.DB) error {
	statements := []string{
		`UPDATE forum_threads SET
			reply_count = (SELECT COUNT(*) FROM forum_replies WHERE forum_replies.thread_id = forum_threads.id),
			upvotes = (SELECT COUNT(*) FROM forum_thread_votes WHERE forum_thread_votes.thread_id = forum_threads.id AND polarity = 'up'),
			downvotes = (SELECT COUNT(*) FROM forum_thread_votes WHERE forum_thread_votes.thread_id = forum_threads.id AND polarity = 'down')`,
		`UPDATE forum_replies SET
			upvotes = (SELECT COUNT(*) FROM forum_reply_votes WHERE forum_reply_votes.reply_id = forum_replies.id AND polarity = 'up'),
			downvotes = (SELECT COUNT(*) FROM forum_reply_votes WHERE forum_reply_votes.reply_id = forum_replies.id AND polarity = 'down')`,
		`UPDATE inquiries SET
			reply_count = (SELECT COUNT(*) FROM inquiry_replies WHERE inquiry_replies.inquiry_id = inquiries.id)`,
	}

	for _, stmt := range statements {
		if err := db.Exec(stmt).Error; err != nil {
			return handleDBError(err, "recount tallies")
		}
	}

	return nil
}

// ===== STATISTICS =====

func (r *forumPostgreSQL) GetStats(ctx context.Context, tx *gorm.DB) (*models.ForumStats, error) {
	db := getDB(r.db, tx).WithContext(ctx)
	stats := &models.ForumStats{}

	if err := db.Model(&models.Thread{}).Count(&stats.TotalThreads).Error; err != nil {
		return nil, handleDBError(err, "count threads")
	}
	if err := db.Model(&models.ForumReply{}).Count(&stats.TotalReplies).Error; err != nil {
		return nil, handleDBError(err, "count forum replies")
	}
	if err := db.Model(&models.Thread{}).Where("status = ?", models.ThreadOpen).Count(&stats.OpenThreads).Error; err != nil {
		return nil, handleDBError(err, "count open threads")
	}

	return stats, nil
}
