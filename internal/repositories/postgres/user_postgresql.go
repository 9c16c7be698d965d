package postgres

import (
	"context"
	"time"

	"github.com/clinic-portal/portal-service/internal/cache"
	"github.com/clinic-portal/portal-service/internal/models"
	"github.com/clinic-portal/portal-service/internal/repositories"
	"gorm.io/gorm"
)

type userPostgreSQL struct {
	db    *gorm.DB
	cache *cache.CacheManager
}

func NewUserPostgreSQL(db *gorm.DB, cacheManager *cache.CacheManager) repositories.UserRepository {
	return &userPostgreSQL{db: db, cache: cacheManager}
}

// ===== BASIC CRUD OPERATIONS =====

func (r *userPostgreSQL) Create(ctx context.Context, tx *gorm.DB, user *models.User) error {
	db := getDB(r.db, tx)

	return db.WithContext(ctx).Transaction(func(inner *gorm.DB) error {
		profile := user.Profile
		if profile.Role == "" {
			profile.Role = models.RolePatient
		}

		// Profile is written explicitly so exactly one row exists per user.
		if err := inner.Omit("Profile").Create(user).Error; err != nil {
			return handleDBError(err, "create user")
		}

		profile.UserID = user.ID
		if err := inner.Create(&profile).Error; err != nil {
			return handleDBError(err, "create profile")
		}
		user.Profile = profile

		return nil
	})
}

func (r *userPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.User, error) {
	db := getDB(r.db, tx)
	var user models.User

	if err := db.WithContext(ctx).Preload("Profile").First(&user, id).Error; err != nil {
		return nil, handleDBError(err, "get user by id")
	}

	return &user, nil
}

func (r *userPostgreSQL) GetByUsername(ctx context.Context, tx *gorm.DB, username string) (*models.User, error) {
	db := getDB(r.db, tx)
	var user models.User

	if err := db.WithContext(ctx).
		Preload("Profile").
		Where("username = ?", username).
		First(&user).Error; err != nil {
		return nil, handleDBError(err, "get user by username")
	}

	return &user, nil
}

func (r *userPostgreSQL) GetByEmail(ctx context.Context, tx *gorm.DB, email string) (*models.User, error) {
	db := getDB(r.db, tx)
	var user models.User

	if err := db.WithContext(ctx).
		Preload("Profile").
		Where("LOWER(email) = LOWER(?)", email).
		First(&user).Error; err != nil {
		return nil, handleDBError(err, "get user by email")
	}

	return &user, nil
}

func (r *userPostgreSQL) GetByExternalID(ctx context.Context, tx *gorm.DB, externalID string) (*models.User, error) {
	db := getDB(r.db, tx)
	var user models.User

	if err := db.WithContext(ctx).
		Preload("Profile").
		Where("external_id = ?", externalID).
		First(&user).Error; err != nil {
		return nil, handleDBError(err, "get user by external id")
	}

	return &user, nil
}

func (r *userPostgreSQL) LinkExternalID(ctx context.Context, tx *gorm.DB, id uint, externalID string) error {
	db := getDB(r.db, tx)

	result := db.WithContext(ctx).Model(&models.User{}).
		Where("id = ? AND external_id IS NULL", id).
		Update("external_id", externalID)
	if result.Error != nil {
		return handleDBError(result.Error, "link external id")
	}
	if result.RowsAffected == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

func (r *userPostgreSQL) FindConflict(ctx context.Context, tx *gorm.DB, username, email string, excludeID uint) (*models.User, error) {
	db := getDB(r.db, tx)
	var user models.User

	query := db.WithContext(ctx).
		Where("username = ? OR LOWER(email) = LOWER(?)", username, email)
	if excludeID != 0 {
		query = query.Where("id <> ?", excludeID)
	}

	if err := query.First(&user).Error; err != nil {
		return nil, handleDBError(err, "find conflicting user")
	}

	return &user, nil
}

func (r *userPostgreSQL) Update(ctx context.Context, tx *gorm.DB, user *models.User) error {
	db := getDB(r.db, tx)

	return db.WithContext(ctx).Transaction(func(inner *gorm.DB) error {
		if err := inner.Omit("Profile", "CreatedAt").Save(user).Error; err != nil {
			return handleDBError(err, "update user")
		}

		if err := inner.Model(&models.Profile{}).
			Where("user_id = ?", user.ID).
			Updates(map[string]interface{}{
				"role":       user.Profile.Role,
				"phone":      user.Profile.Phone,
				"birth_date": user.Profile.BirthDate,
				"updated_at": time.Now(),
			}).Error; err != nil {
			return handleDBError(err, "update profile")
		}

		return nil
	})
}

// Delete removes the account together with everything it owns. The owned
// resources leave the library, so cached listings are dropped afterwards.
func (r *userPostgreSQL) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	db := getDB(r.db, tx)

	err := db.WithContext(ctx).Transaction(func(inner *gorm.DB) error {
		var user models.User
		if err := inner.Select("id").First(&user, id).Error; err != nil {
			return handleDBError(err, "get user for delete")
		}

		inquiryIDs := inner.Model(&models.Inquiry{}).Select("id").Where("user_id = ?", id)
		threadIDs := inner.Model(&models.Thread{}).Select("id").Where("created_by = ?", id)
		threadReplyIDs := inner.Model(&models.ForumReply{}).Select("id").Where("thread_id IN (?)", threadIDs)
		ownReplyIDs := inner.Model(&models.ForumReply{}).Select("id").Where("created_by = ?", id)
		resultIDs := inner.Model(&models.TestResult{}).Select("id").Where("patient_id = ?", id)

		steps := []struct {
			op    string
			model interface{}
			where string
			args  []interface{}
		}{
			{"delete inquiry replies", &models.InquiryReply{}, "inquiry_id IN (?) OR author_id = ?", []interface{}{inquiryIDs, id}},
			{"delete inquiries", &models.Inquiry{}, "user_id = ?", []interface{}{id}},
			{"delete reply votes", &models.ReplyVote{}, "user_id = ? OR reply_id IN (?) OR reply_id IN (?)", []interface{}{id, threadReplyIDs, ownReplyIDs}},
			{"delete thread votes", &models.ThreadVote{}, "user_id = ? OR thread_id IN (?)", []interface{}{id, threadIDs}},
			{"delete forum replies", &models.ForumReply{}, "created_by = ? OR thread_id IN (?)", []interface{}{id, threadIDs}},
			{"delete threads", &models.Thread{}, "created_by = ?", []interface{}{id}},
			{"delete test answers", &models.TestAnswer{}, "patient_id = ? OR result_id IN (?)", []interface{}{id, resultIDs}},
			{"delete test results", &models.TestResult{}, "patient_id = ?", []interface{}{id}},
			{"delete personalized content", &models.PersonalizedContent{}, "patient_id = ? OR author_id = ?", []interface{}{id, id}},
			{"delete resources", &models.Resource{}, "created_by = ?", []interface{}{id}},
			{"delete profile", &models.Profile{}, "user_id = ?", []interface{}{id}},
		}

		for _, step := range steps {
			if err := inner.Where(step.where, step.args...).Delete(step.model).Error; err != nil {
				return handleDBError(err, step.op)
			}
		}

		if err := inner.Delete(&models.User{}, id).Error; err != nil {
			return handleDBError(err, "delete user")
		}

		return recountTallies(inner)
	})
	if err != nil {
		return err
	}

	cache.InvalidateResourceCache(ctx, r.cache, 0)
	return nil
}

// OwnedFileKeys lists the stored files behind the user's resources and the
// personalized content they authored or received.
func (r *userPostgreSQL) OwnedFileKeys(ctx context.Context, tx *gorm.DB, id uint) ([]string, error) {
	db := getDB(r.db, tx).WithContext(ctx)

	var resources []models.Resource
	if err := db.Select("file_key", "cover_key").Where("created_by = ?", id).Find(&resources).Error; err != nil {
		return nil, handleDBError(err, "list owned resource files")
	}

	var contents []models.PersonalizedContent
	if err := db.Select("file_key").
		Where("(patient_id = ? OR author_id = ?) AND file_key IS NOT NULL", id, id).
		Find(&contents).Error; err != nil {
		return nil, handleDBError(err, "list owned content files")
	}

	var keys []string
	add := func(key *string) {
		if key != nil && *key != "" {
			keys = append(keys, *key)
		}
	}
	for _, res := range resources {
		add(res.FileKey)
		add(res.CoverKey)
	}
	for _, c := range contents {
		add(c.FileKey)
	}
	return keys, nil
}

// ===== QUERY OPERATIONS =====

func (r *userPostgreSQL) List(ctx context.Context, tx *gorm.DB, filters repositories.UserFilters) ([]*models.User, int64, error) {
	db := getDB(r.db, tx)
	var users []*models.User
	var total int64

	query := db.WithContext(ctx).Model(&models.User{}).
		Joins("JOIN profiles ON profiles.user_id = users.id")

	if filters.Role != nil {
		query = query.Where("profiles.role = ?", *filters.Role)
	}
	if filters.Query != "" {
		pattern := likePattern(filters.Query)
		query = query.Where(
			"LOWER(users.username) LIKE ? OR LOWER(users.email) LIKE ? OR LOWER(users.first_name) LIKE ? OR LOWER(users.last_name) LIKE ?",
			pattern, pattern, pattern, pattern,
		)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, handleDBError(err, "count users")
	}

	query = applyPagination(query.Order("users.username ASC"), filters.Limit, filters.Offset)

	if err := query.Preload("Profile").Find(&users).Error; err != nil {
		return nil, 0, handleDBError(err, "list users")
	}

	return users, total, nil
}

func (r *userPostgreSQL) UpdateLastLogin(ctx context.Context, tx *gorm.DB, id uint, at time.Time) error {
	db := getDB(r.db, tx)

	if err := db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", id).
		UpdateColumn("last_login_at", at).Error; err != nil {
		return handleDBError(err, "update last login")
	}

	return nil
}

func (r *userPostgreSQL) GetStats(ctx context.Context, tx *gorm.DB, id uint) (*models.UserStats, error) {
	db := getDB(r.db, tx).WithContext(ctx)
	stats := &models.UserStats{}

	if err := db.Model(&models.Inquiry{}).Where("user_id = ?", id).Count(&stats.TotalInquiries).Error; err != nil {
		return nil, handleDBError(err, "count user inquiries")
	}
	if err := db.Model(&models.Inquiry{}).Where("user_id = ? AND answered = ?", id, true).Count(&stats.AnsweredInquiries).Error; err != nil {
		return nil, handleDBError(err, "count answered inquiries")
	}
	if err := db.Model(&models.Thread{}).Where("created_by = ?", id).Count(&stats.ThreadsCreated).Error; err != nil {
		return nil, handleDBError(err, "count user threads")
	}
	if err := db.Model(&models.ForumReply{}).Where("created_by = ?", id).Count(&stats.RepliesCreated).Error; err != nil {
		return nil, handleDBError(err, "count user replies")
	}

	return stats, nil
}
