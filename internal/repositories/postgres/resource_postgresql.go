package postgres

import (
	"context"
	"fmt"

	"github.com/clinic-portal/portal-service/internal/cache"
	"github.com/clinic-portal/portal-service/internal/models"
	"github.com/clinic-portal/portal-service/internal/repositories"
	"gorm.io/gorm"
)

type resourceCategoryPostgreSQL struct {
	db    *gorm.DB
	cache *cache.CacheManager
}

func NewResourceCategoryPostgreSQL(db *gorm.DB, cacheManager *cache.CacheManager) repositories.ResourceCategoryRepository {
	return &resourceCategoryPostgreSQL{db: db, cache: cacheManager}
}

func (r *resourceCategoryPostgreSQL) Create(ctx context.Context, tx *gorm.DB, category *models.ResourceCategory) error {
	db := getDB(r.db, tx)
	if err := db.WithContext(ctx).Create(category).Error; err != nil {
		return handleDBError(err, "create resource category")
	}

	cache.SafeInvalidatePattern(ctx, r.cache.Resource, "categories*")
	return nil
}

func (r *resourceCategoryPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.ResourceCategory, error) {
	db := getDB(r.db, tx)
	var category models.ResourceCategory

	if err := db.WithContext(ctx).First(&category, id).Error; err != nil {
		return nil, handleDBError(err, "get resource category by id")
	}

	return &category, nil
}

func (r *resourceCategoryPostgreSQL) List(ctx context.Context, tx *gorm.DB) ([]*models.ResourceCategory, error) {
	db := getDB(r.db, tx)
	var categories []*models.ResourceCategory

	// Reads inside a transaction must see uncommitted rows, so skip the cache there.
	if tx != nil {
		if err := db.WithContext(ctx).Order("name ASC").Find(&categories).Error; err != nil {
			return nil, handleDBError(err, "list resource categories")
		}
		return categories, nil
	}

	err := r.cache.Resource.CacheOrExecute(ctx, "categories", &categories, cache.ResourceCacheConfig.TTL, func() (interface{}, error) {
		var rows []*models.ResourceCategory
		if err := db.WithContext(ctx).Order("name ASC").Find(&rows).Error; err != nil {
			return nil, handleDBError(err, "list resource categories")
		}
		return rows, nil
	})
	if err != nil {
		return nil, err
	}

	return categories, nil
}

func (r *resourceCategoryPostgreSQL) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	db := getDB(r.db, tx)

	err := db.WithContext(ctx).Transaction(func(inner *gorm.DB) error {
		if err := inner.Where("category_id = ?", id).Delete(&models.Resource{}).Error; err != nil {
			return handleDBError(err, "delete category resources")
		}

		result := inner.Delete(&models.ResourceCategory{}, id)
		if result.Error != nil {
			return handleDBError(result.Error, "delete resource category")
		}
		if result.RowsAffected == 0 {
			return handleDBError(gorm.ErrRecordNotFound, "delete resource category")
		}

		return nil
	})
	if err != nil {
		return err
	}

	cache.InvalidateResourceCache(ctx, r.cache, 0)
	return nil
}

type resourcePostgreSQL struct {
	db    *gorm.DB
	cache *cache.CacheManager
}

func NewResourcePostgreSQL(db *gorm.DB, cacheManager *cache.CacheManager) repositories.ResourceRepository {
	return &resourcePostgreSQL{db: db, cache: cacheManager}
}

// ===== BASIC CRUD OPERATIONS =====

func (r *resourcePostgreSQL) Create(ctx context.Context, tx *gorm.DB, resource *models.Resource) error {
	db := getDB(r.db, tx)
	if err := db.WithContext(ctx).Omit("Category", "Creator").Create(resource).Error; err != nil {
		return handleDBError(err, "create resource")
	}

	cache.InvalidateResourceCache(ctx, r.cache, resource.ID)
	return nil
}

func (r *resourcePostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Resource, error) {
	db := getDB(r.db, tx)
	var resource models.Resource

	if err := db.WithContext(ctx).
		Preload("Category").
		Preload("Creator").
		First(&resource, id).Error; err != nil {
		return nil, handleDBError(err, "get resource by id")
	}

	return &resource, nil
}

func (r *resourcePostgreSQL) Update(ctx context.Context, tx *gorm.DB, resource *models.Resource) error {
	db := getDB(r.db, tx)
	if err := db.WithContext(ctx).Omit("Category", "Creator", "CreatedAt").Save(resource).Error; err != nil {
		return handleDBError(err, "update resource")
	}

	cache.InvalidateResourceCache(ctx, r.cache, resource.ID)
	return nil
}

func (r *resourcePostgreSQL) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	db := getDB(r.db, tx)

	result := db.WithContext(ctx).Delete(&models.Resource{}, id)
	if result.Error != nil {
		return handleDBError(result.Error, "delete resource")
	}
	if result.RowsAffected == 0 {
		return handleDBError(gorm.ErrRecordNotFound, "delete resource")
	}

	cache.InvalidateResourceCache(ctx, r.cache, id)
	return nil
}

// ===== QUERY OPERATIONS =====

var resourceSortColumns = map[string]string{
	"created_at": "resources.created_at",
	"updated_at": "resources.updated_at",
	"title":      "resources.title",
	"id":         "resources.id",
}

func (r *resourcePostgreSQL) List(ctx context.Context, tx *gorm.DB, filters repositories.ResourceFilters) ([]*models.Resource, int64, error) {
	if tx != nil || !filters.PublicOnly {
		return r.list(ctx, getDB(r.db, tx), filters)
	}

	// Only the public library listing is shared across callers, so only it is cached.
	var page resourcePage
	key := fmt.Sprintf("list:%s", resourceListKey(filters))
	err := r.cache.Resource.CacheOrExecute(ctx, key, &page, cache.ResourceCacheConfig.TTL, func() (interface{}, error) {
		items, total, err := r.list(ctx, r.db, filters)
		if err != nil {
			return nil, err
		}
		return resourcePage{Items: items, Total: total}, nil
	})
	if err != nil {
		return nil, 0, err
	}

	return page.Items, page.Total, nil
}

type resourcePage struct {
	Items []*models.Resource `json:"items"`
	Total int64              `json:"total"`
}

func resourceListKey(f repositories.ResourceFilters) string {
	var category, kind, creator string
	if f.CategoryID != nil {
		category = fmt.Sprint(*f.CategoryID)
	}
	if f.Kind != nil {
		kind = string(*f.Kind)
	}
	if f.CreatedBy != nil {
		creator = fmt.Sprint(*f.CreatedBy)
	}
	return fmt.Sprintf("c=%s:k=%s:u=%s:l=%d:o=%d:s=%s:%s", category, kind, creator, f.Limit, f.Offset, f.SortBy, f.SortOrder)
}

func (r *resourcePostgreSQL) list(ctx context.Context, db *gorm.DB, filters repositories.ResourceFilters) ([]*models.Resource, int64, error) {
	var resources []*models.Resource
	var total int64

	query := db.WithContext(ctx).Model(&models.Resource{})

	if filters.CategoryID != nil {
		query = query.Where("resources.category_id = ?", *filters.CategoryID)
	}
	if filters.Kind != nil {
		query = query.Where("resources.kind = ?", *filters.Kind)
	}
	if filters.CreatedBy != nil {
		query = query.Where("resources.created_by = ?", *filters.CreatedBy)
	}
	if filters.PublicOnly {
		query = query.Where("resources.is_public = ?", true)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, handleDBError(err, "count resources")
	}

	query = applyPaginationAndSort(query, resourceSortColumns, filters.SortBy, filters.SortOrder, filters.Limit, filters.Offset)

	if err := query.Preload("Category").Preload("Creator").Find(&resources).Error; err != nil {
		return nil, 0, handleDBError(err, "list resources")
	}

	return resources, total, nil
}

func (r *resourcePostgreSQL) FileReferenced(ctx context.Context, tx *gorm.DB, key string) (*models.Resource, error) {
	db := getDB(r.db, tx)
	var resource models.Resource

	if err := db.WithContext(ctx).
		Where("file_key = ? OR cover_key = ?", key, key).
		First(&resource).Error; err != nil {
		return nil, handleDBError(err, "find resource by file key")
	}

	return &resource, nil
}
