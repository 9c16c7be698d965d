package cache

import (
	"context"
	"fmt"
	"log/slog"
)

// SafeInvalidatePattern safely invalidates cache pattern with logging
func SafeInvalidatePattern(ctx context.Context, helper *CacheHelper, pattern string) {
	if err := helper.InvalidatePattern(ctx, pattern); err != nil {
		slog.ErrorContext(ctx, "Failed to invalidate cache pattern",
			"error", err,
			"pattern", pattern)
	}
}

// SafeDelete safely deletes cache keys with logging
func SafeDelete(ctx context.Context, helper *CacheHelper, keys ...string) {
	if err := helper.Delete(ctx, keys...); err != nil {
		slog.ErrorContext(ctx, "Failed to delete cache keys",
			"error", err,
			"keys", keys)
	}
}

// InvalidateResourceCache drops cached listings after any library change.
func InvalidateResourceCache(ctx context.Context, cm *CacheManager, resourceID uint) {
	SafeDelete(ctx, cm.Resource, fmt.Sprintf("id:%d", resourceID))
	SafeInvalidatePattern(ctx, cm.Resource, "list:*")
	SafeInvalidatePattern(ctx, cm.Resource, "categories*")
	SafeInvalidatePattern(ctx, cm.Stats, "*")
}

// InvalidateForumCategories drops the cached category list.
func InvalidateForumCategories(ctx context.Context, cm *CacheManager) {
	SafeDelete(ctx, cm.Forum, "categories:active")
}
