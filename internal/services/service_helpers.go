package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/clinic-portal/portal-service/internal/models"
	"github.com/clinic-portal/portal-service/internal/storage"
)

const defaultPageSize = 20

// requireRole is the capability check shared by every service operation.
func requireRole(actor *models.User, resource, action string, roles ...models.Role) error {
	if actor == nil {
		return ErrUnauthorized
	}
	if !actor.Role().In(roles...) {
		return NewPermissionError(actor.ID, 0, resource, action, "insufficient role permissions")
	}
	return nil
}

func requireStaff(actor *models.User, resource, action string) error {
	return requireRole(actor, resource, action, models.StaffRoles...)
}

func requireAuthenticated(actor *models.User) error {
	if actor == nil || actor.ID == 0 {
		return ErrUnauthorized
	}
	return nil
}

// paginate turns a 1-based page number into limit and offset.
func paginate(page int) (limit, offset, normalized int) {
	if page < 1 {
		page = 1
	}
	return defaultPageSize, (page - 1) * defaultPageSize, page
}

// optionalString returns nil for blank input.
func optionalString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func hasUpload(f *FileUpload) bool {
	return f != nil && f.Content != nil && f.Filename != ""
}

// storeUpload saves f under prefix and returns its key, or nil when nothing was uploaded.
func storeUpload(ctx context.Context, files storage.FileStorage, prefix string, f *FileUpload) (*string, error) {
	if !hasUpload(f) {
		return nil, nil
	}
	key, err := files.Save(ctx, prefix, f.Filename, f.Content, f.Size)
	if err != nil {
		return nil, fmt.Errorf("failed to store upload: %w", err)
	}
	return &key, nil
}

// discardUploads deletes stored objects; failures only leave an orphan behind.
func discardUploads(ctx context.Context, files storage.FileStorage, logger *slog.Logger, keys ...*string) {
	for _, key := range keys {
		if key == nil || *key == "" {
			continue
		}
		if err := files.Delete(ctx, *key); err != nil {
			logger.Warn("Failed to delete stored file", "key", *key, "error", err)
		}
	}
}
