package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/clinic-portal/portal-service/internal/models"
	"github.com/clinic-portal/portal-service/internal/repositories"
	"github.com/clinic-portal/portal-service/internal/storage"
)

type mediaService struct {
	repo   repositories.Repository
	files  storage.FileStorage
	logger *slog.Logger
}

func NewMediaService(repo repositories.Repository, files storage.FileStorage, logger *slog.Logger) MediaService {
	return &mediaService{repo: repo, files: files, logger: logger}
}

// Open serves a stored upload only when the caller may see the record that owns it.
// Keys that belong to nothing are reported as missing.
func (s *mediaService) Open(ctx context.Context, actor *models.User, key string) (io.ReadCloser, *storage.ObjectInfo, error) {
	if err := requireAuthenticated(actor); err != nil {
		return nil, nil, err
	}

	key, err := storage.CleanKey(key)
	if err != nil {
		return nil, nil, ErrFileNotFound
	}

	if err := s.authorize(ctx, actor, key); err != nil {
		return nil, nil, err
	}

	rc, info, err := s.files.Open(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil, ErrFileNotFound
		}
		return nil, nil, fmt.Errorf("failed to open stored file: %w", err)
	}
	return rc, info, nil
}

func (s *mediaService) authorize(ctx context.Context, actor *models.User, key string) error {
	staff := actor.Role().IsStaff()

	content, err := s.repo.Content().GetByFileKey(ctx, nil, key)
	switch {
	case err == nil:
		if content.PatientID == actor.ID || staff {
			return nil
		}
		return NewPermissionError(actor.ID, content.ID, "content", "download", "not the recipient")
	case !repositories.IsNotFoundError(err):
		return fmt.Errorf("failed to look up content file: %w", err)
	}

	resource, err := s.repo.Resource().FileReferenced(ctx, nil, key)
	switch {
	case err == nil:
		if resource.IsPublic || staff {
			return nil
		}
		return ErrFileNotFound
	case repositories.IsNotFoundError(err):
		return ErrFileNotFound
	default:
		return fmt.Errorf("failed to look up resource file: %w", err)
	}
}
