package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/clinic-portal/portal-service/internal/events"
	"github.com/clinic-portal/portal-service/internal/models"
	"github.com/clinic-portal/portal-service/internal/repositories"
	"github.com/clinic-portal/portal-service/internal/storage"
	"github.com/clinic-portal/portal-service/internal/validator"
	"gorm.io/gorm"
)

type contentService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
	files     storage.FileStorage
	publisher events.EventPublisher
	maxUpload int64
}

func NewContentService(
	repo repositories.Repository,
	db *gorm.DB,
	logger *slog.Logger,
	validator *validator.Validator,
	files storage.FileStorage,
	publisher events.EventPublisher,
	maxUpload int64,
) ContentService {
	return &contentService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: validator,
		files:     files,
		publisher: publisher,
		maxUpload: maxUpload,
	}
}

// Create assigns content to one patient. Interns and admins may author it.
func (s *contentService) Create(ctx context.Context, actor *models.User, req *ContentRequest, file *FileUpload) (*models.PersonalizedContent, error) {
	if err := requireStaff(actor, "content", "create"); err != nil {
		return nil, err
	}

	req.URL = strings.TrimSpace(req.URL)
	errs := s.validator.ValidateStruct(req)
	errs = append(errs, s.validator.ValidateLinkOrFile(req.URL, hasUpload(file))...)
	if hasUpload(file) && s.maxUpload > 0 && file.Size > s.maxUpload {
		errs = append(errs, ValidationError{
			Field:   "file",
			Message: fmt.Sprintf("El archivo supera el tamaño máximo de %d MB.", s.maxUpload>>20),
			Value:   file.Filename,
			Rule:    "max_size",
		})
	}
	if len(errs) > 0 {
		return nil, errs
	}

	patient, err := s.repo.User().GetByID(ctx, nil, req.PatientID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, NewValidationError("patient_id", "El paciente seleccionado no existe.", req.PatientID)
		}
		return nil, fmt.Errorf("failed to get patient: %w", err)
	}
	if patient.Role() != models.RolePatient {
		return nil, NewValidationError("patient_id", "El destinatario debe ser un paciente.", req.PatientID)
	}

	fileKey, err := storeUpload(ctx, s.files, storage.PrefixContent, file)
	if err != nil {
		return nil, err
	}

	content := &models.PersonalizedContent{
		AuthorID:    actor.ID,
		PatientID:   patient.ID,
		Title:       strings.TrimSpace(req.Title),
		Description: strings.TrimSpace(req.Description),
		Kind:        req.Kind,
		URL:         optionalString(req.URL),
		FileKey:     fileKey,
	}
	if err := s.repo.Content().Create(ctx, nil, content); err != nil {
		discardUploads(ctx, s.files, s.logger, fileKey)
		return nil, fmt.Errorf("failed to create content: %w", err)
	}

	s.logger.Info("Personalized content assigned", "content_id", content.ID, "patient_id", patient.ID, "author_id", actor.ID)
	events.PublishSafe(ctx, s.publisher, s.logger, events.ContentAssigned, events.ContentAssignedEvent{
		ContentID: content.ID,
		PatientID: patient.ID,
		AuthorID:  actor.ID,
		Kind:      string(content.Kind),
	})

	return content, nil
}

func (s *contentService) GetByID(ctx context.Context, actor *models.User, id uint) (*models.PersonalizedContent, error) {
	if err := requireAuthenticated(actor); err != nil {
		return nil, err
	}

	content, err := s.getContent(ctx, id)
	if err != nil {
		return nil, err
	}
	if content.PatientID != actor.ID && !actor.Role().IsStaff() {
		return nil, NewPermissionError(actor.ID, id, "content", "read", "not the recipient")
	}

	return content, nil
}

// List returns the caller's own content for patients. Staff may narrow by patient.
func (s *contentService) List(ctx context.Context, actor *models.User, patientID uint, page int) (*ContentListResponse, error) {
	if err := requireAuthenticated(actor); err != nil {
		return nil, err
	}

	limit, offset, page := paginate(page)
	filters := repositories.ContentFilters{Limit: limit, Offset: offset}

	switch {
	case !actor.Role().IsStaff():
		filters.PatientID = &actor.ID
	case patientID != 0:
		filters.PatientID = &patientID
	}

	contents, total, err := s.repo.Content().List(ctx, nil, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list content: %w", err)
	}

	return &ContentListResponse{Contents: contents, Total: total, Page: page, Size: limit}, nil
}

// Delete: admin removes anything, an intern only what they authored.
func (s *contentService) Delete(ctx context.Context, actor *models.User, id uint) error {
	if err := requireStaff(actor, "content", "delete"); err != nil {
		return err
	}

	content, err := s.getContent(ctx, id)
	if err != nil {
		return err
	}
	if !actor.Role().In(models.RoleAdmin) && content.AuthorID != actor.ID {
		return NewPermissionError(actor.ID, id, "content", "delete", "not the author")
	}

	if err := s.repo.Content().Delete(ctx, nil, id); err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrContentNotFound
		}
		return fmt.Errorf("failed to delete content: %w", err)
	}

	discardUploads(ctx, s.files, s.logger, content.FileKey)
	s.logger.Info("Personalized content deleted", "content_id", id, "deleted_by", actor.ID)
	return nil
}

func (s *contentService) getContent(ctx context.Context, id uint) (*models.PersonalizedContent, error) {
	content, err := s.repo.Content().GetByID(ctx, nil, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrContentNotFound
		}
		return nil, fmt.Errorf("failed to get content: %w", err)
	}
	return content, nil
}
