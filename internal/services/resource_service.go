package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/clinic-portal/portal-service/internal/models"
	"github.com/clinic-portal/portal-service/internal/repositories"
	"github.com/clinic-portal/portal-service/internal/storage"
	"github.com/clinic-portal/portal-service/internal/validator"
	"gorm.io/gorm"
)

const defaultCategoryColor = "#6C63FF"

type resourceService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
	files     storage.FileStorage
	maxUpload int64
}

func NewResourceService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validator, files storage.FileStorage, maxUpload int64) ResourceService {
	return &resourceService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: validator,
		files:     files,
		maxUpload: maxUpload,
	}
}

// ===== CATEGORIES =====

func (s *resourceService) ListCategories(ctx context.Context) ([]*models.ResourceCategory, error) {
	categories, err := s.repo.ResourceCategory().List(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return categories, nil
}

func (s *resourceService) CreateCategory(ctx context.Context, actor *models.User, req *ResourceCategoryRequest) (*models.ResourceCategory, error) {
	if err := requireRole(actor, "resource_category", "create", models.RoleAdmin); err != nil {
		return nil, err
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	category := &models.ResourceCategory{
		Name:        strings.TrimSpace(req.Name),
		Description: strings.TrimSpace(req.Description),
		Color:       req.Color,
	}
	if category.Color == "" {
		category.Color = defaultCategoryColor
	}

	if err := s.repo.ResourceCategory().Create(ctx, nil, category); err != nil {
		return nil, fmt.Errorf("failed to create category: %w", err)
	}

	s.logger.Info("Resource category created", "category_id", category.ID, "created_by", actor.ID)
	return category, nil
}

// DeleteCategory removes the category, its resources and their stored files.
func (s *resourceService) DeleteCategory(ctx context.Context, actor *models.User, id uint) error {
	if err := requireRole(actor, "resource_category", "delete", models.RoleAdmin); err != nil {
		return err
	}

	resources, _, err := s.repo.Resource().List(ctx, nil, repositories.ResourceFilters{CategoryID: &id})
	if err != nil {
		return fmt.Errorf("failed to list category resources: %w", err)
	}

	if err := s.repo.ResourceCategory().Delete(ctx, nil, id); err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrCategoryNotFound
		}
		return fmt.Errorf("failed to delete category: %w", err)
	}

	for _, r := range resources {
		s.discardFiles(ctx, r.FileKey, r.CoverKey)
	}

	s.logger.Info("Resource category deleted", "category_id", id, "resources", len(resources), "deleted_by", actor.ID)
	return nil
}

// ===== RESOURCES =====

func (s *resourceService) Create(ctx context.Context, actor *models.User, req *ResourceRequest, file, cover *FileUpload) (*models.Resource, error) {
	if err := requireStaff(actor, "resource", "create"); err != nil {
		return nil, err
	}

	s.logger.Info("Creating resource", "creator_id", actor.ID, "title", req.Title)

	if err := s.validateRequest(ctx, req, hasUpload(file), file, cover); err != nil {
		return nil, err
	}

	fileKey, err := s.store(ctx, storage.PrefixResourceFiles, file)
	if err != nil {
		return nil, err
	}
	coverKey, err := s.store(ctx, storage.PrefixResourceCovers, cover)
	if err != nil {
		s.discardFiles(ctx, fileKey)
		return nil, err
	}

	resource := &models.Resource{
		Title:       strings.TrimSpace(req.Title),
		Description: strings.TrimSpace(req.Description),
		Kind:        req.Kind,
		CategoryID:  req.CategoryID,
		URL:         optionalString(req.URL),
		FileKey:     fileKey,
		CoverKey:    coverKey,
		Content:     req.Content,
		IsPublic:    req.IsPublic,
		CreatedBy:   actor.ID,
	}

	if err := s.repo.Resource().Create(ctx, nil, resource); err != nil {
		s.discardFiles(ctx, fileKey, coverKey)
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	s.logger.Info("Resource created", "resource_id", resource.ID)
	return resource, nil
}

func (s *resourceService) GetByID(ctx context.Context, actor *models.User, id uint) (*ResourceResponse, error) {
	if err := requireAuthenticated(actor); err != nil {
		return nil, err
	}

	resource, err := s.getResource(ctx, id)
	if err != nil {
		return nil, err
	}

	// Private entries are invisible to patients.
	if !resource.IsPublic && !actor.Role().IsStaff() {
		return nil, ErrResourceNotFound
	}

	return s.buildResponse(actor, resource), nil
}

func (s *resourceService) Update(ctx context.Context, actor *models.User, id uint, req *ResourceRequest, file, cover *FileUpload) (*models.Resource, error) {
	if err := requireStaff(actor, "resource", "update"); err != nil {
		return nil, err
	}

	resource, err := s.getResource(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canManageResource(actor, resource) {
		return nil, NewPermissionError(actor.ID, id, "resource", "update", "not the author")
	}

	// A stored file survives the edit unless replaced or explicitly removed.
	keepsFile := resource.HasFile() && !req.RemoveFile
	if err := s.validateRequest(ctx, req, hasUpload(file) || keepsFile, file, cover); err != nil {
		return nil, err
	}

	newFile, err := s.store(ctx, storage.PrefixResourceFiles, file)
	if err != nil {
		return nil, err
	}
	newCover, err := s.store(ctx, storage.PrefixResourceCovers, cover)
	if err != nil {
		s.discardFiles(ctx, newFile)
		return nil, err
	}

	var obsolete []*string
	if newFile != nil {
		obsolete = append(obsolete, resource.FileKey)
		resource.FileKey = newFile
	} else if req.RemoveFile {
		obsolete = append(obsolete, resource.FileKey)
		resource.FileKey = nil
	}
	if newCover != nil {
		obsolete = append(obsolete, resource.CoverKey)
		resource.CoverKey = newCover
	} else if req.RemoveCover {
		obsolete = append(obsolete, resource.CoverKey)
		resource.CoverKey = nil
	}

	resource.Title = strings.TrimSpace(req.Title)
	resource.Description = strings.TrimSpace(req.Description)
	resource.Kind = req.Kind
	resource.CategoryID = req.CategoryID
	resource.URL = optionalString(req.URL)
	resource.Content = req.Content
	resource.IsPublic = req.IsPublic

	if err := s.repo.Resource().Update(ctx, nil, resource); err != nil {
		s.discardFiles(ctx, newFile, newCover)
		return nil, fmt.Errorf("failed to update resource: %w", err)
	}

	s.discardFiles(ctx, obsolete...)
	s.logger.Info("Resource updated", "resource_id", id, "updated_by", actor.ID)

	return resource, nil
}

func (s *resourceService) Delete(ctx context.Context, actor *models.User, id uint) (*models.Resource, error) {
	if err := requireStaff(actor, "resource", "delete"); err != nil {
		return nil, err
	}

	resource, err := s.getResource(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canManageResource(actor, resource) {
		return nil, NewPermissionError(actor.ID, id, "resource", "delete", "not the author")
	}

	if err := s.repo.Resource().Delete(ctx, nil, id); err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrResourceNotFound
		}
		return nil, fmt.Errorf("failed to delete resource: %w", err)
	}

	s.discardFiles(ctx, resource.FileKey, resource.CoverKey)
	s.logger.Info("Resource deleted", "resource_id", id, "deleted_by", actor.ID)

	return resource, nil
}

func (s *resourceService) List(ctx context.Context, actor *models.User, req *ResourceListRequest) (*ResourceListResponse, error) {
	if err := requireAuthenticated(actor); err != nil {
		return nil, err
	}

	filters, page, err := s.buildFilters(req)
	if err != nil {
		return nil, err
	}
	filters.PublicOnly = !actor.Role().IsStaff()

	return s.list(ctx, actor, filters, page)
}

func (s *resourceService) ListManaged(ctx context.Context, actor *models.User, req *ResourceListRequest) (*ResourceListResponse, error) {
	if err := requireStaff(actor, "resource", "manage"); err != nil {
		return nil, err
	}

	filters, page, err := s.buildFilters(req)
	if err != nil {
		return nil, err
	}
	if !actor.Role().In(models.RoleAdmin) {
		filters.CreatedBy = &actor.ID
	}

	return s.list(ctx, actor, filters, page)
}

// ===== HELPERS =====

// canManageResource: admin manages everything, an intern only what they authored.
func canManageResource(actor *models.User, resource *models.Resource) bool {
	if actor.Role().In(models.RoleAdmin) {
		return true
	}
	return actor.Role().In(models.RoleIntern) && resource.CreatedBy == actor.ID
}

func (s *resourceService) buildResponse(actor *models.User, resource *models.Resource) *ResourceResponse {
	manage := canManageResource(actor, resource)
	return &ResourceResponse{Resource: resource, CanEdit: manage, CanDelete: manage}
}

func (s *resourceService) validateRequest(ctx context.Context, req *ResourceRequest, hasFile bool, file, cover *FileUpload) error {
	req.URL = strings.TrimSpace(req.URL)

	errs := s.validator.ValidateStruct(req)
	errs = append(errs, s.validator.ValidateLinkOrFile(req.URL, hasFile)...)
	errs = append(errs, s.checkSize("file", file)...)
	errs = append(errs, s.checkSize("cover", cover)...)
	if len(errs) > 0 {
		return errs
	}

	if _, err := s.repo.ResourceCategory().GetByID(ctx, nil, req.CategoryID); err != nil {
		if repositories.IsNotFoundError(err) {
			return NewValidationError("category_id", "La categoría seleccionada no existe.", req.CategoryID)
		}
		return fmt.Errorf("failed to get category: %w", err)
	}

	return nil
}

func (s *resourceService) checkSize(field string, f *FileUpload) ValidationErrors {
	if !hasUpload(f) || s.maxUpload <= 0 || f.Size <= s.maxUpload {
		return nil
	}
	return ValidationErrors{{
		Field:   field,
		Message: fmt.Sprintf("El archivo supera el tamaño máximo de %d MB.", s.maxUpload>>20),
		Value:   f.Filename,
		Rule:    "max_size",
	}}
}

func (s *resourceService) store(ctx context.Context, prefix string, f *FileUpload) (*string, error) {
	return storeUpload(ctx, s.files, prefix, f)
}

func (s *resourceService) discardFiles(ctx context.Context, keys ...*string) {
	discardUploads(ctx, s.files, s.logger, keys...)
}

func (s *resourceService) getResource(ctx context.Context, id uint) (*models.Resource, error) {
	resource, err := s.repo.Resource().GetByID(ctx, nil, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrResourceNotFound
		}
		return nil, fmt.Errorf("failed to get resource: %w", err)
	}
	return resource, nil
}

func (s *resourceService) buildFilters(req *ResourceListRequest) (repositories.ResourceFilters, int, error) {
	if req == nil {
		req = &ResourceListRequest{}
	}
	if err := s.validator.Validate(req); err != nil {
		return repositories.ResourceFilters{}, 0, err
	}

	limit, offset, page := paginate(req.Page)
	filters := repositories.ResourceFilters{
		Limit:     limit,
		Offset:    offset,
		SortBy:    req.SortBy,
		SortOrder: req.SortOrder,
	}
	if req.CategoryID != 0 {
		filters.CategoryID = &req.CategoryID
	}
	if req.Kind != "" {
		kind := models.ResourceKind(req.Kind)
		filters.Kind = &kind
	}
	return filters, page, nil
}

func (s *resourceService) list(ctx context.Context, actor *models.User, filters repositories.ResourceFilters, page int) (*ResourceListResponse, error) {
	resources, total, err := s.repo.Resource().List(ctx, nil, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list resources: %w", err)
	}

	categories, err := s.ListCategories(ctx)
	if err != nil {
		return nil, err
	}

	responses := make([]*ResourceResponse, 0, len(resources))
	for _, r := range resources {
		responses = append(responses, s.buildResponse(actor, r))
	}

	return &ResourceListResponse{
		Resources:  responses,
		Categories: categories,
		Total:      total,
		Page:       page,
		Size:       filters.Limit,
	}, nil
}
