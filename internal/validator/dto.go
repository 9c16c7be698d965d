package validator

import (
	"time"

	"github.com/clinic-portal/portal-service/internal/models"
)

// ===== ACCOUNTS =====

type LoginRequest struct {
	Username string `form:"username" validate:"required,max=150"`
	Password string `form:"password" validate:"required,max=128"`
}

// CreateUserRequest is used by administrators creating any kind of account.
type CreateUserRequest struct {
	Username        string      `form:"username" validate:"required,min=3,max=150,username"`
	Email           string      `form:"email" validate:"required,email,max=255"`
	FirstName       string      `form:"first_name" validate:"max=150"`
	LastName        string      `form:"last_name" validate:"max=150"`
	Password        string      `form:"password" validate:"required,min=8,max=128"`
	PasswordConfirm string      `form:"password_confirm" validate:"required,eqfield=Password"`
	Role            models.Role `form:"role" validate:"required,role"`
	Phone           string      `form:"phone" validate:"omitempty,phone"`
	BirthDate       *time.Time  `form:"birth_date" time_format:"2006-01-02"`
}

type UpdateUserRequest struct {
	Username  string      `form:"username" validate:"required,min=3,max=150,username"`
	Email     string      `form:"email" validate:"required,email,max=255"`
	FirstName string      `form:"first_name" validate:"max=150"`
	LastName  string      `form:"last_name" validate:"max=150"`
	Role      models.Role `form:"role" validate:"required,role"`
	Phone     string      `form:"phone" validate:"omitempty,phone"`
	BirthDate *time.Time  `form:"birth_date" time_format:"2006-01-02"`
	IsActive  bool        `form:"is_active"`
	// Empty keeps the current password.
	Password string `form:"password" validate:"omitempty,min=8,max=128"`
}

// ProfileUpdateRequest covers the fields a user may change about themself.
type ProfileUpdateRequest struct {
	FirstName string     `form:"first_name" validate:"max=150"`
	LastName  string     `form:"last_name" validate:"max=150"`
	Email     string     `form:"email" validate:"required,email,max=255"`
	Phone     string     `form:"phone" validate:"omitempty,phone"`
	BirthDate *time.Time `form:"birth_date" time_format:"2006-01-02"`
}

type UserListRequest struct {
	Role  string `form:"role" validate:"omitempty,role"`
	Query string `form:"q" validate:"max=100"`
	Page  int    `form:"page" validate:"omitempty,min=1"`
}

// ===== RESOURCE LIBRARY =====

type ResourceCategoryRequest struct {
	Name        string `form:"name" validate:"required,notblank,max=100"`
	Description string `form:"description" validate:"max=1000"`
	Color       string `form:"color" validate:"omitempty,hexcolor"`
}

type ResourceRequest struct {
	Title       string              `form:"title" validate:"required,notblank,max=200"`
	Description string              `form:"description" validate:"required,notblank,max=5000"`
	Kind        models.ResourceKind `form:"kind" validate:"required,resource_kind"`
	CategoryID  uint                `form:"category_id" validate:"required"`
	URL         string              `form:"url" validate:"omitempty,url,max=500"`
	Content     string              `form:"content" validate:"max=20000"`
	IsPublic    bool                `form:"is_public"`
	RemoveFile  bool                `form:"remove_file"`
	RemoveCover bool                `form:"remove_cover"`
}

type ResourceListRequest struct {
	CategoryID uint   `form:"category"`
	Kind       string `form:"kind" validate:"omitempty,resource_kind"`
	SortBy     string `form:"sort_by" validate:"omitempty,oneof=created_at title"`
	SortOrder  string `form:"sort_order" validate:"omitempty,oneof=asc desc"`
	Page       int    `form:"page" validate:"omitempty,min=1"`
}

// ===== CONTACT =====

type InquiryRequest struct {
	Kind    models.InquiryKind `form:"kind" validate:"required,inquiry_kind"`
	Subject string             `form:"subject" validate:"required,notblank,max=200"`
	Message string             `form:"message" validate:"required,notblank,max=5000"`
}

type InquiryReplyRequest struct {
	Body string `form:"body" validate:"required,notblank,max=5000"`
}

// ===== FORUM =====

type ThreadRequest struct {
	Title       string `form:"title" validate:"required,notblank,max=200"`
	Body        string `form:"body" validate:"required,notblank,max=10000"`
	CategoryID  uint   `form:"category_id" validate:"required"`
	IsAnonymous bool   `form:"is_anonymous"`
}

type ThreadListRequest struct {
	// "todas" or empty means every category.
	Category string `form:"category" validate:"max=20"`
	Order    string `form:"order" validate:"thread_order"`
	Page     int    `form:"page" validate:"omitempty,min=1"`
}

type ForumReplyRequest struct {
	Body        string `form:"body" validate:"required,notblank,max=5000"`
	IsAnonymous bool   `form:"is_anonymous"`
}

type VoteRequest struct {
	Polarity models.VotePolarity `form:"polarity" validate:"required,vote_polarity"`
}

type ThreadStatusRequest struct {
	Status models.ThreadStatus `form:"status" validate:"required,thread_status"`
}

type OfficialReplyRequest struct {
	Official bool `form:"official"`
}

// ===== PERSONALIZED TEST =====

type ResultListRequest struct {
	PatientID uint       `form:"patient_id"`
	DateFrom  *time.Time `form:"from" time_format:"2006-01-02"`
	DateTo    *time.Time `form:"to" time_format:"2006-01-02"`
	Page      int        `form:"page" validate:"omitempty,min=1"`
}

// ===== PERSONALIZED CONTENT =====

type ContentRequest struct {
	PatientID   uint               `form:"patient_id" validate:"required"`
	Title       string             `form:"title" validate:"required,notblank,max=200"`
	Description string             `form:"description" validate:"max=5000"`
	Kind        models.ContentKind `form:"kind" validate:"required,content_kind"`
	URL         string             `form:"url" validate:"omitempty,url,max=500"`
}
