package repositories

import (
	"time"

	"github.com/clinic-portal/portal-service/internal/models"
)

// ===== SHARED FILTER STRUCTS =====

type UserFilters struct {
	Role   *models.Role `json:"role"`
	Query  string       `json:"query"` // matches username, email or names
	Limit  int          `json:"limit"`
	Offset int          `json:"offset"`
}

type ResourceFilters struct {
	CategoryID *uint                `json:"category_id"`
	Kind       *models.ResourceKind `json:"kind"`
	CreatedBy  *uint                `json:"created_by"`
	PublicOnly bool                 `json:"public_only"`
	Limit      int                  `json:"limit"`
	Offset     int                  `json:"offset"`
	SortBy     string               `json:"sort_by"`    // "created_at", "title"
	SortOrder  string               `json:"sort_order"` // "asc", "desc"
}

type InquiryFilters struct {
	UserID   *uint `json:"user_id"`
	Answered *bool `json:"answered"`
	Limit    int   `json:"limit"`
	Offset   int   `json:"offset"`
}

type ThreadFilters struct {
	CategoryID *uint                `json:"category_id"`
	CreatedBy  *uint                `json:"created_by"`
	Status     *models.ThreadStatus `json:"status"`
	Order      models.ThreadOrder   `json:"order"`
	Limit      int                  `json:"limit"`
	Offset     int                  `json:"offset"`
}

type ResultFilters struct {
	PatientID *uint      `json:"patient_id"`
	DateFrom  *time.Time `json:"date_from"`
	DateTo    *time.Time `json:"date_to"`
	Limit     int        `json:"limit"`
	Offset    int        `json:"offset"`
}

type ContentFilters struct {
	PatientID *uint `json:"patient_id"`
	AuthorID  *uint `json:"author_id"`
	Limit     int   `json:"limit"`
	Offset    int   `json:"offset"`
}

// ===== SHARED STATISTICS STRUCTS =====

type AdminStats struct {
	UsersByRole       map[models.Role]int64 `json:"users_by_role"`
	TotalUsers        int64                 `json:"total_users"`
	TotalResources    int64                 `json:"total_resources"`
	PendingInquiries  int64                 `json:"pending_inquiries"`
	AnsweredInquiries int64                 `json:"answered_inquiries"`
	TotalThreads      int64                 `json:"total_threads"`
	TotalResults      int64                 `json:"total_results"`
}

type InternStats struct {
	PendingInquiries int64 `json:"pending_inquiries"`
	OwnResources     int64 `json:"own_resources"`
	TotalResults     int64 `json:"total_results"`
	ContentAuthored  int64 `json:"content_authored"`
	TotalPatients    int64 `json:"total_patients"`
}

type BandCount struct {
	Band  models.DiagnosisBand `json:"band"`
	Count int64                `json:"count"`
}
