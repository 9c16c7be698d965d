package services

import (
	"context"
	"io"

	"github.com/clinic-portal/portal-service/internal/auth"
	"github.com/clinic-portal/portal-service/internal/models"
	"github.com/clinic-portal/portal-service/internal/repositories"
	"github.com/clinic-portal/portal-service/internal/storage"
	"github.com/clinic-portal/portal-service/internal/validator"
)

// ===== REQUEST/RESPONSE DTOs =====

// Use validator request types
type LoginRequest = validator.LoginRequest
type CreateUserRequest = validator.CreateUserRequest
type UpdateUserRequest = validator.UpdateUserRequest
type ProfileUpdateRequest = validator.ProfileUpdateRequest
type UserListRequest = validator.UserListRequest

type ResourceCategoryRequest = validator.ResourceCategoryRequest
type ResourceRequest = validator.ResourceRequest
type ResourceListRequest = validator.ResourceListRequest

type InquiryRequest = validator.InquiryRequest
type InquiryReplyRequest = validator.InquiryReplyRequest

type ThreadRequest = validator.ThreadRequest
type ThreadListRequest = validator.ThreadListRequest
type ForumReplyRequest = validator.ForumReplyRequest

type ResultListRequest = validator.ResultListRequest
type ContentRequest = validator.ContentRequest

// FileUpload is an uploaded file as handed over by the transport layer.
type FileUpload struct {
	Filename string
	Size     int64
	Content  io.Reader
}

type LoginResult struct {
	User   *models.User
	Token  string
	Claims *auth.Claims
}

type UserListResponse struct {
	Users []*models.User `json:"users"`
	Total int64          `json:"total"`
	Page  int            `json:"page"`
	Size  int            `json:"size"`
}

type ProfileResponse struct {
	User  *models.User      `json:"user"`
	Stats *models.UserStats `json:"stats"`
}

type ResourceResponse struct {
	*models.Resource
	CanEdit   bool `json:"can_edit"`
	CanDelete bool `json:"can_delete"`
}

type ResourceListResponse struct {
	Resources  []*ResourceResponse        `json:"resources"`
	Categories []*models.ResourceCategory `json:"categories"`
	Total      int64                      `json:"total"`
	Page       int                        `json:"page"`
	Size       int                        `json:"size"`
}

type InquiryListResponse struct {
	Inquiries []*models.Inquiry `json:"inquiries"`
	Total     int64             `json:"total"`
	Page      int               `json:"page"`
	Size      int               `json:"size"`
}

type ThreadListResponse struct {
	Threads    []*models.Thread        `json:"threads"`
	Categories []*models.ForumCategory `json:"categories"`
	Stats      *models.ForumStats      `json:"stats"`
	Category   string                  `json:"category"`
	Order      models.ThreadOrder      `json:"order"`
	Total      int64                   `json:"total"`
	Page       int                     `json:"page"`
	Size       int                     `json:"size"`
}

type ThreadDetail struct {
	Thread      *models.Thread       `json:"thread"`
	Replies     []*models.ForumReply `json:"replies"`
	CanEdit     bool                 `json:"can_edit"`
	CanDelete   bool                 `json:"can_delete"`
	CanModerate bool                 `json:"can_moderate"`
	CanReply    bool                 `json:"can_reply"`
	// Polarity of the caller's own vote, empty when they have not voted.
	MyVote models.VotePolarity `json:"my_vote,omitempty"`
}

type SectionScores map[models.TestSection]int

type ResultListResponse struct {
	Results []*models.TestResult `json:"results"`
	Total   int64                `json:"total"`
	Page    int                  `json:"page"`
	Size    int                  `json:"size"`
}

type ContentListResponse struct {
	Contents []*models.PersonalizedContent `json:"contents"`
	Total    int64                         `json:"total"`
	Page     int                           `json:"page"`
	Size     int                           `json:"size"`
}

type AdminDashboard struct {
	Stats *repositories.AdminStats `json:"stats"`
	Bands []repositories.BandCount `json:"bands"`
	Forum *models.ForumStats       `json:"forum"`
}

type InternDashboard struct {
	Stats            *repositories.InternStats `json:"stats"`
	Bands            []repositories.BandCount  `json:"bands"`
	PendingInquiries []*models.Inquiry         `json:"pending_inquiries"`
}

// ===== SERVICE INTERFACES =====

type AuthService interface {
	Login(ctx context.Context, req *LoginRequest) (*LoginResult, error)
	Logout(ctx context.Context, claims *auth.Claims) error
	// Authenticate resolves a session token to its active user.
	Authenticate(ctx context.Context, token string) (*models.User, *auth.Claims, error)
	// AuthenticateDirectory maps an SSO bearer token onto a local account, provisioning it on first use.
	AuthenticateDirectory(ctx context.Context, bearer string) (*models.User, error)
	// SetViewAsUser reissues the session with the view-as-user flag toggled.
	SetViewAsUser(ctx context.Context, actor *models.User, claims *auth.Claims, enabled bool) (*LoginResult, error)
	EnsureAdmin(ctx context.Context, username, email, password string) error
	SessionTTLSeconds() int
}

type UserService interface {
	Create(ctx context.Context, actor *models.User, req *CreateUserRequest) (*models.User, error)
	GetByID(ctx context.Context, actor *models.User, id uint) (*models.User, error)
	Update(ctx context.Context, actor *models.User, id uint, req *UpdateUserRequest) (*models.User, error)
	Delete(ctx context.Context, actor *models.User, id uint) error
	List(ctx context.Context, actor *models.User, req *UserListRequest) (*UserListResponse, error)

	ListPatients(ctx context.Context, actor *models.User) ([]*models.User, error)
	GetProfile(ctx context.Context, actor *models.User) (*ProfileResponse, error)
	UpdateProfile(ctx context.Context, actor *models.User, req *ProfileUpdateRequest) (*models.User, error)
}

type ResourceService interface {
	// Categories
	ListCategories(ctx context.Context) ([]*models.ResourceCategory, error)
	CreateCategory(ctx context.Context, actor *models.User, req *ResourceCategoryRequest) (*models.ResourceCategory, error)
	DeleteCategory(ctx context.Context, actor *models.User, id uint) error

	// Resources
	Create(ctx context.Context, actor *models.User, req *ResourceRequest, file, cover *FileUpload) (*models.Resource, error)
	GetByID(ctx context.Context, actor *models.User, id uint) (*ResourceResponse, error)
	Update(ctx context.Context, actor *models.User, id uint, req *ResourceRequest, file, cover *FileUpload) (*models.Resource, error)
	Delete(ctx context.Context, actor *models.User, id uint) (*models.Resource, error)
	List(ctx context.Context, actor *models.User, req *ResourceListRequest) (*ResourceListResponse, error)
	// ListManaged lists what the caller may manage: everything for admin, own entries for interns.
	ListManaged(ctx context.Context, actor *models.User, req *ResourceListRequest) (*ResourceListResponse, error)
}

type InquiryService interface {
	Create(ctx context.Context, actor *models.User, req *InquiryRequest) (*models.Inquiry, error)
	GetByID(ctx context.Context, actor *models.User, id uint) (*models.Inquiry, error)
	List(ctx context.Context, actor *models.User, page int, answered *bool) (*InquiryListResponse, error)
	Reply(ctx context.Context, actor *models.User, inquiryID uint, req *InquiryReplyRequest) (*models.InquiryReply, error)
	MarkRead(ctx context.Context, actor *models.User, id uint) error
}

type ForumService interface {
	ListCategories(ctx context.Context) ([]*models.ForumCategory, error)
	ListThreads(ctx context.Context, actor *models.User, req *ThreadListRequest) (*ThreadListResponse, error)

	CreateThread(ctx context.Context, actor *models.User, req *ThreadRequest) (*models.Thread, error)
	// ViewThread counts a visit and returns the thread with its replies.
	ViewThread(ctx context.Context, actor *models.User, id uint) (*ThreadDetail, error)
	GetThread(ctx context.Context, actor *models.User, id uint) (*models.Thread, error)
	UpdateThread(ctx context.Context, actor *models.User, id uint, req *ThreadRequest) (*models.Thread, error)
	DeleteThread(ctx context.Context, actor *models.User, id uint) (*models.Thread, error)
	SetThreadStatus(ctx context.Context, actor *models.User, id uint, status models.ThreadStatus) (*models.Thread, error)

	CreateReply(ctx context.Context, actor *models.User, threadID uint, req *ForumReplyRequest) (*models.ForumReply, error)
	SetReplyOfficial(ctx context.Context, actor *models.User, replyID uint, official bool) (*models.ForumReply, error)

	VoteThread(ctx context.Context, actor *models.User, threadID uint, polarity models.VotePolarity) (*models.Thread, error)
	VoteReply(ctx context.Context, actor *models.User, replyID uint, polarity models.VotePolarity) (*models.ForumReply, error)
}

type TestService interface {
	EnsureQuestions(ctx context.Context) error
	Questions(ctx context.Context) ([]*models.TestQuestion, error)
	// Submit scores the raw answer map (question id -> option id) and stores one result.
	Submit(ctx context.Context, actor *models.User, answers map[string]string) (*models.TestResult, error)
	GetResult(ctx context.Context, actor *models.User, id uint) (*models.TestResult, error)
	ListResults(ctx context.Context, actor *models.User, req *ResultListRequest) (*ResultListResponse, error)
	ExportResults(ctx context.Context, actor *models.User, req *ResultListRequest) ([]byte, error)
}

type ContentService interface {
	Create(ctx context.Context, actor *models.User, req *ContentRequest, file *FileUpload) (*models.PersonalizedContent, error)
	GetByID(ctx context.Context, actor *models.User, id uint) (*models.PersonalizedContent, error)
	List(ctx context.Context, actor *models.User, patientID uint, page int) (*ContentListResponse, error)
	Delete(ctx context.Context, actor *models.User, id uint) error
}

type MediaService interface {
	// Open streams a stored upload after checking the caller may see what it belongs to.
	Open(ctx context.Context, actor *models.User, key string) (io.ReadCloser, *storage.ObjectInfo, error)
}

type DashboardService interface {
	AdminDashboard(ctx context.Context, actor *models.User) (*AdminDashboard, error)
	InternDashboard(ctx context.Context, actor *models.User) (*InternDashboard, error)
}

type ServiceManager interface {
	Auth() AuthService
	User() UserService
	Resource() ResourceService
	Inquiry() InquiryService
	Forum() ForumService
	Test() TestService
	Content() ContentService
	Media() MediaService
	Dashboard() DashboardService

	Initialize(ctx context.Context) error
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}
