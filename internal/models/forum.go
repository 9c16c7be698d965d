package models

import (
	"time"
)

type ThreadStatus string

const (
	ThreadOpen     ThreadStatus = "open"
	ThreadClosed   ThreadStatus = "closed"
	ThreadFeatured ThreadStatus = "featured"
)

type VotePolarity string

const (
	VoteUp   VotePolarity = "up"
	VoteDown VotePolarity = "down"
)

type ThreadOrder string

const (
	OrderRecent  ThreadOrder = "recent"
	OrderPopular ThreadOrder = "popular"
	OrderOldest  ThreadOrder = "oldest"
)

type ForumCategory struct {
	ID          uint   `json:"id" gorm:"primaryKey"`
	Name        string `json:"name" gorm:"not null;size:100"`
	Description string `json:"description" gorm:"type:text"`
	Color       string `json:"color" gorm:"size:7;default:#6C63FF"`
	Order       int    `json:"order" gorm:"column:sort_order;default:0"`
	IsActive    bool   `json:"is_active" gorm:"default:true"`
}

func (ForumCategory) TableName() string {
	return "forum_categories"
}

// DefaultForumCategories are seeded the first time the forum is opened.
var DefaultForumCategories = []ForumCategory{
	{Name: "Experiencias Personales", Color: "#6C63FF", Order: 1, IsActive: true},
	{Name: "Consejos y Estrategias", Color: "#4CAF50", Order: 2, IsActive: true},
	{Name: "Apoyo Emocional", Color: "#FF6B6B", Order: 3, IsActive: true},
	{Name: "Preguntas y Dudas", Color: "#FFA726", Order: 4, IsActive: true},
}

type Thread struct {
	ID          uint         `json:"id" gorm:"primaryKey"`
	Title       string       `json:"title" gorm:"not null;size:200"`
	Body        string       `json:"body" gorm:"type:text;not null"`
	CategoryID  uint         `json:"category_id" gorm:"not null;index"`
	CreatedBy   uint         `json:"created_by" gorm:"not null;index"`
	Status      ThreadStatus `json:"status" gorm:"size:10;default:open;index"`
	IsAnonymous bool         `json:"is_anonymous" gorm:"default:false"`

	// Denormalized counters, kept in step with the vote and reply tables
	// inside the transaction that writes the child row.
	Upvotes    int `json:"upvotes" gorm:"default:0"`
	Downvotes  int `json:"downvotes" gorm:"default:0"`
	ReplyCount int `json:"reply_count" gorm:"default:0"`
	Visits     int `json:"visits" gorm:"default:0"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Category ForumCategory `json:"category" gorm:"foreignKey:CategoryID"`
	Author   User          `json:"author" gorm:"foreignKey:CreatedBy"`
	Replies  []ForumReply  `json:"replies,omitempty" gorm:"foreignKey:ThreadID"`
}

func (Thread) TableName() string {
	return "forum_threads"
}

type ForumReply struct {
	ID          uint   `json:"id" gorm:"primaryKey"`
	ThreadID    uint   `json:"thread_id" gorm:"not null;index"`
	Body        string `json:"body" gorm:"type:text;not null"`
	CreatedBy   uint   `json:"created_by" gorm:"not null;index"`
	IsAnonymous bool   `json:"is_anonymous" gorm:"default:false"`
	IsOfficial  bool   `json:"is_official" gorm:"default:false"`
	Upvotes     int    `json:"upvotes" gorm:"default:0"`
	Downvotes   int    `json:"downvotes" gorm:"default:0"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Author User `json:"author" gorm:"foreignKey:CreatedBy"`
}

func (ForumReply) TableName() string {
	return "forum_replies"
}

type ThreadVote struct {
	ID       uint         `json:"id" gorm:"primaryKey"`
	ThreadID uint         `json:"thread_id" gorm:"not null;uniqueIndex:idx_thread_vote_voter"`
	UserID   uint         `json:"user_id" gorm:"not null;uniqueIndex:idx_thread_vote_voter"`
	Polarity VotePolarity `json:"polarity" gorm:"size:10;not null"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (ThreadVote) TableName() string {
	return "forum_thread_votes"
}

type ReplyVote struct {
	ID       uint         `json:"id" gorm:"primaryKey"`
	ReplyID  uint         `json:"reply_id" gorm:"not null;uniqueIndex:idx_reply_vote_voter"`
	UserID   uint         `json:"user_id" gorm:"not null;uniqueIndex:idx_reply_vote_voter"`
	Polarity VotePolarity `json:"polarity" gorm:"size:10;not null"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (ReplyVote) TableName() string {
	return "forum_reply_votes"
}

type ForumStats struct {
	TotalThreads int64 `json:"total_threads"`
	TotalReplies int64 `json:"total_replies"`
	OpenThreads  int64 `json:"open_threads"`
}
