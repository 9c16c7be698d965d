package models

import (
	"time"
)

type InquiryKind string

const (
	InquirySuggestion InquiryKind = "suggestion"
	InquiryQuestion   InquiryKind = "question"
	InquiryProblem    InquiryKind = "problem"
	InquiryOther      InquiryKind = "other"
)

var InquiryKinds = []InquiryKind{InquirySuggestion, InquiryQuestion, InquiryProblem, InquiryOther}

// Inquiry is a contact-form submission owned by the patient who sent it.
type Inquiry struct {
	ID          uint        `json:"id" gorm:"primaryKey"`
	UserID      uint        `json:"user_id" gorm:"not null;index"`
	Kind        InquiryKind `json:"kind" gorm:"size:20;not null"`
	Subject     string      `json:"subject" gorm:"not null;size:200"`
	Message     string      `json:"message" gorm:"type:text;not null"`
	Read        bool        `json:"read" gorm:"default:false"`
	Answered    bool        `json:"answered" gorm:"default:false;index"`
	LatestReply string      `json:"latest_reply" gorm:"type:text"`
	ReplyCount  int         `json:"reply_count" gorm:"default:0"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	User    User           `json:"user" gorm:"foreignKey:UserID"`
	Replies []InquiryReply `json:"replies,omitempty" gorm:"foreignKey:InquiryID"`
}

func (Inquiry) TableName() string {
	return "inquiries"
}

type InquiryReply struct {
	ID        uint   `json:"id" gorm:"primaryKey"`
	InquiryID uint   `json:"inquiry_id" gorm:"not null;index"`
	AuthorID  uint   `json:"author_id" gorm:"not null;index"`
	Body      string `json:"body" gorm:"type:text;not null"`

	CreatedAt time.Time `json:"created_at"`

	Author User `json:"author" gorm:"foreignKey:AuthorID"`
}

func (InquiryReply) TableName() string {
	return "inquiry_replies"
}
