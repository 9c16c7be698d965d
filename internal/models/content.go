package models

import (
	"time"
)

type ContentKind string

const (
	ContentVideo       ContentKind = "video"
	ContentInfographic ContentKind = "infographic"
	ContentArticle     ContentKind = "article"
	ContentExercise    ContentKind = "exercise"
)

var ContentKinds = []ContentKind{ContentVideo, ContentInfographic, ContentArticle, ContentExercise}

// PersonalizedContent is authored by staff for exactly one patient.
type PersonalizedContent struct {
	ID          uint        `json:"id" gorm:"primaryKey"`
	AuthorID    uint        `json:"author_id" gorm:"not null;index"`
	PatientID   uint        `json:"patient_id" gorm:"not null;index"`
	Title       string      `json:"title" gorm:"not null;size:200"`
	Description string      `json:"description" gorm:"type:text"`
	Kind        ContentKind `json:"kind" gorm:"size:20;not null"`
	URL         *string     `json:"url" gorm:"size:500"`
	FileKey     *string     `json:"file_key" gorm:"size:255;index"`

	CreatedAt time.Time `json:"created_at" gorm:"index"`

	Author  User `json:"author" gorm:"foreignKey:AuthorID"`
	Patient User `json:"patient" gorm:"foreignKey:PatientID"`
}

func (PersonalizedContent) TableName() string {
	return "personalized_contents"
}
