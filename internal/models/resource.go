package models

import (
	"time"
)

type ResourceKind string

const (
	ResourceVideo     ResourceKind = "video"
	ResourceArticle   ResourceKind = "article"
	ResourceTextImage ResourceKind = "text_image"
	ResourceExercise  ResourceKind = "exercise"
)

var ResourceKinds = []ResourceKind{ResourceVideo, ResourceArticle, ResourceTextImage, ResourceExercise}

type ResourceCategory struct {
	ID          uint   `json:"id" gorm:"primaryKey"`
	Name        string `json:"name" gorm:"not null;size:100"`
	Description string `json:"description" gorm:"type:text"`
	Color       string `json:"color" gorm:"size:7;default:#6C63FF"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Resources []Resource `json:"resources,omitempty" gorm:"foreignKey:CategoryID"`
}

func (ResourceCategory) TableName() string {
	return "resource_categories"
}

// Resource is a library entry. It always carries a URL, a stored file, or both.
type Resource struct {
	ID          uint         `json:"id" gorm:"primaryKey"`
	Title       string       `json:"title" gorm:"not null;size:200"`
	Description string       `json:"description" gorm:"type:text;not null"`
	Kind        ResourceKind `json:"kind" gorm:"size:15;not null"`
	CategoryID  uint         `json:"category_id" gorm:"not null;index"`
	URL         *string      `json:"url" gorm:"size:500"`
	FileKey     *string      `json:"file_key" gorm:"size:255"`
	CoverKey    *string      `json:"cover_key" gorm:"size:255"`
	Content     string       `json:"content" gorm:"type:text"`
	IsPublic    bool         `json:"is_public" gorm:"not null;index"`
	CreatedBy   uint         `json:"created_by" gorm:"not null;index"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Category ResourceCategory `json:"category" gorm:"foreignKey:CategoryID"`
	Creator  User             `json:"creator" gorm:"foreignKey:CreatedBy"`
}

func (Resource) TableName() string {
	return "resources"
}

func (r *Resource) HasLink() bool {
	return r.URL != nil && *r.URL != ""
}

func (r *Resource) HasFile() bool {
	return r.FileKey != nil && *r.FileKey != ""
}
