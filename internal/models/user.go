package models

import (
	"strings"
	"time"
)

type Role string

const (
	RoleAdmin   Role = "admin"
	RoleIntern  Role = "intern"
	RolePatient Role = "patient"
)

// StaffRoles are the roles allowed to moderate and author clinical content.
var StaffRoles = []Role{RoleAdmin, RoleIntern}

// In reports whether r satisfies any of the required roles. This is the single
// capability check used by route middleware and services alike.
func (r Role) In(required ...Role) bool {
	for _, want := range required {
		if r == want {
			return true
		}
	}
	return false
}

func (r Role) IsStaff() bool {
	return r.In(StaffRoles...)
}

func (r Role) Valid() bool {
	return r.In(RoleAdmin, RoleIntern, RolePatient)
}

func (r Role) Label() string {
	switch r {
	case RoleAdmin:
		return "Administrador"
	case RoleIntern:
		return "Pasante"
	default:
		return "Paciente"
	}
}

type User struct {
	ID           uint       `json:"id" gorm:"primaryKey"`
	Username     string     `json:"username" gorm:"uniqueIndex;not null;size:150"`
	Email        string     `json:"email" gorm:"uniqueIndex;not null;size:255"`
	FirstName    string     `json:"first_name" gorm:"size:150"`
	LastName     string     `json:"last_name" gorm:"size:150"`
	PasswordHash []byte     `json:"-"`
	IsActive     bool       `json:"is_active" gorm:"default:true"`
	LastLoginAt  *time.Time `json:"last_login_at"`
	// ExternalID links the account to its single sign-on directory entry.
	ExternalID   *string    `json:"-" gorm:"uniqueIndex;size:100"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Profile Profile `json:"profile" gorm:"foreignKey:UserID"`
}

func (User) TableName() string {
	return "users"
}

// FullName falls back to the username when no names are set.
func (u *User) FullName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Username
	}
	return name
}

func (u *User) Role() Role {
	return u.Profile.Role
}

// Profile is the one-to-one extension of User carrying the role tag.
type Profile struct {
	ID        uint       `json:"id" gorm:"primaryKey"`
	UserID    uint       `json:"user_id" gorm:"uniqueIndex;not null"`
	Role      Role       `json:"role" gorm:"size:10;not null;default:patient;index"`
	Phone     *string    `json:"phone" gorm:"size:15"`
	BirthDate *time.Time `json:"birth_date"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Profile) TableName() string {
	return "profiles"
}

// UserStats is shown on the "my profile" page.
type UserStats struct {
	TotalInquiries    int64 `json:"total_inquiries"`
	AnsweredInquiries int64 `json:"answered_inquiries"`
	ThreadsCreated    int64 `json:"threads_created"`
	RepliesCreated    int64 `json:"replies_created"`
}
