package models

import (
	"time"

	"gorm.io/gorm"
)

type User struct {
	gorm.Model
	FirstName    string `gorm:"column:first_name;size:255;not null" json:"first_name"`
	Surname      string `gorm:"column:surname;size:255;not null" json:"surname"`
	Email        string `gorm:"column:email;size:255;not null;uniqueIndex" json:"email"`
	PasswordHash string `gorm:"column:password_hash;size:255;not null" json:"-"`
	Batch        string `gorm:"column:batch;size:20" json:"batch"`

	EmailVerified         bool      `gorm:"column:email_verified;default:false" json:"email_verified"`
	EmailVerificationCode string    `gorm:"size:6" json:"-"`
	VerificationExpiry    time.Time `gorm:"" json:"-"`

	Refresh               string    `gorm:"column:refresh_token;size:255" json:"-"`
	RefreshTokenExpiredAt time.Time `gorm:"column:refresh_token_expired_at" json:"-"`

	Roles []Role `gorm:"many2many:user_roles;" json:"roles,omitempty"`
}

// Role is a named role a user may hold (alumnus, teacher, admin, ...).
// A user holds a set of roles through the user_roles join table; the set
// carries no ordering of its own.
type Role struct {
	gorm.Model
	Name string `gorm:"column:name;size:50;not null;uniqueIndex" json:"name"`
}

func (Role) TableName() string {
	return "roles"
}
