package models

import (
	"database/sql"
	"time"

	"gorm.io/gorm"
)

// Profile holds a member's public and contact details. UserID is the
// identity issued by the auth service.
type Profile struct {
	ID        string         `gorm:"type:uuid;primaryKey;column:id"`
	UserID    string         `gorm:"type:uuid;not null;uniqueIndex;column:user_id"`
	FullName  sql.NullString `gorm:"type:text;column:full_name"`
	AvatarURL sql.NullString `gorm:"type:text;column:avatar_url"`
	Email     sql.NullString `gorm:"type:text;column:email"`
	Phone     sql.NullString `gorm:"type:text;column:phone"`
	IsAdmin   bool           `gorm:"not null;default:false;column:is_admin"`
	CreatedAt time.Time      `gorm:"not null;column:created_at"`
	UpdatedAt time.Time      `gorm:"not null;column:updated_at"`
}

// TableName specifies the table name for Profile
func (Profile) TableName() string {
	return "profiles"
}

// BeforeCreate assigns a uuid when none is set
func (p *Profile) BeforeCreate(*gorm.DB) error {
	p.ID = ensureID(p.ID)
	return nil
}
