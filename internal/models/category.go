package models

import (
	"database/sql"
	"time"

	"gorm.io/gorm"
)

// Category groups items for browsing
type Category struct {
	ID          string         `gorm:"type:uuid;primaryKey;column:id"`
	Name        string         `gorm:"type:text;not null;uniqueIndex;column:name"`
	Description sql.NullString `gorm:"type:text;column:description"`
	Icon        sql.NullString `gorm:"type:text;column:icon"`
	CreatedAt   time.Time      `gorm:"not null;column:created_at"`
}

// TableName specifies the table name for Category
func (Category) TableName() string {
	return "categories"
}

// BeforeCreate assigns a uuid when none is set
func (c *Category) BeforeCreate(*gorm.DB) error {
	c.ID = ensureID(c.ID)
	return nil
}
