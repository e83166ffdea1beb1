package models

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// Item statuses
const (
	ItemStatusActive   = "active"
	ItemStatusClaimed  = "claimed"
	ItemStatusReturned = "returned"
)

// Item represents a lost or found item listing
type Item struct {
	ID               string          `gorm:"type:uuid;primaryKey;column:id"`
	UserID           string          `gorm:"type:uuid;not null;index;column:user_id"`
	Type             string          `gorm:"type:varchar(16);not null;column:type"`
	Title            string          `gorm:"type:text;not null;column:title"`
	Description      string          `gorm:"type:text;not null;column:description"`
	Location         sql.NullString  `gorm:"type:text;column:location"`
	CategoryID       sql.NullString  `gorm:"type:uuid;column:category_id"`
	DateLostFound    sql.NullTime    `gorm:"type:date;column:date_lost_found"`
	ContactEmail     sql.NullString  `gorm:"type:text;column:contact_email"`
	ContactPhone     sql.NullString  `gorm:"type:text;column:contact_phone"`
	RewardOffered    sql.NullFloat64 `gorm:"type:numeric;column:reward_offered"`
	SecurityQuestion sql.NullString  `gorm:"type:text;column:security_question"`
	SecurityAnswer   sql.NullString  `gorm:"type:text;column:security_answer"`
	ImageURLs        pq.StringArray  `gorm:"type:text[];column:image_urls"`
	Tags             pq.StringArray  `gorm:"type:text[];column:tags"`
	Status           string          `gorm:"type:varchar(16);not null;default:active;index;column:status"`
	CreatedAt        time.Time       `gorm:"not null;index;column:created_at"`
	UpdatedAt        time.Time       `gorm:"not null;column:updated_at"`

	// Relationships
	Category *Category `gorm:"foreignKey:CategoryID;references:ID"`
}

// TableName specifies the table name for Item
func (Item) TableName() string {
	return "items"
}

// BeforeCreate assigns a uuid when none is set
func (i *Item) BeforeCreate(*gorm.DB) error {
	i.ID = ensureID(i.ID)
	return nil
}

func ensureID(id string) string {
	if id == "" {
		return uuid.NewString()
	}
	return id
}
