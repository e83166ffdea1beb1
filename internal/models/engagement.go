package models

import (
	"time"

	"gorm.io/gorm"
)

// ItemLike is one member's like on an item. A member likes an item at most once.
type ItemLike struct {
	ID        string    `gorm:"type:uuid;primaryKey;column:id"`
	ItemID    string    `gorm:"type:uuid;not null;uniqueIndex:idx_item_likes_item_user;column:item_id"`
	UserID    string    `gorm:"type:uuid;not null;uniqueIndex:idx_item_likes_item_user;column:user_id"`
	CreatedAt time.Time `gorm:"not null;column:created_at"`
}

// TableName specifies the table name for ItemLike
func (ItemLike) TableName() string {
	return "item_likes"
}

// BeforeCreate assigns a uuid when none is set
func (l *ItemLike) BeforeCreate(*gorm.DB) error {
	l.ID = ensureID(l.ID)
	return nil
}

// ItemComment is a comment on an item
type ItemComment struct {
	ID        string    `gorm:"type:uuid;primaryKey;column:id"`
	ItemID    string    `gorm:"type:uuid;not null;index:idx_item_comments_item_created,priority:1;column:item_id"`
	UserID    string    `gorm:"type:uuid;not null;column:user_id"`
	Content   string    `gorm:"type:text;not null;column:content"`
	CreatedAt time.Time `gorm:"not null;index:idx_item_comments_item_created,priority:2;column:created_at"`
	UpdatedAt time.Time `gorm:"not null;column:updated_at"`
}

// TableName specifies the table name for ItemComment
func (ItemComment) TableName() string {
	return "item_comments"
}

// BeforeCreate assigns a uuid when none is set
func (c *ItemComment) BeforeCreate(*gorm.DB) error {
	c.ID = ensureID(c.ID)
	return nil
}

// All lists every model, in dependency order
func All() []interface{} {
	return []interface{}{&Category{}, &Profile{}, &Item{}, &ItemLike{}, &ItemComment{}}
}
