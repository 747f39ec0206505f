package models

import (
	"time"
)

// Badge is a creatable pixel-art award. Units of it are claimed as UserBadge rows.
type Badge struct {
	ID          uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	CreatorID   string    `gorm:"index;not null" json:"creatorId"`
	Name        string    `gorm:"not null" json:"name"`
	Slug        string    `gorm:"index" json:"slug"`
	Description string    `gorm:"type:text" json:"description"`
	SVG         string    `gorm:"type:text" json:"svg,omitempty"`       // base64 payload, empty when stored in R2
	ImageURL    string    `gorm:"type:text" json:"imageUrl,omitempty"` // CDN URL of the uploaded SVG
	Limit       int       `gorm:"not null" json:"limit"`
	Tradeable   bool      `gorm:"not null;default:false" json:"tradeable"`
	Active      bool      `gorm:"not null;default:true" json:"active"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"createdAt"`

	Creator    *User       `gorm:"foreignKey:CreatorID" json:"creator,omitempty"`
	UserBadges []UserBadge `gorm:"foreignKey:BadgeID" json:"-"`
}

// UserBadge is one claimed, ownable unit of a Badge.
// A user holds at most one unit of any badge.
type UserBadge struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	BadgeID   uint      `gorm:"not null;uniqueIndex:idx_user_badges_badge_user" json:"badgeId"`
	UserID    string    `gorm:"not null;index;uniqueIndex:idx_user_badges_badge_user" json:"userId"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`

	Badge *Badge `gorm:"foreignKey:BadgeID" json:"badge,omitempty"`
	User  *User  `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

// ClaimToken lets whoever holds it claim one unit of a badge.
type ClaimToken struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Token     string    `gorm:"uniqueIndex;not null" json:"token"`
	BadgeID   uint      `gorm:"index;not null" json:"badgeId"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

// CreatedBadge is a creator's view of a badge with its claimed count.
type CreatedBadge struct {
	Badge
	Claimed int64 `json:"claimed"`
}
