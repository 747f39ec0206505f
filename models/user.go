package models

import (
	"time"
)

const (
	RoleUser    = "user"
	RoleCreator = "creator"
)

// User is keyed by the subject the identity provider issues.
// Username is optional until the user picks one; UsernameKey is its
// folded form and carries the uniqueness constraint.
type User struct {
	ID          string    `gorm:"primaryKey" json:"id"`
	Username    *string   `gorm:"uniqueIndex" json:"username"`
	UsernameKey *string   `gorm:"uniqueIndex" json:"-"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updatedAt"`

	Roles []Role `gorm:"many2many:user_roles" json:"roles,omitempty"`
}

type Role struct {
	ID   uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Name string `gorm:"uniqueIndex;not null" json:"name"`
}

// UserRole is the join row behind User.Roles.
type UserRole struct {
	UserID string `gorm:"primaryKey"`
	RoleID uint   `gorm:"primaryKey"`
}

// DefaultRoles are seeded by migrate.
var DefaultRoles = []Role{
	{Name: RoleUser},
	{Name: RoleCreator},
}
