package models

import (
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// All lists every table, in migration order.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Role{},
		&UserRole{},
		&Badge{},
		&UserBadge{},
		&ClaimToken{},
		&Trade{},
		&TradeItem{},
		&Board{},
		&BoardBadge{},
	}
}

// Migrate brings the schema up to date and makes sure the default roles exist.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(All()...); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	for _, r := range DefaultRoles {
		role := Role{Name: r.Name}
		if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&role).Error; err != nil {
			return fmt.Errorf("failed to seed role %q: %w", r.Name, err)
		}
	}
	return nil
}
