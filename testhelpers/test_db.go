package testhelpers

import (
	"fmt"
	"strings"
	"testing"

	"stampxl/models"
	"stampxl/utils"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	openSQLite = func(dsn string) (*gorm.DB, error) {
		return gorm.Open(sqlite.Open(dsn), &gorm.Config{
			TranslateError: true,
			Logger:         logger.Default.LogMode(logger.Silent),
		})
	}
	migrateSchema = models.Migrate
)

// SetupTestDB creates an isolated in-memory SQLite database with the schema
// migrated and the default roles seeded.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := openSQLite(dsn)
	if err != nil {
		panic(fmt.Sprintf("failed to open test database: %v", err))
	}
	if err := migrateSchema(db); err != nil {
		panic(fmt.Sprintf("failed to migrate test database: %v", err))
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// CreateUser inserts a user with a username, a board and the given roles
// (the "user" role is always added).
func CreateUser(t *testing.T, db *gorm.DB, id, username string, roles ...string) *models.User {
	t.Helper()

	key := utils.UsernameKey(username)
	user := models.User{ID: id, Username: &username, UsernameKey: &key}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("create user %s: %v", id, err)
	}
	for _, name := range append([]string{models.RoleUser}, roles...) {
		var role models.Role
		if err := db.Where("name = ?", name).First(&role).Error; err != nil {
			t.Fatalf("load role %s: %v", name, err)
		}
		if err := db.Create(&models.UserRole{UserID: id, RoleID: role.ID}).Error; err != nil {
			t.Fatalf("grant role %s: %v", name, err)
		}
	}
	if err := db.Create(&models.Board{UserID: id}).Error; err != nil {
		t.Fatalf("create board for %s: %v", id, err)
	}
	return &user
}

// CreateBadge inserts an active badge owned by creatorID.
func CreateBadge(t *testing.T, db *gorm.DB, creatorID, name string, limit int, tradeable bool) *models.Badge {
	t.Helper()

	badge := models.Badge{
		CreatorID: creatorID,
		Name:      name,
		Slug:      strings.ToLower(name),
		SVG:       "PHN2Zz48L3N2Zz4=",
		Limit:     limit,
		Tradeable: tradeable,
		Active:    true,
	}
	if err := db.Create(&badge).Error; err != nil {
		t.Fatalf("create badge %s: %v", name, err)
	}
	return &badge
}

// GiveUnit hands userID one unit of badgeID.
func GiveUnit(t *testing.T, db *gorm.DB, badgeID uint, userID string) *models.UserBadge {
	t.Helper()

	unit := models.UserBadge{BadgeID: badgeID, UserID: userID}
	if err := db.Create(&unit).Error; err != nil {
		t.Fatalf("give badge %d to %s: %v", badgeID, userID, err)
	}
	return &unit
}

// OwnerOf returns the current owner of a unit.
func OwnerOf(t *testing.T, db *gorm.DB, userBadgeID uint) string {
	t.Helper()

	var unit models.UserBadge
	if err := db.First(&unit, userBadgeID).Error; err != nil {
		t.Fatalf("load user badge %d: %v", userBadgeID, err)
	}
	return unit.UserID
}
