// services/users.go
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"stampxl/models"
	"stampxl/utils"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UserService struct {
	DB  *gorm.DB
	log *zap.Logger
}

func NewUserService(db *gorm.DB, log *zap.Logger) *UserService {
	return &UserService{DB: db, log: log.Named("users")}
}

// EnsureUser creates the user on first sight of a subject, together with
// the default role and an empty board. Safe to call on every request.
func (s *UserService) EnsureUser(ctx context.Context, subject string) (*models.User, error) {
	if subject == "" {
		return nil, unauthenticated("perform this operation")
	}

	var user models.User
	err := s.DB.WithContext(ctx).First(&user, "id = ?", subject).Error
	if err == nil {
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("load user: %w", err)
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var role models.Role
		if err := tx.Where("name = ?", models.RoleUser).First(&role).Error; err != nil {
			return fmt.Errorf("user role not found: %w", err)
		}
		user = models.User{ID: subject}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&user).Error; err != nil {
			return fmt.Errorf("create user: %w", err)
		}
		link := models.UserRole{UserID: subject, RoleID: role.ID}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&link).Error; err != nil {
			return fmt.Errorf("assign default role: %w", err)
		}
		board := models.Board{UserID: subject}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&board).Error; err != nil {
			return fmt.Errorf("create board: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("user created", zap.String("user_id", subject))
	if err := s.DB.WithContext(ctx).First(&user, "id = ?", subject).Error; err != nil {
		return nil, fmt.Errorf("reload user: %w", err)
	}
	return &user, nil
}

// Me returns the actor with their roles.
func (s *UserService) Me(ctx context.Context, actor string) (*models.User, error) {
	if actor == "" {
		return nil, unauthenticated("perform this operation")
	}
	var user models.User
	err := s.DB.WithContext(ctx).Preload("Roles").First(&user, "id = ?", actor).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound("User not found.")
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	return &user, nil
}

// UpdateUsername renames the actor. Names are unique ignoring case and accents.
func (s *UserService) UpdateUsername(ctx context.Context, actor, username string) (*models.User, error) {
	if actor == "" {
		return nil, unauthenticated("perform this operation")
	}
	username = strings.TrimSpace(username)
	if !utils.ValidUsername(username) {
		return nil, badRequest("Usernames are 3 to 32 letters, digits, '_', '-' or '.'.")
	}
	key := utils.UsernameKey(username)
	taken := badRequest("That username is taken.")

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&models.User{}).
			Where("username_key = ? AND id <> ?", key, actor).
			Count(&n).Error; err != nil {
			return fmt.Errorf("check username: %w", err)
		}
		if n > 0 {
			return taken
		}
		res := tx.Model(&models.User{}).
			Where("id = ?", actor).
			Updates(map[string]interface{}{"username": username, "username_key": key})
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return taken
		}
		if res.Error != nil {
			return fmt.Errorf("update username: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return notFound("User not found.")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("username updated", zap.String("user_id", actor), zap.String("username", username))
	return s.Me(ctx, actor)
}

// HasRole reports whether userID holds the named role.
func (s *UserService) HasRole(ctx context.Context, userID, role string) (bool, error) {
	var n int64
	err := s.DB.WithContext(ctx).
		Table("user_roles").
		Joins("JOIN roles ON roles.id = user_roles.role_id").
		Where("user_roles.user_id = ? AND roles.name = ?", userID, role).
		Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("check role: %w", err)
	}
	return n > 0, nil
}

// GrantRole gives userID the named role; granting twice is a no-op.
func (s *UserService) GrantRole(ctx context.Context, userID, role string) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var r models.Role
		if err := tx.Where("name = ?", role).First(&r).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFound(fmt.Sprintf("Role %q does not exist.", role))
			}
			return err
		}
		var n int64
		if err := tx.Model(&models.User{}).Where("id = ?", userID).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return notFound("User not found.")
		}
		return tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.UserRole{UserID: userID, RoleID: r.ID}).Error
	})
}

// requireCreator fails with ErrUnauthorized unless actor holds the creator role.
func (s *UserService) requireCreator(ctx context.Context, actor string) error {
	ok, err := s.HasRole(ctx, actor, models.RoleCreator)
	if err != nil {
		return err
	}
	if !ok {
		return unauthorized("You must be a creator to perform this operation.")
	}
	return nil
}

// Roles lists every role name. Creators only.
func (s *UserService) Roles(ctx context.Context, actor string) ([]string, error) {
	if actor == "" {
		return nil, unauthenticated("perform this operation")
	}
	if err := s.requireCreator(ctx, actor); err != nil {
		return nil, err
	}
	var names []string
	if err := s.DB.WithContext(ctx).Model(&models.Role{}).Order("id").Pluck("name", &names).Error; err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	return names, nil
}

type UserSummary struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// SearchUsers finds users whose username contains query, ignoring case.
func (s *UserService) SearchUsers(ctx context.Context, actor, query string, limit int) ([]UserSummary, error) {
	if actor == "" {
		return nil, unauthenticated("perform this operation")
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	db := s.DB.WithContext(ctx).Model(&models.User{}).
		Where("username IS NOT NULL").
		Order("username").
		Limit(limit)
	if q := strings.ToLower(strings.TrimSpace(query)); q != "" {
		db = db.Where("LOWER(username) LIKE ?", "%"+q+"%")
	}

	var users []models.User
	if err := db.Find(&users).Error; err != nil {
		return nil, fmt.Errorf("search users: %w", err)
	}

	res := make([]UserSummary, 0, len(users))
	for _, u := range users {
		res = append(res, UserSummary{ID: u.ID, Username: *u.Username})
	}
	return res, nil
}
