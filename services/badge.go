package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"stampxl/models"
	"stampxl/utils"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type BadgeService struct {
	DB      *gorm.DB
	users   *UserService
	images  utils.ImageStore  // nil keeps images inline
	limiter utils.RateLimiter // nil disables claim rate limiting
	log     *zap.Logger
}

func NewBadgeService(db *gorm.DB, users *UserService, images utils.ImageStore, limiter utils.RateLimiter, log *zap.Logger) *BadgeService {
	return &BadgeService{DB: db, users: users, images: images, limiter: limiter, log: log.Named("badges")}
}

type BadgeInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	SVG         string `json:"svg"`
	Limit       int    `json:"limit"`
	Tradeable   bool   `json:"tradeable"`
}

func (in *BadgeInput) validate() ([]byte, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" || utf8.RuneCountInString(in.Name) > 64 {
		return nil, badRequest("Badge names are 1 to 64 characters.")
	}
	if utf8.RuneCountInString(in.Description) > 512 {
		return nil, badRequest("Badge descriptions are at most 512 characters.")
	}
	if in.Limit <= 0 {
		return nil, badRequest("The claim limit must be a positive number.")
	}
	raw, err := utils.DecodeSVG(in.SVG)
	if err != nil {
		return nil, badRequest("The badge image must be a base64 encoded SVG.")
	}
	return raw, nil
}

var notCreatorOfBadge = unauthorized("You must be the creator of the badge to perform this operation.")

// Create adds a badge owned by the actor. Creators only.
func (s *BadgeService) Create(ctx context.Context, actor string, in BadgeInput) (*models.Badge, error) {
	if actor == "" {
		return nil, unauthenticated("create a badge")
	}
	if err := s.users.requireCreator(ctx, actor); err != nil {
		return nil, err
	}
	raw, err := in.validate()
	if err != nil {
		return nil, err
	}

	badge := models.Badge{
		CreatorID:   actor,
		Name:        in.Name,
		Slug:        slug.Make(in.Name),
		Description: in.Description,
		Limit:       in.Limit,
		Tradeable:   in.Tradeable,
		Active:      true,
	}
	if err := s.attachImage(ctx, &badge, in.SVG, raw); err != nil {
		return nil, err
	}
	if err := s.DB.WithContext(ctx).Create(&badge).Error; err != nil {
		return nil, fmt.Errorf("create badge: %w", err)
	}

	s.log.Info("badge created", zap.Uint("badge_id", badge.ID), zap.String("creator", actor), zap.Int("limit", badge.Limit))
	return &badge, nil
}

func (s *BadgeService) attachImage(ctx context.Context, badge *models.Badge, payload string, raw []byte) error {
	if s.images == nil {
		badge.SVG = payload
		badge.ImageURL = ""
		return nil
	}
	url, err := s.images.PutSVG(ctx, utils.BadgeImageKey(badge.Slug), raw)
	if err != nil {
		return fmt.Errorf("upload badge image: %w", err)
	}
	badge.SVG = ""
	badge.ImageURL = url
	return nil
}

// Update edits a badge nobody has claimed yet.
func (s *BadgeService) Update(ctx context.Context, actor string, id uint, in BadgeInput) (*models.Badge, error) {
	if actor == "" {
		return nil, unauthenticated("perform this operation")
	}
	raw, err := in.validate()
	if err != nil {
		return nil, err
	}

	db := s.DB.WithContext(ctx)
	var badge models.Badge
	if err := findOwnedBadge(db, actor, id, &badge); err != nil {
		return nil, err
	}
	if err := ensureUnclaimed(db, badge.ID, "changed"); err != nil {
		return nil, err
	}

	// The image goes up before the row lock is taken; the checks repeat under it.
	image := models.Badge{Slug: slug.Make(in.Name)}
	if err := s.attachImage(ctx, &image, in.SVG, raw); err != nil {
		return nil, err
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := lockOwnedBadge(tx, actor, id, &badge); err != nil {
			return err
		}
		if err := ensureUnclaimed(tx, badge.ID, "changed"); err != nil {
			return err
		}
		badge.Name = in.Name
		badge.Slug = image.Slug
		badge.Description = in.Description
		badge.Limit = in.Limit
		badge.Tradeable = in.Tradeable
		badge.SVG = image.SVG
		badge.ImageURL = image.ImageURL
		return tx.Save(&badge).Error
	})
	if err != nil {
		return nil, err
	}
	return &badge, nil
}

// ListCreated returns the actor's badges with how many units were claimed.
func (s *BadgeService) ListCreated(ctx context.Context, actor string) ([]models.CreatedBadge, error) {
	if actor == "" {
		return nil, unauthenticated("perform this operation")
	}
	if err := s.users.requireCreator(ctx, actor); err != nil {
		return nil, err
	}

	var badges []models.Badge
	if err := s.DB.WithContext(ctx).Where("creator_id = ?", actor).Order("id").Find(&badges).Error; err != nil {
		return nil, fmt.Errorf("list badges: %w", err)
	}
	ids := make([]uint, 0, len(badges))
	for _, b := range badges {
		ids = append(ids, b.ID)
	}

	var rows []struct {
		BadgeID uint
		N       int64
	}
	if len(ids) > 0 {
		if err := s.DB.WithContext(ctx).Model(&models.UserBadge{}).
			Select("badge_id, COUNT(*) AS n").
			Where("badge_id IN ?", ids).
			Group("badge_id").
			Scan(&rows).Error; err != nil {
			return nil, fmt.Errorf("count claims: %w", err)
		}
	}
	claimed := make(map[uint]int64, len(rows))
	for _, r := range rows {
		claimed[r.BadgeID] = r.N
	}

	out := make([]models.CreatedBadge, 0, len(badges))
	for _, b := range badges {
		out = append(out, models.CreatedBadge{Badge: b, Claimed: claimed[b.ID]})
	}
	return out, nil
}

// Disable stops further claims of a badge.
func (s *BadgeService) Disable(ctx context.Context, actor string, id uint) error {
	if actor == "" {
		return unauthenticated("perform this operation")
	}
	res := s.DB.WithContext(ctx).Model(&models.Badge{}).
		Where("id = ? AND creator_id = ?", id, actor).
		Update("active", false)
	if res.Error != nil {
		return fmt.Errorf("disable badge: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return notCreatorOfBadge
	}
	return nil
}

// Delete removes a badge nobody has claimed, along with its claim tokens.
func (s *BadgeService) Delete(ctx context.Context, actor string, id uint) error {
	if actor == "" {
		return unauthenticated("perform this operation")
	}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var badge models.Badge
		if err := lockOwnedBadge(tx, actor, id, &badge); err != nil {
			return err
		}
		if err := ensureUnclaimed(tx, badge.ID, "deleted"); err != nil {
			return err
		}
		if err := tx.Where("badge_id = ?", badge.ID).Delete(&models.ClaimToken{}).Error; err != nil {
			return fmt.Errorf("delete claim tokens: %w", err)
		}
		return tx.Delete(&badge).Error
	})
	if err != nil {
		return err
	}
	s.log.Info("badge deleted", zap.Uint("badge_id", id), zap.String("creator", actor))
	return nil
}

// GenerateClaimToken issues a new token that claims one unit of the badge.
func (s *BadgeService) GenerateClaimToken(ctx context.Context, actor string, id uint) (string, error) {
	if actor == "" {
		return "", unauthenticated("perform this operation")
	}
	var n int64
	if err := s.DB.WithContext(ctx).Model(&models.Badge{}).
		Where("id = ? AND creator_id = ?", id, actor).
		Count(&n).Error; err != nil {
		return "", fmt.Errorf("load badge: %w", err)
	}
	if n == 0 {
		return "", notCreatorOfBadge
	}

	token := models.ClaimToken{Token: uuid.NewString(), BadgeID: id}
	if err := s.DB.WithContext(ctx).Create(&token).Error; err != nil {
		return "", fmt.Errorf("create claim token: %w", err)
	}
	return token.Token, nil
}

// Claim gives the actor one unit of the badge behind token.
func (s *BadgeService) Claim(ctx context.Context, actor, token string) (unit *models.UserBadge, err error) {
	defer func() { badgeClaims.WithLabelValues(resultLabel(err)).Inc() }()

	if actor == "" {
		return nil, unauthenticated("perform this operation")
	}
	if s.limiter != nil {
		allowed, err := s.limiter.Allow(ctx, "claim:"+actor)
		if err != nil {
			s.log.Warn("claim rate limiter unavailable", zap.Error(err))
		} else if !allowed {
			return nil, newError(ErrTooManyRequests, "Too many claim attempts. Try again later.")
		}
	}

	invalid := notFound("Invalid token.")
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ct models.ClaimToken
		if err := tx.Where("token = ?", strings.TrimSpace(token)).First(&ct).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return invalid
			}
			return fmt.Errorf("load claim token: %w", err)
		}

		var badge models.Badge
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ? AND active = ?", ct.BadgeID, true).
			First(&badge).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return invalid
			}
			return fmt.Errorf("load badge: %w", err)
		}

		var claimed int64
		if err := tx.Model(&models.UserBadge{}).Where("badge_id = ?", badge.ID).Count(&claimed).Error; err != nil {
			return fmt.Errorf("count claims: %w", err)
		}
		if claimed >= int64(badge.Limit) {
			return invalid
		}

		var mine int64
		if err := tx.Model(&models.UserBadge{}).
			Where("badge_id = ? AND user_id = ?", badge.ID, actor).
			Count(&mine).Error; err != nil {
			return fmt.Errorf("check claim: %w", err)
		}
		if mine > 0 {
			return badRequest("You have already claimed this badge.")
		}

		ub := models.UserBadge{BadgeID: badge.ID, UserID: actor}
		if err := tx.Create(&ub).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return badRequest("You have already claimed this badge.")
			}
			return fmt.Errorf("create user badge: %w", err)
		}
		ub.Badge = &badge
		unit = &ub
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("badge claimed", zap.Uint("badge_id", unit.BadgeID), zap.Uint("user_badge_id", unit.ID), zap.String("user_id", actor))
	return unit, nil
}

// Owned lists the units held by a user, looked up by id or by username.
func (s *BadgeService) Owned(ctx context.Context, actor, userID, username string) ([]models.UserBadge, error) {
	if actor == "" {
		return nil, unauthenticated("perform this operation")
	}
	if (userID == "") == (username == "") {
		return nil, badRequest("Provide either a user id or a username.")
	}

	db := s.DB.WithContext(ctx).Preload("Badge").Order("user_badges.id")
	if userID != "" {
		db = db.Where("user_id = ?", userID)
	} else {
		db = db.Where("user_id IN (?)", s.DB.Model(&models.User{}).Select("id").Where("username = ?", username))
	}

	var units []models.UserBadge
	if err := db.Find(&units).Error; err != nil {
		return nil, fmt.Errorf("list owned badges: %w", err)
	}
	return units, nil
}

func lockOwnedBadge(tx *gorm.DB, actor string, id uint, badge *models.Badge) error {
	return findOwnedBadge(tx.Clauses(clause.Locking{Strength: "UPDATE"}), actor, id, badge)
}

func findOwnedBadge(db *gorm.DB, actor string, id uint, badge *models.Badge) error {
	err := db.Where("id = ? AND creator_id = ?", id, actor).First(badge).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notCreatorOfBadge
	}
	if err != nil {
		return fmt.Errorf("load badge: %w", err)
	}
	return nil
}

func ensureUnclaimed(tx *gorm.DB, badgeID uint, verb string) error {
	var n int64
	if err := tx.Model(&models.UserBadge{}).Where("badge_id = ?", badgeID).Count(&n).Error; err != nil {
		return fmt.Errorf("count claims: %w", err)
	}
	if n > 0 {
		return badRequest("A badge cannot be " + verb + " once it has been claimed.")
	}
	return nil
}
