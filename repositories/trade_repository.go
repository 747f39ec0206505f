package repositories

import (
	"context"
	"errors"
	"fmt"

	"stampxl/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrUserNotFound  = errors.New("user not found")
	ErrTradeNotFound = errors.New("trade not found")
)

// TradeStore is the persistence the trade engine runs against.
type TradeStore interface {
	// Transaction runs fn atomically; any error returned by fn rolls back.
	Transaction(ctx context.Context, fn func(tx TradeTx) error) error
	PendingTrades(ctx context.Context, userID string) ([]models.Trade, error)
	StaleTradeIDs(ctx context.Context) ([]uint, error)
	RejectTrades(ctx context.Context, ids []uint) (int64, error)
}

// TradeTx is the set of reads and writes available inside one transaction.
type TradeTx interface {
	FindUserByUsername(username string) (*models.User, error)
	// OwnedUserBadges returns the units among ids held by ownerID, with their badge.
	OwnedUserBadges(ids []uint, ownerID string) ([]models.UserBadge, error)
	// HeldBadgeIDs returns which of badgeIDs ownerID holds a unit of.
	HeldBadgeIDs(ownerID string, badgeIDs []uint) ([]uint, error)
	// CountUnits counts ownerID's units of badgeID, ignoring the units in exclude.
	CountUnits(ownerID string, badgeID uint, exclude []uint) (int64, error)
	CreateTrade(trade *models.Trade) error
	// LockTrade loads a trade with its items and their units, holding a row lock on the trade.
	LockTrade(id uint) (*models.Trade, error)
	// ResolveTrade sets the outcome of a pending trade; false when it was not pending.
	ResolveTrade(id uint, accepted bool) (bool, error)
	// MoveUserBadge reassigns a unit only if from still owns it.
	MoveUserBadge(id uint, from, to string) (bool, error)
	ClearBoardPlacements(userBadgeIDs []uint) (int64, error)
	DeleteTrade(id uint) error
}

type TradeRepository struct {
	DB *gorm.DB
}

func NewTradeRepository(db *gorm.DB) *TradeRepository {
	return &TradeRepository{DB: db}
}

func (r *TradeRepository) Transaction(ctx context.Context, fn func(tx TradeTx) error) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&tradeTx{db: tx})
	})
}

func (r *TradeRepository) PendingTrades(ctx context.Context, userID string) ([]models.Trade, error) {
	var trades []models.Trade
	err := r.DB.WithContext(ctx).
		Preload("Sender").
		Preload("Receiver").
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("trade_items.id") }).
		Preload("Items.UserBadge").
		Preload("Items.UserBadge.Badge").
		Where("accepted IS NULL").
		Where("sender_id = ? OR receiver_id = ?", userID, userID).
		Order("created_at, id").
		Find(&trades).Error
	if err != nil {
		return nil, fmt.Errorf("list pending trades: %w", err)
	}
	return trades, nil
}

// staleTrade matches a trades row holding at least one unit that has left
// the side which put it in, or no longer exists.
const staleTrade = `EXISTS (
	SELECT 1 FROM trade_items
	LEFT JOIN user_badges ON user_badges.id = trade_items.user_badge_id
	WHERE trade_items.trade_id = trades.id AND (
		user_badges.id IS NULL
		OR (trade_items.side = ? AND user_badges.user_id <> trades.sender_id)
		OR (trade_items.side = ? AND user_badges.user_id <> trades.receiver_id)
	)
)`

// StaleTradeIDs finds pending trades that can no longer be accepted.
func (r *TradeRepository) StaleTradeIDs(ctx context.Context) ([]uint, error) {
	var ids []uint
	err := r.DB.WithContext(ctx).
		Model(&models.Trade{}).
		Where("trades.accepted IS NULL").
		Where(staleTrade, models.SideSender, models.SideReceiver).
		Order("trades.id").
		Pluck("trades.id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("find stale trades: %w", err)
	}
	return ids, nil
}

// RejectTrades rejects those of ids that are still pending and still stale.
func (r *TradeRepository) RejectTrades(ctx context.Context, ids []uint) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := r.DB.WithContext(ctx).
		Model(&models.Trade{}).
		Where("trades.id IN ? AND trades.accepted IS NULL", ids).
		Where(staleTrade, models.SideSender, models.SideReceiver).
		Update("accepted", false)
	if res.Error != nil {
		return 0, fmt.Errorf("reject trades: %w", res.Error)
	}
	return res.RowsAffected, nil
}

type tradeTx struct {
	db *gorm.DB
}

func (t *tradeTx) FindUserByUsername(username string) (*models.User, error) {
	var user models.User
	err := t.db.Where("username = ?", username).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (t *tradeTx) OwnedUserBadges(ids []uint, ownerID string) ([]models.UserBadge, error) {
	var units []models.UserBadge
	if len(ids) == 0 {
		return units, nil
	}
	err := t.db.Preload("Badge").
		Where("id IN ? AND user_id = ?", ids, ownerID).
		Find(&units).Error
	return units, err
}

func (t *tradeTx) HeldBadgeIDs(ownerID string, badgeIDs []uint) ([]uint, error) {
	var held []uint
	if len(badgeIDs) == 0 {
		return held, nil
	}
	err := t.db.Model(&models.UserBadge{}).
		Where("user_id = ? AND badge_id IN ?", ownerID, badgeIDs).
		Pluck("badge_id", &held).Error
	return held, err
}

func (t *tradeTx) CountUnits(ownerID string, badgeID uint, exclude []uint) (int64, error) {
	q := t.db.Model(&models.UserBadge{}).Where("user_id = ? AND badge_id = ?", ownerID, badgeID)
	if len(exclude) > 0 {
		q = q.Where("id NOT IN ?", exclude)
	}
	var n int64
	err := q.Count(&n).Error
	return n, err
}

func (t *tradeTx) CreateTrade(trade *models.Trade) error {
	return t.db.Create(trade).Error
}

func (t *tradeTx) LockTrade(id uint) (*models.Trade, error) {
	var trade models.Trade
	err := t.db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&trade, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTradeNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := t.db.Preload("UserBadge").
		Where("trade_id = ?", id).
		Order("id").
		Find(&trade.Items).Error; err != nil {
		return nil, err
	}
	return &trade, nil
}

func (t *tradeTx) ResolveTrade(id uint, accepted bool) (bool, error) {
	res := t.db.Model(&models.Trade{}).
		Where("id = ? AND accepted IS NULL", id).
		Update("accepted", accepted)
	return res.RowsAffected == 1, res.Error
}

func (t *tradeTx) MoveUserBadge(id uint, from, to string) (bool, error) {
	res := t.db.Model(&models.UserBadge{}).
		Where("id = ? AND user_id = ?", id, from).
		Update("user_id", to)
	return res.RowsAffected == 1, res.Error
}

func (t *tradeTx) ClearBoardPlacements(userBadgeIDs []uint) (int64, error) {
	if len(userBadgeIDs) == 0 {
		return 0, nil
	}
	res := t.db.Where("user_badge_id IN ?", userBadgeIDs).Delete(&models.BoardBadge{})
	return res.RowsAffected, res.Error
}

func (t *tradeTx) DeleteTrade(id uint) error {
	if err := t.db.Where("trade_id = ?", id).Delete(&models.TradeItem{}).Error; err != nil {
		return err
	}
	res := t.db.Delete(&models.Trade{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrTradeNotFound
	}
	return nil
}
