package services

import (
	"context"
	"errors"
	"fmt"

	"stampxl/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type BoardService struct {
	DB  *gorm.DB
	log *zap.Logger
}

func NewBoardService(db *gorm.DB, log *zap.Logger) *BoardService {
	return &BoardService{DB: db, log: log.Named("boards")}
}

// Get returns the actor's board with every placed unit and its badge.
func (s *BoardService) Get(ctx context.Context, actor string) (*models.Board, error) {
	if actor == "" {
		return nil, unauthenticated("perform this operation")
	}
	var board models.Board
	err := s.DB.WithContext(ctx).
		Preload("BoardBadges", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).
		Preload("BoardBadges.UserBadge").
		Preload("BoardBadges.UserBadge.Badge").
		Where("user_id = ?", actor).
		First(&board).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound("Board not found.")
	}
	if err != nil {
		return nil, fmt.Errorf("load board: %w", err)
	}
	return &board, nil
}

// Save replaces the placements of board id. slots[i] is the unit shown at
// position i; nil leaves the position empty. Units the actor does not own
// are dropped and a unit placed twice keeps its first position.
func (s *BoardService) Save(ctx context.Context, actor string, id uint, slots []*uint) (*models.Board, error) {
	if actor == "" {
		return nil, unauthenticated("perform this operation")
	}
	if len(slots) > models.BoardSlots {
		return nil, badRequest(fmt.Sprintf("A board has at most %d slots.", models.BoardSlots))
	}

	wanted := make([]uint, 0, len(slots))
	for _, ub := range slots {
		if ub != nil {
			wanted = append(wanted, *ub)
		}
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var board models.Board
		if err := tx.Where("id = ? AND user_id = ?", id, actor).First(&board).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFound("Board not found.")
			}
			return fmt.Errorf("load board: %w", err)
		}

		owned := map[uint]bool{}
		if len(wanted) > 0 {
			var ids []uint
			if err := tx.Model(&models.UserBadge{}).
				Where("id IN ? AND user_id = ?", wanted, actor).
				Pluck("id", &ids).Error; err != nil {
				return fmt.Errorf("load owned badges: %w", err)
			}
			for _, ubID := range ids {
				owned[ubID] = true
			}
		}

		if err := tx.Where("board_id = ?", board.ID).Delete(&models.BoardBadge{}).Error; err != nil {
			return fmt.Errorf("clear board: %w", err)
		}

		placements := make([]models.BoardBadge, 0, len(wanted))
		placed := map[uint]bool{}
		for pos, ub := range slots {
			if ub == nil || !owned[*ub] || placed[*ub] {
				continue
			}
			placed[*ub] = true
			placements = append(placements, models.BoardBadge{BoardID: board.ID, Position: pos, UserBadgeID: *ub})
		}
		if len(placements) == 0 {
			return nil
		}
		if err := tx.Create(&placements).Error; err != nil {
			return fmt.Errorf("save board: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Debug("board saved", zap.Uint("board_id", id), zap.String("user_id", actor))
	return s.Get(ctx, actor)
}
