package models

// BoardSlots is the number of positions on a board (a 12x3 grid).
const BoardSlots = 36

type Board struct {
	ID     uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID string `gorm:"uniqueIndex;not null" json:"userId"`

	BoardBadges []BoardBadge `gorm:"foreignKey:BoardID" json:"boardBadge"`
}

// BoardBadge places one owned unit at a board position.
type BoardBadge struct {
	ID          uint `gorm:"primaryKey;autoIncrement" json:"id"`
	BoardID     uint `gorm:"not null;uniqueIndex:idx_board_badges_board_position" json:"boardId"`
	Position    int  `gorm:"not null;uniqueIndex:idx_board_badges_board_position" json:"position"`
	UserBadgeID uint `gorm:"index;not null" json:"userBadgeId"`

	UserBadge *UserBadge `gorm:"foreignKey:UserBadgeID" json:"userBadge,omitempty"`
}
