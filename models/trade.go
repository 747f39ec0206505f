package models

import (
	"time"
)

// TradeSide records which party put a unit into the trade.
type TradeSide string

const (
	SideSender   TradeSide = "sender"
	SideReceiver TradeSide = "receiver"
)

// Trade is a proposed exchange of badge units between two users.
// Accepted is nil while pending, true once accepted, false once rejected.
type Trade struct {
	ID         uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	SenderID   string    `gorm:"index;not null" json:"senderId"`
	ReceiverID string    `gorm:"index;not null" json:"receiverId"`
	Accepted   *bool     `gorm:"index" json:"accepted"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updatedAt"`

	Sender   *User       `gorm:"foreignKey:SenderID" json:"sender,omitempty"`
	Receiver *User       `gorm:"foreignKey:ReceiverID" json:"receiver,omitempty"`
	Items    []TradeItem `gorm:"foreignKey:TradeID" json:"tradeItem"`
}

func (t *Trade) Pending() bool { return t.Accepted == nil }

// TradeItem is one badge unit's participation in a trade.
type TradeItem struct {
	ID          uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	TradeID     uint      `gorm:"index;not null" json:"tradeId"`
	UserBadgeID uint      `gorm:"index;not null" json:"userBadgeId"`
	Side        TradeSide `gorm:"type:varchar(16);not null" json:"side"`

	UserBadge *UserBadge `gorm:"foreignKey:UserBadgeID" json:"userBadge,omitempty"`
}

// Owners returns the user expected to hold the item's unit while the trade
// is pending, and the user who receives it on acceptance.
func (i TradeItem) Owners(t *Trade) (from, to string) {
	if i.Side == SideSender {
		return t.SenderID, t.ReceiverID
	}
	return t.ReceiverID, t.SenderID
}
