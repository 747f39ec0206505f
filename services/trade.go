package services

import (
	"context"
	"errors"
	"fmt"

	"stampxl/models"
	"stampxl/repositories"

	"go.uber.org/zap"
)

// TradeEngine runs the propose / accept / reject / cancel workflow.
// Every call names the acting user explicitly and runs as one transaction.
type TradeEngine struct {
	store repositories.TradeStore
	log   *zap.Logger
}

func NewTradeEngine(store repositories.TradeStore, log *zap.Logger) *TradeEngine {
	return &TradeEngine{store: store, log: log.Named("trade")}
}

type ProposeInput struct {
	To                string `json:"to"`
	BadgeIDs          []uint `json:"badgeIds"`
	RequestedBadgeIDs []uint `json:"requestedBadgeIds"`
}

var errStale = newError(ErrStaleTrade, "This trade is no longer valid: a badge in it has changed hands.")

// Propose offers the actor's units in.BadgeIDs for the target's units in
// in.RequestedBadgeIDs. Nothing changes hands until the target accepts.
func (e *TradeEngine) Propose(ctx context.Context, actor string, in ProposeInput) (trade *models.Trade, err error) {
	defer func() { observe("propose", err) }()

	if actor == "" {
		return nil, unauthenticated("create a trade")
	}
	if len(in.BadgeIDs)+len(in.RequestedBadgeIDs) == 0 {
		return nil, badRequest("A trade must include at least one badge.")
	}
	if hasDuplicates(in.BadgeIDs, in.RequestedBadgeIDs) {
		return nil, badRequest("A badge can only appear once in a trade.")
	}

	err = e.store.Transaction(ctx, func(tx repositories.TradeTx) error {
		target, err := tx.FindUserByUsername(in.To)
		if errors.Is(err, repositories.ErrUserNotFound) {
			return unauthorized("The user you are trading with does not exist.")
		}
		if err != nil {
			return fmt.Errorf("find trade target: %w", err)
		}
		if target.ID == actor {
			return badRequest("You cannot trade with yourself.")
		}

		offered, err := tx.OwnedUserBadges(in.BadgeIDs, actor)
		if err != nil {
			return fmt.Errorf("load offered badges: %w", err)
		}
		if len(offered) != len(in.BadgeIDs) {
			return unauthorized("You must own the badges to trade it.")
		}
		requested, err := tx.OwnedUserBadges(in.RequestedBadgeIDs, target.ID)
		if err != nil {
			return fmt.Errorf("load requested badges: %w", err)
		}
		if len(requested) != len(in.RequestedBadgeIDs) {
			return unauthorized("The user you are trading with does not own the badges you are requesting.")
		}

		for _, units := range [][]models.UserBadge{offered, requested} {
			for _, ub := range units {
				if ub.Badge == nil || !ub.Badge.Tradeable {
					return badRequest(fmt.Sprintf("Badge %d cannot be traded.", ub.ID))
				}
			}
		}

		held, err := tx.HeldBadgeIDs(target.ID, badgeIDsOf(offered))
		if err != nil {
			return fmt.Errorf("check target collection: %w", err)
		}
		if len(held) > 0 {
			return badRequest("The user you are trading with already owns a badge you are offering.")
		}
		held, err = tx.HeldBadgeIDs(actor, badgeIDsOf(requested))
		if err != nil {
			return fmt.Errorf("check sender collection: %w", err)
		}
		if len(held) > 0 {
			return badRequest("You already own a badge you are requesting.")
		}

		t := &models.Trade{SenderID: actor, ReceiverID: target.ID}
		for _, id := range in.BadgeIDs {
			t.Items = append(t.Items, models.TradeItem{UserBadgeID: id, Side: models.SideSender})
		}
		for _, id := range in.RequestedBadgeIDs {
			t.Items = append(t.Items, models.TradeItem{UserBadgeID: id, Side: models.SideReceiver})
		}
		if err := tx.CreateTrade(t); err != nil {
			return fmt.Errorf("create trade: %w", err)
		}
		trade = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.log.Info("trade proposed",
		zap.Uint("trade_id", trade.ID),
		zap.String("sender", trade.SenderID),
		zap.String("receiver", trade.ReceiverID),
		zap.Int("offered", len(in.BadgeIDs)),
		zap.Int("requested", len(in.RequestedBadgeIDs)),
	)
	return trade, nil
}

// ListPending returns the pending trades the actor sent or received.
func (e *TradeEngine) ListPending(ctx context.Context, actor string) ([]models.Trade, error) {
	if actor == "" {
		return nil, unauthenticated("view trades")
	}
	return e.store.PendingTrades(ctx, actor)
}

// Accept swaps every unit in a pending trade addressed to the actor.
// Each unit must still belong to the side that put it in; otherwise the
// whole trade is refused and nothing moves.
func (e *TradeEngine) Accept(ctx context.Context, actor string, tradeID uint) (err error) {
	defer func() { observe("accept", err) }()

	if actor == "" {
		return unauthenticated("accept a trade")
	}
	denied := unauthorized("You must be the receiver of the trade to accept it.")

	var moved int
	var cleared int64
	err = e.store.Transaction(ctx, func(tx repositories.TradeTx) error {
		trade, err := tx.LockTrade(tradeID)
		if errors.Is(err, repositories.ErrTradeNotFound) {
			return denied
		}
		if err != nil {
			return fmt.Errorf("lock trade: %w", err)
		}
		if trade.ReceiverID != actor || !trade.Pending() {
			return denied
		}

		unitIDs := make([]uint, 0, len(trade.Items))
		for _, item := range trade.Items {
			unitIDs = append(unitIDs, item.UserBadgeID)
		}
		for _, item := range trade.Items {
			from, to := item.Owners(trade)
			if item.UserBadge == nil || item.UserBadge.UserID != from {
				return errStale
			}
			n, err := tx.CountUnits(to, item.UserBadge.BadgeID, unitIDs)
			if err != nil {
				return fmt.Errorf("check collection: %w", err)
			}
			if n > 0 {
				return errStale
			}
		}

		ok, err := tx.ResolveTrade(trade.ID, true)
		if err != nil {
			return fmt.Errorf("resolve trade: %w", err)
		}
		if !ok {
			return denied
		}
		for _, item := range trade.Items {
			from, to := item.Owners(trade)
			ok, err := tx.MoveUserBadge(item.UserBadgeID, from, to)
			if err != nil {
				return fmt.Errorf("move badge %d: %w", item.UserBadgeID, err)
			}
			if !ok {
				return errStale
			}
		}
		cleared, err = tx.ClearBoardPlacements(unitIDs)
		if err != nil {
			return fmt.Errorf("clear board placements: %w", err)
		}
		moved = len(unitIDs)
		return nil
	})
	if err != nil {
		return err
	}

	e.log.Info("trade accepted",
		zap.Uint("trade_id", tradeID),
		zap.String("receiver", actor),
		zap.Int("units_moved", moved),
		zap.Int64("placements_cleared", cleared),
	)
	return nil
}

// Reject closes a pending trade addressed to the actor without moving anything.
func (e *TradeEngine) Reject(ctx context.Context, actor string, tradeID uint) (err error) {
	defer func() { observe("reject", err) }()

	if actor == "" {
		return unauthenticated("reject a trade")
	}
	denied := unauthorized("You must be the receiver of the trade to reject it.")

	err = e.store.Transaction(ctx, func(tx repositories.TradeTx) error {
		trade, err := tx.LockTrade(tradeID)
		if errors.Is(err, repositories.ErrTradeNotFound) {
			return denied
		}
		if err != nil {
			return fmt.Errorf("lock trade: %w", err)
		}
		if trade.ReceiverID != actor || !trade.Pending() {
			return denied
		}
		ok, err := tx.ResolveTrade(trade.ID, false)
		if err != nil {
			return fmt.Errorf("resolve trade: %w", err)
		}
		if !ok {
			return denied
		}
		return nil
	})
	if err != nil {
		return err
	}
	e.log.Info("trade rejected", zap.Uint("trade_id", tradeID), zap.String("receiver", actor))
	return nil
}

// Cancel deletes a trade the actor sent, together with its items.
func (e *TradeEngine) Cancel(ctx context.Context, actor string, tradeID uint) (err error) {
	defer func() { observe("cancel", err) }()

	if actor == "" {
		return unauthenticated("cancel a trade")
	}
	denied := unauthorized("You must be the sender of the trade to cancel it.")

	err = e.store.Transaction(ctx, func(tx repositories.TradeTx) error {
		trade, err := tx.LockTrade(tradeID)
		if errors.Is(err, repositories.ErrTradeNotFound) {
			return denied
		}
		if err != nil {
			return fmt.Errorf("lock trade: %w", err)
		}
		if trade.SenderID != actor {
			return denied
		}
		if err := tx.DeleteTrade(trade.ID); err != nil {
			if errors.Is(err, repositories.ErrTradeNotFound) {
				return denied
			}
			return fmt.Errorf("delete trade: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	e.log.Info("trade cancelled", zap.Uint("trade_id", tradeID), zap.String("sender", actor))
	return nil
}

// SweepStale rejects pending trades that can no longer be accepted because
// a unit in them has changed hands. Staleness is checked again by the write,
// so a trade whose unit came back in between stays pending.
func (e *TradeEngine) SweepStale(ctx context.Context) (int64, error) {
	ids, err := e.store.StaleTradeIDs(ctx)
	if err != nil {
		return 0, err
	}
	n, err := e.store.RejectTrades(ctx, ids)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		e.log.Info("stale trades rejected", zap.Int64("count", n), zap.Uints("candidates", ids))
	}
	return n, nil
}

func observe(op string, err error) {
	tradeOperations.WithLabelValues(op, resultLabel(err)).Inc()
}

func hasDuplicates(lists ...[]uint) bool {
	seen := make(map[uint]struct{})
	for _, list := range lists {
		for _, id := range list {
			if _, ok := seen[id]; ok {
				return true
			}
			seen[id] = struct{}{}
		}
	}
	return false
}

func badgeIDsOf(units []models.UserBadge) []uint {
	ids := make([]uint, 0, len(units))
	for _, ub := range units {
		ids = append(ids, ub.BadgeID)
	}
	return ids
}
