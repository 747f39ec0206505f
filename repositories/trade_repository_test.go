package repositories

import (
	"context"
	"errors"
	"testing"

	"stampxl/models"
	"stampxl/testhelpers"

	"github.com/stretchr/testify/require"
)

func TestTransactionRollsBackOnError(t *testing.T) {
	db := testhelpers.SetupTestDB(t)
	repo := NewTradeRepository(db)
	testhelpers.CreateUser(t, db, "a", "alice")
	testhelpers.CreateUser(t, db, "b", "bob")

	boom := errors.New("boom")
	err := repo.Transaction(context.Background(), func(tx TradeTx) error {
		require.NoError(t, tx.CreateTrade(&models.Trade{SenderID: "a", ReceiverID: "b"}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	var n int64
	require.NoError(t, db.Model(&models.Trade{}).Count(&n).Error)
	require.Zero(t, n)
}

func TestTradeTxReads(t *testing.T) {
	db := testhelpers.SetupTestDB(t)
	repo := NewTradeRepository(db)
	testhelpers.CreateUser(t, db, "a", "alice")
	testhelpers.CreateUser(t, db, "b", "bob")
	star := testhelpers.CreateBadge(t, db, "a", "Star", 5, true)
	moon := testhelpers.CreateBadge(t, db, "a", "Moon", 5, true)
	aStar := testhelpers.GiveUnit(t, db, star.ID, "a")
	bStar := testhelpers.GiveUnit(t, db, star.ID, "b")
	bMoon := testhelpers.GiveUnit(t, db, moon.ID, "b")

	err := repo.Transaction(context.Background(), func(tx TradeTx) error {
		user, err := tx.FindUserByUsername("bob")
		require.NoError(t, err)
		require.Equal(t, "b", user.ID)
		_, err = tx.FindUserByUsername("nobody")
		require.ErrorIs(t, err, ErrUserNotFound)

		owned, err := tx.OwnedUserBadges([]uint{aStar.ID, bStar.ID}, "a")
		require.NoError(t, err)
		require.Len(t, owned, 1)
		require.Equal(t, "Star", owned[0].Badge.Name)

		owned, err = tx.OwnedUserBadges(nil, "a")
		require.NoError(t, err)
		require.Empty(t, owned)

		held, err := tx.HeldBadgeIDs("b", []uint{star.ID, moon.ID})
		require.NoError(t, err)
		require.ElementsMatch(t, []uint{star.ID, moon.ID}, held)

		n, err := tx.CountUnits("b", star.ID, nil)
		require.NoError(t, err)
		require.Equal(t, int64(1), n)
		n, err = tx.CountUnits("b", star.ID, []uint{bStar.ID, bMoon.ID})
		require.NoError(t, err)
		require.Zero(t, n)
		return nil
	})
	require.NoError(t, err)
}

func TestTradeTxWrites(t *testing.T) {
	db := testhelpers.SetupTestDB(t)
	repo := NewTradeRepository(db)
	ctx := context.Background()
	testhelpers.CreateUser(t, db, "a", "alice")
	testhelpers.CreateUser(t, db, "b", "bob")
	star := testhelpers.CreateBadge(t, db, "a", "Star", 5, true)
	unit := testhelpers.GiveUnit(t, db, star.ID, "a")

	var tradeID uint
	require.NoError(t, repo.Transaction(ctx, func(tx TradeTx) error {
		trade := &models.Trade{
			SenderID:   "a",
			ReceiverID: "b",
			Items:      []models.TradeItem{{UserBadgeID: unit.ID, Side: models.SideSender}},
		}
		if err := tx.CreateTrade(trade); err != nil {
			return err
		}
		tradeID = trade.ID
		return nil
	}))

	require.NoError(t, repo.Transaction(ctx, func(tx TradeTx) error {
		trade, err := tx.LockTrade(tradeID)
		require.NoError(t, err)
		require.Len(t, trade.Items, 1)
		require.Equal(t, "a", trade.Items[0].UserBadge.UserID)

		_, err = tx.LockTrade(tradeID + 1)
		require.ErrorIs(t, err, ErrTradeNotFound)

		ok, err := tx.MoveUserBadge(unit.ID, "b", "a")
		require.NoError(t, err)
		require.False(t, ok, "move must check the current owner")
		ok, err = tx.MoveUserBadge(unit.ID, "a", "b")
		require.NoError(t, err)
		require.True(t, ok)

		ok, err = tx.ResolveTrade(tradeID, true)
		require.NoError(t, err)
		require.True(t, ok)
		ok, err = tx.ResolveTrade(tradeID, false)
		require.NoError(t, err)
		require.False(t, ok, "a resolved trade stays resolved")
		return nil
	}))

	require.Equal(t, "b", testhelpers.OwnerOf(t, db, unit.ID))

	require.NoError(t, repo.Transaction(ctx, func(tx TradeTx) error {
		require.NoError(t, tx.DeleteTrade(tradeID))
		require.ErrorIs(t, tx.DeleteTrade(tradeID), ErrTradeNotFound)
		return nil
	}))
	var items int64
	require.NoError(t, db.Model(&models.TradeItem{}).Count(&items).Error)
	require.Zero(t, items)
}

func TestClearBoardPlacements(t *testing.T) {
	db := testhelpers.SetupTestDB(t)
	repo := NewTradeRepository(db)
	testhelpers.CreateUser(t, db, "a", "alice")
	star := testhelpers.CreateBadge(t, db, "a", "Star", 5, true)
	moon := testhelpers.CreateBadge(t, db, "a", "Moon", 5, true)
	s := testhelpers.GiveUnit(t, db, star.ID, "a")
	m := testhelpers.GiveUnit(t, db, moon.ID, "a")

	var board models.Board
	require.NoError(t, db.Where("user_id = ?", "a").First(&board).Error)
	require.NoError(t, db.Create(&[]models.BoardBadge{
		{BoardID: board.ID, Position: 0, UserBadgeID: s.ID},
		{BoardID: board.ID, Position: 1, UserBadgeID: m.ID},
	}).Error)

	require.NoError(t, repo.Transaction(context.Background(), func(tx TradeTx) error {
		n, err := tx.ClearBoardPlacements([]uint{s.ID})
		require.NoError(t, err)
		require.Equal(t, int64(1), n)
		n, err = tx.ClearBoardPlacements(nil)
		require.NoError(t, err)
		require.Zero(t, n)
		return nil
	}))

	var left []models.BoardBadge
	require.NoError(t, db.Find(&left).Error)
	require.Len(t, left, 1)
	require.Equal(t, m.ID, left[0].UserBadgeID)
}

func TestStaleTradeIDsAndRejectTrades(t *testing.T) {
	db := testhelpers.SetupTestDB(t)
	repo := NewTradeRepository(db)
	ctx := context.Background()
	testhelpers.CreateUser(t, db, "a", "alice")
	testhelpers.CreateUser(t, db, "b", "bob")
	testhelpers.CreateUser(t, db, "c", "carol")
	star := testhelpers.CreateBadge(t, db, "a", "Star", 5, true)
	moon := testhelpers.CreateBadge(t, db, "a", "Moon", 5, true)
	sun := testhelpers.CreateBadge(t, db, "a", "Sun", 5, true)
	aStar := testhelpers.GiveUnit(t, db, star.ID, "a")
	bMoon := testhelpers.GiveUnit(t, db, moon.ID, "b")
	aSun := testhelpers.GiveUnit(t, db, sun.ID, "a")

	newTrade := func(items ...models.TradeItem) uint {
		tr := models.Trade{SenderID: "a", ReceiverID: "b", Items: items}
		require.NoError(t, db.Create(&tr).Error)
		return tr.ID
	}
	fresh := newTrade(
		models.TradeItem{UserBadgeID: aStar.ID, Side: models.SideSender},
		models.TradeItem{UserBadgeID: bMoon.ID, Side: models.SideReceiver},
	)
	movedOffer := newTrade(models.TradeItem{UserBadgeID: aSun.ID, Side: models.SideSender})
	vanished := newTrade(models.TradeItem{UserBadgeID: 9999, Side: models.SideSender})

	require.NoError(t, db.Model(&models.UserBadge{}).Where("id = ?", aSun.ID).Update("user_id", "c").Error)

	ids, err := repo.StaleTradeIDs(ctx)
	require.NoError(t, err)
	require.ElementsMatch(t, []uint{movedOffer, vanished}, ids)

	n, err := repo.RejectTrades(ctx, ids)
	require.NoError(t, err)
	require.Equal(t, int64(2), n)

	ids, err = repo.StaleTradeIDs(ctx)
	require.NoError(t, err)
	require.Empty(t, ids)

	pending, err := repo.PendingTrades(ctx, "b")
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, fresh, pending[0].ID)
	require.Len(t, pending[0].Items, 2)

	n, err = repo.RejectTrades(ctx, nil)
	require.NoError(t, err)
	require.Zero(t, n)

	// a fresh trade is never rejected, even if its id is passed in
	n, err = repo.RejectTrades(ctx, []uint{fresh})
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestRejectTradesSkipsTradesNoLongerStale(t *testing.T) {
	db := testhelpers.SetupTestDB(t)
	repo := NewTradeRepository(db)
	ctx := context.Background()
	testhelpers.CreateUser(t, db, "a", "alice")
	testhelpers.CreateUser(t, db, "b", "bob")
	testhelpers.CreateUser(t, db, "c", "carol")
	star := testhelpers.CreateBadge(t, db, "a", "Star", 5, true)
	aStar := testhelpers.GiveUnit(t, db, star.ID, "a")

	tr := models.Trade{SenderID: "a", ReceiverID: "b", Items: []models.TradeItem{
		{UserBadgeID: aStar.ID, Side: models.SideSender},
	}}
	require.NoError(t, db.Create(&tr).Error)

	move := func(to string) {
		require.NoError(t, db.Model(&models.UserBadge{}).Where("id = ?", aStar.ID).Update("user_id", to).Error)
	}

	move("c")
	ids, err := repo.StaleTradeIDs(ctx)
	require.NoError(t, err)
	require.Equal(t, []uint{tr.ID}, ids)

	// the unit comes back before the sweep writes
	move("a")
	n, err := repo.RejectTrades(ctx, ids)
	require.NoError(t, err)
	require.Zero(t, n)

	pending, err := repo.PendingTrades(ctx, "a")
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Nil(t, pending[0].Accepted)
}
