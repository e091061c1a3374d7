package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tablemate/scanorder/models"
)

func TestStartSessionClaimsTable(t *testing.T) {
	db := setupTestDB(t)
	store := seedStore(t, db, false)
	table := seedTable(t, db, store.ID, "A1")
	sessionSvc, _, _, _ := newServices(db)

	res, err := sessionSvc.Start(store.ID, table.ID, 2)
	assert.NoError(t, err)
	assert.Equal(t, store.ID, res.StoreID)
	assert.Equal(t, "A1", res.TableName)
	assert.Equal(t, 2, res.DinersCount)
	assert.Equal(t, int64(0), res.CartVersion)

	var got models.Table
	assert.NoError(t, db.First(&got, "id = ?", table.ID).Error)
	if assert.NotNil(t, got.CurrentSessionID) {
		assert.Equal(t, res.SessionID, *got.CurrentSessionID)
	}
}

func TestStartSessionReusesActive(t *testing.T) {
	db := setupTestDB(t)
	store := seedStore(t, db, false)
	table := seedTable(t, db, store.ID, "A1")
	sessionSvc, _, _, _ := newServices(db)

	first, err := sessionSvc.Start(store.ID, table.ID, 2)
	assert.NoError(t, err)

	// Re-scan at the same table joins the running session, updating diners.
	second, err := sessionSvc.Start(store.ID, table.ID, 4)
	assert.NoError(t, err)
	assert.Equal(t, first.SessionID, second.SessionID)
	assert.Equal(t, 4, second.DinersCount)

	var count int64
	db.Model(&models.DiningSession{}).Where("table_id = ?", table.ID).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestStartSessionUnknownTable(t *testing.T) {
	db := setupTestDB(t)
	store := seedStore(t, db, false)
	sessionSvc, _, _, _ := newServices(db)

	_, err := sessionSvc.Start(store.ID, "no-such-table", 2)
	assert.ErrorIs(t, err, ErrTableNotFound)
}

func TestSessionLifecycleCartVersionWalk(t *testing.T) {
	db := setupTestDB(t)
	store := seedStore(t, db, false)
	table := seedTable(t, db, store.ID, "A1")
	tea := seedProduct(t, db, store.ID, "Jasmine Tea", 600)
	sessionSvc, cartSvc, orderSvc, _ := newServices(db)

	start, err := sessionSvc.Start(store.ID, table.ID, 2)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), start.CartVersion)

	view, err := cartSvc.SetQty(store.ID, table.ID, start.SessionID, tea.ID, 3)
	assert.NoError(t, err)
	assert.Equal(t, int64(1), view.CartVersion)

	order, err := orderSvc.Submit(SubmitInput{
		StoreID:   store.ID,
		TableID:   table.ID,
		SessionID: start.SessionID,
	})
	assert.NoError(t, err)
	assert.Equal(t, models.OrderStatusOrdered, order.Status)
	assert.Equal(t, int64(1800), order.Amount)
	assert.Equal(t, int64(2), currentCartVersion(t, db, start.SessionID))

	assert.NoError(t, sessionSvc.Settle(store.ID, 1, "Alice", start.SessionID))
	assert.Equal(t, int64(3), currentCartVersion(t, db, start.SessionID))

	var session models.DiningSession
	assert.NoError(t, db.First(&session, "id = ?", start.SessionID).Error)
	assert.Equal(t, models.SessionStatusClosed, session.Status)
	assert.NotNil(t, session.ClosedAt)

	var got models.Table
	assert.NoError(t, db.First(&got, "id = ?", table.ID).Error)
	assert.Nil(t, got.CurrentSessionID)

	var settled models.Order
	assert.NoError(t, db.First(&settled, "id = ?", order.ID).Error)
	assert.Equal(t, models.OrderStatusSettled, settled.Status)
	assert.NotNil(t, settled.SettledAt)

	var leftover int64
	db.Model(&models.CartItem{}).Where("session_id = ?", start.SessionID).Count(&leftover)
	assert.Equal(t, int64(0), leftover)
}

func TestSettleTwiceFails(t *testing.T) {
	db := setupTestDB(t)
	store := seedStore(t, db, false)
	table := seedTable(t, db, store.ID, "A1")
	sessionSvc, _, _, _ := newServices(db)

	start, err := sessionSvc.Start(store.ID, table.ID, 2)
	assert.NoError(t, err)
	assert.NoError(t, sessionSvc.Settle(store.ID, 1, "Alice", start.SessionID))

	err = sessionSvc.Settle(store.ID, 1, "Alice", start.SessionID)
	assert.ErrorIs(t, err, ErrSessionClosed)

	// The failed second call must not bump the version again.
	assert.Equal(t, int64(1), currentCartVersion(t, db, start.SessionID))
}

func TestSettleUnknownSession(t *testing.T) {
	db := setupTestDB(t)
	store := seedStore(t, db, false)
	sessionSvc, _, _, _ := newServices(db)

	err := sessionSvc.Settle(store.ID, 1, "Alice", "no-such-session")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSettleAutoQueuesReceipt(t *testing.T) {
	db := setupTestDB(t)
	store := seedStore(t, db, true)
	table := seedTable(t, db, store.ID, "A1")
	tea := seedProduct(t, db, store.ID, "Jasmine Tea", 600)
	seedPrinter(t, db, store.ID)
	sessionSvc, cartSvc, orderSvc, _ := newServices(db)

	start, _ := sessionSvc.Start(store.ID, table.ID, 2)
	_, err := cartSvc.SetQty(store.ID, table.ID, start.SessionID, tea.ID, 1)
	assert.NoError(t, err)
	_, err = orderSvc.Submit(SubmitInput{StoreID: store.ID, TableID: table.ID, SessionID: start.SessionID})
	assert.NoError(t, err)

	assert.NoError(t, sessionSvc.Settle(store.ID, 1, "Alice", start.SessionID))

	var jobs []models.PrintJob
	assert.NoError(t, db.Where("session_id = ? AND type = ?", start.SessionID, models.PrintJobTypeReceipt).Find(&jobs).Error)
	if assert.Len(t, jobs, 1) {
		assert.NotNil(t, jobs[0].IdempotencyKey)
		assert.Equal(t, "receipt:"+start.SessionID, *jobs[0].IdempotencyKey)
	}
}

func TestMoveSession(t *testing.T) {
	db := setupTestDB(t)
	store := seedStore(t, db, false)
	t1 := seedTable(t, db, store.ID, "A1")
	t2 := seedTable(t, db, store.ID, "A2")
	sessionSvc, _, _, _ := newServices(db)

	start, err := sessionSvc.Start(store.ID, t1.ID, 2)
	assert.NoError(t, err)

	assert.NoError(t, sessionSvc.Move(store.ID, 7, start.SessionID, t1.ID, t2.ID))

	var from, to models.Table
	assert.NoError(t, db.First(&from, "id = ?", t1.ID).Error)
	assert.NoError(t, db.First(&to, "id = ?", t2.ID).Error)
	assert.Nil(t, from.CurrentSessionID)
	if assert.NotNil(t, to.CurrentSessionID) {
		assert.Equal(t, start.SessionID, *to.CurrentSessionID)
	}

	var session models.DiningSession
	assert.NoError(t, db.First(&session, "id = ?", start.SessionID).Error)
	assert.Equal(t, t2.ID, session.TableID)

	var log models.TableMoveLog
	assert.NoError(t, db.First(&log, "session_id = ?", start.SessionID).Error)
	assert.Equal(t, t1.ID, log.FromTableID)
	assert.Equal(t, t2.ID, log.ToTableID)
	assert.Equal(t, uint(7), log.OperatorID)
}

func TestMoveToCurrentTableIsNoop(t *testing.T) {
	db := setupTestDB(t)
	store := seedStore(t, db, false)
	t1 := seedTable(t, db, store.ID, "A1")
	sessionSvc, _, _, _ := newServices(db)

	start, _ := sessionSvc.Start(store.ID, t1.ID, 2)
	assert.NoError(t, sessionSvc.Move(store.ID, 7, start.SessionID, t1.ID, t1.ID))

	var logs int64
	db.Model(&models.TableMoveLog{}).Where("session_id = ?", start.SessionID).Count(&logs)
	assert.Equal(t, int64(0), logs)

	var table models.Table
	assert.NoError(t, db.First(&table, "id = ?", t1.ID).Error)
	if assert.NotNil(t, table.CurrentSessionID) {
		assert.Equal(t, start.SessionID, *table.CurrentSessionID)
	}
}

func TestMoveFromTableMismatch(t *testing.T) {
	db := setupTestDB(t)
	store := seedStore(t, db, false)
	t1 := seedTable(t, db, store.ID, "A1")
	t2 := seedTable(t, db, store.ID, "A2")
	t3 := seedTable(t, db, store.ID, "A3")
	sessionSvc, _, _, _ := newServices(db)

	start, _ := sessionSvc.Start(store.ID, t1.ID, 2)
	err := sessionSvc.Move(store.ID, 7, start.SessionID, t2.ID, t3.ID)
	assert.ErrorIs(t, err, ErrTableMismatch)
}

func TestMoveToOccupiedTableFails(t *testing.T) {
	db := setupTestDB(t)
	store := seedStore(t, db, false)
	t1 := seedTable(t, db, store.ID, "A1")
	t2 := seedTable(t, db, store.ID, "A2")
	sessionSvc, _, _, _ := newServices(db)

	s1, _ := sessionSvc.Start(store.ID, t1.ID, 2)
	s2, _ := sessionSvc.Start(store.ID, t2.ID, 3)

	err := sessionSvc.Move(store.ID, 7, s1.SessionID, t1.ID, t2.ID)
	assert.ErrorIs(t, err, ErrTableOccupied)

	// Both occupancy pointers survive untouched.
	var got1, got2 models.Table
	assert.NoError(t, db.First(&got1, "id = ?", t1.ID).Error)
	assert.NoError(t, db.First(&got2, "id = ?", t2.ID).Error)
	if assert.NotNil(t, got1.CurrentSessionID) {
		assert.Equal(t, s1.SessionID, *got1.CurrentSessionID)
	}
	if assert.NotNil(t, got2.CurrentSessionID) {
		assert.Equal(t, s2.SessionID, *got2.CurrentSessionID)
	}
}

func TestBatchDeleteRejectsActiveSession(t *testing.T) {
	db := setupTestDB(t)
	store := seedStore(t, db, false)
	t1 := seedTable(t, db, store.ID, "A1")
	t2 := seedTable(t, db, store.ID, "A2")
	sessionSvc, _, _, _ := newServices(db)

	s1, _ := sessionSvc.Start(store.ID, t1.ID, 2)
	s2, _ := sessionSvc.Start(store.ID, t2.ID, 2)
	assert.NoError(t, sessionSvc.Settle(store.ID, 1, "Alice", s1.SessionID))

	_, err := sessionSvc.BatchDelete(store.ID, []string{s1.SessionID, s2.SessionID})
	assert.ErrorIs(t, err, ErrSessionNotClosed)

	// All-or-nothing: the CLOSED one must not be gone either.
	var sess models.DiningSession
	assert.NoError(t, db.First(&sess, "id = ?", s1.SessionID).Error)
	assert.False(t, sess.IsDeleted)
}

func TestBatchDeleteClosedSessions(t *testing.T) {
	db := setupTestDB(t)
	store := seedStore(t, db, false)
	t1 := seedTable(t, db, store.ID, "A1")
	tea := seedProduct(t, db, store.ID, "Jasmine Tea", 600)
	sessionSvc, cartSvc, orderSvc, _ := newServices(db)

	start, _ := sessionSvc.Start(store.ID, t1.ID, 2)
	_, err := cartSvc.SetQty(store.ID, t1.ID, start.SessionID, tea.ID, 2)
	assert.NoError(t, err)
	order, err := orderSvc.Submit(SubmitInput{StoreID: store.ID, TableID: t1.ID, SessionID: start.SessionID})
	assert.NoError(t, err)
	assert.NoError(t, sessionSvc.Settle(store.ID, 1, "Alice", start.SessionID))

	count, err := sessionSvc.BatchDelete(store.ID, []string{start.SessionID})
	assert.NoError(t, err)
	assert.Equal(t, int64(1), count)

	var sess models.DiningSession
	assert.NoError(t, db.First(&sess, "id = ?", start.SessionID).Error)
	assert.True(t, sess.IsDeleted)

	var orders, items int64
	db.Model(&models.Order{}).Where("id = ?", order.ID).Count(&orders)
	db.Model(&models.OrderItem{}).Where("order_id = ?", order.ID).Count(&items)
	assert.Equal(t, int64(0), orders)
	assert.Equal(t, int64(0), items)
}

func TestBatchDeleteToleratesDuplicateIDs(t *testing.T) {
	db := setupTestDB(t)
	store := seedStore(t, db, false)
	t1 := seedTable(t, db, store.ID, "A1")
	sessionSvc, _, _, _ := newServices(db)

	start, _ := sessionSvc.Start(store.ID, t1.ID, 2)
	assert.NoError(t, sessionSvc.Settle(store.ID, 1, "Alice", start.SessionID))

	// The same id twice still counts as one valid CLOSED session.
	count, err := sessionSvc.BatchDelete(store.ID, []string{start.SessionID, start.SessionID})
	assert.NoError(t, err)
	assert.Equal(t, int64(1), count)

	var sess models.DiningSession
	assert.NoError(t, db.First(&sess, "id = ?", start.SessionID).Error)
	assert.True(t, sess.IsDeleted)
}

func TestBatchDeleteUnknownIDFails(t *testing.T) {
	db := setupTestDB(t)
	store := seedStore(t, db, false)
	sessionSvc, _, _, _ := newServices(db)

	_, err := sessionSvc.BatchDelete(store.ID, []string{"no-such-session"})
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionDetailMergesItems(t *testing.T) {
	db := setupTestDB(t)
	store := seedStore(t, db, false)
	table := seedTable(t, db, store.ID, "A1")
	tea := seedProduct(t, db, store.ID, "Jasmine Tea", 600)
	duck := seedProduct(t, db, store.ID, "Roast Duck", 8800)
	sessionSvc, cartSvc, orderSvc, _ := newServices(db)

	start, _ := sessionSvc.Start(store.ID, table.ID, 2)

	_, err := cartSvc.SetQty(store.ID, table.ID, start.SessionID, tea.ID, 2)
	assert.NoError(t, err)
	_, err = orderSvc.Submit(SubmitInput{StoreID: store.ID, TableID: table.ID, SessionID: start.SessionID})
	assert.NoError(t, err)

	// Second round reorders tea and adds the duck.
	_, err = cartSvc.SetQty(store.ID, table.ID, start.SessionID, tea.ID, 1)
	assert.NoError(t, err)
	_, err = cartSvc.SetQty(store.ID, table.ID, start.SessionID, duck.ID, 1)
	assert.NoError(t, err)
	_, err = orderSvc.Submit(SubmitInput{StoreID: store.ID, TableID: table.ID, SessionID: start.SessionID})
	assert.NoError(t, err)

	detail, err := sessionSvc.Detail(store.ID, start.SessionID)
	assert.NoError(t, err)
	assert.Equal(t, 2, detail.OrderCount)
	assert.Equal(t, int64(600*3+8800), detail.TotalAmount)
	if assert.Len(t, detail.MergedItems, 2) {
		assert.Equal(t, "Jasmine Tea", detail.MergedItems[0].Name)
		assert.Equal(t, 3, detail.MergedItems[0].TotalQty)
		assert.Equal(t, int64(1800), detail.MergedItems[0].LineTotal)
		assert.Equal(t, "Roast Duck", detail.MergedItems[1].Name)
		assert.Equal(t, 1, detail.MergedItems[1].TotalQty)
	}
}

func TestSessionListSkipsOrderlessSessions(t *testing.T) {
	db := setupTestDB(t)
	store := seedStore(t, db, false)
	t1 := seedTable(t, db, store.ID, "A1")
	t2 := seedTable(t, db, store.ID, "A2")
	tea := seedProduct(t, db, store.ID, "Jasmine Tea", 600)
	sessionSvc, cartSvc, orderSvc, _ := newServices(db)

	withOrder, _ := sessionSvc.Start(store.ID, t1.ID, 2)
	_, _ = sessionSvc.Start(store.ID, t2.ID, 2)

	_, err := cartSvc.SetQty(store.ID, t1.ID, withOrder.SessionID, tea.ID, 1)
	assert.NoError(t, err)
	_, err = orderSvc.Submit(SubmitInput{StoreID: store.ID, TableID: t1.ID, SessionID: withOrder.SessionID})
	assert.NoError(t, err)

	rows, err := sessionSvc.List(store.ID, "")
	assert.NoError(t, err)
	if assert.Len(t, rows, 1) {
		assert.Equal(t, withOrder.SessionID, rows[0].SessionID)
		assert.Equal(t, int64(600), rows[0].TotalAmount)
	}
}

func TestCheckSessionBinding(t *testing.T) {
	db := setupTestDB(t)
	store := seedStore(t, db, false)
	table := seedTable(t, db, store.ID, "A1")
	sessionSvc, _, _, _ := newServices(db)

	start, _ := sessionSvc.Start(store.ID, table.ID, 2)
	assert.True(t, sessionSvc.Check(store.ID, table.ID, start.SessionID))

	assert.NoError(t, sessionSvc.Settle(store.ID, 1, "Alice", start.SessionID))
	assert.False(t, sessionSvc.Check(store.ID, table.ID, start.SessionID))
}
