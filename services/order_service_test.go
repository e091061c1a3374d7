package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tablemate/scanorder/models"
)

func TestSubmitFromCart(t *testing.T) {
	db := setupTestDB(t)
	store := seedStore(t, db, false)
	table := seedTable(t, db, store.ID, "A1")
	tea := seedProduct(t, db, store.ID, "Jasmine Tea", 600)
	duck := seedProduct(t, db, store.ID, "Roast Duck", 8800)
	sessionSvc, cartSvc, orderSvc, _ := newServices(db)

	start, _ := sessionSvc.Start(store.ID, table.ID, 2)
	_, err := cartSvc.SetQty(store.ID, table.ID, start.SessionID, tea.ID, 2)
	assert.NoError(t, err)
	_, err = cartSvc.SetQty(store.ID, table.ID, start.SessionID, duck.ID, 1)
	assert.NoError(t, err)

	order, err := orderSvc.Submit(SubmitInput{
		StoreID:   store.ID,
		TableID:   table.ID,
		SessionID: start.SessionID,
		Remark:    "no cilantro",
	})
	assert.NoError(t, err)
	assert.Equal(t, models.OrderStatusOrdered, order.Status)
	assert.Equal(t, int64(600*2+8800), order.Amount)
	assert.Equal(t, "no cilantro", order.Remark)
	assert.Len(t, order.Items, 2)

	// The cart is consumed and the version bumped once for the submit.
	var leftover int64
	db.Model(&models.CartItem{}).Where("session_id = ?", start.SessionID).Count(&leftover)
	assert.Equal(t, int64(0), leftover)
	assert.Equal(t, int64(3), currentCartVersion(t, db, start.SessionID))
}

func TestSubmitExplicitItems(t *testing.T) {
	db := setupTestDB(t)
	store := seedStore(t, db, false)
	table := seedTable(t, db, store.ID, "A1")
	tea := seedProduct(t, db, store.ID, "Jasmine Tea", 600)
	sessionSvc, _, orderSvc, _ := newServices(db)

	start, _ := sessionSvc.Start(store.ID, table.ID, 2)

	order, err := orderSvc.Submit(SubmitInput{
		StoreID:   store.ID,
		TableID:   table.ID,
		SessionID: start.SessionID,
		Items:     []SubmitItem{{ProductID: tea.ID, Qty: 3}},
	})
	assert.NoError(t, err)
	assert.Equal(t, int64(1800), order.Amount)
	if assert.Len(t, order.Items, 1) {
		assert.Equal(t, "Jasmine Tea", order.Items[0].NameSnapshot)
		assert.Equal(t, 3, order.Items[0].Qty)
	}
}

func TestSubmitEmptyCartFails(t *testing.T) {
	db := setupTestDB(t)
	store := seedStore(t, db, false)
	table := seedTable(t, db, store.ID, "A1")
	sessionSvc, _, orderSvc, _ := newServices(db)

	start, _ := sessionSvc.Start(store.ID, table.ID, 2)

	_, err := orderSvc.Submit(SubmitInput{StoreID: store.ID, TableID: table.ID, SessionID: start.SessionID})
	assert.ErrorIs(t, err, ErrCartEmpty)
	assert.Equal(t, int64(0), currentCartVersion(t, db, start.SessionID))
}

func TestSubmitUnsellableRejectsWholeOrder(t *testing.T) {
	db := setupTestDB(t)
	store := seedStore(t, db, false)
	table := seedTable(t, db, store.ID, "A1")
	tea := seedProduct(t, db, store.ID, "Jasmine Tea", 600)
	crab := seedProduct(t, db, store.ID, "Crab", 12000)
	sessionSvc, cartSvc, orderSvc, _ := newServices(db)

	start, _ := sessionSvc.Start(store.ID, table.ID, 2)
	_, err := cartSvc.SetQty(store.ID, table.ID, start.SessionID, tea.ID, 1)
	assert.NoError(t, err)
	_, err = cartSvc.SetQty(store.ID, table.ID, start.SessionID, crab.ID, 1)
	assert.NoError(t, err)

	// The crab sells out between carting and submitting.
	assert.NoError(t, db.Model(&models.Product{}).Where("id = ?", crab.ID).Update("is_sold_out", true).Error)

	_, err = orderSvc.Submit(SubmitInput{StoreID: store.ID, TableID: table.ID, SessionID: start.SessionID})
	assert.ErrorIs(t, err, ErrProductUnavailable)

	// Nothing committed: no orders, cart intact, version unchanged.
	var orders int64
	db.Model(&models.Order{}).Where("session_id = ?", start.SessionID).Count(&orders)
	assert.Equal(t, int64(0), orders)
	var lines int64
	db.Model(&models.CartItem{}).Where("session_id = ?", start.SessionID).Count(&lines)
	assert.Equal(t, int64(2), lines)
	assert.Equal(t, int64(2), currentCartVersion(t, db, start.SessionID))
}

func TestSubmitAfterSettleFails(t *testing.T) {
	db := setupTestDB(t)
	store := seedStore(t, db, false)
	table := seedTable(t, db, store.ID, "A1")
	tea := seedProduct(t, db, store.ID, "Jasmine Tea", 600)
	sessionSvc, _, orderSvc, _ := newServices(db)

	start, _ := sessionSvc.Start(store.ID, table.ID, 2)
	assert.NoError(t, sessionSvc.Settle(store.ID, 1, "Alice", start.SessionID))

	_, err := orderSvc.Submit(SubmitInput{
		StoreID:   store.ID,
		TableID:   table.ID,
		SessionID: start.SessionID,
		Items:     []SubmitItem{{ProductID: tea.ID, Qty: 1}},
	})
	assert.ErrorIs(t, err, ErrSessionInvalid)
}

func TestOrderIDChannelPrefix(t *testing.T) {
	assert.True(t, strings.HasPrefix(generateOrderID(models.OrderChannelDineIn), "TS"))
	assert.True(t, strings.HasPrefix(generateOrderID(""), "TS"))
	assert.True(t, strings.HasPrefix(generateOrderID(models.OrderChannelDelivery), "WM"))
	assert.True(t, strings.HasPrefix(generateOrderID(models.OrderChannelPickup), "DB"))
	assert.Len(t, generateOrderID(models.OrderChannelDineIn), 2+14+4)
}

func TestListBySessionReturnsOpenOrdersOnly(t *testing.T) {
	db := setupTestDB(t)
	store := seedStore(t, db, false)
	table := seedTable(t, db, store.ID, "A1")
	tea := seedProduct(t, db, store.ID, "Jasmine Tea", 600)
	sessionSvc, _, orderSvc, _ := newServices(db)

	start, _ := sessionSvc.Start(store.ID, table.ID, 2)
	first, err := orderSvc.Submit(SubmitInput{
		StoreID: store.ID, TableID: table.ID, SessionID: start.SessionID,
		Items: []SubmitItem{{ProductID: tea.ID, Qty: 1}},
	})
	assert.NoError(t, err)

	assert.NoError(t, db.Model(&models.Order{}).Where("id = ?", first.ID).
		Update("status", models.OrderStatusSettled).Error)

	second, err := orderSvc.Submit(SubmitInput{
		StoreID: store.ID, TableID: table.ID, SessionID: start.SessionID,
		Items: []SubmitItem{{ProductID: tea.ID, Qty: 2}},
	})
	assert.NoError(t, err)

	orders, err := orderSvc.ListBySession(start.SessionID)
	assert.NoError(t, err)
	if assert.Len(t, orders, 1) {
		assert.Equal(t, second.ID, orders[0].ID)
	}
}

func TestGetOrder(t *testing.T) {
	db := setupTestDB(t)
	store := seedStore(t, db, false)
	table := seedTable(t, db, store.ID, "A1")
	tea := seedProduct(t, db, store.ID, "Jasmine Tea", 600)
	sessionSvc, _, orderSvc, _ := newServices(db)

	start, _ := sessionSvc.Start(store.ID, table.ID, 2)
	order, err := orderSvc.Submit(SubmitInput{
		StoreID: store.ID, TableID: table.ID, SessionID: start.SessionID,
		Items: []SubmitItem{{ProductID: tea.ID, Qty: 1}},
	})
	assert.NoError(t, err)

	got, err := orderSvc.Get(order.ID)
	assert.NoError(t, err)
	assert.Equal(t, order.ID, got.ID)
	assert.Len(t, got.Items, 1)

	_, err = orderSvc.Get("TS00000000000000XXXX")
	assert.ErrorIs(t, err, ErrOrderNotFound)

	// Cancelled orders are hidden from the customer surface.
	assert.NoError(t, db.Model(&models.Order{}).Where("id = ?", order.ID).
		Update("status", models.OrderStatusCancelled).Error)
	_, err = orderSvc.Get(order.ID)
	assert.ErrorIs(t, err, ErrOrderNotFound)
}
