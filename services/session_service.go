package services

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/tablemate/scanorder/models"
	"github.com/tablemate/scanorder/utils"
	"github.com/tablemate/scanorder/ws"
)

// SessionService owns the table-session binding and the session state machine:
// start/reuse, settle, move, batch delete and the merged bill reads.
type SessionService struct {
	DB    *gorm.DB
	Hub   *ws.Hub
	Print *PrintService
}

func NewSessionService(db *gorm.DB, hub *ws.Hub, print *PrintService) *SessionService {
	return &SessionService{DB: db, Hub: hub, Print: print}
}

type StartResult struct {
	SessionID   string `json:"session_id"`
	StoreID     string `json:"store_id"`
	TableID     string `json:"table_id"`
	StoreName   string `json:"store_name"`
	TableName   string `json:"table_name"`
	DinersCount int    `json:"diners_count"`
	CartVersion int64  `json:"cart_version"`
}

// Start opens a session at an idle table or reuses the table's ACTIVE session
// (a re-scan just updates the diner count). The occupancy pointer is claimed
// in the same transaction that creates the session.
func (s *SessionService) Start(storeID, tableID string, dinersCount int) (*StartResult, error) {
	if dinersCount < 1 {
		dinersCount = 1
	}

	var result StartResult
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var table models.Table
		err := tx.Where("id = ? AND store_id = ? AND is_active = ? AND is_deleted = ?",
			tableID, storeID, true, false).First(&table).Error
		if err != nil {
			return ErrTableNotFound
		}

		var store models.Store
		if err := tx.Where("id = ?", storeID).First(&store).Error; err != nil {
			return ErrTableNotFound
		}

		var session models.DiningSession
		err = tx.Where("store_id = ? AND table_id = ? AND status = ? AND is_deleted = ?",
			storeID, tableID, models.SessionStatusActive, false).
			Order("created_at DESC").First(&session).Error
		switch {
		case err == nil:
			session.DinersCount = dinersCount
			if err := tx.Save(&session).Error; err != nil {
				return err
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			session = models.DiningSession{
				StoreID:     storeID,
				TableID:     tableID,
				DinersCount: dinersCount,
				Status:      models.SessionStatusActive,
			}
			if err := tx.Create(&session).Error; err != nil {
				return err
			}
		default:
			return err
		}

		if err := tx.Model(&models.Table{}).Where("id = ?", table.ID).
			Update("current_session_id", session.ID).Error; err != nil {
			return err
		}

		result = StartResult{
			SessionID:   session.ID,
			StoreID:     storeID,
			TableID:     tableID,
			StoreName:   store.Name,
			TableName:   table.Name,
			DinersCount: session.DinersCount,
			CartVersion: session.CartVersion,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// Check reports whether the claimed table/session binding is still valid.
func (s *SessionService) Check(storeID, tableID, sessionID string) bool {
	_, err := assertSessionBinding(s.DB, storeID, tableID, sessionID)
	return err == nil
}

// Settle closes an ACTIVE session: its ORDERED orders become SETTLED with a
// shared timestamp, the session closes, the table's occupancy pointer is
// released and leftover cart lines are dropped, all in one transaction.
// Receipt auto-printing afterwards is best-effort and never fails the settle.
func (s *SessionService) Settle(storeID string, operatorID uint, operatorName, sessionID string) error {
	var session models.DiningSession
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		err := tx.Where("id = ? AND store_id = ? AND is_deleted = ?", sessionID, storeID, false).
			First(&session).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrSessionNotFound
			}
			return err
		}
		if session.Status != models.SessionStatusActive {
			return ErrSessionClosed
		}

		now := time.Now()
		if err := tx.Model(&models.Order{}).
			Where("session_id = ? AND store_id = ? AND status = ?", sessionID, storeID, models.OrderStatusOrdered).
			Updates(map[string]interface{}{"status": models.OrderStatusSettled, "settled_at": now}).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.DiningSession{}).Where("id = ?", sessionID).
			Updates(map[string]interface{}{
				"status":       models.SessionStatusClosed,
				"closed_at":    now,
				"cart_version": gorm.Expr("cart_version + 1"),
			}).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Table{}).
			Where("id = ? AND current_session_id = ?", session.TableID, sessionID).
			Update("current_session_id", nil).Error; err != nil {
			return err
		}
		return tx.Where("session_id = ?", sessionID).Delete(&models.CartItem{}).Error
	})
	if err != nil {
		return err
	}

	var store models.Store
	if err := s.DB.Where("id = ?", storeID).First(&store).Error; err == nil && store.AutoPrintReceiptOnSettle {
		// Fire and log; printing must never fail a committed settlement.
		if _, err := s.Print.EnqueueReceipt(sessionID, &operatorID, operatorName, true); err != nil {
			utils.ErrorLogger.Printf("auto receipt for session %s: %v", sessionID, err)
		}
	}

	payload := map[string]interface{}{
		"session_id": sessionID,
		"table_id":   session.TableID,
		"message":    "table settled, re-scan to start a new session",
	}
	s.Hub.EmitStaff(storeID, ws.Message{Event: ws.EventSessionSettled, Data: payload})
	s.Hub.EmitCustomer(sessionID, ws.Message{Event: ws.EventSessionSettled, Data: payload})
	return nil
}

// Move relocates an ACTIVE session from one table to another. The caller
// presents both the believed current table and the target; moving onto the
// current table is a successful no-op. Both occupancy pointers, the session's
// table reference and the audit row change in one transaction.
func (s *SessionService) Move(storeID string, operatorID uint, sessionID, fromTableID, toTableID string) error {
	moved := false
	var fromName, toName string

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var session models.DiningSession
		err := tx.Where("id = ? AND store_id = ? AND is_deleted = ?", sessionID, storeID, false).
			First(&session).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrSessionNotFound
			}
			return err
		}
		if session.Status != models.SessionStatusActive {
			return ErrSessionClosed
		}
		if session.TableID != fromTableID {
			return ErrTableMismatch
		}
		if toTableID == session.TableID {
			return nil // already there
		}

		var target models.Table
		err = tx.Where("id = ? AND store_id = ? AND is_active = ? AND is_deleted = ?",
			toTableID, storeID, true, false).First(&target).Error
		if err != nil {
			return ErrTableNotFound
		}
		if target.CurrentSessionID != nil && *target.CurrentSessionID != sessionID {
			return ErrTableOccupied
		}

		var from models.Table
		if err := tx.Where("id = ? AND store_id = ?", fromTableID, storeID).First(&from).Error; err != nil {
			return ErrTableNotFound
		}

		if err := tx.Model(&models.Table{}).
			Where("id = ? AND current_session_id = ?", fromTableID, sessionID).
			Update("current_session_id", nil).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Table{}).Where("id = ?", toTableID).
			Update("current_session_id", sessionID).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.DiningSession{}).Where("id = ?", sessionID).
			Update("table_id", toTableID).Error; err != nil {
			return err
		}
		if err := tx.Create(&models.TableMoveLog{
			SessionID:   sessionID,
			FromTableID: fromTableID,
			ToTableID:   toTableID,
			OperatorID:  operatorID,
		}).Error; err != nil {
			return err
		}

		moved = true
		fromName = from.Name
		toName = target.Name
		return nil
	})
	if err != nil || !moved {
		return err
	}

	payload := map[string]interface{}{
		"session_id":      sessionID,
		"from_table_id":   fromTableID,
		"to_table_id":     toTableID,
		"from_table_name": fromName,
		"to_table_name":   toName,
	}
	s.Hub.EmitStaff(storeID, ws.Message{Event: ws.EventSessionMoved, Data: payload})
	s.Hub.EmitCustomer(sessionID, ws.Message{Event: ws.EventSessionMoved, Data: payload})
	return nil
}

// BatchDelete soft-deletes CLOSED sessions and hard-deletes their dependents.
// All-or-nothing: one missing or still-ACTIVE id fails the whole call.
func (s *SessionService) BatchDelete(storeID string, sessionIDs []string) (int64, error) {
	seen := make(map[string]struct{}, len(sessionIDs))
	ids := make([]string, 0, len(sessionIDs))
	for _, id := range sessionIDs {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	sessionIDs = ids
	if len(sessionIDs) == 0 {
		return 0, nil
	}

	var count int64
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var sessions []models.DiningSession
		if err := tx.Where("id IN ? AND store_id = ? AND is_deleted = ?", sessionIDs, storeID, false).
			Find(&sessions).Error; err != nil {
			return err
		}
		if len(sessions) != len(sessionIDs) {
			return ErrSessionNotFound
		}
		for _, sess := range sessions {
			if sess.Status != models.SessionStatusClosed {
				return ErrSessionNotClosed
			}
		}

		var orderIDs []string
		if err := tx.Model(&models.Order{}).Where("session_id IN ?", sessionIDs).
			Pluck("id", &orderIDs).Error; err != nil {
			return err
		}
		if len(orderIDs) > 0 {
			if err := tx.Where("order_id IN ?", orderIDs).Delete(&models.OrderItem{}).Error; err != nil {
				return err
			}
			if err := tx.Where("id IN ?", orderIDs).Delete(&models.Order{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("session_id IN ?", sessionIDs).Delete(&models.CartItem{}).Error; err != nil {
			return err
		}
		if err := tx.Where("session_id IN ?", sessionIDs).Delete(&models.PrintJob{}).Error; err != nil {
			return err
		}
		if err := tx.Where("session_id IN ?", sessionIDs).Delete(&models.TableMoveLog{}).Error; err != nil {
			return err
		}
		// Closed sessions should not be referenced anymore; clear strays anyway.
		if err := tx.Model(&models.Table{}).Where("current_session_id IN ?", sessionIDs).
			Update("current_session_id", nil).Error; err != nil {
			return err
		}

		res := tx.Model(&models.DiningSession{}).Where("id IN ?", sessionIDs).
			Update("is_deleted", true)
		if res.Error != nil {
			return res.Error
		}
		count = res.RowsAffected
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

type MergedLine struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Price     int64  `json:"price"`
	TotalQty  int    `json:"total_qty"`
	LineTotal int64  `json:"line_total"`
}

type SessionDetail struct {
	SessionID   string         `json:"session_id"`
	TableID     string         `json:"table_id"`
	TableName   string         `json:"table_name"`
	DinersCount int            `json:"diners_count"`
	Status      string         `json:"status"`
	SettledAt   *time.Time     `json:"settled_at,omitempty"`
	OrderCount  int            `json:"order_count"`
	TotalAmount int64          `json:"total_amount"`
	MergedItems []MergedLine   `json:"merged_items"`
	Orders      []models.Order `json:"orders"`
}

// mergeOrderItems aggregates item snapshots per product across orders, in
// first-seen product order.
func mergeOrderItems(orders []models.Order) []MergedLine {
	index := make(map[string]int)
	merged := make([]MergedLine, 0)
	for _, o := range orders {
		for _, it := range o.Items {
			if i, ok := index[it.ProductID]; ok {
				merged[i].TotalQty += it.Qty
				merged[i].LineTotal += it.PriceSnapshot * int64(it.Qty)
				continue
			}
			index[it.ProductID] = len(merged)
			merged = append(merged, MergedLine{
				ProductID: it.ProductID,
				Name:      it.NameSnapshot,
				Price:     it.PriceSnapshot,
				TotalQty:  it.Qty,
				LineTotal: it.PriceSnapshot * int64(it.Qty),
			})
		}
	}
	return merged
}

// sessionOrders loads a session's non-cancelled orders in creation order with
// their item snapshots.
func sessionOrders(db *gorm.DB, sessionID string) ([]models.Order, error) {
	var orders []models.Order
	err := db.Where("session_id = ? AND status <> ?", sessionID, models.OrderStatusCancelled).
		Order("created_at ASC").
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Find(&orders).Error
	return orders, err
}

// Detail returns the merged bill view of a session. The total is always
// recomputed from the orders, never cached.
func (s *SessionService) Detail(storeID, sessionID string) (*SessionDetail, error) {
	var session models.DiningSession
	err := s.DB.Where("id = ? AND store_id = ? AND is_deleted = ?", sessionID, storeID, false).
		First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}

	var table models.Table
	_ = s.DB.Where("id = ?", session.TableID).First(&table).Error

	orders, err := sessionOrders(s.DB, sessionID)
	if err != nil {
		return nil, err
	}

	var total int64
	for _, o := range orders {
		total += o.Amount
	}

	return &SessionDetail{
		SessionID:   session.ID,
		TableID:     session.TableID,
		TableName:   table.Name,
		DinersCount: session.DinersCount,
		Status:      session.Status,
		SettledAt:   session.ClosedAt,
		OrderCount:  len(orders),
		TotalAmount: total,
		MergedItems: mergeOrderItems(orders),
		Orders:      orders,
	}, nil
}

type SessionRow struct {
	SessionID   string     `json:"session_id"`
	TableID     string     `json:"table_id"`
	TableName   string     `json:"table_name"`
	DinersCount int        `json:"diners_count"`
	Status      string     `json:"status"`
	OrderCount  int        `json:"order_count"`
	TotalAmount int64      `json:"total_amount"`
	CreatedAt   time.Time  `json:"created_at"`
	SettledAt   *time.Time `json:"settled_at,omitempty"`
}

// List returns session rows for the staff console, optionally filtered by
// status. Sessions without orders are skipped, matching the console's billing
// view.
func (s *SessionService) List(storeID, status string) ([]SessionRow, error) {
	q := s.DB.Where("store_id = ? AND is_deleted = ?", storeID, false)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var sessions []models.DiningSession
	if err := q.Order("created_at DESC").Find(&sessions).Error; err != nil {
		return nil, err
	}

	rows := make([]SessionRow, 0, len(sessions))
	for _, sess := range sessions {
		orders, err := sessionOrders(s.DB, sess.ID)
		if err != nil {
			return nil, err
		}
		if len(orders) == 0 {
			continue
		}
		var total int64
		for _, o := range orders {
			total += o.Amount
		}
		var table models.Table
		_ = s.DB.Where("id = ?", sess.TableID).First(&table).Error
		rows = append(rows, SessionRow{
			SessionID:   sess.ID,
			TableID:     sess.TableID,
			TableName:   table.Name,
			DinersCount: sess.DinersCount,
			Status:      sess.Status,
			OrderCount:  len(orders),
			TotalAmount: total,
			CreatedAt:   sess.CreatedAt,
			SettledAt:   sess.ClosedAt,
		})
	}
	return rows, nil
}
