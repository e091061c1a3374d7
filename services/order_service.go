package services

import (
	"errors"
	"math/rand"
	"time"

	"gorm.io/gorm"

	"github.com/tablemate/scanorder/models"
	"github.com/tablemate/scanorder/utils"
	"github.com/tablemate/scanorder/ws"
)

// OrderService turns a cart (or an explicit item list) into an immutable
// order snapshot attached to the session.
type OrderService struct {
	DB    *gorm.DB
	Hub   *ws.Hub
	Cart  *CartService
	Print *PrintService
}

func NewOrderService(db *gorm.DB, hub *ws.Hub, cart *CartService, print *PrintService) *OrderService {
	return &OrderService{DB: db, Hub: hub, Cart: cart, Print: print}
}

type SubmitItem struct {
	ProductID string `json:"product_id" binding:"required"`
	Qty       int    `json:"qty" binding:"required,min=1"`
}

type SubmitInput struct {
	StoreID     string
	TableID     string
	SessionID   string
	DinersCount int
	Channel     string
	SpiceLevel  string
	Remark      string
	Items       []SubmitItem
}

const orderIDAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// generateOrderID builds a human-readable order id: channel prefix, wall-clock
// timestamp and a short random suffix. Collisions are negligible at restaurant
// scale; the primary key rejects the rest.
func generateOrderID(channel string) string {
	prefix := "TS"
	switch channel {
	case models.OrderChannelDelivery:
		prefix = "WM"
	case models.OrderChannelPickup:
		prefix = "DB"
	}
	suffix := make([]byte, 4)
	for i := range suffix {
		suffix[i] = orderIDAlphabet[rand.Intn(len(orderIDAlphabet))]
	}
	return prefix + time.Now().Format("20060102150405") + string(suffix)
}

// Submit validates the session binding, freezes item snapshots, computes the
// amount and persists the order; the session's cart is cleared and its version
// bumped in the same transaction. Any unsellable product rejects the whole
// submission.
func (s *OrderService) Submit(in SubmitInput) (*models.Order, error) {
	if in.DinersCount < 1 {
		in.DinersCount = 1
	}

	var order models.Order
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		session, err := assertSessionBinding(tx, in.StoreID, in.TableID, in.SessionID)
		if err != nil {
			return err
		}

		items, err := s.resolveItems(tx, in, session)
		if err != nil {
			return err
		}

		var amount int64
		for _, it := range items {
			amount += it.PriceSnapshot * int64(it.Qty)
		}

		order = models.Order{
			ID:          generateOrderID(in.Channel),
			StoreID:     in.StoreID,
			TableID:     in.TableID,
			SessionID:   in.SessionID,
			DinersCount: in.DinersCount,
			SpiceLevel:  in.SpiceLevel,
			Remark:      in.Remark,
			Amount:      amount,
			Status:      models.OrderStatusOrdered,
			Items:       items,
		}
		if err := tx.Create(&order).Error; err != nil {
			return err
		}

		if err := tx.Where("session_id = ?", in.SessionID).Delete(&models.CartItem{}).Error; err != nil {
			return err
		}
		return bumpCartVersion(tx, in.SessionID)
	})
	if err != nil {
		return nil, err
	}

	s.Hub.EmitStaff(in.StoreID, ws.Message{Event: ws.EventOrderCreated, Data: map[string]interface{}{
		"order_id":   order.ID,
		"session_id": order.SessionID,
		"store_id":   order.StoreID,
		"table_id":   order.TableID,
		"amount":     order.Amount,
		"created_at": order.CreatedAt,
	}})
	s.Cart.BroadcastCartUpdated(in.SessionID)

	// Fire and log; the kitchen ticket never fails a committed order.
	if _, err := s.Print.EnqueueKitchen(order.ID); err != nil {
		utils.ErrorLogger.Printf("kitchen ticket for order %s: %v", order.ID, err)
	}

	return &order, nil
}

// resolveItems freezes the snapshots for the submission: from the explicit
// item list when given, otherwise from the current cart. Every referenced
// product must be sellable right now.
func (s *OrderService) resolveItems(tx *gorm.DB, in SubmitInput, session *models.DiningSession) ([]models.OrderItem, error) {
	if len(in.Items) > 0 {
		items := make([]models.OrderItem, 0, len(in.Items))
		for _, req := range in.Items {
			var product models.Product
			err := tx.Where("id = ? AND store_id = ?", req.ProductID, in.StoreID).First(&product).Error
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return nil, ErrProductUnavailable
				}
				return nil, err
			}
			if !product.Sellable() {
				return nil, ErrProductUnavailable
			}
			items = append(items, models.OrderItem{
				ProductID:     product.ID,
				NameSnapshot:  product.Name,
				PriceSnapshot: product.Price,
				Qty:           req.Qty,
			})
		}
		return items, nil
	}

	var cartItems []models.CartItem
	if err := tx.Where("session_id = ?", session.ID).Order("id ASC").Find(&cartItems).Error; err != nil {
		return nil, err
	}
	if len(cartItems) == 0 {
		return nil, ErrCartEmpty
	}

	items := make([]models.OrderItem, 0, len(cartItems))
	for _, ci := range cartItems {
		var product models.Product
		err := tx.Where("id = ? AND store_id = ?", ci.ProductID, in.StoreID).First(&product).Error
		if err != nil || !product.Sellable() {
			return nil, ErrProductUnavailable
		}
		items = append(items, models.OrderItem{
			ProductID:     ci.ProductID,
			NameSnapshot:  ci.NameSnapshot,
			PriceSnapshot: ci.PriceSnapshot,
			Qty:           ci.Qty,
		})
	}
	return items, nil
}

// ListBySession returns the session's open orders, newest first.
func (s *OrderService) ListBySession(sessionID string) ([]models.Order, error) {
	var orders []models.Order
	err := s.DB.Where("session_id = ? AND status = ?", sessionID, models.OrderStatusOrdered).
		Order("created_at DESC").
		Preload("Items").
		Find(&orders).Error
	return orders, err
}

// Get returns one order with its item snapshots.
func (s *OrderService) Get(orderID string) (*models.Order, error) {
	var order models.Order
	err := s.DB.Where("id = ? AND status IN ?", orderID,
		[]string{models.OrderStatusOrdered, models.OrderStatusSettled}).
		Preload("Items").
		First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return &order, nil
}
