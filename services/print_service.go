package services

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/tablemate/scanorder/models"
	"github.com/tablemate/scanorder/utils"
)

const ticketRule = "-------------------------------"
const ticketTimeLayout = "2006-01-02 15:04:05"

// PrintService renders plain-text tickets and drives the pull/ack job queue
// consumed by the external print agent.
type PrintService struct {
	DB *gorm.DB
}

func NewPrintService(db *gorm.DB) *PrintService {
	return &PrintService{DB: db}
}

type Ticket struct {
	Content   string
	StoreID   string
	SessionID string
}

func renderTicket(lines []string) string {
	return strings.Join(lines, "\n") + "\n\n\n"
}

// activePrinter resolves the store's single active printer: the oldest-created
// active one. Returns nil without error when the store has none.
func (s *PrintService) activePrinter(storeID string) (*models.Printer, error) {
	var printer models.Printer
	err := s.DB.Where("store_id = ? AND is_active = ?", storeID, true).
		Order("created_at ASC").First(&printer).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &printer, nil
}

// BuildKitchenTicket renders the per-order kitchen ticket.
func (s *PrintService) BuildKitchenTicket(orderID string) (*Ticket, error) {
	var order models.Order
	err := s.DB.Preload("Items").Where("id = ?", orderID).First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}

	var store models.Store
	_ = s.DB.Where("id = ?", order.StoreID).First(&store).Error
	var table models.Table
	_ = s.DB.Where("id = ?", order.TableID).First(&table).Error

	// Sequence of this order within its session, for the kitchen's benefit.
	var seqNo int64
	s.DB.Model(&models.Order{}).
		Where("session_id = ? AND created_at <= ? AND status <> ?",
			order.SessionID, order.CreatedAt, models.OrderStatusCancelled).
		Count(&seqNo)

	lines := []string{
		store.Name,
		"KITCHEN TICKET",
		ticketRule,
		fmt.Sprintf("Table:   %s", table.Name),
		fmt.Sprintf("Guests:  %d", order.DinersCount),
		fmt.Sprintf("Ordered: %s", order.CreatedAt.Format(ticketTimeLayout)),
		fmt.Sprintf("Round #%d for this table", seqNo),
		ticketRule,
	}
	for _, it := range order.Items {
		lines = append(lines, fmt.Sprintf("%s  x%d", it.NameSnapshot, it.Qty))
	}
	lines = append(lines, ticketRule)
	lines = append(lines, fmt.Sprintf("Subtotal: %s", utils.FormatAmount(order.Amount)))
	if order.Remark != "" {
		lines = append(lines, fmt.Sprintf("Remark: %s", order.Remark))
	}
	if order.SpiceLevel != "" {
		lines = append(lines, fmt.Sprintf("Spice:  %s", order.SpiceLevel))
	}

	return &Ticket{Content: renderTicket(lines), StoreID: order.StoreID, SessionID: order.SessionID}, nil
}

// sessionTicketData gathers everything the merged bill/receipt tickets need.
func (s *PrintService) sessionTicketData(sessionID string) (*models.DiningSession, *models.Store, *models.Table, []models.Order, error) {
	var session models.DiningSession
	err := s.DB.Where("id = ?", sessionID).First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, nil, nil, ErrSessionNotFound
		}
		return nil, nil, nil, nil, err
	}

	orders, err := sessionOrders(s.DB, sessionID)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	if len(orders) == 0 {
		return nil, nil, nil, nil, ErrNoOrders
	}

	var store models.Store
	_ = s.DB.Where("id = ?", session.StoreID).First(&store).Error
	var table models.Table
	_ = s.DB.Where("id = ?", session.TableID).First(&table).Error
	return &session, &store, &table, orders, nil
}

func mergedTicketLines(title string, session *models.DiningSession, store *models.Store, table *models.Table, orders []models.Order) []string {
	first := orders[0].CreatedAt
	last := orders[len(orders)-1].CreatedAt

	lines := []string{
		store.Name,
		title,
		ticketRule,
		fmt.Sprintf("Table:       %s", table.Name),
		fmt.Sprintf("Guests:      %d", session.DinersCount),
		fmt.Sprintf("First order: %s", first.Format(ticketTimeLayout)),
		fmt.Sprintf("Last order:  %s", last.Format(ticketTimeLayout)),
		ticketRule,
	}
	return lines
}

func appendMergedItems(lines []string, orders []models.Order) []string {
	var total int64
	for _, o := range orders {
		total += o.Amount
	}
	for _, m := range mergeOrderItems(orders) {
		lines = append(lines, fmt.Sprintf("%s  x%d  %s", m.Name, m.TotalQty, utils.FormatAmount(m.LineTotal)))
	}
	lines = append(lines, ticketRule)
	lines = append(lines, fmt.Sprintf("Total: %s", utils.FormatAmount(total)))
	return lines
}

// BuildBillTicket renders the pre-settlement merged bill of a session.
func (s *PrintService) BuildBillTicket(sessionID string) (*Ticket, error) {
	session, store, table, orders, err := s.sessionTicketData(sessionID)
	if err != nil {
		return nil, err
	}
	lines := mergedTicketLines("BILL", session, store, table, orders)
	lines = appendMergedItems(lines, orders)
	return &Ticket{Content: renderTicket(lines), StoreID: session.StoreID, SessionID: session.ID}, nil
}

// BuildReceiptTicket renders the post-settlement receipt with settle time and
// operator.
func (s *PrintService) BuildReceiptTicket(sessionID, operatorName string) (*Ticket, error) {
	session, store, table, orders, err := s.sessionTicketData(sessionID)
	if err != nil {
		return nil, err
	}
	settled := "-"
	if session.ClosedAt != nil {
		settled = session.ClosedAt.Format(ticketTimeLayout)
	}
	if operatorName == "" {
		operatorName = "-"
	}
	lines := mergedTicketLines("RECEIPT", session, store, table, orders)
	lines = append(lines,
		fmt.Sprintf("Settled: %s", settled),
		fmt.Sprintf("Cashier: %s", operatorName),
		ticketRule,
	)
	lines = appendMergedItems(lines, orders)
	return &Ticket{Content: renderTicket(lines), StoreID: session.StoreID, SessionID: session.ID}, nil
}

// createIdempotent inserts the job, letting the unique key index turn a
// concurrent duplicate into a fetch of the existing row.
func (s *PrintService) createIdempotent(job *models.PrintJob) (*models.PrintJob, error) {
	if job.IdempotencyKey != nil {
		var existing models.PrintJob
		if err := s.DB.Where("idempotency_key = ?", *job.IdempotencyKey).First(&existing).Error; err == nil {
			return &existing, nil
		}
	}
	if err := s.DB.Create(job).Error; err != nil {
		if job.IdempotencyKey != nil {
			var existing models.PrintJob
			if ferr := s.DB.Where("idempotency_key = ?", *job.IdempotencyKey).First(&existing).Error; ferr == nil {
				return &existing, nil
			}
		}
		return nil, err
	}
	return job, nil
}

// EnqueueKitchen queues the kitchen ticket for an order. Missing printers are
// a silent no-op; the key kitchen:<orderId> deduplicates resubmissions.
func (s *PrintService) EnqueueKitchen(orderID string) (*models.PrintJob, error) {
	t, err := s.BuildKitchenTicket(orderID)
	if err != nil {
		return nil, err
	}
	printer, err := s.activePrinter(t.StoreID)
	if err != nil {
		return nil, err
	}
	if printer == nil {
		return nil, nil
	}

	key := "kitchen:" + orderID
	return s.createIdempotent(&models.PrintJob{
		StoreID:        t.StoreID,
		PrinterID:      printer.ID,
		Type:           models.PrintJobTypeKitchen,
		Content:        t.Content,
		IdempotencyKey: &key,
		SessionID:      &t.SessionID,
		OrderID:        &orderID,
	})
}

// EnqueueBill queues a pre-settlement bill. Staff-triggered, so a missing
// printer is a hard failure and repeated requests intentionally produce
// repeated jobs.
func (s *PrintService) EnqueueBill(sessionID string, operatorID uint) (*models.PrintJob, error) {
	t, err := s.BuildBillTicket(sessionID)
	if err != nil {
		return nil, err
	}
	printer, err := s.activePrinter(t.StoreID)
	if err != nil {
		return nil, err
	}
	if printer == nil {
		return nil, ErrNoPrinter
	}

	job := &models.PrintJob{
		StoreID:    t.StoreID,
		PrinterID:  printer.ID,
		Type:       models.PrintJobTypeBill,
		Content:    t.Content,
		SessionID:  &t.SessionID,
		OperatorID: &operatorID,
	}
	if err := s.DB.Create(job).Error; err != nil {
		return nil, err
	}
	return job, nil
}

// EnqueueReceipt queues the settlement receipt. Auto mode (post-settle) is
// deduplicated by receipt:<sessionId> and silently skips when no printer is
// configured; manual mode errors instead and always creates a fresh job.
func (s *PrintService) EnqueueReceipt(sessionID string, operatorID *uint, operatorName string, auto bool) (*models.PrintJob, error) {
	t, err := s.BuildReceiptTicket(sessionID, operatorName)
	if err != nil {
		return nil, err
	}
	printer, err := s.activePrinter(t.StoreID)
	if err != nil {
		return nil, err
	}
	if printer == nil {
		if auto {
			return nil, nil
		}
		return nil, ErrNoPrinter
	}

	job := &models.PrintJob{
		StoreID:    t.StoreID,
		PrinterID:  printer.ID,
		Type:       models.PrintJobTypeReceipt,
		Content:    t.Content,
		SessionID:  &t.SessionID,
		OperatorID: operatorID,
	}
	if auto {
		key := "receipt:" + sessionID
		job.IdempotencyKey = &key
		return s.createIdempotent(job)
	}
	if err := s.DB.Create(job).Error; err != nil {
		return nil, err
	}
	return job, nil
}

// ValidateAgent authenticates the print agent by its per-printer shared key.
func (s *PrintService) ValidateAgent(printerID, agentKey string) (*models.Printer, error) {
	if agentKey == "" {
		return nil, ErrInvalidAgent
	}
	var printer models.Printer
	err := s.DB.Where("id = ? AND agent_key = ? AND is_active = ?", printerID, agentKey, true).
		First(&printer).Error
	if err != nil {
		return nil, ErrInvalidAgent
	}
	return &printer, nil
}

// Pull hands out up to max of the printer's oldest PENDING jobs, flipping them
// to PICKED in the same transaction so two concurrent pulls never overlap.
func (s *PrintService) Pull(printerID, agentKey string, max int) ([]models.PrintJob, error) {
	if _, err := s.ValidateAgent(printerID, agentKey); err != nil {
		return nil, err
	}
	if max < 1 {
		max = 1
	}

	var jobs []models.PrintJob
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("printer_id = ? AND status = ?", printerID, models.PrintJobStatusPending).
			Order("created_at ASC").Limit(max).Find(&jobs).Error; err != nil {
			return err
		}
		if len(jobs) == 0 {
			return nil
		}
		// Flip each job only if it is still PENDING; a row a concurrent pull
		// already claimed is dropped from this batch instead of handed out twice.
		picked := jobs[:0]
		for _, job := range jobs {
			res := tx.Model(&models.PrintJob{}).
				Where("id = ? AND status = ?", job.ID, models.PrintJobStatusPending).
				Update("status", models.PrintJobStatusPicked)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 1 {
				job.Status = models.PrintJobStatusPicked
				picked = append(picked, job)
			}
		}
		jobs = picked
		return nil
	})
	if err != nil {
		return nil, err
	}
	return jobs, nil
}

// Report records the agent's outcome for a PICKED job: SENT, or FAILED with
// the agent's error message.
func (s *PrintService) Report(printerID, agentKey, jobID string, ok bool, errorMessage string) error {
	if _, err := s.ValidateAgent(printerID, agentKey); err != nil {
		return err
	}

	var job models.PrintJob
	err := s.DB.Where("id = ? AND printer_id = ?", jobID, printerID).First(&job).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrPrintJobNotFound
		}
		return err
	}
	if job.Status != models.PrintJobStatusPicked {
		return ErrPrintJobNotPicked
	}

	updates := map[string]interface{}{"status": models.PrintJobStatusSent, "error_message": nil}
	if !ok {
		if errorMessage == "" {
			errorMessage = "print failed"
		}
		updates["status"] = models.PrintJobStatusFailed
		updates["error_message"] = errorMessage
	}
	return s.DB.Model(&models.PrintJob{}).Where("id = ?", jobID).Updates(updates).Error
}

// Retry clones a FAILED job into a fresh PENDING one. The failed row is kept
// untouched as audit history.
func (s *PrintService) Retry(storeID, jobID string, operatorID uint) (*models.PrintJob, error) {
	var job models.PrintJob
	err := s.DB.Where("id = ? AND store_id = ?", jobID, storeID).First(&job).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPrintJobNotFound
		}
		return nil, err
	}
	if job.Status != models.PrintJobStatusFailed {
		return nil, ErrPrintJobNotFailed
	}

	clone := &models.PrintJob{
		StoreID:    job.StoreID,
		PrinterID:  job.PrinterID,
		Type:       job.Type,
		Content:    job.Content,
		SessionID:  job.SessionID,
		OrderID:    job.OrderID,
		OperatorID: &operatorID,
	}
	if err := s.DB.Create(clone).Error; err != nil {
		return nil, err
	}
	return clone, nil
}

// ListJobs returns a store's jobs, newest first, optionally filtered by status.
func (s *PrintService) ListJobs(storeID, status string) ([]models.PrintJob, error) {
	q := s.DB.Where("store_id = ?", storeID)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var jobs []models.PrintJob
	err := q.Order("created_at DESC").Find(&jobs).Error
	return jobs, err
}

// GenerateAgentKey mints the shared secret handed to a print agent once, at
// printer registration.
func GenerateAgentKey() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand is not expected to fail; fall back to a timestamp key.
		return hex.EncodeToString([]byte(time.Now().String()))[:32]
	}
	return hex.EncodeToString(buf)
}
