package services

import (
	"os"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/tablemate/scanorder/models"
	"github.com/tablemate/scanorder/utils"
	"github.com/tablemate/scanorder/ws"
)

func TestMain(m *testing.M) {
	utils.InitLogger()
	os.Exit(m.Run())
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open in-memory sqlite: %v", err)
	}
	err = db.AutoMigrate(
		&models.Store{},
		&models.User{},
		&models.Table{},
		&models.Product{},
		&models.DiningSession{},
		&models.CartItem{},
		&models.Order{},
		&models.OrderItem{},
		&models.Printer{},
		&models.PrintJob{},
		&models.TableMoveLog{},
	)
	if err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

func seedStore(t *testing.T, db *gorm.DB, autoPrint bool) models.Store {
	t.Helper()
	store := models.Store{Name: "Golden Wok", AutoPrintReceiptOnSettle: autoPrint}
	if err := db.Create(&store).Error; err != nil {
		t.Fatalf("seed store: %v", err)
	}
	return store
}

func seedTable(t *testing.T, db *gorm.DB, storeID, name string) models.Table {
	t.Helper()
	table := models.Table{StoreID: storeID, Name: name, IsActive: true}
	if err := db.Create(&table).Error; err != nil {
		t.Fatalf("seed table: %v", err)
	}
	return table
}

func seedProduct(t *testing.T, db *gorm.DB, storeID, name string, price int64) models.Product {
	t.Helper()
	product := models.Product{StoreID: storeID, Name: name, Price: price, IsOnSale: true}
	if err := db.Create(&product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return product
}

func seedPrinter(t *testing.T, db *gorm.DB, storeID string) models.Printer {
	t.Helper()
	printer := models.Printer{StoreID: storeID, Name: "Front Desk", AgentKey: "test-agent-key", IsActive: true}
	if err := db.Create(&printer).Error; err != nil {
		t.Fatalf("seed printer: %v", err)
	}
	return printer
}

// newServices wires the full service stack over one test database and an
// empty hub.
func newServices(db *gorm.DB) (*SessionService, *CartService, *OrderService, *PrintService) {
	hub := ws.NewHub()
	printSvc := NewPrintService(db)
	cartSvc := NewCartService(db, hub)
	sessionSvc := NewSessionService(db, hub, printSvc)
	orderSvc := NewOrderService(db, hub, cartSvc, printSvc)
	return sessionSvc, cartSvc, orderSvc, printSvc
}

func currentCartVersion(t *testing.T, db *gorm.DB, sessionID string) int64 {
	t.Helper()
	var session models.DiningSession
	if err := db.First(&session, "id = ?", sessionID).Error; err != nil {
		t.Fatalf("load session: %v", err)
	}
	return session.CartVersion
}
