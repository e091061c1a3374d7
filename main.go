package main

import (
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"gorm.io/gorm"

	"github.com/tablemate/scanorder/config"
	"github.com/tablemate/scanorder/middlewares"
	"github.com/tablemate/scanorder/models"
	"github.com/tablemate/scanorder/router"
	"github.com/tablemate/scanorder/utils"
	"github.com/tablemate/scanorder/ws"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found: %v", err)
	}

	utils.InitLogger()

	db, err := config.InitDB()
	if err != nil {
		utils.ErrorLogger.Fatalf("Failed to connect to database: %v", err)
	}
	if os.Getenv("GIN_MODE") == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	autoMigrate(db)

	hub := ws.NewHub()

	r := router.SetupRouter(db, hub)
	rateLimiter := middlewares.NewRateLimiter(50, 1)
	r.Use(rateLimiter.RateLimit())

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	utils.InfoLogger.Printf("Listening on port %s", port)
	if err := r.Run(":" + port); err != nil {
		utils.ErrorLogger.Fatal(err)
	}
}

func autoMigrate(db *gorm.DB) {
	err := db.AutoMigrate(
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
		utils.ErrorLogger.Fatalf("Failed to AutoMigrate: %v", err)
	}
	utils.InfoLogger.Println("AutoMigrate completed.")
}
