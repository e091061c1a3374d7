package router

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/tablemate/scanorder/controllers"
	"github.com/tablemate/scanorder/middlewares"
	"github.com/tablemate/scanorder/services"
	"github.com/tablemate/scanorder/ws"
)

// SetupRouter wires the three surfaces: the customer ordering client, the
// staff console and the print agent.
func SetupRouter(db *gorm.DB, hub *ws.Hub) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middlewares.LoggerMiddleware(), middlewares.CORSMiddlewares())

	printSvc := services.NewPrintService(db)
	cartSvc := services.NewCartService(db, hub)
	sessionSvc := services.NewSessionService(db, hub, printSvc)
	orderSvc := services.NewOrderService(db, hub, cartSvc, printSvc)

	authCtrl := controllers.NewAuthController(db)
	tableCtrl := controllers.NewTableController(db, sessionSvc)
	cartCtrl := controllers.NewCartController(cartSvc)
	orderCtrl := controllers.NewOrderController(orderSvc)
	sessionCtrl := controllers.NewSessionController(db, sessionSvc, printSvc)
	printCtrl := controllers.NewPrintController(db, printSvc)
	wsCtrl := controllers.NewWSController(db, hub, cartSvc, sessionSvc)

	api := r.Group("/api")

	// Customer ordering client.
	mp := api.Group("/mp")
	{
		mp.GET("/table/resolve", tableCtrl.Resolve)
		mp.POST("/table/session/start", tableCtrl.StartSession)
		mp.GET("/table/session/check", tableCtrl.CheckSession)

		mp.GET("/cart", cartCtrl.GetCart)
		mp.POST("/cart/set-qty", cartCtrl.SetQty)
		mp.POST("/cart/clear", cartCtrl.Clear)

		mp.POST("/order/create", orderCtrl.CreateOrder)
		mp.GET("/order/list", orderCtrl.ListOrders)
		mp.GET("/order/:order_id", orderCtrl.GetOrderByID)

		mp.GET("/ws", wsCtrl.CustomerWS)
	}

	// Staff console.
	admin := api.Group("/admin")
	{
		admin.POST("/login", middlewares.NewStrictRateLimiter(), authCtrl.Login)
		admin.GET("/ws", middlewares.WebSocketAuthMiddleware(), wsCtrl.StaffWS)

		authed := admin.Group("", middlewares.AuthMiddleware())
		{
			authed.GET("/session/list", sessionCtrl.ListSessions)
			authed.GET("/session/detail", sessionCtrl.SessionDetail)
			authed.PUT("/session/:session_id/settle", sessionCtrl.SettleSession)
			authed.POST("/session/:session_id/move-table", sessionCtrl.MoveSession)
			authed.POST("/session/batch-delete", sessionCtrl.BatchDeleteSessions)
			authed.POST("/session/:session_id/print/bill", sessionCtrl.PrintBill)
			authed.POST("/session/:session_id/print/receipt", sessionCtrl.PrintReceipt)

			authed.POST("/printers", printCtrl.CreatePrinter)
			authed.GET("/printers", printCtrl.ListPrinters)
			authed.GET("/print/jobs", printCtrl.ListJobs)
			authed.POST("/print/jobs/:job_id/retry", printCtrl.RetryJob)
		}
	}

	// Print agent.
	agent := api.Group("/agent/print")
	{
		agent.POST("/pull", printCtrl.AgentPull)
		agent.POST("/report", printCtrl.AgentReport)
	}

	return r
}
