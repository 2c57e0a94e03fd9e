package routes

import (
	"ppob-backend/internal/auth"
	"ppob-backend/internal/catalog"
	"ppob-backend/internal/handlers"
	"ppob-backend/internal/ledger"
	"ppob-backend/internal/middleware"
	"ppob-backend/internal/orders"

	"github.com/gin-gonic/gin"
)

// Deps: semua dependency yang dibutuhkan handler
type Deps struct {
	Env      string
	Store    ledger.Store
	Catalog  *catalog.Directory
	Orders   *orders.Service
	Verifier auth.Verifier
	// Local nil kalau login pakai Firebase
	Local    *auth.LocalDirectory
	Uploader handlers.ImageUploader

	CORSOrigins []string
	RateLimit   float64
	RateBurst   int
}

func SetupRoutes(r *gin.Engine, d Deps) {
	r.Use(middleware.CORSMiddleware(d.CORSOrigins...))

	orderH := handlers.NewOrderHandler(d.Orders)
	paymentH := handlers.NewPaymentHandler(d.Orders)
	ppobH := handlers.NewPPOBHandler(d.Catalog, d.Orders)
	authH := handlers.NewAuthHandler(d.Store, d.Local)
	adminH := handlers.NewAdminHandler(d.Store, d.Catalog)
	uploadH := handlers.NewUploadHandler(d.Uploader, d.Store)

	api := r.Group("/api")

	// Webhook Midtrans tidak kena rate limit
	api.POST("/midtrans/notification", paymentH.MidtransNotification)

	limited := api.Group("/")
	limited.Use(middleware.RateLimitMiddleware(d.RateLimit, d.RateBurst))
	{
		limited.GET("/health", handlers.Health(d.Env))

		// 1. PUBLIC ROUTES (katalog bisa dilihat tanpa login)
		ppob := limited.Group("/ppob")
		{
			ppob.GET("/providers", ppobH.GetProviders)
			ppob.GET("/detect-provider", ppobH.DetectProvider)
			ppob.GET("/products", ppobH.GetProducts)
			ppob.GET("/products/:id", ppobH.GetProduct)
		}

		if d.Local != nil {
			limited.POST("/auth/register", authH.Register)
			limited.POST("/auth/login", authH.Login)
		}

		// 2. PROTECTED ROUTES (Harus Login / Punya Token)
		protected := limited.Group("/")
		protected.Use(middleware.AuthMiddleware(d.Verifier, d.Store))
		{
			protected.GET("/auth/profile", authH.GetProfile)
			protected.POST("/auth/profile", authH.CreateProfile)
			protected.PATCH("/auth/profile", authH.UpdateProfile)

			// MODULE ORDER
			protected.POST("/orders/create", orderH.CreateOrder)
			protected.POST("/orders/create-with-points", orderH.CreateOrderWithPoints)
			protected.POST("/orders/:orderId/confirm-payment", orderH.ConfirmPayment)
			protected.GET("/orders/:orderId", orderH.GetOrder)
			protected.GET("/orders", orderH.ListOrders)

			// MODULE PPOB
			protected.POST("/ppob/transaction", ppobH.CreateTransaction)
			protected.GET("/ppob/transactions", ppobH.ListTransactions)
			protected.GET("/ppob/transactions/:id", ppobH.GetTransaction)

			// MODULE UPLOAD
			protected.POST("/upload/avatar", uploadH.UploadAvatar)
			protected.POST("/upload/banner", uploadH.UploadBanner)

			// Group Khusus Admin
			admin := protected.Group("/admin")
			admin.Use(middleware.AdminOnly())
			{
				admin.PATCH("/users/:uid/role", adminH.UpdateUserRole)
				admin.POST("/users/:uid/points", adminH.AdjustUserPoints)
				admin.GET("/products", adminH.ListProducts)
				admin.PATCH("/products/:id", adminH.UpdateProduct)
			}
		}
	}
}
