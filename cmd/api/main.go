package main

import (
	"log"
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/quickride/quickride-backend/internal/database"
	"github.com/quickride/quickride-backend/internal/handlers"
	"github.com/quickride/quickride-backend/internal/matching"
	"github.com/quickride/quickride-backend/internal/middleware"
	"github.com/quickride/quickride-backend/internal/models"
	"github.com/quickride/quickride-backend/internal/services"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	db, err := database.InitDB()
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	// Get underlying SQL DB instance
	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("Failed to get database instance: %v", err)
	}

	// Configure connection pool
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	// Initialize Redis
	if err := services.InitRedis(); err != nil {
		log.Fatalf("Failed to initialize Redis: %v", err)
	}

	// Initialize Firebase (optional - will log warning if not configured)
	if err := services.InitFirebase(); err != nil {
		log.Printf("Firebase initialization warning: %v", err)
	}

	// Initialize Storage (S3 or local fallback)
	if err := services.InitStorage(); err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}

	// Initialize WebSocket hub
	hub := services.NewHub()
	go hub.Run()

	notifier := services.NewNotifier(db, hub)
	matcher := matching.NewService(matching.NewGormStore(db), notifier, matching.LoadConfig())

	// Initialize router
	r := gin.Default()

	// Configure CORS
	config := cors.DefaultConfig()
	config.AllowOrigins = []string{"*"}
	config.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	r.Use(cors.New(config))

	// Serve static files
	r.Static("/uploads", "/app/uploads")

	// Routes
	api := r.Group("/api")
	{
		// Public routes
		auth := api.Group("/auth")
		{
			auth.POST("/register", handlers.Register(db))
			auth.POST("/login", handlers.Login(db))
		}

		// WebSocket connection
		api.GET("/ws", middleware.AuthMiddleware(), handlers.WebSocketHandler(hub))

		// Protected routes
		protected := api.Group("/")
		protected.Use(middleware.AuthMiddleware())
		{
			// User routes
			users := protected.Group("/users")
			{
				users.GET("/profile", handlers.GetProfile(db))
				users.PUT("/profile", handlers.UpdateProfile(db))
				users.POST("/avatar", handlers.UploadAvatar(db))
			}

			// Driver location and presence routes
			driver := protected.Group("/driver")
			driver.Use(middleware.RequireUserType(string(models.UserTypeDriver)))
			{
				driver.POST("/location", handlers.ReportLocation(db, hub))
				driver.POST("/status", handlers.UpdateDriverStatus(db))
				driver.GET("/rides", handlers.GetDriverRideHistory(db))
			}

			// Vehicle fleet routes
			vehicles := protected.Group("/vehicles")
			vehicles.Use(middleware.RequireUserType(string(models.UserTypeDriver)))
			{
				vehicles.POST("", handlers.RegisterVehicle(db))
				vehicles.GET("", handlers.GetMyVehicles(db))
				vehicles.PUT("/:vehicleId", handlers.UpdateVehicle(db))
				vehicles.DELETE("/:vehicleId", handlers.RemoveVehicle(db))
			}

			// Discovery and live tracking
			drivers := protected.Group("/drivers")
			{
				drivers.GET("/nearby", handlers.GetNearbyDrivers(matcher))
				drivers.GET("/:driverId/location", handlers.GetDriverLiveLocation(db))
			}

			// Ride request routes
			requests := protected.Group("/ride-requests")
			{
				requests.GET("/estimate", handlers.EstimateFareQuote())
				requests.POST("", handlers.CreateRideRequest(db, matcher, hub))
				requests.GET("", handlers.ListMyRideRequests(db))
				requests.GET("/:requestId", handlers.GetRideRequest(db))
				requests.POST("/:requestId/cancel", handlers.CancelRideRequest(db, hub, notifier))
				requests.POST("/:requestId/accept", handlers.AcceptRide(db, hub, notifier))
			}

			// Ride lifecycle routes
			rides := protected.Group("/rides")
			{
				rides.GET("/:rideId", handlers.GetRide(db))
				rides.POST("/:rideId/pickup", handlers.PickupRider(db, hub, notifier))
				rides.POST("/:rideId/start", handlers.StartRide(db, hub, notifier))
				rides.POST("/:rideId/complete", handlers.CompleteRide(db, hub, notifier))
				rides.POST("/:rideId/cancel", handlers.CancelRideByDriver(db, hub, notifier))
				rides.POST("/:rideId/rate", handlers.RateRide(db))
			}

			// Notification routes
			notifications := protected.Group("/notifications")
			{
				notifications.GET("", handlers.ListNotifications(db))
				notifications.POST("/:notificationId/read", handlers.MarkNotificationRead(db))
				notifications.POST("/read-all", handlers.MarkAllNotificationsRead(db))
				notifications.POST("/register-token", handlers.RegisterFCMToken(db))
				notifications.DELETE("/remove-token", handlers.RemoveFCMToken(db))
				notifications.GET("/preferences", handlers.GetNotificationPreferences(db))
				notifications.PUT("/preferences", handlers.UpdateNotificationPreferences(db))
			}

			// Admin routes
			admin := protected.Group("/admin")
			admin.Use(middleware.RequireUserType(string(models.UserTypeAdmin)))
			{
				admin.GET("/ride-requests", handlers.ListAllRideRequests(db))
				admin.GET("/rides", handlers.ListAllRides(db))
			}
		}
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	if err := r.Run(":" + port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
