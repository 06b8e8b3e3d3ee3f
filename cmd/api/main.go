package main

import (
	"log"
	"os"

	_ "portal/api/swagger" // swagger docs
	"portal/internal/auth"
	"portal/internal/background"
	"portal/internal/database"
	"portal/internal/handler"
	"portal/internal/middleware"
	"portal/internal/repository"
	"portal/internal/service"
	"portal/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title           Back-Office Portal API
// @version         1.0
// @description     Authentication, session, scoped authorization and audit trail for the back-office portal.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	if err := godotenv.Load("configs/.env"); err != nil {
		log.Println("No configs/.env file found or error loading it")
	}

	dbHost := os.Getenv("DB_HOST")
	dbPort := os.Getenv("DB_PORT")
	dbUser := os.Getenv("DB_USER")
	dbPassword := os.Getenv("DB_PASSWORD")
	dbName := os.Getenv("DB_NAME")
	dbSslMode := os.Getenv("DB_SSLMODE")

	if dbHost == "" {
		dbHost = "localhost"
	}
	if dbPort == "" {
		dbPort = "5432"
	}
	if dbUser == "" {
		dbUser = "postgres"
	}
	if dbPassword == "" {
		dbPassword = "postgres"
	}
	if dbName == "" {
		dbName = "postgres"
	}
	if dbSslMode == "" {
		dbSslMode = "disable"
	}

	dsn := "postgres://" + dbUser + ":" + dbPassword + "@" + dbHost + ":" + dbPort + "/" + dbName + "?sslmode=" + dbSslMode

	db, err := database.NewConnection(dsn)
	if err != nil {
		log.Fatalf("Database connection failed: %v", err)
	}
	log.Println("Connected to PostgreSQL successfully.")

	if err := database.Seed(db); err != nil {
		log.Fatalf("Failed to seed roles and permissions: %v", err)
	}

	// Admin audit feed
	wsHub := websocket.NewHub()
	go wsHub.Run()

	// Fire-and-forget task dispatch
	tasks := background.NewDispatcher()

	// Set up dependencies (Repository -> Service -> Handler)
	userRepo := repository.NewUserRepository(db)
	tokenRepo := repository.NewRefreshTokenRepository(db)
	inviteRepo := repository.NewInviteRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	tenancyRepo := repository.NewTenancyRepository(db)
	txManager := repository.NewTransactionManager(db)

	tokenService := auth.NewTokenService(tokenRepo, userRepo, middleware.GetJWTSecret())
	auditService := service.NewAuditService(auditRepo, wsHub)
	userService := service.NewUserService(userRepo, tokenService, auditService, txManager)
	inviteService := service.NewInviteService(inviteRepo, userRepo, tenancyRepo, tokenService, auditService, txManager)
	activityService := service.NewActivityService(db, tenancyRepo)
	tenancyService := service.NewTenancyService(tenancyRepo, userRepo, auditService, activityService, tasks)

	middleware.Init(db, tokenService)

	// Initialize Handlers
	authHandler := handler.NewAuthHandler(userService, tokenService)
	staffHandler := handler.NewStaffHandler(userService)
	inviteHandler := handler.NewInviteHandler(inviteService)
	auditHandler := handler.NewAuditHandler(auditService)
	sectionHandler := handler.NewSectionHandler(tenancyService)
	orgHandler := handler.NewOrganizationHandler(tenancyService, activityService)

	// Set up Gin Router
	router := gin.Default()

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"http://localhost:5173", "http://127.0.0.1:5173"}
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "OK"})
	})

	// Admin audit feed endpoint
	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c, tokenService)
	})

	// Register API Routes
	authHandler.RegisterRoutes(router.Group(""))
	staffHandler.RegisterRoutes(router.Group(""))
	inviteHandler.RegisterRoutes(router.Group(""))
	auditHandler.RegisterRoutes(router.Group(""))
	sectionHandler.RegisterRoutes(router.Group(""))
	orgHandler.RegisterRoutes(router.Group(""))

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Server listening on :%s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
