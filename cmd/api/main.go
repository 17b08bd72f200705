package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/yourusername/hosting-api/internal/config"
	"github.com/yourusername/hosting-api/internal/handler"
	"github.com/yourusername/hosting-api/internal/middleware"
	"github.com/yourusername/hosting-api/internal/provider"
	pgRepo "github.com/yourusername/hosting-api/internal/repository/postgres"
	redisRepo "github.com/yourusername/hosting-api/internal/repository/redis"
	"github.com/yourusername/hosting-api/internal/service"
	"github.com/yourusername/hosting-api/pkg/auth"
	"github.com/yourusername/hosting-api/pkg/auth/manager"
	"github.com/yourusername/hosting-api/pkg/database"
)

func main() {
	// Загружаем конфигурацию
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}
	log.Printf("Загрузка конфигурации из %s", configPath)

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Printf("Failed to load config: %v", err)
		os.Exit(1)
	}

	// Инициализируем подключение к PostgreSQL
	db, err := database.NewPostgresDB(
		cfg.Database.PostgresConnectionString(),
		cfg.Database.MaxOpenConns,
		cfg.Database.MaxIdleConns,
	)
	if err != nil {
		log.Printf("Failed to connect to database: %v", err)
		os.Exit(1)
	}

	// Применяем миграции (уникальные индексы users.email и
	// accounts(provider, provider_account_id) живут именно здесь)
	if err := database.MigrateDB(db, cfg.Database.MigrationsPath); err != nil {
		log.Printf("Failed to migrate database: %v", err)
		os.Exit(1)
	}

	// Инициализируем подключение к Redis
	redisClient, err := database.NewUniversalRedisClient(cfg.Redis)
	if err != nil {
		log.Printf("Failed to connect to Redis: %v", err)
		os.Exit(1)
	}
	log.Println("Successfully connected to Redis")

	// Репозитории
	userRepo := pgRepo.NewUserRepo(db)
	accountRepo := pgRepo.NewAccountRepo(db)

	stateRepo, err := redisRepo.NewOAuthStateRepo(redisClient)
	if err != nil {
		log.Printf("Failed to initialize OAuthStateRepo: %v", err)
		os.Exit(1)
	}
	verificationRepo, err := redisRepo.NewEmailVerificationRepo(redisClient)
	if err != nil {
		log.Printf("Failed to initialize EmailVerificationRepo: %v", err)
		os.Exit(1)
	}

	// --- Token Codec и Credential Extractor ---
	tokenService, err := auth.NewTokenService(cfg.JWT.Secret, cfg.JWT.Issuer)
	if err != nil {
		log.Printf("Failed to initialize TokenService: %v", err)
		os.Exit(1)
	}
	tokenManager, err := manager.NewTokenManager(tokenService)
	if err != nil {
		log.Printf("Failed to initialize TokenManager: %v", err)
		os.Exit(1)
	}
	tokenManager.SetTokenExpiry(cfg.JWT.AccessTTL, cfg.JWT.RefreshTTL)

	isProduction := gin.Mode() == gin.ReleaseMode
	tokenManager.SetProductionMode(isProduction)
	tokenManager.SetCookieDomain(cfg.Server.CookieDomain)

	// --- OAuth-провайдеры ---
	var providerList []provider.Provider
	if cfg.OAuth.Google.ClientID != "" {
		google, err := provider.NewGoogleProvider(provider.GoogleConfig{
			ClientID:     cfg.OAuth.Google.ClientID,
			ClientSecret: cfg.OAuth.Google.ClientSecret,
			RedirectURI:  cfg.OAuth.Google.RedirectURI,
		})
		if err != nil {
			log.Printf("Failed to initialize Google provider: %v", err)
			os.Exit(1)
		}
		providerList = append(providerList, google)
	}
	if cfg.OAuth.GitHub.ClientID != "" {
		github, err := provider.NewGitHubProvider(provider.GitHubConfig{
			ClientID:     cfg.OAuth.GitHub.ClientID,
			ClientSecret: cfg.OAuth.GitHub.ClientSecret,
			RedirectURI:  cfg.OAuth.GitHub.RedirectURI,
		})
		if err != nil {
			log.Printf("Failed to initialize GitHub provider: %v", err)
			os.Exit(1)
		}
		providerList = append(providerList, github)
	}
	providers := provider.NewRegistry(providerList...)
	log.Printf("Зарегистрированы OAuth-провайдеры: %v", providers.Names())

	// --- Сервисы ---
	linkingService, err := service.NewAccountLinkingService(userRepo, accountRepo)
	if err != nil {
		log.Printf("Failed to initialize AccountLinkingService: %v", err)
		os.Exit(1)
	}
	userService, err := service.NewUserService(userRepo, accountRepo)
	if err != nil {
		log.Printf("Failed to initialize UserService: %v", err)
		os.Exit(1)
	}

	var emailService service.EmailService
	if cfg.Email.Enabled {
		emailService, err = service.NewResendEmailService(cfg.Email.APIKey, cfg.Email.From, 15*time.Minute)
		if err != nil {
			log.Printf("Failed to initialize ResendEmailService: %v", err)
			os.Exit(1)
		}
	} else {
		emailService = &service.NoopEmailService{}
	}
	verificationService, err := service.NewEmailVerificationService(
		userRepo, verificationRepo, emailService,
		15*time.Minute, 60*time.Second, 5, cfg.Email.CodePepper,
	)
	if err != nil {
		log.Printf("Failed to initialize EmailVerificationService: %v", err)
		os.Exit(1)
	}

	// --- Middleware и обработчики ---
	authMiddleware := middleware.NewAuthMiddleware(tokenService, tokenManager, userRepo)
	oauthHandler := handler.NewOAuthHandler(providers, stateRepo, linkingService, tokenManager, cfg.Frontend.BaseURL)
	userHandler := handler.NewUserHandler(userService, verificationService)

	router := gin.Default()

	// Настройка CORS: панель ходит с куками
	allowedOrigins := cfg.CORS.AllowedOrigins
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{cfg.Frontend.BaseURL}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Настраиваем маршруты API
	api := router.Group("/api")
	{
		authGroup := api.Group("/auth")
		{
			authGroup.GET("/:provider/login", oauthHandler.Login)
			authGroup.GET("/:provider/callback", oauthHandler.Callback)
			authGroup.POST("/logout", oauthHandler.Logout)
		}

		// Анонимно-безопасная проба сессии
		api.GET("/session", authMiddleware.OptionalAuth(), userHandler.Session)

		users := api.Group("/users")
		users.Use(authMiddleware.RequireAuth())
		{
			users.GET("/me", userHandler.GetMe)
			users.POST("/me/verify-email", userHandler.SendVerificationCode)
			users.POST("/me/verify-email/confirm", userHandler.ConfirmVerificationCode)
		}

		admin := api.Group("/admin")
		admin.Use(authMiddleware.AdminOnly())
		{
			admin.GET("/users", userHandler.ListUsers)
			admin.PUT("/users/:id/role", userHandler.ChangeRole)
		}

		support := api.Group("/support")
		support.Use(authMiddleware.SupportOrAdmin())
		{
			support.GET("/users/:id", userHandler.GetUser)
		}
	}

	// HTTP сервер с тайм-аутами для защиты от slow client attacks
	readTimeout := cfg.Server.ReadTimeout
	if readTimeout <= 0 {
		readTimeout = 15
	}
	writeTimeout := cfg.Server.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = 15
	}
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(readTimeout) * time.Second,
		WriteTimeout: time.Duration(writeTimeout) * time.Second,
	}

	// Запускаем сервер в горутине
	go func() {
		log.Printf("Starting server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Failed to start server: %v", err)
		}
	}()

	log.Printf("Server started on port %s", cfg.Server.Port)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
		os.Exit(1)
	}

	if err := redisClient.Close(); err != nil {
		log.Printf("Error closing Redis client: %v", err)
	}

	log.Println("Server exited properly")
}
