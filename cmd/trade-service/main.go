package main

import (
	"log"
	"net/http"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"

	"github.com/antonvlasov/badgeswap-api/internal/cache"
	"github.com/antonvlasov/badgeswap-api/internal/config"
	"github.com/antonvlasov/badgeswap-api/internal/db"
	"github.com/antonvlasov/badgeswap-api/internal/repository/postgres"
	"github.com/antonvlasov/badgeswap-api/internal/services/auth"
	"github.com/antonvlasov/badgeswap-api/internal/services/chat"
	"github.com/antonvlasov/badgeswap-api/internal/services/match"
	"github.com/antonvlasov/badgeswap-api/internal/services/offer"
	"github.com/antonvlasov/badgeswap-api/internal/services/post"
	"github.com/antonvlasov/badgeswap-api/internal/services/upload"
	"github.com/antonvlasov/badgeswap-api/internal/websocket"
)

func main() {
	// Загружаем конфигурацию
	cfg := config.LoadConfig()

	// Инициализируем базу данных
	if err := db.InitDB(cfg); err != nil {
		log.Fatalf("❌ Ошибка при инициализации базы данных: %v", err)
	}
	defer db.CloseDB()

	// Инициализируем Redis
	cacheClient, err := cache.New(cfg.RedisConfig)
	if err != nil {
		log.Fatalf("❌ Ошибка при подключении к Redis: %v", err)
	}
	defer cacheClient.Close()

	// Хранилище поверх пула подключений
	store := postgres.NewStore(db.Pool)

	// Создаём экземпляр Fiber
	app := fiber.New(fiber.Config{
		AppName:      "BadgeSwap API",
		ErrorHandler: errorHandler,
	})

	// Добавляем middleware
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowCredentials: false,
	}))

	// Менеджер WebSocket-уведомлений
	wsManager := websocket.NewManager()

	// Создаём сервисы
	authService := auth.NewAuthService(cfg, store)
	postService := post.NewPostService(cfg, store)
	offerService := offer.NewOfferService(cfg, store, cacheClient)
	chatService := chat.NewChatService(cfg, store, cacheClient, wsManager)
	matchService := match.NewMatchService(cfg, store)
	uploadService := upload.NewUploadService(cfg)

	// Регистрируем маршруты
	app.Get("/health", healthHandler)
	authService.SetupRoutes(app)
	postService.SetupPublicRoutes(app)
	postService.SetupRoutes(app)
	offerService.SetupRoutes(app)
	chatService.SetupRoutes(app)
	matchService.SetupRoutes(app)
	uploadService.SetupRoutes(app)

	// WebSocket живет на отдельном слушателе: gorilla/websocket работает
	// поверх net/http, а не fasthttp
	go func() {
		mux := http.NewServeMux()
		mux.HandleFunc("/ws", websocket.Handler(wsManager, authService.GetJWTService()))
		log.Printf("✅ WebSocket слушатель запущен на %s", cfg.WSAddr)
		if err := http.ListenAndServe(cfg.WSAddr, mux); err != nil {
			log.Fatalf("❌ Ошибка WebSocket слушателя: %v", err)
		}
	}()

	// Запускаем сервер
	log.Printf("✅ BadgeSwap API запущен на порту %s", cfg.Port)
	log.Fatal(app.Listen(":" + cfg.Port))
}

// healthHandler отвечает на проверку живости
func healthHandler(c fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// errorHandler обрабатывает ошибки Fiber
func errorHandler(c fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	// Проверяем, является ли ошибка из Fiber
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	// Отправляем ошибку в JSON
	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
	})
}
