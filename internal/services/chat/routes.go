package chat

import (
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/antonvlasov/badgeswap-api/internal/middleware"
)

// SetupRoutes настраивает маршруты для API чатов
func (s *ChatService) SetupRoutes(app *fiber.App) {
	api := app.Group("/api/chats")

	api.Use(middleware.AuthMiddleware(s.jwtService))

	// Список чатов пользователя
	api.Get("/", s.GetChats)

	// Один чат
	api.Get("/:id", s.GetChat)

	// Сообщения чата
	api.Get("/:id/messages", s.GetMessages)

	// Отправка сообщения, с ограничением частоты
	api.Post("/:id/messages", s.SendMessage, s.limiter.Middleware("chat", 60, time.Minute))

	// Завершение обмена
	api.Post("/:id/complete", s.CompleteChat)

	// Отмена обмена
	api.Post("/:id/cancel", s.CancelChat)
}
