package match

import (
	"github.com/gofiber/fiber/v3"

	"github.com/antonvlasov/badgeswap-api/internal/middleware"
)

// SetupRoutes настраивает маршруты для API мгновенного обмена
func (s *MatchService) SetupRoutes(app *fiber.App) {
	api := app.Group("/api/event-matches")

	api.Use(middleware.AuthMiddleware(s.jwtService))

	// Поиск кандидатов по условиям обмена
	api.Post("/search", s.Search)

	// Запуск чата с выбранным кандидатом
	api.Post("/start-chat", s.StartChat)
}
