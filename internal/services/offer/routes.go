package offer

import (
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/antonvlasov/badgeswap-api/internal/middleware"
)

// SetupRoutes настраивает маршруты для API предложений
func (s *OfferService) SetupRoutes(app *fiber.App) {
	api := app.Group("/api/posts/:id/offers")

	api.Use(middleware.AuthMiddleware(s.jwtService))

	// Создание комментария или предложения, с ограничением частоты
	api.Post("/", s.CreateOffer, s.limiter.Middleware("offer", 20, time.Minute))

	// Ветка комментариев и предложений под объявлением
	api.Get("/", s.GetOffers)

	// Принятие предложения
	api.Post("/:offerId/accept", s.AcceptOffer)

	// Отклонение предложения
	api.Post("/:offerId/reject", s.RejectOffer)
}
