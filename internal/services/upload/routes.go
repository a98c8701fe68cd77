package upload

import (
	"github.com/gofiber/fiber/v3"

	"github.com/antonvlasov/badgeswap-api/internal/middleware"
)

// SetupRoutes настраивает маршруты для API загрузки изображений
func (s *UploadService) SetupRoutes(app *fiber.App) {
	api := app.Group("/api/upload")

	api.Use(middleware.AuthMiddleware(s.jwtService))

	// Подписанные параметры для прямой загрузки в Cloudinary
	api.Get("/params", s.GenerateUploadParams)
}
