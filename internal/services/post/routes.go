package post

import (
	"github.com/gofiber/fiber/v3"

	"github.com/antonvlasov/badgeswap-api/internal/middleware"
)

// SetupRoutes настраивает маршруты для API объявлений
func (s *PostService) SetupRoutes(app *fiber.App) {
	// Группа для API объявлений
	api := app.Group("/api/posts")

	// Защищенные маршруты (требуют авторизации)
	api.Use(middleware.AuthMiddleware(s.jwtService))

	// Маршрут для создания объявления
	api.Post("/", s.CreatePost)

	// Маршрут для получения списка своих объявлений
	api.Get("/my", s.GetMyPosts)

	// Маршрут для получения одного объявления по ID
	api.Get("/:id", s.GetPost)

	// Маршрут для обновления объявления
	api.Put("/:id", s.UpdatePost)

	// Маршрут для удаления объявления
	api.Delete("/:id", s.DeletePost)

	// Маршрут для скрытия объявления из публикации
	api.Post("/:id/private", s.SetPrivate)

	// Маршрут для возврата объявления в публикацию
	api.Post("/:id/republish", s.Republish)
}

// SetupPublicRoutes настраивает публичные маршруты для объявлений
func (s *PostService) SetupPublicRoutes(app *fiber.App) {
	// Публичный список активных объявлений
	app.Get("/api/posts", s.GetPublicPosts)
}
