package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/antonvlasov/badgeswap-api/internal/utils"
)

const bearerPrefix = "Bearer "

// AuthMiddleware проверяет JWT из заголовка Authorization и кладет
// идентификатор пользователя в c.Locals("userID")
func AuthMiddleware(jwtService *utils.JWTService) fiber.Handler {
	return func(c fiber.Ctx) error {
		token, ok := strings.CutPrefix(c.Get("Authorization"), bearerPrefix)
		if !ok || token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Требуется заголовок Authorization: Bearer <токен>",
			})
		}

		userID, err := jwtService.ExtractUserID(token)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Недействительный или истекший токен",
			})
		}

		// Дальше по коду userID разбирается как UUID, отсекаем мусор сразу
		if _, err := uuid.Parse(userID); err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Неверный идентификатор пользователя",
			})
		}

		c.Locals("userID", userID)
		return c.Next()
	}
}
