// Package respond переводит ошибки предметной области в HTTP-ответы
package respond

import (
	"log"

	"github.com/gofiber/fiber/v3"

	"github.com/antonvlasov/badgeswap-api/internal/apperr"
)

// Error отправляет ошибку клиенту. Конфликты статусов отдаются с 409:
// проигранная гонка принятия — не сбой, правильное действие — обновить
// страницу, а не повторять запрос
func Error(c fiber.Ctx, err error) error {
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": apperr.MessageOf(err)})
	case apperr.KindForbidden, apperr.KindRoomClosed:
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": apperr.MessageOf(err)})
	case apperr.KindNotFound:
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": apperr.MessageOf(err)})
	case apperr.KindInvalidState, apperr.KindInvalidTransition:
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": apperr.MessageOf(err)})
	case apperr.KindTransport:
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": apperr.MessageOf(err)})
	default:
		log.Printf("Внутренняя ошибка: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Внутренняя ошибка сервера"})
	}
}
