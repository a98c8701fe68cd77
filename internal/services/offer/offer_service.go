package offer

import (
	"log"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/antonvlasov/badgeswap-api/internal/cache"
	"github.com/antonvlasov/badgeswap-api/internal/config"
	"github.com/antonvlasov/badgeswap-api/internal/db"
	"github.com/antonvlasov/badgeswap-api/internal/negotiation"
	"github.com/antonvlasov/badgeswap-api/internal/ratelimit"
	"github.com/antonvlasov/badgeswap-api/internal/repository"
	"github.com/antonvlasov/badgeswap-api/internal/services/respond"
	"github.com/antonvlasov/badgeswap-api/internal/utils"
)

// OfferService представляет сервис для работы с предложениями под объявлениями
type OfferService struct {
	cfg        *config.Config
	engine     *negotiation.Engine
	limiter    *ratelimit.Limiter
	jwtService *utils.JWTService
}

// NewOfferService создает новый экземпляр OfferService
func NewOfferService(cfg *config.Config, store repository.Store, cacheClient *cache.Client) *OfferService {
	return &OfferService{
		cfg:        cfg,
		engine:     negotiation.NewEngine(store),
		limiter:    ratelimit.New(cacheClient),
		jwtService: utils.NewJWTService(cfg.JWTSecret),
	}
}

// CreateOffer обрабатывает создание комментария или предложения обмена
func (s *OfferService) CreateOffer(c fiber.Ctx) error {
	userUUID, err := actorID(c)
	if err != nil {
		return err
	}

	postUUID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID объявления"})
	}

	var requestData struct {
		Content       string `json:"content"`
		RelatedPostID string `json:"related_post_id"`
	}

	if err := c.Bind().Body(&requestData); err != nil {
		log.Printf("Ошибка декодирования тела запроса: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат данных"})
	}

	var relatedPostID *uuid.UUID
	if requestData.RelatedPostID != "" {
		relatedUUID, err := uuid.Parse(requestData.RelatedPostID)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID встречного объявления"})
		}
		relatedPostID = &relatedUUID
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	offer, err := s.engine.CreateOffer(ctx, postUUID, userUUID, requestData.Content, relatedPostID)
	if err != nil {
		return respond.Error(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"offer":   offer,
	})
}

// GetOffers возвращает ветку комментариев и предложений под объявлением
func (s *OfferService) GetOffers(c fiber.Ctx) error {
	postUUID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID объявления"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	offers, err := s.engine.ListOffers(ctx, postUUID)
	if err != nil {
		return respond.Error(c, err)
	}

	return c.JSON(fiber.Map{
		"offers": offers,
		"count":  len(offers),
	})
}

// AcceptOffer принимает предложение обмена. Оба объявления переходят в
// обмен, создается чат, остальные предложения на встречное объявление
// отклоняются
func (s *OfferService) AcceptOffer(c fiber.Ctx) error {
	userUUID, err := actorID(c)
	if err != nil {
		return err
	}

	postUUID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID объявления"})
	}

	offerUUID, err := uuid.Parse(c.Params("offerId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID предложения"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	result, err := s.engine.Accept(ctx, postUUID, offerUUID, userUUID)
	if err != nil {
		return respond.Error(c, err)
	}

	return c.JSON(fiber.Map{
		"success":         true,
		"my_post_id":      result.MyPostID,
		"partner_post_id": result.PartnerPostID,
		"chat_room_id":    result.ChatRoomID,
	})
}

// RejectOffer отклоняет предложение обмена
func (s *OfferService) RejectOffer(c fiber.Ctx) error {
	userUUID, err := actorID(c)
	if err != nil {
		return err
	}

	postUUID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID объявления"})
	}

	offerUUID, err := uuid.Parse(c.Params("offerId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID предложения"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	offer, err := s.engine.Reject(ctx, postUUID, offerUUID, userUUID)
	if err != nil {
		return respond.Error(c, err)
	}

	return c.JSON(fiber.Map{
		"success":    true,
		"comment_id": offer.ID,
		"status":     offer.Status,
	})
}

func actorID(c fiber.Ctx) (uuid.UUID, error) {
	userID, _ := c.Locals("userID").(string)
	if userID == "" {
		return uuid.Nil, fiber.NewError(fiber.StatusUnauthorized, "Пользователь не авторизован")
	}

	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return uuid.Nil, fiber.NewError(fiber.StatusBadRequest, "Неверный формат ID пользователя")
	}
	return userUUID, nil
}
