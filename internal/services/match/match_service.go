package match

import (
	"log"
	"strconv"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/antonvlasov/badgeswap-api/internal/chatroom"
	"github.com/antonvlasov/badgeswap-api/internal/config"
	"github.com/antonvlasov/badgeswap-api/internal/db"
	"github.com/antonvlasov/badgeswap-api/internal/eventmatch"
	"github.com/antonvlasov/badgeswap-api/internal/models"
	"github.com/antonvlasov/badgeswap-api/internal/repository"
	"github.com/antonvlasov/badgeswap-api/internal/services/respond"
	"github.com/antonvlasov/badgeswap-api/internal/utils"
)

// MatchService представляет сервис мгновенного обмена на мероприятии.
// Подбор кандидатов делает внешний сервис, запуск чата — наш координатор
type MatchService struct {
	cfg         *config.Config
	matcher     *eventmatch.Client
	coordinator *chatroom.Coordinator
	jwtService  *utils.JWTService
}

// NewMatchService создает новый экземпляр MatchService
func NewMatchService(cfg *config.Config, store repository.Store) *MatchService {
	return &MatchService{
		cfg:         cfg,
		matcher:     eventmatch.NewClient(cfg.MatcherURL, ""),
		coordinator: chatroom.NewCoordinator(store),
		jwtService:  utils.NewJWTService(cfg.JWTSecret),
	}
}

// Search запрашивает у сервиса подбора страницу кандидатов по условиям обмена
func (s *MatchService) Search(c fiber.Ctx) error {
	if _, err := actorID(c); err != nil {
		return err
	}

	var requestData struct {
		EventID   string             `json:"event_id"`
		GiveItems []models.EventItem `json:"give_items"`
		WantItems []models.EventItem `json:"want_items"`
		Offset    int                `json:"offset"`
		Limit     int                `json:"limit"`
	}
	if err := c.Bind().Body(&requestData); err != nil {
		log.Printf("Ошибка декодирования тела запроса: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат данных"})
	}

	eventUUID, err := uuid.Parse(requestData.EventID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID мероприятия"})
	}

	criteria := &models.TradeCriteria{
		EventID:   eventUUID,
		GiveItems: requestData.GiveItems,
		WantItems: requestData.WantItems,
	}
	if err := criteria.Validate(); err != nil {
		return respond.Error(c, err)
	}

	// Страница задается в теле запроса, query-параметры — запасной вариант
	limit := requestData.Limit
	if limit == 0 {
		limit, _ = strconv.Atoi(c.Query("limit", "10"))
	}
	if limit < 1 || limit > 50 {
		limit = 10
	}
	offset := requestData.Offset
	if offset == 0 {
		offset, _ = strconv.Atoi(c.Query("offset", "0"))
	}
	if offset < 0 {
		offset = 0
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	page, err := s.matcher.Search(ctx, &eventmatch.SearchRequest{
		EventID:   eventUUID,
		GiveItems: requestData.GiveItems,
		WantItems: requestData.WantItems,
		Offset:    offset,
		Limit:     limit,
	})
	if err != nil {
		return respond.Error(c, err)
	}

	return c.JSON(page)
}

// StartChat запускает чат с выбранным кандидатом. Условия поиска
// материализуются в объявление мероприятия, оба объявления переходят в обмен
func (s *MatchService) StartChat(c fiber.Ctx) error {
	userUUID, err := actorID(c)
	if err != nil {
		return err
	}

	var requestData struct {
		EventID       string             `json:"event_id"`
		MatchedPostID string             `json:"matched_post_id"`
		GiveItems     []models.EventItem `json:"give_items"`
		WantItems     []models.EventItem `json:"want_items"`
	}
	if err := c.Bind().Body(&requestData); err != nil {
		log.Printf("Ошибка декодирования тела запроса: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат данных"})
	}

	eventUUID, err := uuid.Parse(requestData.EventID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID мероприятия"})
	}
	matchedUUID, err := uuid.Parse(requestData.MatchedPostID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID объявления"})
	}

	criteria := &models.TradeCriteria{
		EventID:   eventUUID,
		GiveItems: requestData.GiveItems,
		WantItems: requestData.WantItems,
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	room, err := s.coordinator.StartInstantChat(ctx, matchedUUID, userUUID, criteria)
	if err != nil {
		return respond.Error(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success":      true,
		"chat_room_id": room.ID,
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
