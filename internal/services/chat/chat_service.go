package chat

import (
	"context"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/antonvlasov/badgeswap-api/internal/cache"
	"github.com/antonvlasov/badgeswap-api/internal/chatroom"
	"github.com/antonvlasov/badgeswap-api/internal/config"
	"github.com/antonvlasov/badgeswap-api/internal/db"
	"github.com/antonvlasov/badgeswap-api/internal/models"
	"github.com/antonvlasov/badgeswap-api/internal/ratelimit"
	"github.com/antonvlasov/badgeswap-api/internal/repository"
	"github.com/antonvlasov/badgeswap-api/internal/services/respond"
	"github.com/antonvlasov/badgeswap-api/internal/utils"
	"github.com/antonvlasov/badgeswap-api/internal/websocket"
)

// ChatService представляет сервис для работы с чатами
type ChatService struct {
	cfg         *config.Config
	coordinator *chatroom.Coordinator
	limiter     *ratelimit.Limiter
	wsManager   *websocket.Manager
	jwtService  *utils.JWTService
}

// NewChatService создает новый экземпляр ChatService
func NewChatService(cfg *config.Config, store repository.Store, cacheClient *cache.Client, wsManager *websocket.Manager) *ChatService {
	return &ChatService{
		cfg:         cfg,
		coordinator: chatroom.NewCoordinator(store),
		limiter:     ratelimit.New(cacheClient),
		wsManager:   wsManager,
		jwtService:  utils.NewJWTService(cfg.JWTSecret),
	}
}

// GetChats возвращает список чатов текущего пользователя
func (s *ChatService) GetChats(c fiber.Ctx) error {
	userUUID, err := actorID(c)
	if err != nil {
		return err
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	rooms, err := s.coordinator.ListRooms(ctx, userUUID)
	if err != nil {
		return respond.Error(c, err)
	}

	return c.JSON(fiber.Map{
		"chats": rooms,
		"count": len(rooms),
	})
}

// GetChat возвращает один чат с данными объявлений и собеседника
func (s *ChatService) GetChat(c fiber.Ctx) error {
	userUUID, err := actorID(c)
	if err != nil {
		return err
	}

	roomUUID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID чата"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	room, err := s.coordinator.GetRoom(ctx, roomUUID, userUUID)
	if err != nil {
		return respond.Error(c, err)
	}

	return c.JSON(fiber.Map{"chat": room})
}

// GetMessages возвращает сообщения чата и отмечает входящие прочитанными
func (s *ChatService) GetMessages(c fiber.Ctx) error {
	userUUID, err := actorID(c)
	if err != nil {
		return err
	}

	roomUUID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID чата"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	messages, err := s.coordinator.ListMessages(ctx, roomUUID, userUUID)
	if err != nil {
		return respond.Error(c, err)
	}

	return c.JSON(fiber.Map{
		"messages": messages,
		"count":    len(messages),
	})
}

// SendMessage отправляет сообщение в чат
func (s *ChatService) SendMessage(c fiber.Ctx) error {
	userUUID, err := actorID(c)
	if err != nil {
		return err
	}

	roomUUID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID чата"})
	}

	var requestData struct {
		Message string `json:"message"`
		// text — прежнее имя поля, старые клиенты еще шлют его
		Text string `json:"text"`
	}
	if err := c.Bind().Body(&requestData); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат данных"})
	}
	text := requestData.Message
	if text == "" {
		text = requestData.Text
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	msg, err := s.coordinator.PostMessage(ctx, roomUUID, userUUID, text)
	if err != nil {
		return respond.Error(c, err)
	}

	s.notifyRoom(ctx, websocket.EventNewMessage, roomUUID, msg, userUUID)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": msg,
	})
}

// CompleteChat завершает обмен
func (s *ChatService) CompleteChat(c fiber.Ctx) error {
	return s.finish(c, s.coordinator.Complete, websocket.EventRoomCompleted)
}

// CancelChat отменяет обмен
func (s *ChatService) CancelChat(c fiber.Ctx) error {
	return s.finish(c, s.coordinator.Cancel, websocket.EventRoomCancelled)
}

func (s *ChatService) finish(c fiber.Ctx, fn finishFunc, eventType websocket.EventType) error {
	userUUID, err := actorID(c)
	if err != nil {
		return err
	}

	roomUUID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID чата"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	room, err := fn(ctx, roomUUID, userUUID)
	if err != nil {
		return respond.Error(c, err)
	}

	s.wsManager.NotifyRoomEvent(eventType, room.ID, fiber.Map{"status": room.Status},
		room.User1ID.String(), room.User2ID.String())

	return c.JSON(fiber.Map{
		"success": true,
		"chat_id": room.ID,
		"status":  room.Status,
	})
}

// notifyRoom уведомляет второго участника чата о новом сообщении
func (s *ChatService) notifyRoom(ctx context.Context, eventType websocket.EventType, roomID uuid.UUID, payload any, sender uuid.UUID) {
	room, err := s.coordinator.GetRoom(ctx, roomID, sender)
	if err != nil {
		return
	}
	other := room.OtherParticipant(sender)
	s.wsManager.NotifyRoomEvent(eventType, roomID, payload, other.String())
}

type finishFunc = func(ctx context.Context, roomID, actor uuid.UUID) (*models.ChatRoom, error)

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
