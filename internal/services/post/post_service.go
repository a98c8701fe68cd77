package post

import (
	"context"
	"log"
	"strconv"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/antonvlasov/badgeswap-api/internal/apperr"
	"github.com/antonvlasov/badgeswap-api/internal/config"
	"github.com/antonvlasov/badgeswap-api/internal/db"
	"github.com/antonvlasov/badgeswap-api/internal/lifecycle"
	"github.com/antonvlasov/badgeswap-api/internal/models"
	"github.com/antonvlasov/badgeswap-api/internal/repository"
	"github.com/antonvlasov/badgeswap-api/internal/services/respond"
	"github.com/antonvlasov/badgeswap-api/internal/utils"
)

// PostService представляет сервис для работы с объявлениями
type PostService struct {
	cfg        *config.Config
	store      repository.Store
	engine     *lifecycle.Engine
	jwtService *utils.JWTService
}

// NewPostService создает новый экземпляр PostService
func NewPostService(cfg *config.Config, store repository.Store) *PostService {
	return &PostService{
		cfg:        cfg,
		store:      store,
		engine:     lifecycle.NewEngine(store),
		jwtService: utils.NewJWTService(cfg.JWTSecret),
	}
}

// CreatePost обрабатывает создание нового объявления
func (s *PostService) CreatePost(c fiber.Ctx) error {
	userUUID, err := actorID(c)
	if err != nil {
		return err
	}

	var requestData struct {
		GiveDescription string             `json:"give_description"`
		WantDescription string             `json:"want_description"`
		EventID         string             `json:"event_id"`
		ZoneCode        string             `json:"zone_code"`
		Images          []models.PostImage `json:"images"`
	}

	if err := c.Bind().Body(&requestData); err != nil {
		log.Printf("Ошибка декодирования тела запроса: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат данных"})
	}

	if requestData.GiveDescription == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Опишите, что вы отдаете"})
	}
	if requestData.WantDescription == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Опишите, что вы хотите взамен"})
	}

	post := &models.Post{
		ID:              uuid.New(),
		OwnerID:         userUUID,
		GiveDescription: requestData.GiveDescription,
		WantDescription: requestData.WantDescription,
		Status:          models.PostStatusActive,
		ZoneCode:        requestData.ZoneCode,
		Images:          requestData.Images,
	}

	if requestData.EventID != "" {
		eventUUID, err := uuid.Parse(requestData.EventID)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID мероприятия"})
		}
		post.EventID = &eventUUID
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	if err := s.store.Posts().Create(ctx, post); err != nil {
		return respond.Error(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"post":    post,
	})
}

// GetPublicPosts возвращает страницу активных объявлений
func (s *PostService) GetPublicPosts(c fiber.Ctx) error {
	limit, err := strconv.Atoi(c.Query("limit", "20"))
	if err != nil || limit < 1 || limit > 100 {
		limit = 20
	}
	offset, err := strconv.Atoi(c.Query("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	posts, total, err := s.store.Posts().ListPublic(ctx, limit, offset)
	if err != nil {
		return respond.Error(c, err)
	}

	return c.JSON(fiber.Map{
		"posts":       posts,
		"total_count": total,
		"has_more":    offset+len(posts) < total,
	})
}

// GetMyPosts возвращает объявления текущего пользователя
func (s *PostService) GetMyPosts(c fiber.Ctx) error {
	userUUID, err := actorID(c)
	if err != nil {
		return err
	}

	status := c.Query("status") // active, trading, completed, private или пусто

	ctx, cancel := db.GetContext()
	defer cancel()

	posts, err := s.store.Posts().ListByOwner(ctx, userUUID, status)
	if err != nil {
		return respond.Error(c, err)
	}

	return c.JSON(fiber.Map{
		"posts": posts,
		"count": len(posts),
	})
}

// GetPost возвращает одно объявление с данными владельца
func (s *PostService) GetPost(c fiber.Ctx) error {
	postUUID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID объявления"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	post, err := s.store.Posts().GetByID(ctx, postUUID)
	if err != nil {
		return respond.Error(c, err)
	}

	if owner, err := s.store.Users().GetByID(ctx, post.OwnerID); err == nil {
		post.Owner = owner
	}

	return c.JSON(fiber.Map{"post": post})
}

// UpdatePost обновляет описание объявления. Статус здесь не меняется
func (s *PostService) UpdatePost(c fiber.Ctx) error {
	userUUID, err := actorID(c)
	if err != nil {
		return err
	}

	postUUID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID объявления"})
	}

	var requestData struct {
		GiveDescription string             `json:"give_description"`
		WantDescription string             `json:"want_description"`
		ZoneCode        string             `json:"zone_code"`
		Images          []models.PostImage `json:"images"`
	}

	if err := c.Bind().Body(&requestData); err != nil {
		log.Printf("Ошибка декодирования тела запроса: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат данных"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	err = s.store.InTx(ctx, func(st repository.Store) error {
		post, err := st.Posts().GetByID(ctx, postUUID)
		if err != nil {
			return err
		}
		if post.OwnerID != userUUID {
			return apperr.New(apperr.KindForbidden, "Только владелец может изменить объявление")
		}
		// Во время обмена описание заморожено
		if post.Status != models.PostStatusActive && post.Status != models.PostStatusPrivate {
			return apperr.Newf(apperr.KindInvalidState, "Объявление в статусе %q нельзя изменить", post.Status)
		}

		if requestData.GiveDescription != "" {
			post.GiveDescription = requestData.GiveDescription
		}
		if requestData.WantDescription != "" {
			post.WantDescription = requestData.WantDescription
		}
		post.ZoneCode = requestData.ZoneCode
		if requestData.Images != nil {
			post.Images = requestData.Images
		}
		return st.Posts().Update(ctx, post)
	})
	if err != nil {
		return respond.Error(c, err)
	}

	return c.JSON(fiber.Map{"success": true, "post_id": postUUID})
}

// DeletePost удаляет объявление. Во время обмена удаление запрещено
func (s *PostService) DeletePost(c fiber.Ctx) error {
	userUUID, err := actorID(c)
	if err != nil {
		return err
	}

	postUUID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID объявления"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	if err := s.engine.Delete(ctx, postUUID, userUUID); err != nil {
		return respond.Error(c, err)
	}

	return c.JSON(fiber.Map{"success": true, "post_id": postUUID})
}

// SetPrivate скрывает объявление из публикации
func (s *PostService) SetPrivate(c fiber.Ctx) error {
	return s.toggle(c, s.engine.SetPrivate)
}

// Republish возвращает скрытое объявление в публикацию
func (s *PostService) Republish(c fiber.Ctx) error {
	return s.toggle(c, s.engine.Republish)
}

func (s *PostService) toggle(c fiber.Ctx, fn func(ctx context.Context, postID, actor uuid.UUID) (*models.Post, error)) error {
	userUUID, err := actorID(c)
	if err != nil {
		return err
	}

	postUUID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID объявления"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	post, err := fn(ctx, postUUID, userUUID)
	if err != nil {
		return respond.Error(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"post_id": post.ID,
		"status":  post.Status,
	})
}

// actorID достает ID текущего пользователя из контекста запроса
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
