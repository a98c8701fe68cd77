// Package chatroom координирует чаты согласованных обменов: создание,
// сообщения, завершение и отмена. Чат возникает либо из принятого
// предложения, либо из мгновенного подбора на мероприятии.
package chatroom

import (
	"context"
	"log"
	"strings"

	"github.com/google/uuid"

	"github.com/antonvlasov/badgeswap-api/internal/apperr"
	"github.com/antonvlasov/badgeswap-api/internal/lifecycle"
	"github.com/antonvlasov/badgeswap-api/internal/models"
	"github.com/antonvlasov/badgeswap-api/internal/repository"
)

// Coordinator представляет координатор чатов
type Coordinator struct {
	store repository.Store
}

// NewCoordinator создает новый экземпляр Coordinator
func NewCoordinator(store repository.Store) *Coordinator {
	return &Coordinator{store: store}
}

// CreateIn создает чат для пары объявлений внутри чужой транзакции.
// Идемпотентен: повторный вызов для той же пары возвращает существующий
// активный чат, поэтому повтор принятия не плодит дубликатов
func CreateIn(ctx context.Context, st repository.Store, postA, postB *models.Post, userA, userB uuid.UUID) (*models.ChatRoom, error) {
	if userA == userB {
		return nil, apperr.New(apperr.KindValidation, "Участники чата должны быть разными пользователями")
	}

	existing, err := st.ChatRooms().FindActiveByPosts(ctx, postA.ID, postB.ID)
	if err == nil {
		return existing, nil
	}
	if !apperr.IsNotFound(err) {
		return nil, err
	}

	room := &models.ChatRoom{
		ID:      uuid.New(),
		Post1ID: postA.ID,
		Post2ID: postB.ID,
		User1ID: userA,
		User2ID: userB,
		Status:  models.ChatRoomStatusActive,
	}
	if err := st.ChatRooms().Create(ctx, room); err != nil {
		return nil, err
	}
	return room, nil
}

// Create создает чат для пары объявлений
func (c *Coordinator) Create(ctx context.Context, postA, postB *models.Post, userA, userB uuid.UUID) (*models.ChatRoom, error) {
	var room *models.ChatRoom
	err := c.store.InTx(ctx, func(st repository.Store) error {
		var err error
		room, err = CreateIn(ctx, st, postA, postB, userA, userB)
		return err
	})
	if err != nil {
		return nil, err
	}
	return room, nil
}

// StartInstantChat начинает чат из мгновенного подбора на мероприятии.
// Условия искавшего материализуются во встречное объявление, оба объявления
// переходят в trading, дальше работает обычная машина состояний чата
func (c *Coordinator) StartInstantChat(ctx context.Context, matchedPostID, searcherID uuid.UUID, criteria *models.TradeCriteria) (*models.ChatRoom, error) {
	if err := criteria.Validate(); err != nil {
		return nil, err
	}

	var room *models.ChatRoom
	err := c.store.InTx(ctx, func(st repository.Store) error {
		matched, err := st.Posts().GetByIDForUpdate(ctx, matchedPostID)
		if err != nil {
			return err
		}
		if matched.OwnerID == searcherID {
			return apperr.New(apperr.KindValidation, "Нельзя начать обмен с собственным объявлением")
		}

		eventID := criteria.EventID
		criteriaPost := &models.Post{
			ID:              uuid.New(),
			OwnerID:         searcherID,
			GiveDescription: criteria.GiveSummary(),
			WantDescription: criteria.WantSummary(),
			Status:          models.PostStatusActive,
			EventID:         &eventID,
		}
		if err := st.Posts().Create(ctx, criteriaPost); err != nil {
			return err
		}

		if err := lifecycle.MarkTrading(ctx, st, matched); err != nil {
			return err
		}
		if err := lifecycle.MarkTrading(ctx, st, criteriaPost); err != nil {
			return err
		}

		room, err = CreateIn(ctx, st, matched, criteriaPost, matched.OwnerID, searcherID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return room, nil
}

// GetRoom возвращает чат с вложенными объявлениями и участниками.
// Доступен только участнику
func (c *Coordinator) GetRoom(ctx context.Context, roomID, actor uuid.UUID) (*models.ChatRoom, error) {
	room, err := c.store.ChatRooms().GetByID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if !room.HasParticipant(actor) {
		return nil, apperr.New(apperr.KindForbidden, "У вас нет доступа к этому чату")
	}

	// Вложенные данные — не критический путь, ошибки не прерывают запрос
	if post, err := c.store.Posts().GetByID(ctx, room.Post1ID); err == nil {
		room.Post1 = post
	}
	if post, err := c.store.Posts().GetByID(ctx, room.Post2ID); err == nil {
		room.Post2 = post
	}
	if user, err := c.store.Users().GetByID(ctx, room.User1ID); err == nil {
		room.User1 = user
	}
	if user, err := c.store.Users().GetByID(ctx, room.User2ID); err == nil {
		room.User2 = user
	}
	return room, nil
}

// ListRooms возвращает чаты пользователя
func (c *Coordinator) ListRooms(ctx context.Context, userID uuid.UUID) ([]models.ChatRoom, error) {
	return c.store.ChatRooms().ListByUser(ctx, userID)
}

// PostMessage отправляет сообщение в чат
func (c *Coordinator) PostMessage(ctx context.Context, roomID, sender uuid.UUID, text string) (*models.ChatMessage, error) {
	if strings.TrimSpace(text) == "" {
		return nil, apperr.New(apperr.KindValidation, "Текст сообщения не может быть пустым")
	}

	var msg *models.ChatMessage
	err := c.store.InTx(ctx, func(st repository.Store) error {
		room, err := st.ChatRooms().GetByID(ctx, roomID)
		if err != nil {
			return err
		}
		if err := room.EnsureCanPost(sender); err != nil {
			return err
		}

		msg = &models.ChatMessage{
			ID:       uuid.New(),
			RoomID:   roomID,
			SenderID: sender,
			Text:     text,
		}
		if err := st.ChatRooms().AppendMessage(ctx, msg); err != nil {
			return err
		}

		room.LastMessageText = text
		room.LastMessageTime = &msg.CreatedAt
		return st.ChatRooms().UpdateStatus(ctx, room)
	})
	if err != nil {
		return nil, err
	}
	return msg, nil
}

// ListMessages возвращает сообщения чата по возрастанию created_at.
// Контракт тянущий: клиент перечитывает (рекомендованный интервал — 5 секунд,
// с отступлением при скрытой вкладке), ядро ничего не проталкивает
func (c *Coordinator) ListMessages(ctx context.Context, roomID, reader uuid.UUID) ([]models.ChatMessage, error) {
	room, err := c.store.ChatRooms().GetByID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if !room.HasParticipant(reader) {
		return nil, apperr.New(apperr.KindForbidden, "У вас нет доступа к этому чату")
	}

	messages, err := c.store.ChatRooms().ListMessages(ctx, roomID)
	if err != nil {
		return nil, err
	}

	// Отметка о прочтении не влияет на корректность жизненного цикла
	if err := c.store.ChatRooms().MarkMessagesRead(ctx, roomID, reader); err != nil {
		log.Printf("Ошибка обновления статуса прочтения: %v", err)
	}
	return messages, nil
}

// Complete завершает обмен: чат переходит в completed, оба объявления
// закрываются. Одноразовый терминальный переход
func (c *Coordinator) Complete(ctx context.Context, roomID, actor uuid.UUID) (*models.ChatRoom, error) {
	return c.finish(ctx, roomID, func(r *models.ChatRoom) error { return r.Complete(actor) })
}

// Cancel отменяет обмен: чат переходит в cancelled, объявления закрываются
// терминально — из trading обратно в active вернуться нельзя
func (c *Coordinator) Cancel(ctx context.Context, roomID, actor uuid.UUID) (*models.ChatRoom, error) {
	return c.finish(ctx, roomID, func(r *models.ChatRoom) error { return r.Cancel(actor) })
}

func (c *Coordinator) finish(ctx context.Context, roomID uuid.UUID, fn func(*models.ChatRoom) error) (*models.ChatRoom, error) {
	var room *models.ChatRoom
	err := c.store.InTx(ctx, func(st repository.Store) error {
		var err error
		room, err = st.ChatRooms().GetByID(ctx, roomID)
		if err != nil {
			return err
		}
		if err := fn(room); err != nil {
			return err
		}
		if err := st.ChatRooms().UpdateStatus(ctx, room); err != nil {
			return err
		}

		for _, postID := range []uuid.UUID{room.Post1ID, room.Post2ID} {
			post, err := st.Posts().GetByIDForUpdate(ctx, postID)
			if err != nil {
				return err
			}
			if err := lifecycle.MarkCompleted(ctx, st, post); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return room, nil
}
