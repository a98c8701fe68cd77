// Package repository определяет границу хранения для движков обмена.
// Состояние на сервере — источник истины; движки работают только через
// эти интерфейсы, поэтому правила переходов проверяются без базы данных.
package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/antonvlasov/badgeswap-api/internal/models"
)

// PostRepository хранит объявления
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	// GetByID возвращает apperr.KindNotFound, если объявление не существует
	GetByID(ctx context.Context, id uuid.UUID) (*models.Post, error)
	// GetByIDForUpdate читает объявление с блокировкой строки до конца
	// транзакции. Обязателен перед изменением статуса внутри InTx: иначе
	// два конкурирующих принятия видят один и тот же исходный статус
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Post, error)
	Update(ctx context.Context, post *models.Post) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByOwner(ctx context.Context, ownerID uuid.UUID, status string) ([]models.Post, error)
	// ListPublic возвращает страницу активных объявлений и общее количество
	ListPublic(ctx context.Context, limit, offset int) ([]models.Post, int, error)
}

// OfferRepository хранит комментарии-предложения. ListByPost возвращает
// комментарии в порядке добавления
type OfferRepository interface {
	Create(ctx context.Context, offer *models.Offer) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Offer, error)
	// GetByIDForUpdate читает предложение с блокировкой строки до конца
	// транзакции
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Offer, error)
	UpdateStatus(ctx context.Context, offer *models.Offer) error
	ListByPost(ctx context.Context, postID uuid.UUID) ([]models.Offer, error)
	// ListPendingByRelatedPost возвращает ожидающие предложения, ссылающиеся
	// на указанное встречное объявление. Нужен каскаду отклонения при принятии
	ListPendingByRelatedPost(ctx context.Context, relatedPostID uuid.UUID) ([]models.Offer, error)
}

// ChatRoomRepository хранит чаты и их сообщения
type ChatRoomRepository interface {
	Create(ctx context.Context, room *models.ChatRoom) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.ChatRoom, error)
	// FindActiveByPosts ищет активный чат для пары объявлений в любом порядке.
	// Возвращает apperr.KindNotFound, если чата нет
	FindActiveByPosts(ctx context.Context, postA, postB uuid.UUID) (*models.ChatRoom, error)
	UpdateStatus(ctx context.Context, room *models.ChatRoom) error
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.ChatRoom, error)
	// AppendMessage сохраняет сообщение; created_at назначает хранилище,
	// монотонно в пределах чата
	AppendMessage(ctx context.Context, msg *models.ChatMessage) error
	// ListMessages возвращает сообщения по возрастанию created_at.
	// Повторный вызов без новых записей дает ту же последовательность
	ListMessages(ctx context.Context, roomID uuid.UUID) ([]models.ChatMessage, error)
	MarkMessagesRead(ctx context.Context, roomID, readerID uuid.UUID) error
}

// UserRepository хранит пользователей
type UserRepository interface {
	// UpsertTelegram создает или обновляет пользователя по Telegram ID
	UpsertTelegram(ctx context.Context, telegramID int64, user *models.User) (*models.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Store объединяет репозитории и транзакционную границу. InTx выполняет fn
// атомарно: внутри нее гонка двух принятий разрешается перечитыванием
// статусов через блокирующие чтения GetByIDForUpdate
type Store interface {
	Posts() PostRepository
	Offers() OfferRepository
	ChatRooms() ChatRoomRepository
	Users() UserRepository
	InTx(ctx context.Context, fn func(Store) error) error
}
