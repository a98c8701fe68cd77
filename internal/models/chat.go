package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/antonvlasov/badgeswap-api/internal/apperr"
)

// Статусы чата. Завершение и отмена — одноразовые терминальные переходы
const (
	ChatRoomStatusActive    = "active"
	ChatRoomStatusCompleted = "completed"
	ChatRoomStatusCancelled = "cancelled"
)

// ChatRoom представляет чат двух участников согласованного обмена
type ChatRoom struct {
	ID        uuid.UUID `json:"id"`
	Post1ID   uuid.UUID `json:"post1_id"`
	Post2ID   uuid.UUID `json:"post2_id"`
	User1ID   uuid.UUID `json:"user1_id"`
	User2ID   uuid.UUID `json:"user2_id"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	LastMessageText string     `json:"last_message_text,omitempty"`
	LastMessageTime *time.Time `json:"last_message_time,omitempty"`

	// Дополнительные поля для API
	Post1       *Post `json:"post1,omitempty"`
	Post2       *Post `json:"post2,omitempty"`
	User1       *User `json:"user1,omitempty"`
	User2       *User `json:"user2,omitempty"`
	UnreadCount int   `json:"unread_count,omitempty"`
}

// ChatMessage представляет сообщение в чате
type ChatMessage struct {
	ID        uuid.UUID `json:"id"`
	RoomID    uuid.UUID `json:"room_id"`
	SenderID  uuid.UUID `json:"sender_id"`
	Text      string    `json:"text"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`

	// Дополнительные поля для API
	Sender *User `json:"sender,omitempty"`
}

// HasParticipant проверяет, что пользователь — один из двух участников чата
func (r *ChatRoom) HasParticipant(userID uuid.UUID) bool {
	return r.User1ID == userID || r.User2ID == userID
}

// OtherParticipant возвращает собеседника указанного участника
func (r *ChatRoom) OtherParticipant(userID uuid.UUID) uuid.UUID {
	if r.User1ID == userID {
		return r.User2ID
	}
	return r.User1ID
}

// EnsureCanPost проверяет право отправить сообщение: только участник,
// только пока чат активен
func (r *ChatRoom) EnsureCanPost(sender uuid.UUID) error {
	if !r.HasParticipant(sender) {
		return apperr.New(apperr.KindForbidden, "У вас нет доступа к этому чату")
	}
	if r.Status != ChatRoomStatusActive {
		return apperr.New(apperr.KindRoomClosed, "Чат завершен, отправка сообщений недоступна")
	}
	return nil
}

// Complete завершает чат. Одноразовый переход, доступен только участнику
func (r *ChatRoom) Complete(actor uuid.UUID) error {
	if !r.HasParticipant(actor) {
		return apperr.New(apperr.KindForbidden, "Только участник может завершить обмен")
	}
	if r.Status != ChatRoomStatusActive {
		return apperr.New(apperr.KindInvalidState, "Обмен уже завершен")
	}
	r.Status = ChatRoomStatusCompleted
	return nil
}

// Cancel отменяет чат. Симметричен Complete: только участник, только из active
func (r *ChatRoom) Cancel(actor uuid.UUID) error {
	if !r.HasParticipant(actor) {
		return apperr.New(apperr.KindForbidden, "Только участник может отменить обмен")
	}
	if r.Status != ChatRoomStatusActive {
		return apperr.New(apperr.KindInvalidState, "Обмен уже завершен")
	}
	r.Status = ChatRoomStatusCancelled
	return nil
}
