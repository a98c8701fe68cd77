package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/antonvlasov/badgeswap-api/internal/apperr"
	"github.com/antonvlasov/badgeswap-api/internal/models"
)

type chatRepo struct {
	db dbtx
}

func (r *chatRepo) Create(ctx context.Context, room *models.ChatRoom) error {
	err := r.db.QueryRow(ctx, `
        INSERT INTO chat_rooms (id, post1_id, post2_id, user1_id, user2_id, status)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING created_at, updated_at
    `, room.ID, room.Post1ID, room.Post2ID, room.User1ID, room.User2ID, room.Status).
		Scan(&room.CreatedAt, &room.UpdatedAt)

	if err != nil {
		return fmt.Errorf("ошибка создания чата: %w", err)
	}
	return nil
}

func (r *chatRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.ChatRoom, error) {
	row := r.db.QueryRow(ctx, `
        SELECT id, post1_id, post2_id, user1_id, user2_id, status, last_message_text, last_message_time, created_at, updated_at
        FROM chat_rooms
        WHERE id = $1
    `, id)

	room, err := scanRoom(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.New(apperr.KindNotFound, "Чат не найден")
		}
		return nil, fmt.Errorf("ошибка запроса чата: %w", err)
	}
	return room, nil
}

func (r *chatRepo) FindActiveByPosts(ctx context.Context, postA, postB uuid.UUID) (*models.ChatRoom, error) {
	row := r.db.QueryRow(ctx, `
        SELECT id, post1_id, post2_id, user1_id, user2_id, status, last_message_text, last_message_time, created_at, updated_at
        FROM chat_rooms
        WHERE status = $1
          AND ((post1_id = $2 AND post2_id = $3) OR (post1_id = $3 AND post2_id = $2))
        LIMIT 1
    `, models.ChatRoomStatusActive, postA, postB)

	room, err := scanRoom(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.New(apperr.KindNotFound, "Чат не найден")
		}
		return nil, fmt.Errorf("ошибка поиска чата: %w", err)
	}
	return room, nil
}

func (r *chatRepo) UpdateStatus(ctx context.Context, room *models.ChatRoom) error {
	tag, err := r.db.Exec(ctx, `
        UPDATE chat_rooms
        SET status = $1, last_message_text = $2, last_message_time = $3, updated_at = NOW()
        WHERE id = $4
    `, room.Status, room.LastMessageText, room.LastMessageTime, room.ID)

	if err != nil {
		return fmt.Errorf("ошибка обновления чата: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.New(apperr.KindNotFound, "Чат не найден")
	}
	return nil
}

func (r *chatRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.ChatRoom, error) {
	rows, err := r.db.Query(ctx, `
        SELECT c.id, c.post1_id, c.post2_id, c.user1_id, c.user2_id, c.status,
               c.last_message_text, c.last_message_time, c.created_at, c.updated_at,
               COUNT(m.id) FILTER (WHERE m.sender_id != $1 AND m.is_read = false) AS unread_count
        FROM chat_rooms c
        LEFT JOIN chat_messages m ON c.id = m.room_id
        WHERE c.user1_id = $1 OR c.user2_id = $1
        GROUP BY c.id
        ORDER BY c.last_message_time DESC NULLS LAST, c.created_at DESC
    `, userID)
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса чатов: %w", err)
	}
	defer rows.Close()

	var rooms []models.ChatRoom
	for rows.Next() {
		var room models.ChatRoom
		var lastText *string

		if err := rows.Scan(
			&room.ID,
			&room.Post1ID,
			&room.Post2ID,
			&room.User1ID,
			&room.User2ID,
			&room.Status,
			&lastText,
			&room.LastMessageTime,
			&room.CreatedAt,
			&room.UpdatedAt,
			&room.UnreadCount,
		); err != nil {
			return nil, fmt.Errorf("ошибка сканирования чата: %w", err)
		}
		if lastText != nil {
			room.LastMessageText = *lastText
		}
		rooms = append(rooms, room)
	}
	return rooms, rows.Err()
}

func (r *chatRepo) AppendMessage(ctx context.Context, msg *models.ChatMessage) error {
	// created_at назначает база, строго монотонно в пределах чата:
	// метка нового сообщения не раньше, чем метка предыдущего плюс микросекунда
	err := r.db.QueryRow(ctx, `
        INSERT INTO chat_messages (id, room_id, sender_id, text, is_read, created_at)
        VALUES ($1, $2, $3, $4, false, GREATEST(
            clock_timestamp(),
            COALESCE((SELECT MAX(created_at) + interval '1 microsecond' FROM chat_messages WHERE room_id = $2), 'epoch')
        ))
        RETURNING created_at
    `, msg.ID, msg.RoomID, msg.SenderID, msg.Text).Scan(&msg.CreatedAt)

	if err != nil {
		return fmt.Errorf("ошибка сохранения сообщения: %w", err)
	}
	return nil
}

func (r *chatRepo) ListMessages(ctx context.Context, roomID uuid.UUID) ([]models.ChatMessage, error) {
	rows, err := r.db.Query(ctx, `
        SELECT id, room_id, sender_id, text, is_read, created_at
        FROM chat_messages
        WHERE room_id = $1
        ORDER BY created_at ASC, id ASC
    `, roomID)
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса сообщений: %w", err)
	}
	defer rows.Close()

	var messages []models.ChatMessage
	for rows.Next() {
		var msg models.ChatMessage
		if err := rows.Scan(
			&msg.ID,
			&msg.RoomID,
			&msg.SenderID,
			&msg.Text,
			&msg.IsRead,
			&msg.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("ошибка сканирования сообщения: %w", err)
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

func (r *chatRepo) MarkMessagesRead(ctx context.Context, roomID, readerID uuid.UUID) error {
	_, err := r.db.Exec(ctx, `
        UPDATE chat_messages
        SET is_read = true
        WHERE room_id = $1 AND sender_id != $2 AND is_read = false
    `, roomID, readerID)

	if err != nil {
		return fmt.Errorf("ошибка обновления статуса прочтения: %w", err)
	}
	return nil
}

func scanRoom(row pgx.Row) (*models.ChatRoom, error) {
	var room models.ChatRoom
	var lastText *string

	err := row.Scan(
		&room.ID,
		&room.Post1ID,
		&room.Post2ID,
		&room.User1ID,
		&room.User2ID,
		&room.Status,
		&lastText,
		&room.LastMessageTime,
		&room.CreatedAt,
		&room.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if lastText != nil {
		room.LastMessageText = *lastText
	}
	return &room, nil
}
