package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/antonvlasov/badgeswap-api/internal/apperr"
	"github.com/antonvlasov/badgeswap-api/internal/models"
)

type userRepo struct {
	db dbtx
}

func (r *userRepo) UpsertTelegram(ctx context.Context, telegramID int64, user *models.User) (*models.User, error) {
	err := r.db.QueryRow(ctx, `
        INSERT INTO users (id, telegram_id, username, first_name, last_name, avatar_url, last_login_at)
        VALUES ($1, $2, $3, $4, $5, $6, CURRENT_TIMESTAMP)
        ON CONFLICT (telegram_id) DO UPDATE
        SET username = EXCLUDED.username,
            first_name = EXCLUDED.first_name,
            last_name = EXCLUDED.last_name,
            avatar_url = EXCLUDED.avatar_url,
            last_login_at = CURRENT_TIMESTAMP
        RETURNING id, created_at
    `, uuid.New(), telegramID, user.Username, user.FirstName, user.LastName, user.AvatarURL).
		Scan(&user.ID, &user.CreatedAt)

	if err != nil {
		return nil, fmt.Errorf("ошибка сохранения пользователя: %w", err)
	}
	return user, nil
}

func (r *userRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	var username, firstName, lastName, avatarURL pgtype.Text

	err := r.db.QueryRow(ctx, `
        SELECT id, username, first_name, last_name, avatar_url, created_at
        FROM users
        WHERE id = $1
    `, id).Scan(&user.ID, &username, &firstName, &lastName, &avatarURL, &user.CreatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.New(apperr.KindNotFound, "Пользователь не найден")
		}
		return nil, fmt.Errorf("ошибка запроса пользователя: %w", err)
	}

	if username.Valid {
		user.Username = username.String
	}
	if firstName.Valid {
		user.FirstName = firstName.String
	}
	if lastName.Valid {
		user.LastName = lastName.String
	}
	if avatarURL.Valid {
		user.AvatarURL = avatarURL.String
	}
	return &user, nil
}
