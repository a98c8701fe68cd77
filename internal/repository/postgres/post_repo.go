package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/antonvlasov/badgeswap-api/internal/apperr"
	"github.com/antonvlasov/badgeswap-api/internal/models"
)

type postRepo struct {
	db dbtx
}

func (r *postRepo) Create(ctx context.Context, post *models.Post) error {
	images, err := json.Marshal(post.Images)
	if err != nil {
		return fmt.Errorf("ошибка сериализации изображений: %w", err)
	}

	err = r.db.QueryRow(ctx, `
        INSERT INTO posts (id, owner_id, give_description, want_description, status, event_id, zone_code, images)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        RETURNING created_at, updated_at
    `, post.ID, post.OwnerID, post.GiveDescription, post.WantDescription,
		post.Status, post.EventID, post.ZoneCode, images).Scan(&post.CreatedAt, &post.UpdatedAt)

	if err != nil {
		return fmt.Errorf("ошибка создания объявления: %w", err)
	}
	return nil
}

func (r *postRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Post, error) {
	row := r.db.QueryRow(ctx, `
        SELECT id, owner_id, give_description, want_description, status, event_id, zone_code, images, created_at, updated_at
        FROM posts
        WHERE id = $1
    `, id)

	post, err := scanPost(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.New(apperr.KindNotFound, "Объявление не найдено")
		}
		return nil, fmt.Errorf("ошибка запроса объявления: %w", err)
	}
	return post, nil
}

// GetByIDForUpdate блокирует строку объявления до конца транзакции.
// На READ COMMITTED после захвата блокировки видна последняя
// зафиксированная версия, поэтому проверка статуса после чтения надежна
func (r *postRepo) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Post, error) {
	row := r.db.QueryRow(ctx, `
        SELECT id, owner_id, give_description, want_description, status, event_id, zone_code, images, created_at, updated_at
        FROM posts
        WHERE id = $1
        FOR UPDATE
    `, id)

	post, err := scanPost(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.New(apperr.KindNotFound, "Объявление не найдено")
		}
		return nil, fmt.Errorf("ошибка запроса объявления: %w", err)
	}
	return post, nil
}

func (r *postRepo) Update(ctx context.Context, post *models.Post) error {
	images, err := json.Marshal(post.Images)
	if err != nil {
		return fmt.Errorf("ошибка сериализации изображений: %w", err)
	}

	tag, err := r.db.Exec(ctx, `
        UPDATE posts
        SET give_description = $1, want_description = $2, status = $3, zone_code = $4, images = $5, updated_at = NOW()
        WHERE id = $6
    `, post.GiveDescription, post.WantDescription, post.Status, post.ZoneCode, images, post.ID)

	if err != nil {
		return fmt.Errorf("ошибка обновления объявления: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.New(apperr.KindNotFound, "Объявление не найдено")
	}
	return nil
}

func (r *postRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("ошибка удаления объявления: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.New(apperr.KindNotFound, "Объявление не найдено")
	}
	return nil
}

func (r *postRepo) ListByOwner(ctx context.Context, ownerID uuid.UUID, status string) ([]models.Post, error) {
	query := `
        SELECT id, owner_id, give_description, want_description, status, event_id, zone_code, images, created_at, updated_at
        FROM posts
        WHERE owner_id = $1
        ORDER BY created_at DESC
    `
	args := []interface{}{ownerID}

	if status != "" {
		query = `
            SELECT id, owner_id, give_description, want_description, status, event_id, zone_code, images, created_at, updated_at
            FROM posts
            WHERE owner_id = $1 AND status = $2
            ORDER BY created_at DESC
        `
		args = []interface{}{ownerID, status}
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса объявлений: %w", err)
	}
	defer rows.Close()

	return collectPosts(rows)
}

func (r *postRepo) ListPublic(ctx context.Context, limit, offset int) ([]models.Post, int, error) {
	var total int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM posts WHERE status = $1`, models.PostStatusActive).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("ошибка подсчета объявлений: %w", err)
	}

	rows, err := r.db.Query(ctx, `
        SELECT id, owner_id, give_description, want_description, status, event_id, zone_code, images, created_at, updated_at
        FROM posts
        WHERE status = $1
        ORDER BY created_at DESC
        LIMIT $2 OFFSET $3
    `, models.PostStatusActive, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("ошибка запроса объявлений: %w", err)
	}
	defer rows.Close()

	posts, err := collectPosts(rows)
	if err != nil {
		return nil, 0, err
	}
	return posts, total, nil
}

func scanPost(row pgx.Row) (*models.Post, error) {
	var post models.Post
	var images []byte

	err := row.Scan(
		&post.ID,
		&post.OwnerID,
		&post.GiveDescription,
		&post.WantDescription,
		&post.Status,
		&post.EventID,
		&post.ZoneCode,
		&images,
		&post.CreatedAt,
		&post.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(images) > 0 {
		if err := json.Unmarshal(images, &post.Images); err != nil {
			post.Images = nil
		}
	}
	return &post, nil
}

func collectPosts(rows pgx.Rows) ([]models.Post, error) {
	var posts []models.Post
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования объявления: %w", err)
		}
		posts = append(posts, *post)
	}
	return posts, rows.Err()
}
