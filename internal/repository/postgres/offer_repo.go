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

type offerRepo struct {
	db dbtx
}

func (r *offerRepo) Create(ctx context.Context, offer *models.Offer) error {
	var status *string
	if offer.IsOffer {
		status = &offer.Status
	}

	err := r.db.QueryRow(ctx, `
        INSERT INTO offers (id, post_id, author_id, content, is_offer, related_post_id, status)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING created_at
    `, offer.ID, offer.PostID, offer.AuthorID, offer.Content,
		offer.IsOffer, offer.RelatedPostID, status).Scan(&offer.CreatedAt)

	if err != nil {
		return fmt.Errorf("ошибка создания предложения: %w", err)
	}
	return nil
}

func (r *offerRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Offer, error) {
	row := r.db.QueryRow(ctx, `
        SELECT id, post_id, author_id, content, is_offer, related_post_id, status, created_at
        FROM offers
        WHERE id = $1
    `, id)

	offer, err := scanOffer(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.New(apperr.KindNotFound, "Предложение не найдено")
		}
		return nil, fmt.Errorf("ошибка запроса предложения: %w", err)
	}
	return offer, nil
}

// GetByIDForUpdate блокирует строку предложения до конца транзакции
func (r *offerRepo) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Offer, error) {
	row := r.db.QueryRow(ctx, `
        SELECT id, post_id, author_id, content, is_offer, related_post_id, status, created_at
        FROM offers
        WHERE id = $1
        FOR UPDATE
    `, id)

	offer, err := scanOffer(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.New(apperr.KindNotFound, "Предложение не найдено")
		}
		return nil, fmt.Errorf("ошибка запроса предложения: %w", err)
	}
	return offer, nil
}

func (r *offerRepo) UpdateStatus(ctx context.Context, offer *models.Offer) error {
	tag, err := r.db.Exec(ctx, `
        UPDATE offers
        SET status = $1
        WHERE id = $2
    `, offer.Status, offer.ID)

	if err != nil {
		return fmt.Errorf("ошибка обновления статуса предложения: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.New(apperr.KindNotFound, "Предложение не найдено")
	}
	return nil
}

func (r *offerRepo) ListByPost(ctx context.Context, postID uuid.UUID) ([]models.Offer, error) {
	// Порядок добавления: created_at, при равенстве — id
	rows, err := r.db.Query(ctx, `
        SELECT id, post_id, author_id, content, is_offer, related_post_id, status, created_at
        FROM offers
        WHERE post_id = $1
        ORDER BY created_at ASC, id ASC
    `, postID)
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса предложений: %w", err)
	}
	defer rows.Close()

	return collectOffers(rows)
}

func (r *offerRepo) ListPendingByRelatedPost(ctx context.Context, relatedPostID uuid.UUID) ([]models.Offer, error) {
	rows, err := r.db.Query(ctx, `
        SELECT id, post_id, author_id, content, is_offer, related_post_id, status, created_at
        FROM offers
        WHERE related_post_id = $1 AND is_offer = true AND status = $2
        ORDER BY created_at ASC, id ASC
    `, relatedPostID, models.OfferStatusPending)
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса ожидающих предложений: %w", err)
	}
	defer rows.Close()

	return collectOffers(rows)
}

func scanOffer(row pgx.Row) (*models.Offer, error) {
	var offer models.Offer
	var status *string

	err := row.Scan(
		&offer.ID,
		&offer.PostID,
		&offer.AuthorID,
		&offer.Content,
		&offer.IsOffer,
		&offer.RelatedPostID,
		&status,
		&offer.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if status != nil {
		offer.Status = *status
	}
	return &offer, nil
}

func collectOffers(rows pgx.Rows) ([]models.Offer, error) {
	var offers []models.Offer
	for rows.Next() {
		offer, err := scanOffer(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования предложения: %w", err)
		}
		offers = append(offers, *offer)
	}
	return offers, rows.Err()
}
