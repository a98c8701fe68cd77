// Package negotiation управляет предложениями обмена на объявлении.
// Комментарий может нести встречное объявление автора; владелец поста
// принимает не больше одного предложения, принятие переводит оба
// объявления в обмен и создает чат.
package negotiation

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/antonvlasov/badgeswap-api/internal/apperr"
	"github.com/antonvlasov/badgeswap-api/internal/chatroom"
	"github.com/antonvlasov/badgeswap-api/internal/lifecycle"
	"github.com/antonvlasov/badgeswap-api/internal/models"
	"github.com/antonvlasov/badgeswap-api/internal/repository"
)

// Engine представляет движок предложений
type Engine struct {
	store repository.Store
}

// NewEngine создает новый экземпляр Engine
func NewEngine(store repository.Store) *Engine {
	return &Engine{store: store}
}

// AcceptResult — результат принятия предложения
type AcceptResult struct {
	MyPostID      uuid.UUID `json:"my_post_id"`
	PartnerPostID uuid.UUID `json:"partner_post_id"`
	ChatRoomID    uuid.UUID `json:"chat_room_id"`
}

// CreateOffer добавляет комментарий к объявлению, опционально с предложением
// встречного объявления. Статус объявления не меняется
func (e *Engine) CreateOffer(ctx context.Context, postID, authorID uuid.UUID, content string, relatedPostID *uuid.UUID) (*models.Offer, error) {
	if strings.TrimSpace(content) == "" {
		return nil, apperr.New(apperr.KindValidation, "Текст комментария не может быть пустым")
	}

	post, err := e.store.Posts().GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}

	// Предложение самому себе позволило бы принять собственный обмен
	if post.OwnerID == authorID {
		return nil, apperr.New(apperr.KindValidation, "Нельзя оставить предложение на собственное объявление")
	}

	offer := &models.Offer{
		ID:       uuid.New(),
		PostID:   postID,
		AuthorID: authorID,
		Content:  content,
	}

	if relatedPostID != nil {
		related, err := e.store.Posts().GetByID(ctx, *relatedPostID)
		if err != nil {
			return nil, err
		}
		if related.OwnerID != authorID {
			return nil, apperr.New(apperr.KindForbidden, "Встречное объявление должно принадлежать автору предложения")
		}
		if related.Status != models.PostStatusActive {
			return nil, apperr.Newf(apperr.KindInvalidState, "Встречное объявление в статусе %q недоступно для обмена", related.Status)
		}
		offer.IsOffer = true
		offer.RelatedPostID = relatedPostID
		offer.Status = models.OfferStatusPending
		offer.RelatedPost = related
	}

	if err := e.store.Offers().Create(ctx, offer); err != nil {
		return nil, err
	}

	// Данные автора — не критический путь, ошибки не прерывают запрос
	if author, err := e.store.Users().GetByID(ctx, authorID); err == nil {
		offer.Author = author
	}
	return offer, nil
}

// ListOffers возвращает комментарии объявления в порядке добавления,
// с данными авторов и встречных объявлений
func (e *Engine) ListOffers(ctx context.Context, postID uuid.UUID) ([]models.Offer, error) {
	if _, err := e.store.Posts().GetByID(ctx, postID); err != nil {
		return nil, err
	}
	offers, err := e.store.Offers().ListByPost(ctx, postID)
	if err != nil {
		return nil, err
	}

	// Один автор часто пишет несколько комментариев, читаем его один раз.
	// Вложенные данные — не критический путь, ошибки не прерывают запрос
	authors := make(map[uuid.UUID]*models.User)
	for i := range offers {
		offer := &offers[i]
		author, ok := authors[offer.AuthorID]
		if !ok {
			author, _ = e.store.Users().GetByID(ctx, offer.AuthorID)
			authors[offer.AuthorID] = author
		}
		offer.Author = author

		if offer.RelatedPostID != nil {
			if related, err := e.store.Posts().GetByID(ctx, *offer.RelatedPostID); err == nil {
				offer.RelatedPost = related
			}
		}
	}
	return offers, nil
}

// Accept принимает предложение. Статусы перечитываются внутри транзакции
// с блокировкой строк: при гонке двух принятий выигрывает первый писатель
// и удерживает блокировки до фиксации, второй видит
// объявление уже в trading и получает чистый отказ вместо второго чата
func (e *Engine) Accept(ctx context.Context, postID, offerID, actor uuid.UUID) (*AcceptResult, error) {
	var result *AcceptResult
	err := e.store.InTx(ctx, func(st repository.Store) error {
		post, err := st.Posts().GetByIDForUpdate(ctx, postID)
		if err != nil {
			return err
		}
		if post.OwnerID != actor {
			return apperr.New(apperr.KindForbidden, "Только владелец объявления может принять предложение")
		}

		offer, err := st.Offers().GetByIDForUpdate(ctx, offerID)
		if err != nil {
			return err
		}
		if offer.PostID != postID {
			return apperr.New(apperr.KindNotFound, "Предложение не относится к этому объявлению")
		}

		if post.Status != models.PostStatusActive {
			return apperr.New(apperr.KindInvalidState, "Предложение уже обработано")
		}
		if err := offer.Accept(); err != nil {
			return err
		}

		related, err := st.Posts().GetByIDForUpdate(ctx, *offer.RelatedPostID)
		if err != nil {
			return err
		}
		if related.Status != models.PostStatusActive {
			return apperr.New(apperr.KindInvalidState, "Встречное объявление уже участвует в другом обмене")
		}

		if err := st.Offers().UpdateStatus(ctx, offer); err != nil {
			return err
		}

		// Каскад: встречное объявление теперь занято, остальные ожидающие
		// предложения с ним отклоняются. Дальше движок конфликты не разрешает
		pending, err := st.Offers().ListPendingByRelatedPost(ctx, related.ID)
		if err != nil {
			return err
		}
		for i := range pending {
			other := &pending[i]
			if other.ID == offer.ID {
				continue
			}
			if err := other.Reject(); err != nil {
				return err
			}
			if err := st.Offers().UpdateStatus(ctx, other); err != nil {
				return err
			}
		}

		if err := lifecycle.MarkTrading(ctx, st, post); err != nil {
			return err
		}
		if err := lifecycle.MarkTrading(ctx, st, related); err != nil {
			return err
		}

		room, err := chatroom.CreateIn(ctx, st, post, related, post.OwnerID, offer.AuthorID)
		if err != nil {
			return err
		}

		result = &AcceptResult{
			MyPostID:      post.ID,
			PartnerPostID: related.ID,
			ChatRoomID:    room.ID,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Reject отклоняет предложение. Статус объявления не меняется
func (e *Engine) Reject(ctx context.Context, postID, offerID, actor uuid.UUID) (*models.Offer, error) {
	var offer *models.Offer
	err := e.store.InTx(ctx, func(st repository.Store) error {
		post, err := st.Posts().GetByID(ctx, postID)
		if err != nil {
			return err
		}
		if post.OwnerID != actor {
			return apperr.New(apperr.KindForbidden, "Только владелец объявления может отклонить предложение")
		}

		offer, err = st.Offers().GetByIDForUpdate(ctx, offerID)
		if err != nil {
			return err
		}
		if offer.PostID != postID {
			return apperr.New(apperr.KindNotFound, "Предложение не относится к этому объявлению")
		}
		if err := offer.Reject(); err != nil {
			return err
		}
		return st.Offers().UpdateStatus(ctx, offer)
	})
	if err != nil {
		return nil, err
	}
	return offer, nil
}
