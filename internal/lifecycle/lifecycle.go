// Package lifecycle управляет статусом объявления: публикация, скрытие,
// перевод в обмен и завершение. Правила переходов живут на модели,
// здесь — чтение, проверка и сохранение.
package lifecycle

import (
	"context"

	"github.com/google/uuid"

	"github.com/antonvlasov/badgeswap-api/internal/models"
	"github.com/antonvlasov/badgeswap-api/internal/repository"
)

// Engine представляет движок жизненного цикла объявлений
type Engine struct {
	store repository.Store
}

// NewEngine создает новый экземпляр Engine
func NewEngine(store repository.Store) *Engine {
	return &Engine{store: store}
}

// SetPrivate скрывает объявление из публикации
func (e *Engine) SetPrivate(ctx context.Context, postID, actor uuid.UUID) (*models.Post, error) {
	return e.transition(ctx, postID, func(p *models.Post) error { return p.SetPrivate(actor) })
}

// Republish возвращает скрытое объявление в публикацию
func (e *Engine) Republish(ctx context.Context, postID, actor uuid.UUID) (*models.Post, error) {
	return e.transition(ctx, postID, func(p *models.Post) error { return p.Republish(actor) })
}

// Delete удаляет объявление. Во время обмена удаление запрещено
func (e *Engine) Delete(ctx context.Context, postID, actor uuid.UUID) error {
	return e.store.InTx(ctx, func(st repository.Store) error {
		post, err := st.Posts().GetByIDForUpdate(ctx, postID)
		if err != nil {
			return err
		}
		if err := post.EnsureDeletable(actor); err != nil {
			return err
		}
		return st.Posts().Delete(ctx, postID)
	})
}

func (e *Engine) transition(ctx context.Context, postID uuid.UUID, fn func(*models.Post) error) (*models.Post, error) {
	var post *models.Post
	err := e.store.InTx(ctx, func(st repository.Store) error {
		var err error
		post, err = st.Posts().GetByIDForUpdate(ctx, postID)
		if err != nil {
			return err
		}
		if err := fn(post); err != nil {
			return err
		}
		return st.Posts().Update(ctx, post)
	})
	if err != nil {
		return nil, err
	}
	return post, nil
}

// MarkTrading переводит объявление в обмен внутри чужой транзакции.
// Вызывается движком предложений при принятии
func MarkTrading(ctx context.Context, st repository.Store, post *models.Post) error {
	if err := post.MarkTrading(); err != nil {
		return err
	}
	return st.Posts().Update(ctx, post)
}

// MarkCompleted завершает объявление внутри чужой транзакции.
// Вызывается координатором чатов при завершении и отмене обмена
func MarkCompleted(ctx context.Context, st repository.Store, post *models.Post) error {
	if err := post.MarkCompleted(); err != nil {
		return err
	}
	return st.Posts().Update(ctx, post)
}
