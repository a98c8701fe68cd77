package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/antonvlasov/badgeswap-api/internal/apperr"
)

// Статусы объявления. После перехода в trading статус движется только вперед.
const (
	PostStatusActive    = "active"
	PostStatusTrading   = "trading"
	PostStatusCompleted = "completed"
	PostStatusPrivate   = "private"
)

// Post представляет объявление об обмене: что отдаю и что хочу взамен
type Post struct {
	ID              uuid.UUID   `json:"id"`
	OwnerID         uuid.UUID   `json:"owner_id"`
	GiveDescription string      `json:"give_description"`
	WantDescription string      `json:"want_description"`
	Status          string      `json:"status"`
	EventID         *uuid.UUID  `json:"event_id,omitempty"`
	ZoneCode        string      `json:"zone_code,omitempty"` // Метка места на площадке, только для отображения
	Images          []PostImage `json:"images,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`

	// Дополнительные поля для API
	Owner *User `json:"owner,omitempty"`
}

// PostImage представляет изображение объявления
type PostImage struct {
	URL        string `json:"url"`
	PreviewURL string `json:"preview_url,omitempty"`
	PublicID   string `json:"public_id"`
	IsMain     bool   `json:"is_main"`
	Position   int    `json:"position"`
}

// SetPrivate скрывает объявление. Доступно только владельцу и только из active
func (p *Post) SetPrivate(actor uuid.UUID) error {
	if p.OwnerID != actor {
		return apperr.New(apperr.KindForbidden, "Только владелец может скрыть объявление")
	}
	if p.Status != PostStatusActive {
		return apperr.Newf(apperr.KindInvalidTransition, "Объявление в статусе %q нельзя скрыть", p.Status)
	}
	p.Status = PostStatusPrivate
	return nil
}

// Republish возвращает скрытое объявление в публикацию
func (p *Post) Republish(actor uuid.UUID) error {
	if p.OwnerID != actor {
		return apperr.New(apperr.KindForbidden, "Только владелец может опубликовать объявление")
	}
	if p.Status != PostStatusPrivate {
		return apperr.Newf(apperr.KindInvalidTransition, "Объявление в статусе %q нельзя опубликовать повторно", p.Status)
	}
	p.Status = PostStatusActive
	return nil
}

// MarkTrading переводит объявление в процесс обмена. Вызывается движком
// предложений при принятии, легально только из active
func (p *Post) MarkTrading() error {
	if p.Status != PostStatusActive {
		return apperr.Newf(apperr.KindInvalidTransition, "Объявление в статусе %q нельзя перевести в обмен", p.Status)
	}
	p.Status = PostStatusTrading
	return nil
}

// MarkCompleted завершает обмен. Вызывается координатором чатов,
// легально только из trading
func (p *Post) MarkCompleted() error {
	if p.Status != PostStatusTrading {
		return apperr.Newf(apperr.KindInvalidTransition, "Объявление в статусе %q нельзя завершить", p.Status)
	}
	p.Status = PostStatusCompleted
	return nil
}

// EnsureDeletable проверяет, что объявление можно удалить.
// Удаление запрещено во время обмена, чтобы не осиротить переговоры
func (p *Post) EnsureDeletable(actor uuid.UUID) error {
	if p.OwnerID != actor {
		return apperr.New(apperr.KindForbidden, "Только владелец может удалить объявление")
	}
	if p.Status != PostStatusActive {
		return apperr.Newf(apperr.KindInvalidTransition, "Объявление в статусе %q нельзя удалить", p.Status)
	}
	return nil
}
