package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/antonvlasov/badgeswap-api/internal/apperr"
)

// Статусы предложения. Имеют смысл только когда is_offer = true
const (
	OfferStatusPending  = "pending"
	OfferStatusAccepted = "accepted"
	OfferStatusRejected = "rejected"
)

// Offer представляет комментарий к объявлению, опционально предлагающий
// встречное объявление автора для обмена
type Offer struct {
	ID            uuid.UUID  `json:"id"`
	PostID        uuid.UUID  `json:"post_id"`
	AuthorID      uuid.UUID  `json:"author_id"`
	Content       string     `json:"content"`
	IsOffer       bool       `json:"is_offer"`
	RelatedPostID *uuid.UUID `json:"related_post_id,omitempty"`
	Status        string     `json:"offer_status,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`

	// Дополнительные поля для API
	Author      *User `json:"author,omitempty"`
	RelatedPost *Post `json:"related_post,omitempty"`
}

// Accept помечает предложение принятым. Легально только из pending —
// повторное принятие и принятие после отклонения запрещены
func (o *Offer) Accept() error {
	if !o.IsOffer {
		return apperr.New(apperr.KindInvalidState, "Комментарий не содержит предложения обмена")
	}
	if o.Status != OfferStatusPending {
		return apperr.New(apperr.KindInvalidState, "Предложение уже обработано")
	}
	o.Status = OfferStatusAccepted
	return nil
}

// Reject помечает предложение отклоненным. Легально только из pending
func (o *Offer) Reject() error {
	if !o.IsOffer {
		return apperr.New(apperr.KindInvalidState, "Комментарий не содержит предложения обмена")
	}
	if o.Status != OfferStatusPending {
		return apperr.New(apperr.KindInvalidState, "Предложение уже обработано")
	}
	o.Status = OfferStatusRejected
	return nil
}
