package models

import (
	"testing"

	"github.com/google/uuid"

	"github.com/antonvlasov/badgeswap-api/internal/apperr"
)

func TestPostSetPrivateAndRepublish(t *testing.T) {
	owner := uuid.New()
	stranger := uuid.New()

	tests := []struct {
		name     string
		status   string
		actor    uuid.UUID
		action   func(*Post, uuid.UUID) error
		wantKind apperr.Kind
		want     string
	}{
		{"скрытие из active", PostStatusActive, owner, (*Post).SetPrivate, apperr.KindUnknown, PostStatusPrivate},
		{"скрытие чужим пользователем", PostStatusActive, stranger, (*Post).SetPrivate, apperr.KindForbidden, PostStatusActive},
		{"скрытие из trading", PostStatusTrading, owner, (*Post).SetPrivate, apperr.KindInvalidTransition, PostStatusTrading},
		{"скрытие из completed", PostStatusCompleted, owner, (*Post).SetPrivate, apperr.KindInvalidTransition, PostStatusCompleted},
		{"публикация из private", PostStatusPrivate, owner, (*Post).Republish, apperr.KindUnknown, PostStatusActive},
		{"публикация из active", PostStatusActive, owner, (*Post).Republish, apperr.KindInvalidTransition, PostStatusActive},
		{"публикация чужим пользователем", PostStatusPrivate, stranger, (*Post).Republish, apperr.KindForbidden, PostStatusPrivate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			post := &Post{ID: uuid.New(), OwnerID: owner, Status: tt.status}
			err := tt.action(post, tt.actor)
			if tt.wantKind == apperr.KindUnknown {
				if err != nil {
					t.Fatalf("неожиданная ошибка: %v", err)
				}
			} else if apperr.KindOf(err) != tt.wantKind {
				t.Fatalf("ожидалась ошибка типа %d, получена %v", tt.wantKind, err)
			}
			if post.Status != tt.want {
				t.Errorf("статус = %q, ожидался %q", post.Status, tt.want)
			}
		})
	}
}

func TestPostTradingIsOneWay(t *testing.T) {
	post := &Post{ID: uuid.New(), OwnerID: uuid.New(), Status: PostStatusActive}

	if err := post.MarkTrading(); err != nil {
		t.Fatalf("переход в trading: %v", err)
	}
	if err := post.MarkTrading(); apperr.KindOf(err) != apperr.KindInvalidTransition {
		t.Errorf("повторный переход в trading должен быть отклонен, получено %v", err)
	}
	if err := post.SetPrivate(post.OwnerID); apperr.KindOf(err) != apperr.KindInvalidTransition {
		t.Errorf("скрытие из trading должно быть отклонено, получено %v", err)
	}

	if err := post.MarkCompleted(); err != nil {
		t.Fatalf("завершение из trading: %v", err)
	}
	if post.Status != PostStatusCompleted {
		t.Fatalf("статус = %q, ожидался completed", post.Status)
	}
	if err := post.MarkTrading(); apperr.KindOf(err) != apperr.KindInvalidTransition {
		t.Errorf("возврат из completed в trading должен быть отклонен, получено %v", err)
	}
}

func TestPostMarkCompletedRequiresTrading(t *testing.T) {
	for _, status := range []string{PostStatusActive, PostStatusPrivate, PostStatusCompleted} {
		post := &Post{ID: uuid.New(), Status: status}
		if err := post.MarkCompleted(); apperr.KindOf(err) != apperr.KindInvalidTransition {
			t.Errorf("завершение из %q должно быть отклонено, получено %v", status, err)
		}
	}
}

func TestPostEnsureDeletable(t *testing.T) {
	owner := uuid.New()

	post := &Post{ID: uuid.New(), OwnerID: owner, Status: PostStatusTrading}
	if err := post.EnsureDeletable(owner); apperr.KindOf(err) != apperr.KindInvalidTransition {
		t.Errorf("удаление во время обмена должно быть отклонено, получено %v", err)
	}

	post.Status = PostStatusActive
	if err := post.EnsureDeletable(uuid.New()); !apperr.IsForbidden(err) {
		t.Errorf("удаление чужим пользователем должно быть отклонено, получено %v", err)
	}
	if err := post.EnsureDeletable(owner); err != nil {
		t.Errorf("удаление владельцем из active: %v", err)
	}
}

func TestOfferAcceptRejectOncePending(t *testing.T) {
	offer := &Offer{ID: uuid.New(), IsOffer: true, Status: OfferStatusPending}
	if err := offer.Accept(); err != nil {
		t.Fatalf("принятие ожидающего предложения: %v", err)
	}
	if err := offer.Accept(); apperr.KindOf(err) != apperr.KindInvalidState {
		t.Errorf("повторное принятие должно быть отклонено, получено %v", err)
	}
	if err := offer.Reject(); apperr.KindOf(err) != apperr.KindInvalidState {
		t.Errorf("отклонение принятого должно быть отклонено, получено %v", err)
	}

	comment := &Offer{ID: uuid.New(), Content: "просто комментарий"}
	if err := comment.Accept(); err == nil {
		t.Error("комментарий без предложения нельзя принять")
	}
}

func TestChatRoomTransitions(t *testing.T) {
	user1, user2 := uuid.New(), uuid.New()
	newRoom := func() *ChatRoom {
		return &ChatRoom{ID: uuid.New(), User1ID: user1, User2ID: user2, Status: ChatRoomStatusActive}
	}

	room := newRoom()
	if err := room.Complete(uuid.New()); !apperr.IsForbidden(err) {
		t.Errorf("завершение посторонним должно быть отклонено, получено %v", err)
	}
	if err := room.Complete(user2); err != nil {
		t.Fatalf("завершение участником: %v", err)
	}
	if err := room.Complete(user1); apperr.KindOf(err) != apperr.KindInvalidState {
		t.Errorf("повторное завершение должно быть отклонено, получено %v", err)
	}
	if err := room.EnsureCanPost(user1); err == nil {
		t.Error("отправка в завершенный чат должна быть отклонена")
	}

	room = newRoom()
	if err := room.Cancel(user1); err != nil {
		t.Fatalf("отмена участником: %v", err)
	}
	if room.Status != ChatRoomStatusCancelled {
		t.Errorf("статус = %q, ожидался cancelled", room.Status)
	}
	if err := room.Complete(user1); apperr.KindOf(err) != apperr.KindInvalidState {
		t.Errorf("завершение отмененного чата должно быть отклонено, получено %v", err)
	}
}

func TestTradeCriteriaValidate(t *testing.T) {
	eventID := uuid.New()
	valid := TradeCriteria{
		EventID:   eventID,
		GiveItems: []EventItem{{CharacterName: "Мику", Quantity: 2}},
		WantItems: []EventItem{{CharacterName: "Рин", Quantity: 1}},
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("корректные условия: %v", err)
	}

	tests := []struct {
		name     string
		criteria TradeCriteria
	}{
		{"пустой список отдаю", TradeCriteria{EventID: eventID, WantItems: valid.WantItems}},
		{"пустой список ищу", TradeCriteria{EventID: eventID, GiveItems: valid.GiveItems}},
		{"пустое имя персонажа", TradeCriteria{EventID: eventID,
			GiveItems: []EventItem{{CharacterName: "  ", Quantity: 1}}, WantItems: valid.WantItems}},
		{"нулевое количество", TradeCriteria{EventID: eventID,
			GiveItems: []EventItem{{CharacterName: "Мику", Quantity: 0}}, WantItems: valid.WantItems}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.criteria.Validate(); !apperr.IsValidation(err) {
				t.Errorf("ожидалась ошибка валидации, получено %v", err)
			}
		})
	}
}

func TestTradeCriteriaSummary(t *testing.T) {
	criteria := TradeCriteria{
		GiveItems: []EventItem{{CharacterName: "Мику", Quantity: 2}, {CharacterName: "Лен", Quantity: 1}},
		WantItems: []EventItem{{CharacterName: "Рин", Quantity: 3}},
	}
	if got := criteria.GiveSummary(); got != "Мику ×2, Лен ×1" {
		t.Errorf("GiveSummary = %q", got)
	}
	if got := criteria.WantSummary(); got != "Рин ×3" {
		t.Errorf("WantSummary = %q", got)
	}
}
