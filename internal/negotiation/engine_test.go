package negotiation

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/antonvlasov/badgeswap-api/internal/apperr"
	"github.com/antonvlasov/badgeswap-api/internal/models"
	"github.com/antonvlasov/badgeswap-api/internal/repository/memory"
)

func newPost(t *testing.T, store *memory.Store, owner uuid.UUID, status string) *models.Post {
	t.Helper()
	post := &models.Post{
		ID:              uuid.New(),
		OwnerID:         owner,
		GiveDescription: "значок Мику",
		WantDescription: "значок Рин",
		Status:          status,
	}
	if err := store.Posts().Create(context.Background(), post); err != nil {
		t.Fatalf("создание объявления: %v", err)
	}
	return post
}

func TestCreateOfferValidation(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	engine := NewEngine(store)

	owner := uuid.New()
	author := uuid.New()
	post := newPost(t, store, owner, models.PostStatusActive)
	authorPost := newPost(t, store, author, models.PostStatusActive)
	tradingPost := newPost(t, store, author, models.PostStatusTrading)
	foreignPost := newPost(t, store, uuid.New(), models.PostStatusActive)

	tests := []struct {
		name    string
		postID  uuid.UUID
		author  uuid.UUID
		content string
		related *uuid.UUID
		wantErr func(error) bool
	}{
		{"пустой текст", post.ID, author, "   ", nil, apperr.IsValidation},
		{"предложение на собственное объявление", post.ID, owner, "обменяемся?", &authorPost.ID, apperr.IsValidation},
		{"чужое встречное объявление", post.ID, author, "обменяемся?", &foreignPost.ID, apperr.IsForbidden},
		{"встречное объявление не active", post.ID, author, "обменяемся?", &tradingPost.ID, apperr.IsConflict},
		{"объявление не найдено", uuid.New(), author, "обменяемся?", nil, apperr.IsNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := engine.CreateOffer(ctx, tt.postID, tt.author, tt.content, tt.related)
			if !tt.wantErr(err) {
				t.Errorf("неожиданный результат: %v", err)
			}
		})
	}
}

func TestCreateOfferCommentAndProposal(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	engine := NewEngine(store)

	owner := uuid.New()
	author := uuid.New()
	post := newPost(t, store, owner, models.PostStatusActive)
	authorPost := newPost(t, store, author, models.PostStatusActive)

	comment, err := engine.CreateOffer(ctx, post.ID, author, "а что за значок?", nil)
	if err != nil {
		t.Fatalf("создание комментария: %v", err)
	}
	if comment.IsOffer || comment.Status != "" {
		t.Errorf("комментарий без встречного объявления не должен быть предложением: %+v", comment)
	}

	offer, err := engine.CreateOffer(ctx, post.ID, author, "готов поменяться", &authorPost.ID)
	if err != nil {
		t.Fatalf("создание предложения: %v", err)
	}
	if !offer.IsOffer || offer.Status != models.OfferStatusPending {
		t.Errorf("предложение должно быть ожидающим: %+v", offer)
	}

	// Создание предложения не трогает статус объявления
	got, _ := store.Posts().GetByID(ctx, post.ID)
	if got.Status != models.PostStatusActive {
		t.Errorf("статус объявления = %q, ожидался active", got.Status)
	}

	offers, err := engine.ListOffers(ctx, post.ID)
	if err != nil {
		t.Fatalf("список предложений: %v", err)
	}
	if len(offers) != 2 || offers[0].ID != comment.ID || offers[1].ID != offer.ID {
		t.Errorf("ветка должна сохранять порядок добавления: %+v", offers)
	}
}

func TestAcceptCreatesChatAndCascades(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	engine := NewEngine(store)

	ownerA := uuid.New()
	authorB := uuid.New()
	ownerD := uuid.New()
	postA := newPost(t, store, ownerA, models.PostStatusActive)
	postB := newPost(t, store, authorB, models.PostStatusActive)
	postD := newPost(t, store, ownerD, models.PostStatusActive)

	// B предлагает одно и то же объявление и на пост A, и на пост D
	offerOnA, err := engine.CreateOffer(ctx, postA.ID, authorB, "меняю на мой значок", &postB.ID)
	if err != nil {
		t.Fatalf("предложение на пост A: %v", err)
	}
	offerOnD, err := engine.CreateOffer(ctx, postD.ID, authorB, "меняю на мой значок", &postB.ID)
	if err != nil {
		t.Fatalf("предложение на пост D: %v", err)
	}

	result, err := engine.Accept(ctx, postA.ID, offerOnA.ID, ownerA)
	if err != nil {
		t.Fatalf("принятие предложения: %v", err)
	}
	if result.MyPostID != postA.ID || result.PartnerPostID != postB.ID {
		t.Errorf("неверные объявления в результате: %+v", result)
	}

	// Оба объявления в обмене
	for _, id := range []uuid.UUID{postA.ID, postB.ID} {
		post, _ := store.Posts().GetByID(ctx, id)
		if post.Status != models.PostStatusTrading {
			t.Errorf("объявление %s в статусе %q, ожидался trading", id, post.Status)
		}
	}

	// Чат создан с обоими участниками
	room, err := store.ChatRooms().GetByID(ctx, result.ChatRoomID)
	if err != nil {
		t.Fatalf("чат не создан: %v", err)
	}
	if !room.HasParticipant(ownerA) || !room.HasParticipant(authorB) {
		t.Errorf("чат без участников обмена: %+v", room)
	}

	// Второе предложение с тем же встречным объявлением отклонено каскадом
	got, _ := store.Offers().GetByID(ctx, offerOnD.ID)
	if got.Status != models.OfferStatusRejected {
		t.Errorf("каскадное отклонение не сработало: статус %q", got.Status)
	}

	// Пост D при этом остается активным
	gotD, _ := store.Posts().GetByID(ctx, postD.ID)
	if gotD.Status != models.PostStatusActive {
		t.Errorf("статус поста D = %q, ожидался active", gotD.Status)
	}
}

func TestAcceptSecondOfferLosesRace(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	engine := NewEngine(store)

	ownerA := uuid.New()
	authorB := uuid.New()
	authorC := uuid.New()
	postA := newPost(t, store, ownerA, models.PostStatusActive)
	postB := newPost(t, store, authorB, models.PostStatusActive)
	postC := newPost(t, store, authorC, models.PostStatusActive)

	offerB, err := engine.CreateOffer(ctx, postA.ID, authorB, "вариант 1", &postB.ID)
	if err != nil {
		t.Fatalf("предложение B: %v", err)
	}
	offerC, err := engine.CreateOffer(ctx, postA.ID, authorC, "вариант 2", &postC.ID)
	if err != nil {
		t.Fatalf("предложение C: %v", err)
	}

	if _, err := engine.Accept(ctx, postA.ID, offerB.ID, ownerA); err != nil {
		t.Fatalf("первое принятие: %v", err)
	}

	// Второе принятие видит объявление уже в trading и получает чистый отказ
	_, err = engine.Accept(ctx, postA.ID, offerC.ID, ownerA)
	if !apperr.IsConflict(err) {
		t.Fatalf("ожидался конфликт, получено %v", err)
	}
	if apperr.MessageOf(err) != "Предложение уже обработано" {
		t.Errorf("сообщение = %q", apperr.MessageOf(err))
	}

	// Проигравшее встречное объявление не пострадало
	gotC, _ := store.Posts().GetByID(ctx, postC.ID)
	if gotC.Status != models.PostStatusActive {
		t.Errorf("статус поста C = %q, ожидался active", gotC.Status)
	}

	// Второй чат не создан
	rooms, _ := store.ChatRooms().ListByUser(ctx, ownerA)
	if len(rooms) != 1 {
		t.Errorf("чатов = %d, ожидался 1", len(rooms))
	}
}

func TestAcceptRequiresOwner(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	engine := NewEngine(store)

	ownerA := uuid.New()
	authorB := uuid.New()
	postA := newPost(t, store, ownerA, models.PostStatusActive)
	postB := newPost(t, store, authorB, models.PostStatusActive)

	offer, err := engine.CreateOffer(ctx, postA.ID, authorB, "обменяемся?", &postB.ID)
	if err != nil {
		t.Fatalf("создание предложения: %v", err)
	}

	if _, err := engine.Accept(ctx, postA.ID, offer.ID, authorB); !apperr.IsForbidden(err) {
		t.Errorf("принятие не владельцем должно быть отклонено, получено %v", err)
	}
	if _, err := engine.Reject(ctx, postA.ID, offer.ID, authorB); !apperr.IsForbidden(err) {
		t.Errorf("отклонение не владельцем должно быть отклонено, получено %v", err)
	}
}

func TestRejectKeepsPostActive(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	engine := NewEngine(store)

	ownerA := uuid.New()
	authorB := uuid.New()
	postA := newPost(t, store, ownerA, models.PostStatusActive)
	postB := newPost(t, store, authorB, models.PostStatusActive)

	offer, err := engine.CreateOffer(ctx, postA.ID, authorB, "обменяемся?", &postB.ID)
	if err != nil {
		t.Fatalf("создание предложения: %v", err)
	}

	rejected, err := engine.Reject(ctx, postA.ID, offer.ID, ownerA)
	if err != nil {
		t.Fatalf("отклонение: %v", err)
	}
	if rejected.Status != models.OfferStatusRejected {
		t.Errorf("статус предложения = %q", rejected.Status)
	}

	got, _ := store.Posts().GetByID(ctx, postA.ID)
	if got.Status != models.PostStatusActive {
		t.Errorf("статус объявления = %q, ожидался active", got.Status)
	}

	// Повторное отклонение — конфликт
	if _, err := engine.Reject(ctx, postA.ID, offer.ID, ownerA); !apperr.IsConflict(err) {
		t.Errorf("повторное отклонение должно быть конфликтом, получено %v", err)
	}
}

func TestAcceptConcurrentOffersOneWins(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	engine := NewEngine(store)

	owner := uuid.New()
	authorB := uuid.New()
	authorC := uuid.New()
	post := newPost(t, store, owner, models.PostStatusActive)
	postB := newPost(t, store, authorB, models.PostStatusActive)
	postC := newPost(t, store, authorC, models.PostStatusActive)

	offerB, err := engine.CreateOffer(ctx, post.ID, authorB, "обменяемся?", &postB.ID)
	if err != nil {
		t.Fatalf("создание предложения: %v", err)
	}
	offerC, err := engine.CreateOffer(ctx, post.ID, authorC, "а лучше со мной", &postC.ID)
	if err != nil {
		t.Fatalf("создание предложения: %v", err)
	}

	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i, offerID := range []uuid.UUID{offerB.ID, offerC.ID} {
		wg.Add(1)
		go func(i int, offerID uuid.UUID) {
			defer wg.Done()
			_, errs[i] = engine.Accept(ctx, post.ID, offerID, owner)
		}(i, offerID)
	}
	wg.Wait()

	var won, lost int
	for _, err := range errs {
		switch {
		case err == nil:
			won++
		case apperr.IsConflict(err):
			lost++
		default:
			t.Fatalf("неожиданная ошибка принятия: %v", err)
		}
	}
	if won != 1 || lost != 1 {
		t.Fatalf("принятий: %d, отказов: %d, ожидали ровно одно принятие", won, lost)
	}

	offers, err := store.Offers().ListByPost(ctx, post.ID)
	if err != nil {
		t.Fatalf("чтение предложений: %v", err)
	}
	accepted := 0
	for _, offer := range offers {
		if offer.Status == models.OfferStatusAccepted {
			accepted++
		}
	}
	if accepted != 1 {
		t.Errorf("принятых предложений %d, ожидали ровно одно", accepted)
	}
}

func TestOffersEmbedAuthorAndRelatedPost(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	engine := NewEngine(store)

	owner := uuid.New()
	author, err := store.Users().UpsertTelegram(ctx, 100500, &models.User{Username: "miku_fan", FirstName: "Аня"})
	if err != nil {
		t.Fatalf("создание пользователя: %v", err)
	}

	post := newPost(t, store, owner, models.PostStatusActive)
	authorPost := newPost(t, store, author.ID, models.PostStatusActive)

	created, err := engine.CreateOffer(ctx, post.ID, author.ID, "обменяемся?", &authorPost.ID)
	if err != nil {
		t.Fatalf("создание предложения: %v", err)
	}
	if created.Author == nil || created.Author.ID != author.ID {
		t.Errorf("в созданном предложении нет данных автора: %+v", created.Author)
	}
	if created.RelatedPost == nil || created.RelatedPost.ID != authorPost.ID {
		t.Errorf("в созданном предложении нет встречного объявления: %+v", created.RelatedPost)
	}

	offers, err := engine.ListOffers(ctx, post.ID)
	if err != nil {
		t.Fatalf("чтение предложений: %v", err)
	}
	if len(offers) != 1 {
		t.Fatalf("предложений %d, ожидали 1", len(offers))
	}
	if offers[0].Author == nil || offers[0].Author.Username != "miku_fan" {
		t.Errorf("в списке нет данных автора: %+v", offers[0].Author)
	}
	if offers[0].RelatedPost == nil || offers[0].RelatedPost.ID != authorPost.ID {
		t.Errorf("в списке нет встречного объявления: %+v", offers[0].RelatedPost)
	}
}
