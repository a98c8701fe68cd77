// Package memory — хранилище в памяти. Используется в тестах движков
// и как эталон контракта repository.Store.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/antonvlasov/badgeswap-api/internal/apperr"
	"github.com/antonvlasov/badgeswap-api/internal/models"
	"github.com/antonvlasov/badgeswap-api/internal/repository"
)

// Store реализует repository.Store поверх map-ов
type Store struct {
	// txMu сериализует транзакции: внутри InTx пишет ровно один вызов
	txMu sync.Mutex
	mu   sync.RWMutex

	posts      map[uuid.UUID]models.Post
	offers     map[uuid.UUID]models.Offer
	offerOrder []uuid.UUID
	rooms      map[uuid.UUID]models.ChatRoom
	messages   map[uuid.UUID][]models.ChatMessage
	users      map[uuid.UUID]models.User
	tgUsers    map[int64]uuid.UUID

	lastMsgTime map[uuid.UUID]time.Time

	// Now подменяется в тестах для детерминированных меток времени
	Now func() time.Time
}

// NewStore создает пустое хранилище
func NewStore() *Store {
	return &Store{
		posts:       make(map[uuid.UUID]models.Post),
		offers:      make(map[uuid.UUID]models.Offer),
		rooms:       make(map[uuid.UUID]models.ChatRoom),
		messages:    make(map[uuid.UUID][]models.ChatMessage),
		users:       make(map[uuid.UUID]models.User),
		tgUsers:     make(map[int64]uuid.UUID),
		lastMsgTime: make(map[uuid.UUID]time.Time),
		Now:         time.Now,
	}
}

func (s *Store) Posts() repository.PostRepository         { return (*postRepo)(s) }
func (s *Store) Offers() repository.OfferRepository       { return (*offerRepo)(s) }
func (s *Store) ChatRooms() repository.ChatRoomRepository { return (*chatRepo)(s) }
func (s *Store) Users() repository.UserRepository         { return (*userRepo)(s) }

// InTx выполняет fn под общим замком транзакций. Конкурирующие принятия
// предложений сериализуются здесь, и проигравший видит уже изменившийся статус
func (s *Store) InTx(ctx context.Context, fn func(repository.Store) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	return fn(s)
}

// --- объявления ---

type postRepo Store

func (r *postRepo) Create(ctx context.Context, post *models.Post) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if post.CreatedAt.IsZero() {
		post.CreatedAt = r.Now()
	}
	post.UpdatedAt = post.CreatedAt
	r.posts[post.ID] = *post
	return nil
}

func (r *postRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Post, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	post, ok := r.posts[id]
	if !ok {
		return nil, apperr.New(apperr.KindNotFound, "Объявление не найдено")
	}
	return &post, nil
}

// GetByIDForUpdate эквивалентен GetByID: писателей сериализует txMu
func (r *postRepo) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Post, error) {
	return r.GetByID(ctx, id)
}

func (r *postRepo) Update(ctx context.Context, post *models.Post) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.posts[post.ID]; !ok {
		return apperr.New(apperr.KindNotFound, "Объявление не найдено")
	}
	post.UpdatedAt = r.Now()
	r.posts[post.ID] = *post
	return nil
}

func (r *postRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.posts[id]; !ok {
		return apperr.New(apperr.KindNotFound, "Объявление не найдено")
	}
	delete(r.posts, id)
	return nil
}

func (r *postRepo) ListByOwner(ctx context.Context, ownerID uuid.UUID, status string) ([]models.Post, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []models.Post
	for _, post := range r.posts {
		if post.OwnerID != ownerID {
			continue
		}
		if status != "" && post.Status != status {
			continue
		}
		out = append(out, post)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *postRepo) ListPublic(ctx context.Context, limit, offset int) ([]models.Post, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var all []models.Post
	for _, post := range r.posts {
		if post.Status == models.PostStatusActive {
			all = append(all, post)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	total := len(all)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

// --- предложения ---

type offerRepo Store

func (r *offerRepo) Create(ctx context.Context, offer *models.Offer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if offer.CreatedAt.IsZero() {
		offer.CreatedAt = r.Now()
	}
	r.offers[offer.ID] = *offer
	r.offerOrder = append(r.offerOrder, offer.ID)
	return nil
}

func (r *offerRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Offer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	offer, ok := r.offers[id]
	if !ok {
		return nil, apperr.New(apperr.KindNotFound, "Предложение не найдено")
	}
	return &offer, nil
}

// GetByIDForUpdate эквивалентен GetByID: писателей сериализует txMu
func (r *offerRepo) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Offer, error) {
	return r.GetByID(ctx, id)
}

func (r *offerRepo) UpdateStatus(ctx context.Context, offer *models.Offer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.offers[offer.ID]
	if !ok {
		return apperr.New(apperr.KindNotFound, "Предложение не найдено")
	}
	stored.Status = offer.Status
	r.offers[offer.ID] = stored
	return nil
}

func (r *offerRepo) ListByPost(ctx context.Context, postID uuid.UUID) ([]models.Offer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []models.Offer
	for _, id := range r.offerOrder {
		offer := r.offers[id]
		if offer.PostID == postID {
			out = append(out, offer)
		}
	}
	return out, nil
}

func (r *offerRepo) ListPendingByRelatedPost(ctx context.Context, relatedPostID uuid.UUID) ([]models.Offer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []models.Offer
	for _, id := range r.offerOrder {
		offer := r.offers[id]
		if offer.IsOffer && offer.Status == models.OfferStatusPending &&
			offer.RelatedPostID != nil && *offer.RelatedPostID == relatedPostID {
			out = append(out, offer)
		}
	}
	return out, nil
}

// --- чаты ---

type chatRepo Store

func (r *chatRepo) Create(ctx context.Context, room *models.ChatRoom) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if room.CreatedAt.IsZero() {
		room.CreatedAt = r.Now()
	}
	room.UpdatedAt = room.CreatedAt
	r.rooms[room.ID] = *room
	return nil
}

func (r *chatRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.ChatRoom, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	room, ok := r.rooms[id]
	if !ok {
		return nil, apperr.New(apperr.KindNotFound, "Чат не найден")
	}
	return &room, nil
}

func (r *chatRepo) FindActiveByPosts(ctx context.Context, postA, postB uuid.UUID) (*models.ChatRoom, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, room := range r.rooms {
		if room.Status != models.ChatRoomStatusActive {
			continue
		}
		if (room.Post1ID == postA && room.Post2ID == postB) ||
			(room.Post1ID == postB && room.Post2ID == postA) {
			found := room
			return &found, nil
		}
	}
	return nil, apperr.New(apperr.KindNotFound, "Чат не найден")
}

func (r *chatRepo) UpdateStatus(ctx context.Context, room *models.ChatRoom) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.rooms[room.ID]
	if !ok {
		return apperr.New(apperr.KindNotFound, "Чат не найден")
	}
	stored.Status = room.Status
	stored.LastMessageText = room.LastMessageText
	stored.LastMessageTime = room.LastMessageTime
	stored.UpdatedAt = r.Now()
	r.rooms[room.ID] = stored
	return nil
}

func (r *chatRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.ChatRoom, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []models.ChatRoom
	for _, room := range r.rooms {
		if room.HasParticipant(userID) {
			out = append(out, room)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *chatRepo) AppendMessage(ctx context.Context, msg *models.ChatMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rooms[msg.RoomID]; !ok {
		return apperr.New(apperr.KindNotFound, "Чат не найден")
	}
	// created_at назначается хранилищем строго монотонно в пределах чата
	now := r.Now()
	if last, ok := r.lastMsgTime[msg.RoomID]; ok && !now.After(last) {
		now = last.Add(time.Microsecond)
	}
	msg.CreatedAt = now
	r.lastMsgTime[msg.RoomID] = now
	r.messages[msg.RoomID] = append(r.messages[msg.RoomID], *msg)
	return nil
}

func (r *chatRepo) ListMessages(ctx context.Context, roomID uuid.UUID) ([]models.ChatMessage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	msgs := r.messages[roomID]
	out := make([]models.ChatMessage, len(msgs))
	copy(out, msgs)
	return out, nil
}

func (r *chatRepo) MarkMessagesRead(ctx context.Context, roomID, readerID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	msgs := r.messages[roomID]
	for i := range msgs {
		if msgs[i].SenderID != readerID {
			msgs[i].IsRead = true
		}
	}
	return nil
}

// --- пользователи ---

type userRepo Store

func (r *userRepo) UpsertTelegram(ctx context.Context, telegramID int64, user *models.User) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if id, ok := r.tgUsers[telegramID]; ok {
		stored := r.users[id]
		stored.Username = user.Username
		stored.FirstName = user.FirstName
		stored.LastName = user.LastName
		stored.AvatarURL = user.AvatarURL
		r.users[id] = stored
		return &stored, nil
	}
	user.ID = uuid.New()
	user.CreatedAt = r.Now()
	r.users[user.ID] = *user
	r.tgUsers[telegramID] = user.ID
	created := *user
	return &created, nil
}

func (r *userRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.users[id]
	if !ok {
		return nil, apperr.New(apperr.KindNotFound, "Пользователь не найден")
	}
	return &user, nil
}
