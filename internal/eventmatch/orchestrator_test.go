package eventmatch

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/antonvlasov/badgeswap-api/internal/apperr"
	"github.com/antonvlasov/badgeswap-api/internal/models"
)

// fakeAPI — управляемая заглушка сервиса подбора
type fakeAPI struct {
	mu          sync.Mutex
	candidates  []models.MatchCandidate
	searchCalls []SearchRequest
	startErr    error
	startBlock  chan struct{} // если задан, StartChat ждет закрытия
	roomID      uuid.UUID
}

func (f *fakeAPI) Search(ctx context.Context, req *SearchRequest) (*models.MatchPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searchCalls = append(f.searchCalls, *req)

	total := len(f.candidates)
	start := req.Offset
	if start > total {
		start = total
	}
	end := start + req.Limit
	if end > total {
		end = total
	}
	return &models.MatchPage{
		Matches:    f.candidates[start:end],
		TotalCount: total,
		HasMore:    end < total,
	}, nil
}

func (f *fakeAPI) StartChat(ctx context.Context, req *StartChatRequest) (uuid.UUID, error) {
	if f.startBlock != nil {
		<-f.startBlock
	}
	if f.startErr != nil {
		return uuid.Nil, f.startErr
	}
	return f.roomID, nil
}

func candidates(n int) []models.MatchCandidate {
	out := make([]models.MatchCandidate, n)
	for i := range out {
		out[i] = models.MatchCandidate{PostID: uuid.New()}
	}
	return out
}

func validCriteria() models.TradeCriteria {
	return models.TradeCriteria{
		EventID:   uuid.New(),
		GiveItems: []models.EventItem{{CharacterName: "Мику", Quantity: 2}},
		WantItems: []models.EventItem{{CharacterName: "Рин", Quantity: 1}},
	}
}

func TestOrchestratorHappyPath(t *testing.T) {
	ctx := context.Background()
	api := &fakeAPI{candidates: candidates(3), roomID: uuid.New()}
	o := NewOrchestrator(api, 10)

	if o.Phase() != PhaseCriteria {
		t.Fatalf("начальная фаза = %q", o.Phase())
	}

	// Поиск без условий отклоняется
	if _, err := o.Search(ctx); !apperr.IsValidation(err) {
		t.Fatalf("поиск без условий должен быть отклонен, получено %v", err)
	}

	if err := o.SetCriteria(validCriteria()); err != nil {
		t.Fatalf("установка условий: %v", err)
	}

	page, err := o.Search(ctx)
	if err != nil {
		t.Fatalf("поиск: %v", err)
	}
	if o.Phase() != PhaseResults {
		t.Errorf("фаза после поиска = %q", o.Phase())
	}
	if len(page.Matches) != 3 || page.HasMore {
		t.Errorf("неверная страница: %+v", page)
	}

	roomID, err := o.StartChat(ctx, page.Matches[1].PostID)
	if err != nil {
		t.Fatalf("запуск чата: %v", err)
	}
	if roomID != api.roomID {
		t.Errorf("ID чата = %s, ожидался %s", roomID, api.roomID)
	}

	// После успеха сценарий возвращается к вводу условий
	if o.Phase() != PhaseCriteria {
		t.Errorf("фаза после успеха = %q", o.Phase())
	}
	if _, err := o.Results(); !apperr.IsConflict(err) {
		t.Errorf("результаты после сброса должны быть недоступны, получено %v", err)
	}
}

func TestOrchestratorPagination(t *testing.T) {
	ctx := context.Background()
	api := &fakeAPI{candidates: candidates(25)}
	o := NewOrchestrator(api, 10)

	if err := o.SetCriteria(validCriteria()); err != nil {
		t.Fatalf("установка условий: %v", err)
	}

	// Листание до поиска отклоняется
	if _, err := o.NextPage(ctx); !apperr.IsConflict(err) {
		t.Fatalf("листание до поиска должно быть отклонено, получено %v", err)
	}

	seen := make(map[uuid.UUID]bool)
	page, err := o.Search(ctx)
	if err != nil {
		t.Fatalf("поиск: %v", err)
	}
	for page.HasMore {
		for _, m := range page.Matches {
			if seen[m.PostID] {
				t.Fatalf("кандидат %s встретился дважды", m.PostID)
			}
			seen[m.PostID] = true
		}
		page, err = o.NextPage(ctx)
		if err != nil {
			t.Fatalf("следующая страница: %v", err)
		}
	}
	for _, m := range page.Matches {
		if seen[m.PostID] {
			t.Fatalf("кандидат %s встретился дважды", m.PostID)
		}
		seen[m.PostID] = true
	}
	if len(seen) != 25 {
		t.Errorf("кандидатов = %d, ожидалось 25", len(seen))
	}

	// Запросы шли с возрастающим смещением
	wantOffsets := []int{0, 10, 20}
	if len(api.searchCalls) != len(wantOffsets) {
		t.Fatalf("запросов = %d", len(api.searchCalls))
	}
	for i, call := range api.searchCalls {
		if call.Offset != wantOffsets[i] {
			t.Errorf("запрос %d со смещением %d, ожидалось %d", i, call.Offset, wantOffsets[i])
		}
	}

	if _, err := o.NextPage(ctx); !apperr.IsConflict(err) {
		t.Errorf("листание за последней страницей должно быть отклонено, получено %v", err)
	}
}

func TestOrchestratorStartChatSingleFlight(t *testing.T) {
	ctx := context.Background()
	block := make(chan struct{})
	api := &fakeAPI{candidates: candidates(2), roomID: uuid.New(), startBlock: block}
	o := NewOrchestrator(api, 10)

	if err := o.SetCriteria(validCriteria()); err != nil {
		t.Fatalf("установка условий: %v", err)
	}
	page, err := o.Search(ctx)
	if err != nil {
		t.Fatalf("поиск: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		_, err := o.StartChat(ctx, page.Matches[0].PostID)
		done <- err
	}()

	// Дождаться перехода в фазу запуска
	for o.Phase() != PhaseStarting {
		time.Sleep(time.Millisecond)
	}

	// Пока запрос в полете, второй запуск, поиск и смена условий отклоняются
	if _, err := o.StartChat(ctx, page.Matches[1].PostID); !apperr.IsConflict(err) {
		t.Errorf("второй запуск должен быть отклонен, получено %v", err)
	}
	if _, err := o.Search(ctx); !apperr.IsConflict(err) {
		t.Errorf("поиск во время запуска должен быть отклонен, получено %v", err)
	}
	if err := o.SetCriteria(validCriteria()); !apperr.IsConflict(err) {
		t.Errorf("смена условий во время запуска должна быть отклонена, получено %v", err)
	}

	// Кандидаты при этом остаются видимыми
	if results, err := o.Results(); err != nil || len(results.Matches) != 2 {
		t.Errorf("результаты потеряны во время запуска: %v %v", results, err)
	}

	close(block)
	if err := <-done; err != nil {
		t.Fatalf("первый запуск: %v", err)
	}
}

func TestOrchestratorStartChatFailureKeepsResults(t *testing.T) {
	ctx := context.Background()
	api := &fakeAPI{
		candidates: candidates(2),
		startErr:   apperr.New(apperr.KindInvalidState, "Объявление уже участвует в другом обмене"),
	}
	o := NewOrchestrator(api, 10)

	if err := o.SetCriteria(validCriteria()); err != nil {
		t.Fatalf("установка условий: %v", err)
	}
	page, err := o.Search(ctx)
	if err != nil {
		t.Fatalf("поиск: %v", err)
	}

	_, err = o.StartChat(ctx, page.Matches[0].PostID)
	if !apperr.IsConflict(err) {
		t.Fatalf("ожидался конфликт, получено %v", err)
	}

	// Сценарий вернулся к результатам, кандидаты не потеряны
	if o.Phase() != PhaseResults {
		t.Errorf("фаза после ошибки = %q", o.Phase())
	}
	results, err := o.Results()
	if err != nil || len(results.Matches) != 2 {
		t.Fatalf("кандидаты потеряны: %v %v", results, err)
	}
	if o.LastError() == nil {
		t.Error("ошибка запуска не сохранена")
	}

	// Немедленный повтор с другим кандидатом возможен без нового поиска
	api.startErr = nil
	api.roomID = uuid.New()
	roomID, err := o.StartChat(ctx, page.Matches[1].PostID)
	if err != nil {
		t.Fatalf("повторный запуск: %v", err)
	}
	if roomID != api.roomID {
		t.Errorf("ID чата = %s", roomID)
	}
}

func TestOrchestratorStartChatRequiresKnownCandidate(t *testing.T) {
	ctx := context.Background()
	api := &fakeAPI{candidates: candidates(1)}
	o := NewOrchestrator(api, 10)

	// До поиска запуск невозможен
	if _, err := o.StartChat(ctx, uuid.New()); !apperr.IsConflict(err) {
		t.Fatalf("запуск до поиска должен быть отклонен, получено %v", err)
	}

	if err := o.SetCriteria(validCriteria()); err != nil {
		t.Fatalf("установка условий: %v", err)
	}
	if _, err := o.Search(ctx); err != nil {
		t.Fatalf("поиск: %v", err)
	}

	// Кандидат не из текущей страницы
	if _, err := o.StartChat(ctx, uuid.New()); !apperr.IsValidation(err) {
		t.Errorf("посторонний кандидат должен быть отклонен, получено %v", err)
	}
}
