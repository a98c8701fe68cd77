package eventmatch

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/antonvlasov/badgeswap-api/internal/apperr"
	"github.com/antonvlasov/badgeswap-api/internal/models"
)

// MatchAPI — удаленные операции, которые нужны сценарию
type MatchAPI interface {
	Search(ctx context.Context, req *SearchRequest) (*models.MatchPage, error)
	StartChat(ctx context.Context, req *StartChatRequest) (uuid.UUID, error)
}

// Phase — фаза сценария
type Phase string

const (
	PhaseCriteria Phase = "criteria"
	PhaseResults  Phase = "results"
	PhaseStarting Phase = "chat-starting"
)

// Фазы — явное размеченное объединение: выбор кандидата без загруженных
// результатов или второй параллельный запуск чата невыразимы по построению
type state interface {
	phase() Phase
}

type criteriaState struct{}

type resultsState struct {
	page    models.MatchPage
	offset  int
	lastErr error
}

type startingState struct {
	prev      resultsState
	candidate uuid.UUID
}

func (criteriaState) phase() Phase { return PhaseCriteria }
func (resultsState) phase() Phase  { return PhaseResults }
func (startingState) phase() Phase { return PhaseStarting }

// Orchestrator ведет пользователя от условий обмена к чату.
// На сессию допускается не больше одного запущенного start-chat
type Orchestrator struct {
	api      MatchAPI
	pageSize int

	mu       sync.Mutex
	criteria models.TradeCriteria
	state    state
}

// NewOrchestrator создает сценарий в фазе ввода условий
func NewOrchestrator(api MatchAPI, pageSize int) *Orchestrator {
	if pageSize <= 0 {
		pageSize = 10
	}
	return &Orchestrator{api: api, pageSize: pageSize, state: criteriaState{}}
}

// Phase возвращает текущую фазу сценария
func (o *Orchestrator) Phase() Phase {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state.phase()
}

// SetCriteria задает условия обмена и возвращает сценарий к вводу условий.
// Недоступно, пока выполняется запуск чата
func (o *Orchestrator) SetCriteria(criteria models.TradeCriteria) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, busy := o.state.(startingState); busy {
		return apperr.New(apperr.KindInvalidState, "Дождитесь завершения запуска чата")
	}
	if err := criteria.Validate(); err != nil {
		return err
	}
	o.criteria = criteria
	o.state = criteriaState{}
	return nil
}

// Search запрашивает первую страницу кандидатов и переводит сценарий
// к результатам. Порядок кандидатов определяет сервис подбора
func (o *Orchestrator) Search(ctx context.Context) (models.MatchPage, error) {
	return o.search(ctx, 0)
}

// NextPage запрашивает следующую страницу. Доступно только из результатов
func (o *Orchestrator) NextPage(ctx context.Context) (models.MatchPage, error) {
	o.mu.Lock()
	current, ok := o.state.(resultsState)
	o.mu.Unlock()
	if !ok {
		return models.MatchPage{}, apperr.New(apperr.KindInvalidState, "Сначала выполните поиск")
	}
	if !current.page.HasMore {
		return models.MatchPage{}, apperr.New(apperr.KindInvalidState, "Больше результатов нет")
	}
	return o.search(ctx, current.offset+o.pageSize)
}

func (o *Orchestrator) search(ctx context.Context, offset int) (models.MatchPage, error) {
	o.mu.Lock()
	if _, busy := o.state.(startingState); busy {
		o.mu.Unlock()
		return models.MatchPage{}, apperr.New(apperr.KindInvalidState, "Дождитесь завершения запуска чата")
	}
	criteria := o.criteria
	o.mu.Unlock()

	if err := criteria.Validate(); err != nil {
		return models.MatchPage{}, err
	}

	page, err := o.api.Search(ctx, &SearchRequest{
		EventID:   criteria.EventID,
		GiveItems: criteria.GiveItems,
		WantItems: criteria.WantItems,
		Offset:    offset,
		Limit:     o.pageSize,
	})
	if err != nil {
		return models.MatchPage{}, err
	}

	o.mu.Lock()
	o.state = resultsState{page: *page, offset: offset}
	o.mu.Unlock()
	return *page, nil
}

// Results возвращает текущую страницу кандидатов
func (o *Orchestrator) Results() (models.MatchPage, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	switch s := o.state.(type) {
	case resultsState:
		return s.page, nil
	case startingState:
		return s.prev.page, nil
	default:
		return models.MatchPage{}, apperr.New(apperr.KindInvalidState, "Результаты еще не загружены")
	}
}

// LastError возвращает ошибку последнего неудачного запуска чата
func (o *Orchestrator) LastError() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if s, ok := o.state.(resultsState); ok {
		return s.lastErr
	}
	return nil
}

// StartChat запускает чат с выбранным кандидатом. Пока запрос выполняется,
// выбор других кандидатов заблокирован: два чата из одних условий с разными
// кандидатами недопустимы. При ошибке сценарий возвращается к результатам,
// прежние кандидаты сохраняются и повторный поиск не требуется
func (o *Orchestrator) StartChat(ctx context.Context, candidateID uuid.UUID) (uuid.UUID, error) {
	o.mu.Lock()
	current, ok := o.state.(resultsState)
	if !ok {
		busy := o.state.phase() == PhaseStarting
		o.mu.Unlock()
		if busy {
			return uuid.Nil, apperr.New(apperr.KindInvalidState, "Запуск чата уже выполняется")
		}
		return uuid.Nil, apperr.New(apperr.KindInvalidState, "Сначала выполните поиск")
	}

	found := false
	for _, m := range current.page.Matches {
		if m.PostID == candidateID {
			found = true
			break
		}
	}
	if !found {
		o.mu.Unlock()
		return uuid.Nil, apperr.New(apperr.KindValidation, "Кандидат не из текущих результатов поиска")
	}

	criteria := o.criteria
	o.state = startingState{prev: current, candidate: candidateID}
	o.mu.Unlock()

	roomID, err := o.api.StartChat(ctx, &StartChatRequest{
		EventID:       criteria.EventID,
		MatchedPostID: candidateID,
		GiveItems:     criteria.GiveItems,
		WantItems:     criteria.WantItems,
	})

	o.mu.Lock()
	defer o.mu.Unlock()
	if err != nil {
		current.lastErr = err
		o.state = current
		return uuid.Nil, err
	}

	// Чат создан — сценарий завершается, условия сбрасываются
	o.state = criteriaState{}
	o.criteria = models.TradeCriteria{}
	return roomID, nil
}
