// Package eventmatch — клиентский сценарий мгновенного обмена на
// мероприятии: ввод условий, поиск кандидатов у сервиса подбора и
// запуск чата с выбранным кандидатом.
package eventmatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/antonvlasov/badgeswap-api/internal/apperr"
	"github.com/antonvlasov/badgeswap-api/internal/models"
)

// Client — JSON-over-HTTP клиент границы подбора. Сам алгоритм ранжирования
// живет на стороне сервиса подбора, клиент только формирует запросы
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient создает клиент с таймаутом запросов
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// SearchRequest — запрос поиска кандидатов
type SearchRequest struct {
	EventID   uuid.UUID          `json:"event_id"`
	GiveItems []models.EventItem `json:"give_items"`
	WantItems []models.EventItem `json:"want_items"`
	Offset    int                `json:"offset"`
	Limit     int                `json:"limit"`
}

// StartChatRequest — запрос запуска чата с кандидатом
type StartChatRequest struct {
	EventID       uuid.UUID          `json:"event_id"`
	MatchedPostID uuid.UUID          `json:"matched_post_id"`
	GiveItems     []models.EventItem `json:"give_items"`
	WantItems     []models.EventItem `json:"want_items"`
}

// Search запрашивает страницу кандидатов. Чтение идемпотентно, поэтому
// при сетевой ошибке допускается одна автоматическая повторная попытка
func (c *Client) Search(ctx context.Context, req *SearchRequest) (*models.MatchPage, error) {
	var page models.MatchPage
	err := c.postJSON(ctx, "/event-matches/search", req, &page)
	if apperr.IsTransport(err) {
		err = c.postJSON(ctx, "/event-matches/search", req, &page)
	}
	if err != nil {
		return nil, err
	}
	return &page, nil
}

// StartChat запускает чат с кандидатом. Без повторов: повтор мог бы
// создать второй чат при успехе, которого клиент не увидел
func (c *Client) StartChat(ctx context.Context, req *StartChatRequest) (uuid.UUID, error) {
	var resp struct {
		ChatRoomID uuid.UUID `json:"chat_room_id"`
	}
	if err := c.postJSON(ctx, "/event-matches/start-chat", req, &resp); err != nil {
		return uuid.Nil, err
	}
	return resp.ChatRoomID, nil
}

func (c *Client) postJSON(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("ошибка сериализации запроса: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("ошибка создания запроса: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return apperr.Wrap(apperr.KindTransport, "Сервис подбора недоступен", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&e)
		if e.Error == "" {
			e.Error = resp.Status
		}
		return apperr.New(kindFromStatus(resp.StatusCode), e.Error)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperr.Wrap(apperr.KindTransport, "Неверный ответ сервиса подбора", err)
	}
	return nil
}

func kindFromStatus(code int) apperr.Kind {
	switch code {
	case http.StatusBadRequest:
		return apperr.KindValidation
	case http.StatusForbidden:
		return apperr.KindForbidden
	case http.StatusNotFound:
		return apperr.KindNotFound
	case http.StatusConflict:
		return apperr.KindInvalidState
	default:
		return apperr.KindTransport
	}
}
