package models

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/antonvlasov/badgeswap-api/internal/apperr"
)

// EventItem представляет позицию списка обмена: персонаж и количество
type EventItem struct {
	CharacterName string `json:"character_name"`
	Quantity      int    `json:"quantity"`
}

// TradeCriteria представляет условия мгновенного обмена на мероприятии.
// Живет только в клиентской сессии поиска, ядром не сохраняется
type TradeCriteria struct {
	EventID   uuid.UUID   `json:"event_id"`
	GiveItems []EventItem `json:"give_items"`
	WantItems []EventItem `json:"want_items"`
}

// Validate проверяет условия поиска: оба списка непустые,
// имена персонажей заполнены, количество не меньше единицы
func (c *TradeCriteria) Validate() error {
	if len(c.GiveItems) == 0 {
		return apperr.New(apperr.KindValidation, "Укажите хотя бы один предмет, который отдаете")
	}
	if len(c.WantItems) == 0 {
		return apperr.New(apperr.KindValidation, "Укажите хотя бы один предмет, который ищете")
	}
	for _, item := range append(append([]EventItem{}, c.GiveItems...), c.WantItems...) {
		if strings.TrimSpace(item.CharacterName) == "" {
			return apperr.New(apperr.KindValidation, "Имя персонажа не может быть пустым")
		}
		if item.Quantity < 1 {
			return apperr.New(apperr.KindValidation, "Количество должно быть не меньше 1")
		}
	}
	return nil
}

// GiveSummary собирает список отдаваемых предметов в текст описания
func (c *TradeCriteria) GiveSummary() string { return summarize(c.GiveItems) }

// WantSummary собирает список искомых предметов в текст описания
func (c *TradeCriteria) WantSummary() string { return summarize(c.WantItems) }

func summarize(items []EventItem) string {
	parts := make([]string, 0, len(items))
	for _, item := range items {
		parts = append(parts, fmt.Sprintf("%s ×%d", strings.TrimSpace(item.CharacterName), item.Quantity))
	}
	return strings.Join(parts, ", ")
}

// MatchCandidate представляет объявление-кандидат, найденное сервисом подбора.
// Порядок кандидатов определяет сервис подбора, ядро его не меняет
type MatchCandidate struct {
	PostID          uuid.UUID   `json:"post_id"`
	Owner           *User       `json:"owner,omitempty"`
	GiveItems       []EventItem `json:"give_items"`
	WantItems       []EventItem `json:"want_items"`
	ZoneCode        string      `json:"zone_code,omitempty"`
	GiveDescription string      `json:"give_description,omitempty"`
	WantDescription string      `json:"want_description,omitempty"`
}

// MatchPage представляет страницу результатов поиска
type MatchPage struct {
	Matches    []MatchCandidate `json:"matches"`
	TotalCount int              `json:"total_count"`
	HasMore    bool             `json:"has_more"`
}
