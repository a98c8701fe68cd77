package websocket

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventType определяет тип события WebSocket
type EventType string

const (
	EventConnected     EventType = "connected"
	EventNewMessage    EventType = "new_message"
	EventRoomCompleted EventType = "room_completed"
	EventRoomCancelled EventType = "room_cancelled"
)

// Event представляет структуру сообщения для WebSocket.
// Проталкивание — необязательная надстройка над тянущим контрактом:
// клиент всё равно перечитывает сообщения чата сам
type Event struct {
	Type      EventType       `json:"type"`
	RoomID    string          `json:"room_id,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// Manager представляет центральный менеджер для всех WebSocket соединений
type Manager struct {
	clientsMutex sync.RWMutex
	clients      map[uuid.UUID]*Client
	userClients  map[string]map[uuid.UUID]bool // userID -> clientID -> true
}

// NewManager создает новый экземпляр Manager
func NewManager() *Manager {
	return &Manager{
		clients:     make(map[uuid.UUID]*Client),
		userClients: make(map[string]map[uuid.UUID]bool),
	}
}

// register добавляет соединение клиента
func (m *Manager) register(client *Client) {
	m.clientsMutex.Lock()
	defer m.clientsMutex.Unlock()

	m.clients[client.ID] = client
	if m.userClients[client.UserID] == nil {
		m.userClients[client.UserID] = make(map[uuid.UUID]bool)
	}
	m.userClients[client.UserID][client.ID] = true

	log.Printf("WebSocket: клиент %s пользователя %s подключен", client.ID, client.UserID)
}

// unregister удаляет соединение клиента
func (m *Manager) unregister(client *Client) {
	m.clientsMutex.Lock()
	defer m.clientsMutex.Unlock()

	if _, ok := m.clients[client.ID]; !ok {
		return
	}
	delete(m.clients, client.ID)
	if ids := m.userClients[client.UserID]; ids != nil {
		delete(ids, client.ID)
		if len(ids) == 0 {
			delete(m.userClients, client.UserID)
		}
	}
	close(client.send)

	log.Printf("WebSocket: клиент %s пользователя %s отключен", client.ID, client.UserID)
}

// NotifyUsers отправляет событие всем соединениям перечисленных пользователей.
// Доставка негарантированная: переполненные соединения пропускаются
func (m *Manager) NotifyUsers(event Event, userIDs ...string) {
	event.Timestamp = time.Now()
	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("WebSocket: ошибка сериализации события: %v", err)
		return
	}

	m.clientsMutex.RLock()
	defer m.clientsMutex.RUnlock()

	for _, userID := range userIDs {
		for clientID := range m.userClients[userID] {
			client := m.clients[clientID]
			if client == nil {
				continue
			}
			select {
			case client.send <- data:
			default:
				log.Printf("WebSocket: буфер клиента %s переполнен, событие пропущено", clientID)
			}
		}
	}
}

// NotifyRoomEvent отправляет событие чата обоим участникам
func (m *Manager) NotifyRoomEvent(eventType EventType, roomID uuid.UUID, payload any, userIDs ...string) {
	raw, err := json.Marshal(payload)
	if err != nil {
		log.Printf("WebSocket: ошибка сериализации события: %v", err)
		return
	}
	m.NotifyUsers(Event{Type: eventType, RoomID: roomID.String(), Payload: raw}, userIDs...)
}
