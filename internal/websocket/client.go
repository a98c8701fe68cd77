package websocket

import (
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// Максимальное время ожидания для pong от клиента
	pongWait = 60 * time.Second

	// Отправлять ping-сообщения клиенту с этим интервалом
	pingPeriod = (pongWait * 9) / 10

	// Максимальное время на запись сообщения клиенту
	writeWait = 10 * time.Second

	// Максимальный размер сообщения от клиента
	maxMessageSize = 4 * 1024

	// Размер буфера для отправляемых сообщений
	sendBufferSize = 64
)

// Client представляет собой отдельное WebSocket соединение
type Client struct {
	ID      uuid.UUID
	UserID  string
	conn    *websocket.Conn
	manager *Manager
	send    chan []byte
}

// newClient создает клиента и запускает его насосы чтения и записи
func newClient(conn *websocket.Conn, manager *Manager, userID string) *Client {
	client := &Client{
		ID:      uuid.New(),
		UserID:  userID,
		conn:    conn,
		manager: manager,
		send:    make(chan []byte, sendBufferSize),
	}

	manager.register(client)
	go client.writePump()
	go client.readPump()
	return client
}

// readPump читает входящие кадры. Клиент ничего не шлет по делу —
// чтение нужно для обработки pong и закрытия соединения
func (c *Client) readPump() {
	defer func() {
		c.manager.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("WebSocket: ошибка чтения: %v", err)
			}
			return
		}
	}
}

// writePump пишет события из очереди и пингует клиента
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
