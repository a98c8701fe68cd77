package chat

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/antonvlasov/badgeswap-api/internal/config"
	"github.com/antonvlasov/badgeswap-api/internal/models"
	"github.com/antonvlasov/badgeswap-api/internal/repository/memory"
	"github.com/antonvlasov/badgeswap-api/internal/websocket"
)

func newChatFixture(t *testing.T) (*fiber.App, *memory.Store, *models.ChatRoom, uuid.UUID) {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()

	user1, user2 := uuid.New(), uuid.New()
	post1 := &models.Post{ID: uuid.New(), OwnerID: user1, GiveDescription: "значок Мику", WantDescription: "значок Рин", Status: models.PostStatusTrading}
	post2 := &models.Post{ID: uuid.New(), OwnerID: user2, GiveDescription: "значок Рин", WantDescription: "значок Мику", Status: models.PostStatusTrading}
	for _, post := range []*models.Post{post1, post2} {
		if err := store.Posts().Create(ctx, post); err != nil {
			t.Fatalf("создание объявления: %v", err)
		}
	}

	room := &models.ChatRoom{
		ID:      uuid.New(),
		Post1ID: post1.ID,
		Post2ID: post2.ID,
		User1ID: user1,
		User2ID: user2,
		Status:  models.ChatRoomStatusActive,
	}
	if err := store.ChatRooms().Create(ctx, room); err != nil {
		t.Fatalf("создание чата: %v", err)
	}

	cfg := &config.Config{JWTSecret: "test-secret"}
	svc := NewChatService(cfg, store, nil, websocket.NewManager())

	app := fiber.New()
	app.Post("/api/chats/:id/messages", svc.SendMessage, func(c fiber.Ctx) error {
		c.Locals("userID", user1.String())
		return c.Next()
	})
	return app, store, room, user1
}

func TestSendMessageAcceptsMessageField(t *testing.T) {
	app, store, room, sender := newChatFixture(t)

	tests := []struct {
		name string
		body string
		want string
	}{
		{"поле message", `{"message": "Привет!"}`, "Привет!"},
		{"прежнее поле text", `{"text": "Встретимся у входа"}`, "Встретимся у входа"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/chats/"+room.ID.String()+"/messages", bytes.NewReader([]byte(tt.body)))
			req.Header.Set("Content-Type", "application/json")

			resp, err := app.Test(req)
			if err != nil {
				t.Fatalf("выполнение запроса: %v", err)
			}
			if resp.StatusCode != fiber.StatusCreated {
				t.Fatalf("статус %d, ожидали %d", resp.StatusCode, fiber.StatusCreated)
			}

			messages, err := store.ChatRooms().ListMessages(context.Background(), room.ID)
			if err != nil {
				t.Fatalf("чтение сообщений: %v", err)
			}
			last := messages[len(messages)-1]
			if last.Text != tt.want {
				t.Errorf("текст сообщения %q, ожидали %q", last.Text, tt.want)
			}
			if last.SenderID != sender {
				t.Errorf("отправитель %s, ожидали %s", last.SenderID, sender)
			}
		})
	}
}

func TestSendMessageRejectsEmptyBody(t *testing.T) {
	app, _, room, _ := newChatFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/api/chats/"+room.ID.String()+"/messages", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("выполнение запроса: %v", err)
	}
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("статус %d, ожидали %d", resp.StatusCode, fiber.StatusBadRequest)
	}
}
