package websocket

import (
	"log"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/antonvlasov/badgeswap-api/internal/utils"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Источник проверяет обратный прокси
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handler апгрейдит соединение. Токен передается параметром запроса:
// браузерный WebSocket не умеет выставлять заголовок Authorization
func Handler(manager *Manager, jwtService *utils.JWTService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := r.URL.Query().Get("token")
		if token == "" {
			http.Error(w, "Missing token", http.StatusUnauthorized)
			return
		}

		userID, err := jwtService.ExtractUserID(token)
		if err != nil {
			http.Error(w, "Invalid or expired token", http.StatusUnauthorized)
			return
		}
		if _, err := uuid.Parse(userID); err != nil {
			http.Error(w, "Invalid user ID", http.StatusUnauthorized)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("WebSocket: ошибка апгрейда: %v", err)
			return
		}
		newClient(conn, manager, userID)
	}
}
