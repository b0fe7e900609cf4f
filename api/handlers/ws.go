package handlers

import (
	"net/http"

	"blog/api/middleware"
	"blog/logger"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// WSFeed - WebSocket с событиями о новых постах авторов, на которых подписан пользователь
func (h *Handler) WSFeed(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil {
		middleware.AbortAuthRequired(c)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.L.Warn("WebSocket upgrade error", zap.Error(err))
		return
	}
	defer conn.Close()

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"event":"connected","message":"WebSocket connected"}`)); err != nil {
		return
	}
	h.WS.Add(user.ID, conn)
	defer h.WS.Remove(user.ID, conn)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			logger.L.Debug("WebSocket closed", zap.Int64("user_id", user.ID), zap.Error(err))
			break
		}
	}
}
