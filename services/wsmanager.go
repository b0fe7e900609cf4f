package services

import (
	"context"
	"sync"
	"time"

	"blog/logger"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const wsWriteTimeout = 5 * time.Second

// wsConn - соединение со своим мьютексом записи: gorilla не допускает
// параллельных писателей на одно соединение
type wsConn struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (c *wsConn) write(message []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return c.conn.WriteMessage(websocket.TextMessage, message)
}

// WSConnManager держит открытые WebSocket-соединения по пользователям.
// Реализует Publisher: событие уходит во все соединения получателя.
type WSConnManager struct {
	mu    sync.Mutex
	users map[int64][]*wsConn
}

func NewWSConnManager() *WSConnManager {
	return &WSConnManager{
		users: make(map[int64][]*wsConn),
	}
}

func (m *WSConnManager) Add(userID int64, conn *websocket.Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[userID] = append(m.users[userID], &wsConn{conn: conn})
}

func (m *WSConnManager) Remove(userID int64, conn *websocket.Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()
	conns := m.users[userID]
	for i, c := range conns {
		if c.conn == conn {
			m.users[userID] = append(conns[:i:i], conns[i+1:]...)
			break
		}
	}
	if len(m.users[userID]) == 0 {
		delete(m.users, userID)
	}
}

// Connections - число открытых соединений пользователя
func (m *WSConnManager) Connections(userID int64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.users[userID])
}

// Send пишет сообщение во все соединения пользователя. Запись идет вне общего
// мьютекса; соединение, в которое не удалось записать, закрывается и забывается.
func (m *WSConnManager) Send(userID int64, message []byte) {
	m.mu.Lock()
	conns := append([]*wsConn(nil), m.users[userID]...)
	m.mu.Unlock()

	for _, c := range conns {
		if err := c.write(message); err != nil {
			logger.L.Debug("WebSocket write failed, dropping connection", zap.Int64("user_id", userID), zap.Error(err))
			m.Remove(userID, c.conn)
			_ = c.conn.Close()
		}
	}
}

func (m *WSConnManager) Publish(_ context.Context, event FeedEvent) error {
	data, err := event.PushMessage()
	if err != nil {
		return err
	}
	m.Send(event.UserID, data)
	return nil
}
