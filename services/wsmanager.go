package services

import (
	"sync"

	"github.com/gorilla/websocket"
)

// WSConnManager держит нотификационные сокеты пользователей и реестр
// активных окон диалогов, чтобы не пушить уведомления тому, кто и так
// смотрит на диалог
type WSConnManager struct {
	mu     sync.RWMutex
	users  map[int64][]*websocket.Conn
	active map[int64]map[int64]int // userID -> conversationID -> открытых окон
}

func NewWSConnManager() *WSConnManager {
	return &WSConnManager{
		users:  make(map[int64][]*websocket.Conn),
		active: make(map[int64]map[int64]int),
	}
}

func (m *WSConnManager) Add(userID int64, conn *websocket.Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[userID] = append(m.users[userID], conn)
}

func (m *WSConnManager) Remove(userID int64, conn *websocket.Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()
	conns := m.users[userID]
	for i, c := range conns {
		if c == conn {
			m.users[userID] = append(conns[:i], conns[i+1:]...)
			break
		}
	}
	if len(m.users[userID]) == 0 {
		delete(m.users, userID)
	}
}

func (m *WSConnManager) Send(userID int64, message []byte) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, conn := range m.users[userID] {
		_ = conn.WriteMessage(websocket.TextMessage, message)
	}
}

// MarkViewActive регистрирует открытое окно диалога
func (m *WSConnManager) MarkViewActive(userID, conversationID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active[userID] == nil {
		m.active[userID] = make(map[int64]int)
	}
	m.active[userID][conversationID]++
}

// MarkViewClosed снимает регистрацию окна
func (m *WSConnManager) MarkViewClosed(userID, conversationID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	views := m.active[userID]
	if views == nil {
		return
	}
	views[conversationID]--
	if views[conversationID] <= 0 {
		delete(views, conversationID)
	}
	if len(views) == 0 {
		delete(m.active, userID)
	}
}

// IsViewActive сообщает, открыт ли у пользователя данный диалог
func (m *WSConnManager) IsViewActive(userID, conversationID int64) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.active[userID][conversationID] > 0
}

var GlobalWSConnManager = NewWSConnManager()
