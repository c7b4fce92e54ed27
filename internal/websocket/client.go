package websocket

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"screen-state-recognizer/internal/recognizer"
)

// Manager fans messages out to every connected browser.
type Manager struct {
	clients      map[*websocket.Conn]bool
	clientsMutex sync.Mutex
	upgrader     websocket.Upgrader
}

type LogMessage struct {
	Type      string `json:"type"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

type StatusUpdate struct {
	Type   string `json:"type"`
	Status string `json:"status"`
}

type ResultMessage struct {
	Type   string            `json:"type"`
	Report recognizer.Report `json:"report"`
}

// DataMessage carries any other payload (reload summaries, diagnostics).
type DataMessage struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

func NewManager() *Manager {
	return &Manager{
		clients: make(map[*websocket.Conn]bool),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

func (m *Manager) HandleConnection(w http.ResponseWriter, r *http.Request) (*websocket.Conn, error) {
	conn, err := m.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, err
	}

	m.clientsMutex.Lock()
	m.clients[conn] = true
	m.clientsMutex.Unlock()

	return conn, nil
}

func (m *Manager) RemoveConnection(conn *websocket.Conn) {
	m.clientsMutex.Lock()
	defer m.clientsMutex.Unlock()
	delete(m.clients, conn)
}

// ClientCount returns the number of connected clients.
func (m *Manager) ClientCount() int {
	m.clientsMutex.Lock()
	defer m.clientsMutex.Unlock()
	return len(m.clients)
}

// BroadcastMessage writes message as JSON to every client. Clients that fail
// a write are dropped. Writes happen under the lock because a gorilla
// connection supports one concurrent writer.
func (m *Manager) BroadcastMessage(message interface{}) {
	jsonData, err := json.Marshal(message)
	if err != nil {
		return
	}

	m.clientsMutex.Lock()
	defer m.clientsMutex.Unlock()
	for client := range m.clients {
		client.SetWriteDeadline(time.Now().Add(2 * time.Second))
		if err := client.WriteMessage(websocket.TextMessage, jsonData); err != nil {
			client.Close()
			delete(m.clients, client)
		}
	}
}

func (m *Manager) SendLog(message string) {
	logMsg := LogMessage{
		Type:      "log",
		Message:   message,
		Timestamp: time.Now().Format("15:04:05"),
	}
	m.BroadcastMessage(logMsg)
}

func (m *Manager) UpdateStatus(status string) {
	statusMsg := StatusUpdate{
		Type:   "status",
		Status: status,
	}
	m.BroadcastMessage(statusMsg)
}

func (m *Manager) SendResult(rep recognizer.Report) {
	m.BroadcastMessage(ResultMessage{Type: "result", Report: rep})
}

func (m *Manager) SendData(kind string, data any) {
	m.BroadcastMessage(DataMessage{Type: kind, Data: data})
}

// Write makes the manager a log sink: every formatted log line is sent to
// the clients as a log message. It never fails.
func (m *Manager) Write(p []byte) (int, error) {
	if m.ClientCount() == 0 {
		return len(p), nil
	}
	for _, line := range strings.Split(strings.TrimRight(string(p), "\n"), "\n") {
		if line != "" {
			m.SendLog(line)
		}
	}
	return len(p), nil
}
