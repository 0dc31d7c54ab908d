package handlers

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/scrutor/internal/interfaces"
	"github.com/ternarybob/scrutor/internal/models"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

// WSMessage is the envelope for every websocket frame
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// WebSocketHandler streams job progress to subscribed clients. Each
// connection is scoped to a single job; the pipeline pushes snapshots through
// Publish after every store update.
type WebSocketHandler struct {
	logger      arbor.ILogger
	store       interfaces.JobStore
	clients     map[*websocket.Conn]string
	clientMutex map[*websocket.Conn]*sync.Mutex
	mu          sync.RWMutex
}

func NewWebSocketHandler(store interfaces.JobStore, logger arbor.ILogger) *WebSocketHandler {
	return &WebSocketHandler{
		logger:      logger,
		store:       store,
		clients:     make(map[*websocket.Conn]string),
		clientMutex: make(map[*websocket.Conn]*sync.Mutex),
	}
}

// HandleWebSocket handles GET /api/ws/{job_id}
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	jobID := PathParam(r, "/api/ws/")
	if jobID == "" {
		http.Error(w, "Job ID is required", http.StatusBadRequest)
		return
	}

	job := h.store.Get(jobID)
	if job == nil {
		http.Error(w, "Job not found", http.StatusNotFound)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to upgrade WebSocket connection")
		return
	}

	h.mu.Lock()
	h.clients[conn] = jobID
	h.clientMutex[conn] = &sync.Mutex{}
	clientCount := len(h.clients)
	h.mu.Unlock()

	h.logger.Debug().Str("job_id", jobID).Msgf("WebSocket client connected (total: %d)", clientCount)

	// Send the current snapshot so clients never miss early stages
	h.sendSnapshot(conn, job)

	// A terminal job produces no further updates
	if job.Status.IsTerminal() {
		h.closeClient(conn)
		return
	}

	defer h.closeClient(conn)

	// Read messages from client (keep connection alive)
	for {
		_, _, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Warn().Err(err).Msg("WebSocket error")
			}
			break
		}
	}
}

// Publish broadcasts a job snapshot to that job's subscribers. Wired as the
// pipeline's notify callback.
func (h *WebSocketHandler) Publish(job *models.AnalysisJob) {
	if job == nil {
		return
	}

	data, err := json.Marshal(WSMessage{
		Type:    "job_update",
		Payload: statusResponse(job, true),
	})
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to marshal job update message")
		return
	}

	h.mu.RLock()
	conns := make([]*websocket.Conn, 0)
	mutexes := make([]*sync.Mutex, 0)
	for conn, subscribed := range h.clients {
		if subscribed == job.ID {
			conns = append(conns, conn)
			mutexes = append(mutexes, h.clientMutex[conn])
		}
	}
	h.mu.RUnlock()

	for i, conn := range conns {
		mutex := mutexes[i]
		mutex.Lock()
		err := conn.WriteMessage(websocket.TextMessage, data)
		mutex.Unlock()

		if err != nil {
			h.logger.Warn().Err(err).Str("job_id", job.ID).Msg("Failed to send job update to client")
			h.closeClient(conn)
			continue
		}
		if job.Status.IsTerminal() {
			h.closeClient(conn)
		}
	}
}

func (h *WebSocketHandler) sendSnapshot(conn *websocket.Conn, job *models.AnalysisJob) {
	data, err := json.Marshal(WSMessage{
		Type:    "job_update",
		Payload: statusResponse(job, true),
	})
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to marshal job snapshot")
		return
	}

	h.mu.RLock()
	mutex := h.clientMutex[conn]
	h.mu.RUnlock()
	if mutex == nil {
		return
	}

	mutex.Lock()
	defer mutex.Unlock()
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		h.logger.Warn().Err(err).Msg("Failed to send initial job snapshot")
	}
}

func (h *WebSocketHandler) closeClient(conn *websocket.Conn) {
	h.mu.Lock()
	_, tracked := h.clients[conn]
	delete(h.clients, conn)
	delete(h.clientMutex, conn)
	remaining := len(h.clients)
	h.mu.Unlock()

	conn.Close()
	if tracked {
		h.logger.Debug().Msgf("WebSocket client disconnected (remaining: %d)", remaining)
	}
}
