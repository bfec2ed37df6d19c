package websocket

import (
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/xelth-com/shopvidgo/internal/models"
	"github.com/xelth-com/shopvidgo/internal/utils"
)

const CandidateStatusChanged = "CANDIDATE_STATUS_CHANGED"

// StatusMessage is pushed to reviewers whenever candidate statuses of a
// video change. Keys go out camelCased.
type StatusMessage struct {
	Type              string                   `json:"type"`
	VideoAnalysisUUID string                   `json:"video_analysis_uuid"`
	Candidates        []models.CandidateStatus `json:"candidates"`
}

type outbound struct {
	videoUUID string
	payload   []byte
}

// Hub maintains the set of active clients and fans status changes out to them
type Hub struct {
	// Registered clients map: ClientID -> Client
	clients map[string]*Client

	register   chan *Client
	unregister chan *Client
	broadcast  chan outbound
	done       chan struct{}
	stopOnce   sync.Once

	upgrader websocket.Upgrader

	// Mutex for thread-safe access to clients map
	mu sync.RWMutex
}

// NewHub creates a new Hub instance. Browser connections are accepted from
// allowedOrigins ("*" for any) or from the serving host itself.
func NewHub(allowedOrigins ...string) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan outbound, 64),
		done:       make(chan struct{}),
		clients:    make(map[string]*Client),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

func originChecker(allowedOrigins []string) func(r *http.Request) bool {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[strings.TrimRight(o, "/")] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || allowed["*"] || allowed[origin] {
			return true
		}
		u, err := url.Parse(origin)
		return err == nil && strings.EqualFold(u.Host, r.Host)
	}
}

// Run starts the hub's main loop and returns after Stop
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.ClientID] = client
			h.mu.Unlock()
			log.Printf("🔌 Reviewer connected: %s", client.ClientID)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.ClientID]; ok {
				delete(h.clients, client.ClientID)
				close(client.send)
				log.Printf("📴 Reviewer disconnected: %s", client.ClientID)
			}
			h.mu.Unlock()

		case msg := <-h.broadcast:
			h.mu.RLock()
			for _, client := range h.clients {
				if !client.watches(msg.videoUUID) {
					continue
				}
				select {
				case client.send <- msg.payload:
				default:
					// Buffer full or client dead
					log.Printf("⚠️  Dropping status push to slow client %s", client.ClientID)
				}
			}
			h.mu.RUnlock()

		case <-h.done:
			h.mu.Lock()
			for id, client := range h.clients {
				close(client.send)
				delete(h.clients, id)
			}
			h.mu.Unlock()
			return
		}
	}
}

// Stop ends Run and disconnects every client
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

// Len returns the number of connected clients
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// CandidateStatusChanged pushes freshly written status records, one message
// per video, to the clients watching that video
func (h *Hub) CandidateStatusChanged(records []models.CandidateStatus) {
	byVideo := make(map[string][]models.CandidateStatus)
	var order []string
	for _, rec := range records {
		if _, ok := byVideo[rec.VideoAnalysisUUID]; !ok {
			order = append(order, rec.VideoAnalysisUUID)
		}
		byVideo[rec.VideoAnalysisUUID] = append(byVideo[rec.VideoAnalysisUUID], rec)
	}

	for _, videoUUID := range order {
		payload, err := utils.MarshalCamel(StatusMessage{
			Type:              CandidateStatusChanged,
			VideoAnalysisUUID: videoUUID,
			Candidates:        byVideo[videoUUID],
		})
		if err != nil {
			log.Printf("Error marshaling status push: %v", err)
			continue
		}

		select {
		case h.broadcast <- outbound{videoUUID: videoUUID, payload: payload}:
		default:
			log.Printf("⚠️  Status push queue full, dropping update for video %s", videoUUID)
		}
	}
}
