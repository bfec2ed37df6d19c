package websocket

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/xelth-com/shopvidgo/internal/utils"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 64 * 1024
)

// Client is a middleman between the websocket connection and the hub.
type Client struct {
	hub *Hub

	// The websocket connection.
	conn *websocket.Conn

	// Buffered channel of outbound messages.
	send chan []byte

	ClientID string

	mu     sync.RWMutex
	videos map[string]bool
}

// ControlMessage is sent by reviewers to choose which videos they watch.
// An empty subscription set receives every video. Keys travel camelCased.
type ControlMessage struct {
	Type              string `json:"type"`
	VideoAnalysisUUID string `json:"video_analysis_uuid,omitempty"`
	MsgID             string `json:"msg_id,omitempty"`
}

func (c *Client) watches(videoUUID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.videos) == 0 || c.videos[videoUUID]
}

func (c *Client) subscribe(videoUUID string, on bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if on {
		c.videos[videoUUID] = true
	} else {
		delete(c.videos, videoUUID)
	}
}

// leave unregisters the client, or gives up once the hub has stopped
func (c *Client) leave() {
	select {
	case c.hub.unregister <- c:
	case <-c.hub.done:
	}
}

// readPump pumps control messages from the websocket connection.
func (c *Client) readPump() {
	defer func() {
		c.leave()
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error { c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WS error: %v", err)
			}
			break
		}

		var msg ControlMessage
		if err := utils.UnmarshalCamel(message, &msg); err != nil {
			continue
		}

		switch msg.Type {
		case "SUBSCRIBE", "UNSUBSCRIBE":
			if msg.VideoAnalysisUUID == "" {
				continue
			}
			c.subscribe(msg.VideoAnalysisUUID, msg.Type == "SUBSCRIBE")
			ack, err := utils.MarshalCamel(ControlMessage{Type: "ACK", VideoAnalysisUUID: msg.VideoAnalysisUUID, MsgID: msg.MsgID})
			if err != nil {
				continue
			}
			c.queue(ack)
		}
	}
}

// writePump pumps messages from the hub to the websocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			if err := w.Close(); err != nil {
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

// queue hands msg to the write pump, dropping it when the buffer is full
func (c *Client) queue(msg []byte) {
	select {
	case c.send <- msg:
	default:
	}
}

// ServeWs handles websocket requests from the peer.
func ServeWs(hub *Hub, w http.ResponseWriter, r *http.Request) {
	conn, err := hub.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println(err)
		return
	}
	client := &Client{
		hub:      hub,
		conn:     conn,
		send:     make(chan []byte, 256),
		ClientID: "web_" + uuid.New().String(),
		videos:   make(map[string]bool),
	}
	select {
	case hub.register <- client:
	case <-hub.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}
