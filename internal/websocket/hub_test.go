package websocket

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/xelth-com/shopvidgo/internal/models"
)

func serve(t *testing.T, hub *Hub) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ServeWs(hub, w, r)
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, hub *Hub) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(serve(t, hub), nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readJSON(t *testing.T, conn *websocket.Conn) map[string]interface{} {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage failed: %v", err)
	}
	var msg map[string]interface{}
	if err := json.Unmarshal(raw, &msg); err != nil {
		t.Fatalf("bad message %s: %v", raw, err)
	}
	return msg
}

func TestHub_PushesToSubscribedVideo(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	conn := dial(t, hub)
	if err := conn.WriteJSON(map[string]string{"type": "SUBSCRIBE", "videoAnalysisUuid": "video-1", "msgId": "m1"}); err != nil {
		t.Fatalf("WriteJSON failed: %v", err)
	}
	if ack := readJSON(t, conn); ack["type"] != "ACK" || ack["msgId"] != "m1" || ack["videoAnalysisUuid"] != "video-1" {
		t.Fatalf("Expected ACK, got %v", ack)
	}

	hub.CandidateStatusChanged([]models.CandidateStatus{
		{VideoAnalysisUUID: "video-2", IdentifiedProductUUID: "p", CandidateOfferID: "X", Status: models.StatusApproved},
		{VideoAnalysisUUID: "video-1", IdentifiedProductUUID: "p", CandidateOfferID: "A", Status: models.StatusApproved},
	})

	msg := readJSON(t, conn)
	if msg["type"] != CandidateStatusChanged || msg["videoAnalysisUuid"] != "video-1" {
		t.Fatalf("Expected push for video-1 only, got %v", msg)
	}
	candidates, ok := msg["candidates"].([]interface{})
	if !ok || len(candidates) != 1 {
		t.Fatalf("Expected one candidate, got %v", msg["candidates"])
	}
	first := candidates[0].(map[string]interface{})
	if first["candidateOfferId"] != "A" || first["status"] != "APPROVED" {
		t.Errorf("Expected camelCased record for A, got %v", first)
	}
}

func TestHub_UnsubscribedClientGetsEverything(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	conn := dial(t, hub)
	deadline := time.Now().Add(2 * time.Second)
	for hub.Len() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	hub.CandidateStatusChanged([]models.CandidateStatus{
		{VideoAnalysisUUID: "video-9", IdentifiedProductUUID: "p", CandidateOfferID: "Z", Status: models.StatusDisapproved},
	})

	if msg := readJSON(t, conn); msg["videoAnalysisUuid"] != "video-9" {
		t.Errorf("Expected push for video-9, got %v", msg)
	}
}

func TestHub_AcceptsSnakeCaseControl(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	conn := dial(t, hub)
	if err := conn.WriteJSON(map[string]string{"type": "SUBSCRIBE", "video_analysis_uuid": "video-3", "msg_id": "m7"}); err != nil {
		t.Fatalf("WriteJSON failed: %v", err)
	}
	if ack := readJSON(t, conn); ack["msgId"] != "m7" || ack["videoAnalysisUuid"] != "video-3" {
		t.Errorf("Expected ACK for video-3, got %v", ack)
	}
}

func TestHub_ChecksOrigin(t *testing.T) {
	hub := NewHub("https://review.example.com/")
	go hub.Run()
	defer hub.Stop()
	url := serve(t, hub)

	tests := []struct {
		origin string
		ok     bool
	}{
		{"https://review.example.com", true},
		{"https://evil.example.com", false},
		{"", true},
	}

	for _, tt := range tests {
		header := http.Header{}
		if tt.origin != "" {
			header.Set("Origin", tt.origin)
		}
		conn, resp, err := websocket.DefaultDialer.Dial(url, header)
		if tt.ok {
			if err != nil {
				t.Errorf("origin %q: expected upgrade, got %v", tt.origin, err)
				continue
			}
			conn.Close()
			continue
		}
		if err == nil {
			conn.Close()
			t.Errorf("origin %q: expected rejection", tt.origin)
			continue
		}
		if resp == nil || resp.StatusCode != http.StatusForbidden {
			t.Errorf("origin %q: expected 403, got %v", tt.origin, resp)
		}
	}
}

func TestClient_LeaveAfterStopDoesNotBlock(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	hub.Stop()
	hub.Stop()

	left := make(chan struct{})
	go func() {
		(&Client{hub: hub, ClientID: "web_1"}).leave()
		close(left)
	}()

	select {
	case <-left:
	case <-time.After(2 * time.Second):
		t.Fatal("Expected leave to return once the hub stopped")
	}
}
