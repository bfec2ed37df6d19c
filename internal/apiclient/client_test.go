package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/xelth-com/shopvidgo/internal/models"
	"github.com/xelth-com/shopvidgo/internal/selection"
	"github.com/xelth-com/shopvidgo/internal/submission"
)

var (
	_ selection.StatusWriter  = (*Client)(nil)
	_ submission.Sink         = (*Client)(nil)
	_ submission.StatusSource = (*Client)(nil)
)

type fakeAPI struct {
	updates []models.CandidateUpdate
	auth    []string
}

func (f *fakeAPI) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		if body["password"] != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":"Invalid credentials"}`))
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"access_token": "tok-1"})
	})
	mux.HandleFunc("/candidates/update", func(w http.ResponseWriter, r *http.Request) {
		f.auth = append(f.auth, r.Header.Get("Authorization"))
		if err := json.NewDecoder(r.Body).Decode(&f.updates); err != nil {
			t.Errorf("bad update body: %v", err)
		}
		w.Write([]byte(`[]`))
	})
	mux.HandleFunc("/videos/analysis/video-1/ad-group-insertions", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]models.AdGroupInsertionStatus{{RequestUUID: "r1", VideoAnalysisUUID: "video-1", Status: "SUCCESS"}})
	})
	return mux
}

func newTestClient(t *testing.T) (*Client, *fakeAPI) {
	f := &fakeAPI{}
	srv := httptest.NewServer(f.handler(t))
	t.Cleanup(srv.Close)
	return New(srv.URL+"/", srv.Client()), f
}

func TestLoginAndAuthenticatedCall(t *testing.T) {
	c, f := newTestClient(t)
	ctx := context.Background()

	if err := c.Login(ctx, "reviewer@example.com", "secret"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	err := c.UpdateCandidates(ctx, []models.CandidateUpdate{{
		VideoAnalysisUUID: "video-1", IdentifiedProductUUID: "p", CandidateOfferID: "A",
		CandidateStatus: models.StatusBody{Status: models.StatusApproved},
	}})
	if err != nil {
		t.Fatalf("UpdateCandidates failed: %v", err)
	}
	if len(f.updates) != 1 || f.updates[0].CandidateOfferID != "A" {
		t.Errorf("Unexpected updates %+v", f.updates)
	}
	if f.auth[0] != "Bearer tok-1" {
		t.Errorf("Expected bearer token, got %q", f.auth[0])
	}
}

func TestLogin_APIError(t *testing.T) {
	c, _ := newTestClient(t)

	err := c.Login(context.Background(), "reviewer@example.com", "wrong")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Expected APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusUnauthorized || apiErr.Message != "Invalid credentials" {
		t.Errorf("Unexpected error %+v", apiErr)
	}
}

func TestInsertionStatusesForVideo(t *testing.T) {
	c, _ := newTestClient(t)

	statuses, err := c.InsertionStatusesForVideo(context.Background(), "video-1")
	if err != nil {
		t.Fatalf("InsertionStatusesForVideo failed: %v", err)
	}
	if len(statuses) != 1 || statuses[0].Status != "SUCCESS" {
		t.Errorf("Unexpected statuses %+v", statuses)
	}

	if _, err := c.InsertionStatusesForVideo(context.Background(), "missing"); err == nil {
		t.Error("Expected 404 to surface as an error")
	}
}
