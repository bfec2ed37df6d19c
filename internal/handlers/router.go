// Package handlers exposes the review workflow over HTTP. All bodies are
// snake_case JSON.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/xelth-com/shopvidgo/internal/ads"
	"github.com/xelth-com/shopvidgo/internal/analysis"
	"github.com/xelth-com/shopvidgo/internal/buildinfo"
	"github.com/xelth-com/shopvidgo/internal/middleware"
	"github.com/xelth-com/shopvidgo/internal/models"
	"github.com/xelth-com/shopvidgo/internal/review"
	"github.com/xelth-com/shopvidgo/internal/submission"
	"github.com/xelth-com/shopvidgo/internal/websocket"
)

const (
	defaultPageSize = 20
	maxPageSize     = 200
)

// UserStore looks up reviewer accounts for login
type UserStore interface {
	UserByEmail(ctx context.Context, email string) (*models.UserAuth, error)
	TouchLogin(ctx context.Context, user *models.UserAuth) error
}

// Services are the collaborators behind the HTTP API
type Services struct {
	Analysis *analysis.Service
	Reviews  *review.Service
	Queue    *submission.Queue
	Ads      ads.ProviderInterface
	Hub      *websocket.Hub
	Users    UserStore

	JWTSecret          string
	CORSAllowedOrigins []string
	FrontendDir        string
}

// Router wraps the mux router and the review services
type Router struct {
	*mux.Router
	svc Services
}

// NewRouter creates a new HTTP router with all routes
func NewRouter(svc Services) *Router {
	r := &Router{
		Router: mux.NewRouter(),
		svc:    svc,
	}

	// Health check endpoint
	r.HandleFunc("/health", r.healthCheck).Methods("GET")

	// Auth routes
	r.HandleFunc("/auth/login", r.login).Methods("POST")

	// Everything below requires a reviewer token
	api := r.NewRoute().Subrouter()
	api.Use(middleware.Auth(svc.JWTSecret))

	videos := api.PathPrefix("/videos/analysis").Subrouter()
	videos.HandleFunc("", r.ingestAnalysis).Methods("POST")
	videos.HandleFunc("/summary", r.listSummaries).Methods("GET")
	videos.HandleFunc("/{uuid}", r.getVideoAnalysis).Methods("GET")
	videos.HandleFunc("/{uuid}/ad-groups", r.listAdGroups).Methods("GET")
	videos.HandleFunc("/{uuid}/ad-group-insertions", r.videoInsertions).Methods("GET")

	api.HandleFunc("/catalog/offers", r.upsertOffers).Methods("PUT")

	candidates := api.PathPrefix("/candidates").Subrouter()
	candidates.HandleFunc("/update", r.updateCandidates).Methods("POST")
	candidates.HandleFunc("/submission-requests", r.submitCandidates).Methods("POST")
	candidates.HandleFunc("/analysis/{uuid}", r.candidatesForVideo).Methods("GET")
	candidates.HandleFunc("/status/{status}", r.candidatesWithStatus).Methods("GET")
	candidates.HandleFunc("/{uuid}/{offer_id}", r.getCandidate).Methods("GET")

	insertions := api.PathPrefix("/ad-group-insertions").Subrouter()
	insertions.HandleFunc("/status", r.listInsertions).Methods("GET")
	insertions.HandleFunc("/status/{request_uuid}", r.requestInsertions).Methods("GET")

	if svc.Hub != nil {
		api.HandleFunc("/ws", func(w http.ResponseWriter, req *http.Request) {
			websocket.ServeWs(svc.Hub, w, req)
		}).Methods("GET")
	}

	// Static review frontend
	if svc.FrontendDir != "" {
		r.PathPrefix("/").Handler(http.FileServer(http.Dir(svc.FrontendDir)))
	}

	return r
}

// Handler returns the router behind the CORS middleware. Preflight requests
// never match a route, so CORS has to sit in front of mux.
func (r *Router) Handler() http.Handler {
	return middleware.CORS(r.svc.CORSAllowedOrigins)(r)
}

// healthCheck returns the health status of the API
func (r *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":      "ok",
		"build_time":  buildinfo.BuildTime,
		"commit_hash": buildinfo.CommitHash,
		"commit_time": buildinfo.CommitTime,
		"start_time":  buildinfo.StartTime,
	})
}

// pagination reads ?limit&offset with defaults
func pagination(req *http.Request) (limit, offset int, err error) {
	limit, offset = defaultPageSize, 0
	q := req.URL.Query()
	if raw := q.Get("limit"); raw != "" {
		if limit, err = strconv.Atoi(raw); err != nil || limit <= 0 {
			return 0, 0, errors.New("limit must be a positive integer")
		}
		if limit > maxPageSize {
			limit = maxPageSize
		}
	}
	if raw := q.Get("offset"); raw != "" {
		if offset, err = strconv.Atoi(raw); err != nil || offset < 0 {
			return 0, 0, errors.New("offset must be a non-negative integer")
		}
	}
	return limit, offset, nil
}

// decodeJSON decodes a request body, rejecting unknown fields
func decodeJSON(req *http.Request, v interface{}) error {
	dec := json.NewDecoder(req.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// statusFor maps service errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, analysis.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, review.ErrInvalidStatus),
		errors.Is(err, review.ErrInvalidTransition),
		errors.Is(err, review.ErrIncompleteKey),
		errors.Is(err, analysis.ErrInvalidAnalysis),
		errors.Is(err, submission.ErrNoOffers),
		errors.Is(err, submission.ErrNoDestinations),
		errors.Is(err, submission.ErrNoVideo),
		errors.Is(err, submission.ErrInvalidSubmission):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// respondServiceError logs unexpected failures and hides their details
func respondServiceError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Printf("❌ Request failed: %v", err)
		respondError(w, status, "Internal server error")
		return
	}
	respondError(w, status, err.Error())
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError sends an error response
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}
