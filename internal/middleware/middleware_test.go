package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/xelth-com/shopvidgo/internal/models"
	"github.com/xelth-com/shopvidgo/internal/utils"
)

const secret = "test-secret"

func whoami(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte(ActingUser(r)))
}

func TestAuth(t *testing.T) {
	token, _, err := utils.GenerateToken(&models.UserAuth{ID: "1", Email: "reviewer@example.com"}, secret)
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}
	h := Auth(secret)(http.HandlerFunc(whoami))

	tests := []struct {
		name   string
		header string
		query  string
		want   int
	}{
		{"bearer", "Bearer " + token, "", http.StatusOK},
		{"query token", "", "?access_token=" + token, http.StatusOK},
		{"missing", "", "", http.StatusUnauthorized},
		{"bad scheme", "Basic " + token, "", http.StatusUnauthorized},
		{"bad token", "Bearer nope", "", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/x"+tt.query, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Fatalf("Expected %d, got %d", tt.want, rec.Code)
			}
			if tt.want == http.StatusOK && rec.Body.String() != "reviewer@example.com" {
				t.Errorf("Expected acting user in context, got %q", rec.Body.String())
			}
		})
	}
}

func TestAuth_WrongSecret(t *testing.T) {
	token, _, _ := utils.GenerateToken(&models.UserAuth{Email: "reviewer@example.com"}, "other")

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	Auth(secret)(http.HandlerFunc(whoami)).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401, got %d", rec.Code)
	}
}

func TestActingUser_Anonymous(t *testing.T) {
	if got := ActingUser(httptest.NewRequest(http.MethodGet, "/", nil)); got != "" {
		t.Errorf("Expected no acting user, got %q", got)
	}
}

func TestCORS(t *testing.T) {
	h := CORS([]string{"https://review.example.com/"})(http.HandlerFunc(whoami))

	req := httptest.NewRequest(http.MethodOptions, "/candidates/update", nil)
	req.Header.Set("Origin", "https://review.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Authorization, Content-Type")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("Expected preflight 204, got %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "https://review.example.com" {
		t.Errorf("Expected origin to be echoed, got %q", rec.Header().Get("Access-Control-Allow-Origin"))
	}
	if rec.Header().Get("Access-Control-Allow-Headers") == "" {
		t.Error("Expected requested headers to be allowed")
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Error("Expected unknown origin to get no CORS headers")
	}
}

func TestCORS_PreflightRejectsUnknownMethod(t *testing.T) {
	h := CORS([]string{"*"})(http.HandlerFunc(whoami))

	req := httptest.NewRequest(http.MethodOptions, "/candidates/update", nil)
	req.Header.Set("Origin", "https://review.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodDelete)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405 for a DELETE preflight, got %d", rec.Code)
	}
}

func TestCORS_NoOriginsConfigured(t *testing.T) {
	h := CORS(nil)(http.HandlerFunc(whoami))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://review.example.com")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Error("Expected no CORS headers without configured origins")
	}
}

func TestCORS_PlainOptionsReachesHandler(t *testing.T) {
	var reached bool
	h := CORS([]string{"*"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
		w.WriteHeader(http.StatusMethodNotAllowed)
	}))

	req := httptest.NewRequest(http.MethodOptions, "/candidates/update", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if !reached || rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected OPTIONS without Origin to reach the handler, got %d", rec.Code)
	}
}
