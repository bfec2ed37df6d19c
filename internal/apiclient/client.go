// Package apiclient talks to the review API on behalf of the reviewer CLI.
// It is the remote StatusWriter, Sink and StatusSource of the selection and
// submission services.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/xelth-com/shopvidgo/internal/ads"
	"github.com/xelth-com/shopvidgo/internal/analysis"
	"github.com/xelth-com/shopvidgo/internal/models"
)

// APIError is a non 2xx answer from the API
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

// Client is an authenticated review API client
type Client struct {
	baseURL string
	http    *http.Client

	mu    sync.RWMutex
	token string
}

// NewHTTPClient creates the HTTP client used against the API
func NewHTTPClient() *http.Client {
	dialer := &net.Dialer{
		Timeout:   5 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	return &http.Client{
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			DialContext:     dialer.DialContext,
			MaxIdleConns:    10,
			IdleConnTimeout: 90 * time.Second,
		},
	}
}

// New creates a client for the API at baseURL. httpClient may be nil.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = NewHTTPClient()
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

// SetToken uses an existing access token
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.mu.RLock()
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	c.mu.RUnlock()

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		var e struct {
			Error string `json:"error"`
		}
		msg := strings.TrimSpace(string(raw))
		if json.Unmarshal(raw, &e) == nil && e.Error != "" {
			msg = e.Error
		}
		return &APIError{StatusCode: resp.StatusCode, Message: msg}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}

// Login exchanges reviewer credentials for an access token and keeps it for
// subsequent calls
func (c *Client) Login(ctx context.Context, email, password string) error {
	var resp struct {
		AccessToken string `json:"access_token"`
	}
	if err := c.do(ctx, http.MethodPost, "/auth/login", map[string]string{"email": email, "password": password}, &resp); err != nil {
		return err
	}
	c.SetToken(resp.AccessToken)
	return nil
}

// GetVideoAnalysis loads a video with its aggregated candidates
func (c *Client) GetVideoAnalysis(ctx context.Context, videoUUID string) (*analysis.VideoAnalysis, error) {
	var out analysis.VideoAnalysis
	if err := c.do(ctx, http.MethodGet, "/videos/analysis/"+url.PathEscape(videoUUID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Summaries loads a page of per video review counts
func (c *Client) Summaries(ctx context.Context, limit, offset int) (*models.Page[analysis.Summary], error) {
	var out models.Page[analysis.Summary]
	path := fmt.Sprintf("/videos/analysis/summary?limit=%d&offset=%d", limit, offset)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AdGroupsForVideo lists the ad groups serving an analyzed video
func (c *Client) AdGroupsForVideo(ctx context.Context, videoUUID string) ([]ads.AdGroup, error) {
	var out []ads.AdGroup
	if err := c.do(ctx, http.MethodGet, "/videos/analysis/"+url.PathEscape(videoUUID)+"/ad-groups", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateCandidates writes a batch of status changes
func (c *Client) UpdateCandidates(ctx context.Context, updates []models.CandidateUpdate) error {
	return c.do(ctx, http.MethodPost, "/candidates/update", updates, nil)
}

// Submit queues submissions for insertion
func (c *Client) Submit(ctx context.Context, submissions []models.SubmissionMetadata) error {
	return c.do(ctx, http.MethodPost, "/candidates/submission-requests", submissions, nil)
}

// InsertionStatusesForVideo polls the insertion outcomes of a video
func (c *Client) InsertionStatusesForVideo(ctx context.Context, videoUUID string) ([]models.AdGroupInsertionStatus, error) {
	var out []models.AdGroupInsertionStatus
	if err := c.do(ctx, http.MethodGet, "/videos/analysis/"+url.PathEscape(videoUUID)+"/ad-group-insertions", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}
