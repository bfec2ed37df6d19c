package submission

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/xelth-com/shopvidgo/internal/models"
)

// MemoryStore is an in-process Store used by tests and local tooling
type MemoryStore struct {
	mu       sync.RWMutex
	requests map[string]*models.InsertionRequest
	order    []string
	statuses []models.AdGroupInsertionStatus
	nextID   uint64
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{requests: make(map[string]*models.InsertionRequest)}
}

func (s *MemoryStore) SaveRequests(_ context.Context, requests []models.InsertionRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range requests {
		if _, exists := s.requests[r.RequestUUID]; exists {
			return fmt.Errorf("insertion request %s already exists", r.RequestUUID)
		}
	}
	for i := range requests {
		r := requests[i]
		s.requests[r.RequestUUID] = &r
		s.order = append(s.order, r.RequestUUID)
	}
	return nil
}

func (s *MemoryStore) PendingRequests(_ context.Context, limit int) ([]models.InsertionRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.InsertionRequest
	for _, id := range s.order {
		r := s.requests[id]
		if r.ProcessedAt != nil {
			continue
		}
		out = append(out, *r)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *MemoryStore) MarkProcessed(_ context.Context, requestUUID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.requests[requestUUID]
	if !ok {
		return fmt.Errorf("insertion request %s not found", requestUUID)
	}
	r.ProcessedAt = &at
	return nil
}

// Request returns a stored request, for inspection in tests
func (s *MemoryStore) Request(requestUUID string) (models.InsertionRequest, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.requests[requestUUID]
	if !ok {
		return models.InsertionRequest{}, false
	}
	return *r, true
}

func (s *MemoryStore) RecordStatus(_ context.Context, status *models.AdGroupInsertionStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	status.ID = s.nextID
	s.statuses = append(s.statuses, *status)
	return nil
}

// newestFirst orders statuses by timestamp, then insertion order, descending
func newestFirst(statuses []models.AdGroupInsertionStatus) {
	sort.SliceStable(statuses, func(i, j int) bool {
		if !statuses[i].Timestamp.Equal(statuses[j].Timestamp) {
			return statuses[i].Timestamp.After(statuses[j].Timestamp)
		}
		return statuses[i].ID > statuses[j].ID
	})
}

func (s *MemoryStore) filter(keep func(models.AdGroupInsertionStatus) bool) []models.AdGroupInsertionStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.AdGroupInsertionStatus
	for _, st := range s.statuses {
		if keep(st) {
			out = append(out, st)
		}
	}
	newestFirst(out)
	return out
}

func (s *MemoryStore) StatusesForVideo(_ context.Context, videoUUID string) ([]models.AdGroupInsertionStatus, error) {
	return s.filter(func(st models.AdGroupInsertionStatus) bool { return st.VideoAnalysisUUID == videoUUID }), nil
}

func (s *MemoryStore) StatusesForRequest(_ context.Context, requestUUID string) ([]models.AdGroupInsertionStatus, error) {
	return s.filter(func(st models.AdGroupInsertionStatus) bool { return st.RequestUUID == requestUUID }), nil
}

func (s *MemoryStore) ListStatuses(_ context.Context, limit, offset int) (*models.Page[models.AdGroupInsertionStatus], error) {
	all := s.filter(func(models.AdGroupInsertionStatus) bool { return true })

	page := &models.Page[models.AdGroupInsertionStatus]{
		Items:      []models.AdGroupInsertionStatus{},
		TotalCount: int64(len(all)),
		Limit:      limit,
		Offset:     offset,
	}
	if offset >= len(all) {
		return page, nil
	}
	end := offset + limit
	if limit <= 0 || end > len(all) {
		end = len(all)
	}
	page.Items = all[offset:end]
	return page, nil
}
