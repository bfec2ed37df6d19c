package review

import (
	"context"
	"sort"
	"sync"

	"github.com/xelth-com/shopvidgo/internal/models"
)

// MemoryStore is an in-process Store used by tests and local tooling
type MemoryStore struct {
	mu      sync.RWMutex
	records []models.CandidateStatus
	nextID  uint64
}

// NewMemoryStore creates an empty in-memory status log
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Append(_ context.Context, records []models.CandidateStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range records {
		s.nextID++
		records[i].ID = s.nextID
	}
	s.records = append(s.records, records...)
	return nil
}

func (s *MemoryStore) Latest(_ context.Context, key Key) (*models.CandidateStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *models.CandidateStatus
	for i := range s.records {
		if KeyOf(s.records[i]) != key {
			continue
		}
		if latest == nil || newer(s.records[i], *latest) {
			rec := s.records[i]
			latest = &rec
		}
	}
	return latest, nil
}

func (s *MemoryStore) LatestForVideo(ctx context.Context, videoUUID string) ([]models.CandidateStatus, error) {
	history, err := s.History(ctx, videoUUID)
	if err != nil {
		return nil, err
	}
	return Latest(history), nil
}

func (s *MemoryStore) LatestWithStatus(_ context.Context, status models.Status) ([]models.CandidateStatus, error) {
	s.mu.RLock()
	all := append([]models.CandidateStatus(nil), s.records...)
	s.mu.RUnlock()

	var out []models.CandidateStatus
	for _, rec := range Latest(all) {
		if rec.Status == status {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (s *MemoryStore) History(_ context.Context, videoUUID string) ([]models.CandidateStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.CandidateStatus
	for _, rec := range s.records {
		if rec.VideoAnalysisUUID == videoUUID {
			out = append(out, rec)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return newer(out[j], out[i]) })
	return out, nil
}
