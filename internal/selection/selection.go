// Package selection tracks the candidates a reviewer has picked during one
// review session and commits status changes for them in a single batch.
package selection

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/xelth-com/shopvidgo/internal/matching"
	"github.com/xelth-com/shopvidgo/internal/models"
)

// StatusWriter persists a batch of candidate status updates. The batch
// either applies fully or returns an error.
type StatusWriter interface {
	UpdateCandidates(ctx context.Context, updates []models.CandidateUpdate) error
}

// Item is one selected candidate
type Item struct {
	VideoID             string
	IdentifiedProductID string
	Candidate           *matching.Candidate
}

// Change is sent to subscribers after a successful status update
type Change struct {
	Status models.Status
	Items  []Item
}

type itemKey struct {
	videoID string
	offerID string
}

// Service holds the selection of one review session. Create one per session
// and Close it when the session ends.
type Service struct {
	mu      sync.Mutex
	writer  StatusWriter
	user    string
	items   map[itemKey]Item
	order   []itemKey
	subs    map[int]func(Change)
	nextSub int
	closed  bool
	now     func() time.Time
}

// New creates an empty selection whose updates are written as user
func New(writer StatusWriter, user string) *Service {
	return &Service{
		writer: writer,
		user:   user,
		items:  make(map[itemKey]Item),
		subs:   make(map[int]func(Change)),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Toggle adds the candidate to the selection, or removes it when already
// selected. It reports whether the candidate is selected afterwards.
func (s *Service) Toggle(videoID, identifiedProductID string, candidate *matching.Candidate) bool {
	if candidate == nil {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}

	key := itemKey{videoID: videoID, offerID: candidate.OfferID}
	if _, ok := s.items[key]; ok {
		s.remove(key)
		return false
	}

	s.items[key] = Item{VideoID: videoID, IdentifiedProductID: identifiedProductID, Candidate: candidate}
	s.order = append(s.order, key)
	return true
}

// IsSelected reports whether the candidate is in the selection
func (s *Service) IsSelected(videoID string, candidate *matching.Candidate) bool {
	if candidate == nil {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.items[itemKey{videoID: videoID, offerID: candidate.OfferID}]
	return ok
}

// Selected returns the selection in the order items were added
func (s *Service) Selected() []Item {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Item, 0, len(s.order))
	for _, key := range s.order {
		out = append(out, s.items[key])
	}
	return out
}

// Len returns the number of selected items
func (s *Service) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Clear empties the selection without writing anything
func (s *Service) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = make(map[itemKey]Item)
	s.order = nil
}

func (s *Service) remove(key itemKey) {
	delete(s.items, key)
	for i, k := range s.order {
		if k == key {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// UpdateStatus writes status for every selected candidate in one batch.
// On success the written items leave the selection, their in-memory status
// is stamped and subscribers are notified. On failure the selection is left
// as it was and false is returned.
func (s *Service) UpdateStatus(ctx context.Context, status models.Status, extra *models.SubmissionMetadata) bool {
	if !status.Valid() {
		log.Printf("❌ Selection: refusing unknown status %q", status)
		return false
	}

	items := s.Selected()
	if len(items) == 0 {
		log.Printf("⚠️  Selection: nothing selected, %s not sent", status)
		return false
	}

	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		log.Printf("⚠️  Selection: session closed, %s not sent", status)
		return false
	}

	updates := make([]models.CandidateUpdate, 0, len(items))
	for _, it := range items {
		updates = append(updates, models.CandidateUpdate{
			VideoAnalysisUUID:     it.VideoID,
			IdentifiedProductUUID: it.IdentifiedProductID,
			CandidateOfferID:      it.Candidate.OfferID,
			CandidateStatus: models.StatusBody{
				Status:             status,
				User:               s.user,
				SubmissionMetadata: extra,
			},
		})
	}

	if err := s.writer.UpdateCandidates(ctx, updates); err != nil {
		log.Printf("❌ Selection: failed to set %d candidates to %s: %v", len(updates), status, err)
		return false
	}

	stamped := s.now()

	s.mu.Lock()
	for _, it := range items {
		it.Candidate.CandidateStatus = &models.StatusBody{
			Status:             status,
			User:               s.user,
			ModifiedTimestamp:  &stamped,
			SubmissionMetadata: extra,
		}
		s.remove(itemKey{videoID: it.VideoID, offerID: it.Candidate.OfferID})
	}
	subs := make([]func(Change), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	change := Change{Status: status, Items: items}
	for _, fn := range subs {
		fn(change)
	}

	log.Printf("✅ Selection: %d candidates set to %s", len(items), status)
	return true
}

// Subscribe registers fn for status change notifications and returns a
// function that removes it.
func (s *Service) Subscribe(fn func(Change)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

// Close ends the session, dropping the selection and every subscriber
func (s *Service) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	s.items = make(map[itemKey]Item)
	s.order = nil
	s.subs = make(map[int]func(Change))
}
