package review

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/xelth-com/shopvidgo/internal/models"
)

type failingStore struct {
	*MemoryStore
	err error
}

func (f *failingStore) Append(ctx context.Context, records []models.CandidateStatus) error {
	return f.err
}

type recordingNotifier struct {
	batches [][]models.CandidateStatus
}

func (r *recordingNotifier) CandidateStatusChanged(records []models.CandidateStatus) {
	r.batches = append(r.batches, records)
}

// newTestService returns a service whose clock advances one second per write
func newTestService(store Store) *Service {
	clock := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s := NewService(store)
	s.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return s
}

var keyA = Key{VideoAnalysisUUID: "video-1", IdentifiedProductUUID: "product-1", OfferID: "A"}

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to models.Status
		want     bool
	}{
		{models.StatusUnreviewed, models.StatusApproved, true},
		{models.StatusApproved, models.StatusDisapproved, true},
		{models.StatusDisapproved, models.StatusUnreviewed, true},
		{models.StatusCompleted, models.StatusApproved, true},
		{models.StatusApproved, models.StatusPending, true},
		{models.StatusUnreviewed, models.StatusPending, false},
		{models.StatusDisapproved, models.StatusPending, false},
		{models.StatusApproved, models.StatusCompleted, true},
		{models.StatusPending, models.StatusFailed, true},
		{models.StatusUnreviewed, models.StatusCompleted, false},
		{models.StatusDisapproved, models.StatusFailed, false},
		{models.StatusCompleted, models.StatusCompleted, false},
		{models.StatusApproved, "SHIPPED", false},
	}

	for _, tc := range cases {
		if got := CanTransition(tc.from, tc.to); got != tc.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestCurrentStatus_DefaultsToUnreviewed(t *testing.T) {
	s := newTestService(NewMemoryStore())

	status, err := s.CurrentStatus(context.Background(), keyA)
	if err != nil {
		t.Fatalf("CurrentStatus failed: %v", err)
	}
	if status != models.StatusUnreviewed {
		t.Errorf("Expected UNREVIEWED, got %s", status)
	}
}

func TestRecordStatus_LastRecordWins(t *testing.T) {
	ctx := context.Background()
	s := newTestService(NewMemoryStore())

	sequence := []models.Status{
		models.StatusApproved,
		models.StatusDisapproved,
		models.StatusApproved,
		models.StatusPending,
		models.StatusCompleted,
		models.StatusUnreviewed,
	}
	for i, status := range sequence {
		if _, err := s.RecordStatus(ctx, keyA, status, "reviewer@example.com", nil); err != nil {
			t.Fatalf("RecordStatus %d (%s) failed: %v", i, status, err)
		}
		got, err := s.CurrentStatus(ctx, keyA)
		if err != nil {
			t.Fatalf("CurrentStatus failed: %v", err)
		}
		if got != status {
			t.Errorf("After record %d expected %s, got %s", i, status, got)
		}
	}

	history, err := s.History(ctx, keyA.VideoAnalysisUUID)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(history) != len(sequence) {
		t.Fatalf("Expected %d records in history, got %d", len(sequence), len(history))
	}
	for i, rec := range history {
		if rec.Status != sequence[i] {
			t.Errorf("History[%d] = %s, want %s", i, rec.Status, sequence[i])
		}
	}
}

func TestLatest_EqualTimestampsUseInsertionOrder(t *testing.T) {
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	records := []models.CandidateStatus{
		{ID: 2, VideoAnalysisUUID: "v", IdentifiedProductUUID: "p", CandidateOfferID: "A", Status: models.StatusDisapproved, ModifiedAt: ts},
		{ID: 1, VideoAnalysisUUID: "v", IdentifiedProductUUID: "p", CandidateOfferID: "A", Status: models.StatusApproved, ModifiedAt: ts},
	}

	latest := Latest(records)
	if len(latest) != 1 {
		t.Fatalf("Expected 1 key, got %d", len(latest))
	}
	if latest[0].Status != models.StatusDisapproved {
		t.Errorf("Expected the higher insertion id to win, got %s", latest[0].Status)
	}
}

func TestApply_RejectsInvalidStatus(t *testing.T) {
	store := NewMemoryStore()
	s := newTestService(store)

	_, err := s.Apply(context.Background(), []Update{{Key: keyA, Status: "MAYBE"}}, "")
	if !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("Expected ErrInvalidStatus, got %v", err)
	}

	history, _ := store.History(context.Background(), keyA.VideoAnalysisUUID)
	if len(history) != 0 {
		t.Errorf("Expected nothing written, got %d records", len(history))
	}
}

func TestApply_BatchIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	s := newTestService(store)

	keyB := keyA
	keyB.OfferID = "B"

	// B was never approved, so it cannot complete
	_, err := s.Apply(ctx, []Update{
		{Key: keyA, Status: models.StatusApproved},
		{Key: keyB, Status: models.StatusCompleted},
	}, "")
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("Expected ErrInvalidTransition, got %v", err)
	}

	status, _ := s.CurrentStatus(ctx, keyA)
	if status != models.StatusUnreviewed {
		t.Errorf("Expected no record for A after rejected batch, got %s", status)
	}
}

func TestApply_TransitionsWithinBatch(t *testing.T) {
	ctx := context.Background()
	s := newTestService(NewMemoryStore())

	recs, err := s.Apply(ctx, []Update{
		{Key: keyA, Status: models.StatusApproved},
		{Key: keyA, Status: models.StatusPending},
		{Key: keyA, Status: models.StatusCompleted},
	}, "")
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if len(recs) != 3 {
		t.Fatalf("Expected 3 records, got %d", len(recs))
	}

	status, _ := s.CurrentStatus(ctx, keyA)
	if status != models.StatusCompleted {
		t.Errorf("Expected COMPLETED, got %s", status)
	}
}

func TestApply_RejectsIncompleteKey(t *testing.T) {
	s := newTestService(NewMemoryStore())

	_, err := s.Apply(context.Background(), []Update{{
		Key:    Key{VideoAnalysisUUID: "video-1", OfferID: "A"},
		Status: models.StatusApproved,
	}}, "")
	if !errors.Is(err, ErrIncompleteKey) {
		t.Fatalf("Expected ErrIncompleteKey, got %v", err)
	}
}

func TestApply_ActingUserOverridesBody(t *testing.T) {
	s := newTestService(NewMemoryStore())

	recs, err := s.Apply(context.Background(), []Update{{
		Key:    keyA,
		Status: models.StatusApproved,
		User:   "someone-else@example.com",
	}}, "reviewer@example.com")
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if recs[0].User != "reviewer@example.com" {
		t.Errorf("Expected acting user to be recorded, got %q", recs[0].User)
	}
}

func TestApply_StoreFailureWritesNothing(t *testing.T) {
	store := &failingStore{MemoryStore: NewMemoryStore(), err: errors.New("connection reset")}
	notifier := &recordingNotifier{}
	s := newTestService(store).WithNotifier(notifier)

	_, err := s.Apply(context.Background(), []Update{{Key: keyA, Status: models.StatusApproved}}, "")
	if err == nil {
		t.Fatal("Expected store error to propagate")
	}
	if len(notifier.batches) != 0 {
		t.Errorf("Expected no notification on failure, got %d", len(notifier.batches))
	}
}

func TestApply_StampsGroupKeyAndNotifies(t *testing.T) {
	notifier := &recordingNotifier{}
	s := newTestService(NewMemoryStore()).
		WithNotifier(notifier).
		WithGroupKeys(func(ctx context.Context, key Key) (string, error) {
			return "img-" + key.OfferID, nil
		})

	recs, err := s.Apply(context.Background(), []Update{{Key: keyA, Status: models.StatusApproved}}, "")
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if recs[0].GroupKey != "img-A" {
		t.Errorf("Expected group key img-A, got %q", recs[0].GroupKey)
	}
	if len(notifier.batches) != 1 || len(notifier.batches[0]) != 1 {
		t.Errorf("Expected one notification with one record, got %v", notifier.batches)
	}
}

func TestTransitionOffers_SkipsDisallowed(t *testing.T) {
	ctx := context.Background()
	s := newTestService(NewMemoryStore())

	keyB := keyA
	keyB.OfferID = "B"
	keyC := keyA
	keyC.OfferID = "C"

	if _, err := s.Apply(ctx, []Update{
		{Key: keyA, Status: models.StatusApproved},
		{Key: keyB, Status: models.StatusDisapproved},
		{Key: keyC, Status: models.StatusApproved},
	}, ""); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	meta := &models.SubmissionMetadata{VideoUUID: "video-1", OfferIDs: "A,B"}
	recs, err := s.TransitionOffers(ctx, "video-1", []string{"A", "B"}, models.StatusPending, "reviewer@example.com", meta)
	if err != nil {
		t.Fatalf("TransitionOffers failed: %v", err)
	}
	if len(recs) != 1 || recs[0].CandidateOfferID != "A" {
		t.Fatalf("Expected only A to move to PENDING, got %+v", recs)
	}

	for key, want := range map[Key]models.Status{
		keyA: models.StatusPending,
		keyB: models.StatusDisapproved,
		keyC: models.StatusApproved,
	} {
		got, _ := s.CurrentStatus(ctx, key)
		if got != want {
			t.Errorf("%s: expected %s, got %s", key.OfferID, want, got)
		}
	}
}

// imageGroups puts offers A and B in one image group and every other offer
// in a group of its own.
func imageGroups(ctx context.Context, key Key) (string, error) {
	switch key.OfferID {
	case "A", "B":
		return "img-1", nil
	}
	return "img-" + key.OfferID, nil
}

func TestApply_ResolvesFromStatusThroughGroup(t *testing.T) {
	ctx := context.Background()
	s := newTestService(NewMemoryStore()).WithGroupKeys(imageGroups)

	keyB := keyA
	keyB.OfferID = "B"

	if _, err := s.RecordStatus(ctx, keyB, models.StatusApproved, "", nil); err != nil {
		t.Fatalf("RecordStatus failed: %v", err)
	}

	// A is now the hero of the group B was approved under
	if got, _ := s.CurrentStatus(ctx, keyA); got != models.StatusApproved {
		t.Fatalf("Expected A to inherit APPROVED, got %s", got)
	}
	rec, err := s.RecordStatus(ctx, keyA, models.StatusPending, "", nil)
	if err != nil {
		t.Fatalf("Expected PENDING from the group's APPROVED to be accepted: %v", err)
	}
	if rec.CandidateOfferID != "A" || rec.GroupKey != "img-1" {
		t.Errorf("Expected record under A in img-1, got %+v", rec)
	}

	keyC := keyA
	keyC.OfferID = "C"
	if _, err := s.RecordStatus(ctx, keyC, models.StatusPending, "", nil); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Expected ErrInvalidTransition for an unreviewed group, got %v", err)
	}
}

func TestApply_BatchTracksGroupAcrossOffers(t *testing.T) {
	ctx := context.Background()
	s := newTestService(NewMemoryStore()).WithGroupKeys(imageGroups)

	keyB := keyA
	keyB.OfferID = "B"

	_, err := s.Apply(ctx, []Update{
		{Key: keyA, Status: models.StatusApproved},
		{Key: keyB, Status: models.StatusPending},
	}, "")
	if err != nil {
		t.Fatalf("Expected B to see A's approval within the batch: %v", err)
	}
}

func TestTransitionOffers_FollowsGroupToNewHero(t *testing.T) {
	ctx := context.Background()
	s := newTestService(NewMemoryStore()).WithGroupKeys(imageGroups)

	keyB := keyA
	keyB.OfferID = "B"
	if _, err := s.RecordStatus(ctx, keyB, models.StatusApproved, "", nil); err != nil {
		t.Fatalf("RecordStatus failed: %v", err)
	}

	recs, err := s.TransitionOffers(ctx, "video-1", []string{"A"}, models.StatusPending, "reviewer@example.com", nil)
	if err != nil {
		t.Fatalf("TransitionOffers failed: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("Expected one record, got %+v", recs)
	}
	if recs[0].CandidateOfferID != "A" || recs[0].GroupKey != "img-1" || recs[0].Status != models.StatusPending {
		t.Errorf("Expected PENDING under A in img-1, got %+v", recs[0])
	}

	if _, err := s.TransitionOffers(ctx, "video-1", []string{"A"}, models.StatusCompleted, "insertion-worker", nil); err != nil {
		t.Fatalf("TransitionOffers failed: %v", err)
	}
	for _, key := range []Key{keyA, keyB} {
		if got, _ := s.CurrentStatus(ctx, key); got != models.StatusCompleted {
			t.Errorf("%s: expected COMPLETED, got %s", key.OfferID, got)
		}
	}
}

func TestTransitionOffers_SubmittingTwoOffersOfOneGroupWritesOnce(t *testing.T) {
	ctx := context.Background()
	s := newTestService(NewMemoryStore()).WithGroupKeys(imageGroups)

	if _, err := s.RecordStatus(ctx, keyA, models.StatusApproved, "", nil); err != nil {
		t.Fatalf("RecordStatus failed: %v", err)
	}
	recs, err := s.TransitionOffers(ctx, "video-1", []string{"A", "B"}, models.StatusPending, "", nil)
	if err != nil {
		t.Fatalf("TransitionOffers failed: %v", err)
	}
	if len(recs) != 1 || recs[0].CandidateOfferID != "A" {
		t.Errorf("Expected a single record under A, got %+v", recs)
	}
}

func TestLatestWithStatus(t *testing.T) {
	ctx := context.Background()
	s := newTestService(NewMemoryStore())

	keyB := keyA
	keyB.OfferID = "B"

	s.RecordStatus(ctx, keyA, models.StatusApproved, "", nil)
	s.RecordStatus(ctx, keyB, models.StatusApproved, "", nil)
	s.RecordStatus(ctx, keyB, models.StatusDisapproved, "", nil)

	approved, err := s.LatestWithStatus(ctx, models.StatusApproved)
	if err != nil {
		t.Fatalf("LatestWithStatus failed: %v", err)
	}
	if len(approved) != 1 || approved[0].CandidateOfferID != "A" {
		t.Errorf("Expected only A approved, got %+v", approved)
	}

	if _, err := s.LatestWithStatus(ctx, "NOPE"); !errors.Is(err, ErrInvalidStatus) {
		t.Errorf("Expected ErrInvalidStatus, got %v", err)
	}
}

func TestResolve_GroupKeySurvivesHeroChange(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	latest := []models.CandidateStatus{
		// approved while A was the hero of group img-1
		{ID: 1, IdentifiedProductUUID: "p", CandidateOfferID: "A", GroupKey: "img-1", Status: models.StatusApproved, ModifiedAt: t0},
		// unrelated legacy record without group key
		{ID: 2, IdentifiedProductUUID: "p", CandidateOfferID: "Z", Status: models.StatusDisapproved, ModifiedAt: t0},
	}

	// B is now the hero of the same group
	rec := Resolve(latest, "p", "B", "img-1")
	if rec == nil || rec.Status != models.StatusApproved {
		t.Fatalf("Expected approval to follow the group, got %+v", rec)
	}

	if rec := Resolve(latest, "p", "Z", "img-9"); rec == nil || rec.Status != models.StatusDisapproved {
		t.Errorf("Expected legacy record to resolve by offer id, got %+v", rec)
	}

	if rec := Resolve(latest, "p", "A", ""); rec == nil || rec.Status != models.StatusApproved {
		t.Errorf("Expected an unknown group to resolve by offer id, got %+v", rec)
	}

	if rec := Resolve(latest, "other", "B", "img-1"); rec != nil {
		t.Errorf("Expected no record for another product, got %+v", rec)
	}
}

func TestResolve_MostRecentWins(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	latest := []models.CandidateStatus{
		{ID: 1, IdentifiedProductUUID: "p", CandidateOfferID: "A", GroupKey: "img-1", Status: models.StatusApproved, ModifiedAt: t0},
		{ID: 2, IdentifiedProductUUID: "p", CandidateOfferID: "B", GroupKey: "img-1", Status: models.StatusDisapproved, ModifiedAt: t0.Add(time.Minute)},
	}

	rec := Resolve(latest, "p", "B", "img-1")
	if rec == nil || rec.Status != models.StatusDisapproved {
		t.Errorf("Expected most recent group record, got %+v", rec)
	}
}
