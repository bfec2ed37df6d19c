package review

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/xelth-com/shopvidgo/internal/models"
)

// Update is a requested status change for one candidate
type Update struct {
	Key           Key
	Status        models.Status
	User          string
	IsAddedByUser bool
	Submission    *models.SubmissionMetadata
}

// UpdateFromWire converts a POST /candidates/update element
func UpdateFromWire(u models.CandidateUpdate) Update {
	return Update{
		Key: Key{
			VideoAnalysisUUID:     u.VideoAnalysisUUID,
			IdentifiedProductUUID: u.IdentifiedProductUUID,
			OfferID:               u.CandidateOfferID,
		},
		Status:        u.CandidateStatus.Status,
		User:          u.CandidateStatus.User,
		IsAddedByUser: u.CandidateStatus.IsAddedByUser,
		Submission:    u.CandidateStatus.SubmissionMetadata,
	}
}

// GroupKeyFunc returns the variant group a candidate key currently belongs
// to, or "" when it cannot be determined.
type GroupKeyFunc func(ctx context.Context, key Key) (string, error)

// Notifier is told about every record appended to the log
type Notifier interface {
	CandidateStatusChanged(records []models.CandidateStatus)
}

// Service validates status changes and appends them to a Store
type Service struct {
	store    Store
	groupKey GroupKeyFunc
	notifier Notifier
	now      func() time.Time
}

// NewService creates a review service on top of store
func NewService(store Store) *Service {
	return &Service{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// WithGroupKeys sets the resolver used to stamp a group key on new records
func (s *Service) WithGroupKeys(fn GroupKeyFunc) *Service {
	s.groupKey = fn
	return s
}

// WithNotifier sets the listener for appended records
func (s *Service) WithNotifier(n Notifier) *Service {
	s.notifier = n
	return s
}

// Current returns the record describing key, nil when never reviewed. The
// record is looked up through the key's variant group, so a decision made
// under an earlier hero offer is found for the current one.
func (s *Service) Current(ctx context.Context, key Key) (*models.CandidateStatus, error) {
	if err := key.validate(); err != nil {
		return nil, err
	}
	if s.groupKey == nil {
		return s.store.Latest(ctx, key)
	}
	group, err := s.groupOf(ctx, key)
	if err != nil {
		return nil, err
	}
	latest, err := s.store.LatestForVideo(ctx, key.VideoAnalysisUUID)
	if err != nil {
		return nil, err
	}
	return Resolve(latest, key.IdentifiedProductUUID, key.OfferID, group), nil
}

// CurrentStatus returns the status of the record describing key,
// UNREVIEWED when none exists.
func (s *Service) CurrentStatus(ctx context.Context, key Key) (models.Status, error) {
	rec, err := s.Current(ctx, key)
	if err != nil {
		return "", err
	}
	if rec == nil {
		return models.StatusUnreviewed, nil
	}
	return rec.Status, nil
}

// groupOf returns the group key stamped on new records for key
func (s *Service) groupOf(ctx context.Context, key Key) (string, error) {
	if s.groupKey == nil {
		return "", nil
	}
	group, err := s.groupKey(ctx, key)
	if err != nil {
		return "", fmt.Errorf("failed to resolve group for %s: %w", key, err)
	}
	return group, nil
}

// slot identifies the candidate a record describes: its group when known,
// otherwise its exact offer.
type slot struct {
	video, product, id string
}

func slotOf(key Key, group string) slot {
	if group != "" {
		return slot{key.VideoAnalysisUUID, key.IdentifiedProductUUID, "group:" + group}
	}
	return slot{key.VideoAnalysisUUID, key.IdentifiedProductUUID, "offer:" + key.OfferID}
}

// RecordStatus appends a single status record for key
func (s *Service) RecordStatus(ctx context.Context, key Key, status models.Status, user string, submission *models.SubmissionMetadata) (*models.CandidateStatus, error) {
	recs, err := s.Apply(ctx, []Update{{Key: key, Status: status, User: user, Submission: submission}}, "")
	if err != nil {
		return nil, err
	}
	return &recs[0], nil
}

// Apply validates a batch of updates and appends them in one all-or-nothing
// write. A non-empty actingUser overrides the user named in each update.
// Every update in the batch must pass validation, or nothing is written.
func (s *Service) Apply(ctx context.Context, updates []Update, actingUser string) ([]models.CandidateStatus, error) {
	if len(updates) == 0 {
		return nil, nil
	}

	now := s.now()
	current := make(map[slot]models.Status)
	latest := make(map[string][]models.CandidateStatus)
	records := make([]models.CandidateStatus, 0, len(updates))

	for i, u := range updates {
		if err := u.Key.validate(); err != nil {
			return nil, fmt.Errorf("update %d: %w", i, err)
		}
		if !u.Status.Valid() {
			return nil, fmt.Errorf("update %d: %w: %q", i, ErrInvalidStatus, u.Status)
		}

		group, err := s.groupOf(ctx, u.Key)
		if err != nil {
			return nil, err
		}

		at := slotOf(u.Key, group)
		from, seen := current[at]
		if !seen {
			recs, ok := latest[u.Key.VideoAnalysisUUID]
			if !ok {
				if recs, err = s.store.LatestForVideo(ctx, u.Key.VideoAnalysisUUID); err != nil {
					return nil, err
				}
				latest[u.Key.VideoAnalysisUUID] = recs
			}
			from = models.StatusUnreviewed
			if rec := Resolve(recs, u.Key.IdentifiedProductUUID, u.Key.OfferID, group); rec != nil {
				from = rec.Status
			}
		}
		if !CanTransition(from, u.Status) {
			return nil, fmt.Errorf("update %d: %w: %s -> %s for %s", i, ErrInvalidTransition, from, u.Status, u.Key)
		}
		current[at] = u.Status

		user := u.User
		if actingUser != "" {
			user = actingUser
		}

		records = append(records, models.CandidateStatus{
			VideoAnalysisUUID:     u.Key.VideoAnalysisUUID,
			IdentifiedProductUUID: u.Key.IdentifiedProductUUID,
			CandidateOfferID:      u.Key.OfferID,
			GroupKey:              group,
			Status:                u.Status,
			User:                  user,
			IsAddedByUser:         u.IsAddedByUser,
			SubmissionMetadata:    u.Submission,
			ModifiedAt:            now,
		})
	}

	if err := s.store.Append(ctx, records); err != nil {
		return nil, err
	}

	if s.notifier != nil {
		s.notifier.CandidateStatusChanged(records)
	}
	return records, nil
}

// TransitionOffers moves every candidate of a video whose hero offer is in
// offerIDs to status to. The current status of each candidate is resolved
// through its variant group and the new record is written under the given
// offer. Candidates never reviewed, or for which the transition is not
// allowed, are skipped. It returns the appended records.
func (s *Service) TransitionOffers(ctx context.Context, videoUUID string, offerIDs []string, to models.Status, user string, submission *models.SubmissionMetadata) ([]models.CandidateStatus, error) {
	if !to.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, to)
	}

	latest, err := s.store.LatestForVideo(ctx, videoUUID)
	if err != nil {
		return nil, err
	}

	var products []string
	seenProduct := make(map[string]bool)
	for _, rec := range latest {
		if !seenProduct[rec.IdentifiedProductUUID] {
			seenProduct[rec.IdentifiedProductUUID] = true
			products = append(products, rec.IdentifiedProductUUID)
		}
	}

	now := s.now()
	done := make(map[slot]bool)
	var records []models.CandidateStatus
	for _, product := range products {
		for _, offerID := range offerIDs {
			key := Key{VideoAnalysisUUID: videoUUID, IdentifiedProductUUID: product, OfferID: offerID}
			group, err := s.groupOf(ctx, key)
			if err != nil {
				return nil, err
			}
			at := slotOf(key, group)
			if done[at] {
				continue
			}
			rec := Resolve(latest, product, offerID, group)
			if rec == nil {
				continue
			}
			if !CanTransition(rec.Status, to) {
				log.Printf("⚠️  Review: skipping %s, cannot move %s -> %s", key, rec.Status, to)
				continue
			}
			done[at] = true
			records = append(records, models.CandidateStatus{
				VideoAnalysisUUID:     videoUUID,
				IdentifiedProductUUID: product,
				CandidateOfferID:      offerID,
				GroupKey:              group,
				Status:                to,
				User:                  user,
				IsAddedByUser:         rec.IsAddedByUser,
				SubmissionMetadata:    submission,
				ModifiedAt:            now,
			})
		}
	}
	if len(records) == 0 {
		return nil, nil
	}

	if err := s.store.Append(ctx, records); err != nil {
		return nil, err
	}
	if s.notifier != nil {
		s.notifier.CandidateStatusChanged(records)
	}
	return records, nil
}

// LatestForVideo returns the current record of every reviewed key of a video
func (s *Service) LatestForVideo(ctx context.Context, videoUUID string) ([]models.CandidateStatus, error) {
	return s.store.LatestForVideo(ctx, videoUUID)
}

// LatestWithStatus returns every key currently in status
func (s *Service) LatestWithStatus(ctx context.Context, status models.Status) ([]models.CandidateStatus, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	return s.store.LatestWithStatus(ctx, status)
}

// History returns every record of a video, oldest first
func (s *Service) History(ctx context.Context, videoUUID string) ([]models.CandidateStatus, error) {
	return s.store.History(ctx, videoUUID)
}

// Resolve picks the record describing a candidate out of the latest records
// of a video. Records carrying the candidate's group key match whatever offer
// they were written under, so a decision survives a change of hero. Records
// without a group key, or any record when the group is unknown, match by hero
// offer id. The most recent match is returned; nil means unreviewed.
func Resolve(latest []models.CandidateStatus, productUUID, heroOfferID, groupKey string) *models.CandidateStatus {
	var matches []models.CandidateStatus
	for _, rec := range latest {
		if rec.IdentifiedProductUUID != productUUID {
			continue
		}
		switch {
		case groupKey != "" && rec.GroupKey == groupKey:
			matches = append(matches, rec)
		case (groupKey == "" || rec.GroupKey == "") && rec.CandidateOfferID == heroOfferID:
			matches = append(matches, rec)
		}
	}
	return Newest(matches)
}
