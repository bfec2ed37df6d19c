package submission

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/xelth-com/shopvidgo/internal/models"
)

// StatusTransitioner moves the candidates of a submission through the
// review log
type StatusTransitioner interface {
	TransitionOffers(ctx context.Context, videoUUID string, offerIDs []string, to models.Status, user string, submission *models.SubmissionMetadata) ([]models.CandidateStatus, error)
}

// Queue turns submissions into insertion requests for the dispatch worker.
// It is the server side Sink and StatusSource.
type Queue struct {
	store    Store
	statuses StatusTransitioner
	onQueued func()
	now      func() time.Time
}

// NewQueue creates a queue on top of store. statuses may be nil.
func NewQueue(store Store, statuses StatusTransitioner) *Queue {
	return &Queue{
		store:    store,
		statuses: statuses,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// OnQueued registers a callback run after every successful Enqueue
func (q *Queue) OnQueued(fn func()) {
	q.onQueued = fn
}

// Submit implements Sink
func (q *Queue) Submit(ctx context.Context, submissions []models.SubmissionMetadata) error {
	_, err := q.Enqueue(ctx, submissions, "")
	return err
}

// Enqueue validates every submission and stores one insertion request per
// submission. Validation is all-or-nothing. A non-empty actingUser replaces
// the submitting user of each submission. Approved candidates of the
// submitted offers move to PENDING.
func (q *Queue) Enqueue(ctx context.Context, submissions []models.SubmissionMetadata, actingUser string) ([]models.InsertionRequest, error) {
	if len(submissions) == 0 {
		return nil, ErrNoOffers
	}

	now := q.now()
	metas := make([]*models.SubmissionMetadata, 0, len(submissions))
	requests := make([]models.InsertionRequest, 0, len(submissions))

	for i, sub := range submissions {
		meta, err := Normalize(sub)
		if err != nil {
			return nil, fmt.Errorf("submission %d: %w", i, err)
		}
		if actingUser != "" {
			meta.SubmittingUser = actingUser
		}
		if meta.RequestUUID == "" {
			meta.RequestUUID = uuid.NewString()
		}
		metas = append(metas, meta)

		requests = append(requests, models.InsertionRequest{
			RequestUUID:    meta.RequestUUID,
			VideoUUID:      meta.VideoUUID,
			OfferIDs:       meta.OfferIDList(),
			Destinations:   meta.Destinations,
			SubmittingUser: meta.SubmittingUser,
			CPC:            meta.CPC,
			CreatedAt:      now,
		})
	}

	if err := q.store.SaveRequests(ctx, requests); err != nil {
		return nil, err
	}
	log.Printf("📥 Queued %d insertion requests", len(requests))

	if q.statuses != nil {
		// requests are stored at this point, so the PENDING mark must not depend
		// on the caller staying connected
		writeCtx := context.WithoutCancel(ctx)
		for _, meta := range metas {
			if _, err := q.statuses.TransitionOffers(writeCtx, meta.VideoUUID, meta.OfferIDList(), models.StatusPending, meta.SubmittingUser, meta); err != nil {
				log.Printf("⚠️  Failed to mark request %s pending: %v", meta.RequestUUID, err)
			}
		}
	}

	if q.onQueued != nil {
		q.onQueued()
	}
	return requests, nil
}

// InsertionStatusesForVideo implements StatusSource
func (q *Queue) InsertionStatusesForVideo(ctx context.Context, videoUUID string) ([]models.AdGroupInsertionStatus, error) {
	return q.store.StatusesForVideo(ctx, videoUUID)
}

// StatusesForRequest returns the outcomes recorded for one request
func (q *Queue) StatusesForRequest(ctx context.Context, requestUUID string) ([]models.AdGroupInsertionStatus, error) {
	return q.store.StatusesForRequest(ctx, requestUUID)
}

// ListStatuses returns a page of outcomes, newest first
func (q *Queue) ListStatuses(ctx context.Context, limit, offset int) (*models.Page[models.AdGroupInsertionStatus], error) {
	return q.store.ListStatuses(ctx, limit, offset)
}
