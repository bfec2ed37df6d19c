// Package review records candidate review decisions as an append-only log
// and derives each candidate's current status from it.
package review

import (
	"errors"
	"fmt"

	"github.com/xelth-com/shopvidgo/internal/models"
)

var (
	ErrInvalidStatus     = errors.New("invalid candidate status")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrIncompleteKey     = errors.New("candidate key is incomplete")
)

// Key identifies the candidate a status record belongs to
type Key struct {
	VideoAnalysisUUID     string
	IdentifiedProductUUID string
	OfferID               string
}

// KeyOf returns the key of a stored record
func KeyOf(rec models.CandidateStatus) Key {
	return Key{
		VideoAnalysisUUID:     rec.VideoAnalysisUUID,
		IdentifiedProductUUID: rec.IdentifiedProductUUID,
		OfferID:               rec.CandidateOfferID,
	}
}

func (k Key) validate() error {
	if k.VideoAnalysisUUID == "" || k.IdentifiedProductUUID == "" || k.OfferID == "" {
		return ErrIncompleteKey
	}
	return nil
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%s/%s", k.VideoAnalysisUUID, k.IdentifiedProductUUID, k.OfferID)
}

// CanTransition reports whether a candidate in status from may move to to.
// Reviewer decisions are always allowed, so a reviewer can flip any earlier
// decision. PENDING needs an approved (or previously submitted) candidate,
// and submission outcomes can only follow an approval or a pending push.
func CanTransition(from, to models.Status) bool {
	if !from.Valid() || !to.Valid() {
		return false
	}
	switch to {
	case models.StatusUnreviewed, models.StatusApproved, models.StatusDisapproved:
		return true
	case models.StatusPending:
		return from == models.StatusApproved || from == models.StatusPending ||
			from == models.StatusCompleted || from == models.StatusFailed
	case models.StatusCompleted, models.StatusFailed:
		return from == models.StatusApproved || from == models.StatusPending
	}
	return false
}

// newer reports whether a was recorded after b. Timestamps are server
// assigned; equal timestamps fall back to insertion order.
func newer(a, b models.CandidateStatus) bool {
	if !a.ModifiedAt.Equal(b.ModifiedAt) {
		return a.ModifiedAt.After(b.ModifiedAt)
	}
	return a.ID > b.ID
}

// Newest returns the most recent of records, nil when empty
func Newest(records []models.CandidateStatus) *models.CandidateStatus {
	if len(records) == 0 {
		return nil
	}
	best := records[0]
	for _, rec := range records[1:] {
		if newer(rec, best) {
			best = rec
		}
	}
	return &best
}

// Latest reduces a record log to the most recent record per key
func Latest(records []models.CandidateStatus) []models.CandidateStatus {
	byKey := make(map[Key]int)
	var out []models.CandidateStatus
	for _, rec := range records {
		k := KeyOf(rec)
		if i, ok := byKey[k]; ok {
			if newer(rec, out[i]) {
				out[i] = rec
			}
			continue
		}
		byKey[k] = len(out)
		out = append(out, rec)
	}
	return out
}
