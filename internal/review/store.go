package review

import (
	"context"

	"github.com/xelth-com/shopvidgo/internal/models"
)

// Store is the append-only candidate status log. Implementations never
// update or delete a record; Append is all-or-nothing.
type Store interface {
	// Append inserts records in order, assigning their IDs
	Append(ctx context.Context, records []models.CandidateStatus) error
	// Latest returns the most recent record for key, nil when there is none
	Latest(ctx context.Context, key Key) (*models.CandidateStatus, error)
	// LatestForVideo returns the most recent record of every key of a video
	LatestForVideo(ctx context.Context, videoUUID string) ([]models.CandidateStatus, error)
	// LatestWithStatus returns every key whose most recent record has status
	LatestWithStatus(ctx context.Context, status models.Status) ([]models.CandidateStatus, error)
	// History returns every record of a video, oldest first
	History(ctx context.Context, videoUUID string) ([]models.CandidateStatus, error)
}
