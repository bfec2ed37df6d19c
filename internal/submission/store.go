package submission

import (
	"context"
	"time"

	"github.com/xelth-com/shopvidgo/internal/models"
)

// Store persists insertion requests and the append-only insertion outcome log
type Store interface {
	SaveRequests(ctx context.Context, requests []models.InsertionRequest) error
	PendingRequests(ctx context.Context, limit int) ([]models.InsertionRequest, error)
	MarkProcessed(ctx context.Context, requestUUID string, at time.Time) error

	RecordStatus(ctx context.Context, status *models.AdGroupInsertionStatus) error
	StatusesForVideo(ctx context.Context, videoUUID string) ([]models.AdGroupInsertionStatus, error)
	StatusesForRequest(ctx context.Context, requestUUID string) ([]models.AdGroupInsertionStatus, error)
	ListStatuses(ctx context.Context, limit, offset int) (*models.Page[models.AdGroupInsertionStatus], error)
}
