// Package analysis serves analyzed videos with their identified products
// and aggregated candidates, and ingests new analyses.
package analysis

import (
	"context"
	"errors"

	"github.com/xelth-com/shopvidgo/internal/models"
)

var ErrNotFound = errors.New("video analysis not found")

// Repository reads and writes video analyses and the live catalog
type Repository interface {
	GetVideo(ctx context.Context, videoUUID string) (*models.Video, error)
	ListVideos(ctx context.Context, limit, offset int) ([]models.Video, int64, error)
	// Products returns the identified products of a video with their raw
	// matches ordered by distance
	Products(ctx context.Context, videoUUID string) ([]models.IdentifiedProduct, error)
	Product(ctx context.Context, productUUID string) (*models.IdentifiedProduct, error)
	CatalogOffers(ctx context.Context, offerIDs []string) (map[string]models.CatalogOffer, error)

	SaveAnalysis(ctx context.Context, video *models.Video, products []models.IdentifiedProduct) error
	UpsertOffers(ctx context.Context, offers []models.CatalogOffer) error
}
