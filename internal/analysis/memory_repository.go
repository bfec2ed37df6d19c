package analysis

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/xelth-com/shopvidgo/internal/models"
)

// MemoryRepository is an in-process Repository used by tests and local tooling
type MemoryRepository struct {
	mu       sync.RWMutex
	videos   map[string]models.Video
	products map[string][]models.IdentifiedProduct
	catalog  map[string]models.CatalogOffer
}

// NewMemoryRepository creates an empty repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		videos:   make(map[string]models.Video),
		products: make(map[string][]models.IdentifiedProduct),
		catalog:  make(map[string]models.CatalogOffer),
	}
}

func (r *MemoryRepository) GetVideo(_ context.Context, videoUUID string) (*models.Video, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	v, ok := r.videos[videoUUID]
	if !ok {
		return nil, ErrNotFound
	}
	return &v, nil
}

func (r *MemoryRepository) ListVideos(_ context.Context, limit, offset int) ([]models.Video, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]models.Video, 0, len(r.videos))
	for _, v := range r.videos {
		all = append(all, v)
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].UUID < all[j].UUID
	})

	total := int64(len(all))
	if offset >= len(all) {
		return nil, total, nil
	}
	end := offset + limit
	if limit <= 0 || end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func sortMatches(p *models.IdentifiedProduct) {
	sort.SliceStable(p.Matches, func(i, j int) bool { return p.Matches[i].Distance < p.Matches[j].Distance })
}

func (r *MemoryRepository) Products(_ context.Context, videoUUID string) ([]models.IdentifiedProduct, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.IdentifiedProduct, 0, len(r.products[videoUUID]))
	for _, p := range r.products[videoUUID] {
		p.Matches = append([]models.RawMatch(nil), p.Matches...)
		sortMatches(&p)
		out = append(out, p)
	}
	return out, nil
}

func (r *MemoryRepository) Product(_ context.Context, productUUID string) (*models.IdentifiedProduct, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, products := range r.products {
		for _, p := range products {
			if p.UUID == productUUID {
				p.Matches = append([]models.RawMatch(nil), p.Matches...)
				sortMatches(&p)
				return &p, nil
			}
		}
	}
	return nil, ErrNotFound
}

func (r *MemoryRepository) CatalogOffers(_ context.Context, offerIDs []string) (map[string]models.CatalogOffer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]models.CatalogOffer, len(offerIDs))
	for _, id := range offerIDs {
		if o, ok := r.catalog[id]; ok {
			out[id] = o
		}
	}
	return out, nil
}

func (r *MemoryRepository) SaveAnalysis(_ context.Context, video *models.Video, products []models.IdentifiedProduct) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.videos[video.UUID]; exists {
		return fmt.Errorf("video %s already exists", video.UUID)
	}
	r.videos[video.UUID] = *video
	r.products[video.UUID] = append([]models.IdentifiedProduct(nil), products...)
	return nil
}

func (r *MemoryRepository) UpsertOffers(_ context.Context, offers []models.CatalogOffer) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, o := range offers {
		r.catalog[o.OfferID] = o
	}
	return nil
}
