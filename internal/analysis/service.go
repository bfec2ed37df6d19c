package analysis

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xelth-com/shopvidgo/internal/matching"
	"github.com/xelth-com/shopvidgo/internal/models"
	"github.com/xelth-com/shopvidgo/internal/review"
	"gorm.io/datatypes"
)

var ErrInvalidAnalysis = errors.New("invalid video analysis")

// StatusReader returns the latest status record of every reviewed key of
// a video
type StatusReader interface {
	LatestForVideo(ctx context.Context, videoUUID string) ([]models.CandidateStatus, error)
}

// ProductAnalysis is an identified product with its aggregated candidates
type ProductAnalysis struct {
	UUID               string               `json:"product_uuid"`
	Title              string               `json:"title"`
	Description        string               `json:"description"`
	RelevanceReasoning string               `json:"relevance_reasoning"`
	VideoTimestamp     int64                `json:"video_timestamp"`
	Candidates         []matching.Candidate `json:"matched_products"`
}

// VideoAnalysis is the reviewer's view of one analyzed video
type VideoAnalysis struct {
	Video              models.Video      `json:"video"`
	IdentifiedProducts []ProductAnalysis `json:"identified_products"`
}

// Summary holds the review progress counts of one video. Candidates that
// went on to submission (PENDING, COMPLETED, FAILED) count as approved.
type Summary struct {
	Video                    models.Video `json:"video"`
	IdentifiedProductsCount  int          `json:"identified_products_count"`
	MatchedProductsCount     int          `json:"matched_products_count"`
	ApprovedProductsCount    int          `json:"approved_products_count"`
	DisapprovedProductsCount int          `json:"disapproved_products_count"`
	UnreviewedProductsCount  int          `json:"unreviewed_products_count"`
}

// Service assembles video analyses for review
type Service struct {
	repo     Repository
	statuses StatusReader
	metadata MetadataFetcher
	now      func() time.Time
}

// NewService creates an analysis service. statuses may be nil, in which case
// every candidate is reported unreviewed.
func NewService(repo Repository, statuses StatusReader) *Service {
	return &Service{
		repo:     repo,
		statuses: statuses,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// WithMetadata enables metadata lookup for ingested google_ads videos
func (s *Service) WithMetadata(f MetadataFetcher) *Service {
	s.metadata = f
	return s
}

func matchOfferIDs(products []models.IdentifiedProduct) []string {
	seen := make(map[string]bool)
	var ids []string
	for _, p := range products {
		for _, m := range p.Matches {
			if !seen[m.OfferID] {
				seen[m.OfferID] = true
				ids = append(ids, m.OfferID)
			}
		}
	}
	return ids
}

// aggregate builds the candidates of every product with their current status
func (s *Service) aggregate(ctx context.Context, videoUUID string, products []models.IdentifiedProduct) ([]ProductAnalysis, error) {
	catalog, err := s.repo.CatalogOffers(ctx, matchOfferIDs(products))
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}
	lookup := matching.MapLookup(catalog)

	var latest []models.CandidateStatus
	if s.statuses != nil {
		if latest, err = s.statuses.LatestForVideo(ctx, videoUUID); err != nil {
			return nil, fmt.Errorf("failed to load candidate statuses: %w", err)
		}
	}

	out := make([]ProductAnalysis, 0, len(products))
	for _, p := range products {
		candidates := matching.Aggregate(p.Matches, lookup)
		for i := range candidates {
			c := &candidates[i]
			if rec := review.Resolve(latest, p.UUID, c.OfferID, c.GroupKey); rec != nil {
				body := rec.Body()
				c.CandidateStatus = &body
			}
		}
		out = append(out, ProductAnalysis{
			UUID:               p.UUID,
			Title:              p.Title,
			Description:        p.Description,
			RelevanceReasoning: p.RelevanceReasoning,
			VideoTimestamp:     p.VideoTimestampMs,
			Candidates:         candidates,
		})
	}
	return out, nil
}

// GetVideoAnalysis returns a video with its identified products and their
// aggregated, status-annotated candidates
func (s *Service) GetVideoAnalysis(ctx context.Context, videoUUID string) (*VideoAnalysis, error) {
	video, err := s.repo.GetVideo(ctx, videoUUID)
	if err != nil {
		return nil, err
	}

	products, err := s.repo.Products(ctx, videoUUID)
	if err != nil {
		return nil, fmt.Errorf("failed to load identified products: %w", err)
	}

	analyzed, err := s.aggregate(ctx, videoUUID, products)
	if err != nil {
		return nil, err
	}

	return &VideoAnalysis{Video: *video, IdentifiedProducts: analyzed}, nil
}

// GetVideo returns the stored video record
func (s *Service) GetVideo(ctx context.Context, videoUUID string) (*models.Video, error) {
	return s.repo.GetVideo(ctx, videoUUID)
}

// Summarize counts review progress for one analysis
func Summarize(a *VideoAnalysis) Summary {
	sum := Summary{Video: a.Video, IdentifiedProductsCount: len(a.IdentifiedProducts)}
	for _, p := range a.IdentifiedProducts {
		for _, c := range p.Candidates {
			sum.MatchedProductsCount++

			status := models.StatusUnreviewed
			if c.CandidateStatus != nil {
				status = c.CandidateStatus.Status
			}
			switch status {
			case models.StatusApproved, models.StatusPending, models.StatusCompleted, models.StatusFailed:
				sum.ApprovedProductsCount++
			case models.StatusDisapproved:
				sum.DisapprovedProductsCount++
			default:
				sum.UnreviewedProductsCount++
			}
		}
	}
	return sum
}

// Summaries returns a page of per video review counts, newest video first
func (s *Service) Summaries(ctx context.Context, limit, offset int) (*models.Page[Summary], error) {
	videos, total, err := s.repo.ListVideos(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list videos: %w", err)
	}

	page := &models.Page[Summary]{
		Items:      make([]Summary, 0, len(videos)),
		TotalCount: total,
		Limit:      limit,
		Offset:     offset,
	}
	for _, v := range videos {
		products, err := s.repo.Products(ctx, v.UUID)
		if err != nil {
			return nil, fmt.Errorf("failed to load products of %s: %w", v.UUID, err)
		}
		analyzed, err := s.aggregate(ctx, v.UUID, products)
		if err != nil {
			return nil, err
		}
		page.Items = append(page.Items, Summarize(&VideoAnalysis{Video: v, IdentifiedProducts: analyzed}))
	}
	return page, nil
}

// GroupKey returns the variant group an offer currently falls into within
// an identified product. Offers that are not among the product's matches
// (added by a reviewer) have no group.
func (s *Service) GroupKey(ctx context.Context, key review.Key) (string, error) {
	product, err := s.repo.Product(ctx, key.IdentifiedProductUUID)
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	if product.VideoAnalysisUUID != key.VideoAnalysisUUID {
		return "", nil
	}

	catalog, err := s.repo.CatalogOffers(ctx, matchOfferIDs([]models.IdentifiedProduct{*product}))
	if err != nil {
		return "", err
	}

	c, ok := matching.FindByOffer(matching.Aggregate(product.Matches, matching.MapLookup(catalog)), key.OfferID)
	if !ok {
		return "", nil
	}
	return c.GroupKey, nil
}

// IngestProduct is an identified product as delivered by the video analysis
type IngestProduct struct {
	UUID               string            `json:"product_uuid"`
	Title              string            `json:"title"`
	Description        string            `json:"description"`
	RelevanceReasoning string            `json:"relevance_reasoning"`
	VideoTimestamp     int64             `json:"video_timestamp"`
	Matches            []models.RawMatch `json:"matched_products"`
}

// IngestRequest is a complete analysis of one video
type IngestRequest struct {
	Video              models.Video    `json:"video"`
	IdentifiedProducts []IngestProduct `json:"identified_products"`
}

// Ingest validates and stores a new video analysis. Missing identifiers are
// generated. google_ads videos without a title get their metadata from
// YouTube when a fetcher is configured.
func (s *Service) Ingest(ctx context.Context, req IngestRequest) (*models.Video, error) {
	video := req.Video
	switch video.Source {
	case models.VideoSourceManual:
	case models.VideoSourceGoogleAds:
		if video.VideoID == nil || strings.TrimSpace(*video.VideoID) == "" {
			return nil, fmt.Errorf("%w: google_ads videos need a video_id", ErrInvalidAnalysis)
		}
	default:
		return nil, fmt.Errorf("%w: unknown source %q", ErrInvalidAnalysis, video.Source)
	}

	if video.UUID == "" {
		video.UUID = uuid.NewString()
	}
	if video.CreatedAt.IsZero() {
		video.CreatedAt = s.now()
	}

	if video.Source == models.VideoSourceGoogleAds && video.Metadata.Data().Title == "" && s.metadata != nil {
		meta, err := s.metadata.VideoMetadata(ctx, *video.VideoID)
		if err != nil {
			log.Printf("⚠️  No YouTube metadata for %s: %v", *video.VideoID, err)
		} else {
			video.Metadata = datatypes.NewJSONType(*meta)
		}
	}

	products := make([]models.IdentifiedProduct, 0, len(req.IdentifiedProducts))
	for i, ip := range req.IdentifiedProducts {
		if ip.UUID == "" {
			ip.UUID = uuid.NewString()
		}
		p := models.IdentifiedProduct{
			UUID:               ip.UUID,
			VideoAnalysisUUID:  video.UUID,
			Title:              ip.Title,
			Description:        ip.Description,
			RelevanceReasoning: ip.RelevanceReasoning,
			VideoTimestampMs:   ip.VideoTimestamp,
		}
		for j, m := range ip.Matches {
			if strings.TrimSpace(m.OfferID) == "" {
				return nil, fmt.Errorf("%w: product %d match %d has no offer_id", ErrInvalidAnalysis, i, j)
			}
			if m.Distance < 0 {
				return nil, fmt.Errorf("%w: product %d match %d has negative distance", ErrInvalidAnalysis, i, j)
			}
			m.ID = 0
			m.IdentifiedProductUUID = p.UUID
			if m.Timestamp.IsZero() {
				m.Timestamp = video.CreatedAt
			}
			p.Matches = append(p.Matches, m)
		}
		products = append(products, p)
	}

	if err := s.repo.SaveAnalysis(ctx, &video, products); err != nil {
		return nil, err
	}

	log.Printf("🎬 Ingested video %s (%s) with %d identified products", video.UUID, video.Source, len(products))
	return &video, nil
}

// UpsertOffers refreshes live catalog rows
func (s *Service) UpsertOffers(ctx context.Context, offers []models.CatalogOffer) error {
	now := s.now()
	for i := range offers {
		if strings.TrimSpace(offers[i].OfferID) == "" {
			return fmt.Errorf("%w: offer %d has no offer_id", ErrInvalidAnalysis, i)
		}
		offers[i].UpdatedAt = now
	}
	return s.repo.UpsertOffers(ctx, offers)
}
