package analysis

import (
	"context"
	"errors"
	"fmt"

	"github.com/xelth-com/shopvidgo/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormRepository reads analyses from postgres
type GormRepository struct {
	db *gorm.DB
}

// NewGormRepository creates a postgres backed repository
func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

func (r *GormRepository) GetVideo(ctx context.Context, videoUUID string) (*models.Video, error) {
	var v models.Video
	err := r.db.WithContext(ctx).Where("uuid = ?", videoUUID).First(&v).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *GormRepository) ListVideos(ctx context.Context, limit, offset int) ([]models.Video, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&models.Video{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var videos []models.Video
	err := r.db.WithContext(ctx).
		Order("created_at DESC, uuid").
		Limit(limit).
		Offset(offset).
		Find(&videos).Error
	return videos, total, err
}

func orderedMatches(db *gorm.DB) *gorm.DB {
	return db.Order("distance ASC, id ASC")
}

func (r *GormRepository) Products(ctx context.Context, videoUUID string) ([]models.IdentifiedProduct, error) {
	var products []models.IdentifiedProduct
	err := r.db.WithContext(ctx).
		Preload("Matches", orderedMatches).
		Where("video_analysis_uuid = ?", videoUUID).
		Order("video_timestamp_ms ASC, uuid").
		Find(&products).Error
	return products, err
}

func (r *GormRepository) Product(ctx context.Context, productUUID string) (*models.IdentifiedProduct, error) {
	var p models.IdentifiedProduct
	err := r.db.WithContext(ctx).
		Preload("Matches", orderedMatches).
		Where("uuid = ?", productUUID).
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *GormRepository) CatalogOffers(ctx context.Context, offerIDs []string) (map[string]models.CatalogOffer, error) {
	out := make(map[string]models.CatalogOffer, len(offerIDs))
	if len(offerIDs) == 0 {
		return out, nil
	}

	var offers []models.CatalogOffer
	if err := r.db.WithContext(ctx).Where("offer_id IN ?", offerIDs).Find(&offers).Error; err != nil {
		return nil, err
	}
	for _, o := range offers {
		out[o.OfferID] = o
	}
	return out, nil
}

func (r *GormRepository) SaveAnalysis(ctx context.Context, video *models.Video, products []models.IdentifiedProduct) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(video).Error; err != nil {
			return fmt.Errorf("failed to save video: %w", err)
		}
		if len(products) == 0 {
			return nil
		}
		// Matches are created through the association
		if err := tx.Create(&products).Error; err != nil {
			return fmt.Errorf("failed to save identified products: %w", err)
		}
		return nil
	})
}

func (r *GormRepository) UpsertOffers(ctx context.Context, offers []models.CatalogOffer) error {
	if len(offers) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "offer_id"}},
		UpdateAll: true,
	}).CreateInBatches(&offers, 500).Error
}
