package review

import (
	"context"
	"errors"
	"fmt"

	"github.com/xelth-com/shopvidgo/internal/models"
	"gorm.io/gorm"
)

// GormStore keeps the status log in the candidate_status table
type GormStore struct {
	db *gorm.DB
}

// NewGormStore creates a postgres backed status log
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Append(ctx context.Context, records []models.CandidateStatus) error {
	if len(records) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.CreateInBatches(&records, 100).Error; err != nil {
			return fmt.Errorf("failed to append candidate statuses: %w", err)
		}
		return nil
	})
}

func (s *GormStore) Latest(ctx context.Context, key Key) (*models.CandidateStatus, error) {
	var rec models.CandidateStatus
	err := s.db.WithContext(ctx).
		Where("video_analysis_uuid = ? AND identified_product_uuid = ? AND candidate_offer_id = ?",
			key.VideoAnalysisUUID, key.IdentifiedProductUUID, key.OfferID).
		Order("modified_at DESC, id DESC").
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// latest selects the newest record of every key
func (s *GormStore) latest(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).
		Model(&models.CandidateStatus{}).
		Select("DISTINCT ON (video_analysis_uuid, identified_product_uuid, candidate_offer_id) *").
		Order("video_analysis_uuid, identified_product_uuid, candidate_offer_id, modified_at DESC, id DESC")
}

func (s *GormStore) LatestForVideo(ctx context.Context, videoUUID string) ([]models.CandidateStatus, error) {
	var out []models.CandidateStatus
	err := s.latest(ctx).Where("video_analysis_uuid = ?", videoUUID).Find(&out).Error
	return out, err
}

func (s *GormStore) LatestWithStatus(ctx context.Context, status models.Status) ([]models.CandidateStatus, error) {
	var out []models.CandidateStatus
	err := s.db.WithContext(ctx).
		Table("(?) AS latest", s.latest(ctx)).
		Where("status = ?", status).
		Order("modified_at DESC").
		Find(&out).Error
	return out, err
}

func (s *GormStore) History(ctx context.Context, videoUUID string) ([]models.CandidateStatus, error) {
	var out []models.CandidateStatus
	err := s.db.WithContext(ctx).
		Where("video_analysis_uuid = ?", videoUUID).
		Order("modified_at ASC, id ASC").
		Find(&out).Error
	return out, err
}
