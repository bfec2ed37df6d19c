package submission

import (
	"context"
	"fmt"
	"time"

	"github.com/xelth-com/shopvidgo/internal/models"
	"gorm.io/gorm"
)

// GormStore keeps insertion requests and outcomes in postgres
type GormStore struct {
	db *gorm.DB
}

// NewGormStore creates a postgres backed submission store
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) SaveRequests(ctx context.Context, requests []models.InsertionRequest) error {
	if len(requests) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&requests).Error; err != nil {
			return fmt.Errorf("failed to save insertion requests: %w", err)
		}
		return nil
	})
}

func (s *GormStore) PendingRequests(ctx context.Context, limit int) ([]models.InsertionRequest, error) {
	var out []models.InsertionRequest
	q := s.db.WithContext(ctx).Where("processed_at IS NULL").Order("created_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&out).Error
	return out, err
}

func (s *GormStore) MarkProcessed(ctx context.Context, requestUUID string, at time.Time) error {
	res := s.db.WithContext(ctx).
		Model(&models.InsertionRequest{}).
		Where("request_uuid = ?", requestUUID).
		Update("processed_at", at)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("insertion request %s not found", requestUUID)
	}
	return nil
}

func (s *GormStore) RecordStatus(ctx context.Context, status *models.AdGroupInsertionStatus) error {
	return s.db.WithContext(ctx).Create(status).Error
}

func (s *GormStore) StatusesForVideo(ctx context.Context, videoUUID string) ([]models.AdGroupInsertionStatus, error) {
	var out []models.AdGroupInsertionStatus
	err := s.db.WithContext(ctx).
		Where("video_analysis_uuid = ?", videoUUID).
		Order("timestamp DESC, id DESC").
		Find(&out).Error
	return out, err
}

func (s *GormStore) StatusesForRequest(ctx context.Context, requestUUID string) ([]models.AdGroupInsertionStatus, error) {
	var out []models.AdGroupInsertionStatus
	err := s.db.WithContext(ctx).
		Where("request_uuid = ?", requestUUID).
		Order("timestamp DESC, id DESC").
		Find(&out).Error
	return out, err
}

func (s *GormStore) ListStatuses(ctx context.Context, limit, offset int) (*models.Page[models.AdGroupInsertionStatus], error) {
	page := &models.Page[models.AdGroupInsertionStatus]{Limit: limit, Offset: offset}

	if err := s.db.WithContext(ctx).Model(&models.AdGroupInsertionStatus{}).Count(&page.TotalCount).Error; err != nil {
		return nil, err
	}

	page.Items = []models.AdGroupInsertionStatus{}
	err := s.db.WithContext(ctx).
		Order("timestamp DESC, id DESC").
		Limit(limit).
		Offset(offset).
		Find(&page.Items).Error
	if err != nil {
		return nil, err
	}
	return page, nil
}
