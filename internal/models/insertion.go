package models

import (
	"math"
	"time"

	"github.com/lib/pq"
	"gorm.io/datatypes"
)

// Overall insertion outcomes
const (
	InsertionSuccess        = "SUCCESS"
	InsertionPartialSuccess = "PARTIAL_SUCCESS"
	InsertionFailed         = "FAILED"
)

// Per-product outcomes inside an ads entity. Anything but ProductFailed
// counts as a success when the overall status is computed.
const (
	ProductAdded          = "SUCCESS"
	ProductAlreadyPresent = "ALREADY_PRESENT"
	ProductFailed         = "FAILED"
)

// InsertionRequest is a queued submission waiting for the insertion worker.
// One row per SubmissionMetadata; each destination becomes one ads entity.
type InsertionRequest struct {
	RequestUUID    string                           `gorm:"primaryKey;type:uuid" json:"request_uuid"`
	VideoUUID      string                           `gorm:"type:uuid;not null;index" json:"video_uuid"`
	OfferIDs       pq.StringArray                   `gorm:"type:text[]" json:"offer_ids"`
	Destinations   datatypes.JSONSlice[Destination] `json:"destinations"`
	SubmittingUser string                           `json:"submitting_user"`
	CPC            *float64                         `json:"cpc,omitempty"`
	CreatedAt      time.Time                        `gorm:"index" json:"timestamp"`
	ProcessedAt    *time.Time                       `gorm:"index" json:"processed_at,omitempty"`
}

func (InsertionRequest) TableName() string { return "google_ads_insertion_requests" }

// CPCBidMicros converts the optional CPC override to micros, falling back to def
func (r InsertionRequest) CPCBidMicros(def int64) int64 {
	if r.CPC == nil {
		return def
	}
	return int64(math.Round(*r.CPC * 1_000_000))
}

// ProductInsertionStatus is the outcome for one offer inside one ad group
type ProductInsertionStatus struct {
	OfferID string `json:"offer_id"`
	Status  string `json:"status"`
}

// AdsEntityStatus is the outcome for one destination ad group
type AdsEntityStatus struct {
	CustomerID   int64                    `json:"customer_id"`
	CampaignID   int64                    `json:"campaign_id"`
	AdGroupID    int64                    `json:"ad_group_id"`
	Products     []ProductInsertionStatus `json:"products"`
	ErrorMessage *string                  `json:"error_message,omitempty"`
}

// AdGroupInsertionStatus is an append-only record of one dispatch of an
// insertion request. Per-product outcomes are kept verbatim.
type AdGroupInsertionStatus struct {
	ID                uint64                               `gorm:"primaryKey;autoIncrement" json:"-"`
	RequestUUID       string                               `gorm:"type:uuid;not null;index" json:"request_uuid"`
	VideoAnalysisUUID string                               `gorm:"type:uuid;not null;index" json:"video_analysis_uuid"`
	Status            string                               `gorm:"not null" json:"status"`
	AdsEntities       datatypes.JSONSlice[AdsEntityStatus] `json:"ads_entities"`
	Timestamp         time.Time                            `gorm:"not null;index" json:"timestamp"`
}

func (AdGroupInsertionStatus) TableName() string { return "ad_group_insertion_status" }

// Page is a paginated list response
type Page[T any] struct {
	Items      []T   `json:"items"`
	TotalCount int64 `json:"total_count"`
	Limit      int   `json:"limit"`
	Offset     int   `json:"offset"`
}
