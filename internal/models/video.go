package models

import (
	"time"

	"gorm.io/datatypes"
)

// Video sources
const (
	VideoSourceManual    = "manual"
	VideoSourceGoogleAds = "google_ads"
)

// VideoMetadata is optional display information for a video
type VideoMetadata struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
}

// Video is an analyzed video ad. Immutable once analyzed.
type Video struct {
	UUID     string                            `gorm:"primaryKey;type:uuid" json:"uuid"`
	Source   string                            `gorm:"not null;index" json:"source"`
	VideoID  *string                           `gorm:"index" json:"video_id,omitempty"` // YouTube id for google_ads videos
	GCSURI   *string                           `json:"gcs_uri,omitempty"`
	MD5Hash  *string                           `json:"md5_hash,omitempty"`
	Metadata datatypes.JSONType[VideoMetadata] `gorm:"type:jsonb" json:"metadata"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

func (Video) TableName() string { return "video_analysis" }

// IdentifiedProduct is a product the video analysis found in a video
type IdentifiedProduct struct {
	UUID               string `gorm:"primaryKey;type:uuid" json:"product_uuid"`
	VideoAnalysisUUID  string `gorm:"type:uuid;not null;index" json:"video_analysis_uuid"`
	Title              string `json:"title"`
	Description        string `gorm:"type:text" json:"description"`
	RelevanceReasoning string `gorm:"type:text" json:"relevance_reasoning"`
	VideoTimestampMs   int64  `json:"video_timestamp"`

	Matches []RawMatch `gorm:"foreignKey:IdentifiedProductUUID;references:UUID" json:"-"`
}

func (IdentifiedProduct) TableName() string { return "identified_products" }

// RawMatch is one ranked catalog match for an identified product, as
// produced by the upstream vector search. Title, brand and availability are
// captured at match time and serve as fallback when the offer leaves the
// live catalog.
type RawMatch struct {
	ID                    uint64    `gorm:"primaryKey;autoIncrement" json:"-"`
	IdentifiedProductUUID string    `gorm:"type:uuid;not null;index" json:"identified_product_uuid"`
	OfferID               string    `gorm:"not null;index" json:"offer_id"`
	Title                 string    `json:"title"`
	Brand                 string    `json:"brand"`
	Link                  string    `json:"link"`
	ImageLink             *string   `json:"image_link,omitempty"`
	Availability          string    `json:"availability"`
	Distance              float64   `gorm:"not null" json:"distance"`
	Timestamp             time.Time `json:"timestamp"`
}

func (RawMatch) TableName() string { return "matched_products" }

// CatalogOffer is the live retailer catalog row for an offer
type CatalogOffer struct {
	OfferID      string    `gorm:"primaryKey" json:"offer_id"`
	Title        string    `json:"title"`
	Brand        string    `json:"brand"`
	Link         string    `json:"link"`
	ImageLink    *string   `json:"image_link,omitempty"`
	Availability string    `json:"availability"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (CatalogOffer) TableName() string { return "latest_products" }
