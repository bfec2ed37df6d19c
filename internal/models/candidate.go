package models

import (
	"strings"
	"time"
)

// Status is the review state of a candidate
type Status string

const (
	StatusUnreviewed  Status = "UNREVIEWED"
	StatusApproved    Status = "APPROVED"
	StatusDisapproved Status = "DISAPPROVED"
	StatusPending     Status = "PENDING"
	StatusCompleted   Status = "COMPLETED"
	StatusFailed      Status = "FAILED"
)

// Valid reports whether s is a known status
func (s Status) Valid() bool {
	switch s {
	case StatusUnreviewed, StatusApproved, StatusDisapproved,
		StatusPending, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// Destination is a Google Ads ad group a submission targets
type Destination struct {
	AdGroupID   string `json:"ad_group_id"`
	CampaignID  string `json:"campaign_id"`
	CustomerID  string `json:"customer_id"`
	AdGroupName string `json:"ad_group_name,omitempty"`
}

// SubmissionMetadata describes one submission action. OfferIDs is the
// sorted, deduplicated, comma separated list of hero offer ids.
type SubmissionMetadata struct {
	RequestUUID    string        `json:"request_uuid,omitempty"`
	VideoUUID      string        `json:"video_uuid"`
	OfferIDs       string        `json:"offer_ids"`
	Destinations   []Destination `json:"destinations"`
	SubmittingUser string        `json:"submitting_user,omitempty"`
	CPC            *float64      `json:"cpc,omitempty"`
}

// OfferIDList splits OfferIDs back into its elements
func (m SubmissionMetadata) OfferIDList() []string {
	var ids []string
	for _, id := range strings.Split(m.OfferIDs, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// CandidateStatus is one append-only status record for a
// (video, identified product, hero offer) key. The current status of a key
// is its most recent record; records are never updated or deleted.
type CandidateStatus struct {
	ID                    uint64              `gorm:"primaryKey;autoIncrement" json:"-"`
	VideoAnalysisUUID     string              `gorm:"type:uuid;not null;index:idx_candidate_key,priority:1" json:"video_analysis_uuid"`
	IdentifiedProductUUID string              `gorm:"type:uuid;not null;index:idx_candidate_key,priority:2" json:"identified_product_uuid"`
	CandidateOfferID      string              `gorm:"not null;index:idx_candidate_key,priority:3" json:"candidate_offer_id"`
	GroupKey              string              `gorm:"index" json:"group_key,omitempty"`
	Status                Status              `gorm:"type:varchar(16);not null;index" json:"status"`
	User                  string              `json:"user,omitempty"`
	IsAddedByUser         bool                `json:"is_added_by_user"`
	SubmissionMetadata    *SubmissionMetadata `gorm:"serializer:json;type:jsonb" json:"submission_metadata,omitempty"`
	ModifiedAt            time.Time           `gorm:"not null;index" json:"modified_timestamp"`
}

func (CandidateStatus) TableName() string { return "candidate_status" }

// StatusBody is the candidate_status object on the wire
type StatusBody struct {
	Status             Status              `json:"status"`
	User               string              `json:"user,omitempty"`
	IsAddedByUser      bool                `json:"is_added_by_user"`
	ModifiedTimestamp  *time.Time          `json:"modified_timestamp,omitempty"`
	SubmissionMetadata *SubmissionMetadata `json:"submission_metadata,omitempty"`
}

// CandidateUpdate is one element of a POST /candidates/update batch
type CandidateUpdate struct {
	VideoAnalysisUUID     string     `json:"video_analysis_uuid"`
	IdentifiedProductUUID string     `json:"identified_product_uuid"`
	CandidateOfferID      string     `json:"candidate_offer_id"`
	CandidateStatus       StatusBody `json:"candidate_status"`
}

// Body converts a stored record into its wire representation
func (c CandidateStatus) Body() StatusBody {
	modified := c.ModifiedAt
	return StatusBody{
		Status:             c.Status,
		User:               c.User,
		IsAddedByUser:      c.IsAddedByUser,
		ModifiedTimestamp:  &modified,
		SubmissionMetadata: c.SubmissionMetadata,
	}
}
