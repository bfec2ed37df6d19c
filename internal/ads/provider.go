package ads

import (
	"context"

	"github.com/xelth-com/shopvidgo/internal/models"
)

// Target is the ad group an insertion writes to
type Target struct {
	CustomerID int64
	CampaignID int64
	AdGroupID  int64
}

// AdGroup is an ad group serving a video, as offered to the reviewer for
// choosing submission destinations.
type AdGroup struct {
	CustomerID   string `json:"customer_id"`
	CampaignID   string `json:"campaign_id"`
	CampaignName string `json:"campaign_name,omitempty"`
	AdGroupID    string `json:"ad_group_id"`
	AdGroupName  string `json:"ad_group_name"`
}

// ProviderInterface defines the contract for advertising platforms that
// accept product offers into an ad group
type ProviderInterface interface {
	// Code returns the unique code for this provider (e.g., "google_ads")
	Code() string

	// Name returns the human-readable name of the provider
	Name() string

	// AddOffers adds offerIDs as product units of the target ad group.
	// Offers already present are reported as ALREADY_PRESENT. A returned
	// error means nothing is known about the individual offers.
	AddOffers(ctx context.Context, target Target, offerIDs []string, cpcBidMicros int64) ([]models.ProductInsertionStatus, error)

	// AdGroupsForVideo lists the ad groups whose ads serve the YouTube video
	AdGroupsForVideo(ctx context.Context, youtubeVideoID string) ([]AdGroup, error)
}
