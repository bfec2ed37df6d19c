package ads

import (
	"context"
	"log"

	"github.com/xelth-com/shopvidgo/internal/models"
)

// LogCode is the code of the provider used when no ads credentials are set
const LogCode = "log"

// LogProvider accepts every offer and only logs it. It stands in for a real
// platform in development setups.
type LogProvider struct{}

func (LogProvider) Code() string { return LogCode }

func (LogProvider) Name() string { return "Log only" }

func (LogProvider) AddOffers(_ context.Context, target Target, offerIDs []string, cpcBidMicros int64) ([]models.ProductInsertionStatus, error) {
	log.Printf("📝 [ads:log] ad group %d (customer %d): %d offers at %d micros",
		target.AdGroupID, target.CustomerID, len(offerIDs), cpcBidMicros)

	out := make([]models.ProductInsertionStatus, 0, len(offerIDs))
	for _, id := range offerIDs {
		out = append(out, models.ProductInsertionStatus{OfferID: id, Status: models.ProductAdded})
	}
	return out, nil
}

func (LogProvider) AdGroupsForVideo(context.Context, string) ([]AdGroup, error) {
	return nil, nil
}
