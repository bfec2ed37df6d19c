// Package submission validates approved candidate batches, queues them for
// the advertising platform and tracks per ad group insertion outcomes.
package submission

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/xelth-com/shopvidgo/internal/models"
)

var (
	ErrNoOffers       = errors.New("submission has no offer ids")
	ErrNoDestinations = errors.New("submission has no destinations")
	ErrNoVideo        = errors.New("submission has no video")

	ErrInvalidSubmission = errors.New("invalid submission")
)

// Request is an operator approved batch. OfferIDs are hero offer ids only;
// variants are never submitted.
type Request struct {
	VideoUUID      string
	OfferIDs       []string
	Destinations   []models.Destination
	SubmittingUser string
	CPC            *float64
}

// Build validates a request and turns it into SubmissionMetadata. Offer ids
// are trimmed, deduplicated and sorted so that retried submissions of the
// same approved set produce identical bodies.
func Build(req Request) (*models.SubmissionMetadata, error) {
	if req.VideoUUID == "" {
		return nil, ErrNoVideo
	}

	offers := normalizeOffers(req.OfferIDs)
	if len(offers) == 0 {
		return nil, ErrNoOffers
	}

	dests, err := normalizeDestinations(req.Destinations)
	if err != nil {
		return nil, err
	}

	if req.CPC != nil && *req.CPC <= 0 {
		return nil, fmt.Errorf("%w: cpc must be positive, got %v", ErrInvalidSubmission, *req.CPC)
	}

	return &models.SubmissionMetadata{
		VideoUUID:      req.VideoUUID,
		OfferIDs:       strings.Join(offers, ","),
		Destinations:   dests,
		SubmittingUser: req.SubmittingUser,
		CPC:            req.CPC,
	}, nil
}

// Normalize re-validates metadata received over the wire
func Normalize(meta models.SubmissionMetadata) (*models.SubmissionMetadata, error) {
	out, err := Build(Request{
		VideoUUID:      meta.VideoUUID,
		OfferIDs:       meta.OfferIDList(),
		Destinations:   meta.Destinations,
		SubmittingUser: meta.SubmittingUser,
		CPC:            meta.CPC,
	})
	if err != nil {
		return nil, err
	}
	out.RequestUUID = meta.RequestUUID
	return out, nil
}

func normalizeOffers(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func normalizeDestinations(dests []models.Destination) ([]models.Destination, error) {
	if len(dests) == 0 {
		return nil, ErrNoDestinations
	}

	seen := make(map[string]bool, len(dests))
	out := make([]models.Destination, 0, len(dests))
	for i, d := range dests {
		if d.AdGroupID == "" || d.CampaignID == "" || d.CustomerID == "" {
			return nil, fmt.Errorf("%w: destination %d needs ad_group_id, campaign_id and customer_id", ErrInvalidSubmission, i)
		}
		d.CustomerID = strings.ReplaceAll(d.CustomerID, "-", "")
		key := d.CustomerID + "/" + d.AdGroupID
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, d)
	}
	return out, nil
}
