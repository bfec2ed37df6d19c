package main

import (
	"fmt"
	"strings"

	"github.com/xelth-com/shopvidgo/internal/analysis"
	"github.com/xelth-com/shopvidgo/internal/models"
	"github.com/xelth-com/shopvidgo/internal/selection"
)

func splitOffers(raw string) []string {
	var out []string
	for _, id := range strings.Split(raw, ",") {
		if id = strings.TrimSpace(id); id != "" {
			out = append(out, id)
		}
	}
	return out
}

// selectOffers selects the candidates owning the given offers, by hero or
// variant, and returns their hero offer ids
func selectOffers(sel *selection.Service, a *analysis.VideoAnalysis, offers []string) []string {
	var heroes []string
	for pi := range a.IdentifiedProducts {
		p := &a.IdentifiedProducts[pi]
		for ci := range p.Candidates {
			c := &p.Candidates[ci]
			for _, id := range offers {
				if !c.HasVariant(id) && c.OfferID != id {
					continue
				}
				if !sel.IsSelected(a.Video.UUID, c) {
					sel.Toggle(a.Video.UUID, p.UUID, c)
					heroes = append(heroes, c.OfferID)
				}
				break
			}
		}
	}
	return heroes
}

// parseDestinations reads customer/campaign/ad_group triples
func parseDestinations(raw string) ([]models.Destination, error) {
	var out []models.Destination
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		ids := strings.Split(part, "/")
		if len(ids) != 3 {
			return nil, fmt.Errorf("destination %q is not customer/campaign/ad_group", part)
		}
		out = append(out, models.Destination{CustomerID: ids[0], CampaignID: ids[1], AdGroupID: ids[2]})
	}
	return out, nil
}
