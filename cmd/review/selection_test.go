package main

import (
	"testing"

	"github.com/xelth-com/shopvidgo/internal/analysis"
	"github.com/xelth-com/shopvidgo/internal/matching"
	"github.com/xelth-com/shopvidgo/internal/models"
	"github.com/xelth-com/shopvidgo/internal/selection"
)

func TestParseDestinations(t *testing.T) {
	dests, err := parseDestinations("123-456-7890/22/33, 1/2/3")
	if err != nil {
		t.Fatalf("parseDestinations failed: %v", err)
	}
	if len(dests) != 2 || dests[0].CustomerID != "123-456-7890" || dests[1].AdGroupID != "3" {
		t.Errorf("Unexpected destinations %+v", dests)
	}

	if _, err := parseDestinations("1/2"); err == nil {
		t.Error("Expected malformed destination to be rejected")
	}
	if dests, _ := parseDestinations(""); len(dests) != 0 {
		t.Errorf("Expected no destinations, got %+v", dests)
	}
}

func TestSelectOffers_ResolvesVariantsToHeroes(t *testing.T) {
	a := &analysis.VideoAnalysis{
		Video: models.Video{UUID: "video-1"},
		IdentifiedProducts: []analysis.ProductAnalysis{{
			UUID: "product-1",
			Candidates: []matching.Candidate{
				{OfferID: "B", Variants: []matching.Variant{{OfferID: "B"}, {OfferID: "A"}}},
				{OfferID: "C", Variants: []matching.Variant{{OfferID: "C"}}},
			},
		}},
	}
	sel := selection.New(nil, "reviewer@example.com")

	heroes := selectOffers(sel, a, splitOffers("A, B ,Z"))
	if len(heroes) != 1 || heroes[0] != "B" {
		t.Fatalf("Expected A and B to select hero B once, got %v", heroes)
	}
	if sel.Len() != 1 {
		t.Errorf("Expected one selected candidate, got %d", sel.Len())
	}
}
