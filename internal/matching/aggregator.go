// Package matching turns the ranked catalog matches of an identified product
// into reviewable candidates: offers sharing a product image are folded into
// one candidate represented by its closest match (the hero).
package matching

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"

	"github.com/xelth-com/shopvidgo/internal/models"
)

// Variant is a group member reduced to what a reviewer needs to tell it apart
type Variant struct {
	OfferID string `json:"offer_id"`
	Title   string `json:"title"`
	Brand   string `json:"brand"`
}

// Candidate is one reviewable unit: a hero offer plus every offer sharing its image
type Candidate struct {
	OfferID         string             `json:"offer_id"`
	Title           string             `json:"title"`
	Brand           string             `json:"brand"`
	Link            string             `json:"link"`
	ImageLink       *string            `json:"image_link,omitempty"`
	Availability    string             `json:"availability"`
	Distance        float64            `json:"distance"`
	InCatalog       bool               `json:"in_catalog"`
	GroupKey        string             `json:"group_key"`
	Variants        []Variant          `json:"variants"`
	CandidateStatus *models.StatusBody `json:"candidate_status,omitempty"`
}

// HasVariant reports whether offerID belongs to the candidate's group
func (c Candidate) HasVariant(offerID string) bool {
	for _, v := range c.Variants {
		if v.OfferID == offerID {
			return true
		}
	}
	return false
}

// CatalogLookup returns the live catalog row for an offer, or nil when the
// offer is no longer in the catalog.
type CatalogLookup func(offerID string) *models.CatalogOffer

// MapLookup adapts a map of live offers to a CatalogLookup
func MapLookup(offers map[string]models.CatalogOffer) CatalogLookup {
	return func(offerID string) *models.CatalogOffer {
		if o, ok := offers[offerID]; ok {
			return &o
		}
		return nil
	}
}

// member is a raw match with its catalog attributes resolved
type member struct {
	offerID      string
	title        string
	brand        string
	link         string
	imageLink    *string
	availability string
	distance     float64
	inCatalog    bool
}

func resolve(m models.RawMatch, lookup CatalogLookup) member {
	r := member{
		offerID:      m.OfferID,
		title:        m.Title,
		brand:        m.Brand,
		link:         m.Link,
		imageLink:    m.ImageLink,
		availability: m.Availability,
		distance:     m.Distance,
	}
	if lookup == nil {
		return r
	}
	live := lookup(m.OfferID)
	if live == nil {
		// Offer left the catalog: keep what was captured at match time.
		return r
	}
	r.inCatalog = true
	if live.Title != "" {
		r.title = live.Title
	}
	if live.Brand != "" {
		r.brand = live.Brand
	}
	if live.Link != "" {
		r.link = live.Link
	}
	if live.ImageLink != nil && *live.ImageLink != "" {
		r.imageLink = live.ImageLink
	}
	if live.Availability != "" {
		r.availability = live.Availability
	}
	return r
}

func closer(a, b member) bool {
	if a.distance != b.distance {
		return a.distance < b.distance
	}
	return a.offerID < b.offerID
}

// GroupKey identifies the image group an offer falls into. It depends only
// on the image link, so it survives a change of hero within the group.
// Offers without an image form their own singleton group.
func GroupKey(offerID string, imageLink *string) string {
	if imageLink == nil || strings.TrimSpace(*imageLink) == "" {
		return "offer-" + offerID
	}
	sum := sha256.Sum256([]byte(*imageLink))
	return "img-" + hex.EncodeToString(sum[:8])
}

// Aggregate groups the matches of one identified product by image link and
// returns one candidate per group ordered by hero distance. Duplicate offer
// ids keep their first occurrence. The result is a pure function of its
// input; nothing here is persisted.
func Aggregate(matches []models.RawMatch, lookup CatalogLookup) []Candidate {
	seen := make(map[string]bool, len(matches))
	groups := make(map[string][]member)
	var order []string

	for _, m := range matches {
		if m.OfferID == "" || seen[m.OfferID] {
			continue
		}
		seen[m.OfferID] = true

		r := resolve(m, lookup)
		key := GroupKey(r.offerID, r.imageLink)
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], r)
	}

	candidates := make([]Candidate, 0, len(order))
	for _, key := range order {
		members := groups[key]
		sort.SliceStable(members, func(i, j int) bool { return closer(members[i], members[j]) })

		hero := members[0]
		c := Candidate{
			OfferID:      hero.offerID,
			Title:        hero.title,
			Brand:        hero.brand,
			Link:         hero.link,
			ImageLink:    hero.imageLink,
			Availability: hero.availability,
			Distance:     hero.distance,
			InCatalog:    hero.inCatalog,
			GroupKey:     key,
			Variants:     make([]Variant, 0, len(members)),
		}
		for _, m := range members {
			c.Variants = append(c.Variants, Variant{OfferID: m.offerID, Title: m.title, Brand: m.brand})
		}
		candidates = append(candidates, c)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Distance != candidates[j].Distance {
			return candidates[i].Distance < candidates[j].Distance
		}
		return candidates[i].OfferID < candidates[j].OfferID
	})
	return candidates
}

// FindByOffer returns the candidate whose group contains offerID
func FindByOffer(candidates []Candidate, offerID string) (*Candidate, bool) {
	for i := range candidates {
		if candidates[i].HasVariant(offerID) {
			return &candidates[i], true
		}
	}
	return nil, false
}
