// Package googleads adds retailer offers to Shopping listing groups through
// the Google Ads REST interface.
package googleads

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/xelth-com/shopvidgo/internal/ads"
	"github.com/xelth-com/shopvidgo/internal/models"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// Code identifies the provider in the ads registry
const Code = "google_ads"

const (
	defaultBaseURL    = "https://googleads.googleapis.com"
	defaultAPIVersion = "v17"
	adwordsScope      = "https://www.googleapis.com/auth/adwords"

	// temporary id of a root subdivision created in the same mutate
	tempRootID = -1
)

// Config holds configuration for the Google Ads provider
type Config struct {
	DeveloperToken  string
	ClientID        string
	ClientSecret    string
	RefreshToken    string
	LoginCustomerID string // manager account, digits only
	APIVersion      string // defaults to v17
	BaseURL         string // defaults to https://googleads.googleapis.com
	Timeout         time.Duration
}

// Provider implements ads.ProviderInterface for Google Ads
type Provider struct {
	config     Config
	httpClient *http.Client
}

// NewProvider creates a Google Ads provider authenticated with an OAuth
// refresh token
func NewProvider(ctx context.Context, config Config) (*Provider, error) {
	if config.DeveloperToken == "" {
		return nil, fmt.Errorf("developer token is required")
	}
	if config.ClientID == "" || config.ClientSecret == "" {
		return nil, fmt.Errorf("oauth client id and secret are required")
	}
	if config.RefreshToken == "" {
		return nil, fmt.Errorf("refresh token is required")
	}

	oauthConfig := &oauth2.Config{
		ClientID:     config.ClientID,
		ClientSecret: config.ClientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{adwordsScope},
	}
	client := oauthConfig.Client(ctx, &oauth2.Token{RefreshToken: config.RefreshToken})

	return newProvider(config, client), nil
}

// newProvider wires an already authenticated HTTP client
func newProvider(config Config, client *http.Client) *Provider {
	if config.APIVersion == "" {
		config.APIVersion = defaultAPIVersion
	}
	if config.BaseURL == "" {
		config.BaseURL = defaultBaseURL
	}
	if config.Timeout == 0 {
		config.Timeout = 60 * time.Second
	}
	client.Timeout = config.Timeout
	return &Provider{config: config, httpClient: client}
}

// Code returns the provider code
func (p *Provider) Code() string {
	return Code
}

// Name returns the provider name
func (p *Provider) Name() string {
	return "Google Ads"
}

// --- wire types ---

type searchRequest struct {
	Query     string `json:"query"`
	PageToken string `json:"pageToken,omitempty"`
}

type searchResponse struct {
	Results       []searchRow `json:"results"`
	NextPageToken string      `json:"nextPageToken"`
}

type searchRow struct {
	Customer         *customer         `json:"customer,omitempty"`
	Campaign         *campaign         `json:"campaign,omitempty"`
	AdGroup          *adGroup          `json:"adGroup,omitempty"`
	AdGroupCriterion *adGroupCriterion `json:"adGroupCriterion,omitempty"`
}

type customer struct {
	ID string `json:"id"`
}

type campaign struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type adGroup struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type adGroupCriterion struct {
	ResourceName string        `json:"resourceName,omitempty"`
	AdGroup      string        `json:"adGroup,omitempty"`
	Status       string        `json:"status,omitempty"`
	CPCBidMicros string        `json:"cpcBidMicros,omitempty"`
	ListingGroup *listingGroup `json:"listingGroup,omitempty"`
}

type listingGroup struct {
	Type                   string     `json:"type,omitempty"`
	ParentAdGroupCriterion string     `json:"parentAdGroupCriterion,omitempty"`
	CaseValue              *caseValue `json:"caseValue,omitempty"`
}

type caseValue struct {
	ProductItemID *productItemID `json:"productItemId,omitempty"`
}

type productItemID struct {
	Value string `json:"value,omitempty"`
}

type criterionOperation struct {
	Create *adGroupCriterion `json:"create,omitempty"`
	Remove string            `json:"remove,omitempty"`
}

type mutateRequest struct {
	Operations []criterionOperation `json:"operations"`
}

type mutateResponse struct {
	Results []struct {
		ResourceName string `json:"resourceName"`
	} `json:"results"`
}

type apiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// --- transport ---

func (p *Provider) post(ctx context.Context, customerID, method string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	url := fmt.Sprintf("%s/%s/customers/%s/%s", p.config.BaseURL, p.config.APIVersion, customerID, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("developer-token", p.config.DeveloperToken)
	if p.config.LoginCustomerID != "" {
		req.Header.Set("login-customer-id", p.config.LoginCustomerID)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("google ads request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read google ads response: %w", err)
	}

	if resp.StatusCode >= 300 {
		var apiErr apiError
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error.Message != "" {
			return fmt.Errorf("google ads %s failed (%s): %s", method, apiErr.Error.Status, apiErr.Error.Message)
		}
		return fmt.Errorf("google ads %s failed with HTTP %d: %s", method, resp.StatusCode, string(data))
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode google ads response: %w", err)
	}
	return nil
}

// search runs a GAQL query and follows page tokens
func (p *Provider) search(ctx context.Context, customerID, query string) ([]searchRow, error) {
	var rows []searchRow
	req := searchRequest{Query: query}
	for {
		var resp searchResponse
		if err := p.post(ctx, customerID, "googleAds:search", req, &resp); err != nil {
			return nil, err
		}
		rows = append(rows, resp.Results...)
		if resp.NextPageToken == "" {
			return rows, nil
		}
		req.PageToken = resp.NextPageToken
	}
}

// --- listing groups ---

func adGroupPath(customerID, adGroupID int64) string {
	return fmt.Sprintf("customers/%d/adGroups/%d", customerID, adGroupID)
}

func criterionPath(customerID, adGroupID, criterionID int64) string {
	return fmt.Sprintf("customers/%d/adGroupCriteria/%d~%d", customerID, adGroupID, criterionID)
}

// listingGroupRoot returns the resource name and type of the root listing
// group of an ad group, or empty strings when none exists
func (p *Provider) listingGroupRoot(ctx context.Context, target ads.Target) (string, string, error) {
	query := fmt.Sprintf(`SELECT ad_group_criterion.resource_name, ad_group_criterion.listing_group.type
FROM ad_group_criterion
WHERE ad_group.id = %d
  AND ad_group_criterion.type = 'LISTING_GROUP'
  AND ad_group_criterion.listing_group.parent_ad_group_criterion IS NULL`, target.AdGroupID)

	rows, err := p.search(ctx, strconv.FormatInt(target.CustomerID, 10), query)
	if err != nil {
		return "", "", err
	}
	for _, row := range rows {
		if c := row.AdGroupCriterion; c != nil && c.ListingGroup != nil {
			return c.ResourceName, c.ListingGroup.Type, nil
		}
	}
	return "", "", nil
}

// existingOffers returns the offer ids already placed under parent
func (p *Provider) existingOffers(ctx context.Context, target ads.Target, parent string) (map[string]bool, error) {
	query := fmt.Sprintf(`SELECT ad_group_criterion.listing_group.case_value.product_item_id.value
FROM ad_group_criterion
WHERE ad_group.id = %d
  AND ad_group_criterion.type = 'LISTING_GROUP'
  AND ad_group_criterion.listing_group.parent_ad_group_criterion = '%s'`, target.AdGroupID, parent)

	rows, err := p.search(ctx, strconv.FormatInt(target.CustomerID, 10), query)
	if err != nil {
		return nil, err
	}

	existing := make(map[string]bool)
	for _, row := range rows {
		c := row.AdGroupCriterion
		if c == nil || c.ListingGroup == nil || c.ListingGroup.CaseValue == nil || c.ListingGroup.CaseValue.ProductItemID == nil {
			continue
		}
		if v := c.ListingGroup.CaseValue.ProductItemID.Value; v != "" {
			existing[v] = true
		}
	}
	return existing, nil
}

// rootOperations replaces a missing or UNIT root with a SUBDIVISION root
// plus the mandatory "everything else" unit. It returns the root to attach
// offers to and whether it was created in this mutate.
func rootOperations(target ads.Target, rootName, rootType string, cpcBidMicros int64) (string, []criterionOperation, bool) {
	if rootName != "" && rootType != "UNIT" {
		return rootName, nil, false
	}

	var ops []criterionOperation
	if rootName != "" {
		ops = append(ops, criterionOperation{Remove: rootName})
	}

	root := criterionPath(target.CustomerID, target.AdGroupID, tempRootID)
	group := adGroupPath(target.CustomerID, target.AdGroupID)

	ops = append(ops,
		criterionOperation{Create: &adGroupCriterion{
			ResourceName: root,
			AdGroup:      group,
			Status:       "ENABLED",
			ListingGroup: &listingGroup{Type: "SUBDIVISION"},
		}},
		criterionOperation{Create: &adGroupCriterion{
			AdGroup:      group,
			Status:       "ENABLED",
			CPCBidMicros: strconv.FormatInt(cpcBidMicros, 10),
			ListingGroup: &listingGroup{
				Type:                   "UNIT",
				ParentAdGroupCriterion: root,
				CaseValue:              &caseValue{ProductItemID: &productItemID{}},
			},
		}},
	)
	return root, ops, true
}

func offerOperation(target ads.Target, root, offerID string, cpcBidMicros int64) criterionOperation {
	return criterionOperation{Create: &adGroupCriterion{
		AdGroup:      adGroupPath(target.CustomerID, target.AdGroupID),
		Status:       "ENABLED",
		CPCBidMicros: strconv.FormatInt(cpcBidMicros, 10),
		ListingGroup: &listingGroup{
			Type:                   "UNIT",
			ParentAdGroupCriterion: root,
			CaseValue:              &caseValue{ProductItemID: &productItemID{Value: offerID}},
		},
	}}
}

// AddOffers adds the offers as product units under the root listing group
// of the ad group. The mutate is atomic, so a failure marks every offer
// that was to be added as FAILED.
func (p *Provider) AddOffers(ctx context.Context, target ads.Target, offerIDs []string, cpcBidMicros int64) ([]models.ProductInsertionStatus, error) {
	rootName, rootType, err := p.listingGroupRoot(ctx, target)
	if err != nil {
		return nil, fmt.Errorf("failed to read listing group root: %w", err)
	}

	root, ops, created := rootOperations(target, rootName, rootType, cpcBidMicros)

	existing := map[string]bool{}
	if !created {
		if existing, err = p.existingOffers(ctx, target, root); err != nil {
			return nil, fmt.Errorf("failed to read existing offers: %w", err)
		}
		log.Printf("🔎 [google_ads] %d offers already in ad group %d", len(existing), target.AdGroupID)
	}

	seen := make(map[string]bool, len(offerIDs))
	var statuses []models.ProductInsertionStatus
	var added []int
	for _, id := range offerIDs {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true

		if existing[id] {
			statuses = append(statuses, models.ProductInsertionStatus{OfferID: id, Status: models.ProductAlreadyPresent})
			continue
		}
		ops = append(ops, offerOperation(target, root, id, cpcBidMicros))
		added = append(added, len(statuses))
		statuses = append(statuses, models.ProductInsertionStatus{OfferID: id, Status: models.ProductAdded})
	}

	if len(ops) == 0 {
		log.Printf("ℹ️  [google_ads] nothing to add to ad group %d", target.AdGroupID)
		return statuses, nil
	}

	var resp mutateResponse
	err = p.post(ctx, strconv.FormatInt(target.CustomerID, 10), "adGroupCriteria:mutate", mutateRequest{Operations: ops}, &resp)
	if err != nil {
		log.Printf("❌ [google_ads] mutate for ad group %d failed: %v", target.AdGroupID, err)
		for _, i := range added {
			statuses[i].Status = models.ProductFailed
		}
		return statuses, err
	}

	log.Printf("✅ [google_ads] mutated %d criteria in ad group %d", len(resp.Results), target.AdGroupID)
	return statuses, nil
}

// AdGroupsForVideo lists the non-removed ad groups serving the video under
// the login customer
func (p *Provider) AdGroupsForVideo(ctx context.Context, youtubeVideoID string) ([]ads.AdGroup, error) {
	if p.config.LoginCustomerID == "" {
		return nil, fmt.Errorf("login customer id is not configured")
	}

	query := fmt.Sprintf(`SELECT customer.id, campaign.id, campaign.name, ad_group.id, ad_group.name
FROM video
WHERE video.id = '%s'
  AND campaign.status != 'REMOVED'
  AND ad_group.status != 'REMOVED'`, strings.ReplaceAll(youtubeVideoID, "'", ""))

	rows, err := p.search(ctx, p.config.LoginCustomerID, query)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var groups []ads.AdGroup
	for _, row := range rows {
		if row.AdGroup == nil || row.Campaign == nil || seen[row.AdGroup.ID] {
			continue
		}
		seen[row.AdGroup.ID] = true

		customerID := p.config.LoginCustomerID
		if row.Customer != nil && row.Customer.ID != "" {
			customerID = row.Customer.ID
		}
		groups = append(groups, ads.AdGroup{
			CustomerID:   customerID,
			CampaignID:   row.Campaign.ID,
			CampaignName: row.Campaign.Name,
			AdGroupID:    row.AdGroup.ID,
			AdGroupName:  row.AdGroup.Name,
		})
	}
	return groups, nil
}
