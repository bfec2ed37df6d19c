package submission

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/xelth-com/shopvidgo/internal/ads"
	"github.com/xelth-com/shopvidgo/internal/models"
)

// WorkerUser is recorded on the candidate statuses the worker writes back
const WorkerUser = "insertion-worker"

// WorkerConfig holds dispatch settings
type WorkerConfig struct {
	Interval         time.Duration
	DefaultCPCMicros int64
	BatchSize        int
}

// Worker dispatches queued insertion requests to an advertising provider
type Worker struct {
	store    Store
	provider ads.ProviderInterface
	statuses StatusTransitioner
	cfg      WorkerConfig

	trigger chan struct{}
	stop    chan struct{}
	done    chan struct{}
	now     func() time.Time
}

// NewWorker creates a dispatch worker. statuses may be nil.
func NewWorker(store Store, provider ads.ProviderInterface, statuses StatusTransitioner, cfg WorkerConfig) *Worker {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if cfg.DefaultCPCMicros <= 0 {
		cfg.DefaultCPCMicros = 10000
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	return &Worker{
		store:    store,
		provider: provider,
		statuses: statuses,
		cfg:      cfg,
		trigger:  make(chan struct{}, 1),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Start begins the background dispatch loop
func (w *Worker) Start() {
	go func() {
		defer close(w.done)
		log.Printf("📡 Insertion worker started (provider: %s, every %s)", w.provider.Code(), w.cfg.Interval)

		ticker := time.NewTicker(w.cfg.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				w.runOnce()
			case <-w.trigger:
				w.runOnce()
			case <-w.stop:
				log.Println("🛑 Insertion worker stopped")
				return
			}
		}
	}()
}

// Stop halts the loop and waits for the current run to finish
func (w *Worker) Stop() {
	close(w.stop)
	<-w.done
}

// Trigger asks for a run without waiting for the next tick
func (w *Worker) Trigger() {
	select {
	case w.trigger <- struct{}{}:
	default:
	}
}

func (w *Worker) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	n, err := w.ProcessPending(ctx)
	if err != nil {
		log.Printf("❌ Insertion worker: %v", err)
		return
	}
	if n > 0 {
		log.Printf("✅ Insertion worker: processed %d requests", n)
	}
}

// ProcessPending dispatches every unprocessed request and returns how many
// were handled
func (w *Worker) ProcessPending(ctx context.Context) (int, error) {
	requests, err := w.store.PendingRequests(ctx, w.cfg.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to load pending requests: %w", err)
	}

	processed := 0
	for _, req := range requests {
		if _, err := w.Process(ctx, req); err != nil {
			log.Printf("❌ Insertion request %s: %v", req.RequestUUID, err)
			continue
		}
		processed++
	}
	return processed, nil
}

// Process dispatches one request to each of its destinations, records the
// outcome and writes COMPLETED or FAILED back to the submitted candidates
func (w *Worker) Process(ctx context.Context, req models.InsertionRequest) (*models.AdGroupInsertionStatus, error) {
	log.Printf("📤 Dispatching request %s: %d offers to %d ad groups",
		req.RequestUUID, len(req.OfferIDs), len(req.Destinations))

	cpc := req.CPCBidMicros(w.cfg.DefaultCPCMicros)
	entities := make([]models.AdsEntityStatus, 0, len(req.Destinations))
	for _, dest := range req.Destinations {
		entities = append(entities, w.dispatch(ctx, dest, req.OfferIDs, cpc))
	}

	status := &models.AdGroupInsertionStatus{
		RequestUUID:       req.RequestUUID,
		VideoAnalysisUUID: req.VideoUUID,
		Status:            OverallStatus(entities),
		AdsEntities:       entities,
		Timestamp:         w.now(),
	}
	if err := w.store.RecordStatus(ctx, status); err != nil {
		return nil, fmt.Errorf("failed to record insertion status: %w", err)
	}

	w.writeBack(ctx, req, entities)

	if err := w.store.MarkProcessed(ctx, req.RequestUUID, w.now()); err != nil {
		return status, fmt.Errorf("failed to mark request processed: %w", err)
	}

	log.Printf("🏁 Request %s finished with %s", req.RequestUUID, status.Status)
	return status, nil
}

func (w *Worker) dispatch(ctx context.Context, dest models.Destination, offerIDs []string, cpc int64) models.AdsEntityStatus {
	entity := models.AdsEntityStatus{}

	target, err := parseTarget(dest)
	entity.CustomerID, entity.CampaignID, entity.AdGroupID = target.CustomerID, target.CampaignID, target.AdGroupID
	if err != nil {
		msg := err.Error()
		entity.ErrorMessage = &msg
		return entity
	}

	products, err := w.provider.AddOffers(ctx, target, offerIDs, cpc)
	entity.Products = products
	if err != nil {
		msg := err.Error()
		entity.ErrorMessage = &msg
	}
	return entity
}

func parseTarget(dest models.Destination) (ads.Target, error) {
	var t ads.Target
	var err error
	if t.CustomerID, err = strconv.ParseInt(dest.CustomerID, 10, 64); err != nil {
		return t, fmt.Errorf("invalid customer_id %q", dest.CustomerID)
	}
	if t.CampaignID, err = strconv.ParseInt(dest.CampaignID, 10, 64); err != nil {
		// the campaign is informational; unknown campaigns are reported as -1
		t.CampaignID = -1
	}
	if t.AdGroupID, err = strconv.ParseInt(dest.AdGroupID, 10, 64); err != nil {
		return t, fmt.Errorf("invalid ad_group_id %q", dest.AdGroupID)
	}
	return t, nil
}

// OverallStatus folds per product outcomes into SUCCESS, PARTIAL_SUCCESS
// or FAILED. An entity that failed without reporting products counts as
// one failure.
func OverallStatus(entities []models.AdsEntityStatus) string {
	var ok, failed bool
	for _, e := range entities {
		if e.ErrorMessage != nil && len(e.Products) == 0 {
			failed = true
		}
		for _, p := range e.Products {
			if p.Status == models.ProductFailed {
				failed = true
			} else {
				ok = true
			}
		}
	}

	switch {
	case ok && failed:
		return models.InsertionPartialSuccess
	case failed:
		return models.InsertionFailed
	default:
		return models.InsertionSuccess
	}
}

// failedOffers returns the offers that did not reach every destination
func failedOffers(offerIDs []string, entities []models.AdsEntityStatus) map[string]bool {
	failed := make(map[string]bool)
	for _, e := range entities {
		if e.ErrorMessage != nil && len(e.Products) == 0 {
			for _, id := range offerIDs {
				failed[id] = true
			}
			continue
		}
		for _, p := range e.Products {
			if p.Status == models.ProductFailed {
				failed[p.OfferID] = true
			}
		}
	}
	return failed
}

func (w *Worker) writeBack(ctx context.Context, req models.InsertionRequest, entities []models.AdsEntityStatus) {
	if w.statuses == nil {
		return
	}

	failed := failedOffers(req.OfferIDs, entities)
	var completed, failing []string
	for _, id := range req.OfferIDs {
		if failed[id] {
			failing = append(failing, id)
		} else {
			completed = append(completed, id)
		}
	}

	meta := &models.SubmissionMetadata{
		RequestUUID:    req.RequestUUID,
		VideoUUID:      req.VideoUUID,
		OfferIDs:       strings.Join(normalizeOffers(req.OfferIDs), ","),
		Destinations:   req.Destinations,
		SubmittingUser: req.SubmittingUser,
		CPC:            req.CPC,
	}

	for status, ids := range map[models.Status][]string{
		models.StatusCompleted: completed,
		models.StatusFailed:    failing,
	} {
		if len(ids) == 0 {
			continue
		}
		if _, err := w.statuses.TransitionOffers(ctx, req.VideoUUID, ids, status, WorkerUser, meta); err != nil {
			log.Printf("⚠️  Failed to write %s back for request %s: %v", status, req.RequestUUID, err)
		}
	}
}
