package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/xelth-com/shopvidgo/internal/ads"
	"github.com/xelth-com/shopvidgo/internal/analysis"
	"github.com/xelth-com/shopvidgo/internal/models"
)

// listSummaries returns per video review counts
func (r *Router) listSummaries(w http.ResponseWriter, req *http.Request) {
	limit, offset, err := pagination(req)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	page, err := r.svc.Analysis.Summaries(req.Context(), limit, offset)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, page)
}

// getVideoAnalysis returns a video with aggregated candidates
func (r *Router) getVideoAnalysis(w http.ResponseWriter, req *http.Request) {
	a, err := r.svc.Analysis.GetVideoAnalysis(req.Context(), mux.Vars(req)["uuid"])
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, a)
}

// listAdGroups returns the ad groups serving the video, candidates for
// submission destinations
func (r *Router) listAdGroups(w http.ResponseWriter, req *http.Request) {
	video, err := r.svc.Analysis.GetVideo(req.Context(), mux.Vars(req)["uuid"])
	if err != nil {
		respondServiceError(w, err)
		return
	}

	groups := []ads.AdGroup{}
	if video.VideoID != nil && *video.VideoID != "" && r.svc.Ads != nil {
		found, err := r.svc.Ads.AdGroupsForVideo(req.Context(), *video.VideoID)
		if err != nil {
			respondError(w, http.StatusBadGateway, "Failed to look up ad groups: "+err.Error())
			return
		}
		groups = append(groups, found...)
	}
	respondJSON(w, http.StatusOK, groups)
}

// videoInsertions returns the insertion outcomes of every request for a video
func (r *Router) videoInsertions(w http.ResponseWriter, req *http.Request) {
	statuses, err := r.svc.Queue.InsertionStatusesForVideo(req.Context(), mux.Vars(req)["uuid"])
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if statuses == nil {
		statuses = []models.AdGroupInsertionStatus{}
	}
	respondJSON(w, http.StatusOK, statuses)
}

// ingestAnalysis stores a new analysis delivered by the video analysis step
func (r *Router) ingestAnalysis(w http.ResponseWriter, req *http.Request) {
	var body analysis.IngestRequest
	if err := decodeJSON(req, &body); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	video, err := r.svc.Analysis.Ingest(req.Context(), body)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, video)
}

// upsertOffers refreshes live catalog rows
func (r *Router) upsertOffers(w http.ResponseWriter, req *http.Request) {
	var offers []models.CatalogOffer
	if err := decodeJSON(req, &offers); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	if err := r.svc.Analysis.UpsertOffers(req.Context(), offers); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{"upserted": len(offers)})
}
