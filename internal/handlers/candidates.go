package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/xelth-com/shopvidgo/internal/middleware"
	"github.com/xelth-com/shopvidgo/internal/models"
	"github.com/xelth-com/shopvidgo/internal/review"
)

// updateCandidates records a batch of reviewer decisions. The batch is
// written all-or-nothing.
func (r *Router) updateCandidates(w http.ResponseWriter, req *http.Request) {
	var body []models.CandidateUpdate
	if err := decodeJSON(req, &body); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if len(body) == 0 {
		respondError(w, http.StatusBadRequest, "No candidate updates")
		return
	}

	updates := make([]review.Update, 0, len(body))
	for _, u := range body {
		updates = append(updates, review.UpdateFromWire(u))
	}

	written, err := r.svc.Reviews.Apply(req.Context(), updates, middleware.ActingUser(req))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, written)
}

// submitCandidates queues approved offers for insertion into ad groups
func (r *Router) submitCandidates(w http.ResponseWriter, req *http.Request) {
	var body []models.SubmissionMetadata
	if err := decodeJSON(req, &body); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	requests, err := r.svc.Queue.Enqueue(req.Context(), body, middleware.ActingUser(req))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusAccepted, requests)
}

// candidatesForVideo returns the latest status of every reviewed candidate of a video
func (r *Router) candidatesForVideo(w http.ResponseWriter, req *http.Request) {
	records, err := r.svc.Reviews.LatestForVideo(req.Context(), mux.Vars(req)["uuid"])
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, nonNil(records))
}

// candidatesWithStatus returns the candidates whose latest status is {status}
func (r *Router) candidatesWithStatus(w http.ResponseWriter, req *http.Request) {
	records, err := r.svc.Reviews.LatestWithStatus(req.Context(), models.Status(mux.Vars(req)["status"]))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, nonNil(records))
}

// getCandidate returns the latest status recorded for one offer of a video.
// An offer may have been reviewed under several identified products; the
// most recent record wins.
func (r *Router) getCandidate(w http.ResponseWriter, req *http.Request) {
	vars := mux.Vars(req)
	records, err := r.svc.Reviews.LatestForVideo(req.Context(), vars["uuid"])
	if err != nil {
		respondServiceError(w, err)
		return
	}

	var found []models.CandidateStatus
	for _, rec := range records {
		if rec.CandidateOfferID == vars["offer_id"] {
			found = append(found, rec)
		}
	}
	latest := review.Newest(found)
	if latest == nil {
		respondError(w, http.StatusNotFound, "No status recorded for this candidate")
		return
	}
	respondJSON(w, http.StatusOK, latest)
}

func nonNil(records []models.CandidateStatus) []models.CandidateStatus {
	if records == nil {
		return []models.CandidateStatus{}
	}
	return records
}
