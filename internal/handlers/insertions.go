package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
)

// listInsertions returns a page of insertion outcomes, newest first
func (r *Router) listInsertions(w http.ResponseWriter, req *http.Request) {
	limit, offset, err := pagination(req)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	page, err := r.svc.Queue.ListStatuses(req.Context(), limit, offset)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, page)
}

// requestInsertions returns the outcomes recorded for one submission request
func (r *Router) requestInsertions(w http.ResponseWriter, req *http.Request) {
	statuses, err := r.svc.Queue.StatusesForRequest(req.Context(), mux.Vars(req)["request_uuid"])
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if len(statuses) == 0 {
		respondError(w, http.StatusNotFound, "No outcome recorded for this request")
		return
	}
	respondJSON(w, http.StatusOK, statuses)
}
