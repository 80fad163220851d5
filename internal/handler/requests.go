package handler

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ianibaeva/explore-with-me/internal/model"
)

// SubmitRequest handles POST /users/{userId}/requests?eventId=
func (h *Handler) SubmitRequest(w http.ResponseWriter, r *http.Request) {
	eventID := r.URL.Query().Get("eventId")
	if eventID == "" {
		h.writeError(w, r, fmt.Errorf("%w: eventId is required", model.ErrValidation))
		return
	}

	request, err := h.requests.Submit(r.Context(), chi.URLParam(r, "userId"), eventID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toRequestResponse(request))
}

// ListUserRequests handles GET /users/{userId}/requests
func (h *Handler) ListUserRequests(w http.ResponseWriter, r *http.Request) {
	requests, err := h.requests.ListForRequester(r.Context(), chi.URLParam(r, "userId"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestResponses(requests))
}

// CancelRequest handles PATCH /users/{userId}/requests/{requestId}/cancel
func (h *Handler) CancelRequest(w http.ResponseWriter, r *http.Request) {
	request, err := h.requests.Cancel(r.Context(), chi.URLParam(r, "userId"), chi.URLParam(r, "requestId"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestResponse(request))
}

// ListEventRequests handles GET /users/{userId}/events/{eventId}/requests
func (h *Handler) ListEventRequests(w http.ResponseWriter, r *http.Request) {
	requests, err := h.requests.ListForOwner(r.Context(), chi.URLParam(r, "userId"), chi.URLParam(r, "eventId"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestResponses(requests))
}

// DecideRequests handles PATCH /users/{userId}/events/{eventId}/requests
func (h *Handler) DecideRequests(w http.ResponseWriter, r *http.Request) {
	var req statusUpdateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	result, err := h.requests.DecideBulk(r.Context(), chi.URLParam(r, "userId"), chi.URLParam(r, "eventId"), model.StatusUpdate{
		RequestIDs: req.RequestIDs,
		Status:     model.RequestStatus(req.Status),
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, statusUpdateResponse{
		ConfirmedRequests: toRequestResponses(result.Confirmed),
		RejectedRequests:  toRequestResponses(result.Rejected),
	})
}
