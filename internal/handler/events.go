package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ianibaeva/explore-with-me/internal/model"
)

// CreateEvent handles POST /users/{userId}/events
func (h *Handler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req newEventRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	event, err := h.events.CreateEvent(r.Context(), chi.URLParam(r, "userId"), req.draft())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toEventResponse(event))
}

// ListOwnerEvents handles GET /users/{userId}/events
func (h *Handler) ListOwnerEvents(w http.ResponseWriter, r *http.Request) {
	from, size, err := pageParams(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	events, err := h.events.GetOwnerEvents(r.Context(), chi.URLParam(r, "userId"), from, size)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toEventResponses(events))
}

// GetOwnerEvent handles GET /users/{userId}/events/{eventId}
func (h *Handler) GetOwnerEvent(w http.ResponseWriter, r *http.Request) {
	event, err := h.events.GetOwnerEvent(r.Context(), chi.URLParam(r, "userId"), chi.URLParam(r, "eventId"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toEventResponse(event))
}

// UpdateEventByOwner handles PATCH /users/{userId}/events/{eventId}
func (h *Handler) UpdateEventByOwner(w http.ResponseWriter, r *http.Request) {
	var req updateEventRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	event, err := h.events.UpdateByOwner(r.Context(), chi.URLParam(r, "userId"), chi.URLParam(r, "eventId"), req.patch())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toEventResponse(event))
}

// UpdateEventByAdmin handles PATCH /admin/events/{eventId}
func (h *Handler) UpdateEventByAdmin(w http.ResponseWriter, r *http.Request) {
	var req updateEventRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	event, err := h.events.UpdateByAdmin(r.Context(), chi.URLParam(r, "eventId"), req.patch())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toEventResponse(event))
}

// ListAdminEvents handles GET /admin/events
// Query: users, states, categories, rangeStart, rangeEnd, from, size.
func (h *Handler) ListAdminEvents(w http.ResponseWriter, r *http.Request) {
	q := model.AdminEventQuery{
		Owners:     queryList(r, "users"),
		Categories: queryList(r, "categories"),
	}
	for _, s := range queryList(r, "states") {
		q.States = append(q.States, model.EventState(s))
	}

	var err error
	if q.RangeStart, err = queryTime(r, "rangeStart"); err != nil {
		h.writeError(w, r, err)
		return
	}
	if q.RangeEnd, err = queryTime(r, "rangeEnd"); err != nil {
		h.writeError(w, r, err)
		return
	}
	if q.From, q.Size, err = pageParams(r); err != nil {
		h.writeError(w, r, err)
		return
	}

	events, err := h.events.ListForAdmin(r.Context(), q)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toEventResponses(events))
}

// ListPublishedEvents handles GET /events
// Query: categories, paid, rangeStart, rangeEnd, onlyAvailable, from, size.
func (h *Handler) ListPublishedEvents(w http.ResponseWriter, r *http.Request) {
	q := model.PublicEventQuery{Categories: queryList(r, "categories")}

	var err error
	if q.Paid, err = queryBool(r, "paid"); err != nil {
		h.writeError(w, r, err)
		return
	}
	onlyAvailable, err := queryBool(r, "onlyAvailable")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	q.OnlyAvailable = onlyAvailable != nil && *onlyAvailable
	if q.RangeStart, err = queryTime(r, "rangeStart"); err != nil {
		h.writeError(w, r, err)
		return
	}
	if q.RangeEnd, err = queryTime(r, "rangeEnd"); err != nil {
		h.writeError(w, r, err)
		return
	}
	if q.From, q.Size, err = pageParams(r); err != nil {
		h.writeError(w, r, err)
		return
	}

	events, err := h.events.ListPublished(r.Context(), q)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toEventResponses(events))
}

// GetPublishedEvent handles GET /events/{eventId}
func (h *Handler) GetPublishedEvent(w http.ResponseWriter, r *http.Request) {
	event, err := h.events.GetPublishedEvent(r.Context(), chi.URLParam(r, "eventId"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toEventResponse(event))
}
