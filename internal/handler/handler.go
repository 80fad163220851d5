// Package handler contains chi HTTP handlers that translate HTTP
// requests/responses to and from the service layer.
package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/ianibaeva/explore-with-me/internal/model"
	"github.com/ianibaeva/explore-with-me/internal/service"
)

// Handler holds all HTTP handlers of the public, private and admin APIs.
type Handler struct {
	events   *service.EventService
	requests *service.RequestService
	users    *service.UserService
	log      *zap.Logger
	now      func() time.Time
}

// New constructs a Handler.
func New(events *service.EventService, requests *service.RequestService, users *service.UserService, log *zap.Logger) *Handler {
	return &Handler{events: events, requests: requests, users: users, log: log, now: time.Now}
}

// Routes builds the router with the global middleware stack.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(Logger(h.log))
	r.Use(CORS)

	r.Get("/health", HealthCheck)

	r.Route("/admin", func(r chi.Router) {
		r.Post("/users", h.CreateUser)
		r.Get("/users", h.ListUsers)
		r.Get("/users/{userId}", h.GetUser)
		r.Get("/events", h.ListAdminEvents)
		r.Patch("/events/{eventId}", h.UpdateEventByAdmin)
	})

	r.Route("/users/{userId}", func(r chi.Router) {
		r.Post("/events", h.CreateEvent)
		r.Get("/events", h.ListOwnerEvents)
		r.Get("/events/{eventId}", h.GetOwnerEvent)
		r.Patch("/events/{eventId}", h.UpdateEventByOwner)
		r.Get("/events/{eventId}/requests", h.ListEventRequests)
		r.Patch("/events/{eventId}/requests", h.DecideRequests)

		r.Get("/requests", h.ListUserRequests)
		r.Post("/requests", h.SubmitRequest)
		r.Patch("/requests/{requestId}/cancel", h.CancelRequest)
	})

	r.Route("/events", func(r chi.Router) {
		r.Get("/", h.ListPublishedEvents)
		r.Get("/{eventId}", h.GetPublishedEvent)
	})

	return r
}

// ─── Helper utilities ─────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorClass struct {
	status int
	reason string
}

var (
	classNotFound   = errorClass{http.StatusNotFound, "The required object was not found."}
	classBadRequest = errorClass{http.StatusBadRequest, "Incorrectly made request."}
	classConflict   = errorClass{http.StatusConflict, "For the requested operation the conditions are not met."}
	classForbidden  = errorClass{http.StatusForbidden, "The operation is forbidden."}
	classInternal   = errorClass{http.StatusInternalServerError, "Internal server error."}
)

// classify maps a domain error kind to an HTTP status. Conflict is checked
// before Forbidden so errors carrying both are reported as 409.
func classify(err error) errorClass {
	switch {
	case errors.Is(err, model.ErrNotFound):
		return classNotFound
	case errors.Is(err, model.ErrValidation):
		return classBadRequest
	case errors.Is(err, model.ErrConflict):
		return classConflict
	case errors.Is(err, model.ErrForbidden):
		return classForbidden
	default:
		return classInternal
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	class := classify(err)
	message := err.Error()
	if class.status == http.StatusInternalServerError {
		h.log.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("request_id", chimiddleware.GetReqID(r.Context())),
			zap.Error(err),
		)
		message = "unexpected error"
	}
	writeJSON(w, class.status, errorResponse{
		Status:    strings.ToUpper(strings.ReplaceAll(http.StatusText(class.status), " ", "_")),
		Reason:    class.reason,
		Message:   message,
		Timestamp: h.now().UTC().Format(TimeLayout),
	})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB limit
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: invalid request body: %v", model.ErrValidation, err)
	}
	return nil
}

// ─── Query parameters ─────────────────────────────────────────────────────────

func queryInt(r *http.Request, name string, fallback int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("%w: %s must be a non-negative integer", model.ErrValidation, name)
	}
	return v, nil
}

// pageParams reads from/size with the defaults 0 and 10.
func pageParams(r *http.Request) (from, size int, err error) {
	if from, err = queryInt(r, "from", 0); err != nil {
		return 0, 0, err
	}
	if size, err = queryInt(r, "size", 10); err != nil {
		return 0, 0, err
	}
	if size == 0 {
		return 0, 0, fmt.Errorf("%w: size must be positive", model.ErrValidation)
	}
	return from, size, nil
}

// queryList accepts both repeated and comma separated values.
func queryList(r *http.Request, name string) []string {
	var out []string
	for _, raw := range r.URL.Query()[name] {
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func queryBool(r *http.Request, name string) (*bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be a boolean", model.ErrValidation, name)
	}
	return &v, nil
}

func queryTime(r *http.Request, name string) (*time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	v, err := time.ParseInLocation(TimeLayout, raw, time.UTC)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must match %q", model.ErrValidation, name, TimeLayout)
	}
	return &v, nil
}

// ─── Health check ─────────────────────────────────────────────────────────────

// HealthCheck handles GET /health
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
