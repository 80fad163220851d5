package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ianibaeva/explore-with-me/internal/model"
	"github.com/ianibaeva/explore-with-me/internal/repository"
)

// RequestService owns participation requests: submission, cancellation
// and the owner's bulk decision. Every change to an event's confirmed
// counter happens under that event's lock, in the transaction that changes
// the request status.
type RequestService struct {
	store repository.Store
	options
}

// NewRequestService constructs a RequestService with its dependencies.
func NewRequestService(store repository.Store, opts ...Option) *RequestService {
	return &RequestService{store: store, options: newOptions(opts)}
}

// Submit creates a request of requesterID for eventID. The request is
// CONFIRMED at once when the event is unmoderated or unlimited, and PENDING
// otherwise.
func (s *RequestService) Submit(ctx context.Context, requesterID, eventID string) (*model.Request, error) {
	var request *model.Request
	err := s.store.InTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		if _, err := tx.GetUser(ctx, requesterID); err != nil {
			return notFound(err, model.ErrUserNotFound, "get requester")
		}
		event, err := tx.LockEvent(ctx, eventID)
		if err != nil {
			return notFound(err, model.ErrEventNotFound, "lock event")
		}
		if event.State != model.EventPublished {
			return model.ErrEventNotPublished
		}
		if _, err := tx.FindActiveRequest(ctx, eventID, requesterID); err == nil {
			return model.ErrDuplicateRequest
		} else if !errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("find active request: %w", err)
		}
		if event.OwnerID == requesterID {
			return model.ErrOwnEventRequest
		}
		if !event.IsAvailable() {
			return model.ErrEventFull
		}

		request = &model.Request{
			ID:          uuid.NewString(),
			EventID:     eventID,
			RequesterID: requesterID,
			Status:      model.RequestPending,
			Created:     s.clock(),
		}
		if event.AdmitsImmediately() {
			request.Status = model.RequestConfirmed
		}
		if err := tx.CreateRequest(ctx, request); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return model.ErrDuplicateRequest
			}
			return err
		}
		if request.Status == model.RequestConfirmed {
			return tx.SetConfirmedRequests(ctx, eventID, event.ConfirmedRequests+1)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("request submitted",
		zap.String("request_id", request.ID),
		zap.String("event_id", eventID),
		zap.String("status", string(request.Status)),
	)
	s.metrics.RequestAdmitted(ctx, string(request.Status), 1)
	return request, nil
}

// Cancel moves the requester's own request to CANCELED, releasing its
// place when it was CONFIRMED.
func (s *RequestService) Cancel(ctx context.Context, requesterID, requestID string) (*model.Request, error) {
	var request *model.Request
	err := s.store.InTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		if _, err := tx.GetUser(ctx, requesterID); err != nil {
			return notFound(err, model.ErrUserNotFound, "get requester")
		}
		found, err := tx.GetRequest(ctx, requestID)
		if err != nil {
			return notFound(err, model.ErrRequestNotFound, "get request")
		}
		event, err := tx.LockEvent(ctx, found.EventID)
		if err != nil {
			return notFound(err, model.ErrEventNotFound, "lock event")
		}
		// Re-read under the event lock; status changes are serialised by it.
		request, err = tx.GetRequest(ctx, requestID)
		if err != nil {
			return notFound(err, model.ErrRequestNotFound, "get request")
		}
		if request.RequesterID != requesterID {
			return model.ErrNotRequester
		}
		if request.Status.Terminal() {
			return fmt.Errorf("%w: status %s", model.ErrRequestTerminal, request.Status)
		}

		wasConfirmed := request.Status == model.RequestConfirmed
		if err := tx.UpdateRequestStatus(ctx, requestID, model.RequestCanceled); err != nil {
			return notFound(err, model.ErrRequestNotFound, "update request")
		}
		request.Status = model.RequestCanceled
		if wasConfirmed {
			return tx.SetConfirmedRequests(ctx, event.ID, event.ConfirmedRequests-1)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("request canceled",
		zap.String("request_id", request.ID),
		zap.String("event_id", request.EventID),
	)
	s.metrics.RequestCanceled(ctx)
	return request, nil
}

// ListForOwner returns every request of an event owned by ownerID.
func (s *RequestService) ListForOwner(ctx context.Context, ownerID, eventID string) ([]model.Request, error) {
	event, err := s.store.GetEvent(ctx, eventID)
	if err != nil {
		return nil, notFound(err, model.ErrEventNotFound, "get event")
	}
	if event.OwnerID != ownerID {
		return nil, model.ErrEventNotFound
	}
	return s.store.ListRequestsByEvent(ctx, eventID)
}

// ListForRequester returns the requests requesterID submitted.
func (s *RequestService) ListForRequester(ctx context.Context, requesterID string) ([]model.Request, error) {
	if _, err := s.store.GetUser(ctx, requesterID); err != nil {
		return nil, notFound(err, model.ErrUserNotFound, "get requester")
	}
	return s.store.ListRequestsByRequester(ctx, requesterID)
}

// DecideBulk confirms or rejects pending requests of an owned, published
// event. Requests are confirmed in the order given while places remain and
// rejected once the limit is reached. Nothing is written unless every
// listed request is a PENDING request of the event.
func (s *RequestService) DecideBulk(ctx context.Context, ownerID, eventID string, update model.StatusUpdate) (*model.StatusUpdateResult, error) {
	if update.Status != model.RequestConfirmed && update.Status != model.RequestRejected {
		return nil, fmt.Errorf("%w: got %q", model.ErrInvalidStatus, update.Status)
	}
	ids := uniqueIDs(update.RequestIDs)
	if len(ids) == 0 {
		return nil, model.ErrNoRequestIDs
	}

	result := &model.StatusUpdateResult{
		Confirmed: []model.Request{},
		Rejected:  []model.Request{},
	}
	err := s.store.InTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		event, err := tx.LockEvent(ctx, eventID)
		if err != nil {
			return notFound(err, model.ErrEventNotFound, "lock event")
		}
		if event.OwnerID != ownerID {
			return model.ErrEventNotFound
		}
		if event.State != model.EventPublished {
			return model.ErrEventNotPublished
		}
		if update.Status == model.RequestConfirmed && !event.IsAvailable() {
			return model.ErrEventFull
		}

		found, err := tx.GetRequestsByIDs(ctx, eventID, ids)
		if err != nil {
			return err
		}
		byID := make(map[string]model.Request, len(found))
		for _, r := range found {
			byID[r.ID] = r
		}
		ordered := make([]model.Request, 0, len(ids))
		for _, id := range ids {
			r, ok := byID[id]
			if !ok {
				return fmt.Errorf("%w: id %s", model.ErrRequestNotFound, id)
			}
			if r.Status != model.RequestPending {
				return fmt.Errorf("%w: request %s is %s", model.ErrRequestNotPending, id, r.Status)
			}
			ordered = append(ordered, r)
		}

		remaining := event.Remaining()
		admitted := 0
		for _, r := range ordered {
			next := model.RequestRejected
			if update.Status == model.RequestConfirmed && (remaining < 0 || admitted < remaining) {
				next = model.RequestConfirmed
				admitted++
			}
			if err := tx.UpdateRequestStatus(ctx, r.ID, next); err != nil {
				return notFound(err, model.ErrRequestNotFound, "update request")
			}
			r.Status = next
			if next == model.RequestConfirmed {
				result.Confirmed = append(result.Confirmed, r)
			} else {
				result.Rejected = append(result.Rejected, r)
			}
		}
		if admitted > 0 {
			return tx.SetConfirmedRequests(ctx, eventID, event.ConfirmedRequests+admitted)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("requests decided",
		zap.String("event_id", eventID),
		zap.Int("confirmed", len(result.Confirmed)),
		zap.Int("rejected", len(result.Rejected)),
	)
	s.metrics.RequestAdmitted(ctx, string(model.RequestConfirmed), len(result.Confirmed))
	s.metrics.RequestAdmitted(ctx, string(model.RequestRejected), len(result.Rejected))
	return result, nil
}

// uniqueIDs drops blanks and repeated ids, keeping first occurrences in order.
func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
