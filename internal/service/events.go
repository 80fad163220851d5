package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ianibaeva/explore-with-me/internal/model"
	"github.com/ianibaeva/explore-with-me/internal/repository"
)

// EventService drives the event lifecycle: creation, owner and admin edits,
// and the published catalogue.
type EventService struct {
	store repository.Store
	options
}

// NewEventService constructs an EventService with its dependencies.
func NewEventService(store repository.Store, opts ...Option) *EventService {
	return &EventService{store: store, options: newOptions(opts)}
}

// CreateEvent validates the draft and stores a PENDING event for ownerID.
func (s *EventService) CreateEvent(ctx context.Context, ownerID string, draft model.EventDraft) (*model.Event, error) {
	if err := validateInput(draft); err != nil {
		return nil, err
	}
	now := s.clock()
	if draft.EventDate.Before(now.Add(ownerLeadTime)) {
		return nil, fmt.Errorf("%w: must be at least %s from now", model.ErrEventDateTooSoon, ownerLeadTime)
	}

	event := &model.Event{
		ID:                uuid.NewString(),
		OwnerID:           ownerID,
		CategoryID:        draft.CategoryID,
		Title:             draft.Title,
		Annotation:        draft.Annotation,
		Description:       draft.Description,
		EventDate:         draft.EventDate.UTC(),
		Location:          draft.Location,
		Paid:              draft.Paid,
		ParticipantLimit:  draft.ParticipantLimit,
		RequestModeration: draft.RequestModeration,
		State:             model.EventPending,
		CreatedOn:         now,
	}

	err := s.store.InTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		if _, err := tx.GetUser(ctx, ownerID); err != nil {
			return notFound(err, model.ErrUserNotFound, "get owner")
		}
		return tx.CreateEvent(ctx, event)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("event created",
		zap.String("event_id", event.ID),
		zap.String("owner_id", ownerID),
		zap.Int("participant_limit", event.ParticipantLimit),
	)
	return event, nil
}

// GetOwnerEvents returns a page of the events ownerID created.
func (s *EventService) GetOwnerEvents(ctx context.Context, ownerID string, from, size int) ([]model.Event, error) {
	if _, err := s.store.GetUser(ctx, ownerID); err != nil {
		return nil, notFound(err, model.ErrUserNotFound, "get owner")
	}
	offset, limit := page(from, size)
	return s.store.ListEvents(ctx, model.EventFilter{
		Owners: []string{ownerID},
		Offset: offset,
		Limit:  limit,
	})
}

// GetOwnerEvent returns one event, provided ownerID created it.
func (s *EventService) GetOwnerEvent(ctx context.Context, ownerID, eventID string) (*model.Event, error) {
	event, err := s.store.GetEvent(ctx, eventID)
	if err != nil {
		return nil, notFound(err, model.ErrEventNotFound, "get event")
	}
	if event.OwnerID != ownerID {
		return nil, model.ErrEventNotFound
	}
	return event, nil
}

// UpdateByOwner applies an owner patch. Published events are frozen and
// only SEND_TO_REVIEW and CANCEL_REVIEW are accepted as state actions.
func (s *EventService) UpdateByOwner(ctx context.Context, ownerID, eventID string, patch model.EventPatch) (*model.Event, error) {
	if err := validateInput(patch); err != nil {
		return nil, err
	}
	if patch.StateAction != "" && !patch.StateAction.OwnerAction() {
		return nil, fmt.Errorf("%w: %s", model.ErrInvalidAction, patch.StateAction)
	}
	now := s.clock()
	if err := checkEventDate(patch.EventDate, now, ownerLeadTime); err != nil {
		return nil, err
	}

	var event *model.Event
	err := s.store.InTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error
		event, err = tx.LockEvent(ctx, eventID)
		if err != nil {
			return notFound(err, model.ErrEventNotFound, "lock event")
		}
		if event.OwnerID != ownerID {
			return model.ErrEventNotFound
		}
		if event.State == model.EventPublished {
			return model.ErrEventPublished
		}
		return s.applyPatch(ctx, tx, event, patch, now)
	})
	if err != nil {
		return nil, err
	}
	s.reportTransition(ctx, event, patch.StateAction, "owner")
	return event, nil
}

// UpdateByAdmin applies an administrator patch. Only PUBLISH_EVENT and
// REJECT_EVENT are accepted as state actions.
func (s *EventService) UpdateByAdmin(ctx context.Context, eventID string, patch model.EventPatch) (*model.Event, error) {
	if err := validateInput(patch); err != nil {
		return nil, err
	}
	if patch.StateAction != "" && !patch.StateAction.AdminAction() {
		return nil, fmt.Errorf("%w: %s", model.ErrInvalidAction, patch.StateAction)
	}
	now := s.clock()
	if err := checkEventDate(patch.EventDate, now, adminLeadTime); err != nil {
		return nil, err
	}

	var event *model.Event
	err := s.store.InTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error
		event, err = tx.LockEvent(ctx, eventID)
		if err != nil {
			return notFound(err, model.ErrEventNotFound, "lock event")
		}
		return s.applyPatch(ctx, tx, event, patch, now)
	})
	if err != nil {
		return nil, err
	}
	s.reportTransition(ctx, event, patch.StateAction, "admin")
	return event, nil
}

// applyPatch mutates a locked event and writes it back.
func (s *EventService) applyPatch(ctx context.Context, tx repository.Tx, event *model.Event, patch model.EventPatch, now time.Time) error {
	patch.Apply(event)
	event.EventDate = event.EventDate.UTC()
	if !event.WithinLimit() {
		return fmt.Errorf("%w: limit %d, confirmed %d",
			model.ErrLimitBelowConfirmed, event.ParticipantLimit, event.ConfirmedRequests)
	}
	if patch.StateAction != "" {
		if err := event.ApplyAction(patch.StateAction, now); err != nil {
			return err
		}
	}
	if err := tx.UpdateEvent(ctx, event); err != nil {
		return notFound(err, model.ErrEventNotFound, "update event")
	}
	return nil
}

func (s *EventService) reportTransition(ctx context.Context, event *model.Event, action model.StateAction, actor string) {
	if action == "" {
		s.log.Info("event updated", zap.String("event_id", event.ID), zap.String("actor", actor))
		return
	}
	s.log.Info("event transitioned",
		zap.String("event_id", event.ID),
		zap.String("actor", actor),
		zap.String("action", string(action)),
		zap.String("state", string(event.State)),
	)
	s.metrics.EventTransitioned(ctx, string(event.State))
}

func checkEventDate(date *time.Time, now time.Time, lead time.Duration) error {
	if date == nil || date.IsZero() {
		return nil
	}
	if date.Before(now.Add(lead)) {
		return fmt.Errorf("%w: must be at least %s from now", model.ErrEventDateTooSoon, lead)
	}
	return nil
}

// GetPublishedEvent returns a PUBLISHED event. Events in any other state
// are reported as not found.
func (s *EventService) GetPublishedEvent(ctx context.Context, eventID string) (*model.Event, error) {
	event, err := s.store.GetEvent(ctx, eventID)
	if err != nil {
		return nil, notFound(err, model.ErrEventNotFound, "get event")
	}
	if event.State != model.EventPublished {
		return nil, model.ErrEventNotFound
	}
	return event, nil
}

// ListPublished returns published events matching q, ordered by event date.
// Without a range only future events are listed.
func (s *EventService) ListPublished(ctx context.Context, q model.PublicEventQuery) ([]model.Event, error) {
	if err := checkRange(q.RangeStart, q.RangeEnd); err != nil {
		return nil, err
	}
	start := q.RangeStart
	if start == nil && q.RangeEnd == nil {
		now := s.clock()
		start = &now
	}
	offset, limit := page(q.From, q.Size)
	return s.store.ListEvents(ctx, model.EventFilter{
		States:        []model.EventState{model.EventPublished},
		Categories:    q.Categories,
		Paid:          q.Paid,
		RangeStart:    start,
		RangeEnd:      q.RangeEnd,
		OnlyAvailable: q.OnlyAvailable,
		Offset:        offset,
		Limit:         limit,
	})
}

// ListForAdmin returns events in any state matching q.
func (s *EventService) ListForAdmin(ctx context.Context, q model.AdminEventQuery) ([]model.Event, error) {
	if err := checkRange(q.RangeStart, q.RangeEnd); err != nil {
		return nil, err
	}
	for _, state := range q.States {
		if !state.Valid() {
			return nil, fmt.Errorf("%w: unknown state %q", model.ErrValidation, state)
		}
	}
	offset, limit := page(q.From, q.Size)
	return s.store.ListEvents(ctx, model.EventFilter{
		Owners:     q.Owners,
		States:     q.States,
		Categories: q.Categories,
		RangeStart: q.RangeStart,
		RangeEnd:   q.RangeEnd,
		Offset:     offset,
		Limit:      limit,
	})
}

func checkRange(start, end *time.Time) error {
	if start != nil && end != nil && end.Before(*start) {
		return model.ErrInvalidRange
	}
	return nil
}
