// Package model defines the core domain types for the event listing platform:
// events with a participant limit, participation requests and the users that
// own or submit them.
package model

import "time"

// Location is the opaque coordinate pair an event takes place at.
type Location struct {
	Lat float64 `validate:"gte=-90,lte=90"`
	Lon float64 `validate:"gte=-180,lte=180"`
}

// Event is a schedulable activity published by its owner.
//
// ConfirmedRequests is a cached count of CONFIRMED requests. It is only
// written by the admission path, inside the same transaction that changes
// a request status.
type Event struct {
	ID                string
	OwnerID           string
	CategoryID        string
	Title             string
	Annotation        string
	Description       string
	EventDate         time.Time
	Location          Location
	Paid              bool
	ParticipantLimit  int
	RequestModeration bool
	State             EventState
	CreatedOn         time.Time
	PublishedOn       *time.Time
	ConfirmedRequests int
}

// IsAvailable reports whether the event can take one more confirmed participant.
// A zero ParticipantLimit means unlimited.
func (e *Event) IsAvailable() bool {
	return e.ParticipantLimit == 0 || e.ConfirmedRequests < e.ParticipantLimit
}

// Remaining returns the number of free places, or -1 for unlimited events.
func (e *Event) Remaining() int {
	if e.ParticipantLimit == 0 {
		return -1
	}
	return e.ParticipantLimit - e.ConfirmedRequests
}

// AdmitsImmediately reports whether a new request skips moderation and is
// confirmed at submission time.
func (e *Event) AdmitsImmediately() bool {
	return !e.RequestModeration || e.ParticipantLimit == 0
}

// WithinLimit reports whether the stored counter respects the participant limit.
func (e *Event) WithinLimit() bool {
	return e.ParticipantLimit == 0 || e.ConfirmedRequests <= e.ParticipantLimit
}

// ApplyAction moves the event through the lifecycle table and keeps
// PublishedOn in step with the PUBLISHED state.
func (e *Event) ApplyAction(action StateAction, now time.Time) error {
	next, err := e.State.Apply(action)
	if err != nil {
		return err
	}
	if next == EventPublished && e.State != EventPublished {
		published := now
		e.PublishedOn = &published
	}
	if next != EventPublished {
		e.PublishedOn = nil
	}
	e.State = next
	return nil
}

// Request is a user's application to participate in an event.
type Request struct {
	ID          string
	EventID     string
	RequesterID string
	Status      RequestStatus
	Created     time.Time
}

// User is the minimal identity an event owner or requester needs.
type User struct {
	ID        string
	Name      string
	Email     string
	CreatedOn time.Time
}

// NewUser is the payload for registering a user.
type NewUser struct {
	Name  string `validate:"required,min=2,max=250"`
	Email string `validate:"required,email,min=6,max=254"`
}

// EventDraft is the payload for creating a new event.
type EventDraft struct {
	CategoryID        string `validate:"required"`
	Title             string `validate:"required,min=3,max=120"`
	Annotation        string `validate:"required,min=20,max=2000"`
	Description       string `validate:"required,min=20,max=7000"`
	EventDate         time.Time
	Location          Location
	Paid              bool
	ParticipantLimit  int `validate:"gte=0"`
	RequestModeration bool
}

// EventPatch carries a partial event update. Nil and empty fields are left untouched.
type EventPatch struct {
	CategoryID        *string `validate:"omitempty,min=1"`
	Title             *string `validate:"omitempty,min=3,max=120"`
	Annotation        *string `validate:"omitempty,min=20,max=2000"`
	Description       *string `validate:"omitempty,min=20,max=7000"`
	EventDate         *time.Time
	Location          *Location
	Paid              *bool
	ParticipantLimit  *int        `validate:"omitempty,gte=0"`
	RequestModeration *bool
	StateAction       StateAction `validate:"omitempty,oneof=SEND_TO_REVIEW CANCEL_REVIEW PUBLISH_EVENT REJECT_EVENT"`
}

// Apply copies the non-empty scalar fields of the patch onto e.
// StateAction and EventDate validation are left to the caller.
func (p EventPatch) Apply(e *Event) {
	if p.CategoryID != nil && *p.CategoryID != "" {
		e.CategoryID = *p.CategoryID
	}
	if p.Title != nil && *p.Title != "" {
		e.Title = *p.Title
	}
	if p.Annotation != nil && *p.Annotation != "" {
		e.Annotation = *p.Annotation
	}
	if p.Description != nil && *p.Description != "" {
		e.Description = *p.Description
	}
	if p.EventDate != nil && !p.EventDate.IsZero() {
		e.EventDate = *p.EventDate
	}
	if p.Location != nil {
		e.Location = *p.Location
	}
	if p.Paid != nil {
		e.Paid = *p.Paid
	}
	if p.ParticipantLimit != nil {
		e.ParticipantLimit = *p.ParticipantLimit
	}
	if p.RequestModeration != nil {
		e.RequestModeration = *p.RequestModeration
	}
}

// StatusUpdate is an owner's bulk decision over pending requests of one event.
type StatusUpdate struct {
	RequestIDs []string
	Status     RequestStatus
}

// StatusUpdateResult partitions the decided requests by their final status.
type StatusUpdateResult struct {
	Confirmed []Request
	Rejected  []Request
}

// EventFilter narrows event listings. Empty fields do not filter.
type EventFilter struct {
	Owners        []string
	States        []EventState
	Categories    []string
	Paid          *bool
	RangeStart    *time.Time
	RangeEnd      *time.Time
	OnlyAvailable bool
	Offset        int
	Limit         int
}

// PublicEventQuery is the filter set anyone may use to browse published events.
type PublicEventQuery struct {
	Categories    []string
	Paid          *bool
	RangeStart    *time.Time
	RangeEnd      *time.Time
	OnlyAvailable bool
	From          int
	Size          int
}

// AdminEventQuery is the filter set administrators use to browse all events.
type AdminEventQuery struct {
	Owners     []string
	States     []EventState
	Categories []string
	RangeStart *time.Time
	RangeEnd   *time.Time
	From       int
	Size       int
}
