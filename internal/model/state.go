package model

import "fmt"

// EventState is the lifecycle state of an event.
type EventState string

const (
	EventPending   EventState = "PENDING"
	EventPublished EventState = "PUBLISHED"
	EventCanceled  EventState = "CANCELED"
)

// Valid reports whether s is a known event state.
func (s EventState) Valid() bool {
	switch s {
	case EventPending, EventPublished, EventCanceled:
		return true
	}
	return false
}

// StateAction is a requested lifecycle transition carried by an event patch.
type StateAction string

const (
	ActionSendToReview StateAction = "SEND_TO_REVIEW"
	ActionCancelReview StateAction = "CANCEL_REVIEW"
	ActionPublishEvent StateAction = "PUBLISH_EVENT"
	ActionRejectEvent  StateAction = "REJECT_EVENT"
)

// OwnerAction reports whether the event owner may request the action.
func (a StateAction) OwnerAction() bool {
	return a == ActionSendToReview || a == ActionCancelReview
}

// AdminAction reports whether an administrator may request the action.
func (a StateAction) AdminAction() bool {
	return a == ActionPublishEvent || a == ActionRejectEvent
}

// eventTransitions lists every permitted (state, action) pair. PUBLISHED has
// no outgoing transitions.
var eventTransitions = map[EventState]map[StateAction]EventState{
	EventPending: {
		ActionPublishEvent: EventPublished,
		ActionRejectEvent:  EventCanceled,
		ActionSendToReview: EventPending,
		ActionCancelReview: EventCanceled,
	},
	EventCanceled: {
		ActionRejectEvent:  EventCanceled,
		ActionSendToReview: EventPending,
		ActionCancelReview: EventCanceled,
	},
}

// Apply returns the state reached by applying action to s.
func (s EventState) Apply(action StateAction) (EventState, error) {
	if next, ok := eventTransitions[s][action]; ok {
		return next, nil
	}
	if action == ActionPublishEvent {
		return s, fmt.Errorf("%w: cannot publish event in state %s", ErrEventNotPending, s)
	}
	if s == EventPublished {
		return s, fmt.Errorf("%w: action %s not allowed", ErrEventPublished, action)
	}
	return s, fmt.Errorf("%w: action %s not allowed in state %s", ErrConflict, action, s)
}

// RequestStatus is the admission status of a participation request.
type RequestStatus string

const (
	RequestPending   RequestStatus = "PENDING"
	RequestConfirmed RequestStatus = "CONFIRMED"
	RequestRejected  RequestStatus = "REJECTED"
	RequestCanceled  RequestStatus = "CANCELED"
)

var requestTransitions = map[RequestStatus][]RequestStatus{
	RequestPending:   {RequestConfirmed, RequestRejected, RequestCanceled},
	RequestConfirmed: {RequestCanceled},
}

// CanTransition reports whether a request in status s may move to next.
// REJECTED and CANCELED are terminal.
func (s RequestStatus) CanTransition(next RequestStatus) bool {
	for _, allowed := range requestTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transition is possible from s.
func (s RequestStatus) Terminal() bool {
	return len(requestTransitions[s]) == 0
}
