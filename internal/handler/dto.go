package handler

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/ianibaeva/explore-with-me/internal/model"
)

// TimeLayout is the wire format of every timestamp, always in UTC.
const TimeLayout = "2006-01-02 15:04:05"

// wireTime marshals as a TimeLayout string.
type wireTime time.Time

func (t wireTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Time(t).UTC().Format(TimeLayout))
}

func (t *wireTime) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("timestamp must be a string in layout %q", TimeLayout)
	}
	parsed, err := time.ParseInLocation(TimeLayout, s, time.UTC)
	if err != nil {
		return fmt.Errorf("timestamp %q does not match layout %q", s, TimeLayout)
	}
	*t = wireTime(parsed)
	return nil
}

func timePtr(t *wireTime) *time.Time {
	if t == nil {
		return nil
	}
	v := time.Time(*t)
	return &v
}

type locationDTO struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// ─── Requests bodies ─────────────────────────────────────────────────────────

type newEventRequest struct {
	Category          string       `json:"category"`
	Title             string       `json:"title"`
	Annotation        string       `json:"annotation"`
	Description       string       `json:"description"`
	EventDate         wireTime     `json:"eventDate"`
	Location          *locationDTO `json:"location"`
	Paid              *bool        `json:"paid"`
	ParticipantLimit  *int         `json:"participantLimit"`
	RequestModeration *bool        `json:"requestModeration"`
}

// draft applies the creation defaults: unpaid, unlimited, moderated.
func (r newEventRequest) draft() model.EventDraft {
	d := model.EventDraft{
		CategoryID:        r.Category,
		Title:             r.Title,
		Annotation:        r.Annotation,
		Description:       r.Description,
		EventDate:         time.Time(r.EventDate),
		RequestModeration: true,
	}
	if r.Location != nil {
		d.Location = model.Location{Lat: r.Location.Lat, Lon: r.Location.Lon}
	}
	if r.Paid != nil {
		d.Paid = *r.Paid
	}
	if r.ParticipantLimit != nil {
		d.ParticipantLimit = *r.ParticipantLimit
	}
	if r.RequestModeration != nil {
		d.RequestModeration = *r.RequestModeration
	}
	return d
}

type updateEventRequest struct {
	Category          *string      `json:"category"`
	Title             *string      `json:"title"`
	Annotation        *string      `json:"annotation"`
	Description       *string      `json:"description"`
	EventDate         *wireTime    `json:"eventDate"`
	Location          *locationDTO `json:"location"`
	Paid              *bool        `json:"paid"`
	ParticipantLimit  *int         `json:"participantLimit"`
	RequestModeration *bool        `json:"requestModeration"`
	StateAction       string       `json:"stateAction"`
}

func (r updateEventRequest) patch() model.EventPatch {
	p := model.EventPatch{
		CategoryID:        r.Category,
		Title:             r.Title,
		Annotation:        r.Annotation,
		Description:       r.Description,
		EventDate:         timePtr(r.EventDate),
		Paid:              r.Paid,
		ParticipantLimit:  r.ParticipantLimit,
		RequestModeration: r.RequestModeration,
		StateAction:       model.StateAction(r.StateAction),
	}
	if r.Location != nil {
		p.Location = &model.Location{Lat: r.Location.Lat, Lon: r.Location.Lon}
	}
	return p
}

type statusUpdateRequest struct {
	RequestIDs []string `json:"requestIds"`
	Status     string   `json:"status"`
}

type newUserRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// ─── Response bodies ─────────────────────────────────────────────────────────

type eventResponse struct {
	ID                string      `json:"id"`
	Initiator         string      `json:"initiator"`
	Category          string      `json:"category"`
	Title             string      `json:"title"`
	Annotation        string      `json:"annotation"`
	Description       string      `json:"description"`
	EventDate         wireTime    `json:"eventDate"`
	Location          locationDTO `json:"location"`
	Paid              bool        `json:"paid"`
	ParticipantLimit  int         `json:"participantLimit"`
	RequestModeration bool        `json:"requestModeration"`
	State             string      `json:"state"`
	CreatedOn         wireTime    `json:"createdOn"`
	PublishedOn       *wireTime   `json:"publishedOn,omitempty"`
	ConfirmedRequests int         `json:"confirmedRequests"`
}

func toEventResponse(e *model.Event) eventResponse {
	resp := eventResponse{
		ID:                e.ID,
		Initiator:         e.OwnerID,
		Category:          e.CategoryID,
		Title:             e.Title,
		Annotation:        e.Annotation,
		Description:       e.Description,
		EventDate:         wireTime(e.EventDate),
		Location:          locationDTO{Lat: e.Location.Lat, Lon: e.Location.Lon},
		Paid:              e.Paid,
		ParticipantLimit:  e.ParticipantLimit,
		RequestModeration: e.RequestModeration,
		State:             string(e.State),
		CreatedOn:         wireTime(e.CreatedOn),
		ConfirmedRequests: e.ConfirmedRequests,
	}
	if e.PublishedOn != nil {
		published := wireTime(*e.PublishedOn)
		resp.PublishedOn = &published
	}
	return resp
}

func toEventResponses(events []model.Event) []eventResponse {
	out := make([]eventResponse, 0, len(events))
	for i := range events {
		out = append(out, toEventResponse(&events[i]))
	}
	return out
}

type requestResponse struct {
	ID        string   `json:"id"`
	Event     string   `json:"event"`
	Requester string   `json:"requester"`
	Status    string   `json:"status"`
	Created   wireTime `json:"created"`
}

func toRequestResponse(r *model.Request) requestResponse {
	return requestResponse{
		ID:        r.ID,
		Event:     r.EventID,
		Requester: r.RequesterID,
		Status:    string(r.Status),
		Created:   wireTime(r.Created),
	}
}

func toRequestResponses(requests []model.Request) []requestResponse {
	out := make([]requestResponse, 0, len(requests))
	for i := range requests {
		out = append(out, toRequestResponse(&requests[i]))
	}
	return out
}

type statusUpdateResponse struct {
	ConfirmedRequests []requestResponse `json:"confirmedRequests"`
	RejectedRequests  []requestResponse `json:"rejectedRequests"`
}

type userResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func toUserResponse(u *model.User) userResponse {
	return userResponse{ID: u.ID, Name: u.Name, Email: u.Email}
}

// errorResponse is the body of every non-2xx response.
type errorResponse struct {
	Status    string `json:"status"`
	Reason    string `json:"reason"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}
