// Package repository declares the transactional storage contract the
// services rely on. Engines live in the postgres and sqlite subpackages.
package repository

import (
	"context"
	"errors"

	"github.com/ianibaeva/explore-with-me/internal/model"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when an insert violates a uniqueness constraint:
// a second active request for the same (event, requester) pair, or a reused email.
var ErrDuplicate = errors.New("duplicate")

// Queries are the reads available both inside and outside a transaction.
type Queries interface {
	GetUser(ctx context.Context, id string) (*model.User, error)
	ListUsers(ctx context.Context, ids []string, offset, limit int) ([]model.User, error)

	GetEvent(ctx context.Context, id string) (*model.Event, error)
	ListEvents(ctx context.Context, filter model.EventFilter) ([]model.Event, error)

	GetRequest(ctx context.Context, id string) (*model.Request, error)
	ListRequestsByEvent(ctx context.Context, eventID string) ([]model.Request, error)
	ListRequestsByRequester(ctx context.Context, requesterID string) ([]model.Request, error)
}

// Tx is a unit of work. Every check-then-write on an event's confirmed
// counter must happen after LockEvent on that event, within one Tx.
type Tx interface {
	Queries

	// LockEvent reads the event and holds an exclusive lock on its row
	// until the transaction ends.
	LockEvent(ctx context.Context, id string) (*model.Event, error)

	CreateUser(ctx context.Context, u *model.User) error
	CreateEvent(ctx context.Context, e *model.Event) error

	// UpdateEvent writes every column except confirmed_requests.
	UpdateEvent(ctx context.Context, e *model.Event) error

	// SetConfirmedRequests stores the confirmed counter of a locked event.
	SetConfirmedRequests(ctx context.Context, eventID string, confirmed int) error

	// FindActiveRequest returns the non-canceled request of requesterID for
	// eventID, or ErrNotFound.
	FindActiveRequest(ctx context.Context, eventID, requesterID string) (*model.Request, error)

	// GetRequestsByIDs returns the requests of eventID whose id is in ids.
	// Unknown ids, and ids of other events, are silently absent.
	GetRequestsByIDs(ctx context.Context, eventID string, ids []string) ([]model.Request, error)

	CreateRequest(ctx context.Context, r *model.Request) error
	UpdateRequestStatus(ctx context.Context, id string, status model.RequestStatus) error
}

// Store is a transactional event catalog and request store.
type Store interface {
	Queries

	// InTx runs fn in a transaction, committing when fn returns nil and
	// rolling back otherwise.
	InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error

	Close() error
}
