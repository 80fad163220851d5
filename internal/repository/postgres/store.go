// Package postgres implements the event catalog and request store on
// PostgreSQL using pgx directly.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ianibaeva/explore-with-me/internal/model"
	"github.com/ianibaeva/explore-with-me/internal/repository"
)

// uniqueViolation is the SQLSTATE PostgreSQL reports for unique index conflicts.
const uniqueViolation = "23505"

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type queries struct {
	db querier
}

type tx struct {
	queries
}

// Store persists events, requests and users in PostgreSQL.
type Store struct {
	queries
	pool *pgxpool.Pool
}

// New wraps an already connected and migrated pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{queries: queries{db: pool}, pool: pool}
}

// Close releases the pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// InTx runs fn inside a read-committed transaction. Row locks taken by
// LockEvent are released on commit or rollback.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) (err error) {
	pgTx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = pgTx.Rollback(ctx)
		}
	}()

	if err = fn(ctx, &tx{queries{db: pgTx}}); err != nil {
		return err
	}
	if err = pgTx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func timeArg(value time.Time) any {
	return value.UTC()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func notFound(err error, what string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return repository.ErrNotFound
	}
	return fmt.Errorf("%s: %w", what, err)
}

func requireAffected(tag pgconn.CommandTag) error {
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// ── Users ────────────────────────────────────────────────────────────────────

func scanUser(row pgx.Row) (*model.User, error) {
	var u model.User
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.CreatedOn); err != nil {
		return nil, err
	}
	u.CreatedOn = u.CreatedOn.UTC()
	return &u, nil
}

func (q queries) GetUser(ctx context.Context, id string) (*model.User, error) {
	u, err := scanUser(q.db.QueryRow(ctx,
		`SELECT id, name, email, created_on FROM users WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, "get user")
	}
	return u, nil
}

func (q queries) ListUsers(ctx context.Context, ids []string, offset, limit int) ([]model.User, error) {
	query, args, err := repository.BuildUserQuery(repository.DialectPostgres, ids, offset, limit)
	if err != nil {
		return nil, err
	}
	rows, err := q.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

func (t *tx) CreateUser(ctx context.Context, u *model.User) error {
	_, err := t.db.Exec(ctx,
		`INSERT INTO users (id, name, email, created_on) VALUES ($1, $2, $3, $4)`,
		u.ID, u.Name, u.Email, u.CreatedOn.UTC(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// ── Events ───────────────────────────────────────────────────────────────────

func scanEvent(row pgx.Row) (*model.Event, error) {
	var (
		e     model.Event
		state string
	)
	err := row.Scan(
		&e.ID, &e.OwnerID, &e.CategoryID, &e.Title, &e.Annotation, &e.Description,
		&e.EventDate, &e.Location.Lat, &e.Location.Lon, &e.Paid, &e.ParticipantLimit,
		&e.RequestModeration, &state, &e.CreatedOn, &e.PublishedOn, &e.ConfirmedRequests,
	)
	if err != nil {
		return nil, err
	}
	e.State = model.EventState(state)
	e.EventDate = e.EventDate.UTC()
	e.CreatedOn = e.CreatedOn.UTC()
	if e.PublishedOn != nil {
		published := e.PublishedOn.UTC()
		e.PublishedOn = &published
	}
	return &e, nil
}

func (q queries) GetEvent(ctx context.Context, id string) (*model.Event, error) {
	e, err := scanEvent(q.db.QueryRow(ctx,
		`SELECT `+repository.EventColumnList+` FROM events WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, "get event")
	}
	return e, nil
}

func (q queries) ListEvents(ctx context.Context, filter model.EventFilter) ([]model.Event, error) {
	query, args, err := repository.BuildEventQuery(repository.DialectPostgres, filter, timeArg)
	if err != nil {
		return nil, err
	}
	rows, err := q.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, *e)
	}
	return events, rows.Err()
}

// LockEvent acquires a row-level exclusive lock on the event. Concurrent
// transactions locking the same event block until this one ends.
func (t *tx) LockEvent(ctx context.Context, id string) (*model.Event, error) {
	e, err := scanEvent(t.db.QueryRow(ctx,
		`SELECT `+repository.EventColumnList+` FROM events WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, notFound(err, "lock event row")
	}
	return e, nil
}

func (t *tx) CreateEvent(ctx context.Context, e *model.Event) error {
	_, err := t.db.Exec(ctx,
		`INSERT INTO events (`+repository.EventColumnList+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		e.ID, e.OwnerID, e.CategoryID, e.Title, e.Annotation, e.Description,
		e.EventDate.UTC(), e.Location.Lat, e.Location.Lon, e.Paid, e.ParticipantLimit,
		e.RequestModeration, string(e.State), e.CreatedOn.UTC(), e.PublishedOn, e.ConfirmedRequests,
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

func (t *tx) UpdateEvent(ctx context.Context, e *model.Event) error {
	tag, err := t.db.Exec(ctx,
		`UPDATE events
		    SET category_id = $2, title = $3, annotation = $4, description = $5,
		        event_date = $6, location_lat = $7, location_lon = $8, paid = $9,
		        participant_limit = $10, request_moderation = $11, state = $12, published_on = $13
		  WHERE id = $1`,
		e.ID, e.CategoryID, e.Title, e.Annotation, e.Description,
		e.EventDate.UTC(), e.Location.Lat, e.Location.Lon, e.Paid,
		e.ParticipantLimit, e.RequestModeration, string(e.State), e.PublishedOn,
	)
	if err != nil {
		return fmt.Errorf("update event: %w", err)
	}
	return requireAffected(tag)
}

func (t *tx) SetConfirmedRequests(ctx context.Context, eventID string, confirmed int) error {
	tag, err := t.db.Exec(ctx,
		`UPDATE events SET confirmed_requests = $2 WHERE id = $1`, eventID, confirmed)
	if err != nil {
		return fmt.Errorf("update confirmed_requests: %w", err)
	}
	return requireAffected(tag)
}

// ── Requests ─────────────────────────────────────────────────────────────────

func scanRequest(row pgx.Row) (*model.Request, error) {
	var (
		r      model.Request
		status string
	)
	if err := row.Scan(&r.ID, &r.EventID, &r.RequesterID, &status, &r.Created); err != nil {
		return nil, err
	}
	r.Status = model.RequestStatus(status)
	r.Created = r.Created.UTC()
	return &r, nil
}

func (q queries) listRequests(ctx context.Context, query string, args ...any) ([]model.Request, error) {
	rows, err := q.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	defer rows.Close()

	var requests []model.Request
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan request: %w", err)
		}
		requests = append(requests, *r)
	}
	return requests, rows.Err()
}

func (q queries) GetRequest(ctx context.Context, id string) (*model.Request, error) {
	r, err := scanRequest(q.db.QueryRow(ctx,
		`SELECT `+repository.RequestColumnList+` FROM requests WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, "get request")
	}
	return r, nil
}

func (q queries) ListRequestsByEvent(ctx context.Context, eventID string) ([]model.Request, error) {
	return q.listRequests(ctx,
		`SELECT `+repository.RequestColumnList+` FROM requests
		  WHERE event_id = $1 ORDER BY created ASC, id ASC`, eventID)
}

func (q queries) ListRequestsByRequester(ctx context.Context, requesterID string) ([]model.Request, error) {
	return q.listRequests(ctx,
		`SELECT `+repository.RequestColumnList+` FROM requests
		  WHERE requester_id = $1 ORDER BY created ASC, id ASC`, requesterID)
}

func (t *tx) FindActiveRequest(ctx context.Context, eventID, requesterID string) (*model.Request, error) {
	r, err := scanRequest(t.db.QueryRow(ctx,
		`SELECT `+repository.RequestColumnList+` FROM requests
		  WHERE event_id = $1 AND requester_id = $2 AND status <> $3`,
		eventID, requesterID, string(model.RequestCanceled)))
	if err != nil {
		return nil, notFound(err, "find active request")
	}
	return r, nil
}

func (t *tx) GetRequestsByIDs(ctx context.Context, eventID string, ids []string) ([]model.Request, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query, args, err := repository.BuildRequestsByIDsQuery(repository.DialectPostgres, eventID, ids)
	if err != nil {
		return nil, err
	}
	return t.listRequests(ctx, query, args...)
}

func (t *tx) CreateRequest(ctx context.Context, r *model.Request) error {
	_, err := t.db.Exec(ctx,
		`INSERT INTO requests (`+repository.RequestColumnList+`) VALUES ($1, $2, $3, $4, $5)`,
		r.ID, r.EventID, r.RequesterID, string(r.Status), r.Created.UTC(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("insert request: %w", err)
	}
	return nil
}

func (t *tx) UpdateRequestStatus(ctx context.Context, id string, status model.RequestStatus) error {
	tag, err := t.db.Exec(ctx,
		`UPDATE requests SET status = $2 WHERE id = $1`, id, string(status))
	if err != nil {
		return fmt.Errorf("update request status: %w", err)
	}
	return requireAffected(tag)
}

var (
	_ repository.Store = (*Store)(nil)
	_ repository.Tx    = (*tx)(nil)
)
