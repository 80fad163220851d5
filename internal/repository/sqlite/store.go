// Package sqlite provides a SQLite-backed event catalog and request store.
//
// Transactions start with BEGIN IMMEDIATE and the pool holds one connection,
// so every transaction owns the database write lock from its first read.
// That serialises all check-then-write sequences on confirmed counters.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/ianibaeva/explore-with-me/internal/model"
	"github.com/ianibaeva/explore-with-me/internal/repository"
)

// Store persists events, requests and users in SQLite.
type Store struct {
	queries
	sqlDB *sql.DB
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type scanner interface {
	Scan(dest ...any) error
}

// queries implements repository.Queries over a *sql.DB or a *sql.Tx.
type queries struct {
	db execer
}

// tx implements repository.Tx.
type tx struct {
	queries
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

func timeArg(value time.Time) any {
	return toMillis(value)
}

// Open opens a SQLite store at path and applies embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_txlock=immediate"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	ctx := context.Background()
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(ctx, sqlDB); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{queries: queries{db: sqlDB}, sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// InTx runs fn inside an immediate transaction.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) (err error) {
	sqlTx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = sqlTx.Rollback()
		}
	}()

	if err = fn(ctx, &tx{queries{db: sqlTx}}); err != nil {
		return err
	}
	if err = sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// ─── Users ───────────────────────────────────────────────────────────────────

func scanUser(row scanner) (*model.User, error) {
	var u model.User
	var createdOn int64
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &createdOn); err != nil {
		return nil, err
	}
	u.CreatedOn = fromMillis(createdOn)
	return &u, nil
}

func (q queries) GetUser(ctx context.Context, id string) (*model.User, error) {
	u, err := scanUser(q.db.QueryRowContext(ctx,
		`SELECT id, name, email, created_on FROM users WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (q queries) ListUsers(ctx context.Context, ids []string, offset, limit int) ([]model.User, error) {
	query, args, err := repository.BuildUserQuery(repository.DialectSQLite, ids, offset, limit)
	if err != nil {
		return nil, err
	}
	rows, err := q.db.QueryContext(ctx, query, args...)
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
	_, err := t.db.ExecContext(ctx,
		`INSERT INTO users (id, name, email, created_on) VALUES (?, ?, ?, ?)`,
		u.ID, u.Name, u.Email, toMillis(u.CreatedOn),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// ─── Events ──────────────────────────────────────────────────────────────────

func scanEvent(row scanner) (*model.Event, error) {
	var (
		e           model.Event
		state       string
		eventDate   int64
		createdOn   int64
		publishedOn sql.NullInt64
	)
	err := row.Scan(
		&e.ID, &e.OwnerID, &e.CategoryID, &e.Title, &e.Annotation, &e.Description,
		&eventDate, &e.Location.Lat, &e.Location.Lon, &e.Paid, &e.ParticipantLimit,
		&e.RequestModeration, &state, &createdOn, &publishedOn, &e.ConfirmedRequests,
	)
	if err != nil {
		return nil, err
	}
	e.State = model.EventState(state)
	e.EventDate = fromMillis(eventDate)
	e.CreatedOn = fromMillis(createdOn)
	if publishedOn.Valid {
		published := fromMillis(publishedOn.Int64)
		e.PublishedOn = &published
	}
	return &e, nil
}

func nullMillis(value *time.Time) sql.NullInt64 {
	if value == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: toMillis(*value), Valid: true}
}

func (q queries) GetEvent(ctx context.Context, id string) (*model.Event, error) {
	e, err := scanEvent(q.db.QueryRowContext(ctx,
		`SELECT `+repository.EventColumnList+` FROM events WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return e, nil
}

func (q queries) ListEvents(ctx context.Context, filter model.EventFilter) ([]model.Event, error) {
	query, args, err := repository.BuildEventQuery(repository.DialectSQLite, filter, timeArg)
	if err != nil {
		return nil, err
	}
	rows, err := q.db.QueryContext(ctx, query, args...)
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

// LockEvent reads the event. The immediate transaction already holds the
// database write lock, so no row-level clause is needed.
func (t *tx) LockEvent(ctx context.Context, id string) (*model.Event, error) {
	return t.GetEvent(ctx, id)
}

func (t *tx) CreateEvent(ctx context.Context, e *model.Event) error {
	_, err := t.db.ExecContext(ctx,
		`INSERT INTO events (`+repository.EventColumnList+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.OwnerID, e.CategoryID, e.Title, e.Annotation, e.Description,
		toMillis(e.EventDate), e.Location.Lat, e.Location.Lon, e.Paid, e.ParticipantLimit,
		e.RequestModeration, string(e.State), toMillis(e.CreatedOn), nullMillis(e.PublishedOn),
		e.ConfirmedRequests,
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

func (t *tx) UpdateEvent(ctx context.Context, e *model.Event) error {
	res, err := t.db.ExecContext(ctx,
		`UPDATE events
		    SET category_id = ?, title = ?, annotation = ?, description = ?,
		        event_date = ?, location_lat = ?, location_lon = ?, paid = ?,
		        participant_limit = ?, request_moderation = ?, state = ?, published_on = ?
		  WHERE id = ?`,
		e.CategoryID, e.Title, e.Annotation, e.Description,
		toMillis(e.EventDate), e.Location.Lat, e.Location.Lon, e.Paid,
		e.ParticipantLimit, e.RequestModeration, string(e.State), nullMillis(e.PublishedOn),
		e.ID,
	)
	if err != nil {
		return fmt.Errorf("update event: %w", err)
	}
	return requireAffected(res)
}

func (t *tx) SetConfirmedRequests(ctx context.Context, eventID string, confirmed int) error {
	res, err := t.db.ExecContext(ctx,
		`UPDATE events SET confirmed_requests = ? WHERE id = ?`, confirmed, eventID)
	if err != nil {
		return fmt.Errorf("update confirmed_requests: %w", err)
	}
	return requireAffected(res)
}

// ─── Requests ────────────────────────────────────────────────────────────────

func scanRequest(row scanner) (*model.Request, error) {
	var (
		r       model.Request
		status  string
		created int64
	)
	if err := row.Scan(&r.ID, &r.EventID, &r.RequesterID, &status, &created); err != nil {
		return nil, err
	}
	r.Status = model.RequestStatus(status)
	r.Created = fromMillis(created)
	return &r, nil
}

func (q queries) listRequests(ctx context.Context, query string, args ...any) ([]model.Request, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
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
	r, err := scanRequest(q.db.QueryRowContext(ctx,
		`SELECT `+repository.RequestColumnList+` FROM requests WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("get request: %w", err)
	}
	return r, nil
}

func (q queries) ListRequestsByEvent(ctx context.Context, eventID string) ([]model.Request, error) {
	return q.listRequests(ctx,
		`SELECT `+repository.RequestColumnList+` FROM requests
		  WHERE event_id = ? ORDER BY created ASC, id ASC`, eventID)
}

func (q queries) ListRequestsByRequester(ctx context.Context, requesterID string) ([]model.Request, error) {
	return q.listRequests(ctx,
		`SELECT `+repository.RequestColumnList+` FROM requests
		  WHERE requester_id = ? ORDER BY created ASC, id ASC`, requesterID)
}

func (t *tx) FindActiveRequest(ctx context.Context, eventID, requesterID string) (*model.Request, error) {
	r, err := scanRequest(t.db.QueryRowContext(ctx,
		`SELECT `+repository.RequestColumnList+` FROM requests
		  WHERE event_id = ? AND requester_id = ? AND status <> ?`,
		eventID, requesterID, string(model.RequestCanceled)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("find active request: %w", err)
	}
	return r, nil
}

func (t *tx) GetRequestsByIDs(ctx context.Context, eventID string, ids []string) ([]model.Request, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query, args, err := repository.BuildRequestsByIDsQuery(repository.DialectSQLite, eventID, ids)
	if err != nil {
		return nil, err
	}
	return t.listRequests(ctx, query, args...)
}

func (t *tx) CreateRequest(ctx context.Context, r *model.Request) error {
	_, err := t.db.ExecContext(ctx,
		`INSERT INTO requests (`+repository.RequestColumnList+`) VALUES (?, ?, ?, ?, ?)`,
		r.ID, r.EventID, r.RequesterID, string(r.Status), toMillis(r.Created),
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
	res, err := t.db.ExecContext(ctx,
		`UPDATE requests SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return fmt.Errorf("update request status: %w", err)
	}
	return requireAffected(res)
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

var (
	_ repository.Store = (*Store)(nil)
	_ repository.Tx    = (*tx)(nil)
)
