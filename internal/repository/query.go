package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect registration
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"  // dialect registration
	"github.com/doug-martin/goqu/v9/exp"

	"github.com/ianibaeva/explore-with-me/internal/model"
)

// Dialect names understood by BuildEventQuery.
const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite3"
)

// ErrBuildingQuery is returned when a listing query cannot be rendered.
var ErrBuildingQuery = errors.New("building query failed")

// EventColumns is the column order every engine scans events in.
var EventColumns = []string{
	"id", "owner_id", "category_id", "title", "annotation", "description",
	"event_date", "location_lat", "location_lon", "paid", "participant_limit",
	"request_moderation", "state", "created_on", "published_on", "confirmed_requests",
}

// EventColumnList is EventColumns joined for hand-written statements.
var EventColumnList = strings.Join(EventColumns, ", ")

// TimeArg converts a timestamp into the representation an engine stores.
type TimeArg func(time.Time) any

// BuildEventQuery renders a prepared SELECT over events for the given
// filter, ordered by event date. Placeholders follow the dialect.
func BuildEventQuery(dialect string, filter model.EventFilter, timeArg TimeArg) (string, []any, error) {
	cols := make([]any, len(EventColumns))
	for i, c := range EventColumns {
		cols[i] = c
	}

	stmt := goqu.Dialect(dialect).
		From("events").
		Prepared(true).
		Select(cols...).
		Order(goqu.I("event_date").Asc(), goqu.I("id").Asc())

	var where []exp.Expression
	if len(filter.Owners) > 0 {
		where = append(where, goqu.C("owner_id").In(filter.Owners))
	}
	if len(filter.States) > 0 {
		states := make([]string, len(filter.States))
		for i, s := range filter.States {
			states[i] = string(s)
		}
		where = append(where, goqu.C("state").In(states))
	}
	if len(filter.Categories) > 0 {
		where = append(where, goqu.C("category_id").In(filter.Categories))
	}
	if filter.Paid != nil {
		// Eq(bool) would render IS TRUE, which sqlite stores as 1/0.
		where = append(where, goqu.L("paid = ?", *filter.Paid))
	}
	if filter.RangeStart != nil {
		where = append(where, goqu.C("event_date").Gte(timeArg(*filter.RangeStart)))
	}
	if filter.RangeEnd != nil {
		where = append(where, goqu.C("event_date").Lte(timeArg(*filter.RangeEnd)))
	}
	if filter.OnlyAvailable {
		where = append(where, goqu.Or(
			goqu.C("participant_limit").Eq(0),
			goqu.C("confirmed_requests").Lt(goqu.I("participant_limit")),
		))
	}
	if len(where) > 0 {
		stmt = stmt.Where(where...)
	}
	if filter.Limit > 0 {
		stmt = stmt.Limit(uint(filter.Limit))
	}
	if filter.Offset > 0 {
		stmt = stmt.Offset(uint(filter.Offset))
	}

	query, args, err := stmt.ToSQL()
	if err != nil {
		return "", nil, errors.Join(ErrBuildingQuery, err)
	}
	return query, args, nil
}

// BuildUserQuery renders a prepared SELECT over users, ordered by creation.
func BuildUserQuery(dialect string, ids []string, offset, limit int) (string, []any, error) {
	stmt := goqu.Dialect(dialect).
		From("users").
		Prepared(true).
		Select("id", "name", "email", "created_on").
		Order(goqu.I("created_on").Asc(), goqu.I("id").Asc())
	if len(ids) > 0 {
		stmt = stmt.Where(goqu.C("id").In(ids))
	}
	if limit > 0 {
		stmt = stmt.Limit(uint(limit))
	}
	if offset > 0 {
		stmt = stmt.Offset(uint(offset))
	}

	query, args, err := stmt.ToSQL()
	if err != nil {
		return "", nil, errors.Join(ErrBuildingQuery, err)
	}
	return query, args, nil
}

// RequestColumnList is the column order every engine scans requests in.
const RequestColumnList = "id, event_id, requester_id, status, created"

// BuildRequestsByIDsQuery renders a prepared SELECT of the requests of one
// event whose ids are listed.
func BuildRequestsByIDsQuery(dialect, eventID string, ids []string) (string, []any, error) {
	stmt := goqu.Dialect(dialect).
		From("requests").
		Prepared(true).
		Select("id", "event_id", "requester_id", "status", "created").
		Where(goqu.C("event_id").Eq(eventID), goqu.C("id").In(ids))

	query, args, err := stmt.ToSQL()
	if err != nil {
		return "", nil, errors.Join(ErrBuildingQuery, err)
	}
	return query, args, nil
}
