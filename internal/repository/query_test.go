package repository

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ianibaeva/explore-with-me/internal/model"
)

func millis(t time.Time) any { return t.UnixMilli() }

func TestBuildEventQueryWithoutFilter(t *testing.T) {
	query, args, err := BuildEventQuery(DialectPostgres, model.EventFilter{}, millis)
	require.NoError(t, err)

	assert.Contains(t, query, `FROM "events"`)
	assert.NotContains(t, query, "WHERE")
	assert.Contains(t, query, `ORDER BY "event_date" ASC, "id" ASC`)
	assert.Empty(t, args)
	for _, col := range EventColumns {
		assert.Contains(t, query, `"`+col+`"`)
	}
}

func TestBuildEventQueryPostgresPlaceholders(t *testing.T) {
	start := time.Date(2026, time.May, 1, 0, 0, 0, 0, time.UTC)
	filter := model.EventFilter{
		Owners:     []string{"u1", "u2"},
		States:     []model.EventState{model.EventPublished},
		RangeStart: &start,
	}

	query, args, err := BuildEventQuery(DialectPostgres, filter, millis)
	require.NoError(t, err)

	assert.Contains(t, query, `"owner_id" IN ($1, $2)`)
	assert.Contains(t, query, `"state" IN ($3)`)
	assert.Contains(t, query, `"event_date" >= $4`)
	require.Len(t, args, 4)
	assert.Equal(t, []any{"u1", "u2", "PUBLISHED", start.UnixMilli()}, args)
}

func TestBuildEventQuerySQLitePaidAndAvailability(t *testing.T) {
	paid := false
	filter := model.EventFilter{Paid: &paid, OnlyAvailable: true, Categories: []string{"music"}}

	query, args, err := BuildEventQuery(DialectSQLite, filter, millis)
	require.NoError(t, err)

	assert.NotContains(t, query, "$1")
	assert.Contains(t, query, "paid = ?")
	assert.Contains(t, query, "`participant_limit` = ?")
	assert.Contains(t, query, "`confirmed_requests` < `participant_limit`")
	assert.NotContains(t, query, "IS FALSE")
	assert.Contains(t, args, false)
	assert.Contains(t, args, "music")
}

func TestBuildEventQueryPaging(t *testing.T) {
	query, _, err := BuildEventQuery(DialectSQLite, model.EventFilter{Offset: 20, Limit: 10}, millis)
	require.NoError(t, err)

	assert.Contains(t, query, "LIMIT")
	assert.Contains(t, query, "OFFSET")
	assert.Less(t, strings.Index(query, "ORDER BY"), strings.Index(query, "LIMIT"))
}

func TestBuildUserQuery(t *testing.T) {
	query, args, err := BuildUserQuery(DialectPostgres, []string{"a", "b"}, 0, 0)
	require.NoError(t, err)

	assert.Contains(t, query, `FROM "users"`)
	assert.Contains(t, query, `"id" IN ($1, $2)`)
	assert.NotContains(t, query, "LIMIT")
	assert.Equal(t, []any{"a", "b"}, args)
}

func TestBuildRequestsByIDsQuery(t *testing.T) {
	query, args, err := BuildRequestsByIDsQuery(DialectPostgres, "ev-1", []string{"r1", "r2"})
	require.NoError(t, err)

	assert.Contains(t, query, `FROM "requests"`)
	assert.Contains(t, query, `"event_id" = $1`)
	assert.Contains(t, query, `"id" IN ($2, $3)`)
	assert.Equal(t, []any{"ev-1", "r1", "r2"}, args)
}
