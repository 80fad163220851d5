package service

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ianibaeva/explore-with-me/internal/model"
	"github.com/ianibaeva/explore-with-me/internal/repository/sqlite"
)

var testNow = time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)

type testEnv struct {
	store    *sqlite.Store
	events   *EventService
	requests *RequestService
	users    *UserService
	userSeq  int
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store, err := sqlite.Open(filepath.Join(t.TempDir(), "ewm.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	clock := WithClock(func() time.Time { return testNow })
	return &testEnv{
		store:    store,
		events:   NewEventService(store, clock),
		requests: NewRequestService(store, clock),
		users:    NewUserService(store, clock),
	}
}

func (e *testEnv) user(t *testing.T) string {
	t.Helper()
	e.userSeq++
	u, err := e.users.CreateUser(context.Background(), model.NewUser{
		Name:  fmt.Sprintf("User %d", e.userSeq),
		Email: fmt.Sprintf("user%d@example.com", e.userSeq),
	})
	require.NoError(t, err)
	return u.ID
}

func draft(limit int, moderation bool) model.EventDraft {
	return model.EventDraft{
		CategoryID:        "music",
		Title:             "Open air concert",
		Annotation:        "An evening of music by the river",
		Description:       "Bring a blanket, the concert runs until midnight",
		EventDate:         testNow.Add(7 * 24 * time.Hour),
		Location:          model.Location{Lat: 55.75, Lon: 37.61},
		ParticipantLimit:  limit,
		RequestModeration: moderation,
	}
}

// publishedEvent creates and publishes an event owned by a fresh user.
func (e *testEnv) publishedEvent(t *testing.T, limit int, moderation bool) (ownerID string, event *model.Event) {
	t.Helper()
	ctx := context.Background()
	ownerID = e.user(t)

	created, err := e.events.CreateEvent(ctx, ownerID, draft(limit, moderation))
	require.NoError(t, err)
	event, err = e.events.UpdateByAdmin(ctx, created.ID, model.EventPatch{StateAction: model.ActionPublishEvent})
	require.NoError(t, err)
	return ownerID, event
}

func (e *testEnv) confirmed(t *testing.T, eventID string) int {
	t.Helper()
	event, err := e.store.GetEvent(context.Background(), eventID)
	require.NoError(t, err)
	return event.ConfirmedRequests
}

func ptr[T any](v T) *T { return &v }
