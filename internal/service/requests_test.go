package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/ianibaeva/explore-with-me/internal/model"
	"github.com/ianibaeva/explore-with-me/internal/telemetry"
)

func TestSubmitUnmoderatedConfirmsAndCounts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, event := env.publishedEvent(t, 5, false)

	r, err := env.requests.Submit(ctx, env.user(t), event.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RequestConfirmed, r.Status)
	assert.Equal(t, 1, env.confirmed(t, event.ID))
}

func TestSubmitUnlimitedAlwaysConfirms(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, event := env.publishedEvent(t, 0, true)

	for i := 0; i < 5; i++ {
		r, err := env.requests.Submit(ctx, env.user(t), event.ID)
		require.NoError(t, err)
		assert.Equal(t, model.RequestConfirmed, r.Status)
	}
	assert.Equal(t, 5, env.confirmed(t, event.ID))
}

func TestSubmitModeratedStaysPending(t *testing.T) {
	env := newTestEnv(t)
	_, event := env.publishedEvent(t, 2, true)

	r, err := env.requests.Submit(context.Background(), env.user(t), event.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RequestPending, r.Status)
	assert.Zero(t, env.confirmed(t, event.ID))
}

func TestSubmitFailures(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner, event := env.publishedEvent(t, 1, false)

	_, err := env.requests.Submit(ctx, owner, event.ID)
	assert.ErrorIs(t, err, model.ErrOwnEventRequest)
	assert.ErrorIs(t, err, model.ErrConflict)

	_, err = env.requests.Submit(ctx, "ghost", event.ID)
	assert.ErrorIs(t, err, model.ErrUserNotFound)

	guest := env.user(t)
	_, err = env.requests.Submit(ctx, guest, "missing")
	assert.ErrorIs(t, err, model.ErrEventNotFound)

	pending, err := env.events.CreateEvent(ctx, owner, draft(0, true))
	require.NoError(t, err)
	_, err = env.requests.Submit(ctx, guest, pending.ID)
	assert.ErrorIs(t, err, model.ErrEventNotPublished)

	_, err = env.requests.Submit(ctx, guest, event.ID)
	require.NoError(t, err)
	_, err = env.requests.Submit(ctx, guest, event.ID)
	assert.ErrorIs(t, err, model.ErrDuplicateRequest)

	_, err = env.requests.Submit(ctx, env.user(t), event.ID)
	assert.ErrorIs(t, err, model.ErrEventFull)
	assert.Equal(t, 1, env.confirmed(t, event.ID))
}

func TestResubmitAfterCancel(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, event := env.publishedEvent(t, 2, true)
	guest := env.user(t)

	first, err := env.requests.Submit(ctx, guest, event.ID)
	require.NoError(t, err)
	_, err = env.requests.Cancel(ctx, guest, first.ID)
	require.NoError(t, err)

	second, err := env.requests.Submit(ctx, guest, event.ID)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	mine, err := env.requests.ListForRequester(ctx, guest)
	require.NoError(t, err)
	assert.Len(t, mine, 2)
}

func TestCancelAdjustsCounter(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, unmoderated := env.publishedEvent(t, 3, false)
	guest := env.user(t)
	confirmed, err := env.requests.Submit(ctx, guest, unmoderated.ID)
	require.NoError(t, err)
	require.Equal(t, 1, env.confirmed(t, unmoderated.ID))

	canceled, err := env.requests.Cancel(ctx, guest, confirmed.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RequestCanceled, canceled.Status)
	assert.Equal(t, 0, env.confirmed(t, unmoderated.ID))

	_, moderated := env.publishedEvent(t, 3, true)
	pending, err := env.requests.Submit(ctx, guest, moderated.ID)
	require.NoError(t, err)
	_, err = env.requests.Cancel(ctx, guest, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, env.confirmed(t, moderated.ID))
}

func TestCancelFailures(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner, event := env.publishedEvent(t, 3, true)
	guest := env.user(t)
	stranger := env.user(t)

	r, err := env.requests.Submit(ctx, guest, event.ID)
	require.NoError(t, err)

	_, err = env.requests.Cancel(ctx, stranger, r.ID)
	assert.ErrorIs(t, err, model.ErrNotRequester)
	assert.ErrorIs(t, err, model.ErrConflict)

	_, err = env.requests.Cancel(ctx, guest, "missing")
	assert.ErrorIs(t, err, model.ErrRequestNotFound)

	_, err = env.requests.Cancel(ctx, guest, r.ID)
	require.NoError(t, err)
	_, err = env.requests.Cancel(ctx, guest, r.ID)
	assert.ErrorIs(t, err, model.ErrRequestTerminal)

	again, err := env.requests.Submit(ctx, guest, event.ID)
	require.NoError(t, err)
	_, err = env.requests.DecideBulk(ctx, owner, event.ID, model.StatusUpdate{
		RequestIDs: []string{again.ID},
		Status:     model.RequestRejected,
	})
	require.NoError(t, err)
	_, err = env.requests.Cancel(ctx, guest, again.ID)
	assert.ErrorIs(t, err, model.ErrRequestTerminal)
}

func TestDecideBulkOverflowRejectsRemainder(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner, event := env.publishedEvent(t, 2, true)

	var ids []string
	for i := 0; i < 3; i++ {
		r, err := env.requests.Submit(ctx, env.user(t), event.ID)
		require.NoError(t, err)
		require.Equal(t, model.RequestPending, r.Status)
		ids = append(ids, r.ID)
	}
	require.Zero(t, env.confirmed(t, event.ID))

	result, err := env.requests.DecideBulk(ctx, owner, event.ID, model.StatusUpdate{
		RequestIDs: ids,
		Status:     model.RequestConfirmed,
	})
	require.NoError(t, err)
	require.Len(t, result.Confirmed, 2)
	require.Len(t, result.Rejected, 1)
	assert.Equal(t, ids[0], result.Confirmed[0].ID)
	assert.Equal(t, ids[1], result.Confirmed[1].ID)
	assert.Equal(t, ids[2], result.Rejected[0].ID)
	assert.Equal(t, model.RequestRejected, result.Rejected[0].Status)
	assert.Equal(t, 2, env.confirmed(t, event.ID))

	listed, err := env.requests.ListForOwner(ctx, owner, event.ID)
	require.NoError(t, err)
	statuses := map[model.RequestStatus]int{}
	for _, r := range listed {
		statuses[r.Status]++
	}
	assert.Equal(t, 2, statuses[model.RequestConfirmed])
	assert.Equal(t, 1, statuses[model.RequestRejected])
}

func TestDecideBulkRejects(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner, event := env.publishedEvent(t, 2, true)
	r, err := env.requests.Submit(ctx, env.user(t), event.ID)
	require.NoError(t, err)

	result, err := env.requests.DecideBulk(ctx, owner, event.ID, model.StatusUpdate{
		RequestIDs: []string{r.ID, r.ID},
		Status:     model.RequestRejected,
	})
	require.NoError(t, err)
	assert.Empty(t, result.Confirmed)
	require.Len(t, result.Rejected, 1)
	assert.Zero(t, env.confirmed(t, event.ID))
}

func TestDecideBulkFailures(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner, event := env.publishedEvent(t, 1, true)
	first, err := env.requests.Submit(ctx, env.user(t), event.ID)
	require.NoError(t, err)
	second, err := env.requests.Submit(ctx, env.user(t), event.ID)
	require.NoError(t, err)

	confirm := func(ids ...string) error {
		_, err := env.requests.DecideBulk(ctx, owner, event.ID, model.StatusUpdate{RequestIDs: ids, Status: model.RequestConfirmed})
		return err
	}

	_, err = env.requests.DecideBulk(ctx, owner, event.ID, model.StatusUpdate{RequestIDs: []string{first.ID}, Status: model.RequestCanceled})
	assert.ErrorIs(t, err, model.ErrInvalidStatus)
	assert.ErrorIs(t, confirm(), model.ErrNoRequestIDs)
	assert.ErrorIs(t, confirm(first.ID, "missing"), model.ErrRequestNotFound)
	assert.Equal(t, model.RequestPending, requestStatus(t, env, first.ID))

	_, err = env.requests.DecideBulk(ctx, env.user(t), event.ID, model.StatusUpdate{RequestIDs: []string{first.ID}, Status: model.RequestConfirmed})
	assert.ErrorIs(t, err, model.ErrEventNotFound)

	require.NoError(t, confirm(first.ID))
	assert.ErrorIs(t, confirm(second.ID), model.ErrEventFull)
	_, err = env.requests.DecideBulk(ctx, owner, event.ID, model.StatusUpdate{RequestIDs: []string{first.ID}, Status: model.RequestRejected})
	assert.ErrorIs(t, err, model.ErrRequestNotPending)
}

func TestDecideBulkRequiresPublishedEvent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.user(t)
	pending, err := env.events.CreateEvent(ctx, owner, draft(3, true))
	require.NoError(t, err)

	_, err = env.requests.DecideBulk(ctx, owner, pending.ID, model.StatusUpdate{RequestIDs: []string{"any"}, Status: model.RequestConfirmed})
	assert.ErrorIs(t, err, model.ErrEventNotPublished)
}

func TestListForOwnerRequiresOwnership(t *testing.T) {
	env := newTestEnv(t)
	_, event := env.publishedEvent(t, 0, true)

	_, err := env.requests.ListForOwner(context.Background(), env.user(t), event.ID)
	assert.ErrorIs(t, err, model.ErrEventNotFound)
}

func TestConcurrentSubmitsNeverOverfill(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	const limit, requesters = 3, 12
	_, event := env.publishedEvent(t, limit, false)

	guests := make([]string, requesters)
	for i := range guests {
		guests[i] = env.user(t)
	}

	var (
		wg               sync.WaitGroup
		mu               sync.Mutex
		admitted, denied int
	)
	for _, guest := range guests {
		wg.Add(1)
		go func(guest string) {
			defer wg.Done()
			_, err := env.requests.Submit(ctx, guest, event.ID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				admitted++
			case errors.Is(err, model.ErrEventFull):
				denied++
			default:
				t.Errorf("unexpected submit error: %v", err)
			}
		}(guest)
	}
	wg.Wait()

	assert.Equal(t, limit, admitted)
	assert.Equal(t, requesters-limit, denied)
	assert.Equal(t, limit, env.confirmed(t, event.ID))
}

func TestConcurrentDecideAndCancelKeepCounterExact(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	const limit, seated, waiting = 4, 4, 8
	owner, event := env.publishedEvent(t, limit, true)

	submit := func() (string, string) {
		guest := env.user(t)
		req, err := env.requests.Submit(ctx, guest, event.ID)
		require.NoError(t, err)
		return guest, req.ID
	}

	type seat struct{ guest, requestID string }
	seats := make([]seat, seated)
	seatIDs := make([]string, seated)
	for i := range seats {
		seats[i].guest, seats[i].requestID = submit()
		seatIDs[i] = seats[i].requestID
	}
	_, err := env.requests.DecideBulk(ctx, owner, event.ID, model.StatusUpdate{RequestIDs: seatIDs, Status: model.RequestConfirmed})
	require.NoError(t, err)
	require.Equal(t, limit, env.confirmed(t, event.ID))

	pending := make([]string, waiting)
	for i := range pending {
		_, pending[i] = submit()
	}

	var wg sync.WaitGroup
	for _, s := range seats {
		wg.Add(1)
		go func(s seat) {
			defer wg.Done()
			if _, err := env.requests.Cancel(ctx, s.guest, s.requestID); err != nil {
				t.Errorf("cancel %s: %v", s.requestID, err)
			}
		}(s)
	}
	for _, id := range pending {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, err := env.requests.DecideBulk(ctx, owner, event.ID, model.StatusUpdate{RequestIDs: []string{id}, Status: model.RequestConfirmed})
			if err != nil && !errors.Is(err, model.ErrEventFull) {
				t.Errorf("decide %s: %v", id, err)
			}
		}(id)
	}
	wg.Wait()

	requests, err := env.requests.ListForOwner(ctx, owner, event.ID)
	require.NoError(t, err)
	confirmedRows := 0
	for _, r := range requests {
		if r.Status == model.RequestConfirmed {
			confirmedRows++
		}
	}
	counter := env.confirmed(t, event.ID)
	assert.Equal(t, confirmedRows, counter)
	assert.LessOrEqual(t, counter, limit)
}

func TestSubmitRecordsMetrics(t *testing.T) {
	env := newTestEnv(t)
	reader := sdkmetric.NewManualReader()
	metrics, err := telemetry.NewMetrics(sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)))
	require.NoError(t, err)
	svc := NewRequestService(env.store, WithClock(func() time.Time { return testNow }), WithMetrics(metrics))
	_, event := env.publishedEvent(t, 0, true)

	_, err = svc.Submit(context.Background(), env.user(t), event.ID)
	require.NoError(t, err)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "ewm_requests_admitted_total" {
				continue
			}
			for _, dp := range m.Data.(metricdata.Sum[int64]).DataPoints {
				total += dp.Value
			}
		}
	}
	assert.Equal(t, int64(1), total)
}

func requestStatus(t *testing.T, env *testEnv, id string) model.RequestStatus {
	t.Helper()
	r, err := env.store.GetRequest(context.Background(), id)
	require.NoError(t, err)
	return r.Status
}
