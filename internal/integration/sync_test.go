//go:build integration

package integration_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pgeventbus "github.com/alanyang/projects-sync/internal/adapter/postgres/eventbus"
	pglocker "github.com/alanyang/projects-sync/internal/adapter/postgres/locker"
	pgrun "github.com/alanyang/projects-sync/internal/adapter/postgres/run"
	"github.com/alanyang/projects-sync/internal/domain/event"
	domainrun "github.com/alanyang/projects-sync/internal/domain/run"
	portgateway "github.com/alanyang/projects-sync/internal/port/gateway"
	syncsvc "github.com/alanyang/projects-sync/internal/service/projectsync"
	"github.com/alanyang/projects-sync/internal/service/reconcile"
	"github.com/alanyang/projects-sync/internal/testutil"
)

// ── test harness ──────────────────────────────────────────────────────────────

type testServices struct {
	pool    *pgxpool.Pool
	bus     *pgeventbus.EventBus
	syncSvc *syncsvc.Service
	gw      *testutil.FakeGateway
	owner   string
	repo    string
}

func newTestServices(t *testing.T, titles ...string) *testServices {
	t.Helper()
	pool := testutil.SetupTestDB(t)

	// Isolated repository per test; the database is shared.
	owner := "acme"
	repo := "integration-" + uuid.New().String()[:8]
	gw := testutil.NewFakeGateway(owner, repo, titles...)
	bus := pgeventbus.New(pool)

	svc := syncsvc.NewService(gw, pgrun.New(pool), bus, pglocker.New(pool),
		reconcile.Config{ConsistencyThreshold: 2, MaxFetchAttempts: 2, RetryDelay: time.Millisecond})

	return &testServices{pool: pool, bus: bus, syncSvc: svc, gw: gw, owner: owner, repo: repo}
}

func (ts *testServices) sync(t *testing.T, titles ...string) (domainrun.Run, error) {
	t.Helper()
	return ts.syncSvc.Run(context.Background(), syncsvc.Request{
		Owner: ts.owner, Repository: ts.repo, Titles: titles,
	})
}

// ── scenarios ─────────────────────────────────────────────────────────────────

func TestSync_RunIsPersistedAndListed(t *testing.T) {
	ts := newTestServices(t, "Keep", "Gone")
	ctx := context.Background()

	r, err := ts.sync(t, "Keep", "New")
	require.NoError(t, err)

	stored, err := ts.syncSvc.GetRun(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, domainrun.StatusSucceeded, stored.Status)
	assert.Equal(t, []string{"Keep", "New"}, stored.FinalTitles)
	require.Len(t, stored.Created, 1)
	assert.Equal(t, "New", stored.Created[0].Title)
	require.Len(t, stored.Deleted, 1)
	assert.Equal(t, "Gone", stored.Deleted[0].Title)

	runs, err := ts.syncSvc.ListRuns(ctx, ts.owner, ts.repo, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, r.ID, runs[0].ID)
}

func TestSync_FailedRunRecordsPartialWork(t *testing.T) {
	ts := newTestServices(t, "Gone")
	ts.gw.Err = portgateway.ErrRateLimit
	ts.gw.ErrOp = "DeleteProject"

	r, err := ts.sync(t, "New")
	require.ErrorIs(t, err, portgateway.ErrRateLimit)

	stored, err := ts.syncSvc.GetRun(context.Background(), r.ID)
	require.NoError(t, err)
	assert.Equal(t, domainrun.StatusFailed, stored.Status)
	assert.NotEmpty(t, stored.Error)
	require.Len(t, stored.Created, 1)
	assert.Empty(t, stored.Deleted)
}

// Concurrent runs against one repository are serialized by the advisory lock,
// so the second run observes the first one's creates instead of repeating them.
func TestSync_ConcurrentRunsAreSerialized(t *testing.T) {
	ts := newTestServices(t)

	const runners = 3
	var wg sync.WaitGroup
	errs := make(chan error, runners)
	for range runners {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := ts.sync(t, "A", "B")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	assert.Len(t, ts.gw.CallsTo("CreateProject"), 2)
	assert.ElementsMatch(t, []string{"A", "B"}, ts.gw.Titles())
}

func TestSync_EventsAreDeliveredOverNotify(t *testing.T) {
	ts := newTestServices(t, "Gone")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		mu    sync.Mutex
		types []event.Type
	)
	done := make(chan struct{})
	sub, err := ts.bus.Subscribe(ctx, event.ChannelSync, func(_ context.Context, e event.Event) {
		if e.Repository != ts.repo {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		types = append(types, e.Type)
		if e.Type == event.TypeSyncCompleted {
			close(done)
		}
	})
	require.NoError(t, err)
	defer sub.Unsubscribe()

	_, err = ts.sync(t, "New")
	require.NoError(t, err)

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for sync_completed")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []event.Type{
		event.TypeSyncStarted,
		event.TypeProjectCreated,
		event.TypeProjectDeleted,
		event.TypeSyncCompleted,
	}, types)
}
