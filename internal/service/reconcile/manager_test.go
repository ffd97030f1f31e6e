package reconcile_test

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	domainproject "github.com/alanyang/projects-sync/internal/domain/project"
	"github.com/alanyang/projects-sync/internal/mocks"
	portgateway "github.com/alanyang/projects-sync/internal/port/gateway"
	"github.com/alanyang/projects-sync/internal/service/reconcile"
)

// ── helpers ───────────────────────────────────────────────────────────────────

const (
	owner    = "acme"
	repoName = "example-repository"
	cmid     = "sync-repository-projects-acme-example-repository"
)

var (
	org  = domainproject.Organization{ID: "O_0000000001", Name: "ACME Corporation"}
	repo = domainproject.Repository{ID: "R_0000000001", Owner: owner, Name: repoName}
)

func projects(titles ...string) []domainproject.Project {
	out := make([]domainproject.Project, len(titles))
	for i, t := range titles {
		out[i] = domainproject.Project{ID: "PVT_" + t, Title: t}
	}
	return out
}

type sleepRecorder struct {
	calls []time.Duration
}

func (s *sleepRecorder) sleep(_ context.Context, d time.Duration) error {
	s.calls = append(s.calls, d)
	return nil
}

func newManager(t *testing.T, cfg reconcile.Config) (*reconcile.Manager, *mocks.MockGateway, *sleepRecorder) {
	t.Helper()
	ctrl := gomock.NewController(t)
	gw := mocks.NewMockGateway(ctrl)
	rec := &sleepRecorder{}
	m := reconcile.NewManager(gw, owner, repoName, cfg, reconcile.WithSleep(rec.sleep))
	return m, gw, rec
}

func expectOrg(gw *mocks.MockGateway) {
	gw.EXPECT().FetchOrganization(gomock.Any(), owner).Return(org, nil)
}

func expectFetch(gw *mocks.MockGateway, snapshot []domainproject.Project) *gomock.Call {
	return gw.EXPECT().FetchRepositoryAndProjects(gomock.Any(), owner, repoName).Return(repo, snapshot, nil)
}

// ── Sync scenarios ────────────────────────────────────────────────────────────

func TestSync_NoChange(t *testing.T) {
	m, gw, rec := newManager(t, reconcile.DefaultConfig)
	titles := []string{"layer-200/module-1", "layer-100/module-2"}

	expectOrg(gw)
	expectFetch(gw, projects(titles...)).Times(2)

	require.NoError(t, m.Sync(context.Background(), titles))
	assert.Equal(t, titles, domainproject.Titles(m.Projects()))
	assert.Empty(t, rec.calls)
	assert.Empty(t, m.Report().Created)
	assert.Empty(t, m.Report().Deleted)
	assert.Equal(t, org, m.Organization())
	assert.Equal(t, repo, m.Repository())
}

func TestSync_CreateOnly(t *testing.T) {
	m, gw, _ := newManager(t, reconcile.DefaultConfig)

	expectOrg(gw)
	gomock.InOrder(
		expectFetch(gw, projects("A")),
		gw.EXPECT().CreateProject(gomock.Any(), "B", org.ID, repo.ID).Return("PVT_B", nil),
		expectFetch(gw, projects("A", "B")),
	)

	require.NoError(t, m.Sync(context.Background(), []string{"A", "B"}))
	assert.ElementsMatch(t, []string{"A", "B"}, domainproject.Titles(m.Projects()))
	assert.Equal(t, []domainproject.Project{{ID: "PVT_B", Title: "B"}}, m.Report().Created)
}

func TestSync_DeleteOnly(t *testing.T) {
	m, gw, _ := newManager(t, reconcile.DefaultConfig)

	expectOrg(gw)
	gomock.InOrder(
		expectFetch(gw, projects("A", "B")),
		gw.EXPECT().DeleteProject(gomock.Any(), "PVT_B", cmid).Return("PVT_B", nil),
		expectFetch(gw, projects("A")),
	)

	require.NoError(t, m.Sync(context.Background(), []string{"A"}))
	assert.Equal(t, []string{"A"}, domainproject.Titles(m.Projects()))
	assert.Equal(t, projects("B"), m.Report().Deleted)
}

func TestSync_Mixed_DeletesFromPreCreateSnapshot(t *testing.T) {
	m, gw, _ := newManager(t, reconcile.DefaultConfig)

	expectOrg(gw)
	gomock.InOrder(
		expectFetch(gw, projects("A", "C")),
		gw.EXPECT().CreateProject(gomock.Any(), "B", org.ID, repo.ID).Return("PVT_B", nil),
		gw.EXPECT().DeleteProject(gomock.Any(), "PVT_C", cmid).Return("PVT_C", nil),
		expectFetch(gw, projects("A", "B")),
	)

	require.NoError(t, m.Sync(context.Background(), []string{"A", "B"}))
	assert.ElementsMatch(t, []string{"A", "B"}, domainproject.Titles(m.Projects()))
}

func TestSync_DuplicateDesiredTitlesEachCreate(t *testing.T) {
	m, gw, _ := newManager(t, reconcile.DefaultConfig)

	expectOrg(gw)
	expectFetch(gw, projects("A"))
	gw.EXPECT().CreateProject(gomock.Any(), "B", org.ID, repo.ID).Return("PVT_B1", nil)
	gw.EXPECT().CreateProject(gomock.Any(), "B", org.ID, repo.ID).Return("PVT_B2", nil)
	expectFetch(gw, projects("A", "B", "B"))

	require.NoError(t, m.Sync(context.Background(), []string{"A", "B", "B"}))
	assert.Len(t, m.Report().Created, 2)
}

func TestSync_RemoteDuplicateTitleNotWanted_DeletesEveryCopy(t *testing.T) {
	m, gw, _ := newManager(t, reconcile.DefaultConfig)
	snapshot := []domainproject.Project{{ID: "P1", Title: "A"}, {ID: "P2", Title: "X"}, {ID: "P3", Title: "X"}}

	expectOrg(gw)
	expectFetch(gw, snapshot)
	gw.EXPECT().DeleteProject(gomock.Any(), "P2", cmid).Return("P2", nil)
	gw.EXPECT().DeleteProject(gomock.Any(), "P3", cmid).Return("P3", nil)
	expectFetch(gw, snapshot[:1])

	require.NoError(t, m.Sync(context.Background(), []string{"A"}))
}

// ── consistency retry ─────────────────────────────────────────────────────────

func TestSync_ConsistencyRetry_RecoversOnLaterAttempt(t *testing.T) {
	cfg := reconcile.Config{ConsistencyThreshold: 2, MaxFetchAttempts: 4, RetryDelay: 250 * time.Millisecond}
	m, gw, rec := newManager(t, cfg)
	desired := []string{"A", "B", "C", "D"}

	expectOrg(gw)
	// Attempts 1 and 2 look truncated (4 and 3 missing), attempt 3 is complete.
	gomock.InOrder(
		expectFetch(gw, projects()),
		expectFetch(gw, projects("A")),
		expectFetch(gw, projects(desired...)),
		expectFetch(gw, projects(desired...)),
	)

	require.NoError(t, m.Sync(context.Background(), desired))
	assert.Equal(t, []time.Duration{250 * time.Millisecond, 250 * time.Millisecond}, rec.calls)
	assert.Equal(t, 3, m.Report().FetchAttempts)
	assert.Empty(t, m.Report().Created)
}

func TestSync_ConsistencyRetry_AtThresholdDoesNotRetry(t *testing.T) {
	m, gw, rec := newManager(t, reconcile.DefaultConfig)

	expectOrg(gw)
	gomock.InOrder(
		expectFetch(gw, projects("A")),
		gw.EXPECT().CreateProject(gomock.Any(), "B", org.ID, repo.ID).Return("PVT_B", nil),
		gw.EXPECT().CreateProject(gomock.Any(), "C", org.ID, repo.ID).Return("PVT_C", nil),
		expectFetch(gw, projects("A", "B", "C")),
	)

	require.NoError(t, m.Sync(context.Background(), []string{"A", "B", "C"}))
	assert.Empty(t, rec.calls)
	assert.Equal(t, 1, m.Report().FetchAttempts)
}

func TestSync_ConsistencyRetry_BudgetExhaustedIsNotFatal(t *testing.T) {
	cfg := reconcile.Config{ConsistencyThreshold: 2, MaxFetchAttempts: 3, RetryDelay: time.Second}
	m, gw, rec := newManager(t, cfg)
	desired := []string{"A", "B", "C", "D"}

	expectOrg(gw)
	gomock.InOrder(
		expectFetch(gw, projects()),
		expectFetch(gw, projects()),
		// Last attempt still reports three missing; those get created.
		expectFetch(gw, projects("A")),
		gw.EXPECT().CreateProject(gomock.Any(), "B", org.ID, repo.ID).Return("PVT_B", nil),
		gw.EXPECT().CreateProject(gomock.Any(), "C", org.ID, repo.ID).Return("PVT_C", nil),
		gw.EXPECT().CreateProject(gomock.Any(), "D", org.ID, repo.ID).Return("PVT_D", nil),
		expectFetch(gw, projects(desired...)),
	)

	require.NoError(t, m.Sync(context.Background(), desired))
	assert.Len(t, rec.calls, 2)
	assert.Equal(t, 3, m.Report().FetchAttempts)
	assert.Len(t, m.Report().Created, 3)
}

func TestSync_RetryDelayHonoursCancellation(t *testing.T) {
	ctrl := gomock.NewController(t)
	gw := mocks.NewMockGateway(ctrl)
	cfg := reconcile.Config{ConsistencyThreshold: 0, MaxFetchAttempts: 2, RetryDelay: time.Hour}
	m := reconcile.NewManager(gw, owner, repoName, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	expectOrg(gw)
	expectFetch(gw, projects()).Do(func(context.Context, string, string) { cancel() })

	err := m.Sync(ctx, []string{"A"})
	assert.ErrorIs(t, err, context.Canceled)
}

// ── failures ──────────────────────────────────────────────────────────────────

func TestSync_OrganizationErrorAborts(t *testing.T) {
	m, gw, _ := newManager(t, reconcile.DefaultConfig)
	wantErr := fmt.Errorf("fetch organization acme: %w", portgateway.ErrNotFound)
	gw.EXPECT().FetchOrganization(gomock.Any(), owner).Return(domainproject.Organization{}, wantErr)

	err := m.Sync(context.Background(), []string{"A"})
	require.Error(t, err)
	assert.Equal(t, wantErr, err, "gateway errors are returned verbatim")
	assert.ErrorIs(t, err, portgateway.ErrNotFound)
}

func TestSync_CreateErrorStopsRemainingWork(t *testing.T) {
	m, gw, _ := newManager(t, reconcile.DefaultConfig)
	wantErr := fmt.Errorf("create project C: %w", portgateway.ErrRateLimit)

	expectOrg(gw)
	gomock.InOrder(
		expectFetch(gw, projects("A", "X")),
		gw.EXPECT().CreateProject(gomock.Any(), "B", org.ID, repo.ID).Return("PVT_B", nil),
		gw.EXPECT().CreateProject(gomock.Any(), "C", org.ID, repo.ID).Return("", wantErr),
	)

	err := m.Sync(context.Background(), []string{"A", "B", "C"})
	assert.Equal(t, wantErr, err)
	assert.Equal(t, []domainproject.Project{{ID: "PVT_B", Title: "B"}}, m.Report().Created)
	assert.Empty(t, m.Report().Deleted)
}

func TestSync_RefreshErrorPropagates(t *testing.T) {
	m, gw, _ := newManager(t, reconcile.DefaultConfig)
	wantErr := errors.New("boom")

	expectOrg(gw)
	gomock.InOrder(
		expectFetch(gw, projects("A")),
		gw.EXPECT().FetchRepositoryAndProjects(gomock.Any(), owner, repoName).Return(domainproject.Repository{}, nil, wantErr),
	)

	assert.Equal(t, wantErr, m.Sync(context.Background(), []string{"A"}))
}

// ── Plan ──────────────────────────────────────────────────────────────────────

func TestPlan_AppliesNothing(t *testing.T) {
	m, gw, _ := newManager(t, reconcile.DefaultConfig)

	expectOrg(gw)
	expectFetch(gw, projects("A", "C"))

	plan, err := m.Plan(context.Background(), []string{"A", "B"})
	require.NoError(t, err)
	assert.Equal(t, []string{"B"}, plan.ToCreate)
	assert.Equal(t, projects("C"), plan.ToDelete)
}

// ── sequencing ────────────────────────────────────────────────────────────────

// serialGateway fails the test if a call starts while another is in flight.
type serialGateway struct {
	t        *testing.T
	inFlight atomic.Int32
	calls    []string
	listing  []domainproject.Project
	fetches  int
	final    []domainproject.Project
}

func (g *serialGateway) enter(name string) func() {
	if n := g.inFlight.Add(1); n != 1 {
		g.t.Errorf("%s issued while %d call(s) in flight", name, n-1)
	}
	g.calls = append(g.calls, name)
	return func() {
		time.Sleep(time.Millisecond)
		g.inFlight.Add(-1)
	}
}

func (g *serialGateway) FetchOrganization(context.Context, string) (domainproject.Organization, error) {
	defer g.enter("org")()
	return org, nil
}

func (g *serialGateway) FetchRepositoryAndProjects(context.Context, string, string) (domainproject.Repository, []domainproject.Project, error) {
	defer g.enter("fetch")()
	g.fetches++
	if g.fetches > 1 {
		return repo, g.final, nil
	}
	return repo, g.listing, nil
}

func (g *serialGateway) CreateProject(_ context.Context, title, _, _ string) (string, error) {
	defer g.enter("create " + title)()
	return "PVT_" + title, nil
}

func (g *serialGateway) DeleteProject(_ context.Context, id, _ string) (string, error) {
	defer g.enter("delete " + id)()
	return id, nil
}

func TestSync_MutationsAreSequential(t *testing.T) {
	gw := &serialGateway{
		t:       t,
		listing: projects("A", "X", "Y"),
		final:   projects("A", "B", "C", "D"),
	}
	// Threshold high enough that three creates do not trigger a re-fetch.
	cfg := reconcile.Config{ConsistencyThreshold: 3, MaxFetchAttempts: 1, RetryDelay: 0}
	m := reconcile.NewManager(gw, owner, repoName, cfg)

	require.NoError(t, m.Sync(context.Background(), []string{"A", "B", "C", "D"}))
	assert.Equal(t, []string{
		"org", "fetch",
		"create B", "create C", "create D",
		"delete PVT_X", "delete PVT_Y",
		"fetch",
	}, gw.calls)
	assert.Equal(t, "sync-repository-projects-acme-example-repository", m.ClientMutationID())
}
