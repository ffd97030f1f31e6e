package wire_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyang/projects-sync/internal/adapter/memory"
	"github.com/alanyang/projects-sync/internal/config"
	"github.com/alanyang/projects-sync/internal/service/projectsync"
	"github.com/alanyang/projects-sync/internal/service/reconcile"
	"github.com/alanyang/projects-sync/internal/testutil"
	"github.com/alanyang/projects-sync/internal/wire"
)

func testConfig() config.Config {
	return config.Config{
		Token:     "t",
		Port:      "0",
		Sync:      reconcile.Config{ConsistencyThreshold: 2, MaxFetchAttempts: 1},
		LogFormat: "text",
		LogLevel:  "info",
	}
}

func TestBuild_InMemoryWithoutDatabase(t *testing.T) {
	gw := testutil.NewFakeGateway("acme", "widgets", "X")
	app, err := wire.Build(context.Background(), testConfig(), wire.WithGateway(gw))
	require.NoError(t, err)
	defer app.Close()

	assert.Nil(t, app.Pool)
	assert.IsType(t, &memory.RunRepository{}, app.Runs)
	assert.IsType(t, &memory.Locker{}, app.Locker)

	r, err := app.SyncSvc.Run(context.Background(), projectsync.Request{
		Owner: "acme", Repository: "widgets", Titles: []string{"A"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, r.FinalTitles)

	stored, err := app.Runs.GetByID(context.Background(), r.ID)
	require.NoError(t, err)
	assert.Equal(t, r.Status, stored.Status)
}

func TestBuild_DefaultGatewayIsGitHub(t *testing.T) {
	app, err := wire.Build(context.Background(), testConfig())
	require.NoError(t, err)
	defer app.Close()
	assert.NotNil(t, app.Gateway)
}

func TestHTTPServer_ServesHealthz(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := wire.Build(ctx, testConfig(), wire.WithGateway(testutil.NewFakeGateway("acme", "widgets")))
	require.NoError(t, err)
	srv := app.HTTPServer(ctx)
	assert.Equal(t, ":0", srv.Addr)

	w := httptest.NewRecorder()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, "/healthz", nil)
	srv.Handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}
