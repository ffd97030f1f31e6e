package wire

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"

	githubadapter "github.com/alanyang/projects-sync/internal/adapter/github"
	"github.com/alanyang/projects-sync/internal/adapter/memory"
	pgdb "github.com/alanyang/projects-sync/internal/adapter/postgres"
	pgeventbus "github.com/alanyang/projects-sync/internal/adapter/postgres/eventbus"
	pgidempotency "github.com/alanyang/projects-sync/internal/adapter/postgres/idempotency"
	pglocker "github.com/alanyang/projects-sync/internal/adapter/postgres/locker"
	pgrun "github.com/alanyang/projects-sync/internal/adapter/postgres/run"

	"github.com/alanyang/projects-sync/internal/config"
	porteventbus "github.com/alanyang/projects-sync/internal/port/eventbus"
	portgateway "github.com/alanyang/projects-sync/internal/port/gateway"
	portidempotency "github.com/alanyang/projects-sync/internal/port/idempotency"
	portlocker "github.com/alanyang/projects-sync/internal/port/locker"
	portrun "github.com/alanyang/projects-sync/internal/port/run"

	syncsvc "github.com/alanyang/projects-sync/internal/service/projectsync"

	"github.com/alanyang/projects-sync/internal/transport"
	mcptransport "github.com/alanyang/projects-sync/internal/transport/mcp"
)

// App holds the wired services and the resources that must be released on
// exit. Pool is nil when running without DATABASE_URL.
type App struct {
	Config  config.Config
	Pool    *pgxpool.Pool
	Gateway portgateway.Gateway
	Runs    portrun.Repository
	Bus     porteventbus.EventBus
	Locker  portlocker.AdvisoryLocker
	Idem    portidempotency.Store
	SyncSvc *syncsvc.Service
}

// Option overrides a wired dependency, mainly for tests.
type Option func(*App)

// WithGateway replaces the GitHub client.
func WithGateway(gw portgateway.Gateway) Option {
	return func(a *App) { a.Gateway = gw }
}

// Build is the composition root: the only place concrete types are wired to
// their interface dependencies. Postgres adapters are used when
// cfg.DatabaseURL is set, in-process ones otherwise.
func Build(ctx context.Context, cfg config.Config, opts ...Option) (*App, error) {
	app := &App{Config: cfg}
	for _, opt := range opts {
		opt(app)
	}

	// ── Gateway ──────────────────────────────────────────────────────────────
	if app.Gateway == nil {
		app.Gateway = githubadapter.NewClient(ctx, cfg.GraphQLURL, cfg.Token)
	}

	// ── Adapters ─────────────────────────────────────────────────────────────
	if cfg.DatabaseURL != "" {
		pool, err := pgdb.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("connecting to database: %w", err)
		}
		if err := pgdb.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrating database: %w", err)
		}
		app.Pool = pool
		app.Runs = pgrun.New(pool)
		app.Bus = pgeventbus.New(pool)
		app.Locker = pglocker.New(pool)
		app.Idem = pgidempotency.New(pool)
		slog.Debug("using postgres run store")
	} else {
		app.Runs = memory.NewRunRepository()
		app.Bus = memory.NewEventBus()
		app.Locker = memory.NewLocker()
		app.Idem = memory.NewIdempotencyStore(memory.DefaultIdempotencyTTL)
		slog.Debug("using in-memory run store")
	}

	// ── Services ─────────────────────────────────────────────────────────────
	app.SyncSvc = syncsvc.NewService(app.Gateway, app.Runs, app.Bus, app.Locker, cfg.Sync)

	return app, nil
}

// HTTPServer wires the HTTP and MCP transport around the sync service.
func (a *App) HTTPServer(ctx context.Context) *http.Server {
	mcpServer := mcptransport.New(mcptransport.NewSessionRegistry(), a.SyncSvc)
	router := transport.NewRouter(ctx, a.SyncSvc, mcpServer, a.Idem, a.Bus)

	slog.Info("application wired", "port", a.Config.Port, "postgres", a.Pool != nil)
	return &http.Server{
		Addr:    ":" + a.Config.Port,
		Handler: router,
	}
}

func (a *App) Close() {
	if a.Pool != nil {
		a.Pool.Close()
	}
}
