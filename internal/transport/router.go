package transport

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/alanyang/projects-sync/internal/domain/event"
	porteventbus "github.com/alanyang/projects-sync/internal/port/eventbus"
	portidempotency "github.com/alanyang/projects-sync/internal/port/idempotency"
	portnotifier "github.com/alanyang/projects-sync/internal/port/notifier"
	syncsvc "github.com/alanyang/projects-sync/internal/service/projectsync"

	mcptransport "github.com/alanyang/projects-sync/internal/transport/mcp"
	synchandler "github.com/alanyang/projects-sync/internal/transport/projectsync"
	wshandler "github.com/alanyang/projects-sync/internal/transport/ws"
)

func NewRouter(
	ctx context.Context,
	syncSvc *syncsvc.Service,
	mcpSrv *mcptransport.Server,
	idem portidempotency.Store,
	eventBus porteventbus.EventBus,
) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(RequestLogger())
	r.Use(CORSMiddleware())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Only the REST API honours Idempotency-Key; /mcp has its own session
	// semantics.
	api := r.Group("/api", IdempotencyMiddleware(idem))
	synchandler.Register(api, syncSvc)

	hub := wshandler.NewHub()
	hub.Register(api.Group("/ws"))

	notifiers := []portnotifier.RepositoryNotifier{hub}
	if mcpSrv != nil {
		h := gin.WrapH(mcpSrv.Handler())
		r.Any("/mcp", h)
		notifiers = append(notifiers, mcpSrv.Registry())
	}

	// One subscription feeds both the websocket hub and watching MCP sessions.
	if _, err := eventBus.Subscribe(ctx, event.ChannelSync, func(ctx context.Context, e event.Event) {
		for _, n := range notifiers {
			if err := n.Notify(ctx, e); err != nil {
				slog.Warn("sync event notification failed", "type", e.Type, "run_id", e.RunID, "error", err)
			}
		}
	}); err != nil {
		slog.Error("failed to subscribe sync channel to WS hub", "channel", event.ChannelSync, "error", err)
	}

	return r
}
