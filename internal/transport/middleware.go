package transport

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	portidempotency "github.com/alanyang/projects-sync/internal/port/idempotency"
)

// noisyPaths are high-frequency read paths logged at Debug to keep Info clean.
var noisyPaths = map[string]bool{
	"/healthz":  true,
	"/api/runs": true,
	"/api/ws":   true,
}

func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		if c.Request.Method == http.MethodOptions {
			return
		}

		level := slog.LevelInfo
		if c.Request.Method == http.MethodGet && noisyPaths[c.Request.URL.Path] {
			level = slog.LevelDebug
		}
		slog.Log(c.Request.Context(), level, "request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

// CORSMiddleware lets browser dashboards call the API and open the event
// stream from any origin.
func CORSMiddleware() gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:    []string{"Content-Type", "Authorization", idempotencyHeader},
		ExposeHeaders:   []string{replayedHeader},
		MaxAge:          12 * time.Hour,
	})
}

const (
	idempotencyHeader = "Idempotency-Key"
	replayedHeader    = "Idempotent-Replayed"
)

type storedResponse struct {
	Status int             `json:"status"`
	Body   json.RawMessage `json:"body"`
}

// IdempotencyMiddleware replays the first response to a POST carrying an
// Idempotency-Key header. Keys are scoped to the matched route, so one key
// reused on two endpoints never crosses over. Responses with a 5xx status are
// not remembered so the client can retry them.
func IdempotencyMiddleware(store portidempotency.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader(idempotencyHeader)
		if c.Request.Method != http.MethodPost || header == "" {
			c.Next()
			return
		}
		opType := c.Request.Method + " " + c.FullPath()
		key := opType + " " + header

		ctx := c.Request.Context()
		if data, ok, err := store.Check(ctx, key); err != nil {
			slog.ErrorContext(ctx, "idempotency lookup failed", "key", key, "error", err)
		} else if ok {
			var prev storedResponse
			if err := json.Unmarshal(data, &prev); err == nil {
				c.Header(replayedHeader, "true")
				c.Data(prev.Status, "application/json; charset=utf-8", prev.Body)
				c.Abort()
				return
			}
			slog.WarnContext(ctx, "ignoring unreadable idempotency record", "key", key)
		}

		rec := &recordingWriter{ResponseWriter: c.Writer}
		c.Writer = rec
		c.Next()

		status := rec.Status()
		if status >= http.StatusInternalServerError || !json.Valid(rec.body.Bytes()) {
			return
		}
		data, err := json.Marshal(storedResponse{Status: status, Body: rec.body.Bytes()})
		if err != nil {
			return
		}
		if err := store.Store(ctx, key, opType, data); err != nil {
			slog.ErrorContext(ctx, "idempotency store failed", "key", key, "error", err)
		}
	}
}

type recordingWriter struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *recordingWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *recordingWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}
