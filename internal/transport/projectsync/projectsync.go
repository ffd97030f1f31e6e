package projectsync

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	domainproject "github.com/alanyang/projects-sync/internal/domain/project"
	portgateway "github.com/alanyang/projects-sync/internal/port/gateway"
	portrun "github.com/alanyang/projects-sync/internal/port/run"
	syncsvc "github.com/alanyang/projects-sync/internal/service/projectsync"
)

const defaultListLimit = 20

func Register(rg *gin.RouterGroup, svc *syncsvc.Service) {
	rg.POST("/sync", syncRepository(svc))
	rg.GET("/runs", listRuns(svc))
	rg.GET("/runs/:id", getRun(svc))
}

// syncReq accepts the desired titles either as a list or as the
// whitespace-separated string the action input uses.
type syncReq struct {
	Owner      string   `json:"owner"`
	Repository string   `json:"repository" binding:"required"`
	Projects   []string `json:"projects"`
	ProjectsIn string   `json:"projects_input"`
	DryRun     bool     `json:"dry_run"`
}

func syncRepository(svc *syncsvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req syncReq
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		owner, name := req.Owner, req.Repository
		if owner == "" {
			var err error
			if owner, name, err = domainproject.ParseRepository(req.Repository); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
		}

		titles := req.Projects
		if titles == nil {
			titles = domainproject.ParseTitles(req.ProjectsIn)
		}

		r, err := svc.Run(c.Request.Context(), syncsvc.Request{
			Owner:      owner,
			Repository: name,
			Titles:     titles,
			DryRun:     req.DryRun,
		})
		if err != nil {
			body := gin.H{"error": err.Error()}
			if r.ID != uuid.Nil {
				body["run"] = r
			}
			c.JSON(StatusFor(err), body)
			return
		}
		c.JSON(http.StatusOK, r)
	}
}

func listRuns(svc *syncsvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		owner, name := c.Query("owner"), c.Query("repository")
		if owner == "" || name == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "owner and repository are required"})
			return
		}

		limit := defaultListLimit
		if v := c.Query("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
				return
			}
			limit = n
		}

		runs, err := svc.ListRuns(c.Request.Context(), owner, name, limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, runs)
	}
}

func getRun(svc *syncsvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := uuid.Parse(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
			return
		}

		r, err := svc.GetRun(c.Request.Context(), id)
		if err != nil {
			c.JSON(StatusFor(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, r)
	}
}

// StatusFor maps a service error to the HTTP status reported to callers.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, domainproject.ErrEmptyTitle),
		errors.Is(err, domainproject.ErrDuplicateTitle),
		errors.Is(err, domainproject.ErrInvalidRepository):
		return http.StatusBadRequest
	case errors.Is(err, portgateway.ErrNotFound), errors.Is(err, portrun.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, portgateway.ErrRateLimit):
		return http.StatusTooManyRequests
	case portgateway.IsKind(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
