// Package projectsync runs a reconciliation for one repository and records
// it as an auditable run.
package projectsync

import (
	"context"
	"fmt"
	"hash/fnv"
	"log/slog"

	"github.com/google/uuid"

	"github.com/alanyang/projects-sync/internal/domain/event"
	domainproject "github.com/alanyang/projects-sync/internal/domain/project"
	domainrun "github.com/alanyang/projects-sync/internal/domain/run"
	portbus "github.com/alanyang/projects-sync/internal/port/eventbus"
	portgateway "github.com/alanyang/projects-sync/internal/port/gateway"
	portlocker "github.com/alanyang/projects-sync/internal/port/locker"
	portrun "github.com/alanyang/projects-sync/internal/port/run"
	"github.com/alanyang/projects-sync/internal/service/reconcile"
)

type Request struct {
	Owner      string
	Repository string
	Titles     []string
	DryRun     bool
}

type Service struct {
	gw     portgateway.Gateway
	runs   portrun.Repository
	bus    portbus.EventBus
	locker portlocker.AdvisoryLocker
	cfg    reconcile.Config
	opts   []reconcile.Option
}

func NewService(
	gw portgateway.Gateway,
	runs portrun.Repository,
	bus portbus.EventBus,
	locker portlocker.AdvisoryLocker,
	cfg reconcile.Config,
	opts ...reconcile.Option,
) *Service {
	return &Service{
		gw:     gw,
		runs:   runs,
		bus:    bus,
		locker: locker,
		cfg:    cfg,
		opts:   opts,
	}
}

// Run reconciles req.Repository against req.Titles while holding the
// repository lock. The returned run is populated even when err is non-nil,
// recording whatever was applied before the failure.
func (s *Service) Run(ctx context.Context, req Request) (domainrun.Run, error) {
	if req.Owner == "" || req.Repository == "" {
		return domainrun.Run{}, fmt.Errorf("sync repository projects: %w: owner and repository are required", domainproject.ErrInvalidRepository)
	}
	if err := domainproject.ValidateTitles(req.Titles); err != nil {
		return domainrun.Run{}, fmt.Errorf("sync repository projects: %w", err)
	}

	r := domainrun.New(req.Owner, req.Repository, req.Titles, req.DryRun)
	if _, err := s.runs.Create(ctx, r); err != nil {
		slog.ErrorContext(ctx, "failed to record sync run", "run_id", r.ID, "error", err)
	}
	s.publish(ctx, event.New(event.TypeSyncStarted, r.ID, r.Owner, r.Repository))

	err := s.locker.WithLock(ctx, LockKey(req.Owner, req.Repository), func(ctx context.Context) error {
		m := reconcile.NewManager(s.gw, req.Owner, req.Repository, s.cfg, s.opts...)
		if req.DryRun {
			return s.plan(ctx, m, &r)
		}
		return s.apply(ctx, m, &r)
	})

	if err != nil {
		r.Fail(err)
		s.finish(ctx, r)
		s.publish(ctx, event.New(event.TypeSyncFailed, r.ID, r.Owner, r.Repository))
		slog.ErrorContext(ctx, "sync failed",
			"run_id", r.ID, "owner", r.Owner, "repository", r.Repository, "error", err)
		return r, fmt.Errorf("sync repository projects: %w", err)
	}

	r.Succeed()
	s.finish(ctx, r)
	s.publish(ctx, event.New(event.TypeSyncCompleted, r.ID, r.Owner, r.Repository))
	slog.InfoContext(ctx, "sync completed",
		"run_id", r.ID,
		"owner", r.Owner,
		"repository", r.Repository,
		"dry_run", r.DryRun,
		"created", len(r.Created),
		"deleted", len(r.Deleted),
	)
	return r, nil
}

func (s *Service) apply(ctx context.Context, m *reconcile.Manager, r *domainrun.Run) error {
	err := m.Sync(ctx, r.DesiredTitles)

	report := m.Report()
	r.FetchAttempts = report.FetchAttempts
	r.Created = append(r.Created, report.Created...)
	r.Deleted = append(r.Deleted, report.Deleted...)
	for _, p := range report.Created {
		s.publish(ctx, event.New(event.TypeProjectCreated, r.ID, r.Owner, r.Repository).ForProject(p.ID, p.Title))
	}
	for _, p := range report.Deleted {
		s.publish(ctx, event.New(event.TypeProjectDeleted, r.ID, r.Owner, r.Repository).ForProject(p.ID, p.Title))
	}

	if err != nil {
		return err
	}
	r.FinalTitles = domainproject.Titles(m.Projects())
	return nil
}

// plan records what a sync would do: Created holds titles without IDs and
// FinalTitles the listing the plan was computed against.
func (s *Service) plan(ctx context.Context, m *reconcile.Manager, r *domainrun.Run) error {
	p, err := m.Plan(ctx, r.DesiredTitles)
	r.FetchAttempts = m.Report().FetchAttempts
	if err != nil {
		return err
	}
	for _, title := range p.ToCreate {
		r.Created = append(r.Created, domainproject.Project{Title: title})
	}
	r.Deleted = append(r.Deleted, p.ToDelete...)
	r.FinalTitles = domainproject.Titles(m.Projects())
	return nil
}

func (s *Service) GetRun(ctx context.Context, id uuid.UUID) (domainrun.Run, error) {
	r, err := s.runs.GetByID(ctx, id)
	if err != nil {
		return domainrun.Run{}, fmt.Errorf("get sync run: %w", err)
	}
	return r, nil
}

func (s *Service) ListRuns(ctx context.Context, owner, repository string, limit int) ([]domainrun.Run, error) {
	runs, err := s.runs.ListByRepository(ctx, owner, repository, limit)
	if err != nil {
		return nil, fmt.Errorf("list sync runs: %w", err)
	}
	return runs, nil
}

func (s *Service) finish(ctx context.Context, r domainrun.Run) {
	// The run outlives a cancelled request.
	if err := s.runs.Finish(context.WithoutCancel(ctx), r); err != nil {
		slog.ErrorContext(ctx, "failed to record sync outcome", "run_id", r.ID, "error", err)
	}
}

func (s *Service) publish(ctx context.Context, e event.Event) {
	if err := s.bus.Publish(context.WithoutCancel(ctx), e); err != nil {
		slog.ErrorContext(ctx, "failed to publish event", "type", e.Type, "run_id", e.RunID, "error", err)
	}
}

// LockKey maps a repository to its advisory lock key.
func LockKey(owner, repository string) int64 {
	h := fnv.New64a()
	h.Write([]byte(owner + "/" + repository))
	return int64(h.Sum64())
}
