// Package reconcile makes the set of projects attached to a repository match
// a desired list of titles.
package reconcile

import (
	"context"
	"log/slog"
	"time"

	domainproject "github.com/alanyang/projects-sync/internal/domain/project"
	portgateway "github.com/alanyang/projects-sync/internal/port/gateway"
)

// Config tunes the workaround for the project listing occasionally returning
// a truncated set shortly after writes.
type Config struct {
	// ConsistencyThreshold is the largest number of titles-to-create accepted
	// without re-sampling the listing.
	ConsistencyThreshold int
	// MaxFetchAttempts bounds the listing fetches, the first one included.
	MaxFetchAttempts int
	RetryDelay       time.Duration
}

var DefaultConfig = Config{
	ConsistencyThreshold: 2,
	MaxFetchAttempts:     4,
	RetryDelay:           500 * time.Millisecond,
}

// Report describes what the last Sync or Plan did.
type Report struct {
	FetchAttempts int
	Created       []domainproject.Project
	Deleted       []domainproject.Project
}

// Plan is the diff a Sync would apply against the observed snapshot.
type Plan struct {
	ToCreate []string
	ToDelete []domainproject.Project
}

type Option func(*Manager)

// WithSleep replaces the wait between listing fetches.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(m *Manager) { m.sleep = sleep }
}

// Manager reconciles one repository. A Manager is not safe for concurrent
// Sync calls.
type Manager struct {
	gw               portgateway.Gateway
	owner            string
	repositoryName   string
	clientMutationID string
	cfg              Config
	sleep            func(ctx context.Context, d time.Duration) error

	organization   domainproject.Organization
	repository     domainproject.Repository
	projects       []domainproject.Project
	titlesToCreate []string
	report         Report
}

func NewManager(gw portgateway.Gateway, owner, repository string, cfg Config, opts ...Option) *Manager {
	if cfg.MaxFetchAttempts < 1 {
		cfg.MaxFetchAttempts = 1
	}
	m := &Manager{
		gw:               gw,
		owner:            owner,
		repositoryName:   repository,
		clientMutationID: domainproject.ClientMutationID(owner, repository),
		cfg:              cfg,
		sleep:            sleepContext,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Sync creates the missing projects, deletes the extraneous ones and refreshes
// the snapshot returned by Projects. Gateway errors are returned as is; work
// applied before the error is not rolled back.
func (m *Manager) Sync(ctx context.Context, titles []string) error {
	m.report = Report{}

	if err := m.resolveOrganization(ctx); err != nil {
		return err
	}
	if err := m.fetchWithConsistencyRetry(ctx, titles); err != nil {
		return err
	}

	// Deletions are judged against the pre-create snapshot so a project
	// created below can never be picked for deletion.
	before := m.projects

	if err := m.createMissing(ctx); err != nil {
		return err
	}
	if err := m.deleteExtraneous(ctx, before, titles); err != nil {
		return err
	}

	repo, projects, err := m.gw.FetchRepositoryAndProjects(ctx, m.owner, m.repositoryName)
	if err != nil {
		return err
	}
	m.repository, m.projects = repo, projects

	slog.InfoContext(ctx, "repository projects synced",
		"owner", m.owner,
		"repository", m.repositoryName,
		"created", len(m.report.Created),
		"deleted", len(m.report.Deleted),
		"projects", len(m.projects),
	)
	return nil
}

// Plan observes remote state the way Sync does but applies nothing.
func (m *Manager) Plan(ctx context.Context, titles []string) (Plan, error) {
	m.report = Report{}

	if err := m.resolveOrganization(ctx); err != nil {
		return Plan{}, err
	}
	if err := m.fetchWithConsistencyRetry(ctx, titles); err != nil {
		return Plan{}, err
	}
	return Plan{
		ToCreate: append([]string{}, m.titlesToCreate...),
		ToDelete: extraneous(m.projects, titles),
	}, nil
}

// Projects returns the last snapshot read from the remote.
func (m *Manager) Projects() []domainproject.Project {
	return append([]domainproject.Project(nil), m.projects...)
}

func (m *Manager) Organization() domainproject.Organization { return m.organization }

func (m *Manager) Repository() domainproject.Repository { return m.repository }

func (m *Manager) Report() Report { return m.report }

func (m *Manager) ClientMutationID() string { return m.clientMutationID }

func (m *Manager) resolveOrganization(ctx context.Context) error {
	// Event payloads may carry the deprecated node ID; always look up the
	// current one.
	org, err := m.gw.FetchOrganization(ctx, m.owner)
	if err != nil {
		return err
	}
	m.organization = org
	return nil
}

// fetchWithConsistencyRetry re-samples the listing while it implies more
// creates than the threshold, up to MaxFetchAttempts fetches. Running out of
// attempts is not an error: the last snapshot is used.
func (m *Manager) fetchWithConsistencyRetry(ctx context.Context, titles []string) error {
	for attempt := 1; ; attempt++ {
		repo, projects, err := m.gw.FetchRepositoryAndProjects(ctx, m.owner, m.repositoryName)
		if err != nil {
			return err
		}
		m.report.FetchAttempts = attempt
		m.repository, m.projects = repo, projects
		m.titlesToCreate = missing(titles, projects)

		if len(m.titlesToCreate) <= m.cfg.ConsistencyThreshold {
			return nil
		}
		if attempt >= m.cfg.MaxFetchAttempts {
			slog.WarnContext(ctx, "listing still looks truncated, proceeding with last snapshot",
				"owner", m.owner,
				"repository", m.repositoryName,
				"attempt", attempt,
				"to_create", len(m.titlesToCreate),
			)
			return nil
		}

		slog.InfoContext(ctx, "listing may be truncated, fetching again",
			"owner", m.owner,
			"repository", m.repositoryName,
			"attempt", attempt,
			"to_create", len(m.titlesToCreate),
			"delay", m.cfg.RetryDelay,
		)
		if err := m.sleep(ctx, m.cfg.RetryDelay); err != nil {
			return err
		}
	}
}

// createMissing issues creates one at a time; the endpoint breaks under more
// than a handful of concurrent mutations per repository.
func (m *Manager) createMissing(ctx context.Context) error {
	for _, title := range m.titlesToCreate {
		id, err := m.gw.CreateProject(ctx, title, m.organization.ID, m.repository.ID)
		if err != nil {
			return err
		}
		m.report.Created = append(m.report.Created, domainproject.Project{ID: id, Title: title})
		slog.InfoContext(ctx, "project created", "title", title, "project_id", id)
	}
	return nil
}

func (m *Manager) deleteExtraneous(ctx context.Context, snapshot []domainproject.Project, titles []string) error {
	for _, p := range extraneous(snapshot, titles) {
		if _, err := m.gw.DeleteProject(ctx, p.ID, m.clientMutationID); err != nil {
			return err
		}
		m.report.Deleted = append(m.report.Deleted, p)
		slog.InfoContext(ctx, "project deleted", "title", p.Title, "project_id", p.ID)
	}
	return nil
}

// missing keeps input order and input duplicates.
func missing(titles []string, projects []domainproject.Project) []string {
	present := make(map[string]struct{}, len(projects))
	for _, p := range projects {
		present[p.Title] = struct{}{}
	}
	out := []string{}
	for _, t := range titles {
		if _, ok := present[t]; !ok {
			out = append(out, t)
		}
	}
	return out
}

func extraneous(projects []domainproject.Project, titles []string) []domainproject.Project {
	wanted := make(map[string]struct{}, len(titles))
	for _, t := range titles {
		wanted[t] = struct{}{}
	}
	out := []domainproject.Project{}
	for _, p := range projects {
		if _, ok := wanted[p.Title]; !ok {
			out = append(out, p)
		}
	}
	return out
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
