package testutil

import (
	"context"
	"fmt"
	"sync"

	domainproject "github.com/alanyang/projects-sync/internal/domain/project"
	portgateway "github.com/alanyang/projects-sync/internal/port/gateway"
)

var _ portgateway.Gateway = (*FakeGateway)(nil)

// GatewayCall records a single call made against FakeGateway.
type GatewayCall struct {
	Op    string
	Arg   string
	Extra string
}

// FakeGateway is a stateful in-memory stand-in for GitHub: creates and
// deletes change what the next listing returns. Safe for concurrent use.
type FakeGateway struct {
	mu       sync.Mutex
	Org      domainproject.Organization
	Repo     domainproject.Repository
	projects []domainproject.Project
	nextID   int
	Calls    []GatewayCall

	// Err, when set, is returned by the operation named in ErrOp ("" means
	// every operation).
	Err   error
	ErrOp string
}

func NewFakeGateway(owner, repository string, titles ...string) *FakeGateway {
	g := &FakeGateway{
		Org:  domainproject.Organization{ID: "O_" + owner, Name: owner},
		Repo: domainproject.Repository{ID: "R_" + repository, Owner: owner, Name: repository},
	}
	for _, t := range titles {
		g.projects = append(g.projects, g.newProject(t))
	}
	return g
}

func (g *FakeGateway) FetchOrganization(_ context.Context, login string) (domainproject.Organization, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.record("FetchOrganization", login, "")
	if err := g.failure("FetchOrganization"); err != nil {
		return domainproject.Organization{}, err
	}
	return g.Org, nil
}

func (g *FakeGateway) FetchRepositoryAndProjects(_ context.Context, owner, name string) (domainproject.Repository, []domainproject.Project, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.record("FetchRepositoryAndProjects", owner+"/"+name, "")
	if err := g.failure("FetchRepositoryAndProjects"); err != nil {
		return domainproject.Repository{}, nil, err
	}
	return g.Repo, append([]domainproject.Project{}, g.projects...), nil
}

func (g *FakeGateway) CreateProject(_ context.Context, title, organizationID, repositoryID string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.record("CreateProject", title, organizationID+" "+repositoryID)
	if err := g.failure("CreateProject"); err != nil {
		return "", err
	}
	p := g.newProject(title)
	g.projects = append(g.projects, p)
	return p.ID, nil
}

func (g *FakeGateway) DeleteProject(_ context.Context, projectID, clientMutationID string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.record("DeleteProject", projectID, clientMutationID)
	if err := g.failure("DeleteProject"); err != nil {
		return "", err
	}
	for i, p := range g.projects {
		if p.ID == projectID {
			g.projects = append(g.projects[:i], g.projects[i+1:]...)
			return projectID, nil
		}
	}
	return "", fmt.Errorf("delete project %s: %w", projectID, portgateway.ErrNotFound)
}

// Titles returns the current remote titles in listing order.
func (g *FakeGateway) Titles() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return domainproject.Titles(g.projects)
}

// CallsTo returns the recorded calls for one operation.
func (g *FakeGateway) CallsTo(op string) []GatewayCall {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []GatewayCall
	for _, c := range g.Calls {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

func (g *FakeGateway) record(op, arg, extra string) {
	g.Calls = append(g.Calls, GatewayCall{Op: op, Arg: arg, Extra: extra})
}

func (g *FakeGateway) failure(op string) error {
	if g.Err != nil && (g.ErrOp == "" || g.ErrOp == op) {
		return g.Err
	}
	return nil
}

func (g *FakeGateway) newProject(title string) domainproject.Project {
	g.nextID++
	return domainproject.Project{ID: fmt.Sprintf("PVT_%04d", g.nextID), Title: title}
}
