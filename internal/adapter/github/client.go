package github

import (
	"context"
	"net/http"
	"time"

	"github.com/shurcooL/githubv4"
	"golang.org/x/oauth2"

	domainproject "github.com/alanyang/projects-sync/internal/domain/project"
	portgateway "github.com/alanyang/projects-sync/internal/port/gateway"
)

var _ portgateway.Gateway = (*Client)(nil)

const (
	DefaultEndpoint = "https://api.github.com/graphql"

	// pageSize is the maximum `first` GitHub accepts on a connection.
	pageSize = 100

	defaultTimeout = 30 * time.Second
)

type Client struct {
	gql *githubv4.Client
}

// NewClient authenticates every request with a static token. An installation
// token from GitHub Actions works as is.
func NewClient(ctx context.Context, endpoint, token string) *Client {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	return NewClientWithHTTP(endpoint, oauth2.NewClient(ctx, ts))
}

// NewClientWithHTTP wraps httpClient's transport with status classification.
// httpClient itself is not modified.
func NewClientWithHTTP(endpoint string, httpClient *http.Client) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	hc := &http.Client{Timeout: defaultTimeout}
	if httpClient != nil {
		hc.Jar = httpClient.Jar
		hc.CheckRedirect = httpClient.CheckRedirect
		hc.Transport = httpClient.Transport
		if httpClient.Timeout > 0 {
			hc.Timeout = httpClient.Timeout
		}
	}
	hc.Transport = newStatusTransport(hc.Transport)
	return &Client{gql: githubv4.NewEnterpriseClient(endpoint, hc)}
}

func (c *Client) FetchOrganization(ctx context.Context, login string) (domainproject.Organization, error) {
	var q struct {
		Organization struct {
			ID   string
			Name string
		} `graphql:"organization(login: $login)"`
	}
	vars := map[string]interface{}{
		"login": githubv4.String(login),
	}
	if err := c.gql.Query(ctx, &q, vars); err != nil {
		return domainproject.Organization{}, classify("fetch organization "+login, err)
	}
	// A null organization without a GraphQL error decodes to the zero value.
	if q.Organization.ID == "" {
		return domainproject.Organization{}, kindError("fetch organization "+login, portgateway.ErrNotFound, "organization is null")
	}
	return domainproject.Organization{ID: q.Organization.ID, Name: q.Organization.Name}, nil
}

type projectsPage struct {
	Repository struct {
		ID         string
		Name       string
		ProjectsV2 struct {
			Nodes []struct {
				ID    string
				Title string
			}
			PageInfo struct {
				HasNextPage bool
				EndCursor   githubv4.String
			}
		} `graphql:"projectsV2(first: $first, after: $cursor)"`
	} `graphql:"repository(owner: $owner, name: $name)"`
}

func (c *Client) FetchRepositoryAndProjects(ctx context.Context, owner, name string) (domainproject.Repository, []domainproject.Project, error) {
	op := "fetch repository " + owner + "/" + name
	vars := map[string]interface{}{
		"owner":  githubv4.String(owner),
		"name":   githubv4.String(name),
		"first":  githubv4.Int(pageSize),
		"cursor": (*githubv4.String)(nil),
	}

	var (
		repo     domainproject.Repository
		projects = []domainproject.Project{}
	)
	for {
		var q projectsPage
		if err := c.gql.Query(ctx, &q, vars); err != nil {
			return domainproject.Repository{}, nil, classify(op, err)
		}
		if q.Repository.ID == "" {
			return domainproject.Repository{}, nil, kindError(op, portgateway.ErrNotFound, "repository is null")
		}
		repo = domainproject.Repository{ID: q.Repository.ID, Owner: owner, Name: q.Repository.Name}
		for _, n := range q.Repository.ProjectsV2.Nodes {
			projects = append(projects, domainproject.Project{ID: n.ID, Title: n.Title})
		}

		page := q.Repository.ProjectsV2.PageInfo
		if !page.HasNextPage {
			break
		}
		if page.EndCursor == "" {
			return domainproject.Repository{}, nil, kindError(op, portgateway.ErrSchema, "hasNextPage without endCursor")
		}
		vars["cursor"] = githubv4.NewString(page.EndCursor)
	}

	return repo, projects, nil
}

func (c *Client) CreateProject(ctx context.Context, title, organizationID, repositoryID string) (string, error) {
	var m struct {
		CreateProjectV2 struct {
			ProjectV2 struct {
				ID string
			}
		} `graphql:"createProjectV2(input: $input)"`
	}
	input := githubv4.CreateProjectV2Input{
		OwnerID:      githubv4.ID(organizationID),
		Title:        githubv4.String(title),
		RepositoryID: githubv4.NewID(githubv4.ID(repositoryID)),
	}
	if err := c.gql.Mutate(ctx, &m, input, nil); err != nil {
		return "", classify("create project "+title, err)
	}
	id := m.CreateProjectV2.ProjectV2.ID
	if id == "" {
		return "", kindError("create project "+title, portgateway.ErrSchema, "missing projectV2.id")
	}
	return id, nil
}

func (c *Client) DeleteProject(ctx context.Context, projectID, clientMutationID string) (string, error) {
	var m struct {
		DeleteProjectV2 struct {
			ProjectV2 struct {
				ID string
			}
		} `graphql:"deleteProjectV2(input: $input)"`
	}
	input := githubv4.DeleteProjectV2Input{
		ProjectID:        githubv4.ID(projectID),
		ClientMutationID: githubv4.NewString(githubv4.String(clientMutationID)),
	}
	if err := c.gql.Mutate(ctx, &m, input, nil); err != nil {
		return "", classify("delete project "+projectID, err)
	}
	id := m.DeleteProjectV2.ProjectV2.ID
	if id == "" {
		return "", kindError("delete project "+projectID, portgateway.ErrSchema, "missing projectV2.id")
	}
	return id, nil
}
