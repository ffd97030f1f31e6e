package project

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrEmptyTitle        = errors.New("project title must not be empty")
	ErrDuplicateTitle    = errors.New("duplicate project title")
	ErrInvalidRepository = errors.New("repository must be given as owner/name")
)

// Organization is the owner the projects are created under. The ID is the
// canonical global node ID, never the legacy one carried by webhook payloads.
type Organization struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Repository struct {
	ID    string `json:"id"`
	Owner string `json:"owner"`
	Name  string `json:"name"`
}

// Project is keyed remotely by ID; reconciliation keys it by Title.
type Project struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Titles returns the titles of projects in listing order.
func Titles(projects []Project) []string {
	out := make([]string, len(projects))
	for i, p := range projects {
		out[i] = p.Title
	}
	return out
}

// ParseTitles splits whitespace-separated input the way the action input
// is written, dropping empty fields.
func ParseTitles(s string) []string {
	return strings.Fields(s)
}

// ValidateTitles rejects empty and repeated titles.
func ValidateTitles(titles []string) error {
	seen := make(map[string]struct{}, len(titles))
	for _, t := range titles {
		if strings.TrimSpace(t) == "" {
			return ErrEmptyTitle
		}
		if _, ok := seen[t]; ok {
			return fmt.Errorf("%w: %q", ErrDuplicateTitle, t)
		}
		seen[t] = struct{}{}
	}
	return nil
}

// ParseRepository splits an "owner/name" slug such as GITHUB_REPOSITORY.
func ParseRepository(slug string) (owner, name string, err error) {
	owner, name, ok := strings.Cut(strings.TrimSpace(slug), "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidRepository, slug)
	}
	return owner, name, nil
}

// ClientMutationID is the correlation token sent with every delete so that
// repeated runs against one repository carry the same value.
func ClientMutationID(owner, repository string) string {
	return fmt.Sprintf("sync-repository-projects-%s-%s", owner, repository)
}
