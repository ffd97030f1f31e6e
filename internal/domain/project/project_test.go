package project_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainproject "github.com/alanyang/projects-sync/internal/domain/project"
)

func TestParseTitles(t *testing.T) {
	got := domainproject.ParseTitles("  layer-200/foo\nlayer-100/grogu\t layer-300/bar  ")
	assert.Equal(t, []string{"layer-200/foo", "layer-100/grogu", "layer-300/bar"}, got)

	assert.Empty(t, domainproject.ParseTitles(" \n\t "))
}

func TestValidateTitles(t *testing.T) {
	tests := []struct {
		name    string
		titles  []string
		wantErr error
	}{
		{name: "empty list is valid", titles: nil},
		{name: "distinct titles", titles: []string{"a", "b", "c"}},
		{name: "duplicate rejected", titles: []string{"a", "b", "a"}, wantErr: domainproject.ErrDuplicateTitle},
		{name: "blank rejected", titles: []string{"a", " "}, wantErr: domainproject.ErrEmptyTitle},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := domainproject.ValidateTitles(tt.titles)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestParseRepository(t *testing.T) {
	owner, name, err := domainproject.ParseRepository("babbel-sandbox/test-repo")
	require.NoError(t, err)
	assert.Equal(t, "babbel-sandbox", owner)
	assert.Equal(t, "test-repo", name)

	for _, bad := range []string{"", "acme", "/repo", "acme/", "acme/repo/extra"} {
		_, _, err := domainproject.ParseRepository(bad)
		assert.ErrorIs(t, err, domainproject.ErrInvalidRepository, bad)
	}
}

func TestClientMutationID(t *testing.T) {
	assert.Equal(t,
		"sync-repository-projects-acme-example-repository",
		domainproject.ClientMutationID("acme", "example-repository"),
	)
}

func TestTitles(t *testing.T) {
	projects := []domainproject.Project{
		{ID: "PVT_2", Title: "layer-100/module-2"},
		{ID: "PVT_1", Title: "layer-200/module-1"},
	}
	assert.Equal(t, []string{"layer-100/module-2", "layer-200/module-1"}, domainproject.Titles(projects))
}
