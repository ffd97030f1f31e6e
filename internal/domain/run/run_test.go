package run_test

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainrun "github.com/alanyang/projects-sync/internal/domain/run"
)

func TestNew(t *testing.T) {
	desired := []string{"a", "b"}
	r := domainrun.New("acme", "repo", desired, true)

	assert.NotEqual(t, uuid.Nil, r.ID)
	assert.Equal(t, domainrun.StatusRunning, r.Status)
	assert.True(t, r.DryRun)
	assert.False(t, r.Finished())

	desired[0] = "mutated"
	assert.Equal(t, []string{"a", "b"}, r.DesiredTitles, "desired titles are copied")
}

func TestSucceedAndFail(t *testing.T) {
	r := domainrun.New("acme", "repo", nil, false)
	r.Succeed()
	require.True(t, r.Finished())
	assert.Equal(t, domainrun.StatusSucceeded, r.Status)
	assert.Empty(t, r.Error)

	f := domainrun.New("acme", "repo", nil, false)
	f.Fail(errors.New("boom"))
	require.True(t, f.Finished())
	assert.Equal(t, domainrun.StatusFailed, f.Status)
	assert.Equal(t, "boom", f.Error)
}
