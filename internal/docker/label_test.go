package docker

import (
	"context"
	"errors"
	"testing"

	"github.com/docker/docker/api/types/container"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shinji-kodama/procman/internal/model"
)

// fakeLister returns canned containers and records the filters it saw.
type fakeLister struct {
	containers []container.Summary
	err        error
	got        container.ListOptions
}

func (f *fakeLister) ContainerList(_ context.Context, options container.ListOptions) ([]container.Summary, error) {
	f.got = options
	return f.containers, f.err
}

// TestBuildLabels verifies the label set for typed and untyped targets.
func TestBuildLabels(t *testing.T) {
	labels := BuildLabels("build-box", model.TypeGit)
	assert.Equal(t, ManagedByValue, labels[LabelManagedBy],
		"managed-by label should always be set to the constant value")
	assert.Equal(t, "build-box", labels[LabelTarget])
	assert.Equal(t, "git", labels[LabelType])
	assert.Len(t, labels, 3)

	open := BuildLabels("any", model.TypeNA)
	assert.NotContains(t, open, LabelType)
	assert.Len(t, open, 2)
}

// TestFindTarget covers label filtering, type restriction and ambiguity.
func TestFindTarget(t *testing.T) {
	tests := []struct {
		name       string
		containers []container.Summary
		wantID     string
		wantErr    bool
	}{
		{
			name:       "single running match",
			containers: []container.Summary{{ID: "abc", State: "running"}},
			wantID:     "abc",
		},
		{
			name: "stopped containers are skipped",
			containers: []container.Summary{
				{ID: "old", State: "exited"},
				{ID: "new", State: "running"},
			},
			wantID: "new",
		},
		{
			name: "restricted to another type",
			containers: []container.Summary{
				{ID: "p", State: "running", Labels: map[string]string{LabelType: "process"}},
			},
			wantErr: true,
		},
		{
			name: "restricted to the same type",
			containers: []container.Summary{
				{ID: "g", State: "running", Labels: map[string]string{LabelType: "git"}},
			},
			wantID: "g",
		},
		{
			name:    "no match",
			wantErr: true,
		},
		{
			name: "ambiguous",
			containers: []container.Summary{
				{ID: "b", State: "running"},
				{ID: "a", State: "running"},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &fakeLister{containers: tt.containers}
			id, err := FindTarget(context.Background(), api, "box", model.TypeGit)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, model.CustomError, model.KindOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, id)
		})
	}
}

// TestFindTarget_Filters verifies the server-side label filter.
func TestFindTarget_Filters(t *testing.T) {
	api := &fakeLister{containers: []container.Summary{{ID: "x", State: "running"}}}
	_, err := FindTarget(context.Background(), api, "box", model.TypeProcess)
	require.NoError(t, err)

	assert.ElementsMatch(t,
		[]string{LabelManagedBy + "=" + ManagedByValue, LabelTarget + "=box"},
		api.got.Filters.Get("label"))
}

// TestFindTarget_ListError wraps daemon errors.
func TestFindTarget_ListError(t *testing.T) {
	cause := errors.New("daemon unavailable")
	_, err := FindTarget(context.Background(), &fakeLister{err: cause}, "box", model.TypeGit)
	require.Error(t, err)
	assert.ErrorIs(t, err, cause)
}
