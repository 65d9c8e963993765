package docker

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"

	"github.com/shinji-kodama/procman/internal/model"
)

// Label keys that mark a container as a procman execution target. All keys
// share the "procman." prefix to avoid collisions with labels set by other
// tools (Docker Compose, dev containers).
const (
	LabelPrefix = "procman."

	// LabelManagedBy identifies containers procman may execute in.
	// Value: always ManagedByValue.
	LabelManagedBy = LabelPrefix + "managed-by"

	// LabelTarget names the target so batch files can refer to it.
	LabelTarget = LabelPrefix + "target"

	// LabelType optionally restricts the target to one manager type.
	LabelType = LabelPrefix + "type"
)

// ManagedByValue is the constant value of LabelManagedBy.
const ManagedByValue = "procman"

// BuildLabels returns the labels to put on a container so that FindTarget
// resolves it for name. An empty or TypeNA type leaves the target open to
// every manager type.
func BuildLabels(name string, t model.ManagerType) map[string]string {
	labels := map[string]string{
		LabelManagedBy: ManagedByValue,
		LabelTarget:    name,
	}
	if t.IsValid() && t != model.TypeNA {
		labels[LabelType] = t.String()
	}
	return labels
}

// targetFilters builds the server-side filter for a target name.
func targetFilters(name string) filters.Args {
	return filters.NewArgs(
		filters.Arg("label", LabelManagedBy+"="+ManagedByValue),
		filters.Arg("label", LabelTarget+"="+name),
	)
}

// lister is the subset of the Docker API FindTarget needs.
type lister interface {
	ContainerList(ctx context.Context, options container.ListOptions) ([]container.Summary, error)
}

// FindTarget resolves the running container labelled as target name for
// manager type t. Exactly one running match is required; a container
// restricted to a different type does not match.
func FindTarget(ctx context.Context, api lister, name string, t model.ManagerType) (string, error) {
	containers, err := api.ContainerList(ctx, container.ListOptions{Filters: targetFilters(name)})
	if err != nil {
		return "", model.WrapFault(model.CustomError, "failed to list Docker containers", err)
	}

	var ids []string
	for _, c := range containers {
		if c.State != "" && c.State != "running" {
			continue
		}
		if restricted := c.Labels[LabelType]; restricted != "" && restricted != t.String() {
			continue
		}
		ids = append(ids, c.ID)
	}
	sort.Strings(ids)

	switch len(ids) {
	case 0:
		return "", model.NewFault(model.CustomError,
			fmt.Sprintf("no running container labelled %s=%s for %s managers", LabelTarget, name, t))
	case 1:
		return ids[0], nil
	default:
		return "", model.NewFault(model.CustomError,
			fmt.Sprintf("target %q is ambiguous: %d running containers (%s)", name, len(ids), strings.Join(ids, ", ")))
	}
}
