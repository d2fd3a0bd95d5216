package dashboard

import (
	"context"

	"soxmon/pkg/client"
	"soxmon/pkg/models"
)

// Resource names one of the independent reads that make up a snapshot.
type Resource string

const (
	ResourceSystemInfo Resource = "systemInfo"
	ResourceCPU        Resource = "cpu"
	ResourceMemory     Resource = "memory"
	ResourceDisk       Resource = "disk"
	ResourceCompliance Resource = "compliance"
)

// applyFunc writes one fetched payload into the snapshot being assembled.
type applyFunc func(*models.Snapshot)

type task struct {
	resource Resource
	path     string
	run      func(ctx context.Context, c *client.Client) (applyFunc, error)
}

// fetch builds a task reading path as T. The payload is only written into a
// snapshot after the barrier, by the goroutine that merges results.
func fetch[T any](resource Resource, path string, set func(*models.Snapshot, *T)) task {
	return task{
		resource: resource,
		path:     path,
		run: func(ctx context.Context, c *client.Client) (applyFunc, error) {
			data, err := client.Get[T](ctx, c, path)
			if err != nil {
				return nil, err
			}
			return func(snap *models.Snapshot) { set(snap, data) }, nil
		},
	}
}

// snapshotTasks lists the five reads of one load cycle.
func snapshotTasks() []task {
	return []task{
		fetch(ResourceSystemInfo, client.PathSystemInfo, func(s *models.Snapshot, v *models.SystemInfo) { s.SystemInfo = v }),
		fetch(ResourceCPU, client.PathCPU, func(s *models.Snapshot, v *models.CPU) { s.CPU = v }),
		fetch(ResourceMemory, client.PathMemory, func(s *models.Snapshot, v *models.Memory) { s.Memory = v }),
		fetch(ResourceDisk, client.PathDisk, func(s *models.Snapshot, v *models.Disk) { s.Disk = v }),
		fetch(ResourceCompliance, client.PathCompliance, func(s *models.Snapshot, v *models.ComplianceReport) { s.Compliance = v }),
	}
}
