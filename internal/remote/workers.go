package remote

import "github.com/mesh-intelligence/worksite/pkg/types"

// Workers is the /api/workers collection.
type Workers = Resource[types.Worker, types.WorkerFilters]

// Workers returns the worker collection.
func (c *Client) Workers() *Workers {
	return NewResource[types.Worker, types.WorkerFilters](c, "workers")
}
