package remote

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/mesh-intelligence/worksite/pkg/types"
)

// Projects is the /api/projects collection plus worker assignment.
type Projects struct {
	*Resource[types.Project, types.ProjectFilters]
}

// Projects returns the project collection.
func (c *Client) Projects() *Projects {
	return &Projects{Resource: NewResource[types.Project, types.ProjectFilters](c, "projects")}
}

type assignRequest struct {
	WorkerID int64 `json:"workerId"`
}

// AssignWorker adds a worker to the project and returns the updated project.
func (p *Projects) AssignWorker(ctx context.Context, projectID, workerID int64) (types.Project, error) {
	if projectID <= 0 || workerID <= 0 {
		return types.Project{}, types.ErrInvalidID
	}
	var out types.Project
	err := p.client.do(ctx, http.MethodPost, p.itemPath(projectID)+"/workers", nil, assignRequest{WorkerID: workerID}, &out)
	if err != nil {
		return types.Project{}, err
	}
	return out, nil
}

// UnassignWorker removes a worker from the project.
func (p *Projects) UnassignWorker(ctx context.Context, projectID, workerID int64) error {
	if projectID <= 0 || workerID <= 0 {
		return types.ErrInvalidID
	}
	path := p.itemPath(projectID) + "/workers/" + strconv.FormatInt(workerID, 10)
	return p.client.do(ctx, http.MethodDelete, path, nil, nil, nil)
}

// AvailableWorkers lists workers not yet assigned to the project.
func (p *Projects) AvailableWorkers(ctx context.Context, projectID int64, page types.PageRequest) (types.Page[types.Worker], error) {
	if projectID <= 0 {
		return types.Page[types.Worker]{}, types.ErrInvalidID
	}
	q := url.Values{}
	if page.Page > 0 {
		q.Set("page", strconv.Itoa(page.Page))
	}
	if page.PageSize > 0 {
		q.Set("page_size", strconv.Itoa(page.PageSize))
	}

	var out types.Page[types.Worker]
	if err := p.client.do(ctx, http.MethodGet, p.itemPath(projectID)+"/workers/available", q, nil, &out); err != nil {
		return types.Page[types.Worker]{}, err
	}
	if out.Data == nil {
		out.Data = []types.Worker{}
	}
	return out, nil
}
