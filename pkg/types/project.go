package types

import (
	"net/url"
	"time"
)

// Project statuses.
const (
	ProjectActive    = "active"
	ProjectCompleted = "completed"
	ProjectOnHold    = "on_hold"
	ProjectCancelled = "cancelled"
)

// ProjectStatuses lists the accepted project statuses in display order.
var ProjectStatuses = []string{
	ProjectActive,
	ProjectCompleted,
	ProjectOnHold,
	ProjectCancelled,
}

// Project is a worksite with a location and a set of assigned workers.
// Dates use the YYYY-MM-DD layout.
type Project struct {
	ID          int64      `json:"id,omitempty"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Status      string     `json:"status"`
	StartDate   string     `json:"start_date"`
	EndDate     string     `json:"end_date,omitempty"`
	Latitude    float64    `json:"latitude"`
	Longitude   float64    `json:"longitude"`
	Workers     []Worker   `json:"workers,omitempty"`
	UserID      int64      `json:"user_id,omitempty"`
	CreatedAt   *time.Time `json:"created_at,omitempty"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
}

// EntityID returns the project ID.
func (p Project) EntityID() int64 {
	return p.ID
}

// WithoutID returns a copy of p with the ID cleared.
func (p Project) WithoutID() Project {
	p.ID = 0
	return p
}

// HasWorker reports whether the worker with the given ID is assigned.
func (p Project) HasWorker(workerID int64) bool {
	for _, w := range p.Workers {
		if w.ID == workerID {
			return true
		}
	}
	return false
}

// ProjectFilters narrows a project listing.
type ProjectFilters struct {
	Name      string `json:"name,omitempty"`
	Status    string `json:"status,omitempty"`
	Search    string `json:"search,omitempty"`
	SortBy    string `json:"sort_by,omitempty"`
	SortOrder string `json:"sort_order,omitempty"`
}

// Query encodes the non-zero filters as URL query parameters.
func (f ProjectFilters) Query() url.Values {
	q := url.Values{}
	setString(q, "name", f.Name)
	setString(q, "status", f.Status)
	setString(q, "search", f.Search)
	setString(q, "sort_by", f.SortBy)
	setString(q, "sort_order", f.SortOrder)
	return q
}
