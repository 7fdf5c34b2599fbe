package types

import (
	"net/url"
	"strconv"
	"time"
)

// Worker is a member of the workforce.
// UserID is set by the server from the authenticated user and is never
// sent by the client.
type Worker struct {
	ID        int64      `json:"id,omitempty"`
	Name      string     `json:"name"`
	Age       int        `json:"age"`
	Position  string     `json:"position"`
	Salary    int64      `json:"salary"`
	UserID    int64      `json:"user_id,omitempty"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// EntityID returns the worker ID.
func (w Worker) EntityID() int64 {
	return w.ID
}

// WithoutID returns a copy of w with the ID cleared.
func (w Worker) WithoutID() Worker {
	w.ID = 0
	return w
}

// WorkerFilters narrows a worker listing.
type WorkerFilters struct {
	Search    string `json:"search,omitempty"`
	Position  string `json:"position,omitempty"`
	MinAge    int    `json:"min_age,omitempty"`
	MaxAge    int    `json:"max_age,omitempty"`
	MinSalary int64  `json:"min_salary,omitempty"`
	MaxSalary int64  `json:"max_salary,omitempty"`
	SortBy    string `json:"sort_by,omitempty"`
	SortOrder string `json:"sort_order,omitempty"`
}

// Query encodes the non-zero filters as URL query parameters.
func (f WorkerFilters) Query() url.Values {
	q := url.Values{}
	setString(q, "search", f.Search)
	setString(q, "position", f.Position)
	setInt(q, "min_age", int64(f.MinAge))
	setInt(q, "max_age", int64(f.MaxAge))
	setInt(q, "min_salary", f.MinSalary)
	setInt(q, "max_salary", f.MaxSalary)
	setString(q, "sort_by", f.SortBy)
	setString(q, "sort_order", f.SortOrder)
	return q
}

func setString(q url.Values, key, value string) {
	if value != "" {
		q.Set(key, value)
	}
}

func setInt(q url.Values, key string, value int64) {
	if value != 0 {
		q.Set(key, strconv.FormatInt(value, 10))
	}
}
