package types

// DefaultPageSize is the page size of a freshly created store.
const DefaultPageSize = 10

// PageRequest selects one page of a listing. Page is 1-based.
type PageRequest struct {
	Page     int
	PageSize int
}

// Page is one page of a listing as returned by the remote service.
// Total counts all matching entities, not just this page.
type Page[T any] struct {
	Data     []T `json:"data"`
	Total    int `json:"total"`
	Page     int `json:"page"`
	PageSize int `json:"pageSize"`
}

// Pagination is the pagination state held by an entity store.
type Pagination struct {
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
	Total    int `json:"total"`
}

// Pages returns the number of pages needed to show Total entities.
func (p Pagination) Pages() int {
	if p.PageSize <= 0 || p.Total <= 0 {
		return 0
	}
	return (p.Total + p.PageSize - 1) / p.PageSize
}

// HasNext reports whether a page follows the current one.
func (p Pagination) HasNext() bool {
	return p.Page < p.Pages()
}

// HasPrev reports whether a page precedes the current one.
func (p Pagination) HasPrev() bool {
	return p.Page > 1
}
