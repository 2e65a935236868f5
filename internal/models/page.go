package models

import "time"

// DefaultPageSize is used for new views and after a tenant change
const DefaultPageSize = 25

// PageSizes is the allowed set of page sizes
var PageSizes = []int{10, 25, 50, 75, 100}

// ValidPageSize reports whether n is in sizes
func ValidPageSize(sizes []int, n int) bool {
	for _, s := range sizes {
		if s == n {
			return true
		}
	}
	return false
}

// Object is a single stored object
type Object struct {
	ID          string         `json:"id"`
	Collection  string         `json:"class,omitempty"`
	Tenant      string         `json:"tenant,omitempty"`
	CreatedUnix int64          `json:"creationTimeUnix,omitempty"`
	UpdatedUnix int64          `json:"lastUpdateTimeUnix,omitempty"`
	Properties  map[string]any `json:"properties,omitempty"`
}

// Tenant is a namespace partition of a multi-tenant collection
type Tenant struct {
	Name   string
	Status string
}

// FetchKey is the identity of a page fetch. Two fetches with equal keys are
// interchangeable.
type FetchKey struct {
	ConnectionID int64
	Collection   string
	Cursor       string
	PageSize     int
	Tenant       string
}

// Page is a single page of objects
type Page struct {
	Objects []Object
	// NextCursor is the id of the last object, empty when the page is empty
	NextCursor string
}

// SearchQuery is a one-shot keyword query
type SearchQuery struct {
	ConnectionID int64
	Collection   string
	Tenant       string
	Query        string
	Limit        int
}

// SearchResult is the outcome of a keyword query
type SearchResult struct {
	Objects       []Object
	ExecutionTime time.Duration
}

// PaginationState is owned by one open collection view.
// CurrentPage is always len(Cursors)+1.
type PaginationState struct {
	PageSize  int
	Cursors   []string
	Tenant    string
	Searching bool
	// SearchTime is set after a search completes, nil otherwise
	SearchTime *time.Duration
	Total      int64
	TotalKnown bool
}

// NewPaginationState returns page-one state with the given size
func NewPaginationState(pageSize int) PaginationState {
	return PaginationState{PageSize: pageSize}
}

func (s PaginationState) CurrentPage() int {
	return len(s.Cursors) + 1
}

// TotalPages is zero until the total count is known
func (s PaginationState) TotalPages() int {
	if !s.TotalKnown || s.PageSize <= 0 {
		return 0
	}
	return int((s.Total + int64(s.PageSize) - 1) / int64(s.PageSize))
}

// LastCursor returns the cursor of the current page, empty on page one
func (s PaginationState) LastCursor() string {
	if len(s.Cursors) == 0 {
		return ""
	}
	return s.Cursors[len(s.Cursors)-1]
}

// Clone copies the cursor history
func (s PaginationState) Clone() PaginationState {
	out := s
	out.Cursors = append([]string(nil), s.Cursors...)
	if s.SearchTime != nil {
		d := *s.SearchTime
		out.SearchTime = &d
	}
	return out
}
