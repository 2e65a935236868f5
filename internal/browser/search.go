package browser

import (
	"context"
	"strings"
	"sync"

	"github.com/rebeliceyang/lazyweave/internal/models"
)

// Search swaps paged browsing for a one-shot keyword query on the same
// controller. Paging is suspended while a search owns the displayed objects
// and resumes at the same page when the search is reset.
type Search struct {
	mu sync.Mutex

	src   Source
	ctrl  *Controller
	limit int

	query  string
	seq    uint64
	result *models.SearchResult
	err    error
}

// NewSearch creates a coordinator for ctrl. limit caps the number of hits;
// zero uses the controller's page size.
func NewSearch(src Source, ctrl *Controller, limit int) *Search {
	return &Search{src: src, ctrl: ctrl, limit: limit}
}

// Run executes query. A blank query is the same as Reset.
//
// The sequence bump and the controller's switch into search mode happen
// under one lock, as do the staleness check and applying the result, so a
// concurrent Reset either fully precedes or fully follows each step.
func (s *Search) Run(ctx context.Context, query string) error {
	query = strings.TrimSpace(query)
	if query == "" {
		return s.Reset(ctx)
	}

	s.mu.Lock()
	s.seq++
	seq := s.seq
	s.query = query
	s.err = nil
	q, epoch := s.ctrl.beginSearch()
	s.mu.Unlock()

	q.Query = query
	if s.limit > 0 {
		q.Limit = s.limit
	}

	res, err := s.src.Search(ctx, q)

	s.mu.Lock()
	defer s.mu.Unlock()
	if seq != s.seq {
		s.ctrl.log.Debug("discarding stale search result", "query", query)
		return nil
	}
	var ferr error
	if err != nil {
		ferr = &models.FetchError{Op: "search", Err: err}
	}
	// The search may have ended meanwhile, e.g. by a tenant switch
	if !s.ctrl.searchDone(q, epoch, res, ferr) {
		s.ctrl.log.Debug("discarding search result for old scope", "query", query, "tenant", q.Tenant)
		return nil
	}
	if ferr != nil {
		s.err = ferr
		return ferr
	}
	s.result = &res
	return nil
}

// Reset leaves search mode. The controller resumes with its existing cursor
// history and page size, and only refetches if the displayed page is not
// the one for its current position.
func (s *Search) Reset(ctx context.Context) error {
	s.mu.Lock()
	s.seq++
	s.result = nil
	s.err = nil
	s.ctrl.endSearch()
	s.mu.Unlock()

	return s.ctrl.ensure(ctx)
}

// clear drops the query text and any result without touching the controller
func (s *Search) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	s.query = ""
	s.result = nil
	s.err = nil
}

// Query returns the text of the last search
func (s *Search) Query() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.query
}

// Result returns the current search hits, false when none are held
func (s *Search) Result() (models.SearchResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.result == nil {
		return models.SearchResult{}, false
	}
	return models.SearchResult{
		Objects:       append([]models.Object(nil), s.result.Objects...),
		ExecutionTime: s.result.ExecutionTime,
	}, true
}

func (s *Search) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}
