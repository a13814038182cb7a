// Package pager computes page windows over the case catalog. The store
// probes one row past the requested page size, so "has next" never needs a
// separate count query (and never races against one).
package pager

import (
	"context"

	"casebot/internal/store"
)

// CaseLister is the slice of the data store the pager needs. ListCases
// returns up to pageSize+1 rows; the extra row signals a following page.
type CaseLister interface {
	ListCases(ctx context.Context, status string, page, pageSize int) ([]store.Case, error)
}

// Window is one page of cases plus its navigation flags.
type Window struct {
	Page    int
	Limit   int
	HasPrev bool
	HasNext bool
	Cases   []store.Case
}

// FetchPage returns page `page` of cases with at most `limit` items,
// optionally filtered by status. Page is clamped to >= 0 and limit to
// >= 1 before use.
//
// Ordering is sort_order, then recency, then id descending. Offset-based
// paging can skip or duplicate rows when cases change between fetches;
// that is an accepted approximation for an operator console.
func FetchPage(ctx context.Context, lister CaseLister, status string, page, limit int) (Window, error) {
	if page < 0 {
		page = 0
	}
	if limit < 1 {
		limit = 1
	}

	cases, err := lister.ListCases(ctx, status, page, limit)
	if err != nil {
		return Window{}, err
	}

	hasNext := len(cases) > limit
	if hasNext {
		cases = cases[:limit]
	}
	return Window{
		Page:    page,
		Limit:   limit,
		HasPrev: page > 0,
		HasNext: hasNext,
		Cases:   cases,
	}, nil
}
