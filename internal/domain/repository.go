// Package domain provides types shared by every domain package.
package domain

import (
	"time"
)

// ListFilter contains common filtering options for list operations.
type ListFilter struct {
	// Search matches names case-insensitively
	Search string

	// From/To bound the business date (inclusive from, exclusive to)
	From *time.Time
	To   *time.Time

	// Pagination
	Limit  int
	Offset int
}

// DefaultListFilter returns sensible defaults.
func DefaultListFilter() ListFilter {
	return ListFilter{
		Limit: 50,
	}
}

// Normalize applies default and maximum page sizes.
func (f *ListFilter) Normalize() {
	if f.Limit <= 0 {
		f.Limit = 50
	}
	if f.Limit > 500 {
		f.Limit = 500
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
}

// InRange reports whether t falls inside the filter's date window.
func (f ListFilter) InRange(t time.Time) bool {
	if f.From != nil && t.Before(*f.From) {
		return false
	}
	if f.To != nil && !t.Before(*f.To) {
		return false
	}
	return true
}

// ListResult contains paginated results.
type ListResult[T any] struct {
	Items      []T   `json:"items"`
	TotalCount int64 `json:"totalCount"`
	Limit      int   `json:"limit"`
	Offset     int   `json:"offset"`
}

// Page cuts items according to f, reporting the full count.
func Page[T any](items []T, f ListFilter) ListResult[T] {
	f.Normalize()
	total := len(items)
	start := f.Offset
	if start > total {
		start = total
	}
	end := start + f.Limit
	if end > total {
		end = total
	}
	return ListResult[T]{
		Items:      items[start:end],
		TotalCount: int64(total),
		Limit:      f.Limit,
		Offset:     f.Offset,
	}
}
