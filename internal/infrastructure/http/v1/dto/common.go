// Package dto provides Data Transfer Objects for API requests/responses.
package dto

import (
	"time"

	"lotkeeper/internal/core/apperror"
	"lotkeeper/internal/core/id"
	"lotkeeper/internal/domain"
)

// --- List Response ---

// ListResponse wraps list results with pagination.
type ListResponse struct {
	Items      any   `json:"items"`
	TotalCount int64 `json:"totalCount"`
	Limit      int   `json:"limit"`
	Offset     int   `json:"offset"`
}

// FromListResult wraps a page of domain records.
func FromListResult[T any](r domain.ListResult[T]) ListResponse {
	items := r.Items
	if items == nil {
		items = []T{}
	}
	return ListResponse{
		Items:      items,
		TotalCount: r.TotalCount,
		Limit:      r.Limit,
		Offset:     r.Offset,
	}
}

// --- Common Filters ---

// ListQuery contains common list parameters.
type ListQuery struct {
	Search string     `form:"search"`
	From   *time.Time `form:"from" time_format:"2006-01-02"`
	To     *time.Time `form:"to" time_format:"2006-01-02"`
	Limit  int        `form:"limit" binding:"omitempty,min=1,max=500"`
	Offset int        `form:"offset" binding:"omitempty,min=0"`
}

// ToFilter converts the query into a domain filter.
func (q ListQuery) ToFilter() domain.ListFilter {
	f := domain.DefaultListFilter()
	f.Search = q.Search
	f.From = q.From
	f.To = q.To
	if q.Limit > 0 {
		f.Limit = q.Limit
	}
	f.Offset = q.Offset
	return f
}

// --- ID Response ---

// IDResponse for create operations.
type IDResponse struct {
	ID string `json:"id"`
}

// NewIDResponse creates ID response.
func NewIDResponse(i id.ID) IDResponse {
	return IDResponse{ID: i.String()}
}

// --- Error Response ---

// ErrorResponse for error details.
type ErrorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// FromAppError renders an AppError.
func FromAppError(e *apperror.AppError) ErrorResponse {
	return ErrorResponse{Code: e.Code, Message: e.Message, Details: e.Details}
}

// PartialResponse is the 207 body: the committed result plus what failed after it.
type PartialResponse struct {
	Result   any             `json:"result"`
	Warnings []ErrorResponse `json:"warnings"`
}
