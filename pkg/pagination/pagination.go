// Package pagination provides the limit/offset window and response
// envelope shared by every list endpoint.
package pagination

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Params is a limit/offset window over a list query.
type Params struct {
	Limit  int
	Offset int
}

// FromContext reads the limit and offset query parameters. A missing or
// non-positive limit falls back to DefaultLimit; limits above MaxLimit
// are clamped; negative offsets become zero.
func FromContext(c echo.Context) Params {
	p := Params{Limit: DefaultLimit}

	if n, err := strconv.Atoi(c.QueryParam("limit")); err == nil && n > 0 {
		p.Limit = n
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	if n, err := strconv.Atoi(c.QueryParam("offset")); err == nil && n > 0 {
		p.Offset = n
	}
	return p
}

// Next returns the window for the page after this one.
func (p Params) Next() Params {
	return Params{Limit: p.Limit, Offset: p.Offset + p.Limit}
}

// Response is the envelope every paginated endpoint returns.
type Response struct {
	Data    interface{} `json:"data"`
	Total   int         `json:"total"`
	Limit   int         `json:"limit"`
	Offset  int         `json:"offset"`
	HasMore bool        `json:"has_more"`
}

// NewResponse wraps one page of results. HasMore reports whether rows
// remain past this window.
func NewResponse(data interface{}, total, limit, offset int) *Response {
	return &Response{
		Data:    data,
		Total:   total,
		Limit:   limit,
		Offset:  offset,
		HasMore: offset+limit < total,
	}
}
