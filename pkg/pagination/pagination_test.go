package pagination

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func paramsFor(t *testing.T, query string) Params {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/?"+query, nil)
	return FromContext(e.NewContext(req, httptest.NewRecorder()))
}

func TestFromContext(t *testing.T) {
	tests := []struct {
		query  string
		limit  int
		offset int
	}{
		{"", DefaultLimit, 0},
		{"limit=50&offset=10", 50, 10},
		{"limit=500", MaxLimit, 0},
		{"limit=-5&offset=-5", DefaultLimit, 0},
		{"limit=abc", DefaultLimit, 0},
	}
	for _, tt := range tests {
		p := paramsFor(t, tt.query)
		if p.Limit != tt.limit || p.Offset != tt.offset {
			t.Errorf("%q: got limit=%d offset=%d, want %d/%d", tt.query, p.Limit, p.Offset, tt.limit, tt.offset)
		}
	}
}

func TestNext(t *testing.T) {
	p := Params{Limit: 20, Offset: 40}
	if n := p.Next(); n.Offset != 60 || n.Limit != 20 {
		t.Errorf("unexpected next window: %+v", n)
	}
}

func TestNewResponse_HasMore(t *testing.T) {
	if r := NewResponse(nil, 100, 20, 0); !r.HasMore {
		t.Error("expected has_more on first page")
	}
	if r := NewResponse(nil, 100, 20, 80); r.HasMore {
		t.Error("expected no has_more on last page")
	}
	if r := NewResponse(nil, 0, 20, 0); r.HasMore {
		t.Error("expected no has_more on empty result")
	}
}
