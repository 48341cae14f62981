package api

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParsePagination(t *testing.T) {
	tests := []struct {
		query      string
		wantLimit  int
		wantOffset int
	}{
		{"", defaultPageLimit, 0},
		{"limit=25&offset=5", 25, 5},
		{"limit=500", maxPageLimit, 0},
		{"limit=0", defaultPageLimit, 0},
		{"limit=-3&offset=-5", defaultPageLimit, 0},
		{"limit=abc&offset=xyz", defaultPageLimit, 0},
		{"offset=999999", defaultPageLimit, 999999},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/logs?"+tt.query, nil)
			limit, offset := parsePagination(r)
			assert.Equal(t, tt.wantLimit, limit, "limit")
			assert.Equal(t, tt.wantOffset, offset, "offset")
		})
	}
}

func TestPaginateSlice(t *testing.T) {
	tests := []struct {
		name                 string
		total, limit, offset int
		wantStart, wantEnd   int
		wantMore             bool
	}{
		{"first page", 50, 10, 0, 0, 10, true},
		{"last page partial", 25, 10, 20, 20, 25, false},
		{"exact fit", 10, 10, 0, 0, 10, false},
		{"offset beyond total", 5, 10, 100, 5, 5, false},
		{"empty", 0, 10, 0, 0, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end, meta := paginateSlice(tt.total, tt.limit, tt.offset)
			assert.Equal(t, tt.wantStart, start)
			assert.Equal(t, tt.wantEnd, end)
			assert.Equal(t, tt.wantMore, meta.HasMore)
			assert.Equal(t, tt.total, meta.TotalCount)
			assert.Equal(t, tt.offset, meta.Offset)
			assert.LessOrEqual(t, start, end)
		})
	}
}
