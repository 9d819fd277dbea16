package paging

import (
	"net/http/httptest"
	"testing"
)

func seq(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i + 1
	}
	return out
}

func TestParseStart(t *testing.T) {
	tests := []struct {
		query string
		want  int
	}{
		{"", 1},
		{"?start=26", 26},
		{"?start=0", 1},
		{"?start=-4", 1},
		{"?start=abc", 1},
	}
	for _, tt := range tests {
		r := httptest.NewRequest("GET", "/persons"+tt.query, nil)
		if got := ParseStart(r); got != tt.want {
			t.Errorf("ParseStart(%q) = %d, want %d", tt.query, got, tt.want)
		}
	}
}

func TestPage(t *testing.T) {
	tests := []struct {
		name      string
		total     int
		start     int
		wantFirst int
		wantLen   int
		want      Range
	}{
		{"empty", 0, 1, 0, 0, Range{PrevStart: 1, NextStart: 1}},
		{"first page", 25, 1, 1, 10, Range{Start: 1, End: 10, Total: 25, HasNext: true, PrevStart: 1, NextStart: 11}},
		{"middle page", 25, 11, 11, 10, Range{Start: 11, End: 20, Total: 25, HasPrev: true, HasNext: true, PrevStart: 1, NextStart: 21}},
		{"last page", 25, 21, 21, 5, Range{Start: 21, End: 25, Total: 25, HasPrev: true, PrevStart: 11, NextStart: 26}},
		{"past the end", 25, 90, 21, 5, Range{Start: 21, End: 25, Total: 25, HasPrev: true, PrevStart: 11, NextStart: 26}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, rng := pageWithSize(seq(tt.total), tt.start, 10)
			if len(page) != tt.wantLen {
				t.Fatalf("len = %d, want %d", len(page), tt.wantLen)
			}
			if tt.wantLen > 0 && page[0] != tt.wantFirst {
				t.Errorf("first = %d, want %d", page[0], tt.wantFirst)
			}
			if rng != tt.want {
				t.Errorf("range = %+v, want %+v", rng, tt.want)
			}
		})
	}
}

func TestPage_DefaultSize(t *testing.T) {
	page, rng := Page(seq(PageSize+1), 1)
	if len(page) != PageSize || !rng.HasNext {
		t.Errorf("len = %d, range = %+v", len(page), rng)
	}
}
