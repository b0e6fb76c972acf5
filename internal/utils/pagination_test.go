package utils

import "testing"

func TestParsePage(t *testing.T) {
	cases := []struct {
		page, size string
		wantPage   int
		wantSize   int
	}{
		{"", "", 1, DefaultPageSize},
		{"2", "20", 2, 20},
		{"0", "0", 1, DefaultPageSize},
		{"-3", "-5", 1, DefaultPageSize},
		{"x", "4.2", 1, DefaultPageSize},
		{"7", "500", 7, MaxPageSize},
		{" 1", "10", 1, 10}, // Atoi rejects whitespace
	}
	for _, tc := range cases {
		page, size := ParsePage(tc.page, tc.size)
		if page != tc.wantPage || size != tc.wantSize {
			t.Errorf("ParsePage(%q, %q) = (%d, %d), want (%d, %d)",
				tc.page, tc.size, page, size, tc.wantPage, tc.wantSize)
		}
	}
}

func TestTotalPages(t *testing.T) {
	cases := []struct {
		total    int64
		pageSize int
		want     int64
	}{
		{0, 20, 0},
		{1, 20, 1},
		{20, 20, 1},
		{21, 20, 2},
		{41, 20, 3},
		{41, 0, 0},
	}
	for _, tc := range cases {
		if got := TotalPages(tc.total, tc.pageSize); got != tc.want {
			t.Errorf("TotalPages(%d, %d) = %d, want %d", tc.total, tc.pageSize, got, tc.want)
		}
	}
}
