// Package utils provides small, generic helper functions used across
// different layers of the application. These utilities are independent
// of domain or business logic.
package utils

import "strconv"

// Pagination bounds for list endpoints.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// ParsePage interprets the page and page_size query values. Unparseable or
// out-of-range input falls back to page 1 and DefaultPageSize; page_size is
// capped at MaxPageSize so a single request cannot sweep the whole table.
func ParsePage(pageStr, sizeStr string) (page, size int) {
	page = 1
	if n, err := strconv.Atoi(pageStr); err == nil && n > 0 {
		page = n
	}
	size = DefaultPageSize
	if n, err := strconv.Atoi(sizeStr); err == nil && n > 0 {
		size = n
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	return page, size
}

// TotalPages returns the page count for total items at pageSize per page.
func TotalPages(total int64, pageSize int) int64 {
	if pageSize <= 0 {
		return 0
	}
	return (total + int64(pageSize) - 1) / int64(pageSize)
}
