package engine

import "fmt"

// Page size limits
const (
	DefaultPageSize = 25
	MaxPageSize     = 200
)

// TotalPages is the number of pages n items fill, never less than one.
func TotalPages(n, size int) int {
	if size < 1 {
		size = DefaultPageSize
	}
	if n <= 0 {
		return 1
	}
	return (n + size - 1) / size
}

// Paginate returns items[size*(page-1) : size*page], clipped to the slice.
// A page outside [1, TotalPages] yields ErrPageOutOfRange.
func Paginate[T any](items []T, page, size int) ([]T, error) {
	if size < 1 {
		size = DefaultPageSize
	}
	total := TotalPages(len(items), size)
	if page < 1 || page > total {
		return nil, fmt.Errorf("%w: page %d of %d", ErrPageOutOfRange, page, total)
	}
	start := size * (page - 1)
	end := min(start+size, len(items))
	return items[start:end], nil
}
