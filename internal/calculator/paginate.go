package calculator

// DefaultPageSize matches the finance ledger's rows per page.
const DefaultPageSize = 30

// Paginate returns the items of page (1-based), the page actually served and the
// total page count. Out-of-range pages are clamped.
func Paginate[T any](items []T, page, size int) ([]T, int, int) {
	if size <= 0 {
		size = DefaultPageSize
	}
	total := (len(items) + size - 1) / size
	if total == 0 {
		return []T{}, 1, 0
	}
	if page < 1 {
		page = 1
	}
	if page > total {
		page = total
	}
	start := (page - 1) * size
	end := start + size
	if end > len(items) {
		end = len(items)
	}
	return items[start:end], page, total
}
