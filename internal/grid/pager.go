package grid

// NormalizePageSize clamps degenerate page sizes to 1.
func NormalizePageSize(size int) int {
	if size <= 0 {
		return 1
	}
	return size
}

// PageCount returns ceil(total / pageSize), or 0 for an empty set.
func PageCount(total, pageSize int) int {
	if total <= 0 {
		return 0
	}
	pageSize = NormalizePageSize(pageSize)
	return (total + pageSize - 1) / pageSize
}

// ClampPageIndex keeps pageIndex within [0, pageCount-1], or 0 when there
// are no pages.
func ClampPageIndex(pageIndex, total, pageSize int) int {
	count := PageCount(total, pageSize)
	switch {
	case count == 0 || pageIndex < 0:
		return 0
	case pageIndex >= count:
		return count - 1
	default:
		return pageIndex
	}
}

// Paginate returns items[pageIndex*pageSize : pageIndex*pageSize+pageSize]
// clamped to the available length. Out of range pages yield an empty slice.
func Paginate[T any](items []T, pageIndex, pageSize int) []T {
	pageSize = NormalizePageSize(pageSize)
	if pageIndex < 0 || len(items) == 0 || pageIndex > (len(items)-1)/pageSize {
		return []T{}
	}
	start := pageIndex * pageSize
	end := start + pageSize
	if end > len(items) {
		end = len(items)
	}
	return items[start:end:end]
}
