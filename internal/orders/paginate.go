package orders

// DefaultPageSize applies when a page size isn't positive
const DefaultPageSize = 10

// Page is one slice of a listing with its navigation metadata
type Page[T any] struct {
	Items       []T
	Page        int
	PageSize    int
	TotalItems  int
	TotalPages  int
	HasNext     bool
	HasPrevious bool
}

// Paginate returns page number page of items. page is clamped into
// [1, TotalPages]; an empty listing yields page 1 with no items.
func Paginate[T any](items []T, page, pageSize int) Page[T] {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	total := len(items)
	totalPages := total / pageSize
	if total%pageSize != 0 {
		totalPages++
	}
	page = max(1, min(page, totalPages))

	start := min((page-1)*pageSize, total)
	end := min(start+pageSize, total)

	return Page[T]{
		Items:       items[start:end],
		Page:        page,
		PageSize:    pageSize,
		TotalItems:  total,
		TotalPages:  totalPages,
		HasNext:     page < totalPages,
		HasPrevious: page > 1,
	}
}
