package domain

// Pagination describes where a page sits in a result set.
type Pagination struct {
	Page    int  `json:"page"`
	Pages   int  `json:"pages"`
	Total   int  `json:"total"`
	HasNext bool `json:"has_next"`
	HasPrev bool `json:"has_prev"`
}

// PageCount returns ceil(total/size). A non-positive size yields 0.
func PageCount(total, size int) int {
	if total <= 0 || size <= 0 {
		return 0
	}
	return (total + size - 1) / size
}

// Offset returns the number of rows skipped before the given page.
func Offset(page, size int) int {
	return (ClampPage(page) - 1) * size
}

// NewPagination builds the metadata for page out of total rows.
func NewPagination(page, size, total int) Pagination {
	page = ClampPage(page)
	pages := PageCount(total, size)
	return Pagination{
		Page:    page,
		Pages:   pages,
		Total:   total,
		HasNext: page < pages,
		HasPrev: page > 1,
	}
}
