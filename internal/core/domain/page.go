package domain

// PageMeta mirrors the pagination block returned alongside paged listings.
type PageMeta struct {
	CurrentPage int   `json:"current_page"`
	From        *int  `json:"from"`
	LastPage    int   `json:"last_page"`
	PerPage     int   `json:"per_page"`
	To          *int  `json:"to"`
	Total       int64 `json:"total"`
}

// NewPageMeta computes pagination metadata for a page of count items.
// From and To are nil when the page is empty.
func NewPageMeta(page, perPage, count int, total int64) PageMeta {
	if perPage < 1 {
		perPage = 1
	}
	if page < 1 {
		page = 1
	}
	last := int((total + int64(perPage) - 1) / int64(perPage))
	if last < 1 {
		last = 1
	}
	meta := PageMeta{CurrentPage: page, LastPage: last, PerPage: perPage, Total: total}
	if count > 0 {
		from := (page-1)*perPage + 1
		to := from + count - 1
		meta.From = &from
		meta.To = &to
	}
	return meta
}
