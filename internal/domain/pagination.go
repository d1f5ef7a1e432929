package domain

// PagePreset holds the default and maximum page size for one kind of listing view.
type PagePreset struct {
	DefaultLimit int
	MaxLimit     int
}

var (
	// PublicPaging is used by discovery.
	PublicPaging = PagePreset{DefaultLimit: 20, MaxLimit: 100}
	// ModerationPaging is used by host and admin views.
	ModerationPaging = PagePreset{DefaultLimit: 10, MaxLimit: 50}
)

// Page is a normalized, 1-indexed page request.
type Page struct {
	Number int
	Limit  int
}

// Offset is the number of rows to skip.
func (p Page) Offset() int {
	return (p.Number - 1) * p.Limit
}

// NormalizePage turns untrusted page/limit inputs into a safe Page.
// A non-positive limit takes the preset default; a larger one is capped.
func NormalizePage(page, limit int, preset PagePreset) Page {
	if page < 1 {
		page = 1
	}
	switch {
	case limit < 1:
		limit = preset.DefaultLimit
	case limit > preset.MaxLimit:
		limit = preset.MaxLimit
	}
	return Page{Number: page, Limit: limit}
}

// Pagination describes a page of results against the total match count.
type Pagination struct {
	Page       int
	Limit      int
	Total      int
	TotalPages int
}

// NewPagination computes totalPages = max(1, ceil(total/limit)).
func NewPagination(p Page, total int) Pagination {
	pages := 1
	if p.Limit > 0 && total > 0 {
		pages = (total + p.Limit - 1) / p.Limit
	}
	return Pagination{Page: p.Number, Limit: p.Limit, Total: total, TotalPages: max(1, pages)}
}

// Paged is one page of items plus its pagination.
type Paged[T any] struct {
	Items []T
	Pagination
}
