package pagination

import "strconv"

// Default values used when a caller leaves pagination settings unset.
const (
	DefaultPageSize        = 10
	DefaultMaxVisiblePages = 5
)

// PageItem is one element of a pager control row: either a page number or
// an ellipsis marker standing in for a run of hidden pages.
type PageItem struct {
	Number   int
	Ellipsis bool
}

// PageNumber returns a PageItem for page n.
func PageNumber(n int) PageItem {
	return PageItem{Number: n}
}

// EllipsisItem is the marker for hidden pages.
var EllipsisItem = PageItem{Ellipsis: true}

// String renders the item the way a pager shows it.
func (p PageItem) String() string {
	if p.Ellipsis {
		return "..."
	}
	return strconv.Itoa(p.Number)
}

// Window is the result of a pager computation.
type Window struct {
	TotalPages      int
	CurrentPage     int
	VisiblePages    []PageItem
	HasNextPage     bool
	HasPreviousPage bool
	IsFirstPage     bool
	IsLastPage      bool
}

// Calculate computes the visible page window for the given list position.
//
// Inputs are clamped rather than rejected: negative totals count as zero,
// page sizes and window widths below one count as one, and the current page
// is pulled into [1, TotalPages]. The result depends only on the arguments.
func Calculate(totalItems, currentPage, pageSize, maxVisiblePages int) Window {
	if totalItems < 0 {
		totalItems = 0
	}
	if pageSize < 1 {
		pageSize = 1
	}
	if maxVisiblePages < 1 {
		maxVisiblePages = 1
	}

	totalPages := TotalPages(totalItems, pageSize)
	currentPage = clamp(currentPage, 1, totalPages)

	var start, end int
	if totalPages <= maxVisiblePages {
		start, end = 1, totalPages
	} else {
		start = clamp(currentPage-maxVisiblePages/2, 1, totalPages-maxVisiblePages+1)
		end = start + maxVisiblePages - 1
	}

	visible := make([]PageItem, 0, end-start+1)
	for n := start; n <= end; n++ {
		visible = append(visible, PageNumber(n))
	}

	return Window{
		TotalPages:      totalPages,
		CurrentPage:     currentPage,
		VisiblePages:    visible,
		HasNextPage:     currentPage < totalPages,
		HasPreviousPage: currentPage > 1,
		IsFirstPage:     currentPage == 1,
		IsLastPage:      currentPage == totalPages,
	}
}

// Controls returns the full pager row: the visible window, framed by the
// first and last pages when they fall outside it. An ellipsis is emitted
// only when it hides at least one page; a gap of exactly one page shows
// that page instead.
func (w Window) Controls() []PageItem {
	if len(w.VisiblePages) == 0 {
		return nil
	}
	first := w.VisiblePages[0].Number
	last := w.VisiblePages[len(w.VisiblePages)-1].Number

	items := make([]PageItem, 0, len(w.VisiblePages)+4)
	if first > 1 {
		items = append(items, PageNumber(1))
		switch {
		case first == 3:
			items = append(items, PageNumber(2))
		case first > 3:
			items = append(items, EllipsisItem)
		}
	}
	items = append(items, w.VisiblePages...)
	if last < w.TotalPages {
		switch {
		case last == w.TotalPages-2:
			items = append(items, PageNumber(w.TotalPages-1))
		case last < w.TotalPages-2:
			items = append(items, EllipsisItem)
		}
		items = append(items, PageNumber(w.TotalPages))
	}
	return items
}

// Numbers returns the page numbers of the visible window.
func (w Window) Numbers() []int {
	nums := make([]int, 0, len(w.VisiblePages))
	for _, p := range w.VisiblePages {
		if !p.Ellipsis {
			nums = append(nums, p.Number)
		}
	}
	return nums
}

// TotalPages returns ceil(totalItems/pageSize), never less than 1.
func TotalPages(totalItems, pageSize int) int {
	if pageSize < 1 {
		pageSize = 1
	}
	if totalItems <= 0 {
		return 1
	}
	return (totalItems + pageSize - 1) / pageSize
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		hi = lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
