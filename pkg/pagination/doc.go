// Package pagination holds the list-position primitives shared by every
// article and forum listing.
//
// Calculate turns (totalItems, currentPage, pageSize, maxVisiblePages) into
// the window of page numbers a pager shows, plus boundary flags. It never
// fails: out-of-range input is clamped.
//
//	w := pagination.Calculate(230, 12, 10, 5)
//	// w.TotalPages == 23, w.Numbers() == [10 11 12 13 14]
//	// w.Controls() renders as 1 ... 10 11 12 13 14 ... 23
//
// State wraps the same inputs as an immutable value with clamping mutators,
// and Request describes a single page fetch with its filters.
//
// BatchFetcher walks every page of a list with a worker pool:
//   - Fetches the first page to learn the total
//   - Spawns a bounded worker pool for the remaining pages
//   - Returns items in page order, or partial data with the first error
package pagination
