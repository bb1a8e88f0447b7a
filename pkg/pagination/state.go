package pagination

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// State is the pagination position of one list. It is a value: every
// mutator returns a new State and leaves the receiver untouched.
type State struct {
	TotalItems      int
	PageSize        int
	CurrentPage     int
	MaxVisiblePages int
}

// NewState builds a State with CurrentPage clamped into range.
// Zero pageSize and maxVisiblePages select the defaults.
func NewState(totalItems, currentPage, pageSize, maxVisiblePages int) State {
	if pageSize == 0 {
		pageSize = DefaultPageSize
	}
	if maxVisiblePages == 0 {
		maxVisiblePages = DefaultMaxVisiblePages
	}
	s := State{
		TotalItems:      max(totalItems, 0),
		PageSize:        max(pageSize, 1),
		CurrentPage:     currentPage,
		MaxVisiblePages: max(maxVisiblePages, 1),
	}
	s.CurrentPage = clamp(currentPage, 1, s.TotalPages())
	return s
}

// TotalPages returns the page count, at least 1.
func (s State) TotalPages() int {
	return TotalPages(s.TotalItems, s.PageSize)
}

// Window computes the pager window for this state.
func (s State) Window() Window {
	return Calculate(s.TotalItems, s.CurrentPage, s.PageSize, s.MaxVisiblePages)
}

// WithPage returns a copy positioned on page, clamped into range.
func (s State) WithPage(page int) State {
	return NewState(s.TotalItems, page, s.PageSize, s.MaxVisiblePages)
}

// WithTotal returns a copy with a new item count; the current page is
// pulled back into range if the list shrank.
func (s State) WithTotal(totalItems int) State {
	return NewState(totalItems, s.CurrentPage, s.PageSize, s.MaxVisiblePages)
}

// WithPageSize returns a copy with a new page size, back on page 1.
func (s State) WithPageSize(pageSize int) State {
	return NewState(s.TotalItems, 1, pageSize, s.MaxVisiblePages)
}

// Offset is the zero-based index of the first item on the current page.
func (s State) Offset() int {
	return (s.CurrentPage - 1) * s.PageSize
}

// Page is one page of a list as returned by a data source.
type Page[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
}

// ErrReservedFilter is returned for filters named like a paging parameter.
var ErrReservedFilter = errors.New("reserved filter name")

// Filters maps filter names to values. A nil value means the filter is
// present but undefined, which compares equal to the key being absent.
type Filters map[string]*string

// Value returns a pointer to v, for building Filters literals.
func Value(v string) *string {
	return &v
}

// Get returns the filter value and whether it is defined.
func (f Filters) Get(name string) (string, bool) {
	v, ok := f[name]
	if !ok || v == nil {
		return "", false
	}
	return *v, true
}

// Clone copies the defined entries of f.
func (f Filters) Clone() Filters {
	if f == nil {
		return nil
	}
	out := make(Filters, len(f))
	for k, v := range f {
		if v == nil {
			continue
		}
		val := *v
		out[k] = &val
	}
	return out
}

// Equal reports whether f and other define the same values.
func (f Filters) Equal(other Filters) bool {
	defined := func(m Filters) int {
		n := 0
		for _, v := range m {
			if v != nil {
				n++
			}
		}
		return n
	}
	if defined(f) != defined(other) {
		return false
	}
	for k, v := range f {
		if v == nil {
			continue
		}
		ov, ok := other.Get(k)
		if !ok || ov != *v {
			return false
		}
	}
	return true
}

// Validate rejects filters named page or page_size.
func (f Filters) Validate() error {
	for k, v := range f {
		if v != nil && isReserved(k) {
			return fmt.Errorf("%w: %q", ErrReservedFilter, k)
		}
	}
	return nil
}

func isReserved(name string) bool {
	return name == "page" || name == "page_size"
}

// Query encodes the defined filters as URL query values. Reserved names
// are left out; see Validate.
func (f Filters) Query() url.Values {
	q := url.Values{}
	for k, v := range f {
		if v != nil && !isReserved(k) {
			q.Set(k, *v)
		}
	}
	return q
}

// Request describes one list fetch.
type Request struct {
	Page     int
	PageSize int
	Filters  Filters
}

// Equal reports value equality of two requests.
func (r Request) Equal(other Request) bool {
	return r.Page == other.Page &&
		r.PageSize == other.PageSize &&
		r.Filters.Equal(other.Filters)
}

// Query encodes the request as URL query values (page, page_size, filters).
func (r Request) Query() url.Values {
	q := r.Filters.Query()
	q.Set("page", strconv.Itoa(r.Page))
	q.Set("page_size", strconv.Itoa(r.PageSize))
	return q
}

// Validate reports filters that would collide with the paging parameters.
func (r Request) Validate() error {
	return r.Filters.Validate()
}

// Key renders a deterministic string for the request. Filter names and
// values are query-escaped so ':' cannot appear inside a field.
// Format: page=2:size=10:author=bee:tag=go
func (r Request) Key() string {
	parts := []string{
		fmt.Sprintf("page=%d", r.Page),
		fmt.Sprintf("size=%d", r.PageSize),
	}
	names := make([]string, 0, len(r.Filters))
	for k, v := range r.Filters {
		if v != nil {
			names = append(names, k)
		}
	}
	sort.Strings(names)
	for _, k := range names {
		parts = append(parts, url.QueryEscape(k)+"="+url.QueryEscape(*r.Filters[k]))
	}
	return strings.Join(parts, ":")
}
