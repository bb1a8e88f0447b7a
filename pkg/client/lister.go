package client

import (
	"context"
	"fmt"

	"github.com/Sternrassler/beekeeper-client/pkg/pagination"
)

// Lister fetches one page of a paginated collection endpoint. The backend
// answers GET <path>?page=N&page_size=M&<filters> with
// {"items": [...], "total": N}.
type Lister[T any] struct {
	client *Client
	path   string
}

// NewLister returns a Lister for an arbitrary collection path.
func NewLister[T any](c *Client, path string) *Lister[T] {
	return &Lister[T]{client: c, path: path}
}

// Path returns the collection path.
func (l *Lister[T]) Path() string {
	return l.path
}

// FetchPage implements pagination.PageFetcher.
func (l *Lister[T]) FetchPage(ctx context.Context, req pagination.Request) (pagination.Page[T], error) {
	if err := req.Validate(); err != nil {
		return pagination.Page[T]{}, fmt.Errorf("fetch %s: %w", l.path, err)
	}

	var page pagination.Page[T]
	if err := l.client.getJSON(ctx, l.path, req.Query(), &page); err != nil {
		return pagination.Page[T]{}, fmt.Errorf("fetch %s (%s): %w", l.path, req.Key(), err)
	}
	if page.Items == nil {
		page.Items = []T{}
	}
	return page, nil
}

// Articles lists blog articles. Filters: tag, author, search.
func (c *Client) Articles() *Lister[Article] {
	return NewLister[Article](c, "/api/articles")
}

// Threads lists forum threads. Filters: category, search.
func (c *Client) Threads() *Lister[Thread] {
	return NewLister[Thread](c, "/api/forum/threads")
}

// Comments lists the comments of an article.
func (c *Client) Comments(articleID int64) *Lister[Comment] {
	return NewLister[Comment](c, fmt.Sprintf("/api/articles/%d/comments", articleID))
}

// Tags lists the tags in use.
func (c *Client) Tags() *Lister[Tag] {
	return NewLister[Tag](c, "/api/tags")
}
