package cache

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// KeyPrefix namespaces every cache key in Redis.
const KeyPrefix = "blog"

// Key identifies a cached API response.
type Key struct {
	// Path is the API path (e.g. "/api/articles")
	Path string

	// Query holds the query parameters (page, page_size, filters)
	Query url.Values

	// UserID scopes responses of authenticated requests (0 for anonymous)
	UserID int64
}

// String generates a deterministic key string.
// Format: blog:path:query1=val1:query2=val2:user=42
//
// Example:
//
//	blog:api/articles:page=2:page_size=10:tag=go
func (k Key) String() string {
	parts := []string{KeyPrefix}

	path := strings.Trim(k.Path, "/")
	if path != "" {
		parts = append(parts, path)
	}

	if len(k.Query) > 0 {
		names := make([]string, 0, len(k.Query))
		for name := range k.Query {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			values := append([]string(nil), k.Query[name]...)
			sort.Strings(values)
			parts = append(parts, fmt.Sprintf("%s=%s", name, strings.Join(values, ",")))
		}
	}

	if k.UserID > 0 {
		parts = append(parts, fmt.Sprintf("user=%d", k.UserID))
	}

	return strings.Join(parts, ":")
}

// Pattern returns a Redis MATCH pattern covering every cached query of path.
func Pattern(path string) string {
	return fmt.Sprintf("%s:%s*", KeyPrefix, strings.Trim(path, "/"))
}
