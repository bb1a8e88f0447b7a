// Package testutil provides testing utilities for the blog API client.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"time"
)

// MockResponse defines the behavior for a mock endpoint response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockBlog is a configurable mock of the blog REST backend.
type MockBlog struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]http.HandlerFunc

	requestCount      int
	conditionalCount  int
	pathCounts        map[string]int
	lastRequestHeader http.Header
}

// NewMockBlog starts a new mock backend.
func NewMockBlog() *MockBlog {
	mock := &MockBlog{
		handlers:   make(map[string]http.HandlerFunc),
		pathCounts: make(map[string]int),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.requestCount++
		mock.pathCounts[r.URL.Path]++
		mock.lastRequestHeader = r.Header.Clone()
		if r.Header.Get("If-None-Match") != "" || r.Header.Get("If-Modified-Since") != "" {
			mock.conditionalCount++
		}
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.Unlock()

		if exists {
			handler(w, r)
			return
		}
		mock.defaultHandler(w, r)
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockBlog) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockBlog) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockBlog) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount = 0
	m.conditionalCount = 0
	m.pathCounts = make(map[string]int)
	m.lastRequestHeader = nil
}

// SetHandler sets a custom handler for a specific path.
func (m *MockBlog) SetHandler(path string, handler http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a fixed response for a path.
func (m *MockBlog) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			time.Sleep(resp.Delay)
		}
		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}
		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// SetSequence answers successive requests to path with the given responses.
// The last response repeats once the sequence is used up.
func (m *MockBlog) SetSequence(path string, responses ...MockResponse) {
	var (
		mu   sync.Mutex
		next int
	)
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		resp := responses[min(next, len(responses)-1)]
		next++
		mu.Unlock()

		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}
		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// SetCollection serves items as a paginated collection at path. Query
// parameters other than page and page_size filter on equal string fields.
// Responses carry an ETag per page and honour If-None-Match.
func (m *MockBlog) SetCollection(path string, items []map[string]any) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		page, _ := strconv.Atoi(q.Get("page"))
		size, _ := strconv.Atoi(q.Get("page_size"))
		if page < 1 {
			page = 1
		}
		if size < 1 {
			size = 10
		}

		filtered := make([]map[string]any, 0, len(items))
		for _, item := range items {
			match := true
			for name, values := range q {
				if name == "page" || name == "page_size" {
					continue
				}
				if fieldString(item[name]) != values[0] {
					match = false
					break
				}
			}
			if match {
				filtered = append(filtered, item)
			}
		}

		start := min((page-1)*size, len(filtered))
		end := min(start+size, len(filtered))

		etag := fmt.Sprintf(`"%s-%d-%d-%d"`, path, page, size, len(filtered))
		setDefaultHeaders(w)
		if r.Header.Get("If-None-Match") == etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}

		w.Header().Set("ETag", etag)
		w.Header().Set("Cache-Control", "max-age=60")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]any{
			"items": filtered[start:end],
			"total": len(filtered),
		})
	})
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockBlog) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.requestCount
}

// GetPathCount returns the number of requests made to path.
func (m *MockBlog) GetPathCount(path string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pathCounts[path]
}

// GetConditionalCount returns the number of conditional requests.
func (m *MockBlog) GetConditionalCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.conditionalCount
}

// LastRequestHeader returns the headers of the most recent request.
func (m *MockBlog) LastRequestHeader() http.Header {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastRequestHeader
}

// fieldString renders a filterable field. Nested objects such as authors
// match on their username.
func fieldString(v any) string {
	if obj, ok := v.(map[string]any); ok {
		return fmt.Sprint(obj["username"])
	}
	return fmt.Sprint(v)
}

func setDefaultHeaders(w http.ResponseWriter) {
	w.Header().Set("X-RateLimit-Remaining", "100")
	w.Header().Set("X-RateLimit-Reset", "60")
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
}

// defaultHandler answers unknown paths with an empty collection.
func (m *MockBlog) defaultHandler(w http.ResponseWriter, r *http.Request) {
	setDefaultHeaders(w)

	if r.Header.Get("If-None-Match") != "" {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("ETag", `"default-etag"`)
	w.Header().Set("Expires", time.Now().Add(5*time.Minute).Format(http.TimeFormat))
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"items":[],"total":0}`))
}

// NewHealthyResponse creates a standard 200 OK response.
func NewHealthyResponse(data string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       data,
		Headers: map[string]string{
			"X-RateLimit-Remaining": "100",
			"X-RateLimit-Reset":     "60",
			"ETag":                  `"test-etag-123"`,
			"Expires":               time.Now().Add(5 * time.Minute).Format(http.TimeFormat),
			"Content-Type":          "application/json; charset=utf-8",
		},
	}
}

// NewNotModifiedResponse creates a 304 Not Modified response.
func NewNotModifiedResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusNotModified,
		Headers: map[string]string{
			"X-RateLimit-Remaining": "100",
			"X-RateLimit-Reset":     "60",
			"Expires":               time.Now().Add(5 * time.Minute).Format(http.TimeFormat),
		},
	}
}

// NewRateLimitResponse creates a 429 Too Many Requests response.
func NewRateLimitResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"error": "Rate limit exceeded"}`,
		Headers: map[string]string{
			"X-RateLimit-Remaining": "60",
			"X-RateLimit-Reset":     "30",
			"Content-Type":          "application/json; charset=utf-8",
		},
	}
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"error": "Internal server error"}`,
		Headers: map[string]string{
			"X-RateLimit-Remaining": "95",
			"X-RateLimit-Reset":     "60",
			"Content-Type":          "application/json; charset=utf-8",
		},
	}
}

// NewNotFoundResponse creates a 404 Not Found response.
func NewNotFoundResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusNotFound,
		Body:       `{"error": "Not found"}`,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewConditionalHandler creates a handler that responds with 304 when the
// request carries etag in If-None-Match.
func NewConditionalHandler(etag string, data string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		setDefaultHeaders(w)

		if r.Header.Get("If-None-Match") == etag {
			w.Header().Set("Expires", time.Now().Add(5*time.Minute).Format(http.TimeFormat))
			w.WriteHeader(http.StatusNotModified)
			return
		}

		w.Header().Set("ETag", etag)
		w.Header().Set("Expires", time.Now().Add(5*time.Minute).Format(http.TimeFormat))
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(data))
	}
}

// Articles returns n sample article items for SetCollection. Authors
// alternate between "bee" and "keeper"; even IDs are tagged "go".
func Articles(n int) []map[string]any {
	items := make([]map[string]any, 0, n)
	for i := 1; i <= n; i++ {
		author := "bee"
		if i%2 == 0 {
			author = "keeper"
		}
		tag := "misc"
		if i%2 == 0 {
			tag = "go"
		}
		items = append(items, map[string]any{
			"id":         i,
			"title":      fmt.Sprintf("Article %d", i),
			"slug":       fmt.Sprintf("article-%d", i),
			"author":     map[string]any{"id": i%2 + 1, "username": author},
			"tag":        tag,
			"tags":       []map[string]any{{"id": len(tag), "name": tag, "slug": tag}},
			"like_count": i,
		})
	}
	return items
}
