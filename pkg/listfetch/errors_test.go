package listfetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"syscall"
	"testing"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantKind   ErrorKind
		wantStatus int
	}{
		{
			name:     "nil",
			err:      nil,
			wantKind: "",
		},
		{
			name:     "url error",
			err:      &url.Error{Op: "Get", URL: "http://blog.local", Err: errors.New("dial tcp: refused")},
			wantKind: KindNetwork,
		},
		{
			name:     "op error",
			err:      &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("refused")},
			wantKind: KindNetwork,
		},
		{
			name:     "deadline exceeded",
			err:      fmt.Errorf("fetch: %w", context.DeadlineExceeded),
			wantKind: KindNetwork,
		},
		{
			name:     "connection reset",
			err:      fmt.Errorf("read: %w", syscall.ECONNRESET),
			wantKind: KindNetwork,
		},
		{
			name:     "truncated body",
			err:      io.ErrUnexpectedEOF,
			wantKind: KindNetwork,
		},
		{
			name:       "status coder 404",
			err:        fmt.Errorf("list articles: %w", statusErr(404)),
			wantKind:   KindHTTP,
			wantStatus: 404,
		},
		{
			name:       "status coder 500",
			err:        statusErr(500),
			wantKind:   KindHTTP,
			wantStatus: 500,
		},
		{
			name:     "status coder below 400",
			err:      statusErr(302),
			wantKind: KindUnknown,
		},
		{
			name:     "plain error",
			err:      errors.New("decode: invalid character"),
			wantKind: KindUnknown,
		},
		{
			name:       "already classified",
			err:        fmt.Errorf("wrapped: %w", &HTTPError{Status: 429}),
			wantKind:   KindHTTP,
			wantStatus: 429,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.err)
			if kind := KindOf(got); kind != tt.wantKind {
				t.Fatalf("KindOf(Classify(%v)) = %q, want %q", tt.err, kind, tt.wantKind)
			}
			if tt.err == nil {
				if got != nil {
					t.Errorf("Classify(nil) = %v, want nil", got)
				}
				return
			}
			if !errors.Is(got, tt.err) && tt.wantKind != KindHTTP {
				t.Errorf("Classify() lost the original error: %v", got)
			}
			if tt.wantStatus != 0 {
				var httpErr *HTTPError
				if !errors.As(got, &httpErr) {
					t.Fatalf("Classify() = %T, want *HTTPError", got)
				}
				if httpErr.Status != tt.wantStatus {
					t.Errorf("Status = %d, want %d", httpErr.Status, tt.wantStatus)
				}
			}
		})
	}
}

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		err      error
		expected string
	}{
		{&NetworkError{Err: errors.New("refused")}, "network error: refused"},
		{&HTTPError{Status: 404}, "http error (status 404)"},
		{&HTTPError{Status: 500, Err: errors.New("boom")}, "http error (status 500): boom"},
		{&UnknownError{Err: errors.New("odd")}, "unknown error: odd"},
	}

	for _, tt := range tests {
		if got := tt.err.Error(); got != tt.expected {
			t.Errorf("Error() = %q, want %q", got, tt.expected)
		}
	}
}
