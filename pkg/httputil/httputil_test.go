package httputil

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	cerrors "github.com/matzehuels/canopy/pkg/errors"
)

func TestRetry(t *testing.T) {
	transient := &RetryableError{Err: errors.New("flaky")}
	permanent := errors.New("bad request")

	tests := []struct {
		name      string
		results   []error
		wantCalls int
		wantErr   error
	}{
		{"first try", []error{nil}, 1, nil},
		{"retry then succeed", []error{transient, nil}, 2, nil},
		{"permanent stops", []error{permanent, nil}, 1, permanent},
		{"exhausted", []error{transient, transient, transient}, 3, transient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := Retry(context.Background(), 3, time.Millisecond, func() error {
				err := tt.results[calls]
				calls++
				return err
			})
			if calls != tt.wantCalls {
				t.Errorf("calls = %d, want %d", calls, tt.wantCalls)
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestRetryCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := Retry(ctx, 5, time.Hour, func() error {
		calls++
		cancel()
		return &RetryableError{Err: errors.New("flaky")}
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestIsRemote(t *testing.T) {
	tests := map[string]bool{
		"https://example.com/tree.json": true,
		"http://localhost:8000/t.yaml":  true,
		"tree.json":                     false,
		"./data/tree.yaml":              false,
		"file:///tmp/tree.json":         false,
		"https://":                      false,
		"":                              false,
	}
	for in, want := range tests {
		if got := IsRemote(in); got != want {
			t.Errorf("IsRemote(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/tree.json":
			w.Write([]byte(`{"name":"Federation"}`))
		case "/busy":
			w.WriteHeader(http.StatusServiceUnavailable)
		case "/limited":
			w.WriteHeader(http.StatusTooManyRequests)
		case "/forbidden":
			w.WriteHeader(http.StatusForbidden)
		case "/big":
			w.Write([]byte(strings.Repeat("x", 64)))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	ctx := context.Background()

	data, err := Fetch(ctx, srv.Client(), srv.URL+"/tree.json", 0)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if string(data) != `{"name":"Federation"}` {
		t.Errorf("body = %q", data)
	}

	tests := []struct {
		path      string
		max       int64
		retryable bool
		code      cerrors.Code
	}{
		{"/busy", 0, true, ""},
		{"/limited", 0, true, ""},
		{"/forbidden", 0, false, ""},
		{"/missing", 0, false, cerrors.ErrCodeFileNotFound},
		{"/big", 16, false, cerrors.ErrCodeInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			_, err := Fetch(ctx, srv.Client(), srv.URL+tt.path, tt.max)
			if err == nil {
				t.Fatal("expected an error")
			}
			if got := IsRetryable(err); got != tt.retryable {
				t.Errorf("IsRetryable = %v, want %v (%v)", got, tt.retryable, err)
			}
			if tt.code != "" && !cerrors.Is(err, tt.code) {
				t.Errorf("code = %q, want %q", cerrors.GetCode(err), tt.code)
			}
		})
	}
}

func TestFetchWithRetryRecovers(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte("name: Federation\n"))
	}))
	defer srv.Close()

	data, err := FetchWithRetry(context.Background(), srv.Client(), srv.URL+"/tree.yaml")
	if err != nil {
		t.Fatalf("FetchWithRetry: %v", err)
	}
	if string(data) != "name: Federation\n" {
		t.Errorf("body = %q", data)
	}
	if n := hits.Load(); n != 2 {
		t.Errorf("requests = %d, want 2", n)
	}
}
