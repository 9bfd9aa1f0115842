package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jmylchreest/pagetint/internal/version"
)

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			if got := r.Header.Get("User-Agent"); got != version.UserAgent() {
				t.Errorf("User-Agent = %q, want %q", got, version.UserAgent())
			}
			_, _ = w.Write([]byte("body{color:red}"))
		case "/big":
			_, _ = w.Write([]byte(strings.Repeat("x", 64)))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	ctx := context.Background()

	t.Run("ok", func(t *testing.T) {
		data, err := Fetch(ctx, srv.URL+"/ok", FetchOptions{})
		if err != nil {
			t.Fatalf("Fetch() error = %v", err)
		}
		if string(data) != "body{color:red}" {
			t.Errorf("Fetch() = %q", data)
		}
	})

	t.Run("not found", func(t *testing.T) {
		_, err := Fetch(ctx, srv.URL+"/missing", FetchOptions{})
		var se *StatusError
		if !errors.As(err, &se) || se.Code != http.StatusNotFound {
			t.Fatalf("Fetch() error = %v, want StatusError 404", err)
		}
	})

	t.Run("too large", func(t *testing.T) {
		_, err := Fetch(ctx, srv.URL+"/big", FetchOptions{MaxBytes: 16})
		if !errors.Is(err, ErrTooLarge) {
			t.Fatalf("Fetch() error = %v, want ErrTooLarge", err)
		}
	})

	t.Run("unlimited", func(t *testing.T) {
		data, err := Fetch(ctx, srv.URL+"/big", FetchOptions{MaxBytes: -1})
		if err != nil || len(data) != 64 {
			t.Fatalf("Fetch() = %d bytes, %v", len(data), err)
		}
	})
}
