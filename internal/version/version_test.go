package version

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kyonru/feather-companion/internal/cache"
)

func TestCompare(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"1.2.3", "1.2.3", 0},
		{"1.2.3", "v1.2.3", 0},
		{"1.2.4", "1.2.3", 1},
		{"1.3.0", "1.2.9", 1},
		{"2.0.0", "10.0.0", -1},
		{"1.0.0", "1.0.0-beta", 1},
		{"1.0.0-alpha", "1.0.0-beta", -1},
		{"garbage", "0.0.1", -1},
	}
	for _, tc := range tests {
		if got := Compare(tc.a, tc.b); got != tc.want {
			t.Errorf("Compare(%q, %q): got %d, want %d", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestMismatch(t *testing.T) {
	tests := []struct {
		client, server string
		want           bool
	}{
		{"1.2.0", "1.2.9", false},
		{"1.2.0", "1.3.0", true},
		{"2.0.0", "1.9.0", true},
		{"1.2.0", "", false},
		{"dev", "1.0.0", false},
	}
	for _, tc := range tests {
		if got := Mismatch(tc.client, tc.server); got != tc.want {
			t.Errorf("Mismatch(%q, %q): got %v, want %v", tc.client, tc.server, got, tc.want)
		}
	}
}

func releaseServer(t *testing.T, status int, body string) *LatestChecker {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return &LatestChecker{URL: srv.URL, Client: srv.Client()}
}

func TestLatest(t *testing.T) {
	l := releaseServer(t, http.StatusOK, `{"tag_name": "v1.4.0", "name": "Feather 1.4"}`)

	got, err := l.Latest(context.Background())
	if err != nil {
		t.Fatalf("Latest() error = %v", err)
	}
	if got != "1.4.0" {
		t.Errorf("Latest(): got %q, want 1.4.0", got)
	}

	ok, err := l.IsLatest(context.Background(), "1.3.2")
	if err != nil || ok {
		t.Errorf("IsLatest(1.3.2): got %v, %v; want false, nil", ok, err)
	}
	ok, err = l.IsLatest(context.Background(), "1.4.0")
	if err != nil || !ok {
		t.Errorf("IsLatest(1.4.0): got %v, %v; want true, nil", ok, err)
	}
}

func TestLatest_Errors(t *testing.T) {
	if _, err := releaseServer(t, http.StatusForbidden, `{}`).Latest(context.Background()); err == nil {
		t.Error("403: expected error")
	}
	if _, err := releaseServer(t, http.StatusOK, `{"tag_name": "nightly"}`).Latest(context.Background()); err == nil {
		t.Error("invalid tag: expected error")
	}
}

func TestLatest_CachedAnswer(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(`{"tag_name": "v2.0.0"}`))
	}))
	defer srv.Close()

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := cache.New(cache.NewMemoryStorage(0), "release", cache.WithClock(func() time.Time { return now }))
	l := &LatestChecker{URL: srv.URL, Client: srv.Client(), Cache: c, TTLUnits: 60}

	for i := 0; i < 3; i++ {
		ok, err := l.IsLatest(context.Background(), "1.9.0")
		if err != nil || ok {
			t.Fatalf("IsLatest(1.9.0): got %v, %v; want false, nil", ok, err)
		}
	}
	if got := hits.Load(); got != 1 {
		t.Errorf("release endpoint hits: got %d, want 1", got)
	}

	now = now.Add(61 * time.Minute)
	if _, err := l.Latest(context.Background()); err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if got := hits.Load(); got != 2 {
		t.Errorf("hits after expiry: got %d, want 2", got)
	}
}
