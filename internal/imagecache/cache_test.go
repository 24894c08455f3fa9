package imagecache

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
)

func TestEnsureDownloadsOnce(t *testing.T) {
	var fetches int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&fetches, 1)
		_, _ = w.Write([]byte("fake-image-data"))
	}))
	defer srv.Close()

	target := filepath.Join(t.TempDir(), "base.img")
	cache := New(srv.Client())

	got, err := cache.Ensure(context.Background(), srv.URL, target)
	if err != nil {
		t.Fatalf("first Ensure() error = %v", err)
	}
	if got != target {
		t.Errorf("Ensure() = %q, want %q", got, target)
	}

	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("reading target: %v", err)
	}
	if string(data) != "fake-image-data" {
		t.Errorf("target content = %q", data)
	}

	// Second call must be a cache hit with no network traffic.
	got, err = cache.Ensure(context.Background(), srv.URL, target)
	if err != nil {
		t.Fatalf("second Ensure() error = %v", err)
	}
	if got != target {
		t.Errorf("second Ensure() = %q", got)
	}
	if n := atomic.LoadInt32(&fetches); n != 1 {
		t.Errorf("fetch count = %d, want 1", n)
	}
}

func TestEnsureConcurrentSingleDownload(t *testing.T) {
	var fetches int32
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&fetches, 1)
		<-release
		_, _ = w.Write([]byte("fake-image-data"))
	}))
	defer srv.Close()

	target := filepath.Join(t.TempDir(), "base.img")
	cache := New(srv.Client())

	const callers = 4
	var wg sync.WaitGroup
	errs := make([]error, callers)
	wg.Add(callers)
	for i := 0; i < callers; i++ {
		go func(i int) {
			defer wg.Done()
			_, errs[i] = cache.Ensure(context.Background(), srv.URL, target)
		}(i)
	}

	close(release)
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Errorf("caller %d: %v", i, err)
		}
	}
	if n := atomic.LoadInt32(&fetches); n != 1 {
		t.Errorf("fetch count = %d, want 1", n)
	}
}

func TestEnsureEmptyDownload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	target := filepath.Join(t.TempDir(), "base.img")
	cache := New(srv.Client())

	_, err := cache.Ensure(context.Background(), srv.URL, target)
	if err == nil {
		t.Fatal("expected error for empty download")
	}
	var verr *VerificationError
	if !errors.As(err, &verr) {
		t.Errorf("error = %T, want *VerificationError", err)
	}
	assertAbsentWithNoLeftovers(t, target)
}

func TestEnsureTruncatedDownload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Announce more bytes than are sent; the client observes a
		// truncated body.
		w.Header().Set("Content-Length", strconv.Itoa(1024))
		_, _ = w.Write([]byte("short"))
	}))
	defer srv.Close()

	target := filepath.Join(t.TempDir(), "base.img")
	cache := New(srv.Client())

	_, err := cache.Ensure(context.Background(), srv.URL, target)
	if err == nil {
		t.Fatal("expected error for truncated download")
	}
	assertAbsentWithNoLeftovers(t, target)
}

func TestEnsureHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	target := filepath.Join(t.TempDir(), "base.img")
	cache := New(srv.Client())

	_, err := cache.Ensure(context.Background(), srv.URL, target)
	if err == nil {
		t.Fatal("expected error for 404 response")
	}
	var ferr *FetchError
	if !errors.As(err, &ferr) {
		t.Errorf("error = %T, want *FetchError", err)
	}
	assertAbsentWithNoLeftovers(t, target)
}

func TestEnsureUnreachableServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	target := filepath.Join(t.TempDir(), "base.img")
	cache := New(nil)

	_, err := cache.Ensure(context.Background(), url, target)
	if err == nil {
		t.Fatal("expected error for unreachable server")
	}
	var ferr *FetchError
	if !errors.As(err, &ferr) {
		t.Errorf("error = %T, want *FetchError", err)
	}
}

// assertAbsentWithNoLeftovers checks the target path does not exist and no
// partial temp files remain in its directory.
func assertAbsentWithNoLeftovers(t *testing.T, target string) {
	t.Helper()

	if _, err := os.Stat(target); !os.IsNotExist(err) {
		t.Errorf("target path should be absent, stat err = %v", err)
	}

	entries, err := os.ReadDir(filepath.Dir(target))
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		t.Errorf("unexpected leftover file %s", e.Name())
	}
}
