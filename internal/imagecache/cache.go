// Package imagecache downloads and publishes the shared base cloud image.
//
// The cache is filesystem-backed: a target path either holds a complete
// image or does not exist. Downloads stream to a temporary file in the
// same directory and are published with an atomic rename, so a reader
// can never observe a partially written image. Concurrent Ensure calls
// for the same target path are collapsed into a single download.
package imagecache

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/singleflight"
)

// FetchError reports a network-level failure while downloading an image.
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("imagecache: fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// VerificationError reports a downloaded image that failed verification.
type VerificationError struct {
	URL    string
	Reason string
}

func (e *VerificationError) Error() string {
	return fmt.Sprintf("imagecache: verify %s: %s", e.URL, e.Reason)
}

// Cache fetches base images exactly once per target path.
type Cache struct {
	client *http.Client
	group  singleflight.Group
}

// New creates a Cache. If client is nil a default client with no overall
// timeout is used; download cancellation is driven by the caller's context.
func New(client *http.Client) *Cache {
	if client == nil {
		client = &http.Client{}
	}
	return &Cache{client: client}
}

// Ensure makes sure targetPath holds the image served at url and returns
// targetPath. If the file already exists no network call is made. The
// call is safe for concurrent use: simultaneous callers with the same
// target path share one download.
func (c *Cache) Ensure(ctx context.Context, url, targetPath string) (string, error) {
	_, err, _ := c.group.Do(targetPath, func() (interface{}, error) {
		return nil, c.ensure(ctx, url, targetPath)
	})
	if err != nil {
		return "", err
	}
	return targetPath, nil
}

func (c *Cache) ensure(ctx context.Context, url, targetPath string) error {
	if info, err := os.Stat(targetPath); err == nil && info.Size() > 0 {
		return nil
	}

	log.Printf("Downloading base image from %s...", url)
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return &FetchError{URL: url, Err: err}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return &FetchError{URL: url, Err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return &FetchError{URL: url, Err: fmt.Errorf("unexpected status %s", resp.Status)}
	}

	tmp, err := os.CreateTemp(filepath.Dir(targetPath), filepath.Base(targetPath)+".partial-*")
	if err != nil {
		return &FetchError{URL: url, Err: err}
	}
	tmpPath := tmp.Name()

	// The temporary file is removed on every failure path; the target
	// path is only ever created by the rename below.
	written, err := io.Copy(tmp, resp.Body)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(tmpPath)
		return &FetchError{URL: url, Err: err}
	}

	if written == 0 {
		_ = os.Remove(tmpPath)
		return &VerificationError{URL: url, Reason: "downloaded image is empty"}
	}
	if resp.ContentLength > 0 && written != resp.ContentLength {
		_ = os.Remove(tmpPath)
		return &VerificationError{URL: url, Reason: fmt.Sprintf("truncated download: got %d of %d bytes", written, resp.ContentLength)}
	}

	if err := os.Rename(tmpPath, targetPath); err != nil {
		_ = os.Remove(tmpPath)
		return &FetchError{URL: url, Err: err}
	}

	log.Printf("Base image ready at %s (%d bytes, %v)", targetPath, written, time.Since(start).Round(time.Millisecond))
	return nil
}
