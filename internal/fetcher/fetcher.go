// Package fetcher resolves upstream snapshot names to cached local files,
// one directory per remote generation.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"moviedb/internal/logging"
	"moviedb/internal/storage"

	"github.com/dustin/go-humanize"
)

// FetchError reports a failed HEAD request or download.
type FetchError struct {
	Resource string
	Op       string // "head" or "download"
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %s: %v", e.Resource, e.Op, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Fetcher downloads snapshot files below Root.
type Fetcher struct {
	BaseURL  string // ends with "/"
	Root     string
	Client   *http.Client
	MaxBytes int64 // 0 means unlimited
}

// New creates a fetcher using an HTTP client with the given timeout.
func New(baseURL, root string, timeout time.Duration, maxBytes int64) *Fetcher {
	return &Fetcher{
		BaseURL:  baseURL,
		Root:     root,
		Client:   &http.Client{Timeout: timeout},
		MaxBytes: maxBytes,
	}
}

// Fetch returns the local path of the named snapshot's current generation.
// The generation is the UTC date of the remote Last-Modified header; a file
// already present for that generation is reused without downloading.
func (f *Fetcher) Fetch(ctx context.Context, name string) (string, error) {
	url := f.BaseURL + name

	modified, err := f.lastModified(ctx, url)
	if err != nil {
		return "", &FetchError{Resource: name, Op: "head", Err: err}
	}

	path, err := storage.GetSnapshotPath(f.Root, name, modified)
	if err != nil {
		return "", &FetchError{Resource: name, Op: "download", Err: err}
	}

	exists, err := storage.Exists(path)
	if err != nil {
		return "", &FetchError{Resource: name, Op: "download", Err: err}
	}
	if exists {
		logging.Log.WithField("resource", name).Infof("Using cached generation %s.", path)
		return path, nil
	}

	logging.Log.WithField("resource", name).Infof("Downloading %s to %s.", url, path)
	size, err := f.download(ctx, url, path)
	if err != nil {
		return "", &FetchError{Resource: name, Op: "download", Err: err}
	}
	logging.Log.WithField("resource", name).Infof("Downloaded %s.", humanize.Bytes(uint64(size)))

	return path, nil
}

func (f *Fetcher) lastModified(ctx context.Context, url string) (time.Time, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := f.client().Do(req)
	if err != nil {
		return time.Time{}, err
	}
	resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return time.Time{}, fmt.Errorf("unexpected status %s", resp.Status)
	}

	header := resp.Header.Get("Last-Modified")
	if header == "" {
		return time.Time{}, errors.New("response has no Last-Modified header")
	}
	modified, err := http.ParseTime(header)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid Last-Modified header %q: %w", header, err)
	}
	return modified, nil
}

func (f *Fetcher) download(ctx context.Context, url, path string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := f.client().Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, fmt.Errorf("unexpected status %s", resp.Status)
	}

	return storage.SaveFile(resp.Body, path, f.MaxBytes)
}

func (f *Fetcher) client() *http.Client {
	if f.Client != nil {
		return f.Client
	}
	return http.DefaultClient
}
