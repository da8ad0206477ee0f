package fetcher

import (
	"context"
	"io"
)

// Fetcher defines the interface for downloading the map's input files.
type Fetcher interface {
	// Download fetches the URL and returns the response body.
	Download(ctx context.Context, url string) (io.ReadCloser, error)

	// DownloadToFile fetches the URL and writes it to the given path. Returns bytes written.
	DownloadToFile(ctx context.Context, url string, path string) (int64, error)

	// DownloadIfChanged fetches the URL only if the ETag has changed.
	// Returns (body, newETag, changed, error). If not changed, body is nil and changed is false.
	DownloadIfChanged(ctx context.Context, url string, etag string) (io.ReadCloser, string, bool, error)

	// SyncFile refreshes a local copy of the URL, keeping its ETag in a sidecar file.
	SyncFile(ctx context.Context, url string, path string) (bool, int64, error)
}

var _ Fetcher = (*HTTPFetcher)(nil)
