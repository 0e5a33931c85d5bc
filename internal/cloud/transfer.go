package cloud

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
)

// ProgressFunc is told how many bytes have moved so far. total is -1 when
// the size is unknown. Returning false aborts the transfer.
type ProgressFunc func(done, total int64) bool

var errTransferAborted = errors.New("transfer aborted by progress callback")

// progressReader reports every read to a ProgressFunc and stops when the
// callback or the context says so.
type progressReader struct {
	ctx      context.Context
	r        io.Reader
	done     int64
	total    int64
	progress ProgressFunc
}

func (p *progressReader) Read(b []byte) (int, error) {
	if err := p.ctx.Err(); err != nil {
		return 0, err
	}
	n, err := p.r.Read(b)
	if n > 0 {
		p.done += int64(n)
		if p.progress != nil && !p.progress(p.done, p.total) {
			return n, errTransferAborted
		}
	}
	return n, err
}

func transferError(ctx context.Context, err error) error {
	if errors.Is(err, errTransferAborted) {
		return Canceled(err)
	}
	return transportError(ctx, err)
}

// Upload PUTs the file at path to a pre-signed URL as application/octet-stream.
// The URL already carries its own credentials, so no Authorization header is sent.
//
// Returns:
//   - error: Canceled if ctx is cancelled or progress returns false
func (c *Client) Upload(ctx context.Context, rawURL, path string, progress ProgressFunc) error {
	f, err := os.Open(path)
	if err != nil {
		return InvalidArgument("opening upload file: %v", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return InvalidArgument("reading upload file: %v", err)
	}

	body := &progressReader{ctx: ctx, r: f, total: info.Size(), progress: progress}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, rawURL, body)
	if err != nil {
		return InvalidArgument("invalid upload URL %q", rawURL)
	}
	req.ContentLength = info.Size()
	req.Header.Set("Content-Type", "application/octet-stream")

	hc, logger := c.deps()
	resp, err := hc.Do(req)
	if err != nil {
		return transferError(ctx, err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10)) //nolint:errcheck // body only used for the error
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(resp.StatusCode, respBody)
	}
	logger.Debug("upload complete", "path", path, "bytes", body.done)
	return nil
}

// Download streams the body at rawURL into path.
//
// The data is written to path+".part" and renamed once complete, so an
// aborted or failed transfer never leaves a partial file at path.
//
// Returns:
//   - error: Canceled if ctx is cancelled or progress returns false
func (c *Client) Download(ctx context.Context, rawURL, path string, progress ProgressFunc) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return InvalidArgument("invalid download URL %q", rawURL)
	}

	hc, logger := c.deps()
	resp, err := hc.Do(req)
	if err != nil {
		return transferError(ctx, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10)) //nolint:errcheck // body only used for the error
		return statusError(resp.StatusCode, body)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return Internal("creating download directory: %v", err)
	}
	partial := path + ".part"
	f, err := os.Create(partial) //nolint:gosec // caller chooses the destination
	if err != nil {
		return Internal("creating download file: %v", err)
	}

	src := &progressReader{ctx: ctx, r: resp.Body, total: resp.ContentLength, progress: progress}
	_, copyErr := io.Copy(f, src)
	closeErr := f.Close()
	if copyErr != nil || closeErr != nil {
		os.Remove(partial) //nolint:errcheck // best effort
		if copyErr != nil {
			return transferError(ctx, copyErr)
		}
		return Internal("writing download file: %v", closeErr)
	}

	if err := os.Rename(partial, path); err != nil {
		os.Remove(partial) //nolint:errcheck // best effort
		return Internal("finishing download: %v", err)
	}
	logger.Debug("download complete", "path", path, "bytes", src.done)
	return nil
}
