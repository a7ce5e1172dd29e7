// Package download fetches large model files with resumable byte-range
// support, multi-source fallback, and size verification.
package download

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/felixgeelhaar/rigup/internal/log"
)

// DefaultTolerance is the accepted deviation from the expected size.
const DefaultTolerance = 0.05

const copyChunkSize = 32 * 1024

// Task describes one file to fetch
type Task struct {
	// Sources are tried in order: primary URL, mirrors, and/or local
	// cache paths. A source without an http(s) scheme is treated as a
	// local file to copy.
	Sources []string

	// Destination is the final file path. Partial data accumulates at
	// Destination + ".partial" until the download verifies.
	Destination string

	// ExpectedSize in bytes; zero disables size verification.
	ExpectedSize int64

	// Tolerance is the accepted relative size deviation; zero means
	// DefaultTolerance.
	Tolerance float64
}

func (t Task) partialPath() string {
	return t.Destination + ".partial"
}

func (t Task) tolerance() float64 {
	if t.Tolerance > 0 {
		return t.Tolerance
	}
	return DefaultTolerance
}

// sizeOK reports whether a final size is within tolerance of the
// expected size, when one is known.
func (t Task) sizeOK(size int64) bool {
	if t.ExpectedSize <= 0 {
		return true
	}
	deviation := float64(size-t.ExpectedSize) / float64(t.ExpectedSize)
	if deviation < 0 {
		deviation = -deviation
	}
	return deviation <= t.tolerance()
}

// ProgressFunc receives streaming updates; total is zero when unknown
type ProgressFunc func(written, total int64)

// Downloader fetches tasks with resume and mirror fallback
type Downloader struct {
	Client   *http.Client
	Logger   *log.Logger
	Progress ProgressFunc
}

// NewDownloader creates a Downloader with explicit connect and header
// timeouts. There is no whole-request timeout: model files legitimately
// take minutes, and cancellation comes from the context instead.
func NewDownloader(logger *log.Logger) *Downloader {
	if logger == nil {
		logger = log.DefaultLogger()
	}
	return &Downloader{
		Client: &http.Client{
			Transport: &http.Transport{
				DialContext:           (&net.Dialer{Timeout: 30 * time.Second}).DialContext,
				TLSHandshakeTimeout:   30 * time.Second,
				ResponseHeaderTimeout: 60 * time.Second,
				IdleConnTimeout:       90 * time.Second,
			},
		},
		Logger: logger,
	}
}

// Download works through the task's sources in order and returns true
// on the first success. It returns false only when every source is
// exhausted; the error is non-nil only for cancellation or local I/O
// failures that make continuing pointless.
func (d *Downloader) Download(ctx context.Context, task Task) (bool, error) {
	if len(task.Sources) == 0 {
		return false, fmt.Errorf("no sources for %s", task.Destination)
	}

	// A previous run may have fully verified this file already.
	if info, err := os.Stat(task.Destination); err == nil && task.sizeOK(info.Size()) {
		d.Logger.Info("destination already present, skipping download", "path", task.Destination)
		return true, nil
	}

	if err := os.MkdirAll(filepath.Dir(task.Destination), 0755); err != nil {
		return false, fmt.Errorf("failed to create destination directory: %w", err)
	}

	for _, source := range task.Sources {
		if err := ctx.Err(); err != nil {
			return false, err
		}

		var err error
		if isHTTP(source) {
			err = d.fetchHTTP(ctx, source, task)
		} else {
			err = d.copyLocal(source, task)
		}

		if err == nil {
			return true, nil
		}
		if ctx.Err() != nil {
			return false, ctx.Err()
		}

		d.Logger.Warn("source failed, trying next",
			"source", source, "destination", task.Destination, "error", err.Error())
	}

	d.Logger.Error("all sources exhausted", "destination", task.Destination)
	return false, nil
}

func isHTTP(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

// copyLocal satisfies the task from a pre-staged local cache file
func (d *Downloader) copyLocal(source string, task Task) error {
	info, err := os.Stat(source)
	if err != nil {
		return fmt.Errorf("cache file unavailable: %w", err)
	}
	if !task.sizeOK(info.Size()) {
		return fmt.Errorf("cache file %s has size %d, expected %d", source, info.Size(), task.ExpectedSize)
	}

	in, err := os.Open(source)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(task.partialPath())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(task.partialPath())
		return err
	}
	if err := out.Close(); err != nil {
		os.Remove(task.partialPath())
		return err
	}

	d.Logger.Info("copied from local cache", "source", source, "destination", task.Destination)
	return os.Rename(task.partialPath(), task.Destination)
}

// fetchHTTP downloads from one URL, resuming from an existing partial
// file when the server supports byte ranges. A corrupt result is
// retried once from scratch before the source is abandoned: corruption
// means the bytes are wrong, so resuming from them cannot help.
func (d *Downloader) fetchHTTP(ctx context.Context, url string, task Task) error {
	for _, fresh := range []bool{false, true} {
		if fresh {
			d.Logger.Warn("size verification failed, refetching from scratch", "url", url)
			os.Remove(task.partialPath())
		}

		size, err := d.fetchOnce(ctx, url, task)
		if err != nil {
			return err
		}

		if task.sizeOK(size) {
			return os.Rename(task.partialPath(), task.Destination)
		}
	}

	os.Remove(task.partialPath())
	return fmt.Errorf("downloaded size out of tolerance (expected %d)", task.ExpectedSize)
}

func (d *Downloader) fetchOnce(ctx context.Context, url string, task Task) (int64, error) {
	offset := partialSize(task.partialPath())

	// Never issue a range request a server is known to reject: probe
	// first and fall back to a fresh full download.
	if offset > 0 && !d.supportsRange(ctx, url) {
		d.Logger.Info("server does not support range requests, restarting download", "url", url)
		os.Remove(task.partialPath())
		offset = 0
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}
	if offset > 0 {
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-", offset))
	}

	resp, err := d.Client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	switch {
	case offset > 0 && resp.StatusCode == http.StatusPartialContent:
		// Resuming where the partial file left off.
	case resp.StatusCode == http.StatusOK:
		// Full body: any partial data is superseded.
		if offset > 0 {
			d.Logger.Info("server ignored range request, restarting download", "url", url)
			os.Remove(task.partialPath())
			offset = 0
		}
	default:
		return 0, fmt.Errorf("unexpected status %s from %s", resp.Status, url)
	}

	total := task.ExpectedSize
	if total == 0 && resp.ContentLength > 0 {
		total = offset + resp.ContentLength
	}

	out, err := os.OpenFile(task.partialPath(), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return 0, err
	}

	written, copyErr := d.copyWithProgress(ctx, out, resp.Body, offset, total)
	if closeErr := out.Close(); copyErr == nil {
		copyErr = closeErr
	}
	if copyErr != nil {
		// Keep the partial file: the next attempt resumes from it.
		return 0, copyErr
	}

	return written, nil
}

// copyWithProgress streams the body to the partial file, checking for
// cancellation between chunks.
func (d *Downloader) copyWithProgress(ctx context.Context, dst io.Writer, src io.Reader, offset, total int64) (int64, error) {
	written := offset
	buf := make([]byte, copyChunkSize)

	for {
		if err := ctx.Err(); err != nil {
			return written, err
		}

		n, readErr := src.Read(buf)
		if n > 0 {
			if _, writeErr := dst.Write(buf[:n]); writeErr != nil {
				return written, writeErr
			}
			written += int64(n)
			if d.Progress != nil {
				d.Progress(written, total)
			}
		}
		if readErr == io.EOF {
			return written, nil
		}
		if readErr != nil {
			return written, readErr
		}
	}
}

// supportsRange probes whether the server advertises byte-range support
func (d *Downloader) supportsRange(ctx context.Context, url string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return false
	}

	resp, err := d.Client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return strings.EqualFold(resp.Header.Get("Accept-Ranges"), "bytes")
}

func partialSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}
