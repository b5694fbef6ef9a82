// Package filesystem wraps os.Stat and os.Open with retry logic for
// NFS stale file handle errors. Library roots are commonly NFS mounts,
// and a server-side rename or export refresh can leave handles stale
// mid-scan; a short retry turns these transient failures into successes
// instead of failing the file.
package filesystem

import (
	"errors"
	"os"
	"syscall"
	"time"

	"photokeep/internal/logging"
	"photokeep/internal/metrics"
)

// RetryConfig controls how stale-handle errors are retried.
type RetryConfig struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// DefaultRetryConfig returns the retry behavior used by the scan
// pipeline: three retries with exponential backoff capped at 500ms.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:     3,
		InitialBackoff: 50 * time.Millisecond,
		MaxBackoff:     500 * time.Millisecond,
	}
}

// isStaleHandle reports whether err is an NFS stale file handle error
// (ESTALE, errno 116 on Linux). All other errors are returned to the
// caller unretried.
func isStaleHandle(err error) bool {
	if err == nil {
		return false
	}
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno == syscall.ESTALE
	}
	return false
}

// withRetry runs fn until it succeeds, returns a non-stale error, or
// exhausts the configured retries.
func withRetry(op, path string, config RetryConfig, fn func() error) error {
	backoff := config.InitialBackoff
	var lastErr error

	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		err := fn()
		if err == nil {
			if attempt > 0 {
				logging.Info("%s succeeded on retry %d for %s", op, attempt, path)
				metrics.FilesystemRetrySuccess.WithLabelValues(op).Inc()
			}
			return nil
		}

		if !isStaleHandle(err) {
			return err
		}
		lastErr = err
		metrics.FilesystemStaleErrors.WithLabelValues(op).Inc()

		if attempt < config.MaxRetries {
			logging.Debug("stale file handle on %s for %s, retrying in %v (attempt %d/%d)",
				op, path, backoff, attempt+1, config.MaxRetries)
			time.Sleep(backoff)
			backoff *= 2
			if backoff > config.MaxBackoff {
				backoff = config.MaxBackoff
			}
		}
	}

	logging.Warn("%s failed after %d retries for %s: %v", op, config.MaxRetries, path, lastErr)
	metrics.FilesystemRetryFailures.WithLabelValues(op).Inc()
	return lastErr
}

// Stat performs os.Stat, retrying stale NFS handles.
func Stat(path string, config RetryConfig) (os.FileInfo, error) {
	var info os.FileInfo
	err := withRetry("stat", path, config, func() error {
		var err error
		info, err = os.Stat(path)
		return err
	})
	if err != nil {
		return nil, err
	}
	return info, nil
}

// Open performs os.Open, retrying stale NFS handles.
func Open(path string, config RetryConfig) (*os.File, error) {
	var f *os.File
	err := withRetry("open", path, config, func() error {
		var err error
		f, err = os.Open(path)
		return err
	})
	if err != nil {
		return nil, err
	}
	return f, nil
}
