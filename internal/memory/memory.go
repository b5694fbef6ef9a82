// Package memory configures the Go heap limit from container memory
// limits. Decoding large originals for thumbnailing allocates in
// bursts, and without a GOMEMLIMIT the runtime will happily grow past
// a container limit and get OOM-killed instead of collecting harder.
package memory

import (
	"math"
	"os"
	"runtime/debug"
	"strconv"

	"photokeep/internal/logging"
)

// DefaultRatio is the share of container memory given to the Go heap.
// The remainder is reserved for libvips, ffmpeg and goroutine stacks.
const DefaultRatio = 0.85

// Result reports how the heap limit was configured.
type Result struct {
	Configured     bool
	Source         string // "GOMEMLIMIT", "MEMORY_LIMIT", or "none"
	ContainerLimit int64
	GoLimit        int64
	Ratio          float64
}

// Configure sets GOMEMLIMIT from the environment. Call it early in
// main, before significant allocations.
//
//   - GOMEMLIMIT: honored as-is when set (standard Go env var)
//   - MEMORY_LIMIT: container limit in bytes (Kubernetes Downward API)
//   - MEMORY_RATIO: optional heap share of MEMORY_LIMIT, default 0.85
func Configure() Result {
	result := Result{}

	if env := os.Getenv("GOMEMLIMIT"); env != "" {
		if limit := debug.SetMemoryLimit(-1); limit > 0 && limit < math.MaxInt64 {
			result.Configured = true
			result.Source = "GOMEMLIMIT"
			result.GoLimit = limit
		}
		logging.Info("GOMEMLIMIT set via environment: %s", env)
		return result
	}

	limitStr := os.Getenv("MEMORY_LIMIT")
	if limitStr == "" {
		logging.Debug("MEMORY_LIMIT not set, heap limit left unconfigured")
		result.Source = "none"
		return result
	}

	containerLimit, err := strconv.ParseInt(limitStr, 10, 64)
	if err != nil || containerLimit <= 0 {
		logging.Warn("Invalid MEMORY_LIMIT %q, heap limit left unconfigured", limitStr)
		result.Source = "none"
		return result
	}
	result.ContainerLimit = containerLimit

	ratio := DefaultRatio
	if ratioStr := os.Getenv("MEMORY_RATIO"); ratioStr != "" {
		parsed, err := strconv.ParseFloat(ratioStr, 64)
		if err == nil && parsed > 0 && parsed <= 1.0 {
			ratio = parsed
		} else {
			logging.Warn("MEMORY_RATIO %q out of range (0.0-1.0], using default %.2f", ratioStr, DefaultRatio)
		}
	}
	result.Ratio = ratio

	goLimit := int64(float64(containerLimit) * ratio)
	debug.SetMemoryLimit(goLimit)

	result.Configured = true
	result.Source = "MEMORY_LIMIT"
	result.GoLimit = goLimit

	logging.Info("Configured GOMEMLIMIT: %s (%.0f%% of %s container limit)",
		formatBytes(goLimit), ratio*100, formatBytes(containerLimit))

	return result
}

func formatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return strconv.FormatInt(b, 10) + " B"
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return strconv.FormatFloat(float64(b)/float64(div), 'f', 1, 64) + " " + string("KMGTPE"[exp]) + "iB"
}
