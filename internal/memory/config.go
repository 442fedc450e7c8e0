package memory

import (
	"math"
	"os"
	"runtime/debug"
	"strconv"
	"strings"

	"sdc-indexer/internal/logging"
)

const (
	// DefaultMemoryRatio is the share of container memory given to the Go
	// heap. The rest covers goroutine stacks, sqlite page cache and any
	// listing command.
	DefaultMemoryRatio = 0.85

	sourceGOMEMLIMIT  = "GOMEMLIMIT"
	sourceMEMORYLIMIT = "MEMORY_LIMIT"
	sourceCgroup      = "cgroup"
	sourceNone        = "none"
)

// cgroupMemoryMax is the cgroup v2 limit file of the current process. It
// holds "max" when the group is unlimited.
var cgroupMemoryMax = "/sys/fs/cgroup/memory.max"

// ConfigResult holds the result of memory configuration
type ConfigResult struct {
	// Configured indicates whether a limit is in effect
	Configured bool

	// Source is "GOMEMLIMIT", "MEMORY_LIMIT", "cgroup", or "none"
	Source string

	// ContainerLimit is the container memory limit in bytes (0 if not set)
	ContainerLimit int64

	// GoMemLimit is the effective GOMEMLIMIT in bytes (0 if not set)
	GoMemLimit int64

	// Ratio is the memory ratio used (0 if not applicable)
	Ratio float64
}

// ConfigureFromEnv sets GOMEMLIMIT from MEMORY_LIMIT and MEMORY_RATIO unless
// GOMEMLIMIT is already set. Without MEMORY_LIMIT the cgroup v2 limit is
// used, which covers indexers run as systemd units. Call it early in main.
func ConfigureFromEnv() ConfigResult {
	result := ConfigResult{Source: sourceNone}

	if goMemLimitEnv := os.Getenv("GOMEMLIMIT"); goMemLimitEnv != "" {
		if limit := debug.SetMemoryLimit(-1); limit > 0 && limit < math.MaxInt64 {
			result.Configured = true
			result.Source = sourceGOMEMLIMIT
			result.GoMemLimit = limit
		}
		logging.Info("GOMEMLIMIT set via environment: %s", goMemLimitEnv)
		return result
	}

	source := sourceMEMORYLIMIT
	memLimitStr := os.Getenv("MEMORY_LIMIT")
	if memLimitStr == "" {
		limit, ok := cgroupLimit(cgroupMemoryMax)
		if !ok {
			logging.Debug("No MEMORY_LIMIT or cgroup limit, GOMEMLIMIT will not be configured automatically")
			return result
		}
		source, memLimitStr = sourceCgroup, limit
	}

	memLimit, err := strconv.ParseInt(memLimitStr, 10, 64)
	if err != nil || memLimit <= 0 {
		logging.Warn("Invalid %s %q, GOMEMLIMIT not configured", source, memLimitStr)
		return result
	}

	ratio := DefaultMemoryRatio
	if ratioStr := os.Getenv("MEMORY_RATIO"); ratioStr != "" {
		parsed, err := strconv.ParseFloat(ratioStr, 64)
		switch {
		case err != nil:
			logging.Warn("Failed to parse MEMORY_RATIO %q: %v, using default %.2f", ratioStr, err, DefaultMemoryRatio)
		case parsed <= 0 || parsed > 1.0:
			logging.Warn("MEMORY_RATIO %q out of range (0.0-1.0), using default %.2f", ratioStr, DefaultMemoryRatio)
		default:
			ratio = parsed
		}
	}

	goMemLimit := int64(float64(memLimit) * ratio)
	debug.SetMemoryLimit(goMemLimit)

	result.Configured = true
	result.Source = source
	result.ContainerLimit = memLimit
	result.GoMemLimit = goMemLimit
	result.Ratio = ratio

	logging.Info("Configured GOMEMLIMIT: %s (%.1f%% of %s %s limit)",
		FormatBytes(goMemLimit), ratio*100, FormatBytes(memLimit), source)
	return result
}

// cgroupLimit reads a cgroup v2 memory.max file. An unlimited or
// unreadable group reports false.
func cgroupLimit(path string) (string, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", false
	}
	value := strings.TrimSpace(string(data))
	if value == "" || value == "max" {
		return "", false
	}
	return value, true
}

// FormatBytes formats bytes into a human-readable string
func FormatBytes(b int64) string {
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
