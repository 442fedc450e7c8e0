// Package memory sets the Go memory limit for long-running indexers and
// throttles catalog writes when the heap nears it.
//
// A full reconciliation holds both sides of the diff in memory, and delta
// indexing runs for weeks, so both call [ConfigureFromEnv] before anything
// else:
//
//	memory.ConfigureFromEnv()
//
// # Environment Variables
//
//   - GOMEMLIMIT: Standard Go environment variable. If set, it wins and is
//     only reported.
//   - MEMORY_LIMIT: Container memory limit in bytes, typically from the
//     Kubernetes Downward API. GOMEMLIMIT is derived from it.
//   - MEMORY_RATIO: Share of the limit given to the Go heap, between 0.0
//     and 1.0. Default 0.85. Lower it when a listing command runs alongside.
//
// Without MEMORY_LIMIT the cgroup v2 file /sys/fs/cgroup/memory.max is read,
// so a systemd MemoryMax= setting is honored too.
//
// # Monitor
//
// [Monitor] samples heap usage on an interval. Above the critical water
// mark it pauses: [Monitor.Wait] blocks until usage drops below the high
// water mark. The full reconciler calls Wait between write batches.
//
//	m := memory.NewMonitor(memory.DefaultConfig())
//	m.Start()
//	defer m.Stop()
//	idx.SetThrottle(m)
package memory
