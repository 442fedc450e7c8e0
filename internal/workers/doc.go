/*
Package workers sizes and runs the fixed worker pools of the indexer.

# Sizing

Count derives a worker count from GOMAXPROCS, which Go 1.19+ sets from the
container CPU limit, instead of runtime.NumCPU, which reports the host:

	// Index workers: one per CPU, at most 4
	n := workers.ForIndex()

	// Disk scanner: two per CPU, at most 16
	n := workers.ForScan(16)

The SDC_WORKERS environment variable overrides the automatic value:

	env:
	- name: SDC_WORKERS
	  value: "2"

# Pools

Pool runs a fixed number of consumers over a channel and joins them with
golang.org/x/sync/errgroup:

	pool := &workers.Pool[events.FileEvent]{
		Size:   n,
		Handle: handle,
	}
	err := pool.Run(ctx, q.C())

Workers share no state. Cancelling ctx stops every worker after the item it
is handling; items received after cancellation go to OnDrop. A Handle error
stops only the worker that returned it, and Run reports the first such
error once all workers have exited.
*/
package workers
