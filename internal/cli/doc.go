// Package cli is the sdc-indexer command tree.
//
// Commands:
//
//	full-index <roots...> [--dry-run]   reconcile the catalog with the disk
//	delta-index --roots <roots...>      apply filesystem events until signaled
//	classify <names...>                 print how file names parse, as JSON
//	load-orbits <file>                  import an orbit perigee table
//
// Every command reads the configuration from startup.LoadConfig; flags
// given on the command line override it. Indexing commands take the
// process lock for their (program, flavor) pair and exit with status 5 when
// another instance holds it.
//
// Exit status of delta-index:
//
//	0  drained after SIGINT or SIGTERM
//	1  unrecoverable worker or watch error
//	3  kernel notification queue overflow
//	4  work queue overflow
//	5  lock held by another instance
//
// Both overflow statuses mean events were lost; run full-index before
// restarting delta-index.
package cli
