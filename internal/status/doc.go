// Package status records job lifecycle events for the indexers.
//
// A [Reporter] stamps each [Record] with a component name and a job id and
// hands it to a [Sink]. The catalog sink appends to the status table, the
// log sink writes an info line, and [Multi] fans out to several sinks:
//
//	reporter := status.NewReporter("delta-index", status.JobID(uniqueID),
//	    status.Multi{status.LogSink{}, status.NewCatalogSink(db)})
//	reporter.Start(ctx, "watching 3 roots", "")
//
// Sink failures are logged and never interrupt indexing.
package status
