// Package watcher is the watch source of the delta indexer. It wraps
// fsnotify with recursive watches over every root and turns kernel
// notifications into events.FileEvent values.
//
// fsnotify does not report close-write portably, so a file is reported as
// Closed once no Create or Write notification has arrived for it for a
// quiet period. Remove and Rename notifications are reported as Removed
// immediately and cancel a pending Closed for the same path. A kernel queue
// overflow is reported as a single Overflow event.
//
// Directories created under a root are watched as soon as they appear, and
// files already inside them are reported as Closed after the quiet period,
// which covers files written before the watch was in place.
package watcher
