// Package events defines the filesystem change events passed from the watch
// source through the work queue to the index workers.
package events

import "time"

// Kind is the type of filesystem change carried by a FileEvent.
type Kind int

const (
	// Closed means a writer released the file after creating or modifying it.
	Closed Kind = iota

	// Removed means the directory entry for the path went away.
	Removed

	// Overflow means the kernel dropped notifications. Path is empty.
	Overflow
)

// String returns a human-readable name for the kind.
func (k Kind) String() string {
	switch k {
	case Closed:
		return "closed"
	case Removed:
		return "removed"
	case Overflow:
		return "overflow"
	default:
		return "unknown"
	}
}

// FileEvent is one filesystem change. Events are values; nothing downstream
// retains or mutates them.
type FileEvent struct {
	// Path is the absolute path of the file.
	Path string

	// Kind is the change that happened.
	Kind Kind

	// Time is when the event was observed.
	Time time.Time
}

// NewClosed returns a Closed event for path stamped with now.
func NewClosed(path string, now time.Time) FileEvent {
	return FileEvent{Path: path, Kind: Closed, Time: now}
}

// NewRemoved returns a Removed event for path stamped with now.
func NewRemoved(path string, now time.Time) FileEvent {
	return FileEvent{Path: path, Kind: Removed, Time: now}
}
