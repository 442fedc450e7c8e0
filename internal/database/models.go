package database

import (
	"path/filepath"
	"time"
)

// ScienceRow is a row of science_files. Level-0 rows use the same shape with
// Kind "l0" and Revision 0.
type ScienceRow struct {
	ID              int64
	FileName        string
	DirectoryPath   string
	FileSize        int64
	ModDate         time.Time
	Kind            string
	Instrument      string
	Level           string
	Grouping        string
	Descriptor      string
	Plan            string
	Orbit           *int
	Mode            string
	DataType        string
	FlareClass      string
	Timetag         time.Time
	Version         int
	Revision        int
	AbsoluteVersion int
	FileExtension   string
	Compressed      bool
}

// Path returns the full path of the file.
func (r ScienceRow) Path() string { return filepath.Join(r.DirectoryPath, r.FileName) }

// AncillaryRow is a row of ancillary_files.
type AncillaryRow struct {
	ID            int64
	FileName      string
	DirectoryPath string
	FileSize      int64
	ModDate       time.Time
	BaseName      string
	Product       string
	StartDate     time.Time
	EndDate       *time.Time
	Version       int
	FileExtension string
}

// Path returns the full path of the file.
func (r AncillaryRow) Path() string { return filepath.Join(r.DirectoryPath, r.FileName) }

// StatusRow is a status side-channel record.
type StatusRow struct {
	ID          int64     `json:"id"`
	Component   string    `json:"component"`
	Event       string    `json:"event"`
	JobID       string    `json:"job_id"`
	Summary     string    `json:"summary"`
	Description string    `json:"description"`
	RecordedAt  time.Time `json:"recorded_at"`
}

// Failure is a row whose write failed with a recoverable error.
type Failure struct {
	Err  error
	Path string
	Row  any
}

// UpsertResult reports the outcome of an upsert call.
type UpsertResult struct {
	Inserted int
	Updated  int
	Failures []Failure
}

// Merge adds the counts and failures of o to r.
func (r *UpsertResult) Merge(o UpsertResult) {
	r.Inserted += o.Inserted
	r.Updated += o.Updated
	r.Failures = append(r.Failures, o.Failures...)
}

// ScienceFilter selects science rows. Empty fields match everything.
type ScienceFilter struct {
	Instrument string
	Level      string
	Descriptor string
	Plan       string
	From       time.Time
	To         time.Time
	Limit      int
}

// Counts holds catalog row counts.
type Counts struct {
	Science   int
	L0        int
	Ancillary int
	Status    int
	Orbits    int
}
