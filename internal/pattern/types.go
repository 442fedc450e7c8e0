package pattern

import (
	"errors"
	"time"
)

// ErrUnrecognized is returned when no pattern accepts a file name.
var ErrUnrecognized = errors.New("unrecognized file name")

// Family selects the catalog table and gateway operations for a product.
type Family int

const (
	// FamilyScience covers science, metadata-index and quicklook products.
	FamilyScience Family = iota
	// FamilyL0 covers level-0 telemetry. Rows live in the science table.
	FamilyL0
	// FamilyAncillary covers ancillary products.
	FamilyAncillary
)

// String returns the family name.
func (f Family) String() string {
	switch f {
	case FamilyScience:
		return "science"
	case FamilyL0:
		return "l0"
	case FamilyAncillary:
		return "ancillary"
	default:
		return "unknown"
	}
}

// Group is a set of patterns tried together. Groups are tried in declaration order.
type Group int

const (
	GroupAncillaryEngineering Group = iota
	GroupAncillary
	GroupMetadata
	GroupL0
	GroupQuicklook
	GroupScience
)

// String returns the group name.
func (g Group) String() string {
	switch g {
	case GroupAncillaryEngineering:
		return "ancillary-engineering"
	case GroupAncillary:
		return "ancillary"
	case GroupMetadata:
		return "metadata"
	case GroupL0:
		return "l0"
	case GroupQuicklook:
		return "quicklook"
	case GroupScience:
		return "science"
	default:
		return "unknown"
	}
}

// Kind distinguishes the science-family variants.
type Kind string

const (
	KindScience   Kind = "science"
	KindMetadata  Kind = "metadata"
	KindQuicklook Kind = "quicklook"
)

// Parsed is the result of classifying a file name. The concrete type is one of
// *Science, *L0 or *Ancillary.
type Parsed interface {
	// Family reports which catalog family the file belongs to.
	Family() Family
	// PatternName reports which pattern produced the value.
	PatternName() string
	parsed()
}

// Science is a parsed science, metadata-index or quicklook file name.
// Optional string fields are empty when absent.
type Science struct {
	Pattern       string    `json:"pattern"`
	Kind          Kind      `json:"kind"`
	Instrument    string    `json:"instrument"`
	Level         string    `json:"level"`
	Descriptor    string    `json:"descriptor,omitempty"`
	Timetag       time.Time `json:"timetag"`
	Version       int       `json:"version"`
	Revision      int       `json:"revision"`
	FileExtension string    `json:"file_extension"`
	Compressed    bool      `json:"compressed,omitempty"`
	Plan          string    `json:"plan,omitempty"`
	Orbit         *int      `json:"orbit"`
	Mode          string    `json:"mode,omitempty"`
	DataType      string    `json:"data_type,omitempty"`
	FlareClass    string    `json:"flare_class,omitempty"`
}

// Family implements Parsed.
func (s *Science) Family() Family { return FamilyScience }

// PatternName implements Parsed.
func (s *Science) PatternName() string { return s.Pattern }

// AbsoluteVersion returns the scalar ordering key for (Version, Revision).
func (s *Science) AbsoluteVersion() int { return AbsoluteVersion(s.Version, s.Revision) }

func (s *Science) parsed() {}

// L0 is a parsed level-0 file name. Level-0 products have no revision.
type L0 struct {
	Pattern    string    `json:"pattern"`
	Instrument string    `json:"instrument"`
	Grouping   string    `json:"grouping"`
	Level      string    `json:"level"`
	Timetag    time.Time `json:"timetag"`
	Version    int       `json:"version"`
}

// Family implements Parsed.
func (l *L0) Family() Family { return FamilyL0 }

// PatternName implements Parsed.
func (l *L0) PatternName() string { return l.Pattern }

// AbsoluteVersion is the version itself for level-0 products.
func (l *L0) AbsoluteVersion() int { return l.Version }

func (l *L0) parsed() {}

// Ancillary is a parsed ancillary file name. EndDate and Version are nil when
// the name does not carry them.
type Ancillary struct {
	Pattern       string     `json:"pattern"`
	Base          string     `json:"base"`
	Product       string     `json:"product"`
	StartDate     time.Time  `json:"start_date"`
	EndDate       *time.Time `json:"end_date"`
	Version       *int       `json:"version"`
	FileExtension string     `json:"file_extension"`
}

// Family implements Parsed.
func (a *Ancillary) Family() Family { return FamilyAncillary }

// PatternName implements Parsed.
func (a *Ancillary) PatternName() string { return a.Pattern }

// VersionOrZero returns the version, or 0 when the name has none.
func (a *Ancillary) VersionOrZero() int {
	if a.Version == nil {
		return 0
	}
	return *a.Version
}

func (a *Ancillary) parsed() {}
