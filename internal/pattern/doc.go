// Package pattern classifies SDC file names.
//
// A Registry holds an ordered list of Patterns. Each Pattern owns a compiled
// regular expression, the list of named capture groups it produces, and a
// builder that turns those captures into one of the parsed variants:
//   - *Science (plain science, metadata-index and quicklook products)
//   - *L0 (level-0 telemetry)
//   - *Ancillary (SPICE kernels, engineering and other ancillary products)
//
// Patterns are grouped by family and tried in a fixed order: ancillary
// engineering, ancillary general, metadata index, level 0, quicklook and
// finally the science variants. The first pattern whose expression matches and
// whose builder accepts the captures wins. A builder rejects captures that do
// not form a valid calendar date, day of year or known orbit, and
// classification moves on to the next pattern.
//
// Classification is a pure function of the base name and the orbit lookup.
// Nothing outside this package sees the regular expressions.
package pattern
