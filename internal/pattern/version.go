package pattern

// VersionBase is the multiplier applied to the version in an absolute version.
// Revisions must stay below it for the encoding to be monotone.
const VersionBase = 1000

// AbsoluteVersion encodes (version, revision) as version*1000 + revision.
// For 0 <= version, revision < 1000 the result is strictly monotone in the
// lexicographic order of the pair.
func AbsoluteVersion(version, revision int) int {
	return version*VersionBase + revision
}

// DecodeAbsoluteVersion inverts AbsoluteVersion.
func DecodeAbsoluteVersion(absolute int) (version, revision int) {
	return absolute / VersionBase, absolute % VersionBase
}

// validVersion reports whether n can take part in an absolute version.
func validVersion(n int) bool {
	return n >= 0 && n < VersionBase
}
