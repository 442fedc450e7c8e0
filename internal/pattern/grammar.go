package pattern

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"sdc-indexer/internal/orbit"
)

// Expression fragments shared by the science-family patterns.
const (
	instrumentExpr = `(?P<instrument>[a-z]{3})`
	levelExpr      = `(?P<level>l[1-4][a-z]?)`
	descriptorExpr = `(?P<descriptor>[a-zA-Z0-9-]+)`
	dateExpr       = `(?P<year>\d{4})(?P<month>\d{2})(?P<day>\d{2})`
	clockExpr      = `(?:[Tt](?P<hhmmss>\d{6}))?`
	versionExpr    = `_v(?P<version>\d+)_r(?P<revision>\d+)`
	extensionExpr  = `\.(?P<extension>[a-z0-9]+)(?P<gz>\.gz)?`
	kernelExtExpr  = `(?P<extension>bc|bsp|tf|ti|tsc|tpc|tls|orb)`
)

var descriptorOrbitRe = regexp.MustCompile(`^(?:orb|orbit)?(\d{5})$`)

func standardPatterns() []Pattern {
	return []Pattern{
		// Ancillary engineering
		newPattern("eng", GroupAncillaryEngineering, FamilyAncillary,
			`^(?P<base>mvn)_eng_(?P<product>[a-z0-9]+)_(?P<start>\d{8})(?:_(?P<end>\d{8}))?(?:_v(?P<version>\d+))?\.(?P<extension>csv|txt|dat|tab)$`,
			[]string{"base", "product", "start", "end", "version", "extension"},
			buildCompactAncillary("eng")),

		// Ancillary general
		newPattern("anc-yy-doy", GroupAncillary, FamilyAncillary,
			`^(?P<base>sci)_anc_(?P<product>[a-z]+)(?P<yy>\d{2})_(?P<doy_start>\d{3})_(?P<doy_end>\d{3})\.(?P<extension>[a-z0-9]+)$`,
			[]string{"base", "product", "yy", "doy_start", "doy_end", "extension"},
			buildDOYAncillary("anc-yy-doy")),
		newPattern("anc-yyyy-doy", GroupAncillary, FamilyAncillary,
			`^(?P<base>[a-z]+)_anc_(?P<product>[a-z]+)(?P<year>\d{4})_(?P<doy_start>\d{3})_(?P<doy_end>\d{3})(?:_v(?P<version>\d+))?\.(?P<extension>[a-z0-9]+)$`,
			[]string{"base", "product", "year", "doy_start", "doy_end", "version", "extension"},
			buildDOYAncillary("anc-yyyy-doy")),
		newPattern("anc-yymmdd", GroupAncillary, FamilyAncillary,
			`^(?P<base>[a-z]+)_(?P<product>[a-z][a-z0-9_]*?)_(?P<start>\d{6})_(?P<end>\d{6})(?:_v(?P<version>\d+))?\.`+kernelExtExpr+`$`,
			[]string{"base", "product", "start", "end", "version", "extension"},
			buildCompactAncillary("anc-yymmdd")),
		newPattern("anc-yyyymmdd", GroupAncillary, FamilyAncillary,
			`^(?P<base>[a-z]+)_(?P<product>[a-z][a-z0-9_]*?)_(?P<start>\d{8})(?:_(?P<end>\d{8}))?(?:_v(?P<version>\d+))?\.(?P<extension>bc|bsp|orb|sff|drf|csv)$`,
			[]string{"base", "product", "start", "end", "version", "extension"},
			buildCompactAncillary("anc-yyyymmdd")),
		newPattern("anc-orbit", GroupAncillary, FamilyAncillary,
			`^(?P<base>[a-z]+)_(?P<product>[a-z][a-z0-9_]*?)_(?P<orb_start>\d{5})_(?P<orb_end>\d{5})(?:_v(?P<version>\d+))?\.(?P<extension>bsp|orb|txt)$`,
			[]string{"base", "product", "orb_start", "orb_end", "version", "extension"},
			buildOrbitAncillary),

		// Metadata index
		newPattern("metadata", GroupMetadata, FamilyScience,
			`^mvn_`+instrumentExpr+`_(?P<level>l[0-4][a-z]?|ql|kp)_(?P<type>metadata|md)_(?P<description>[a-zA-Z0-9-]+)_`+dateExpr+clockExpr+
				`(?:_v(?P<version>\d+))?(?:_r(?P<revision>\d+))?`+extensionExpr+`$`,
			[]string{"instrument", "level", "type", "description", "year", "month", "day", "hhmmss", "version", "revision", "extension", "gz"},
			buildMetadata),

		// Level 0
		newPattern("l0", GroupL0, FamilyL0,
			`^mvn_`+instrumentExpr+`_(?P<grouping>[a-z]+)_(?P<level>l0[a-z]?)_`+dateExpr+`_v(?P<version>\d+)\.dat$`,
			[]string{"instrument", "grouping", "level", "year", "month", "day", "version"},
			buildL0),

		// Quicklook
		newPattern("ql", GroupQuicklook, FamilyScience,
			`^mvn_`+instrumentExpr+`_(?P<level>ql)_`+descriptorExpr+`_`+dateExpr+clockExpr+`(?:`+versionExpr+`)?`+extensionExpr+`$`,
			[]string{"instrument", "level", "descriptor", "year", "month", "day", "hhmmss", "version", "revision", "extension", "gz"},
			buildScience("ql", KindQuicklook)),

		// Science variants
		newPattern("sep-anc", GroupScience, FamilyScience,
			`^mvn_(?P<instrument>sep)_`+levelExpr+`_(?P<descriptor>anc)_`+dateExpr+versionExpr+`\.(?P<extension>cdf|sav|tplot)(?P<gz>\.gz)?$`,
			[]string{"instrument", "level", "descriptor", "year", "month", "day", "version", "revision", "extension", "gz"},
			buildScience("sep-anc", KindScience)),
		newPattern("euv-l2b", GroupScience, FamilyScience,
			`^mvn_(?P<instrument>euv)_(?P<level>l2b)_(?P<descriptor>orbit)_(?P<orbit>\d{5})`+versionExpr+`\.(?P<extension>sav|cdf)(?P<gz>\.gz)?$`,
			[]string{"instrument", "level", "descriptor", "orbit", "version", "revision", "extension", "gz"},
			buildEUVOrbit),
		newPattern("euv", GroupScience, FamilyScience,
			`^mvn_(?P<instrument>euv)_`+levelExpr+`_`+descriptorExpr+`_`+dateExpr+`(?:[Tt](?P<hhmmss>\d{6})|(?P<hhmm>\d{4}))?`+versionExpr+extensionExpr+`$`,
			[]string{"instrument", "level", "descriptor", "year", "month", "day", "hhmmss", "hhmm", "version", "revision", "extension", "gz"},
			buildScience("euv", KindScience)),
		newPattern("euv-flare", GroupScience, FamilyScience,
			`^mvn_(?P<instrument>euv)_flare_`+dateExpr+`_(?P<hhmm>\d{4})_(?P<flare_class>[a-zA-Z0-9.]+)\.(?P<extension>png)$`,
			[]string{"instrument", "year", "month", "day", "hhmm", "flare_class", "extension"},
			buildFlare),
		newPattern("euv-flare-catalog", GroupScience, FamilyScience,
			`^mvn_(?P<instrument>euv)_flare_catalog_(?P<year>\d{4})\.(?P<extension>txt)$`,
			[]string{"instrument", "year", "extension"},
			buildFlareCatalog),
		newPattern("euv-l4", GroupScience, FamilyScience,
			`^mvn_(?P<instrument>euv)_(?P<level>l4)_`+descriptorExpr+`_(?P<year>\d{4})(?P<doy>\d{3})`+versionExpr+`\.(?P<extension>cdf|sav)(?P<gz>\.gz)?$`,
			[]string{"instrument", "level", "descriptor", "year", "doy", "version", "revision", "extension", "gz"},
			buildEUVL4),
		newPattern("kp", GroupScience, FamilyScience,
			`^mvn_(?P<instrument>kp)_(?P<product>insitu|iuvs)(?:_`+descriptorExpr+`)?_`+dateExpr+clockExpr+versionExpr+`\.(?P<extension>tab|txt|cdf)(?P<gz>\.gz)?$`,
			[]string{"instrument", "product", "descriptor", "year", "month", "day", "hhmmss", "version", "revision", "extension", "gz"},
			buildKP),
		newPattern("label", GroupScience, FamilyScience,
			`^mvn_`+instrumentExpr+`_`+levelExpr+`(?:_`+descriptorExpr+`)?_`+dateExpr+clockExpr+versionExpr+`\.(?P<extension>xml)$`,
			[]string{"instrument", "level", "descriptor", "year", "month", "day", "hhmmss", "version", "revision", "extension"},
			buildScience("label", KindScience)),
		newPattern("science", GroupScience, FamilyScience,
			`^mvn_`+instrumentExpr+`_`+levelExpr+`(?:_`+descriptorExpr+`)?_`+dateExpr+clockExpr+versionExpr+extensionExpr+`$`,
			[]string{"instrument", "level", "descriptor", "year", "month", "day", "hhmmss", "version", "revision", "extension", "gz"},
			buildScience("science", KindScience)),
	}
}

// timetag reads year/month/day plus an optional hhmmss or hhmm group.
func timetag(c captures) (time.Time, error) {
	year, err := c.int("year")
	if err != nil {
		return time.Time{}, err
	}
	month, err := c.intOr("month", 1)
	if err != nil {
		return time.Time{}, err
	}
	day, err := c.intOr("day", 1)
	if err != nil {
		return time.Time{}, err
	}

	var hour, minute, second int
	switch {
	case c.has("hhmmss"):
		hour, minute, second, err = clock(c.str("hhmmss"))
	case c.has("hhmm"):
		hour, minute, second, err = clock(c.str("hhmm"))
	}
	if err != nil {
		return time.Time{}, err
	}
	return utcDate(year, month, day, hour, minute, second)
}

// versions reads version and revision, defaulting to 1 and 0.
func versions(c captures) (int, int, error) {
	version, err := c.intOr("version", 1)
	if err != nil {
		return 0, 0, err
	}
	revision, err := c.intOr("revision", 0)
	if err != nil {
		return 0, 0, err
	}
	if !validVersion(version) || !validVersion(revision) {
		return 0, 0, fmt.Errorf("version %d revision %d out of range", version, revision)
	}
	return version, revision, nil
}

// splitDescriptor fills plan, orbit, mode and data type from a dash-separated
// descriptor. The second token is the orbit only when it looks like one.
func splitDescriptor(s *Science) {
	if s.Descriptor == "" {
		return
	}
	tokens := strings.Split(s.Descriptor, "-")
	if s.Plan == "" {
		s.Plan = tokens[0]
	}
	if len(tokens) > 1 {
		if m := descriptorOrbitRe.FindStringSubmatch(tokens[1]); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil {
				s.Orbit = &n
			}
		}
	}
	if len(tokens) > 2 {
		s.Mode = tokens[2]
	}
	if len(tokens) > 3 {
		s.DataType = tokens[3]
	}
}

func buildScience(name string, kind Kind) builder {
	return func(c captures, _ orbit.Lookup) (Parsed, error) {
		t, err := timetag(c)
		if err != nil {
			return nil, err
		}
		version, revision, err := versions(c)
		if err != nil {
			return nil, err
		}

		s := &Science{
			Pattern:       name,
			Kind:          kind,
			Instrument:    c.str("instrument"),
			Level:         c.str("level"),
			Descriptor:    c.str("descriptor"),
			Timetag:       t,
			Version:       version,
			Revision:      revision,
			FileExtension: c.str("extension"),
			Compressed:    c.has("gz"),
		}
		if kind == KindQuicklook {
			s.Plan = "quicklook"
		}
		splitDescriptor(s)
		return s, nil
	}
}

func buildMetadata(c captures, _ orbit.Lookup) (Parsed, error) {
	t, err := timetag(c)
	if err != nil {
		return nil, err
	}
	version, revision, err := versions(c)
	if err != nil {
		return nil, err
	}
	return &Science{
		Pattern:       "metadata",
		Kind:          KindMetadata,
		Instrument:    c.str("instrument"),
		Level:         c.str("level"),
		Plan:          "metadata",
		Descriptor:    c.str("description"),
		DataType:      c.str("type"),
		Timetag:       t,
		Version:       version,
		Revision:      revision,
		FileExtension: c.str("extension"),
		Compressed:    c.has("gz"),
	}, nil
}

func buildEUVOrbit(c captures, lookup orbit.Lookup) (Parsed, error) {
	n, err := c.int("orbit")
	if err != nil {
		return nil, err
	}
	t, ok := lookup.PerigeeTime(n)
	if !ok {
		return nil, fmt.Errorf("no perigee time for orbit %d", n)
	}
	version, revision, err := versions(c)
	if err != nil {
		return nil, err
	}
	return &Science{
		Pattern:       "euv-l2b",
		Kind:          KindScience,
		Instrument:    c.str("instrument"),
		Level:         c.str("level"),
		Descriptor:    c.str("descriptor"),
		Plan:          c.str("descriptor"),
		Orbit:         &n,
		Timetag:       t.UTC().Truncate(time.Second),
		Version:       version,
		Revision:      revision,
		FileExtension: c.str("extension"),
		Compressed:    c.has("gz"),
	}, nil
}

func buildFlare(c captures, _ orbit.Lookup) (Parsed, error) {
	t, err := timetag(c)
	if err != nil {
		return nil, err
	}
	return &Science{
		Pattern:       "euv-flare",
		Kind:          KindScience,
		Instrument:    c.str("instrument"),
		Level:         "l2",
		Descriptor:    "flare",
		Plan:          "flare",
		FlareClass:    c.str("flare_class"),
		Timetag:       t,
		Version:       1,
		Revision:      0,
		FileExtension: c.str("extension"),
	}, nil
}

func buildFlareCatalog(c captures, _ orbit.Lookup) (Parsed, error) {
	t, err := timetag(c)
	if err != nil {
		return nil, err
	}
	return &Science{
		Pattern:       "euv-flare-catalog",
		Kind:          KindScience,
		Instrument:    c.str("instrument"),
		Level:         "l2",
		Descriptor:    "flare-catalog",
		Plan:          "flare",
		Timetag:       t,
		Version:       1,
		Revision:      0,
		FileExtension: c.str("extension"),
	}, nil
}

func buildEUVL4(c captures, _ orbit.Lookup) (Parsed, error) {
	year, err := c.int("year")
	if err != nil {
		return nil, err
	}
	doy, err := c.int("doy")
	if err != nil {
		return nil, err
	}
	t, err := dayOfYear(year, doy)
	if err != nil {
		return nil, err
	}
	version, revision, err := versions(c)
	if err != nil {
		return nil, err
	}
	s := &Science{
		Pattern:       "euv-l4",
		Kind:          KindScience,
		Instrument:    c.str("instrument"),
		Level:         c.str("level"),
		Descriptor:    c.str("descriptor"),
		Timetag:       t,
		Version:       version,
		Revision:      revision,
		FileExtension: c.str("extension"),
		Compressed:    c.has("gz"),
	}
	splitDescriptor(s)
	return s, nil
}

func buildKP(c captures, _ orbit.Lookup) (Parsed, error) {
	t, err := timetag(c)
	if err != nil {
		return nil, err
	}
	version, revision, err := versions(c)
	if err != nil {
		return nil, err
	}
	descriptor := c.str("product")
	if c.has("descriptor") {
		descriptor += "-" + c.str("descriptor")
	}
	return &Science{
		Pattern:       "kp",
		Kind:          KindScience,
		Instrument:    c.str("instrument"),
		Level:         "kp",
		Descriptor:    descriptor,
		Plan:          c.str("product"),
		Timetag:       t,
		Version:       version,
		Revision:      revision,
		FileExtension: c.str("extension"),
		Compressed:    c.has("gz"),
	}, nil
}

func buildL0(c captures, _ orbit.Lookup) (Parsed, error) {
	t, err := timetag(c)
	if err != nil {
		return nil, err
	}
	version, err := c.int("version")
	if err != nil {
		return nil, err
	}
	if version < 0 {
		return nil, fmt.Errorf("negative version %d", version)
	}
	return &L0{
		Pattern:    "l0",
		Instrument: c.str("instrument"),
		Grouping:   c.str("grouping"),
		Level:      c.str("level"),
		Timetag:    t,
		Version:    version,
	}, nil
}

func buildDOYAncillary(name string) builder {
	return func(c captures, _ orbit.Lookup) (Parsed, error) {
		var year int
		var err error
		if c.has("yy") {
			year, err = c.int("yy")
			year += 2000
		} else {
			year, err = c.int("year")
		}
		if err != nil {
			return nil, err
		}
		startDOY, err := c.int("doy_start")
		if err != nil {
			return nil, err
		}
		endDOY, err := c.int("doy_end")
		if err != nil {
			return nil, err
		}
		start, end, err := doySpan(year, startDOY, endDOY)
		if err != nil {
			return nil, err
		}
		version, err := c.optionalInt("version")
		if err != nil {
			return nil, err
		}
		return &Ancillary{
			Pattern:       name,
			Base:          c.str("base"),
			Product:       c.str("product"),
			StartDate:     start,
			EndDate:       &end,
			Version:       version,
			FileExtension: c.str("extension"),
		}, nil
	}
}

func buildCompactAncillary(name string) builder {
	return func(c captures, _ orbit.Lookup) (Parsed, error) {
		start, err := compactDate(c.str("start"))
		if err != nil {
			return nil, err
		}
		var end *time.Time
		if c.has("end") {
			e, err := compactDate(c.str("end"))
			if err != nil {
				return nil, err
			}
			if e.Before(start) {
				return nil, fmt.Errorf("end %s before start %s", e.Format(time.DateOnly), start.Format(time.DateOnly))
			}
			end = &e
		}
		version, err := c.optionalInt("version")
		if err != nil {
			return nil, err
		}
		return &Ancillary{
			Pattern:       name,
			Base:          c.str("base"),
			Product:       c.str("product"),
			StartDate:     start,
			EndDate:       end,
			Version:       version,
			FileExtension: c.str("extension"),
		}, nil
	}
}

func buildOrbitAncillary(c captures, lookup orbit.Lookup) (Parsed, error) {
	first, err := c.int("orb_start")
	if err != nil {
		return nil, err
	}
	last, err := c.int("orb_end")
	if err != nil {
		return nil, err
	}
	start, ok := lookup.PerigeeTime(first)
	if !ok {
		return nil, fmt.Errorf("no perigee time for orbit %d", first)
	}
	end, ok := lookup.PerigeeTime(last)
	if !ok {
		return nil, fmt.Errorf("no perigee time for orbit %d", last)
	}
	start = start.UTC().Truncate(time.Second)
	end = end.UTC().Truncate(time.Second)
	if end.Before(start) {
		return nil, fmt.Errorf("orbit %d perigee precedes orbit %d", last, first)
	}
	version, err := c.optionalInt("version")
	if err != nil {
		return nil, err
	}
	return &Ancillary{
		Pattern:       "anc-orbit",
		Base:          c.str("base"),
		Product:       c.str("product"),
		StartDate:     start,
		EndDate:       &end,
		Version:       version,
		FileExtension: c.str("extension"),
	}, nil
}
