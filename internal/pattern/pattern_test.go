package pattern

import (
	"errors"
	"math/rand"
	"strings"
	"testing"
	"time"

	"sdc-indexer/internal/orbit"
)

func testLookup() orbit.Lookup {
	return orbit.Static{
		1000: time.Date(2015, 4, 10, 6, 30, 15, 0, time.UTC),
		1001: time.Date(2015, 4, 10, 11, 5, 0, 0, time.UTC),
		2500: time.Date(2016, 1, 15, 2, 0, 0, 0, time.UTC),
	}
}

func mustScience(t *testing.T, r *Registry, name string) *Science {
	t.Helper()
	parsed, err := r.Classify(name)
	if err != nil {
		t.Fatalf("Classify(%q) failed: %v", name, err)
	}
	s, ok := parsed.(*Science)
	if !ok {
		t.Fatalf("Classify(%q) = %T, want *Science", name, parsed)
	}
	return s
}

func mustAncillary(t *testing.T, r *Registry, name string) *Ancillary {
	t.Helper()
	parsed, err := r.Classify(name)
	if err != nil {
		t.Fatalf("Classify(%q) failed: %v", name, err)
	}
	a, ok := parsed.(*Ancillary)
	if !ok {
		t.Fatalf("Classify(%q) = %T, want *Ancillary", name, parsed)
	}
	return a
}

func TestClassifyL1Science(t *testing.T) {
	r := NewRegistry(testLookup())
	s := mustScience(t, r, "mvn_ins_l1a_testplan-testorbit-testmode-testdatatype_20130430T010203_v01_r02.cdf")

	if s.Pattern != "science" || s.Kind != KindScience {
		t.Errorf("pattern/kind = %s/%s", s.Pattern, s.Kind)
	}
	if s.Instrument != "ins" || s.Level != "l1a" {
		t.Errorf("instrument/level = %s/%s", s.Instrument, s.Level)
	}
	if s.Descriptor != "testplan-testorbit-testmode-testdatatype" {
		t.Errorf("descriptor = %s", s.Descriptor)
	}
	want := time.Date(2013, 4, 30, 1, 2, 3, 0, time.UTC)
	if !s.Timetag.Equal(want) {
		t.Errorf("timetag = %v, want %v", s.Timetag, want)
	}
	if s.Version != 1 || s.Revision != 2 {
		t.Errorf("version/revision = %d/%d", s.Version, s.Revision)
	}
	if s.Plan != "testplan" || s.Orbit != nil || s.Mode != "testmode" || s.DataType != "testdatatype" {
		t.Errorf("descriptor split = plan %q orbit %v mode %q data type %q", s.Plan, s.Orbit, s.Mode, s.DataType)
	}
	if s.FileExtension != "cdf" || s.Compressed {
		t.Errorf("extension = %s compressed = %v", s.FileExtension, s.Compressed)
	}
	if s.AbsoluteVersion() != 1002 {
		t.Errorf("absolute version = %d", s.AbsoluteVersion())
	}
}

func TestClassifyAncillaryYearRollover(t *testing.T) {
	r := NewRegistry(testLookup())
	a := mustAncillary(t, r, "sci_anc_eps14_365_001.drf")

	if a.Pattern != "anc-yy-doy" || a.Base != "sci" || a.Product != "eps" {
		t.Errorf("pattern/base/product = %s/%s/%s", a.Pattern, a.Base, a.Product)
	}
	if !a.StartDate.Equal(time.Date(2014, 12, 31, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("start = %v", a.StartDate)
	}
	if a.EndDate == nil || !a.EndDate.Equal(time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("end = %v", a.EndDate)
	}
	if a.Version != nil {
		t.Errorf("version = %d, want nil", *a.Version)
	}
	if a.VersionOrZero() != 0 {
		t.Errorf("VersionOrZero = %d", a.VersionOrZero())
	}
	if a.FileExtension != "drf" {
		t.Errorf("extension = %s", a.FileExtension)
	}
}

func TestClassifyScienceVariants(t *testing.T) {
	r := NewRegistry(testLookup())

	tests := []struct {
		name       string
		file       string
		pattern    string
		kind       Kind
		instrument string
		level      string
		descriptor string
		timetag    time.Time
		version    int
		revision   int
		ext        string
		check      func(t *testing.T, s *Science)
	}{
		{
			name: "plain science without descriptor", file: "mvn_mag_l2_20150101_v01_r01.sts",
			pattern: "science", kind: KindScience, instrument: "mag", level: "l2",
			timetag: time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC), version: 1, revision: 1, ext: "sts",
		},
		{
			name: "lowercase t separator and gzip", file: "mvn_swe_l2_svyspec_20150101t120000_v04_r03.cdf.gz",
			pattern: "science", kind: KindScience, instrument: "swe", level: "l2", descriptor: "svyspec",
			timetag: time.Date(2015, 1, 1, 12, 0, 0, 0, time.UTC), version: 4, revision: 3, ext: "cdf",
			check: func(t *testing.T, s *Science) {
				if !s.Compressed {
					t.Error("expected compressed")
				}
			},
		},
		{
			name: "orbit token in descriptor", file: "mvn_iuv_l1b_periapse-orbit01234-muv_20150212T030405_v02_r00.fits",
			pattern: "science", kind: KindScience, instrument: "iuv", level: "l1b", descriptor: "periapse-orbit01234-muv",
			timetag: time.Date(2015, 2, 12, 3, 4, 5, 0, time.UTC), version: 2, revision: 0, ext: "fits",
			check: func(t *testing.T, s *Science) {
				if s.Orbit == nil || *s.Orbit != 1234 {
					t.Errorf("orbit = %v, want 1234", s.Orbit)
				}
				if s.Plan != "periapse" || s.Mode != "muv" || s.DataType != "" {
					t.Errorf("plan/mode/data type = %q/%q/%q", s.Plan, s.Mode, s.DataType)
				}
			},
		},
		{
			name: "label", file: "mvn_ngi_l2_csn-abund_20150101T000000_v05_r01.xml",
			pattern: "label", kind: KindScience, instrument: "ngi", level: "l2", descriptor: "csn-abund",
			timetag: time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC), version: 5, revision: 1, ext: "xml",
		},
		{
			name: "quicklook with versions", file: "mvn_swe_ql_svyspec_20150101_v01_r02.png",
			pattern: "ql", kind: KindQuicklook, instrument: "swe", level: "ql", descriptor: "svyspec",
			timetag: time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC), version: 1, revision: 2, ext: "png",
			check: func(t *testing.T, s *Science) {
				if s.Plan != "quicklook" {
					t.Errorf("plan = %q", s.Plan)
				}
			},
		},
		{
			name: "quicklook without versions", file: "mvn_sta_ql_c0-64e2m_20150101T010000.png",
			pattern: "ql", kind: KindQuicklook, instrument: "sta", level: "ql", descriptor: "c0-64e2m",
			timetag: time.Date(2015, 1, 1, 1, 0, 0, 0, time.UTC), version: 1, revision: 0, ext: "png",
		},
		{
			name: "metadata index", file: "mvn_lpw_l2_metadata_lpiv-summary_20150301T000000_v02.txt",
			pattern: "metadata", kind: KindMetadata, instrument: "lpw", level: "l2", descriptor: "lpiv-summary",
			timetag: time.Date(2015, 3, 1, 0, 0, 0, 0, time.UTC), version: 2, revision: 0, ext: "txt",
			check: func(t *testing.T, s *Science) {
				if s.Plan != "metadata" {
					t.Errorf("plan = %q", s.Plan)
				}
			},
		},
		{
			name: "sep ancillary", file: "mvn_sep_l2_anc_20150101_v06_r02.cdf",
			pattern: "sep-anc", kind: KindScience, instrument: "sep", level: "l2", descriptor: "anc",
			timetag: time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC), version: 6, revision: 2, ext: "cdf",
		},
		{
			name: "euv hhmm without separator", file: "mvn_euv_l3_daily_201501011230_v01_r01.cdf",
			pattern: "euv", kind: KindScience, instrument: "euv", level: "l3", descriptor: "daily",
			timetag: time.Date(2015, 1, 1, 12, 30, 0, 0, time.UTC), version: 1, revision: 1, ext: "cdf",
		},
		{
			name: "euv l2b by orbit", file: "mvn_euv_l2b_orbit_01000_v14_r02.sav",
			pattern: "euv-l2b", kind: KindScience, instrument: "euv", level: "l2b", descriptor: "orbit",
			timetag: time.Date(2015, 4, 10, 6, 30, 15, 0, time.UTC), version: 14, revision: 2, ext: "sav",
			check: func(t *testing.T, s *Science) {
				if s.Orbit == nil || *s.Orbit != 1000 {
					t.Errorf("orbit = %v", s.Orbit)
				}
			},
		},
		{
			name: "euv flare", file: "mvn_euv_flare_20150311_1622_m1.6.png",
			pattern: "euv-flare", kind: KindScience, instrument: "euv", level: "l2", descriptor: "flare",
			timetag: time.Date(2015, 3, 11, 16, 22, 0, 0, time.UTC), version: 1, revision: 0, ext: "png",
			check: func(t *testing.T, s *Science) {
				if s.FlareClass != "m1.6" {
					t.Errorf("flare class = %q", s.FlareClass)
				}
			},
		},
		{
			name: "euv flare catalog", file: "mvn_euv_flare_catalog_2016.txt",
			pattern: "euv-flare-catalog", kind: KindScience, instrument: "euv", level: "l2", descriptor: "flare-catalog",
			timetag: time.Date(2016, 1, 1, 0, 0, 0, 0, time.UTC), version: 1, revision: 0, ext: "txt",
		},
		{
			name: "euv l4 day of year", file: "mvn_euv_l4_daily_2016060_v01_r03.cdf",
			pattern: "euv-l4", kind: KindScience, instrument: "euv", level: "l4", descriptor: "daily",
			timetag: time.Date(2016, 2, 29, 0, 0, 0, 0, time.UTC), version: 1, revision: 3, ext: "cdf",
		},
		{
			name: "key parameters", file: "mvn_kp_insitu_20150101_v01_r01.tab",
			pattern: "kp", kind: KindScience, instrument: "kp", level: "kp", descriptor: "insitu",
			timetag: time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC), version: 1, revision: 1, ext: "tab",
		},
		{
			name: "key parameters with descriptor", file: "mvn_kp_iuvs_01234_20150101T030000_v02_r00.tab",
			pattern: "kp", kind: KindScience, instrument: "kp", level: "kp", descriptor: "iuvs-01234",
			timetag: time.Date(2015, 1, 1, 3, 0, 0, 0, time.UTC), version: 2, revision: 0, ext: "tab",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := mustScience(t, r, tt.file)
			if s.Pattern != tt.pattern || s.Kind != tt.kind {
				t.Errorf("pattern/kind = %s/%s, want %s/%s", s.Pattern, s.Kind, tt.pattern, tt.kind)
			}
			if s.Instrument != tt.instrument || s.Level != tt.level || s.Descriptor != tt.descriptor {
				t.Errorf("instrument/level/descriptor = %s/%s/%s, want %s/%s/%s",
					s.Instrument, s.Level, s.Descriptor, tt.instrument, tt.level, tt.descriptor)
			}
			if !s.Timetag.Equal(tt.timetag) {
				t.Errorf("timetag = %v, want %v", s.Timetag, tt.timetag)
			}
			if s.Version != tt.version || s.Revision != tt.revision {
				t.Errorf("version/revision = %d/%d, want %d/%d", s.Version, s.Revision, tt.version, tt.revision)
			}
			if s.FileExtension != tt.ext {
				t.Errorf("extension = %s, want %s", s.FileExtension, tt.ext)
			}
			if tt.check != nil {
				tt.check(t, s)
			}
		})
	}
}

func TestClassifyL0(t *testing.T) {
	r := NewRegistry(nil)
	parsed, err := r.Classify("/data/l0/mvn_pfp_all_l0_20150107_v002.dat")
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	l0, ok := parsed.(*L0)
	if !ok {
		t.Fatalf("got %T, want *L0", parsed)
	}
	if l0.Family() != FamilyL0 {
		t.Errorf("family = %v", l0.Family())
	}
	if l0.Instrument != "pfp" || l0.Grouping != "all" || l0.Level != "l0" || l0.Version != 2 {
		t.Errorf("l0 = %+v", l0)
	}
	if !l0.Timetag.Equal(time.Date(2015, 1, 7, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("timetag = %v", l0.Timetag)
	}
	if l0.AbsoluteVersion() != 2 {
		t.Errorf("absolute version = %d", l0.AbsoluteVersion())
	}
}

func TestClassifyAncillaryVariants(t *testing.T) {
	r := NewRegistry(testLookup())
	day := func(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }

	tests := []struct {
		name    string
		file    string
		pattern string
		base    string
		product string
		start   time.Time
		end     *time.Time
		version *int
		ext     string
	}{
		{
			name: "engineering with start only", file: "mvn_eng_pwr_20150101.csv", pattern: "eng",
			base: "mvn", product: "pwr", start: day(2015, 1, 1), ext: "csv",
		},
		{
			name: "engineering span and version", file: "mvn_eng_thrm_20150101_20150107_v3.txt", pattern: "eng",
			base: "mvn", product: "thrm", start: day(2015, 1, 1), end: ptr(day(2015, 1, 7)), version: ptr(3), ext: "txt",
		},
		{
			name: "four digit year doy", file: "sci_anc_tls2015_032_060_v2.drf", pattern: "anc-yyyy-doy",
			base: "sci", product: "tls", start: day(2015, 2, 1), end: ptr(day(2015, 3, 1)), version: ptr(2), ext: "drf",
		},
		{
			name: "yymmdd kernel", file: "mvn_app_rel_141104_141110_v01.bc", pattern: "anc-yymmdd",
			base: "mvn", product: "app_rel", start: day(2014, 11, 4), end: ptr(day(2014, 11, 10)), version: ptr(1), ext: "bc",
		},
		{
			name: "yyyymmdd kernel", file: "trj_orb_20150101_20150201_v2.bsp", pattern: "anc-yyyymmdd",
			base: "trj", product: "orb", start: day(2015, 1, 1), end: ptr(day(2015, 2, 1)), version: ptr(2), ext: "bsp",
		},
		{
			name: "orbit span", file: "trj_orb_01000_01001_v1.orb", pattern: "anc-orbit",
			base: "trj", product: "orb",
			start:   time.Date(2015, 4, 10, 6, 30, 15, 0, time.UTC),
			end:     ptr(time.Date(2015, 4, 10, 11, 5, 0, 0, time.UTC)),
			version: ptr(1), ext: "orb",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := mustAncillary(t, r, tt.file)
			if a.Pattern != tt.pattern || a.Base != tt.base || a.Product != tt.product {
				t.Errorf("pattern/base/product = %s/%s/%s, want %s/%s/%s",
					a.Pattern, a.Base, a.Product, tt.pattern, tt.base, tt.product)
			}
			if !a.StartDate.Equal(tt.start) {
				t.Errorf("start = %v, want %v", a.StartDate, tt.start)
			}
			switch {
			case tt.end == nil && a.EndDate != nil:
				t.Errorf("end = %v, want nil", *a.EndDate)
			case tt.end != nil && (a.EndDate == nil || !a.EndDate.Equal(*tt.end)):
				t.Errorf("end = %v, want %v", a.EndDate, *tt.end)
			}
			switch {
			case tt.version == nil && a.Version != nil:
				t.Errorf("version = %d, want nil", *a.Version)
			case tt.version != nil && (a.Version == nil || *a.Version != *tt.version):
				t.Errorf("version = %v, want %d", a.Version, *tt.version)
			}
			if a.FileExtension != tt.ext {
				t.Errorf("extension = %s, want %s", a.FileExtension, tt.ext)
			}
			if a.EndDate != nil && a.EndDate.Before(a.StartDate) {
				t.Errorf("end %v precedes start %v", *a.EndDate, a.StartDate)
			}
		})
	}
}

func ptr[T any](v T) *T { return &v }

func TestClassifyRejects(t *testing.T) {
	r := NewRegistry(testLookup())

	tests := []struct {
		name string
		file string
	}{
		{name: "empty", file: ""},
		{name: "random text", file: "README.md"},
		{name: "month 13", file: "mvn_mag_l2_20151301_v01_r01.sts"},
		{name: "february 30", file: "mvn_mag_l2_20150230_v01_r01.sts"},
		{name: "hour 25", file: "mvn_mag_l2_20150101T250000_v01_r01.sts"},
		{name: "day of year 366 in common year", file: "sci_anc_eps15_366_001.drf"},
		{name: "day of year zero", file: "sci_anc_eps15_000_010.drf"},
		{name: "unknown orbit", file: "mvn_euv_l2b_orbit_09999_v14_r02.sav"},
		{name: "unknown orbit span", file: "trj_orb_01000_09999_v1.orb"},
		{name: "revision too large", file: "mvn_mag_l2_20150101_v01_r1000.sts"},
		{name: "version overflow", file: "mvn_mag_l2_20150101_v99999999999999999999999_r01.sts"},
		{name: "missing revision", file: "mvn_mag_l2_20150101_v01.sts"},
		{name: "engineering end before start", file: "mvn_eng_pwr_20150107_20150101.csv"},
		{name: "temporary file", file: ".mvn_mag_l2_20150101_v01_r01.sts.swp"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parsed, err := r.Classify(tt.file)
			if !errors.Is(err, ErrUnrecognized) {
				t.Errorf("Classify(%q) = %#v, %v; want ErrUnrecognized", tt.file, parsed, err)
			}
			if parsed != nil {
				t.Errorf("Classify(%q) returned a value with an error", tt.file)
			}
			if r.Recognizes(tt.file) {
				t.Errorf("Recognizes(%q) = true", tt.file)
			}
		})
	}
}

func TestFallThroughToLaterPattern(t *testing.T) {
	rejectAll := newPattern("reject", GroupAncillary, FamilyAncillary, `^(?P<name>.+)$`, []string{"name"},
		func(c captures, _ orbit.Lookup) (Parsed, error) {
			return nil, errors.New("rejected " + c.str("name"))
		})
	standard := standardPatterns()
	// Listed last, but its group sorts it ahead of the science patterns.
	r := NewRegistryWith(nil, append(standard, rejectAll))

	index := map[string]int{}
	for i, p := range r.Patterns() {
		index[p.Name()] = i
	}
	if index["reject"] != index["anc-orbit"]+1 || index["reject"] > index["metadata"] {
		t.Fatalf("reject pattern at %d, anc-orbit at %d, metadata at %d", index["reject"], index["anc-orbit"], index["metadata"])
	}
	s := mustScience(t, r, "mvn_mag_l2_20150101_v01_r01.sts")
	if s.Pattern != "science" {
		t.Errorf("pattern = %s, want science", s.Pattern)
	}
}

func TestEUVPatternPrecedesGenericScience(t *testing.T) {
	r := NewRegistry(nil)
	s := mustScience(t, r, "mvn_euv_l2_bands_20150101T000000_v01_r01.cdf")
	if s.Pattern != "euv" {
		t.Errorf("pattern = %s, want euv", s.Pattern)
	}
}

func TestClassifyIgnoresDirectory(t *testing.T) {
	r := NewRegistry(nil)
	a, err := r.Classify("mvn_mag_l2_20150101_v01_r01.sts")
	if err != nil {
		t.Fatal(err)
	}
	b, err := r.Classify("/maven/data/sci/mag/l2/2015/01/mvn_mag_l2_20150101_v01_r01.sts")
	if err != nil {
		t.Fatal(err)
	}
	if a.(*Science).Timetag != b.(*Science).Timetag {
		t.Error("directory components changed the result")
	}
}

func TestRegistryOrder(t *testing.T) {
	r := NewRegistry(nil)
	patterns := r.Patterns()
	if len(patterns) == 0 {
		t.Fatal("no patterns")
	}
	for i := 1; i < len(patterns); i++ {
		if patterns[i].Group() < patterns[i-1].Group() {
			t.Errorf("pattern %s (%s) after %s (%s)", patterns[i].Name(), patterns[i].Group(),
				patterns[i-1].Name(), patterns[i-1].Group())
		}
	}
	if patterns[0].Name() != "eng" || patterns[len(patterns)-1].Name() != "science" {
		t.Errorf("first/last = %s/%s", patterns[0].Name(), patterns[len(patterns)-1].Name())
	}
	for _, p := range patterns {
		if p.Expr() == "" || len(p.Groups()) == 0 {
			t.Errorf("pattern %s has no expression or groups", p.Name())
		}
	}
}

func TestNewPatternPanicsOnMissingGroup(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for undeclared group")
		}
	}()
	newPattern("broken", GroupScience, FamilyScience, `^(?P<a>x)$`, []string{"a", "b"}, nil)
}

// Every input terminates with exactly one of a value or ErrUnrecognized.
func TestClassifyTotality(t *testing.T) {
	r := NewRegistry(testLookup())
	rng := rand.New(rand.NewSource(42))
	alphabet := "mvn_sciaeuvl0123456789Ttrgz.-"
	seeds := []string{
		"mvn_ins_l1a_p_20200101_v01_r00.cdf",
		"sci_anc_eps14_365_001.drf",
		"mvn_euv_flare_20150311_1622_m1.6.png",
		"mvn_pfp_all_l0_20150107_v002.dat",
	}

	for i := 0; i < 5000; i++ {
		var name string
		if i%2 == 0 {
			var b strings.Builder
			n := rng.Intn(48)
			for j := 0; j < n; j++ {
				b.WriteByte(alphabet[rng.Intn(len(alphabet))])
			}
			name = b.String()
		} else {
			seed := []byte(seeds[rng.Intn(len(seeds))])
			seed[rng.Intn(len(seed))] = alphabet[rng.Intn(len(alphabet))]
			name = string(seed)
		}

		parsed, err := r.Classify(name)
		if (parsed == nil) == (err == nil) {
			t.Fatalf("Classify(%q) = %v, %v: want exactly one of value or error", name, parsed, err)
		}
		if err != nil && !errors.Is(err, ErrUnrecognized) {
			t.Fatalf("Classify(%q) error %v is not ErrUnrecognized", name, err)
		}
	}
}

func TestFamilyAndGroupStrings(t *testing.T) {
	if FamilyScience.String() != "science" || FamilyL0.String() != "l0" || FamilyAncillary.String() != "ancillary" {
		t.Error("unexpected family names")
	}
	if Family(9).String() != "unknown" || Group(42).String() != "unknown" {
		t.Error("out of range values should be unknown")
	}
	if GroupAncillaryEngineering.String() != "ancillary-engineering" || GroupScience.String() != "science" {
		t.Error("unexpected group names")
	}
}
