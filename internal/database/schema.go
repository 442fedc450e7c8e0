package database

import "strings"

// schema uses {{id}} for the surrogate key column and {{int}} for 64-bit
// integers. Times are stored as unix seconds.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS science_files (
		id {{id}},
		file_name TEXT NOT NULL UNIQUE,
		directory_path TEXT NOT NULL,
		file_size {{int}} NOT NULL CHECK (file_size >= 0),
		mod_date {{int}} NOT NULL,
		kind TEXT NOT NULL,
		instrument TEXT NOT NULL,
		level TEXT NOT NULL,
		data_grouping TEXT NOT NULL DEFAULT '',
		descriptor TEXT NOT NULL DEFAULT '',
		plan TEXT NOT NULL DEFAULT '',
		orbit {{int}},
		mode TEXT NOT NULL DEFAULT '',
		data_type TEXT NOT NULL DEFAULT '',
		flare_class TEXT NOT NULL DEFAULT '',
		timetag {{int}} NOT NULL,
		version {{int}} NOT NULL CHECK (version >= 0),
		revision {{int}} NOT NULL CHECK (revision >= 0),
		absolute_version {{int}} NOT NULL,
		file_extension TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_science_directory ON science_files(directory_path)`,
	`CREATE INDEX IF NOT EXISTS idx_science_product ON science_files(instrument, level, descriptor, timetag)`,
	`CREATE INDEX IF NOT EXISTS idx_science_absolute_version ON science_files(absolute_version)`,

	`CREATE TABLE IF NOT EXISTS ancillary_files (
		id {{id}},
		file_name TEXT NOT NULL,
		directory_path TEXT NOT NULL,
		file_size {{int}} NOT NULL CHECK (file_size >= 0),
		mod_date {{int}} NOT NULL,
		base_name TEXT NOT NULL,
		product TEXT NOT NULL,
		start_date {{int}} NOT NULL,
		end_date {{int}},
		version {{int}} NOT NULL DEFAULT 0 CHECK (version >= 0),
		file_extension TEXT NOT NULL,
		UNIQUE (file_name, directory_path),
		CHECK (end_date IS NULL OR start_date <= end_date)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_ancillary_directory ON ancillary_files(directory_path)`,
	`CREATE INDEX IF NOT EXISTS idx_ancillary_product ON ancillary_files(base_name, product, start_date)`,

	`CREATE TABLE IF NOT EXISTS status (
		id {{id}},
		component TEXT NOT NULL,
		event TEXT NOT NULL,
		job_id TEXT NOT NULL,
		summary TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		recorded_at {{int}} NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_status_component ON status(component, recorded_at)`,

	`CREATE TABLE IF NOT EXISTS orbit_perigees (
		orbit_number {{int}} PRIMARY KEY,
		perigee {{int}} NOT NULL
	)`,
}

type migration struct {
	table      string
	column     string
	definition string
	backfill   string
}

// migrations run in order after the schema statements.
var migrations = []migration{
	{
		table:      "science_files",
		column:     "compressed",
		definition: "{{int}} NOT NULL DEFAULT 0",
		backfill:   "UPDATE science_files SET compressed = 1 WHERE file_name LIKE '%.gz'",
	},
}

func schemaStatements(d dialect) []string {
	out := make([]string, len(schema))
	r := strings.NewReplacer("{{id}}", d.idColumn, "{{int}}", d.intType)
	for i, stmt := range schema {
		out[i] = r.Replace(stmt)
	}
	return out
}
