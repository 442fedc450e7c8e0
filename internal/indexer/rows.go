package indexer

import (
	"context"
	"fmt"

	"sdc-indexer/internal/database"
	"sdc-indexer/internal/filesystem"
	"sdc-indexer/internal/pattern"
)

// ScienceRow builds the catalog row for a classified science-family file.
func ScienceRow(p *pattern.Science, e filesystem.Entry) database.ScienceRow {
	return database.ScienceRow{
		FileName:        e.Name(),
		DirectoryPath:   e.Dir(),
		FileSize:        e.Size,
		ModDate:         e.ModTime,
		Kind:            string(p.Kind),
		Instrument:      p.Instrument,
		Level:           p.Level,
		Descriptor:      p.Descriptor,
		Plan:            p.Plan,
		Orbit:           p.Orbit,
		Mode:            p.Mode,
		DataType:        p.DataType,
		FlareClass:      p.FlareClass,
		Timetag:         p.Timetag,
		Version:         p.Version,
		Revision:        p.Revision,
		AbsoluteVersion: p.AbsoluteVersion(),
		FileExtension:   p.FileExtension,
		Compressed:      p.Compressed,
	}
}

// L0Row builds the catalog row for a classified level-0 file.
func L0Row(p *pattern.L0, e filesystem.Entry) database.ScienceRow {
	return database.ScienceRow{
		FileName:        e.Name(),
		DirectoryPath:   e.Dir(),
		FileSize:        e.Size,
		ModDate:         e.ModTime,
		Kind:            "l0",
		Instrument:      p.Instrument,
		Level:           p.Level,
		Grouping:        p.Grouping,
		Timetag:         p.Timetag,
		Version:         p.Version,
		AbsoluteVersion: p.AbsoluteVersion(),
		FileExtension:   "dat",
	}
}

// AncillaryRow builds the catalog row for a classified ancillary file.
func AncillaryRow(p *pattern.Ancillary, e filesystem.Entry) database.AncillaryRow {
	return database.AncillaryRow{
		FileName:      e.Name(),
		DirectoryPath: e.Dir(),
		FileSize:      e.Size,
		ModDate:       e.ModTime,
		BaseName:      p.Base,
		Product:       p.Product,
		StartDate:     p.StartDate,
		EndDate:       p.EndDate,
		Version:       p.VersionOrZero(),
		FileExtension: p.FileExtension,
	}
}

// batch groups rows by target family so each family is written with one
// gateway call.
type batch struct {
	science   []database.ScienceRow
	l0        []database.ScienceRow
	ancillary []database.AncillaryRow
}

func (b *batch) add(p pattern.Parsed, e filesystem.Entry) {
	switch v := p.(type) {
	case *pattern.Science:
		b.science = append(b.science, ScienceRow(v, e))
	case *pattern.L0:
		b.l0 = append(b.l0, L0Row(v, e))
	case *pattern.Ancillary:
		b.ancillary = append(b.ancillary, AncillaryRow(v, e))
	}
}

func (b *batch) len() int {
	return len(b.science) + len(b.l0) + len(b.ancillary)
}

// write upserts every row of the batch. Counts and recoverable failures of
// the families written so far are returned along with any fatal error.
func (b *batch) write(ctx context.Context, catalog Catalog, rec database.RecoverableFunc) (database.UpsertResult, error) {
	var total database.UpsertResult

	if len(b.science) > 0 {
		res, err := catalog.UpsertScience(ctx, b.science, rec)
		total.Merge(res)
		if err != nil {
			return total, fmt.Errorf("science: %w", err)
		}
	}
	if len(b.l0) > 0 {
		res, err := catalog.UpsertL0(ctx, b.l0, rec)
		total.Merge(res)
		if err != nil {
			return total, fmt.Errorf("l0: %w", err)
		}
	}
	if len(b.ancillary) > 0 {
		res, err := catalog.UpsertAncillary(ctx, b.ancillary, rec)
		total.Merge(res)
		if err != nil {
			return total, fmt.Errorf("ancillary: %w", err)
		}
	}
	return total, nil
}
