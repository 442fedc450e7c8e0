package indexer

import (
	"context"

	"sdc-indexer/internal/database"
	"sdc-indexer/internal/filesystem"
	"sdc-indexer/internal/pattern"
)

// Catalog is the subset of the catalog gateway used by the indexer.
// *database.Database implements it.
type Catalog interface {
	UpsertScience(ctx context.Context, rows []database.ScienceRow, rec database.RecoverableFunc) (database.UpsertResult, error)
	UpsertL0(ctx context.Context, rows []database.ScienceRow, rec database.RecoverableFunc) (database.UpsertResult, error)
	UpsertAncillary(ctx context.Context, rows []database.AncillaryRow, rec database.RecoverableFunc) (database.UpsertResult, error)
	DeleteByPath(ctx context.Context, family pattern.Family, path string) (bool, error)
	CollectMetadata(ctx context.Context, prefix string) ([]filesystem.Entry, error)
}

var _ Catalog = (*database.Database)(nil)
