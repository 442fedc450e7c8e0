package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"sdc-indexer/internal/logging"
)

func (a *app) loadOrbitsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "load-orbits <file>",
		Short: "Import an orbit perigee table into the catalog",
		Long: `Read "orbit_number perigee_utc" lines and store them in the catalog's
orbit table, replacing existing rows for the same orbits. Ancillary files
named by orbit range take their dates from this table.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := a.loadConfig(cmd, false)
			if err != nil {
				return err
			}

			db, err := openCatalog(cmd.Context(), config)
			if err != nil {
				return err
			}
			defer closeCatalog(db)

			n, err := loadOrbitFile(cmd.Context(), db, args[0])
			if err != nil {
				return err
			}
			logging.Info("Loaded %d orbit(s) from %s", n, args[0])
			_, err = fmt.Fprintf(a.stdout, "%d\n", n)
			return err
		},
	}
}
