package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"sdc-indexer/internal/orbit"
	"sdc-indexer/internal/pattern"
)

// Classification is one line of classify output.
type Classification struct {
	Name   string         `json:"name"`
	Family string         `json:"family,omitempty"`
	Parsed pattern.Parsed `json:"parsed,omitempty"`
	Error  string         `json:"error,omitempty"`
}

func (a *app) classifyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "classify <names...>",
		Short: "Print how file names are classified",
		Long: `Classify each name (or the base name of each path) and print one JSON
object per line. Orbit-numbered names resolve against --orbit-file when one
is given. Exits 1 if any name is unrecognized.`,
		Args: cobra.MinimumNArgs(1),
		RunE: a.runClassify,
	}
}

func (a *app) runClassify(cmd *cobra.Command, args []string) error {
	lookup := orbit.None
	if path := a.orbitFile(cmd); path != "" {
		static, err := readOrbitFile(path)
		if err != nil {
			return err
		}
		lookup = static
	}
	registry := pattern.NewRegistry(lookup)

	enc := json.NewEncoder(a.stdout)
	unrecognized := 0
	for _, arg := range args {
		name := filepath.Base(arg)
		c := Classification{Name: name}
		parsed, err := registry.Classify(name)
		if err != nil {
			unrecognized++
			c.Error = err.Error()
		} else {
			c.Family = parsed.Family().String()
			c.Parsed = parsed
		}
		if err := enc.Encode(c); err != nil {
			return err
		}
	}

	if unrecognized > 0 {
		return &ExitError{Code: 1, Err: fmt.Errorf("%d of %d name(s) unrecognized", unrecognized, len(args))}
	}
	return nil
}

// orbitFile returns --orbit-file, falling back to the configuration.
func (a *app) orbitFile(cmd *cobra.Command) string {
	if cmd.Flags().Changed("orbit-file") {
		return a.flags.orbitFile
	}
	if config, err := a.loadConfig(cmd, false); err == nil {
		return config.OrbitFile
	}
	return ""
}

func readOrbitFile(path string) (orbit.Static, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open orbit file: %w", err)
	}
	defer f.Close()

	rows, err := orbit.ParseFile(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return orbit.NewStatic(rows), nil
}
