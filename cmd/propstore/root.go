package main

import (
	"fmt"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/shotline/propstore/internal/store"
)

// rootFlags holds global flag values accessible to all subcommands.
type rootFlags struct {
	server     string
	job        string
	root       string
	owner      string
	configFile string
	verbose    bool
}

var flags rootFlags

// newRootCmd creates the top-level "propstore" command with global flags
// and all subcommands registered.
func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "propstore",
		Short: "Inspect and edit an item's property database",
		Long: "Propstore manages the per-item SQLite property databases of the\n" +
			"asset pipeline: typed values keyed by path-like source identifiers.",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if flags.verbose {
				zlog.Logger = zlog.Logger.Level(zerolog.DebugLevel)
			}
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.server, "server", "", "item server path segment")
	pf.StringVar(&flags.job, "job", "", "item job path segment")
	pf.StringVar(&flags.root, "root", "", "item root path segment")
	pf.StringVar(&flags.owner, "owner", "cli", "connection owner label")
	pf.StringVar(&flags.configFile, "config", "", "config file (YAML)")
	pf.BoolVar(&flags.verbose, "verbose", false, "enable debug logging")

	root.AddCommand(newInitCmd())
	root.AddCommand(newGetCmd())
	root.AddCommand(newSetCmd())
	root.AddCommand(newRowCmd())
	root.AddCommand(newCopyCmd())
	root.AddCommand(newInfoCmd())

	return root
}

// openStore acquires the store for the item named by the global flags.
// The caller owns the returned registry and should EvictAll when done.
func openStore() (*store.Registry, *store.Store, error) {
	if flags.server == "" || flags.job == "" || flags.root == "" {
		return nil, nil, fmt.Errorf("--server, --job and --root are required")
	}
	cfg, err := loadConfig(flags.configFile)
	if err != nil {
		return nil, nil, err
	}
	reg := store.NewRegistry(cfg, store.NewNotifier())
	st, err := reg.Acquire(flags.server, flags.job, flags.root, flags.owner, false)
	if err != nil {
		return nil, nil, err
	}
	return reg, st, nil
}
