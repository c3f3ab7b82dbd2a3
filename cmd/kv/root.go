package kv

import (
	"github.com/birch-kv/birch/cmd/util"
	"github.com/birch-kv/birch/lib/kv"
	"github.com/spf13/cobra"
)

var (
	store kv.IStore

	// KeyValueCommands represents the KV command group
	KeyValueCommands = &cobra.Command{
		Use:               "kv",
		Short:             "Perform key-value store operations",
		PersistentPreRunE: setupStore,
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			if store == nil {
				return nil
			}
			return store.Close()
		},
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitConfig)

	// Add subcommands
	KeyValueCommands.AddCommand(setCmd)
	KeyValueCommands.AddCommand(getCmd)
	KeyValueCommands.AddCommand(rmCmd)
	KeyValueCommands.AddCommand(compactCmd)
	KeyValueCommands.AddCommand(statsCmd)
	KeyValueCommands.AddCommand(perfCmd)
}

// setupStore opens the configured store for the subcommand about to run
func setupStore(cmd *cobra.Command, _ []string) error {
	// Bind command flags to viper
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	if err := util.InitLoggers(); err != nil {
		return err
	}

	var err error
	store, err = util.OpenStore()
	return err
}
