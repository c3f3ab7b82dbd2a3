package cmd

import (
	"fmt"
	"os"

	"github.com/birch-kv/birch/cmd/kv"
	"github.com/birch-kv/birch/cmd/util"
	"github.com/spf13/cobra"
)

const (
	Version = "0.3.1"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "birch",
		Short: "persistent log-structured key-value store",
		Long: fmt.Sprintf(`birch (v%s)

A persistent, single-node key-value store written in Go. Data is kept in an
append-only command log on disk; an in-memory index of log offsets serves
reads, and automatic compaction reclaims space from superseded records.`, Version),
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of birch",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("birch v%s\n", Version)
		},
	}
)

func init() {
	// Add Commands
	RootCmd.AddCommand(kv.KeyValueCommands)
	RootCmd.AddCommand(versionCmd)

	// Add Flags
	key := "path"
	RootCmd.PersistentFlags().String(key, "birch_data/", util.WrapString("directory of the store"))
	key = "engine"
	RootCmd.PersistentFlags().String(key, "cask", util.WrapString("storage engine to use"))
	key = "codec"
	RootCmd.PersistentFlags().String(key, "binary", util.WrapString("record codec to use (binary, gob, json); must match the codec the log was written with"))
	key = "compact-threshold"
	RootCmd.PersistentFlags().Uint64(key, 1024, util.WrapString("number of dead records that triggers automatic compaction"))
	key = "flush-buffer"
	RootCmd.PersistentFlags().Int(key, 64, util.WrapString("write buffer size in KB; the buffer is flushed to disk once it fills up"))
	key = "log-level"
	RootCmd.PersistentFlags().String(key, "info", util.WrapString("log level (debug, info, warn, error)"))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
