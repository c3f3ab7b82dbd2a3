package kv

import (
	"encoding/json"
	"fmt"
	"os"

	vmmetrics "github.com/VictoriaMetrics/metrics"
	"github.com/birch-kv/birch/lib/kv"
	"github.com/spf13/cobra"
)

// exitKeyNotFound is the dedicated exit status for removing an absent key,
// so scripts can tell it apart from generic failures (which exit 1).
const exitKeyNotFound = 2

var (
	setCmd = &cobra.Command{
		Use:   "set [key] [value]",
		Short: "Sets the value for a key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			value := args[1]
			if err := store.Set(key, []byte(value)); err != nil {
				return err
			} else {
				fmt.Println("set successfully")
			}
			return nil
		},
	}
	getCmd = &cobra.Command{
		Use:   "get [key]",
		Short: "Reads the value for a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			if value, found, err := store.Get(key); err != nil {
				return err
			} else if !found {
				fmt.Println("key not found")
			} else {
				fmt.Printf("%s\n", value)
			}
			return nil
		},
	}
	rmCmd = &cobra.Command{
		Use:   "rm [key]",
		Short: "Removes a key value pair",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			if err := store.Remove(key); err != nil {
				if kv.IsKind(err, kv.ErrKindKeyNotFound) {
					fmt.Fprintln(os.Stderr, "Key not found")
					_ = store.Close()
					os.Exit(exitKeyNotFound)
				}
				return err
			}
			fmt.Println("removed successfully")
			return nil
		},
	}
	compactCmd = &cobra.Command{
		Use:   "compact",
		Short: "Rewrites the log so it contains only live records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			before, err := store.GetInfo()
			if err != nil {
				return err
			}
			if err := store.Compact(); err != nil {
				return err
			}
			after, err := store.GetInfo()
			if err != nil {
				return err
			}
			fmt.Printf("compacted: %d -> %d bytes\n", before.SizeBytes, after.SizeBytes)
			return nil
		},
	}
	statsCmd = &cobra.Command{
		Use:   "stats",
		Short: "Prints metadata about the store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			info, err := store.GetInfo()
			if err != nil {
				return err
			}
			out, err := json.MarshalIndent(info, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))

			if dump, _ := cmd.Flags().GetBool("metrics"); dump {
				fmt.Println()
				vmmetrics.WritePrometheus(os.Stdout, false)
			}
			return nil
		},
	}
)

func init() {
	statsCmd.Flags().Bool("metrics", false, "additionally dump process metrics in Prometheus text format")
}
