package kv

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rcrowley/go-metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	perfCmd = &cobra.Command{
		Use:     "perf",
		Short:   "Performance testing tool for a birch store",
		RunE:    runPerf,
		PreRunE: processPerfConfig,
	}
	perfKeyPrefix   = "__test"
	perfOps         = 10000
	perfValueSizeKB = 1
	perfKeySpread   = 100
	perfSkip        = make([]string, 0)
)

func init() {
	// add flags
	key := "ops"
	perfCmd.Flags().Int(key, 10000, "Number of operations per benchmark")
	key = "value-size"
	perfCmd.Flags().Int(key, 1, "Size of the values to write (in KB)")
	key = "keys"
	perfCmd.Flags().Int(key, 100, "How many different keys to use for the tests")
	key = "skip"
	perfCmd.Flags().String(key, "", "Benchmarks to skip (comma separated - e.g. set,get)")
}

func processPerfConfig(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// Read the configuration from the command line flags and environment variables
	perfOps = viper.GetInt("ops")
	perfValueSizeKB = viper.GetInt("value-size")
	perfKeySpread = viper.GetInt("keys")
	perfSkip = strings.Split(viper.GetString("skip"), ",")

	return nil
}

func runPerf(_ *cobra.Command, _ []string) error {

	fmt.Println("Performance testing tool for birch stores")

	// Print configuration
	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Printf("Operations per benchmark: %d\n", perfOps)
	fmt.Printf("Value size: %d KB\n", perfValueSizeKB)
	fmt.Printf("Key spread: %d\n", perfKeySpread)
	fmt.Println()

	fmt.Println("starting tests...")

	registry := metrics.NewRegistry()
	value := make([]byte, perfValueSizeKB*1024)

	if !shouldSkip("set") {
		tmr := metrics.GetOrRegisterTimer("set", registry)
		for i := 0; i < perfOps; i++ {
			key := perfKey(i)
			start := time.Now()
			if err := store.Set(key, value); err != nil {
				return fmt.Errorf("(set) - error setting key: %w", err)
			}
			tmr.UpdateSince(start)
		}
	}

	if !shouldSkip("get") {
		tmr := metrics.GetOrRegisterTimer("get", registry)
		for i := 0; i < perfOps; i++ {
			key := perfKey(i)
			start := time.Now()
			if _, _, err := store.Get(key); err != nil {
				return fmt.Errorf("(get) - error reading key: %w", err)
			}
			tmr.UpdateSince(start)
		}
	}

	if !shouldSkip("mixed") {
		tmr := metrics.GetOrRegisterTimer("mixed", registry)
		for i := 0; i < perfOps; i++ {
			key := perfKey(i)
			start := time.Now()
			if i%3 == 0 {
				if err := store.Set(key, value); err != nil {
					return fmt.Errorf("(mixed) - error setting key: %w", err)
				}
			} else {
				if _, _, err := store.Get(key); err != nil {
					return fmt.Errorf("(mixed) - error reading key: %w", err)
				}
			}
			tmr.UpdateSince(start)
		}
	}

	// cleanup the test keys again
	for i := 0; i < perfKeySpread; i++ {
		if err := store.Remove(perfKey(i)); err != nil {
			fmt.Fprintf(os.Stderr, "(cleanup) - error removing key: %v\n", err)
		}
	}

	fmt.Println()
	fmt.Println("Results:")
	metrics.WriteOnce(registry, os.Stdout)

	return nil
}

// perfKey maps a loop counter onto the configured key spread
func perfKey(i int) string {
	return fmt.Sprintf("%s-%d", perfKeyPrefix, i%perfKeySpread)
}

// shouldSkip checks whether a benchmark was listed in the skip flag
func shouldSkip(name string) bool {
	for _, s := range perfSkip {
		if strings.TrimSpace(s) == name {
			return true
		}
	}
	return false
}
