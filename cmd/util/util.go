package util

import (
	"fmt"
	"strings"

	"github.com/birch-kv/birch/lib/codec"
	"github.com/birch-kv/birch/lib/kv"
	"github.com/birch-kv/birch/lib/kv/engines/cask"
	"github.com/birch-kv/birch/lib/logger"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50
)

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		wordWidth := len(word)

		// Check if we need to wrap
		if lineWidth > 0 && lineWidth+1+wordWidth > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}

		// Add space before word (if not first word on line)
		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}

		// Add the word
		currentLine.WriteString(word)
		lineWidth += wordWidth
	}

	// Add any remaining text
	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}

	return strings.Join(wrappedLines, "\n")
}

// InitConfig initializes configuration from environment variables
func InitConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix("birch")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}

// BindCommandFlags binds a command's flags to viper, including the
// persistent flags inherited from the root command
func BindCommandFlags(cmd *cobra.Command) error {
	if err := viper.BindPFlags(cmd.Root().PersistentFlags()); err != nil {
		return err
	}
	return viper.BindPFlags(cmd.Flags())
}

// InitLoggers applies the configured log level to all loggers
func InitLoggers() error {
	level, err := logger.ParseLevel(viper.GetString("log-level"))
	if err != nil {
		return err
	}
	logger.SetLevelAll(level)
	return nil
}

// GetCodec creates a record codec based on configuration
func GetCodec() (codec.ICodec, error) {
	switch viper.GetString("codec") {
	case "binary":
		return codec.NewBinaryCodec(), nil
	case "gob":
		return codec.NewGOBCodec(), nil
	case "json":
		return codec.NewJSONCodec(), nil
	default:
		return nil, fmt.Errorf("invalid codec %s", viper.GetString("codec"))
	}
}

// OpenStore opens the configured store. The cask engine is constructed with
// the full set of tuning flags; any other registered engine is opened through
// its registry factory with its own defaults.
func OpenStore() (kv.IStore, error) {
	path := viper.GetString("path")

	engine := viper.GetString("engine")
	if engine == cask.EngineName {
		c, err := GetCodec()
		if err != nil {
			return nil, err
		}
		return cask.Open(path, &cask.Options{
			Codec:            c,
			CompactThreshold: viper.GetUint64("compact-threshold"),
			FlushBuffer:      viper.GetInt("flush-buffer") * 1024,
		})
	}

	factory, err := kv.GetEngine(engine)
	if err != nil {
		return nil, err
	}
	return factory(path)
}
