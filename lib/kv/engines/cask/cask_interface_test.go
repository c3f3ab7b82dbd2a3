package cask

import (
	"testing"

	"github.com/birch-kv/birch/lib/codec"
	"github.com/birch-kv/birch/lib/kv"
	kvtesting "github.com/birch-kv/birch/lib/kv/testing"
)

func Test(t *testing.T) {
	kvtesting.RunStoreTests(t, "Cask", func(dir string) (kv.IStore, error) {
		return Open(dir, nil)
	})
}

// The engine contract must hold no matter which codec writes the log.
func TestWithGOBCodec(t *testing.T) {
	kvtesting.RunStoreTests(t, "Cask/GOB", func(dir string) (kv.IStore, error) {
		opts := DefaultOptions()
		opts.Codec = codec.NewGOBCodec()
		return Open(dir, opts)
	})
}

func TestWithJSONCodec(t *testing.T) {
	kvtesting.RunStoreTests(t, "Cask/JSON", func(dir string) (kv.IStore, error) {
		opts := DefaultOptions()
		opts.Codec = codec.NewJSONCodec()
		return Open(dir, opts)
	})
}
