package localfs

import (
	"fmt"

	"github.com/spf13/pflag"

	"xdao.co/ipld/storage"
	"xdao.co/ipld/storage/registry"
)

var (
	flagLocalDir    string
	flagCompression string
)

func init() {
	registry.MustRegister(registry.Backend{
		Name:        "localfs",
		Description: "Local filesystem block store (directory)",
		Usage:       registry.UsageCLI | registry.UsageDaemon,
		RegisterFlags: func(fs *pflag.FlagSet) {
			fs.StringVar(&flagLocalDir, "localfs-dir", "", "Block directory (for --backend=localfs)")
			fs.StringVar(&flagCompression, "localfs-compression", "none", "Compression for new blocks: none, lz4 or zstd")
		},
		Open: func() (storage.Blockstore, func() error, error) {
			if flagLocalDir == "" {
				return nil, nil, fmt.Errorf("missing --localfs-dir")
			}
			c, err := ParseCompression(flagCompression)
			if err != nil {
				return nil, nil, err
			}
			s, err := New(flagLocalDir, WithCompression(c))
			return s, nil, err
		},
	})
}
