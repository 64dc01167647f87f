package ipfs

import (
	"time"

	"github.com/spf13/pflag"

	"xdao.co/ipld/storage"
	"xdao.co/ipld/storage/registry"
)

var (
	flagBin     string
	flagPath    string
	flagOffline bool
	flagPin     bool
	flagTimeout time.Duration
)

func init() {
	registry.MustRegister(registry.Backend{
		Name:        "ipfs",
		Description: "Local Kubo repository via the ipfs CLI",
		Usage:       registry.UsageCLI | registry.UsageDaemon,
		RegisterFlags: func(fs *pflag.FlagSet) {
			fs.StringVar(&flagBin, "ipfs-bin", "ipfs", "Path to the ipfs binary (for --backend=ipfs)")
			fs.StringVar(&flagPath, "ipfs-path", "", "IPFS_PATH for the ipfs binary; empty uses the environment")
			fs.BoolVar(&flagOffline, "ipfs-offline", true, "Run ipfs with --offline so reads never touch the network")
			fs.BoolVar(&flagPin, "ipfs-pin", false, "Pin blocks as they are written")
			fs.DurationVar(&flagTimeout, "ipfs-timeout", 30*time.Second, "Per-command timeout; 0 disables it")
		},
		Open: func() (storage.Blockstore, func() error, error) {
			return New(Options{
				Bin:      flagBin,
				RepoPath: flagPath,
				Offline:  flagOffline,
				Pin:      flagPin,
				Timeout:  flagTimeout,
			}), nil, nil
		},
	})
}
