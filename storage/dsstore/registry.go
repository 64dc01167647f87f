package dsstore

import (
	"github.com/spf13/pflag"

	"xdao.co/ipld/storage"
	"xdao.co/ipld/storage/registry"
)

func init() {
	registry.MustRegister(registry.Backend{
		Name:          "memory",
		Description:   "In-memory datastore (contents are lost on exit)",
		Usage:         registry.UsageCLI | registry.UsageDaemon,
		RegisterFlags: func(*pflag.FlagSet) {},
		Open: func() (storage.Blockstore, func() error, error) {
			s := NewMemory()
			return s, s.Close, nil
		},
	})
}
