package sqlite

import (
	"flag"
	"fmt"

	"xdao.co/ledger/storage"
	"xdao.co/ledger/storage/registry"
)

var flagPath string

func init() {
	registry.MustRegister(registry.Backend{
		Name:        "sqlite",
		Description: "SQLite database file (WAL)",
		Durable:     true,
		RegisterFlags: func(fs *flag.FlagSet) {
			fs.StringVar(&flagPath, "sqlite-path", "", "SQLite database path (for --backend=sqlite)")
		},
		Open: func() (storage.Store, error) {
			if flagPath == "" {
				return nil, fmt.Errorf("--sqlite-path is required")
			}
			return Open(flagPath)
		},
	})
}
