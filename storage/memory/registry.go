package memory

import (
	"flag"

	"xdao.co/ledger/storage"
	"xdao.co/ledger/storage/registry"
)

func init() {
	registry.MustRegister(registry.Backend{
		Name:          "memory",
		Description:   "In-process state, lost on exit",
		RegisterFlags: func(*flag.FlagSet) {},
		Open: func() (storage.Store, error) {
			return New(), nil
		},
	})
}
