// Package registry names the state stores a ledgerd binary can run on.
//
// Each store package adds itself from init(), so linking a store into
// ledgerd is a blank import of its package. The daemon then selects one
// with --backend and passes the store's own flags through the same flag set.
package registry

import (
	"flag"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"text/tabwriter"

	"xdao.co/ledger/model"
	"xdao.co/ledger/storage"
)

// Backend describes one node state store.
type Backend struct {
	Name        string
	Description string
	// Durable stores keep accounts, files and receipts across restarts.
	Durable bool

	// RegisterFlags adds the store's flags to fs. ledgerd calls it once,
	// before parsing, for every linked store.
	RegisterFlags func(fs *flag.FlagSet)

	// Open builds the store from its parsed flags. The node owns the result
	// and closes it on shutdown.
	Open func() (storage.Store, error)
}

var (
	mu       sync.RWMutex
	backends = map[string]Backend{}
)

// Register adds a store. Names are unique per binary.
func Register(b Backend) error {
	switch {
	case b.Name == "":
		return model.Errorf(model.CodeInvalidConfig, "store backend needs a name")
	case b.RegisterFlags == nil:
		return model.Errorf(model.CodeInvalidConfig, "store backend %q has no RegisterFlags", b.Name)
	case b.Open == nil:
		return model.Errorf(model.CodeInvalidConfig, "store backend %q has no Open", b.Name)
	}

	mu.Lock()
	defer mu.Unlock()
	if _, exists := backends[b.Name]; exists {
		return model.Errorf(model.CodeInvalidConfig, "store backend %q registered twice", b.Name)
	}
	backends[b.Name] = b
	return nil
}

// MustRegister is Register for init functions.
func MustRegister(b Backend) {
	if err := Register(b); err != nil {
		panic(err)
	}
}

// List returns the linked stores ordered by name.
func List() []Backend {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]Backend, 0, len(backends))
	for _, b := range backends {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func Names() []string {
	bs := List()
	n := make([]string, 0, len(bs))
	for _, b := range bs {
		n = append(n, b.Name)
	}
	return n
}

// RegisterFlags adds every linked store's flags to fs so the daemon parses
// its command line in one pass.
func RegisterFlags(fs *flag.FlagSet) {
	for _, b := range List() {
		b.RegisterFlags(fs)
	}
}

// Open builds the named store. Failures are InvalidConfig errors that list
// what the binary links.
func Open(name string) (storage.Store, error) {
	mu.RLock()
	b, ok := backends[name]
	mu.RUnlock()
	if !ok {
		return nil, model.Errorf(model.CodeInvalidConfig, "unknown store backend %q (linked: %s)", name, strings.Join(Names(), ", "))
	}
	s, err := b.Open()
	if err != nil {
		return nil, model.Wrap(model.CodeInvalidConfig, "open "+name+" store", err)
	}
	return s, nil
}

// WriteTable prints one line per linked store for --list-backends.
func WriteTable(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, b := range List() {
		durability := "volatile"
		if b.Durable {
			durability = "durable"
		}
		if _, err := fmt.Fprintf(tw, "%s\t%s\t%s\n", b.Name, durability, b.Description); err != nil {
			return err
		}
	}
	return tw.Flush()
}
