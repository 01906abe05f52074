package registry

import (
	"bytes"
	"errors"
	"flag"
	"strings"
	"testing"

	"xdao.co/ledger/model"
	"xdao.co/ledger/storage"
)

type nopStore struct{ storage.Store }

func TestRegisterAndOpen(t *testing.T) {
	var dir string
	err := Register(Backend{
		Name:        "test-backend",
		Description: "scratch store",
		Durable:     true,
		RegisterFlags: func(fs *flag.FlagSet) {
			fs.StringVar(&dir, "test-backend-dir", "", "dir")
		},
		Open: func() (storage.Store, error) { return nopStore{}, nil },
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	dup := Backend{Name: "test-backend", RegisterFlags: func(*flag.FlagSet) {}, Open: func() (storage.Store, error) { return nil, nil }}
	if err := Register(dup); !model.IsCode(err, model.CodeInvalidConfig) {
		t.Fatalf("duplicate registration: expected %s, got %v", model.CodeInvalidConfig, err)
	}
	if err := Register(Backend{Name: "incomplete"}); err == nil {
		t.Fatalf("expected incomplete backend to fail")
	}

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	RegisterFlags(fs)
	if err := fs.Parse([]string{"-test-backend-dir", "/tmp/x"}); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if dir != "/tmp/x" {
		t.Fatalf("flag not bound: %q", dir)
	}

	found := false
	for _, n := range Names() {
		if n == "test-backend" {
			found = true
		}
	}
	if !found {
		t.Fatalf("Names missing test-backend: %v", Names())
	}

	if _, err := Open("test-backend"); err != nil {
		t.Fatalf("Open: %v", err)
	}
	_, err = Open("nope")
	if !model.IsCode(err, model.CodeInvalidConfig) {
		t.Fatalf("unknown backend: expected %s, got %v", model.CodeInvalidConfig, err)
	}
	if !strings.Contains(err.Error(), "test-backend") {
		t.Fatalf("unknown backend error does not list linked stores: %v", err)
	}

	var table bytes.Buffer
	if err := WriteTable(&table); err != nil {
		t.Fatalf("WriteTable: %v", err)
	}
	var row []string
	for _, line := range strings.Split(table.String(), "\n") {
		if f := strings.Fields(line); len(f) > 0 && f[0] == "test-backend" {
			row = f
		}
	}
	if strings.Join(row, " ") != "test-backend durable scratch store" {
		t.Fatalf("table row missing: %q", table.String())
	}
}

func TestOpenFailureIsConfigurationError(t *testing.T) {
	cause := errors.New("disk full")
	MustRegister(Backend{
		Name:          "broken-backend",
		RegisterFlags: func(*flag.FlagSet) {},
		Open:          func() (storage.Store, error) { return nil, cause },
	})
	_, err := Open("broken-backend")
	if model.KindOf(err) != model.KindConfiguration || !errors.Is(err, cause) {
		t.Fatalf("expected a configuration error wrapping the cause, got %v", err)
	}
}
