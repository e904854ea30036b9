package casregistry

import (
	"flag"
	"testing"

	"xdao.co/ratewire/storage"
	"xdao.co/ratewire/storage/testkit"
)

func registerTestBackend(t *testing.T, name string, usage Usage) *string {
	t.Helper()
	var dir string
	err := Register(Backend{
		Name:        name,
		Description: "test backend",
		Usage:       usage,
		RegisterFlags: func(fs *flag.FlagSet) {
			fs.StringVar(&dir, name+"-dir", "", "test dir")
		},
		Open: func() (storage.CAS, func() error, error) {
			return testkit.NewMemCAS(), nil, nil
		},
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	return &dir
}

func TestRegisterRejectsIncomplete(t *testing.T) {
	if err := Register(Backend{}); err == nil {
		t.Fatalf("expected error for empty backend")
	}
	if err := Register(Backend{Name: "x", Usage: UsageCLI}); err == nil {
		t.Fatalf("expected error for missing RegisterFlags")
	}
}

func TestRegisterRejectsDuplicate(t *testing.T) {
	registerTestBackend(t, "dup-backend", UsageCLI)
	err := Register(Backend{
		Name:          "dup-backend",
		Usage:         UsageCLI,
		RegisterFlags: func(fs *flag.FlagSet) {},
		Open:          func() (storage.CAS, func() error, error) { return nil, nil, nil },
	})
	if err == nil {
		t.Fatalf("expected duplicate registration error")
	}
}

func TestOpenHonorsUsage(t *testing.T) {
	registerTestBackend(t, "cli-only-backend", UsageCLI)
	if _, _, err := Open("cli-only-backend", UsageDaemon); err == nil {
		t.Fatalf("expected usage rejection")
	}
	cas, closeFn, err := Open("cli-only-backend", UsageCLI)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if cas == nil {
		t.Fatalf("expected CAS")
	}
	if closeFn != nil {
		_ = closeFn()
	}
}

func TestOpenUnknownBackend(t *testing.T) {
	if _, _, err := Open("no-such-backend", UsageCLI); err == nil {
		t.Fatalf("expected unknown backend error")
	}
}

func TestOpenWithConfigSetsFlagValues(t *testing.T) {
	dir := registerTestBackend(t, "cfg-backend", UsageCLI)
	_, _, err := OpenWithConfig("cfg-backend", UsageCLI, map[string]string{"cfg-backend-dir": "/tmp/blocks"})
	if err != nil {
		t.Fatalf("OpenWithConfig: %v", err)
	}
	if *dir != "/tmp/blocks" {
		t.Fatalf("config value not applied: %q", *dir)
	}

	if _, _, err := OpenWithConfig("cfg-backend", UsageCLI, map[string]string{"unknown-key": "x"}); err == nil {
		t.Fatalf("expected error for unknown config key")
	}
}
