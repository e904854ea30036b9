package casconfig

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"xdao.co/ratewire/storage"
	"xdao.co/ratewire/storage/casregistry"
)

// Package casconfig composes CAS backends from a JSON document instead of
// individual command-line flags. Binaries still choose which backends exist
// by blank-importing them; the config only selects and parameterizes
// registered ones.
//
// Document shape:
//
//	{
//	  "write_policy": "all",
//	  "backends": [
//	    {"name":"localfs", "config":{"localfs-dir":"/var/lib/ratewire/cas"}},
//	    {"name":"grpc", "id":"mirror", "config":{"grpc-target":"10.0.0.7:7411"}}
//	  ]
//	}
//
// Config keys mirror the backend's flag names.

// WritePolicy selects how writes fan out across multiple backends.
type WritePolicy string

const (
	// WriteFirst writes only to the first backend; reads fall back in
	// order. The zero value means WriteFirst.
	WriteFirst WritePolicy = "first"
	// WriteAll writes to every backend and requires all returned CIDs to
	// agree (storage.ReplicatingCAS).
	WriteAll WritePolicy = "all"
)

type Config struct {
	WritePolicy WritePolicy     `json:"write_policy,omitempty"`
	Backends    []BackendConfig `json:"backends"`
}

type BackendConfig struct {
	// Name is the registered backend to open ("localfs", "ipfs", "grpc").
	Name string `json:"name"`
	// ID labels this entry in per-backend CID reports and lets the same
	// backend appear twice. Empty means Name.
	ID     string            `json:"id,omitempty"`
	Config map[string]string `json:"config,omitempty"`
}

func (b BackendConfig) label() string {
	if b.ID != "" {
		return b.ID
	}
	return b.Name
}

func LoadFile(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, errors.New("casconfig: empty config path")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("casconfig: parse %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

func (p WritePolicy) validate() error {
	switch p {
	case "", WriteFirst, WriteAll:
		return nil
	}
	return fmt.Errorf("casconfig: write_policy %q is not recognized", p)
}

func (c Config) Validate() error {
	if len(c.Backends) == 0 {
		return errors.New("casconfig: config names no backends")
	}
	seen := make(map[string]struct{}, len(c.Backends))
	for _, b := range c.Backends {
		if b.Name == "" {
			return errors.New("casconfig: backend entry has no name")
		}
		label := b.label()
		if _, dup := seen[label]; dup {
			return fmt.Errorf("casconfig: backend id %q is used twice", label)
		}
		seen[label] = struct{}{}
	}
	return c.WritePolicy.validate()
}

// Open builds the composed CAS.
//
// A non-empty preferred names the backend (by id or name) that must come
// first, and therefore receive writes under WriteFirst.
func (c Config) Open(usage casregistry.Usage, preferred string) (storage.CAS, func() error, error) {
	if err := c.Validate(); err != nil {
		return nil, nil, err
	}
	ordered, err := c.orderedBackends(preferred)
	if err != nil {
		return nil, nil, err
	}

	var (
		named   []storage.NamedCAS
		closers []func() error
	)
	closeAll := func() error {
		var firstErr error
		for i := len(closers) - 1; i >= 0; i-- {
			if cerr := closers[i](); cerr != nil && firstErr == nil {
				firstErr = cerr
			}
		}
		return firstErr
	}
	for _, b := range ordered {
		cas, closeFn, oerr := casregistry.OpenWithConfig(b.Name, usage, b.Config)
		if oerr != nil {
			_ = closeAll()
			return nil, nil, fmt.Errorf("casconfig: open %q: %w", b.label(), oerr)
		}
		named = append(named, storage.NamedCAS{Name: b.label(), CAS: cas})
		if closeFn != nil {
			closers = append(closers, closeFn)
		}
	}

	if len(named) == 1 {
		return named[0].CAS, closeAll, nil
	}
	if c.WritePolicy == WriteAll {
		return storage.ReplicatingCAS{Backends: named}, closeAll, nil
	}
	adapters := make([]storage.CAS, len(named))
	for i, n := range named {
		adapters[i] = n.CAS
	}
	return storage.MultiCAS{Adapters: adapters}, closeAll, nil
}

// orderedBackends returns the backend list with preferred moved to the
// front. Order is otherwise preserved.
func (c Config) orderedBackends(preferred string) ([]BackendConfig, error) {
	ordered := append([]BackendConfig(nil), c.Backends...)
	if preferred == "" {
		return ordered, nil
	}
	for i, b := range ordered {
		if b.Name == preferred || b.ID == preferred {
			copy(ordered[1:i+1], ordered[:i])
			ordered[0] = b
			return ordered, nil
		}
	}
	return nil, fmt.Errorf("casconfig: preferred backend %q is not in the config", preferred)
}
