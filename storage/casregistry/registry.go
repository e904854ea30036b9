package casregistry

import (
	"flag"
	"fmt"
	"io"
	"sort"
	"sync"

	"xdao.co/ratewire/storage"
)

// Backend describes one linkable CAS implementation.
//
// A backend package registers itself from init():
//
//	casregistry.MustRegister(casregistry.Backend{ ... })
//
// so a binary opts in to a backend by importing its package for effect.
type Backend struct {
	Name        string
	Description string
	Usage       Usage

	// RegisterFlags contributes the backend's flags to fs. It can run more
	// than once, against distinct FlagSets: once for the command line and
	// once per config-driven open.
	RegisterFlags func(fs *flag.FlagSet)

	// Open builds the CAS from whatever RegisterFlags parsed, returning an
	// optional close function.
	Open func() (storage.CAS, func() error, error)
}

func (b Backend) validate() error {
	switch {
	case b.Name == "":
		return fmt.Errorf("casregistry: backend has no name")
	case b.RegisterFlags == nil:
		return fmt.Errorf("casregistry: backend %q lacks RegisterFlags", b.Name)
	case b.Open == nil:
		return fmt.Errorf("casregistry: backend %q lacks Open", b.Name)
	case b.Usage == 0:
		return fmt.Errorf("casregistry: backend %q lacks Usage", b.Name)
	}
	return nil
}

type registry struct {
	mu       sync.RWMutex
	backends map[string]Backend
}

var reg = &registry{backends: map[string]Backend{}}

func (r *registry) add(b Backend) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.backends[b.Name]; exists {
		return fmt.Errorf("casregistry: backend %q registered twice", b.Name)
	}
	r.backends[b.Name] = b
	return nil
}

func (r *registry) matching(usage Usage) []Backend {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Backend, 0, len(r.backends))
	for _, b := range r.backends {
		if b.Usage.allows(usage) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (r *registry) lookup(name string, usage Usage) (Backend, error) {
	r.mu.RLock()
	b, ok := r.backends[name]
	r.mu.RUnlock()
	if !ok {
		return Backend{}, fmt.Errorf("unknown backend %q", name)
	}
	if !b.Usage.allows(usage) {
		return Backend{}, fmt.Errorf("backend %q is not linked into this binary", name)
	}
	return b, nil
}

// Register registers a backend.
func Register(b Backend) error {
	if err := b.validate(); err != nil {
		return err
	}
	return reg.add(b)
}

// MustRegister is like Register but panics on error.
func MustRegister(b Backend) {
	if err := Register(b); err != nil {
		panic(err)
	}
}

// List returns the backends registered for usage, in name order.
func List(usage Usage) []Backend {
	return reg.matching(usage)
}

// Names is List reduced to the backend names.
func Names(usage Usage) []string {
	bs := reg.matching(usage)
	n := make([]string, 0, len(bs))
	for _, b := range bs {
		n = append(n, b.Name)
	}
	return n
}

// RegisterFlags contributes every matching backend's flags to fs.
//
// All backends register up front because package flag fails on the first
// name it does not recognize.
func RegisterFlags(fs *flag.FlagSet, usage Usage) {
	for _, b := range reg.matching(usage) {
		b.RegisterFlags(fs)
	}
}

// Open builds the named backend's CAS, failing when the name is unknown or
// registered for a different usage.
func Open(name string, usage Usage) (storage.CAS, func() error, error) {
	b, err := reg.lookup(name, usage)
	if err != nil {
		return nil, nil, err
	}
	return b.Open()
}

// OpenWithConfig opens the named backend with flag values supplied as a map
// instead of the command line. Keys are the backend's flag names without
// leading dashes (e.g. "localfs-dir").
//
// The values are applied through a private FlagSet, so they land in the same
// variables the backend's Open reads. Unknown keys are rejected.
func OpenWithConfig(name string, usage Usage, config map[string]string) (storage.CAS, func() error, error) {
	b, err := reg.lookup(name, usage)
	if err != nil {
		return nil, nil, err
	}

	fs := flag.NewFlagSet("casregistry:"+name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	b.RegisterFlags(fs)

	keys := make([]string, 0, len(config))
	for k := range config {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := fs.Set(k, config[k]); err != nil {
			return nil, nil, fmt.Errorf("casregistry: backend %q config %q: %w", name, k, err)
		}
	}
	return b.Open()
}
