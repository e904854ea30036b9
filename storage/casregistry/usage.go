package casregistry

// Usage gates which binaries may open a backend.
//
// Backends are compiled in, not loaded at runtime: each registers itself from
// init() and a binary enables it with a blank import. The gate keeps
// CLI-only adapters (such as the shell-out IPFS one) from being opened by the
// long-running daemon even when both happen to be linked in.
type Usage uint8

const (
	UsageCLI Usage = 1 << iota
	UsageDaemon
)

func (u Usage) allows(want Usage) bool { return u&want != 0 }
