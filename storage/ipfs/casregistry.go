package ipfs

import (
	"flag"
	"os"
	"strings"
	"time"

	"xdao.co/ratewire/storage"
	"xdao.co/ratewire/storage/casregistry"
)

var (
	flagBin     string
	flagPath    string
	flagTimeout time.Duration
)

func init() {
	casregistry.MustRegister(casregistry.Backend{
		Name:        "ipfs",
		Description: "Kubo CLI block store (shells out to the ipfs binary)",
		Usage:       casregistry.UsageCLI,
		RegisterFlags: func(fs *flag.FlagSet) {
			fs.StringVar(&flagBin, "ipfs-bin", "", "Path to the ipfs binary (for --backend=ipfs); default looks up \"ipfs\" in PATH")
			fs.StringVar(&flagPath, "ipfs-path", "", "IPFS repo directory, exported as IPFS_PATH (for --backend=ipfs)")
			fs.DurationVar(&flagTimeout, "ipfs-timeout", 30*time.Second, "Per-command timeout for the ipfs binary; 0 disables (for --backend=ipfs)")
		},
		Open: func() (storage.CAS, func() error, error) {
			opts := Options{Bin: strings.TrimSpace(flagBin), Timeout: flagTimeout}
			if p := strings.TrimSpace(flagPath); p != "" {
				opts.Env = append(os.Environ(), "IPFS_PATH="+p)
			}
			return New(opts), nil, nil
		},
	})
}
