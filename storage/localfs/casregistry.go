package localfs

import (
	"flag"

	"xdao.co/ratewire/storage"
	"xdao.co/ratewire/storage/casregistry"
)

var flagDir string

func init() {
	casregistry.MustRegister(casregistry.Backend{
		Name:        "localfs",
		Description: "local filesystem CAS (directory of immutable objects)",
		Usage:       casregistry.UsageCLI | casregistry.UsageDaemon,
		RegisterFlags: func(fs *flag.FlagSet) {
			fs.StringVar(&flagDir, "localfs-dir", "", "object directory for --backend=localfs (default: $XDAO_RATEWIRE_HOME/cas or ~/.xdao/ratewire/cas)")
		},
		Open: func() (storage.CAS, func() error, error) {
			dir := flagDir
			if dir == "" {
				var err error
				dir, err = DefaultDirectory()
				if err != nil {
					return nil, nil, err
				}
			}
			cas, err := New(dir)
			return cas, nil, err
		},
	})
}
