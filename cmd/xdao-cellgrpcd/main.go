// Command xdao-cellgrpcd serves a CAS backend over the CellStore gRPC
// service, so remote clients can put and get canonical cell documents
// with server-side CID verification.
package main

import (
	"flag"
	"fmt"
	"net"
	"os"

	"google.golang.org/grpc"

	"xdao.co/ratewire/storage"
	"xdao.co/ratewire/storage/casconfig"
	"xdao.co/ratewire/storage/casregistry"
	"xdao.co/ratewire/storage/cellgrpc"

	_ "xdao.co/ratewire/storage/localfs"
)

func main() {
	fs := flag.NewFlagSet("xdao-cellgrpcd", flag.ExitOnError)

	var listen string
	var backend string
	var casConfig string
	var listBackends bool
	fs.StringVar(&listen, "listen", "127.0.0.1:7411", "TCP listen address")
	fs.StringVar(&backend, "backend", "", "CAS backend name (default localfs; with --cas-config, the preferred backend)")
	fs.StringVar(&casConfig, "cas-config", "", "JSON storage config composing one or more backends")
	fs.BoolVar(&listBackends, "list-backends", false, "List the storage backends linked into this binary")
	casregistry.RegisterFlags(fs, casregistry.UsageDaemon)

	_ = fs.Parse(os.Args[1:])

	if listBackends {
		for _, b := range casregistry.List(casregistry.UsageDaemon) {
			fmt.Printf("%s\t%s\n", b.Name, b.Description)
		}
		return
	}

	cas, closeFn, err := openCAS(backend, casConfig)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if closeFn != nil {
		defer closeFn()
	}

	lis, err := net.Listen("tcp", listen)
	if err != nil {
		fmt.Fprintf(os.Stderr, "listen %s: %v\n", listen, err)
		os.Exit(1)
	}

	s := grpc.NewServer()
	cellgrpc.RegisterCellStoreServer(s, &cellgrpc.Server{CAS: cas})

	fmt.Fprintf(os.Stderr, "xdao-cellgrpcd listening on %s\n", lis.Addr())
	if err := s.Serve(lis); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func openCAS(backend, casConfig string) (storage.CAS, func() error, error) {
	if casConfig != "" {
		cfg, err := casconfig.LoadFile(casConfig)
		if err != nil {
			return nil, nil, err
		}
		return cfg.Open(casregistry.UsageDaemon, backend)
	}
	if backend == "" {
		backend = "localfs"
	}
	return casregistry.Open(backend, casregistry.UsageDaemon)
}
