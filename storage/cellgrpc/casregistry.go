package cellgrpc

import (
	"errors"
	"flag"
	"strings"
	"time"

	"xdao.co/ratewire/storage"
	"xdao.co/ratewire/storage/casregistry"
)

var (
	flagTarget      string
	flagDialTimeout time.Duration
	flagRPCTimeout  time.Duration
	flagMaxMsgBytes int
)

func openFromFlags() (storage.CAS, func() error, error) {
	target := strings.TrimSpace(flagTarget)
	if target == "" {
		return nil, nil, errors.New("missing --grpc-target")
	}
	client, err := Dial(target, DialOptions{Timeout: flagDialTimeout, MaxMsgBytes: flagMaxMsgBytes})
	if err != nil {
		return nil, nil, err
	}
	client.Timeout = flagRPCTimeout
	return client, client.Close, nil
}

func init() {
	casregistry.MustRegister(casregistry.Backend{
		Name:        "grpc",
		Description: "remote CellStore client (xdao-cellgrpcd)",
		Usage:       casregistry.UsageCLI,
		RegisterFlags: func(fs *flag.FlagSet) {
			fs.StringVar(&flagTarget, "grpc-target", "", "CellStore server host:port (for --backend=grpc)")
			fs.DurationVar(&flagDialTimeout, "grpc-dial-timeout", 5*time.Second, "gRPC dial timeout (used with --backend=grpc)")
			fs.DurationVar(&flagRPCTimeout, "grpc-timeout", 0, "Per-RPC timeout; 0 means none (for --backend=grpc)")
			fs.IntVar(&flagMaxMsgBytes, "grpc-max-msg-bytes", 0, "Cap on gRPC message size in bytes; 0 uses grpc defaults")
		},
		Open: openFromFlags,
	})
}
