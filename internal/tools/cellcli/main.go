package main

import (
	"flag"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/ipfs/go-cid"

	"xdao.co/ratewire/model"
	"xdao.co/ratewire/storage"
	"xdao.co/ratewire/storage/casregistry"

	_ "xdao.co/ratewire/storage/cellgrpc"
	_ "xdao.co/ratewire/storage/ipfs"
	_ "xdao.co/ratewire/storage/localfs"
)

// cellcli is the walkthrough companion for the cell store: put a block, read
// it back, probe existence, or run a full chain resolution against any
// registered backend. Anything beyond that belongs in xdao-ratewire.

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

var subcommands = map[string]func(args []string, out, errOut io.Writer) int{
	"put":     cmdPut,
	"get":     cmdGet,
	"has":     cmdHas,
	"resolve": cmdResolve,
}

func run(args []string, out, errOut io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(errOut, usageText)
		return 2
	}
	name := args[0]
	if name == "help" || name == "-h" || name == "--help" {
		fmt.Fprint(out, usageText)
		return 0
	}
	cmd, ok := subcommands[name]
	if !ok {
		fmt.Fprintf(errOut, "unknown command: %s\n\n", name)
		fmt.Fprint(errOut, usageText)
		return 2
	}
	return cmd(args[1:], out, errOut)
}

const usageText = `cellcli: minimal cell store tool for walkthroughs

Usage:
  cellcli put [backend flags] <file>
  cellcli get [backend flags] --cid <cid> [--out <file>]
  cellcli has [backend flags] --cid <cid>
  cellcli resolve [backend flags] --chain <cid> --publishers <cid> --at <unix> [--mode strict|permissive]

Backends (select with --backend, list with --list-backends):
  localfs   --localfs-dir <dir>        defaults to $XDAO_RATEWIRE_HOME/cas
  ipfs      --ipfs-path <repo>         shells out to the local Kubo 'ipfs' CLI
  grpc      --grpc-target <host:port>  talks to xdao-cellgrpcd

Blocks are stored raw (CIDv1, sha2-256). 'has' exits 0 when the block is
present and 1 when it is not.
`

type commonFlags struct {
	backend      string
	listBackends bool
}

func newCommandSet(name string, errOut io.Writer) (*flag.FlagSet, *commonFlags) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(errOut)
	common := &commonFlags{}
	fs.StringVar(&common.backend, "backend", "localfs", "CAS backend name")
	fs.BoolVar(&common.listBackends, "list-backends", false, "List the storage backends linked into this binary")
	casregistry.RegisterFlags(fs, casregistry.UsageCLI)
	return fs, common
}

// parse runs fs over args and services --list-backends. When the bool is
// false the command is already finished and the int is its exit code.
func (c *commonFlags) parse(fs *flag.FlagSet, args []string, out io.Writer) (bool, int) {
	if err := fs.Parse(args); err != nil {
		return false, 2
	}
	if c.listBackends {
		for _, b := range casregistry.List(casregistry.UsageCLI) {
			if b.Description == "" {
				fmt.Fprintln(out, b.Name)
				continue
			}
			fmt.Fprintf(out, "%s\t%s\n", b.Name, b.Description)
		}
		return false, 0
	}
	return true, 0
}

// open opens the selected backend. The returned closer is never nil.
func (c *commonFlags) open(errOut io.Writer) (storage.CAS, func() error, bool) {
	cas, closeFn, err := casregistry.Open(c.backend, casregistry.UsageCLI)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return nil, nil, false
	}
	if closeFn == nil {
		closeFn = func() error { return nil }
	}
	return cas, closeFn, true
}

func cmdPut(args []string, out, errOut io.Writer) int {
	fs, common := newCommandSet("put", errOut)
	if ok, code := common.parse(fs, args, out); !ok {
		return code
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(errOut, "usage: cellcli put [backend flags] <file>")
		return 2
	}

	p := fs.Arg(0)
	b, err := os.ReadFile(p)
	if err != nil {
		fmt.Fprintf(errOut, "read %s: %v\n", filepath.Base(p), err)
		return 1
	}

	cas, closeFn, ok := common.open(errOut)
	if !ok {
		return 1
	}
	defer closeFn()

	id, err := cas.Put(b)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	fmt.Fprintln(out, id.String())
	return 0
}

func parseCIDFlag(cidStr string, errOut io.Writer) (cid.Cid, bool) {
	if cidStr == "" {
		fmt.Fprintln(errOut, "missing --cid")
		return cid.Undef, false
	}
	id, err := cid.Decode(cidStr)
	if err != nil {
		fmt.Fprintln(errOut, storage.ErrInvalidCID)
		return cid.Undef, false
	}
	return id, true
}

func cmdGet(args []string, out, errOut io.Writer) int {
	fs, common := newCommandSet("get", errOut)
	var cidStr, outPath string
	fs.StringVar(&cidStr, "cid", "", "CID to fetch")
	fs.StringVar(&outPath, "out", "", "Write to a file instead of stdout")

	if ok, code := common.parse(fs, args, out); !ok {
		return code
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(errOut, "usage: cellcli get [backend flags] --cid <cid> [--out <file>]")
		return 2
	}
	id, ok := parseCIDFlag(cidStr, errOut)
	if !ok {
		return 2
	}

	cas, closeFn, ok := common.open(errOut)
	if !ok {
		return 1
	}
	defer closeFn()

	b, err := cas.Get(id)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	if outPath == "" {
		_, _ = out.Write(b)
		return 0
	}
	if err := os.WriteFile(outPath, b, 0o600); err != nil {
		fmt.Fprintf(errOut, "write %s: %v\n", outPath, err)
		return 1
	}
	return 0
}

func cmdHas(args []string, out, errOut io.Writer) int {
	fs, common := newCommandSet("has", errOut)
	var cidStr string
	fs.StringVar(&cidStr, "cid", "", "CID to probe")

	if ok, code := common.parse(fs, args, out); !ok {
		return code
	}
	id, ok := parseCIDFlag(cidStr, errOut)
	if !ok {
		return 2
	}

	cas, closeFn, ok := common.open(errOut)
	if !ok {
		return 1
	}
	defer closeFn()

	if !cas.Has(id) {
		fmt.Fprintln(out, "absent")
		return 1
	}
	fmt.Fprintln(out, "present")
	return 0
}

func cmdResolve(args []string, out, errOut io.Writer) int {
	fs, common := newCommandSet("resolve", errOut)
	var chainCID, publishersCID, mode string
	var at uint64
	fs.StringVar(&chainCID, "chain", "", "Signed chain CID")
	fs.StringVar(&publishersCID, "publishers", "", "Publisher set CID")
	fs.Uint64Var(&at, "at", 0, "Evaluation instant (unix seconds)")
	fs.StringVar(&mode, "mode", "strict", "Compliance mode (strict or permissive)")

	if ok, code := common.parse(fs, args, out); !ok {
		return code
	}
	if chainCID == "" || publishersCID == "" || at == 0 {
		fmt.Fprintln(errOut, "usage: cellcli resolve [backend flags] --chain <cid> --publishers <cid> --at <unix> [--mode strict|permissive]")
		return 2
	}
	if at > math.MaxUint32 {
		fmt.Fprintln(errOut, "--at does not fit in 32 bits")
		return 2
	}

	var complianceMode model.ComplianceMode
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "strict":
		complianceMode = model.ComplianceStrict
	case "permissive":
		complianceMode = model.CompliancePermissive
	default:
		fmt.Fprintln(errOut, "invalid --mode")
		return 2
	}

	cas, closeFn, ok := common.open(errOut)
	if !ok {
		return 1
	}
	defer closeFn()

	req := model.ResolverRequest{
		Chain:      model.BlobRef{CID: chainCID},
		Publishers: model.BlobRef{CID: publishersCID},
		At:         uint32(at),
		Compliance: complianceMode,
	}
	resp, err := model.ResolveAndRenderReceipt(req, model.ResolveOptions{CAS: cas})
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}

	_, _ = out.Write(resp.Receipt.Bytes)
	fmt.Fprintf(errOut, "Receipt-CID: %s\n", resp.Receipt.CID)
	return 0
}
