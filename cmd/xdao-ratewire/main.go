package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cloudflare/circl/sign/ed25519"
	"github.com/ipfs/go-cid"

	"xdao.co/ratewire/asset"
	"xdao.co/ratewire/keys"
	"xdao.co/ratewire/model"
	"xdao.co/ratewire/ratewire"
	"xdao.co/ratewire/receipt"
	"xdao.co/ratewire/storage"
	"xdao.co/ratewire/storage/casconfig"
	"xdao.co/ratewire/storage/casregistry"

	_ "xdao.co/ratewire/storage/cellgrpc"
	_ "xdao.co/ratewire/storage/ipfs"
	_ "xdao.co/ratewire/storage/localfs"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, in io.Reader, out, errOut io.Writer) int {
	if len(args) == 0 {
		printUsage(errOut)
		return 2
	}

	switch args[0] {
	case "asset":
		return cmdAsset(args[1:], in, out, errOut)
	case "payload":
		return cmdPayload(args[1:], in, out, errOut)
	case "chain":
		return cmdChain(args[1:], in, out, errOut)
	case "normalize":
		return cmdNormalize(args[1:], in, out, errOut)
	case "store":
		return cmdStore(args[1:], in, out, errOut)
	case "key":
		return cmdKey(args[1:], out, errOut)
	case "receipt":
		return cmdReceipt(args[1:], in, out, errOut)
	case "help", "-h", "--help":
		printUsage(out)
		return 0
	default:
		fmt.Fprintf(errOut, "unknown command: %s\n\n", args[0])
		printUsage(errOut)
		return 2
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "xdao-ratewire: rate announcement CLI")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  xdao-ratewire asset key < asset.json")
	fmt.Fprintln(w, "  xdao-ratewire asset parse <key>")
	fmt.Fprintln(w, "  xdao-ratewire payload encode|decode|digest|cid < doc.json")
	fmt.Fprintln(w, "  xdao-ratewire chain build (--seed-hex <64hex> | --signer <name> [--signer-role <role>] | --key-file <path>) < payloads.json")
	fmt.Fprintln(w, "  xdao-ratewire chain decode < boc.json")
	fmt.Fprintln(w, "  xdao-ratewire chain verify --key <publisher-key> [--key ...] < boc.json")
	fmt.Fprintln(w, "  xdao-ratewire normalize --target <asset-key> [--target ...] < payload.json")
	fmt.Fprintln(w, "  xdao-ratewire store put [--backend ...] <file>")
	fmt.Fprintln(w, "  xdao-ratewire store get [--backend ...] --cid <cid> [--out <file>]")
	fmt.Fprintln(w, "  xdao-ratewire store has [--backend ...] --cid <cid>")
	fmt.Fprintln(w, "  xdao-ratewire key init --name <name> [--seed-hex <64hex>] [--seal --passphrase-env <VAR>] [--force]")
	fmt.Fprintln(w, "  xdao-ratewire key derive --from <name> --role <role> [--passphrase-env <VAR>] [--force]")
	fmt.Fprintln(w, "  xdao-ratewire key list")
	fmt.Fprintln(w, "  xdao-ratewire key export --name <name> [--role <role>] [--passphrase-env <VAR>]")
	fmt.Fprintln(w, "  xdao-ratewire receipt verify [--require-signature] [<file>]")
	fmt.Fprintln(w, "  xdao-ratewire receipt cid <file>")
	fmt.Fprintln(w, "  xdao-ratewire receipt validate-supersession --new <file> --old <file>")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Notes:")
	fmt.Fprintln(w, "  - documents travel as JSON on stdin/stdout; diagnostics go to stderr")
	fmt.Fprintln(w, "  - boc.json carries canonical bag-of-cells bytes as lowercase hex: {\"boc\": \"...\"}")
	fmt.Fprintln(w, "  - --seed-hex takes a 32-byte ed25519 seed as 64 hex chars")
	fmt.Fprintln(w, "  - stored keys live under ~/.xdao/ratewire/keys/<name> (0600 seed files)")
	fmt.Fprintln(w, "  - exit codes: 0 ok, 1 failure, 2 usage")
}

type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }
func (s *stringList) Set(v string) error {
	v = strings.TrimSpace(v)
	if v == "" {
		return fmt.Errorf("empty value")
	}
	*s = append(*s, v)
	return nil
}

// bocDoc is the JSON envelope for canonical bag-of-cells bytes.
type bocDoc struct {
	BOC string `json:"boc"`
	CID string `json:"cid,omitempty"`
}

func decodeJSON(in io.Reader, v any) error {
	dec := json.NewDecoder(in)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func writeJSON(out io.Writer, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')
	_, err = out.Write(b)
	return err
}

func readPayloadJSON(in io.Reader, errOut io.Writer) (*ratewire.RatePayload, bool) {
	var dto model.RatePayload
	if err := decodeJSON(in, &dto); err != nil {
		fmt.Fprintf(errOut, "read payload: %v\n", err)
		return nil, false
	}
	p, err := model.PayloadToCore(dto)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return nil, false
	}
	return p, true
}

func readBOC(in io.Reader, errOut io.Writer) ([]byte, bool) {
	var doc bocDoc
	if err := decodeJSON(in, &doc); err != nil {
		fmt.Fprintf(errOut, "read boc: %v\n", err)
		return nil, false
	}
	b, err := hex.DecodeString(doc.BOC)
	if err != nil {
		fmt.Fprintf(errOut, "invalid boc hex: %v\n", err)
		return nil, false
	}
	return b, true
}

func cmdAsset(args []string, in io.Reader, out, errOut io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(errOut, "usage: xdao-ratewire asset <subcommand> ...")
		fmt.Fprintln(errOut, "subcommands: key, parse")
		return 2
	}
	switch args[0] {
	case "key":
		fs := flag.NewFlagSet("asset key", flag.ContinueOnError)
		fs.SetOutput(errOut)
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}
		if fs.NArg() != 0 {
			fmt.Fprintln(errOut, "usage: xdao-ratewire asset key < asset.json")
			return 2
		}
		var dto model.Asset
		if err := decodeJSON(in, &dto); err != nil {
			fmt.Fprintf(errOut, "read asset: %v\n", err)
			return 1
		}
		a, err := model.AssetToCore(dto)
		if err != nil {
			fmt.Fprintln(errOut, err)
			return 1
		}
		_ = writeJSON(out, struct {
			Key string `json:"key"`
		}{a.Key()})
		return 0
	case "parse":
		fs := flag.NewFlagSet("asset parse", flag.ContinueOnError)
		fs.SetOutput(errOut)
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}
		if fs.NArg() != 1 {
			fmt.Fprintln(errOut, "usage: xdao-ratewire asset parse <key>")
			return 2
		}
		a, err := asset.FromKey(fs.Arg(0))
		if err != nil {
			fmt.Fprintln(errOut, err)
			return 1
		}
		_ = writeJSON(out, model.AssetFromCore(a))
		return 0
	default:
		fmt.Fprintf(errOut, "unknown asset subcommand: %s\n", args[0])
		return 2
	}
}

func cmdPayload(args []string, in io.Reader, out, errOut io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(errOut, "usage: xdao-ratewire payload <subcommand> ...")
		fmt.Fprintln(errOut, "subcommands: encode, decode, digest, cid")
		return 2
	}
	fs := flag.NewFlagSet("payload "+args[0], flag.ContinueOnError)
	fs.SetOutput(errOut)
	if err := fs.Parse(args[1:]); err != nil {
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintf(errOut, "usage: xdao-ratewire payload %s < doc.json\n", args[0])
		return 2
	}

	switch args[0] {
	case "encode":
		p, ok := readPayloadJSON(in, errOut)
		if !ok {
			return 1
		}
		doc, err := ratewire.NewPayloadDocument(p)
		if err != nil {
			fmt.Fprintln(errOut, err)
			return 1
		}
		_ = writeJSON(out, bocDoc{BOC: hex.EncodeToString(doc.Bytes), CID: doc.CID})
		return 0
	case "decode":
		b, ok := readBOC(in, errOut)
		if !ok {
			return 1
		}
		p, err := ratewire.DecodePayload(b)
		if err != nil {
			fmt.Fprintln(errOut, err)
			return 1
		}
		_ = writeJSON(out, model.PayloadFromCore(p))
		return 0
	case "digest":
		p, ok := readPayloadJSON(in, errOut)
		if !ok {
			return 1
		}
		digest, err := p.Digest()
		if err != nil {
			fmt.Fprintln(errOut, err)
			return 1
		}
		_ = writeJSON(out, struct {
			Digest string `json:"digest"`
		}{hex.EncodeToString(digest)})
		return 0
	case "cid":
		p, ok := readPayloadJSON(in, errOut)
		if !ok {
			return 1
		}
		doc, err := ratewire.NewPayloadDocument(p)
		if err != nil {
			fmt.Fprintln(errOut, err)
			return 1
		}
		_ = writeJSON(out, struct {
			CID string `json:"cid"`
		}{doc.CID})
		return 0
	default:
		fmt.Fprintf(errOut, "unknown payload subcommand: %s\n", args[0])
		return 2
	}
}

func cmdChain(args []string, in io.Reader, out, errOut io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(errOut, "usage: xdao-ratewire chain <subcommand> ...")
		fmt.Fprintln(errOut, "subcommands: build, decode, verify")
		return 2
	}
	switch args[0] {
	case "build":
		return cmdChainBuild(args[1:], in, out, errOut)
	case "decode":
		fs := flag.NewFlagSet("chain decode", flag.ContinueOnError)
		fs.SetOutput(errOut)
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}
		if fs.NArg() != 0 {
			fmt.Fprintln(errOut, "usage: xdao-ratewire chain decode < boc.json")
			return 2
		}
		b, ok := readBOC(in, errOut)
		if !ok {
			return 1
		}
		chain, err := ratewire.DecodeChain(b)
		if err != nil {
			fmt.Fprintln(errOut, err)
			return 1
		}
		_ = writeJSON(out, model.ChainFromCore(chain))
		return 0
	case "verify":
		return cmdChainVerify(args[1:], in, out, errOut)
	default:
		fmt.Fprintf(errOut, "unknown chain subcommand: %s\n", args[0])
		return 2
	}
}

func cmdChainBuild(args []string, in io.Reader, out, errOut io.Writer) int {
	fs := flag.NewFlagSet("chain build", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var seedHex string
	var signerName string
	var signerRole string
	var keyFile string
	var passphraseEnv string
	var printPublisherKey bool

	fs.StringVar(&seedHex, "seed-hex", "", "ed25519 seed as 64 hex chars")
	fs.StringVar(&signerName, "signer", "", "Use a stored key by name (from 'xdao-ratewire key init')")
	fs.StringVar(&signerRole, "signer-role", "", "Role key to derive when signing via --signer")
	fs.StringVar(&keyFile, "key-file", "", "Path to a seed file (hex) created by 'xdao-ratewire key init/derive'")
	fs.StringVar(&passphraseEnv, "passphrase-env", "", "Environment variable holding the passphrase for sealed keys")
	fs.BoolVar(&printPublisherKey, "print-publisher-key", true, "Print Publisher-Key to stderr")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(errOut, "usage: xdao-ratewire chain build [signer flags] < payloads.json")
		return 2
	}
	switch {
	case seedHex == "" && signerName == "" && keyFile == "":
		fmt.Fprintln(errOut, "no signer given: pass --seed-hex, --signer, or --key-file")
		return 2
	case seedHex != "" && (signerName != "" || keyFile != ""):
		fmt.Fprintln(errOut, "--seed-hex conflicts with --signer and --key-file")
		return 2
	case signerName != "" && keyFile != "":
		fmt.Fprintln(errOut, "--signer conflicts with --key-file")
		return 2
	}
	passphrase, ok := passphraseFromEnv(passphraseEnv, errOut)
	if !ok {
		return 2
	}

	ks, ok := openKeyStore(errOut)
	if !ok {
		return 1
	}
	signer, err := ks.LoadSigner(seedHex, signerName, signerRole, keyFile, passphrase)
	if err != nil {
		fmt.Fprintf(errOut, "invalid signer: %v\n", err)
		return 2
	}
	if printPublisherKey {
		fmt.Fprintf(errOut, "Publisher-Key: %s\n", signer.PublisherKey())
	}

	var input struct {
		Payloads []model.RatePayload `json:"payloads"`
	}
	if err := decodeJSON(in, &input); err != nil {
		fmt.Fprintf(errOut, "read payloads: %v\n", err)
		return 1
	}
	if len(input.Payloads) == 0 {
		fmt.Fprintln(errOut, "missing payloads: provide at least one")
		return 2
	}
	corePayloads := make([]*ratewire.RatePayload, 0, len(input.Payloads))
	for i, dto := range input.Payloads {
		p, perr := model.PayloadToCore(dto)
		if perr != nil {
			fmt.Fprintf(errOut, "invalid payload[%d]: %v\n", i, perr)
			return 1
		}
		corePayloads = append(corePayloads, p)
	}

	chain, err := ratewire.BuildChain(context.Background(), corePayloads, signer)
	if err != nil {
		fmt.Fprintf(errOut, "build chain: %v\n", err)
		return 1
	}
	doc, err := ratewire.NewChainDocument(chain)
	if err != nil {
		fmt.Fprintf(errOut, "encode chain: %v\n", err)
		return 1
	}
	_ = writeJSON(out, bocDoc{BOC: hex.EncodeToString(doc.Bytes), CID: doc.CID})
	return 0
}

func cmdChainVerify(args []string, in io.Reader, out, errOut io.Writer) int {
	fs := flag.NewFlagSet("chain verify", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var publisherKeys stringList
	fs.Var(&publisherKeys, "key", "Publisher key allowed to sign nodes (repeatable)")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(errOut, "usage: xdao-ratewire chain verify --key <publisher-key> [--key ...] < boc.json")
		return 2
	}
	if len(publisherKeys) == 0 {
		fmt.Fprintln(errOut, "missing --key")
		return 2
	}
	for _, k := range publisherKeys {
		if _, err := keys.ParsePublisherKey(k); err != nil {
			fmt.Fprintf(errOut, "invalid --key %q: %v\n", k, err)
			return 2
		}
	}

	b, ok := readBOC(in, errOut)
	if !ok {
		return 1
	}
	chain, err := ratewire.DecodeChain(b)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}

	type nodeReport struct {
		Index      int    `json:"index"`
		Expiration uint32 `json:"expiration"`
		Verified   bool   `json:"verified"`
	}
	report := struct {
		Valid bool         `json:"valid"`
		Nodes []nodeReport `json:"nodes"`
	}{Valid: true, Nodes: []nodeReport{}}

	index := 0
	for node := chain; node != nil; node = node.Next() {
		digest, derr := node.Payload().Digest()
		verified := false
		if derr == nil {
			for _, k := range publisherKeys {
				if keys.VerifyDigest(k, digest, node.Signature()) == nil {
					verified = true
					break
				}
			}
		}
		if !verified {
			report.Valid = false
		}
		report.Nodes = append(report.Nodes, nodeReport{
			Index:      index,
			Expiration: node.Payload().Expiration(),
			Verified:   verified,
		})
		index++
	}

	_ = writeJSON(out, report)
	if !report.Valid {
		return 1
	}
	return 0
}

func cmdNormalize(args []string, in io.Reader, out, errOut io.Writer) int {
	fs := flag.NewFlagSet("normalize", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var targetKeys stringList
	fs.Var(&targetKeys, "target", "Target asset key (repeatable, e.g. 0, 1:<address>, 2:<id>)")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(errOut, "usage: xdao-ratewire normalize --target <asset-key> [--target ...] < payload.json")
		return 2
	}
	if len(targetKeys) == 0 {
		fmt.Fprintln(errOut, "missing --target")
		return 2
	}

	targets := make([]asset.Asset, 0, len(targetKeys))
	for _, k := range targetKeys {
		a, err := asset.FromKey(k)
		if err != nil {
			fmt.Fprintf(errOut, "invalid --target %q: %v\n", k, err)
			return 2
		}
		targets = append(targets, a)
	}
	var cmpErr error
	sort.SliceStable(targets, func(i, j int) bool {
		c, err := asset.Compare(targets[i], targets[j])
		if err != nil && cmpErr == nil {
			cmpErr = err
		}
		return c < 0
	})
	if cmpErr != nil {
		fmt.Fprintf(errOut, "targets are not orderable: %v\n", cmpErr)
		return 1
	}

	p, ok := readPayloadJSON(in, errOut)
	if !ok {
		return 1
	}
	normalized := ratewire.Normalize(p.Allocations(), targets)
	rebuilt, err := ratewire.NewRatePayload(p.Expiration(), normalized)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	_ = writeJSON(out, model.PayloadFromCore(rebuilt))
	return 0
}

type storeFlags struct {
	backend      string
	casConfig    string
	listBackends bool
}

func (c *storeFlags) add(fs *flag.FlagSet) {
	fs.StringVar(&c.backend, "backend", "", "CAS backend name (default localfs; with --cas-config, the preferred backend)")
	fs.StringVar(&c.casConfig, "cas-config", "", "JSON storage config composing one or more backends")
	fs.BoolVar(&c.listBackends, "list-backends", false, "List the storage backends linked into this binary")
	casregistry.RegisterFlags(fs, casregistry.UsageCLI)
}

func (c *storeFlags) open() (storage.CAS, func() error, error) {
	if c.casConfig != "" {
		cfg, err := casconfig.LoadFile(c.casConfig)
		if err != nil {
			return nil, nil, err
		}
		return cfg.Open(casregistry.UsageCLI, c.backend)
	}
	name := c.backend
	if name == "" {
		name = "localfs"
	}
	return casregistry.Open(name, casregistry.UsageCLI)
}

func printBackends(w io.Writer) {
	for _, b := range casregistry.List(casregistry.UsageCLI) {
		if b.Description == "" {
			_, _ = fmt.Fprintf(w, "%s\n", b.Name)
			continue
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\n", b.Name, b.Description)
	}
}

// parseStoreArgs parses a store subcommand's flags and handles
// --list-backends, which short-circuits the command.
func parseStoreArgs(fs *flag.FlagSet, common *storeFlags, args []string, out io.Writer) (handled bool, code int) {
	if err := fs.Parse(args); err != nil {
		return true, 2
	}
	if common.listBackends {
		printBackends(out)
		return true, 0
	}
	return false, 0
}

func cmdStore(args []string, in io.Reader, out, errOut io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(errOut, "usage: xdao-ratewire store <subcommand> ...")
		fmt.Fprintln(errOut, "subcommands: put, get, has")
		return 2
	}
	switch args[0] {
	case "put":
		return cmdStorePut(args[1:], in, out, errOut)
	case "get":
		return cmdStoreGet(args[1:], out, errOut)
	case "has":
		return cmdStoreHas(args[1:], out, errOut)
	default:
		fmt.Fprintf(errOut, "unknown store subcommand: %s\n", args[0])
		return 2
	}
}

func cmdStorePut(args []string, in io.Reader, out, errOut io.Writer) int {
	fs := flag.NewFlagSet("store put", flag.ContinueOnError)
	fs.SetOutput(errOut)
	var common storeFlags
	common.add(fs)
	if done, code := parseStoreArgs(fs, &common, args, out); done {
		return code
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(errOut, "usage: xdao-ratewire store put [common flags] <file> (use - for stdin)")
		return 2
	}

	var b []byte
	var err error
	if p := fs.Arg(0); p == "-" {
		b, err = io.ReadAll(in)
		if err != nil {
			fmt.Fprintf(errOut, "read stdin: %v\n", err)
			return 1
		}
	} else {
		b, err = os.ReadFile(p)
		if err != nil {
			fmt.Fprintf(errOut, "read %s: %v\n", filepath.Base(p), err)
			return 1
		}
	}

	cas, closeFn, err := common.open()
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	if closeFn != nil {
		defer closeFn()
	}

	id, err := cas.Put(b)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	_, _ = fmt.Fprintln(out, id.String())
	return 0
}

func cmdStoreGet(args []string, out, errOut io.Writer) int {
	fs := flag.NewFlagSet("store get", flag.ContinueOnError)
	fs.SetOutput(errOut)
	var common storeFlags
	common.add(fs)

	var cidStr, outPath string
	fs.StringVar(&cidStr, "cid", "", "CID to fetch")
	fs.StringVar(&outPath, "out", "", "Write to a file instead of stdout")

	if done, code := parseStoreArgs(fs, &common, args, out); done {
		return code
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(errOut, "usage: xdao-ratewire store get [common flags] --cid <cid> [--out <file>]")
		return 2
	}
	if cidStr == "" {
		fmt.Fprintln(errOut, "missing --cid")
		return 2
	}

	id, err := cid.Decode(cidStr)
	if err != nil {
		fmt.Fprintln(errOut, storage.ErrInvalidCID)
		return 1
	}

	cas, closeFn, err := common.open()
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	if closeFn != nil {
		defer closeFn()
	}

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

func cmdStoreHas(args []string, out, errOut io.Writer) int {
	fs := flag.NewFlagSet("store has", flag.ContinueOnError)
	fs.SetOutput(errOut)
	var common storeFlags
	common.add(fs)

	var cidStr string
	fs.StringVar(&cidStr, "cid", "", "CID to probe")

	if done, code := parseStoreArgs(fs, &common, args, out); done {
		return code
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(errOut, "usage: xdao-ratewire store has [common flags] --cid <cid>")
		return 2
	}
	if cidStr == "" {
		fmt.Fprintln(errOut, "missing --cid")
		return 2
	}

	id, err := cid.Decode(cidStr)
	if err != nil {
		fmt.Fprintln(errOut, storage.ErrInvalidCID)
		return 1
	}

	cas, closeFn, err := common.open()
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	if closeFn != nil {
		defer closeFn()
	}

	if cas.Has(id) {
		_, _ = fmt.Fprintln(out, "true")
		return 0
	}
	_, _ = fmt.Fprintln(out, "false")
	return 1
}

func passphraseFromEnv(envName string, errOut io.Writer) (string, bool) {
	if envName == "" {
		return "", true
	}
	v := os.Getenv(envName)
	if v == "" {
		fmt.Fprintf(errOut, "passphrase environment variable %s is empty or unset\n", envName)
		return "", false
	}
	return v, true
}

// openKeyStore opens the default key store, reporting failures to errOut.
func openKeyStore(errOut io.Writer) (*keys.KeyStore, bool) {
	ks, err := keys.CreateKeyStore("")
	if err != nil {
		fmt.Fprintf(errOut, "keys: %v\n", err)
		return nil, false
	}
	return ks, true
}

// requireKeyName validates a mandatory key identifier flag.
func requireKeyName(errOut io.Writer, flagName, value string) bool {
	if value == "" {
		fmt.Fprintf(errOut, "missing --%s\n", flagName)
		return false
	}
	if err := keys.CheckKeyName(value); err != nil {
		fmt.Fprintf(errOut, "invalid --%s: %v\n", flagName, err)
		return false
	}
	return true
}

func cmdKey(args []string, out, errOut io.Writer) int {
	if len(args) == 0 {
		printKeyUsage(errOut)
		return 2
	}
	sub, rest := args[0], args[1:]
	switch sub {
	case "init":
		return cmdKeyInit(rest, out, errOut)
	case "derive":
		return cmdKeyDerive(rest, out, errOut)
	case "list":
		return cmdKeyList(rest, out, errOut)
	case "export":
		return cmdKeyExport(rest, out, errOut)
	case "help", "-h", "--help":
		printKeyUsage(out)
		return 0
	}
	fmt.Fprintf(errOut, "key: unknown subcommand %q\n\n", sub)
	printKeyUsage(errOut)
	return 2
}

func printKeyUsage(w io.Writer) {
	fmt.Fprintln(w, "xdao-ratewire key: minimal local key management")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  xdao-ratewire key init --name <name> [--seed-hex <64hex>] [--seal --passphrase-env <VAR>] [--force]")
	fmt.Fprintln(w, "  xdao-ratewire key derive --from <name> --role <role> [--passphrase-env <VAR>] [--force]")
	fmt.Fprintln(w, "  xdao-ratewire key list")
	fmt.Fprintln(w, "  xdao-ratewire key export --name <name> [--role <role>] [--passphrase-env <VAR>]")
}

func cmdKeyInit(args []string, out, errOut io.Writer) int {
	fs := flag.NewFlagSet("key init", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var name string
	var seedHex string
	var seal bool
	var passphraseEnv string
	var force bool

	fs.StringVar(&name, "name", "", "Key name (directory under the key store)")
	fs.StringVar(&seedHex, "seed-hex", "", "Ed25519 seed as 64 hex chars; omit for a random seed")
	fs.BoolVar(&seal, "seal", false, "Seal the seed with a passphrase (requires --passphrase-env)")
	fs.StringVar(&passphraseEnv, "passphrase-env", "", "Environment variable holding the sealing passphrase")
	fs.BoolVar(&force, "force", false, "Overwrite existing key files")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if !requireKeyName(errOut, "name", name) {
		return 2
	}
	if seal && passphraseEnv == "" {
		fmt.Fprintln(errOut, "--seal requires --passphrase-env")
		return 2
	}
	passphrase, ok := passphraseFromEnv(passphraseEnv, errOut)
	if !ok {
		return 2
	}
	ks, ok := openKeyStore(errOut)
	if !ok {
		return 1
	}

	seed := make([]byte, ed25519.SeedSize)
	if seedHex != "" {
		s, derr := keys.ParseSeedHex(seedHex)
		if derr != nil {
			fmt.Fprintf(errOut, "invalid --seed-hex: %v\n", derr)
			return 2
		}
		seed = s
	} else if _, err := rand.Read(seed); err != nil {
		fmt.Fprintf(errOut, "rand: %v\n", err)
		return 1
	}

	var publisherKey, rootPath string
	var err error
	if seal {
		publisherKey, rootPath, err = ks.InitializeRootKeySealed(name, seed, passphrase, force)
	} else {
		publisherKey, rootPath, err = ks.InitializeRootKey(name, seed, force)
	}
	if err != nil {
		fmt.Fprintf(errOut, "write key: %v\n", err)
		return 1
	}
	fmt.Fprintf(out, "Created root key: %s\n", publisherKey)
	fmt.Fprintf(out, "Stored at: %s\n", rootPath)
	return 0
}

func cmdKeyDerive(args []string, out, errOut io.Writer) int {
	fs := flag.NewFlagSet("key derive", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var from string
	var role string
	var passphraseEnv string
	var force bool

	fs.StringVar(&from, "from", "", "Root key name")
	fs.StringVar(&role, "role", "", "Role identifier (e.g. publisher, auditor)")
	fs.StringVar(&passphraseEnv, "passphrase-env", "", "Environment variable holding the root key passphrase (sealed roots)")
	fs.BoolVar(&force, "force", false, "Overwrite existing key files")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if !requireKeyName(errOut, "from", from) {
		return 2
	}
	if role == "" {
		fmt.Fprintln(errOut, "missing --role")
		return 2
	}
	if err := keys.CheckRole(role); err != nil {
		fmt.Fprintf(errOut, "invalid --role: %v\n", err)
		return 2
	}
	passphrase, ok := passphraseFromEnv(passphraseEnv, errOut)
	if !ok {
		return 2
	}
	ks, ok := openKeyStore(errOut)
	if !ok {
		return 1
	}
	publisherKey, rolePath, err := ks.DeriveKeyFromRole(from, role, passphrase, force)
	if err != nil {
		fmt.Fprintf(errOut, "derive role key: %v\n", err)
		return 1
	}
	fmt.Fprintf(out, "Created role key: %s\n", publisherKey)
	fmt.Fprintf(out, "Stored at: %s\n", rolePath)
	return 0
}

func cmdKeyList(args []string, out, errOut io.Writer) int {
	fs := flag.NewFlagSet("key list", flag.ContinueOnError)
	fs.SetOutput(errOut)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	ks, ok := openKeyStore(errOut)
	if !ok {
		return 1
	}
	entries, err := ks.ListKeys()
	if err != nil {
		fmt.Fprintf(errOut, "list keys: %v\n", err)
		return 1
	}
	for _, e := range entries {
		suffix := ""
		if e.Sealed {
			suffix = " (sealed)"
		}
		fmt.Fprintf(out, "%s%s\n", e.Identifier, suffix)
		for _, r := range e.Roles {
			fmt.Fprintf(out, "  - %s\n", r)
		}
	}
	return 0
}

func cmdKeyExport(args []string, out, errOut io.Writer) int {
	fs := flag.NewFlagSet("key export", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var name string
	var role string
	var passphraseEnv string

	fs.StringVar(&name, "name", "", "Key name")
	fs.StringVar(&role, "role", "", "Optional role (if set, exports the derived role key)")
	fs.StringVar(&passphraseEnv, "passphrase-env", "", "Environment variable holding the root key passphrase (sealed roots)")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if !requireKeyName(errOut, "name", name) {
		return 2
	}
	if role != "" {
		if err := keys.CheckRole(role); err != nil {
			fmt.Fprintf(errOut, "invalid --role: %v\n", err)
			return 2
		}
	}
	passphrase, ok := passphraseFromEnv(passphraseEnv, errOut)
	if !ok {
		return 2
	}
	ks, ok := openKeyStore(errOut)
	if !ok {
		return 1
	}
	publisherKey, err := ks.ExportKey(name, role, passphrase)
	if err != nil {
		fmt.Fprintf(errOut, "export key: %v\n", err)
		return 1
	}
	_, _ = fmt.Fprintln(out, publisherKey)
	return 0
}

func cmdReceipt(args []string, in io.Reader, out, errOut io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(errOut, "usage: xdao-ratewire receipt <subcommand> ...")
		fmt.Fprintln(errOut, "subcommands: verify, cid, validate-supersession")
		return 2
	}
	switch args[0] {
	case "verify":
		fs := flag.NewFlagSet("receipt verify", flag.ContinueOnError)
		fs.SetOutput(errOut)
		var requireSignature bool
		fs.BoolVar(&requireSignature, "require-signature", false, "Fail when the receipt carries no signature")
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}
		if fs.NArg() > 1 {
			fmt.Fprintln(errOut, "usage: xdao-ratewire receipt verify [--require-signature] [<file>]")
			return 2
		}
		var b []byte
		var err error
		if fs.NArg() == 1 && fs.Arg(0) != "-" {
			b, err = os.ReadFile(fs.Arg(0))
		} else {
			b, err = io.ReadAll(in)
		}
		if err != nil {
			fmt.Fprintf(errOut, "read receipt: %v\n", err)
			return 1
		}
		signed, err := receipt.VerifySignature(b)
		if err != nil {
			fmt.Fprintf(errOut, "invalid receipt: %v\n", err)
			return 1
		}
		receiptCID, err := receipt.CID(b)
		if err != nil {
			fmt.Fprintf(errOut, "invalid receipt: %v\n", err)
			return 1
		}
		_ = writeJSON(out, struct {
			CID    string `json:"cid"`
			Signed bool   `json:"signed"`
		}{receiptCID, signed})
		if requireSignature && !signed {
			fmt.Fprintln(errOut, "receipt is unsigned")
			return 1
		}
		return 0
	case "cid":
		fs := flag.NewFlagSet("receipt cid", flag.ContinueOnError)
		fs.SetOutput(errOut)
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}
		if fs.NArg() != 1 {
			fmt.Fprintln(errOut, "usage: xdao-ratewire receipt cid <file>")
			return 2
		}
		b, err := os.ReadFile(fs.Arg(0))
		if err != nil {
			fmt.Fprintf(errOut, "read receipt: %v\n", err)
			return 1
		}
		receiptCID, err := receipt.CID(b)
		if err != nil {
			fmt.Fprintf(errOut, "invalid receipt: %v\n", err)
			return 1
		}
		_, _ = fmt.Fprintln(out, receiptCID)
		return 0
	case "validate-supersession":
		fs := flag.NewFlagSet("receipt validate-supersession", flag.ContinueOnError)
		fs.SetOutput(errOut)
		var newPath string
		var oldPath string
		fs.StringVar(&newPath, "new", "", "New receipt file")
		fs.StringVar(&oldPath, "old", "", "Old receipt file")
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}
		if newPath == "" || oldPath == "" {
			fmt.Fprintln(errOut, "usage: xdao-ratewire receipt validate-supersession --new <file> --old <file>")
			return 2
		}
		newBytes, err := os.ReadFile(newPath)
		if err != nil {
			fmt.Fprintf(errOut, "read --new: %v\n", err)
			return 1
		}
		oldBytes, err := os.ReadFile(oldPath)
		if err != nil {
			fmt.Fprintf(errOut, "read --old: %v\n", err)
			return 1
		}
		if err := receipt.ValidateSupersession(newBytes, oldBytes); err != nil {
			fmt.Fprintf(errOut, "invalid: %v\n", err)
			return 1
		}
		_, _ = fmt.Fprintln(out, "OK")
		return 0
	default:
		fmt.Fprintf(errOut, "unknown receipt subcommand: %s\n", args[0])
		return 2
	}
}
