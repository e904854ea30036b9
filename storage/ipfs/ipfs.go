package ipfs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/ipfs/go-cid"

	"xdao.co/ratewire/cidutil"
	"xdao.co/ratewire/storage"
)

// CAS stores rate documents as raw blocks in a local Kubo repo by shelling
// out to the "ipfs" binary.
//
// The adapter is optional; the core packages only ever see storage.CAS.
// It stays offline (block commands work against the local repo without a
// daemon) and deterministic: every byte read back is re-hashed against the
// requested CID, so transport can never launder a bad object into a good one.
//
// Despite the package name there is no embedded network client.
type CAS struct {
	bin     string
	env     []string
	timeout time.Duration
}

type Options struct {
	// Bin is the ipfs binary to invoke; empty means "ipfs" from PATH.
	Bin string
	// Env replaces the command environment when non-nil, typically to pin
	// IPFS_PATH at a specific repo.
	Env []string
	// Timeout bounds each invocation; zero means no bound.
	Timeout time.Duration
}

func New(opts Options) *CAS {
	bin := opts.Bin
	if bin == "" {
		bin = "ipfs"
	}
	return &CAS{bin: bin, env: opts.Env, timeout: opts.Timeout}
}

// putArgs pins the block parameters (raw codec, sha2-256, CIDv1) so Kubo
// reports the same CID the rest of the module computes.
var putArgs = []string{
	"block", "put",
	"--quiet",
	"--format=raw",
	"--mhtype=sha2-256",
	"--mhlen=32",
	"--cid-version=1",
	"/dev/stdin",
}

// Put stores data as a raw block. Any disagreement between Kubo's reported
// CID and the locally computed one is an error, not a fallback.
func (c *CAS) Put(data []byte) (cid.Cid, error) {
	want, err := cidutil.CIDv1RawSHA256CID(data)
	if err != nil {
		return cid.Undef, err
	}
	if !want.Defined() {
		return cid.Undef, storage.ErrInvalidCID
	}

	out, err := c.invoke(data, putArgs...)
	if err != nil {
		return cid.Undef, err
	}
	got, err := cid.Decode(strings.TrimSpace(string(out)))
	if err != nil {
		return cid.Undef, fmt.Errorf("ipfs: block put response did not decode: %w", err)
	}
	if !got.Equals(want) {
		return cid.Undef, storage.ErrCIDMismatch
	}
	return want, nil
}

func (c *CAS) Get(id cid.Cid) ([]byte, error) {
	if !id.Defined() {
		return nil, storage.ErrInvalidCID
	}
	out, err := c.invoke(nil, "block", "get", id.String())
	if err != nil {
		if looksAbsent(err) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	if err := rehash(id, out); err != nil {
		return nil, err
	}
	return out, nil
}

// rehash recomputes the CID of fetched bytes and insists it matches the one
// that was asked for.
func rehash(id cid.Cid, data []byte) error {
	got, err := cidutil.CIDv1RawSHA256CID(data)
	if err != nil {
		return err
	}
	if !got.Equals(id) {
		return storage.ErrCIDMismatch
	}
	return nil
}

func (c *CAS) Has(id cid.Cid) bool {
	if !id.Defined() {
		return false
	}
	_, err := c.invoke(nil, "block", "stat", id.String())
	return err == nil
}

// invoke runs one ipfs command, feeding stdin when given and folding stderr
// into the returned error.
func (c *CAS) invoke(stdin []byte, args ...string) ([]byte, error) {
	ctx := context.Background()
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, c.bin, args...)
	if stdin != nil {
		cmd.Stdin = bytes.NewReader(stdin)
	}
	if c.env != nil {
		cmd.Env = c.env
	}

	out, err := cmd.Output()
	if err == nil {
		return out, nil
	}
	if ctx.Err() != nil {
		return nil, fmt.Errorf("ipfs: %s timed out after %s", args[0]+" "+args[1], c.timeout)
	}
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		if msg := strings.TrimSpace(string(ee.Stderr)); msg != "" {
			return nil, fmt.Errorf("ipfs: %s", msg)
		}
		return nil, fmt.Errorf("ipfs: %v", err)
	}
	return nil, err
}

// looksAbsent classifies Kubo's assorted missing-block messages
// ("block not found", "ipld: could not find ...") as ErrNotFound material.
func looksAbsent(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "not found") || strings.Contains(msg, "could not find")
}
