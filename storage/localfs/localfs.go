package localfs

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"

	"github.com/ipfs/go-cid"

	"xdao.co/ratewire/cidutil"
	"xdao.co/ratewire/storage"
)

// CAS stores rate documents on the local filesystem, keyed strictly by CID.
//
// Objects land read-only and are never rewritten. The store is offline and
// deterministic: no network, no wall-clock dependence, so a directory of
// objects can be copied between hosts and remains valid.
type CAS struct {
	root string
}

// DefaultDirectory resolves the object directory used when none is given:
// $XDAO_RATEWIRE_HOME/cas when the variable is set, otherwise
// ~/.xdao/ratewire/cas. The layout matches the key store next door.
func DefaultDirectory() (string, error) {
	if home := os.Getenv("XDAO_RATEWIRE_HOME"); home != "" {
		return filepath.Join(home, "cas"), nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".xdao", "ratewire", "cas"), nil
}

// New opens (creating if needed) a filesystem CAS rooted at root.
func New(root string) (*CAS, error) {
	if root == "" {
		return nil, errors.New("localfs: empty root directory")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	return &CAS{root: root}, nil
}

// Put writes data under its canonical CID.
//
// Writes go through a temp file and an atomic rename, so readers never see a
// partial object and concurrent writers of the same bytes race benignly. A
// second Put of the same CID with different bytes fails with ErrImmutable.
func (c *CAS) Put(data []byte) (cid.Cid, error) {
	id, err := cidutil.CIDv1RawSHA256CID(data)
	if err != nil {
		return cid.Undef, err
	}
	if !id.Defined() {
		return cid.Undef, storage.ErrInvalidCID
	}

	dest := c.objectPath(id)
	if existing, rerr := os.ReadFile(dest); rerr == nil {
		if !bytes.Equal(existing, data) {
			return cid.Undef, storage.ErrImmutable
		}
		return id, nil
	} else if !os.IsNotExist(rerr) {
		return cid.Undef, rerr
	}

	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return cid.Undef, err
	}
	tmp, err := os.CreateTemp(dir, ".put-*")
	if err != nil {
		return cid.Undef, err
	}
	if err := writeAndSeal(tmp, data); err != nil {
		_ = os.Remove(tmp.Name())
		return cid.Undef, err
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		_ = os.Remove(tmp.Name())
		return cid.Undef, err
	}
	return id, nil
}

// writeAndSeal fills the temp file, syncs it, and drops write permission.
// The file is closed in every path.
func writeAndSeal(f *os.File, data []byte) error {
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Chmod(0o444); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// Get returns the stored bytes for id, recomputing and checking the CID so a
// tampered or bit-rotted object surfaces as ErrCIDMismatch rather than bad data.
func (c *CAS) Get(id cid.Cid) ([]byte, error) {
	if !id.Defined() {
		return nil, storage.ErrInvalidCID
	}
	data, err := os.ReadFile(c.objectPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	got, err := cidutil.CIDv1RawSHA256CID(data)
	if err != nil {
		return nil, err
	}
	if got != id {
		return nil, storage.ErrCIDMismatch
	}
	return data, nil
}

func (c *CAS) Has(id cid.Cid) bool {
	if !id.Defined() {
		return false
	}
	_, err := os.Stat(c.objectPath(id))
	return err == nil
}

// objectPath shards on the tail of the CID string. Our CIDs share a long
// constant prefix (multibase, version, raw codec, sha2-256), so the leading
// characters carry no entropy; the tail is all digest.
func (c *CAS) objectPath(id cid.Cid) string {
	s := id.String()
	if len(s) < 2 {
		return filepath.Join(c.root, s)
	}
	return filepath.Join(c.root, s[len(s)-2:], s)
}
