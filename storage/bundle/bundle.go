package bundle

import (
	"archive/tar"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/ipfs/go-cid"

	"xdao.co/ratewire/cidutil"
	"xdao.co/ratewire/storage"
)

// FormatVersion is the index.json schema version written by Export.
const FormatVersion = 1

// epoch0 is the ModTime stamped on every entry so bundle bytes depend only
// on content.
var epoch0 = time.Unix(0, 0).UTC()

// ExportOptions tunes what Export writes beyond the blocks themselves.
type ExportOptions struct {
	// Labels is optional, non-authoritative metadata mapping names to CIDs
	// (e.g. "chain" or "policy" pointing at the relevant block).
	Labels map[string]cid.Cid
	// IncludeIndex adds an index.json manifest to the archive.
	IncludeIndex bool
}

// Export writes a TAR bundle holding the blocks for the given CIDs.
//
// Blocks are opaque CAS bytes: BoC-encoded payloads and chains, policy text,
// receipt text. The same set of CIDs always produces the same bundle bytes:
// entries are written in lexicographic CID order, duplicates collapse, and
// headers carry no uid, owner, or timestamp beyond the zero epoch. Every
// block is re-hashed on the way out.
func Export(w io.Writer, cas storage.CAS, ids []cid.Cid, opts ExportOptions) error {
	if cas == nil {
		return errors.New("bundle: nil CAS")
	}
	ordered, err := dedupeSorted(ids)
	if err != nil {
		return err
	}

	tw := tar.NewWriter(w)
	blocks, err := writeBlocks(tw, cas, ordered)
	if err == nil && opts.IncludeIndex {
		err = writeIndex(tw, blocks, opts.Labels)
	}
	if err != nil {
		_ = tw.Close()
		return err
	}
	return tw.Close()
}

// dedupeSorted validates the CIDs and returns them deduplicated in
// lexicographic order of their string form.
func dedupeSorted(ids []cid.Cid) ([]cid.Cid, error) {
	uniq := make(map[cid.Cid]bool, len(ids))
	out := make([]cid.Cid, 0, len(ids))
	for _, id := range ids {
		if !id.Defined() {
			return nil, storage.ErrInvalidCID
		}
		if !uniq[id] {
			uniq[id] = true
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out, nil
}

func writeBlocks(tw *tar.Writer, cas storage.CAS, ids []cid.Cid) ([]blockEntry, error) {
	blocks := make([]blockEntry, 0, len(ids))
	for _, id := range ids {
		data, err := cas.Get(id)
		if err != nil {
			return nil, err
		}
		got, err := cidutil.CIDv1RawSHA256CID(data)
		if err != nil {
			return nil, err
		}
		if !got.Equals(id) {
			return nil, storage.ErrCIDMismatch
		}
		if err := writeEntry(tw, "blocks/"+id.String(), data); err != nil {
			return nil, err
		}
		blocks = append(blocks, blockEntry{CID: id.String(), Size: len(data)})
	}
	return blocks, nil
}

func writeIndex(tw *tar.Writer, blocks []blockEntry, labels map[string]cid.Cid) error {
	idx := bundleIndex{
		Version:   FormatVersion,
		CIDCodec:  "raw",
		Multihash: "sha2-256",
		Blocks:    blocks,
	}
	if len(labels) > 0 {
		names := make([]string, 0, len(labels))
		for name := range labels {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			if name == "" {
				return errors.New("bundle: empty label key")
			}
			target := labels[name]
			if !target.Defined() {
				return storage.ErrInvalidCID
			}
			idx.Labels = append(idx.Labels, labelEntry{Name: name, CID: target.String()})
		}
	}

	// Structs and slices only, so encoding/json is deterministic here.
	data, err := json.Marshal(idx)
	if err != nil {
		return err
	}
	return writeEntry(tw, "index.json", append(data, '\n'))
}

// ImportOptions tunes how Import treats the incoming archive.
type ImportOptions struct {
	// IgnoreUnknown skips TAR entries outside the bundle layout instead of
	// failing the import. Left unset, any unrecognized entry is an error.
	IgnoreUnknown bool
}

// Import reads a bundle from r and stores every block into cas, failing
// closed on entries it does not recognize.
func Import(r io.Reader, cas storage.CAS) error {
	return ImportWithOptions(r, cas, ImportOptions{})
}

// ImportWithOptions reads a bundle from r and stores every block into cas.
//
// A block is accepted only when its bytes match both the CID in its filename
// and the CID recomputed from content.
func ImportWithOptions(r io.Reader, cas storage.CAS, opts ImportOptions) error {
	if cas == nil {
		return errors.New("bundle: nil CAS")
	}

	tr := tar.NewReader(r)
	seen := map[cid.Cid]bool{}
	for {
		h, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if err := importEntry(tr, h, cas, opts, seen); err != nil {
			return err
		}
	}
}

func importEntry(tr *tar.Reader, h *tar.Header, cas storage.CAS, opts ImportOptions, seen map[cid.Cid]bool) error {
	name := cleanTarPath(h.Name)
	if name == "" {
		return fmt.Errorf("bundle: entry path %q is outside the bundle layout", h.Name)
	}
	if h.Typeflag != tar.TypeReg {
		if opts.IgnoreUnknown {
			return nil
		}
		return fmt.Errorf("bundle: tar entry %s has type %v, want a regular file", name, h.Typeflag)
	}

	// The index and any rendered documents riding along for human
	// consumption are non-authoritative; blocks are the payload.
	if name == "index.json" || strings.HasPrefix(name, "docs/") {
		_, _ = io.Copy(io.Discard, tr)
		return nil
	}
	if !strings.HasPrefix(name, "blocks/") {
		if opts.IgnoreUnknown {
			_, _ = io.Copy(io.Discard, tr)
			return nil
		}
		return fmt.Errorf("bundle: unknown entry: %s", name)
	}

	id, err := cid.Decode(strings.TrimPrefix(name, "blocks/"))
	if err != nil || !id.Defined() {
		return storage.ErrInvalidCID
	}
	if seen[id] {
		return fmt.Errorf("bundle: block %s appears more than once", id)
	}
	seen[id] = true

	data, err := io.ReadAll(tr)
	if err != nil {
		return err
	}
	got, err := cidutil.CIDv1RawSHA256CID(data)
	if err != nil {
		return err
	}
	if !got.Equals(id) {
		return storage.ErrCIDMismatch
	}

	stored, err := cas.Put(data)
	if err != nil {
		return err
	}
	if !stored.Equals(id) {
		return storage.ErrCIDMismatch
	}
	return nil
}

// bundleIndex is the schema of index.json. Field names are part of the
// on-disk format.
type bundleIndex struct {
	Version   int          `json:"version"`
	CIDCodec  string       `json:"cidCodec"`
	Multihash string       `json:"multihash"`
	Blocks    []blockEntry `json:"blocks"`
	Labels    []labelEntry `json:"labels,omitempty"`
}

type blockEntry struct {
	CID  string `json:"cid"`
	Size int    `json:"size"`
}

type labelEntry struct {
	Name string `json:"name"`
	CID  string `json:"cid"`
}

func writeEntry(tw *tar.Writer, name string, content []byte) error {
	err := tw.WriteHeader(&tar.Header{
		Name:     name,
		Mode:     0o644,
		Size:     int64(len(content)),
		ModTime:  epoch0,
		Typeflag: tar.TypeReg,
	})
	if err != nil {
		return err
	}
	_, err = tw.Write(content)
	return err
}

// cleanTarPath normalizes an entry name and rejects anything that could
// escape the bundle namespace (absolute paths, "..", empty segments).
func cleanTarPath(name string) string {
	name = strings.TrimSpace(name)
	name = strings.ReplaceAll(name, "\\", "/")
	name = strings.TrimPrefix(name, "./")
	name = strings.TrimPrefix(name, "/")
	if name == "" {
		return ""
	}
	parts := strings.Split(name, "/")
	for _, part := range parts {
		if part == "" || part == "." || part == ".." {
			return ""
		}
	}
	return strings.Join(parts, "/")
}
