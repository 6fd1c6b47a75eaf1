package manifest

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// AssetRecord is the serving metadata for one file under the asset
// root. Immutable after load.
type AssetRecord struct {
	// Path is the canonical request path, "/"-rooted with forward
	// slashes ("/css/nav.css").
	Path        string
	ContentType string
	Size        int64

	// HasGzip reports whether a precomputed gzip sibling exists under
	// the gz root. GzipSize is only meaningful when HasGzip is set.
	HasGzip  bool
	GzipSize int64

	// ETag is a weak validator derived from the original file's mtime
	// and size. It is identical for both representations and stable
	// across restarts as long as the source file is unchanged.
	ETag         string
	LastModified time.Time
}

// Manifest maps request paths to asset records. Built once at start-up
// and read-only afterwards, so workers never need to synchronize on it.
type Manifest struct {
	root    string
	gzRoot  string
	records map[string]*AssetRecord
}

// New builds a manifest from prepared records. Load is the normal
// entry point; New exists for composition and tests.
func New(root, gzRoot string, records []*AssetRecord) *Manifest {
	m := &Manifest{
		root:    root,
		gzRoot:  gzRoot,
		records: make(map[string]*AssetRecord, len(records)),
	}
	for _, record := range records {
		m.records[record.Path] = record
	}
	return m
}

// Lookup returns the record for an already-normalized request path.
func (m *Manifest) Lookup(path string) (*AssetRecord, bool) {
	record, found := m.records[path]
	return record, found
}

// Len returns the number of servable assets.
func (m *Manifest) Len() int {
	return len(m.records)
}

// FilePath returns the on-disk location of the original asset.
func (m *Manifest) FilePath(record *AssetRecord) string {
	return filepath.Join(m.root, filepath.FromSlash(strings.TrimPrefix(record.Path, "/")))
}

// GzipFilePath returns the on-disk location of the precomputed gzip
// sibling in the parallel gz tree.
func (m *Manifest) GzipFilePath(record *AssetRecord) string {
	return filepath.Join(m.gzRoot, filepath.FromSlash(strings.TrimPrefix(record.Path, "/")))
}

func weakETag(mtime time.Time, size int64) string {
	sum := md5.Sum([]byte(fmt.Sprintf("%d%d", mtime.Unix(), size)))
	return `W/"` + hex.EncodeToString(sum[:]) + `"`
}
