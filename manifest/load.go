package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/stonefell/slate/filesystem"
)

// ErrConfig marks a malformed or inconsistent build artifact. The
// process must not begin serving when Load returns it.
var ErrConfig = errors.New("manifest: invalid configuration")

const DefaultContentType = "application/octet-stream"

// GzEntry is one row of the gz manifest produced by gzgen.
type GzEntry struct {
	Mtime       int64 `json:"mtime"`
	Size        int64 `json:"size"`
	GzippedSize int64 `json:"gzipped_size"`
}

// Load reads the build-time MIME table and gzip manifest, walks the
// asset root and cross-references all three into an immutable Manifest.
// Any gzip-manifest entry whose original or gz sibling is missing on
// disk fails the load; serving must not start on a stale build.
func Load(fs filesystem.Filesystem, mimeTablePath, gzManifestPath, root, gzRoot string) (*Manifest, error) {
	mimeTypes, err := loadMimeTable(fs, mimeTablePath)
	if err != nil {
		return nil, err
	}

	gzEntries, err := loadGzManifest(fs, gzManifestPath)
	if err != nil {
		return nil, err
	}

	m := &Manifest{
		root:    root,
		gzRoot:  gzRoot,
		records: make(map[string]*AssetRecord),
	}

	err = fs.WalkFiles(root, func(relPath string, info os.FileInfo) error {
		ext := strings.ToLower(filepath.Ext(relPath))
		contentType, found := mimeTypes[ext]
		if !found {
			contentType = DefaultContentType
		}

		m.records["/"+relPath] = &AssetRecord{
			Path:         "/" + relPath,
			ContentType:  contentType,
			Size:         info.Size(),
			ETag:         weakETag(info.ModTime(), info.Size()),
			LastModified: info.ModTime().UTC(),
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: walking asset root %s: %v", ErrConfig, root, err)
	}

	for relPath, entry := range gzEntries {
		record, found := m.records["/"+relPath]
		if !found {
			return nil, fmt.Errorf("%w: gz manifest entry %q has no original under %s", ErrConfig, relPath, root)
		}
		if entry.Size != record.Size {
			return nil, fmt.Errorf("%w: gz manifest entry %q is stale (size %d, file has %d)", ErrConfig, relPath, entry.Size, record.Size)
		}

		gzPath := filepath.Join(gzRoot, filepath.FromSlash(relPath))
		exists, err := fs.FileExists(gzPath)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrConfig, err)
		}
		if !exists {
			return nil, fmt.Errorf("%w: gz manifest entry %q has no compressed file under %s", ErrConfig, relPath, gzRoot)
		}

		record.HasGzip = true
		record.GzipSize = entry.GzippedSize
	}

	return m, nil
}

func loadMimeTable(fs filesystem.Filesystem, path string) (map[string]string, error) {
	content, err := fs.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading mime table %s: %v", ErrConfig, path, err)
	}

	var mimeTypes map[string]string
	if err := json.Unmarshal(content, &mimeTypes); err != nil {
		return nil, fmt.Errorf("%w: parsing mime table %s: %v", ErrConfig, path, err)
	}

	return mimeTypes, nil
}

func loadGzManifest(fs filesystem.Filesystem, path string) (map[string]GzEntry, error) {
	content, err := fs.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading gz manifest %s: %v", ErrConfig, path, err)
	}

	var entries map[string]GzEntry
	if err := json.Unmarshal(content, &entries); err != nil {
		return nil, fmt.Errorf("%w: parsing gz manifest %s: %v", ErrConfig, path, err)
	}

	for relPath, entry := range entries {
		if entry.GzippedSize <= 0 {
			return nil, fmt.Errorf("%w: gz manifest entry %q has no gzipped_size", ErrConfig, relPath)
		}
	}

	return entries, nil
}
