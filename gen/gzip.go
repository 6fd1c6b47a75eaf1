package gen

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/stonefell/slate/filesystem"
	"github.com/stonefell/slate/manifest"
)

// PopulateGzip mirrors the www tree into the gz tree: every file whose
// gzipped form is strictly smaller gets a sibling under gzRoot and a
// manifest entry. The run is incremental on mtime, prunes orphans in
// both the gz tree and the manifest, and rewrites the manifest JSON at
// manifestPath.
func PopulateGzip(fs filesystem.Filesystem, root, gzRoot, manifestPath string) error {
	entries, err := readManifest(fs, manifestPath)
	if err != nil {
		return err
	}

	if err := pruneOrphanVariants(fs, root, gzRoot); err != nil {
		return err
	}

	seen := make(map[string]bool)
	err = fs.WalkFiles(root, func(relPath string, info os.FileInfo) error {
		seen[relPath] = true
		gzPath := filepath.Join(gzRoot, filepath.FromSlash(relPath))

		if entry, found := entries[relPath]; found {
			gzExists, err := fs.FileExists(gzPath)
			if err != nil {
				return err
			}
			if entry.Mtime == info.ModTime().Unix() && gzExists {
				// Unchanged since the last run.
				return nil
			}
			delete(entries, relPath)
			if err := fs.DeleteFile(gzPath); err != nil {
				return err
			}
		}

		content, err := fs.ReadFile(filepath.Join(root, filepath.FromSlash(relPath)))
		if err != nil {
			return err
		}

		compressed, err := gzipBytes(content)
		if err != nil {
			return fmt.Errorf("gen: compressing %s: %w", relPath, err)
		}

		if len(compressed) >= len(content) {
			// Gzipping does not pay for this file; serve the original
			// only.
			return nil
		}

		if err := fs.WriteFile(gzPath, compressed); err != nil {
			return err
		}

		entries[relPath] = manifest.GzEntry{
			Mtime:       info.ModTime().Unix(),
			Size:        int64(len(content)),
			GzippedSize: int64(len(compressed)),
		}
		return nil
	})
	if err != nil {
		return err
	}

	for relPath := range entries {
		if !seen[relPath] {
			delete(entries, relPath)
		}
	}

	return writeManifest(fs, manifestPath, entries)
}

func gzipBytes(content []byte) ([]byte, error) {
	var buf bytes.Buffer
	gw, err := gzip.NewWriterLevel(&buf, gzip.BestCompression)
	if err != nil {
		return nil, err
	}
	if _, err := gw.Write(content); err != nil {
		return nil, err
	}
	if err := gw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// pruneOrphanVariants deletes gz files whose original is gone.
func pruneOrphanVariants(fs filesystem.Filesystem, root, gzRoot string) error {
	exists, err := fs.DirectoryExists(gzRoot)
	if err != nil || !exists {
		return err
	}

	var orphans []string
	err = fs.WalkFiles(gzRoot, func(relPath string, info os.FileInfo) error {
		originalExists, err := fs.FileExists(filepath.Join(root, filepath.FromSlash(relPath)))
		if err != nil {
			return err
		}
		if !originalExists {
			orphans = append(orphans, filepath.Join(gzRoot, filepath.FromSlash(relPath)))
		}
		return nil
	})
	if err != nil {
		return err
	}

	for _, orphan := range orphans {
		if err := fs.DeleteFile(orphan); err != nil {
			return err
		}
	}
	return nil
}

func readManifest(fs filesystem.Filesystem, path string) (map[string]manifest.GzEntry, error) {
	entries := make(map[string]manifest.GzEntry)

	exists, err := fs.FileExists(path)
	if err != nil {
		return nil, err
	}
	if !exists {
		return entries, nil
	}

	content, err := fs.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(content, &entries); err != nil {
		return nil, fmt.Errorf("gen: parsing manifest %s: %w", path, err)
	}
	return entries, nil
}

func writeManifest(fs filesystem.Filesystem, path string, entries map[string]manifest.GzEntry) error {
	content, err := json.MarshalIndent(entries, "", "    ")
	if err != nil {
		return err
	}
	return fs.WriteFile(path, content)
}
