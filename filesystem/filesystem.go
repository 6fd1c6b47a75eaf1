package filesystem

import (
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
)

// Error constants for better error handling
var (
	ErrFileNotFound      = fmt.Errorf("filesystem: file not found")
	ErrDirectoryNotFound = fmt.Errorf("filesystem: directory not found")
	ErrInvalidPath       = fmt.Errorf("filesystem: invalid path")
)

// Filesystem is the narrow seam between the serving core and the OS.
// The resolver and negotiator never touch it; only the manifest loader,
// the response streamer and the offline generators do.
type Filesystem interface {
	Open(path string) (io.ReadCloser, error)
	ReadFile(path string) ([]byte, error)
	WriteFile(path string, content []byte) error
	DeleteFile(path string) error

	FileExists(path string) (bool, error)
	FileStat(path string) (os.FileInfo, error)

	DirectoryExists(path string) (bool, error)
	CreateDirectory(path string) error
	WalkFiles(root string, fn func(relPath string, info os.FileInfo) error) error
}

type localFileSystem struct {
}

func NewLocalFilesystem() Filesystem {
	return &localFileSystem{}
}

// Open implements Filesystem.
func (filesystem *localFileSystem) Open(path string) (io.ReadCloser, error) {
	if path == "" {
		return nil, ErrInvalidPath
	}

	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrFileNotFound
		}
		return nil, err
	}

	return file, nil
}

// ReadFile implements Filesystem.
func (filesystem *localFileSystem) ReadFile(path string) ([]byte, error) {
	if path == "" {
		return nil, ErrInvalidPath
	}

	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrFileNotFound
		}
		return nil, err
	}

	return content, nil
}

// WriteFile implements Filesystem.
func (filesystem *localFileSystem) WriteFile(path string, content []byte) error {
	if path == "" {
		return ErrInvalidPath
	}

	dir := filepath.Dir(path)
	if err := filesystem.CreateDirectory(dir); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			slog.Error("closing file error", "error", closeErr)
		}
	}()

	if _, err := file.Write(content); err != nil {
		return err
	}

	return file.Sync()
}

// DeleteFile implements Filesystem.
func (filesystem *localFileSystem) DeleteFile(path string) error {
	exists, err := filesystem.FileExists(path)
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}

	return os.Remove(path)
}

// FileExists implements Filesystem.
func (filesystem *localFileSystem) FileExists(path string) (bool, error) {
	if path == "" {
		return false, ErrInvalidPath
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}

	return !info.IsDir(), nil
}

// FileStat implements Filesystem.
func (filesystem *localFileSystem) FileStat(path string) (os.FileInfo, error) {
	if path == "" {
		return nil, ErrInvalidPath
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrFileNotFound
		}
		return nil, err
	}

	return info, nil
}

// DirectoryExists implements Filesystem.
func (filesystem *localFileSystem) DirectoryExists(path string) (bool, error) {
	if path == "" {
		return false, ErrInvalidPath
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}

	return info.IsDir(), nil
}

// CreateDirectory implements Filesystem.
func (filesystem *localFileSystem) CreateDirectory(path string) error {
	exists, err := filesystem.DirectoryExists(path)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	if err := os.MkdirAll(path, 0770); err != nil {
		return err
	}

	return nil
}

// WalkFiles implements Filesystem. Directories are skipped; fn sees
// regular files only, with slash-separated paths relative to root.
func (filesystem *localFileSystem) WalkFiles(root string, fn func(relPath string, info os.FileInfo) error) error {
	exists, err := filesystem.DirectoryExists(root)
	if err != nil {
		return err
	}
	if !exists {
		return ErrDirectoryNotFound
	}

	return filepath.Walk(root, func(path string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}

		return fn(filepath.ToSlash(rel), info)
	})
}
