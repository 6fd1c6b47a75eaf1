package gen

import (
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/stonefell/slate/filesystem"
	"github.com/stonefell/slate/manifest"
)

// MimeTable walks a www directory and maps every file extension found
// in it to a MIME type. Unknown extensions map to the default type so
// the server never has to guess at request time.
func MimeTable(fs filesystem.Filesystem, root string) (map[string]string, error) {
	table := make(map[string]string)

	err := fs.WalkFiles(root, func(relPath string, info os.FileInfo) error {
		ext := strings.ToLower(filepath.Ext(relPath))
		if ext == "" {
			return nil
		}

		contentType := mime.TypeByExtension(ext)
		if contentType == "" {
			contentType = manifest.DefaultContentType
		}
		// The serving manifest wants bare types; parameters like
		// charset are the client's problem.
		if semi := strings.IndexByte(contentType, ';'); semi >= 0 {
			contentType = strings.TrimSpace(contentType[:semi])
		}

		if existing, found := table[ext]; found && existing != contentType {
			slog.Warn("extension maps to multiple MIME types",
				"extension", ext,
				"kept", existing,
				"ignored", contentType)
			return nil
		}

		table[ext] = contentType
		return nil
	})
	if err != nil {
		return nil, err
	}

	return table, nil
}
