package dataset

import (
	"context"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/specialistvlad/dwigrid/internal/bids"
	"github.com/specialistvlad/dwigrid/internal/ctxlog"
)

// File is one scanned dataset file with its parsed entities.
type File struct {
	Path     string
	Entities bids.Entities
}

// Scan walks root and returns every file carrying a subject entity, in
// lexical path order. Hidden directories are skipped.
func Scan(ctx context.Context, root string) ([]File, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Dataset: scanning.", "root", root)

	var files []File
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		ents := bids.ParseEntities(path)
		if ents[bids.Subject] == "" {
			return nil
		}
		files = append(files, File{Path: path, Entities: ents})
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Debug("Dataset: scan complete.", "root", root, "files", len(files))
	return files, nil
}
