package fetcher

import (
	"fmt"
	"path"
	"strings"

	"github.com/ternarybob/scrutor/internal/models"
)

// MaterializeUpload converts an uploaded bundle into working files. Path
// segments in the supplied filenames are preserved; any path that escapes
// the bundle root with ".." is rejected outright.
func MaterializeUpload(uploads map[string][]byte, maxFiles int) ([]models.WorkingFile, error) {
	if len(uploads) == 0 {
		return nil, fmt.Errorf("no files in upload")
	}
	if maxFiles > 0 && len(uploads) > maxFiles {
		return nil, fmt.Errorf("upload contains %d files, limit is %d", len(uploads), maxFiles)
	}

	files := make([]models.WorkingFile, 0, len(uploads))
	for name, content := range uploads {
		cleaned, err := cleanUploadPath(name)
		if err != nil {
			return nil, err
		}
		files = append(files, models.WorkingFile{
			Path:    cleaned,
			Content: content,
			Origin:  models.OriginUploaded,
		})
	}

	sortByTraversalOrder(files)
	return files, nil
}

func cleanUploadPath(name string) (string, error) {
	normalized := strings.ReplaceAll(name, "\\", "/")
	for _, seg := range strings.Split(normalized, "/") {
		if seg == ".." {
			return "", fmt.Errorf("upload path %q escapes the bundle root", name)
		}
	}
	cleaned := path.Clean("/" + normalized)
	return strings.TrimPrefix(cleaned, "/"), nil
}

func sortByTraversalOrder(files []models.WorkingFile) {
	paths := make([]string, len(files))
	byPath := make(map[string]models.WorkingFile, len(files))
	for i, f := range files {
		paths[i] = f.Path
		byPath[f.Path] = f
	}
	sortTraversalOrder(paths)
	for i, p := range paths {
		files[i] = byPath[p]
	}
}
