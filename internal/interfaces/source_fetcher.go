package interfaces

import (
	"context"

	"github.com/ternarybob/scrutor/internal/models"
)

// FetchOptions bound what a fetch materializes
type FetchOptions struct {
	MaxFiles        int
	MaxFileBytes    int
	MaxFileLines    int
	IncludePatterns []string
}

// SourceFetcher materializes a working set of files from a remote
// repository reference
type SourceFetcher interface {
	// Fetch walks the repository identified by repoURL and returns working
	// files in deterministic traversal order, up to the configured caps.
	Fetch(ctx context.Context, repoURL string, opts FetchOptions) ([]models.WorkingFile, error)
}
