// Package fetcher materializes the working set for a job: either by walking
// a remote GitHub repository or by accepting an uploaded bundle.
package fetcher

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/url"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/go-github/v57/github"
	"github.com/ternarybob/arbor"
	"golang.org/x/oauth2"

	"github.com/ternarybob/scrutor/internal/interfaces"
	"github.com/ternarybob/scrutor/internal/models"
)

// allow-listed extensions; Dockerfile is matched by name
var allowedExtensions = map[string]bool{
	".py":   true,
	".js":   true,
	".ts":   true,
	".jsx":  true,
	".tsx":  true,
	".json": true,
	".yaml": true,
	".yml":  true,
	".toml": true,
	".md":   true,
}

var skipDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	"__pycache__":  true,
	"venv":         true,
	".venv":        true,
	"env":          true,
}

// conventional source directories, walked before everything else
var preferredDirs = map[string]bool{
	"src":      true,
	"lib":      true,
	"app":      true,
	"api":      true,
	"backend":  true,
	"frontend": true,
}

var sourceExtensions = map[string]bool{
	".py":  true,
	".js":  true,
	".ts":  true,
	".jsx": true,
	".tsx": true,
}

// GitHubFetcher walks a repository tree via the GitHub API and downloads
// matching files until the job's cap is reached
type GitHubFetcher struct {
	client *github.Client
	logger arbor.ILogger
}

// NewGitHubFetcher creates a fetcher. An empty token means unauthenticated
// access with GitHub's lower rate limits.
func NewGitHubFetcher(token string, logger arbor.ILogger) *GitHubFetcher {
	var client *github.Client
	if token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		client = github.NewClient(oauth2.NewClient(context.Background(), ts))
	} else {
		client = github.NewClient(nil)
	}
	return &GitHubFetcher{client: client, logger: logger}
}

// ParseRepoURL extracts {owner, repo} from a GitHub repository URL
func ParseRepoURL(repoURL string) (owner, repo string, err error) {
	u, err := url.Parse(repoURL)
	if err != nil {
		return "", "", fmt.Errorf("invalid repository URL: %w", err)
	}
	if u.Host != "github.com" && u.Host != "www.github.com" {
		return "", "", fmt.Errorf("unsupported repository host: %s", u.Host)
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("repository URL must be github.com/{owner}/{repo}")
	}
	return parts[0], strings.TrimSuffix(parts[1], ".git"), nil
}

// Fetch implements interfaces.SourceFetcher
func (f *GitHubFetcher) Fetch(ctx context.Context, repoURL string, opts interfaces.FetchOptions) ([]models.WorkingFile, error) {
	owner, repo, err := ParseRepoURL(repoURL)
	if err != nil {
		return nil, err
	}

	repoInfo, _, err := f.client.Repositories.Get(ctx, owner, repo)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve repository %s/%s: %w", owner, repo, err)
	}
	branch := repoInfo.GetDefaultBranch()
	if branch == "" {
		branch = "main"
	}

	tree, _, err := f.client.Git.GetTree(ctx, owner, repo, branch, true)
	if err != nil {
		return nil, fmt.Errorf("failed to get tree for %s/%s@%s: %w", owner, repo, branch, err)
	}

	var candidates []string
	for _, entry := range tree.Entries {
		if entry.GetType() != "blob" {
			continue
		}
		path := entry.GetPath()
		if inSkippedDir(path) || !isAnalyzable(path) {
			continue
		}
		if opts.MaxFileBytes > 0 && entry.GetSize() > opts.MaxFileBytes {
			continue
		}
		if len(opts.IncludePatterns) > 0 && !matchesAny(path, opts.IncludePatterns) {
			continue
		}
		candidates = append(candidates, path)
	}

	sortTraversalOrder(candidates)

	maxFiles := opts.MaxFiles
	if maxFiles <= 0 {
		maxFiles = len(candidates)
	}

	var files []models.WorkingFile
	for _, path := range candidates {
		if len(files) >= maxFiles {
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		content, err := f.fileContent(ctx, owner, repo, branch, path)
		if err != nil {
			f.logger.Warn().Err(err).Str("path", path).Msg("Skipping file that failed to download")
			continue
		}

		if opts.MaxFileLines > 0 && strings.Count(content, "\n")+1 > opts.MaxFileLines {
			content = fmt.Sprintf("# File truncated: exceeds %d lines\n", opts.MaxFileLines)
		}

		files = append(files, models.WorkingFile{
			Path:    path,
			Content: []byte(content),
			Origin:  models.OriginRemote,
		})
	}

	f.logger.Info().
		Str("repo", owner+"/"+repo).
		Str("branch", branch).
		Int("files", len(files)).
		Msg("Remote fetch complete")

	return files, nil
}

func (f *GitHubFetcher) fileContent(ctx context.Context, owner, repo, branch, path string) (string, error) {
	content, _, _, err := f.client.Repositories.GetContents(ctx, owner, repo, path, &github.RepositoryContentGetOptions{
		Ref: branch,
	})
	if err != nil {
		return "", fmt.Errorf("failed to get contents of %s: %w", path, err)
	}
	if content == nil {
		return "", fmt.Errorf("file not found: %s", path)
	}

	if content.GetEncoding() == "base64" && content.Content != nil {
		decoded, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(*content.Content, "\n", ""))
		if err != nil {
			return "", fmt.Errorf("failed to decode %s: %w", path, err)
		}
		return string(decoded), nil
	}
	return content.GetContent()
}

// HealthCheck verifies the GitHub API is reachable
func (f *GitHubFetcher) HealthCheck(ctx context.Context) error {
	_, _, err := f.client.Meta.Get(ctx)
	if err != nil {
		return fmt.Errorf("github api unreachable: %w", err)
	}
	return nil
}

func inSkippedDir(path string) bool {
	for _, seg := range strings.Split(filepath.ToSlash(filepath.Dir(path)), "/") {
		if skipDirs[seg] {
			return true
		}
	}
	return false
}

func isAnalyzable(path string) bool {
	base := filepath.Base(path)
	if base == "Dockerfile" || strings.HasPrefix(base, "Dockerfile.") {
		return true
	}
	return allowedExtensions[strings.ToLower(filepath.Ext(path))]
}

func matchesAny(path string, patterns []string) bool {
	for _, pattern := range patterns {
		if ok, _ := filepath.Match(pattern, path); ok {
			return true
		}
		if ok, _ := filepath.Match(pattern, filepath.Base(path)); ok {
			return true
		}
	}
	return false
}

// sortTraversalOrder orders candidate paths deterministically: shallow paths
// before deep ones, conventional source directories first, source files
// before config files, then alphabetical.
func sortTraversalOrder(paths []string) {
	rank := func(path string) (int, int, int) {
		depth := strings.Count(path, "/")
		dirRank := 1
		if seg := strings.SplitN(path, "/", 2); len(seg) == 2 && preferredDirs[seg[0]] {
			dirRank = 0
		}
		fileRank := 1
		if sourceExtensions[strings.ToLower(filepath.Ext(path))] {
			fileRank = 0
		}
		return dirRank, fileRank, depth
	}
	sort.SliceStable(paths, func(i, j int) bool {
		di, fi, depi := rank(paths[i])
		dj, fj, depj := rank(paths[j])
		if di != dj {
			return di < dj
		}
		if fi != fj {
			return fi < fj
		}
		if depi != depj {
			return depi < depj
		}
		return paths[i] < paths[j]
	})
}
