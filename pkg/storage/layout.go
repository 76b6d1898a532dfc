package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
)

const (
	// CacheFile holds an account's dedup keys.
	CacheFile = ".downloaded.json"
	// ManifestFile is an account's append-only download log.
	ManifestFile = "manifest.jsonl"
	// DefaultExtension is used when an image URL has none.
	DefaultExtension = ".jpg"
)

// Layout maps accounts to their paths under one output root.
type Layout struct {
	root string
}

// NewLayout returns a layout rooted at root.
func NewLayout(root string) Layout {
	return Layout{root: root}
}

// Root returns the output root.
func (l Layout) Root() string {
	return l.root
}

// AccountDir is the directory that holds everything for account.
func (l Layout) AccountDir(account string) string {
	return filepath.Join(l.root, account)
}

// CachePath is the dedup cache file of account.
func (l Layout) CachePath(account string) string {
	return filepath.Join(l.AccountDir(account), CacheFile)
}

// ManifestPath is the manifest file of account.
func (l Layout) ManifestPath(account string) string {
	return filepath.Join(l.AccountDir(account), ManifestFile)
}

// DebugPaths returns where the page capture and serialized content go when
// discovery finds nothing for account.
func (l Layout) DebugPaths(account string) (image, html string) {
	return DebugFiles(l.AccountDir(account), account)
}

// DebugFiles returns the capture paths of account inside dir.
func DebugFiles(dir, account string) (image, html string) {
	return filepath.Join(dir, "debug_"+account+".png"), filepath.Join(dir, "debug_"+account+".html")
}

// ImageFilename names the idx-th image of a post: {millis}_{postID}_{NN}{ext}.
// The extension comes from the URL path, without any query.
func ImageFilename(millis int64, postID string, idx int, imageURL string) string {
	return fmt.Sprintf("%d_%s_%02d%s", millis, postID, idx, extension(imageURL))
}

// FileIn joins name onto dir. name must be a single path element, so the
// result is always a file directly inside dir.
func FileIn(dir, name string) (string, error) {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("file name %q escapes %s", name, dir)
	}
	return filepath.Join(dir, name), nil
}

func extension(imageURL string) string {
	p := imageURL
	if u, err := url.Parse(imageURL); err == nil {
		p = u.Path
	} else if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	ext := path.Ext(p)
	if ext == "" || ext == "." {
		return DefaultExtension
	}
	return ext
}

// PrepareResult reports what Prepare did.
type PrepareResult struct {
	// Created counts account directories that did not exist before
	Created int
	Total   int
}

// Prepare creates the output root and, for every account, its directory,
// an empty cache and an empty manifest when they are missing. Existing files
// are never touched.
func (l Layout) Prepare(accounts []string) (PrepareResult, error) {
	result := PrepareResult{Total: len(accounts)}

	if err := os.MkdirAll(l.root, 0755); err != nil {
		return result, fmt.Errorf("failed to create output directory: %w", err)
	}

	for _, account := range accounts {
		dir := l.AccountDir(account)
		if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return result, fmt.Errorf("failed to create directory for %s: %w", account, err)
			}
			result.Created++
		} else if err != nil {
			return result, fmt.Errorf("failed to inspect %s: %w", dir, err)
		}

		if err := writeIfMissing(l.CachePath(account), []byte("{}")); err != nil {
			return result, err
		}
		if err := writeIfMissing(l.ManifestPath(account), nil); err != nil {
			return result, err
		}
	}
	return result, nil
}

func writeIfMissing(name string, content []byte) error {
	f, err := os.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if errors.Is(err, fs.ErrExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", name, err)
	}
	_, err = f.Write(content)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return nil
}
