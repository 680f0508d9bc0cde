// Package ingest finds the images a batch should process.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DirStats summarizes a discovery walk.
type DirStats struct {
	Scanned uint32
	Matched uint32
	Hidden  uint32
	Failed  uint32
}

// PathError is a path that could not be read during discovery.
type PathError struct {
	Path string
	Err  error
}

type Options struct {
	// IncludeExts overrides the default image extensions (with or without dot).
	IncludeExts []string
	// IncludeHidden also picks up dot files and descends into dot directories.
	IncludeHidden bool
}

// Discover expands paths into image files. Directories are walked recursively;
// plain files are taken as given when their extension is allowed. The result
// is sorted within each directory and deduplicated, keeping the order of paths.
func Discover(ctx context.Context, paths []string, opts Options) ([]string, DirStats, []PathError, error) {
	if len(paths) == 0 {
		return nil, DirStats{}, nil, errors.New("at least one path is required")
	}
	exts := extSet(opts.IncludeExts)

	var (
		out   []string
		stats DirStats
		perr  []PathError
		seen  = map[string]bool{}
	)
	add := func(p string) {
		abs, err := filepath.Abs(p)
		if err != nil {
			abs = p
		}
		if !seen[abs] {
			seen[abs] = true
			out = append(out, p)
		}
	}

	for _, root := range paths {
		if strings.TrimSpace(root) == "" {
			continue
		}
		info, err := os.Stat(root)
		if err != nil {
			stats.Failed++
			perr = append(perr, PathError{Path: root, Err: err})
			continue
		}
		if !info.IsDir() {
			stats.Scanned++
			if AllowedExt(filepath.Ext(root), exts) {
				stats.Matched++
				add(root)
			}
			continue
		}

		var found []string
		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if walkErr != nil {
				stats.Failed++
				perr = append(perr, PathError{Path: path, Err: walkErr})
				return nil
			}
			if path != root && !opts.IncludeHidden && IsHidden(path) {
				stats.Hidden++
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if d.IsDir() {
				return nil
			}
			stats.Scanned++
			if !AllowedExt(filepath.Ext(path), exts) {
				return nil
			}
			stats.Matched++
			found = append(found, path)
			return nil
		})
		if err != nil {
			return out, stats, perr, fmt.Errorf("walk %s: %w", root, err)
		}
		sort.Strings(found)
		for _, p := range found {
			add(p)
		}
	}
	return out, stats, perr, nil
}
