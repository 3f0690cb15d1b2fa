package analysis

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/apkscan/internal/model"
)

// DefaultWorkers is the number of files scanned concurrently.
const DefaultWorkers = 8

// treeWalker visits the regular files of a directory tree with bounded
// parallelism.
type treeWalker struct {
	workers  int
	skipDirs map[string]bool
	logger   *slog.Logger
}

func newTreeWalker(workers int, skipDirs []string, logger *slog.Logger) treeWalker {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if logger == nil {
		logger = slog.Default()
	}
	skip := make(map[string]bool, len(skipDirs))
	for _, d := range skipDirs {
		skip[d] = true
	}
	return treeWalker{workers: workers, skipDirs: skip, logger: logger}
}

// checkRoot verifies that root is an existing directory.
func checkRoot(root string) error {
	fi, err := os.Stat(root)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", model.ErrInputNotFound, root)
		}
		return err
	}
	if !fi.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", model.ErrInputNotFound, root)
	}
	return nil
}

// walk calls visit for every regular file under root accepted by include.
// rel is the slash-separated path relative to root. A visit error wrapping
// ErrFileUnreadable is logged and counted; any other error stops the walk.
func (w treeWalker) walk(
	ctx context.Context,
	root string,
	include func(rel string) bool,
	visit func(ctx context.Context, path, rel string) error,
) (skipped int, err error) {
	if err := checkRoot(root); err != nil {
		return 0, err
	}

	type file struct{ path, rel string }
	var (
		files      []file
		unreadable int64
	)

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			w.logger.Warn("skipping unreadable path", "path", path, "error", err)
			unreadable++
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if path != root && w.skipDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}
		rel = filepath.ToSlash(rel)
		if include == nil || include(rel) {
			files = append(files, file{path: path, rel: rel})
		}
		return nil
	})
	if walkErr != nil {
		return int(unreadable), walkErr
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.workers)
	for _, f := range files {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := visit(gctx, f.path, f.rel); err != nil {
				if errors.Is(err, ErrFileUnreadable) {
					w.logger.Warn("skipping unreadable file", "path", f.rel, "error", err)
					atomic.AddInt64(&unreadable, 1)
					return nil
				}
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return int(atomic.LoadInt64(&unreadable)), err
	}
	if err := ctx.Err(); err != nil {
		return int(atomic.LoadInt64(&unreadable)), err
	}
	return int(atomic.LoadInt64(&unreadable)), nil
}
