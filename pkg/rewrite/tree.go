package rewrite

import (
	"context"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Files walks root and returns the paths of the files selected by the
// include patterns, in lexical order.
func (rw *Rewriter) Files(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if rw.Match(filepath.ToSlash(rel)) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

// RewriteFile rewrites the file at src into dst. src and dst may be the
// same path.
func (rw *Rewriter) RewriteFile(src, dst string) (Stats, error) {
	info, err := os.Stat(src)
	if err != nil {
		return Stats{}, err
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return Stats{}, err
	}
	out, stats, err := rw.RewriteSource(src, data)
	if err != nil {
		return stats, err
	}
	if err := os.WriteFile(dst, out, info.Mode().Perm()); err != nil {
		return stats, fmt.Errorf("writing %s: %w", dst, err)
	}
	return stats, nil
}

// RewriteTree copies the directory tree src to dst. Selected files are
// rewritten, the rest are copied unchanged. When dst equals src the
// selected files are rewritten in place and nothing is copied. Files are
// processed concurrently, up to Options.Workers at a time.
func (rw *Rewriter) RewriteTree(ctx context.Context, src, dst string) (Stats, error) {
	src, err := filepath.Abs(src)
	if err != nil {
		return Stats{}, err
	}
	dst, err = filepath.Abs(dst)
	if err != nil {
		return Stats{}, err
	}
	inPlace := src == dst
	if !inPlace {
		if rel, err := filepath.Rel(src, dst); err == nil && !outside(rel) {
			return Stats{}, fmt.Errorf("destination %s is inside source %s", dst, src)
		}
	}

	type job struct {
		rel     string
		rewrite bool
	}
	var jobs []job
	err = filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		if d.IsDir() {
			if inPlace {
				return nil
			}
			return os.MkdirAll(filepath.Join(dst, rel), 0o755)
		}
		if !d.Type().IsRegular() {
			log.Printf("Warning: skipping %s: not a regular file", path)
			return nil
		}
		match := rw.Match(filepath.ToSlash(rel))
		if inPlace && !match {
			return nil
		}
		jobs = append(jobs, job{rel: rel, rewrite: match})
		return nil
	})
	if err != nil {
		return Stats{}, err
	}

	var (
		mu    sync.Mutex
		total Stats
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(rw.opts.Workers)
	for _, j := range jobs {
		if gctx.Err() != nil {
			break
		}
		j := j
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			from, to := filepath.Join(src, j.rel), filepath.Join(dst, j.rel)
			if !j.rewrite {
				return copyFile(from, to)
			}
			stats, err := rw.RewriteFile(from, to)
			mu.Lock()
			total.Add(stats)
			mu.Unlock()
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return total, err
	}
	return total, ctx.Err()
}

func copyFile(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, info.Mode().Perm())
}

// outside reports whether a path relative to some root leaves that root.
func outside(rel string) bool {
	return rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
