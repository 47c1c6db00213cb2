package note

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/errgroup"

	"github.com/sgx-labs/notevault/internal/logging"
	"github.com/sgx-labs/notevault/internal/vaulterr"
)

// Store reads and writes note files under a vault root.
type Store struct {
	Root string
}

// NewStore returns a store rooted at the vault directory.
func NewStore(root string) *Store {
	return &Store{Root: root}
}

// NotePath returns the canonical absolute path for a note.
func (s *Store) NotePath(title, uid string) string {
	return filepath.Join(s.Root, FileName(title, uid))
}

// Load reads and parses a single note. Targeted reads are strict by
// default; pass strict=false for bulk scans that tolerate damage.
func (s *Store) Load(path string, strict bool) (*Note, error) {
	var content []byte
	err := retryTransient(func() error {
		var readErr error
		content, readErr = os.ReadFile(path)
		return readErr
	})
	if err != nil {
		if os.IsNotExist(err) {
			return nil, vaulterr.Wrap(vaulterr.FileNotFound, err, "note file %s", path)
		}
		return nil, vaulterr.Wrap(vaulterr.FileReadError, err, "read %s", path)
	}

	fm, body, err := Parse(string(content), strict)
	if err != nil {
		return nil, err
	}
	return &Note{FrontMatter: fm, Body: body, Path: path}, nil
}

// Save writes a note atomically: serialize to a sibling temp file, then
// rename over the target. Updated is refreshed to now and always moves
// strictly past the previous value at serialization granularity, so a
// save in the same instant as the last one still round-trips as newer.
// Parent directories are created as needed.
func (s *Store) Save(n *Note) error {
	if n.Path == "" {
		return vaulterr.New(vaulterr.InvalidFilePath, "note has no path")
	}

	now := time.Now().UTC().Truncate(time.Millisecond)
	if !now.After(n.FrontMatter.Updated) {
		now = n.FrontMatter.Updated.Truncate(time.Millisecond).Add(time.Millisecond)
	}
	n.FrontMatter.Updated = now
	content, err := Serialize(n.FrontMatter, n.Body)
	if err != nil {
		return err
	}

	dir := filepath.Dir(n.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return vaulterr.Wrap(vaulterr.FileWriteError, err, "create directory %s", dir)
	}

	base := filepath.Base(n.Path)
	tmp := filepath.Join(dir, fmt.Sprintf(".%s.tmp.%d.%06d",
		base, time.Now().UnixMilli(), rand.Intn(1_000_000)))

	if err := retryTransient(func() error {
		return os.WriteFile(tmp, []byte(content), 0o644)
	}); err != nil {
		os.Remove(tmp)
		return vaulterr.Wrap(vaulterr.FileWriteError, err, "write %s", tmp)
	}

	if err := retryTransient(func() error {
		return os.Rename(tmp, n.Path)
	}); err != nil {
		os.Remove(tmp)
		return vaulterr.Wrap(vaulterr.FileWriteError, err, "rename %s -> %s", tmp, n.Path)
	}

	s.sweepTempFiles(dir, base)
	return nil
}

// sweepTempFiles removes temp files left behind by interrupted writers.
func (s *Store) sweepTempFiles(dir, base string) {
	stale, err := filepath.Glob(filepath.Join(dir, "."+base+".tmp.*"))
	if err != nil {
		return
	}
	for _, f := range stale {
		if err := os.Remove(f); err == nil {
			logging.Debugf("swept stale temp file %s", f)
		}
	}
}

// Delete unlinks a note file. A missing file counts as success.
func (s *Store) Delete(path string) error {
	err := retryTransient(func() error {
		return os.Remove(path)
	})
	if err != nil && !os.IsNotExist(err) {
		return vaulterr.Wrap(vaulterr.FileWriteError, err, "delete %s", path)
	}
	return nil
}

// FindByUID scans the vault for the note whose front-matter id equals
// uid. Duplicate UIDs are reported; the first encountered wins.
func (s *Store) FindByUID(uid string) (*Note, error) {
	if !ValidUID(uid) {
		return nil, vaulterr.New(vaulterr.InvalidUID, "not a valid UID: %q", uid)
	}

	var found *Note
	for _, path := range s.walk() {
		n, err := s.Load(path, false)
		if err != nil {
			logging.Warnf("skipping unreadable note %s: %v", path, err)
			continue
		}
		if n.FrontMatter.ID != uid {
			continue
		}
		if found != nil {
			logging.Warnf("duplicate UID %s in %s (keeping %s)", uid, path, found.Path)
			continue
		}
		found = n
	}
	if found == nil {
		return nil, vaulterr.New(vaulterr.ResourceNotFound, "no note with UID %s", uid)
	}
	return found, nil
}

// LoadOptions tunes a bulk vault scan.
type LoadOptions struct {
	SkipInvalid bool
	Concurrency int
}

// LoadAll loads every note in the vault using a bounded worker group.
// Malformed files are skipped with a warning when SkipInvalid is set;
// otherwise the first error aborts the scan.
func (s *Store) LoadAll(ctx context.Context, opts LoadOptions) ([]*Note, error) {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 8
	}

	paths := s.walk()

	var (
		mu    sync.Mutex
		notes []*Note
	)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)

	for _, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			n, err := s.Load(path, false)
			if err != nil {
				if opts.SkipInvalid {
					logging.Warnf("skipping invalid note %s: %v", path, err)
					return nil
				}
				return err
			}
			mu.Lock()
			notes = append(notes, n)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return notes, nil
}

// walk returns every markdown file under the root in lexical order,
// skipping dot-directories (including the index sidecar dir).
func (s *Store) walk() []string {
	var paths []string
	filepath.WalkDir(s.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if name := d.Name(); strings.HasPrefix(name, ".") && path != s.Root {
				return filepath.SkipDir
			}
			return nil
		}
		name := d.Name()
		if strings.HasSuffix(name, ".md") && !strings.HasPrefix(name, ".") {
			paths = append(paths, path)
		}
		return nil
	})
	return paths
}

// Transient I/O retry: descriptor exhaustion and busy-file errors get
// three attempts with exponential backoff (100 ms base, 1 s cap);
// everything else fails fast.

const transientAttempts = 3

func retryTransient(op func() error) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 100 * time.Millisecond
	bo.MaxInterval = time.Second
	bo.Multiplier = 2
	bo.RandomizationFactor = 0

	attempt := 0
	return backoff.Retry(func() error {
		attempt++
		err := op()
		if err == nil {
			return nil
		}
		if !isTransient(err) || attempt >= transientAttempts {
			return backoff.Permanent(err)
		}
		return err
	}, bo)
}

func isTransient(err error) bool {
	return errors.Is(err, syscall.EMFILE) ||
		errors.Is(err, syscall.ENFILE) ||
		errors.Is(err, syscall.EBUSY) ||
		errors.Is(err, syscall.EAGAIN)
}
