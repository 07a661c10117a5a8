package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/teemow/litcal-mcp/internal/instrumentation"
	"github.com/teemow/litcal-mcp/internal/litcal"
	"github.com/teemow/litcal-mcp/internal/logging"
)

const (
	entryExt      = ".json"
	tempPattern   = ".*.tmp"
	dirPermission = 0o755
)

// FileStore keeps one JSON file per cache key in a directory. The file
// modification time is the only record of an entry's age.
type FileStore struct {
	dir    string
	expiry time.Duration
	options
}

var _ Store = (*FileStore)(nil)

// NewFileStore creates dir if needed and returns a store whose entries
// expire after expiry. A failure to create the directory wraps ErrCacheDir.
func NewFileStore(dir string, expiry time.Duration, opts ...Option) (*FileStore, error) {
	if err := os.MkdirAll(dir, dirPermission); err != nil {
		return nil, fmt.Errorf("%w %s: %v", ErrCacheDir, dir, err)
	}
	s := &FileStore{
		dir:     dir,
		expiry:  expiry,
		options: defaultOptions(),
	}
	for _, opt := range opts {
		opt(&s.options)
	}
	return s, nil
}

// Dir returns the cache directory.
func (s *FileStore) Dir() string {
	return s.dir
}

// Backend implements Store.
func (s *FileStore) Backend() string {
	return instrumentation.CacheBackendFile
}

// Close implements Store.
func (s *FileStore) Close() error {
	return nil
}

// Path returns the file backing key, or "" if the key cannot name a file
// inside the cache directory.
func (s *FileStore) Path(key litcal.CacheKey) string {
	name := key.Filename()
	if name == "" || strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return ""
	}
	return filepath.Join(s.dir, name+entryExt)
}

// Get implements Store.
func (s *FileStore) Get(ctx context.Context, key litcal.CacheKey) (*litcal.Payload, bool) {
	if ctx.Err() != nil {
		return nil, false
	}
	path := s.Path(key)
	if path == "" {
		s.logger.Warn("refusing cache key that escapes the cache directory", logging.KeyCacheKey, key.String())
		s.record(ctx, key, instrumentation.CacheResultError)
		return nil, false
	}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.record(ctx, key, instrumentation.CacheResultMiss)
			return nil, false
		}
		s.logger.Warn("cannot stat cache entry", logging.KeyPath, path, logging.KeyError, err.Error())
		s.record(ctx, key, instrumentation.CacheResultError)
		return nil, false
	}

	if expired(info.ModTime(), s.now(), s.expiry) {
		s.logger.Debug("cache entry expired", logging.KeyCacheKey, key.String(), "age", s.now().Sub(info.ModTime()).String())
		s.record(ctx, key, instrumentation.CacheResultExpired)
		return nil, false
	}

	data, err := os.ReadFile(path)
	if err != nil {
		s.logger.Warn("cannot read cache entry", logging.KeyPath, path, logging.KeyError, err.Error())
		s.record(ctx, key, instrumentation.CacheResultError)
		return nil, false
	}

	var payload litcal.Payload
	if err := json.Unmarshal(data, &payload); err != nil {
		s.logger.Warn("corrupt cache entry treated as miss", logging.KeyPath, path, logging.KeyError, err.Error())
		s.record(ctx, key, instrumentation.CacheResultError)
		return nil, false
	}

	s.record(ctx, key, instrumentation.CacheResultHit)
	return &payload, true
}

// Put implements Store. The payload is written to a temporary file in the
// cache directory and renamed over the entry, so readers see either the old
// or the new document, never a partial one.
func (s *FileStore) Put(ctx context.Context, key litcal.CacheKey, payload *litcal.Payload) {
	if payload == nil || ctx.Err() != nil {
		return
	}
	path := s.Path(key)
	if path == "" {
		s.logger.Warn("refusing cache key that escapes the cache directory", logging.KeyCacheKey, key.String())
		return
	}

	if err := s.writeAtomic(path, payload); err != nil {
		s.logger.Warn("failed to write cache entry", logging.KeyPath, path, logging.KeyError, err.Error())
		s.metrics.RecordCacheWrite(ctx, instrumentation.CacheBackendFile, instrumentation.StatusError)
		return
	}
	s.logger.Debug("cached calendar data", logging.KeyCacheKey, key.String())
	s.metrics.RecordCacheWrite(ctx, instrumentation.CacheBackendFile, instrumentation.StatusSuccess)
}

func (s *FileStore) writeAtomic(path string, payload *litcal.Payload) (err error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, "."+filepath.Base(path)+tempPattern)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

// Invalidate implements Store. With a nil key every entry is removed,
// together with temp files left behind by interrupted writes.
func (s *FileStore) Invalidate(ctx context.Context, key *litcal.CacheKey) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	if key != nil {
		path := s.Path(*key)
		if path == "" {
			return 0, fmt.Errorf("invalid cache key %q", key.String())
		}
		if err := os.Remove(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				s.logger.Info("no cache entry to clear", logging.KeyCacheKey, key.String())
				return 0, nil
			}
			return 0, fmt.Errorf("remove cache entry %s: %w", path, err)
		}
		s.logger.Info("cleared cache entry", logging.KeyCacheKey, key.String())
		return 1, nil
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, fmt.Errorf("list cache directory %s: %w", s.dir, err)
	}

	var (
		removed int
		errs    []error
	)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		isEntry := strings.HasSuffix(name, entryExt) && !strings.HasPrefix(name, ".")
		isTemp := strings.HasPrefix(name, ".") && strings.HasSuffix(name, ".tmp")
		if !isEntry && !isTemp {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
			continue
		}
		if isEntry {
			removed++
		}
	}
	s.logger.Info("cleared calendar cache", "removed", removed)
	return removed, errors.Join(errs...)
}

func (s *FileStore) record(ctx context.Context, key litcal.CacheKey, result string) {
	s.metrics.RecordCacheLookup(ctx, instrumentation.CacheBackendFile, string(key.CalendarType), key.NormalizedID(), result)
}
