package provider

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// ensure interfaces are implemented
var (
	_ Source      = (*LocalSource)(nil)
	_ Destination = (*LocalDestination)(nil)
)

type localFileInfo struct {
	id      string
	name    string
	size    int64
	modTime time.Time
}

func (l *localFileInfo) ID() string          { return l.id }
func (l *localFileInfo) Name() string        { return l.name }
func (l *localFileInfo) Size() int64         { return l.size }
func (l *localFileInfo) ModTime() time.Time  { return l.modTime }
func (l *localFileInfo) Description() string { return "" }

// LocalSource implements Source over a local directory tree. File IDs are
// paths relative to the base directory. It exists for development runs and
// for exercising the pipeline in tests without a Drive account.
type LocalSource struct {
	basePath string
}

// NewLocalSource creates a LocalSource rooted at basePath.
func NewLocalSource(basePath string) *LocalSource {
	return &LocalSource{basePath: basePath}
}

func (s *LocalSource) resolve(p string) string {
	if p == "" {
		return s.basePath
	}
	return filepath.Join(s.basePath, filepath.Clean(p))
}

// ListFolder returns the regular files directly inside the given folder.
// folderID is a path relative to the base directory; empty means the base
// directory itself.
func (s *LocalSource) ListFolder(ctx context.Context, folderID string) ([]FileInfo, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	dir := s.resolve(folderID)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list folder %q: %w", folderID, err)
	}

	var infos []FileInfo
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue // skip files that disappeared between ReadDir and Info
		}
		infos = append(infos, &localFileInfo{
			id:      filepath.Join(folderID, entry.Name()),
			name:    entry.Name(),
			size:    info.Size(),
			modTime: info.ModTime(),
		})
	}
	return infos, nil
}

// OpenRead opens the file identified by its base-relative path.
func (s *LocalSource) OpenRead(ctx context.Context, fileID string) (io.ReadCloser, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	return os.Open(s.resolve(fileID))
}

// LocalDestination implements Destination over a local directory. Object
// metadata has no filesystem representation, so it is kept in memory and
// exposed through Metadata for inspection.
type LocalDestination struct {
	basePath string

	mu   sync.Mutex
	meta map[string]ObjectMetadata
}

// NewLocalDestination creates a LocalDestination rooted at basePath.
func NewLocalDestination(basePath string) *LocalDestination {
	return &LocalDestination{
		basePath: basePath,
		meta:     make(map[string]ObjectMetadata),
	}
}

// Put writes the bytes under basePath/key, creating parent directories.
func (d *LocalDestination) Put(ctx context.Context, key string, r io.Reader, meta ObjectMetadata) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	fullPath := filepath.Join(d.basePath, filepath.Clean(key))
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return fmt.Errorf("failed to create parent directory: %w", err)
	}

	f, err := os.OpenFile(fullPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("failed to create %q: %w", key, err)
	}

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(fullPath)
		return fmt.Errorf("failed to write %q: %w", key, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %q: %w", key, err)
	}

	d.mu.Lock()
	d.meta[key] = meta
	d.mu.Unlock()
	return nil
}

// Ping verifies the base directory exists and is a directory.
func (d *LocalDestination) Ping(ctx context.Context) error {
	info, err := os.Stat(d.basePath)
	if err != nil {
		return fmt.Errorf("destination directory not reachable: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("destination %q is not a directory", d.basePath)
	}
	return nil
}

// Metadata returns the metadata recorded for a previously put key.
func (d *LocalDestination) Metadata(key string) (ObjectMetadata, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	m, ok := d.meta[key]
	return m, ok
}
