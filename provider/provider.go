package provider

import (
	"context"
	"io"
	"time"
)

// FileInfo represents the standard metadata for a file held by a source
// repository, across different storage abstractions.
type FileInfo interface {
	// ID is the source-side identifier used to fetch the file's bytes.
	ID() string
	Name() string
	Size() int64
	ModTime() time.Time
	// Description is free-form text attached to the file at the source,
	// empty if the backend has no such concept.
	Description() string
}

// FolderInfo describes a folder in the source repository.
type FolderInfo struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Modified time.Time `json:"modified_time,omitzero"`
}

// Source represents a file repository files are transferred out of.
// A typical Source might be Google Drive or a local directory.
type Source interface {
	// ListFolder returns the files directly contained in the given folder.
	ListFolder(ctx context.Context, folderID string) ([]FileInfo, error)

	// OpenRead opens a file's bytes for streaming reads.
	OpenRead(ctx context.Context, fileID string) (io.ReadCloser, error)
}

// FolderBrowser is implemented by sources that can enumerate and resolve
// folders, for the browsing endpoints and name-based transfer requests.
type FolderBrowser interface {
	// FindFolder resolves a folder ID by its exact name.
	FindFolder(ctx context.Context, name string) (string, error)

	// ListFolders enumerates folders, optionally restricted to a parent
	// folder and a name-contains query.
	ListFolders(ctx context.Context, parentID, query string) ([]FolderInfo, error)

	// FolderPath returns the chain of folders from the root down to the
	// given folder, root first.
	FolderPath(ctx context.Context, folderID string) ([]FolderInfo, error)
}

// Destination represents an object store files are transferred into.
type Destination interface {
	// Put writes the bytes read from r under key, attaching metadata if the
	// backend supports it.
	Put(ctx context.Context, key string, r io.Reader, meta ObjectMetadata) error

	// Ping verifies the destination is reachable and writable enough to
	// start a transfer. Called once per job before any file work.
	Ping(ctx context.Context) error
}
