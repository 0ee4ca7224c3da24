package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// ensure interfaces are implemented
var (
	_ Source        = (*DriveSource)(nil)
	_ FolderBrowser = (*DriveSource)(nil)
)

const folderMimeType = "application/vnd.google-apps.folder"

// listPageSize is the page size used for Drive list calls.
const listPageSize = 100

type driveFileInfo struct {
	id          string
	name        string
	size        int64
	modTime     time.Time
	description string
}

func (f *driveFileInfo) ID() string          { return f.id }
func (f *driveFileInfo) Name() string        { return f.name }
func (f *driveFileInfo) Size() int64         { return f.size }
func (f *driveFileInfo) ModTime() time.Time  { return f.modTime }
func (f *driveFileInfo) Description() string { return f.description }

// DriveSource lists and reads files from Google Drive using a service
// account. Credentials and transport details live in the Drive client; this
// type only maps the Drive file model onto the Source contract.
type DriveSource struct {
	svc *drive.Service
}

// NewDriveSource creates a DriveSource authenticated with the given service
// account credentials file.
func NewDriveSource(ctx context.Context, credentialsFile string) (*DriveSource, error) {
	svc, err := drive.NewService(ctx,
		option.WithCredentialsFile(credentialsFile),
		option.WithScopes(drive.DriveReadonlyScope),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize drive service: %w", err)
	}
	return &DriveSource{svc: svc}, nil
}

// NewDriveSourceFromService wraps an already-built Drive service. Useful for
// tests and callers that manage credentials themselves.
func NewDriveSourceFromService(svc *drive.Service) *DriveSource {
	return &DriveSource{svc: svc}
}

// ListFolder returns the files directly contained in folderID. Sub-folders
// are not descended into.
func (s *DriveSource) ListFolder(ctx context.Context, folderID string) ([]FileInfo, error) {
	q := fmt.Sprintf("'%s' in parents and trashed = false and mimeType != '%s'", folderID, folderMimeType)

	var infos []FileInfo
	pageToken := ""
	for {
		call := s.svc.Files.List().
			Q(q).
			PageSize(listPageSize).
			Fields(googleapi.Field("nextPageToken, files(id, name, size, modifiedTime, description)")).
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		res, err := call.Do()
		if err != nil {
			return nil, fmt.Errorf("failed to list folder %s: %w", folderID, err)
		}

		for _, f := range res.Files {
			infos = append(infos, &driveFileInfo{
				id:          f.Id,
				name:        f.Name,
				size:        f.Size,
				modTime:     parseDriveTime(f.ModifiedTime),
				description: f.Description,
			})
		}

		pageToken = res.NextPageToken
		if pageToken == "" {
			break
		}
	}

	return infos, nil
}

// OpenRead opens a streaming download of the file's media content.
func (s *DriveSource) OpenRead(ctx context.Context, fileID string) (io.ReadCloser, error) {
	res, err := s.svc.Files.Get(fileID).Context(ctx).Download()
	if err != nil {
		return nil, fmt.Errorf("failed to download file %s: %w", fileID, err)
	}
	return res.Body, nil
}

// FindFolder resolves a folder ID by its exact name.
func (s *DriveSource) FindFolder(ctx context.Context, name string) (string, error) {
	q := fmt.Sprintf("mimeType = '%s' and name = '%s' and trashed = false", folderMimeType, name)

	res, err := s.svc.Files.List().
		Q(q).
		PageSize(1).
		Fields(googleapi.Field("files(id, name)")).
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("failed to find folder %q: %w", name, err)
	}
	if len(res.Files) == 0 {
		return "", fmt.Errorf("folder not found: %s", name)
	}
	return res.Files[0].Id, nil
}

// ListFolders enumerates folders, optionally restricted to a parent folder
// and a name-contains query.
func (s *DriveSource) ListFolders(ctx context.Context, parentID, query string) ([]FolderInfo, error) {
	q := fmt.Sprintf("mimeType = '%s' and trashed = false", folderMimeType)
	if query != "" {
		q += fmt.Sprintf(" and name contains '%s'", query)
	}
	if parentID != "" {
		q += fmt.Sprintf(" and '%s' in parents", parentID)
	}

	var folders []FolderInfo
	pageToken := ""
	for {
		call := s.svc.Files.List().
			Q(q).
			PageSize(listPageSize).
			Fields(googleapi.Field("nextPageToken, files(id, name, modifiedTime)")).
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		res, err := call.Do()
		if err != nil {
			return nil, fmt.Errorf("failed to list folders: %w", err)
		}

		for _, f := range res.Files {
			folders = append(folders, FolderInfo{
				ID:       f.Id,
				Name:     f.Name,
				Modified: parseDriveTime(f.ModifiedTime),
			})
		}

		pageToken = res.NextPageToken
		if pageToken == "" {
			break
		}
	}

	return folders, nil
}

// FolderPath walks parent links from the given folder up to the root and
// returns the chain root first. Parents the credentials cannot see end the
// walk instead of failing it.
func (s *DriveSource) FolderPath(ctx context.Context, folderID string) ([]FolderInfo, error) {
	var path []FolderInfo
	currentID := folderID
	for currentID != "" {
		f, err := s.svc.Files.Get(currentID).
			Fields(googleapi.Field("id, name, parents")).
			Context(ctx).
			Do()
		if err != nil {
			var gerr *googleapi.Error
			if errors.As(err, &gerr) && gerr.Code == 404 {
				break
			}
			return nil, fmt.Errorf("failed to resolve folder %s: %w", currentID, err)
		}

		path = append([]FolderInfo{{ID: f.Id, Name: f.Name}}, path...)

		currentID = ""
		if len(f.Parents) > 0 {
			currentID = f.Parents[0]
		}
	}
	return path, nil
}

// parseDriveTime parses the RFC3339 timestamps the Drive API returns. A zero
// time is returned for missing or malformed values.
func parseDriveTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
