package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/datasetops/shuttle/engine"
	"github.com/datasetops/shuttle/provider"
)

// transferRequestJSON is the POST /transfer body. folder_name is resolved
// to an ID when folder_id is empty; rank defaults to the folder name.
type transferRequestJSON struct {
	FolderID    string `json:"folder_id"`
	FolderName  string `json:"folder_name"`
	Rank        string `json:"rank"`
	CaptureDate string `json:"capture_date"`
	Category    string `json:"category"`
	Description string `json:"description"`
}

// fileJSON is the JSON representation of a source file.
type fileJSON struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Size     int64     `json:"size"`
	Modified time.Time `json:"modified_time,omitzero"`
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		s.writeError(w, http.StatusNotFound, "not found")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status":  "alive",
		"service": "shuttle transfer service",
	})
}

// handleTransfer creates a job and starts its pipeline.
func (s *Server) handleTransfer(w http.ResponseWriter, r *http.Request) {
	var req transferRequestJSON
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	if req.FolderID == "" && req.FolderName != "" {
		browser, ok := s.source.(provider.FolderBrowser)
		if !ok {
			s.writeError(w, http.StatusBadRequest, "source cannot resolve folders by name, pass folder_id")
			return
		}
		id, err := browser.FindFolder(r.Context(), req.FolderName)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		req.FolderID = id
	}
	if req.FolderID == "" {
		s.writeError(w, http.StatusBadRequest, "folder_id or folder_name is required")
		return
	}

	rank := req.Rank
	if rank == "" {
		rank = req.FolderName
	}
	if rank == "" {
		rank = "unsorted"
	}

	job := s.manager.CreateJob()
	err := s.scheduler.Start(job.ID, engine.TransferRequest{
		FolderID: req.FolderID,
		Rank:     rank,
		Meta: provider.ObjectMetadata{
			CaptureDate: req.CaptureDate,
			Category:    req.Category,
			Description: req.Description,
		},
	})
	if err != nil {
		s.logger.Error("failed to start transfer", "job_id", job.ID, "error", err)
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.writeJSON(w, http.StatusAccepted, map[string]string{
		"job_id": job.ID,
		"status": string(job.Status),
	})
}

// handleStatus returns one job snapshot.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("job_id")

	job, err := s.manager.Get(jobID)
	if err != nil {
		if errors.Is(err, engine.ErrJobNotFound) {
			s.writeError(w, http.StatusNotFound, "job not found")
			return
		}
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, job)
}

// handleJobs returns all job snapshots in creation order.
func (s *Server) handleJobs(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"jobs": s.manager.List(),
	})
}

// handleFolders lists source folders, optionally filtered by parent and a
// name-contains query.
func (s *Server) handleFolders(w http.ResponseWriter, r *http.Request) {
	browser, ok := s.source.(provider.FolderBrowser)
	if !ok {
		s.writeError(w, http.StatusNotImplemented, "source does not support folder browsing")
		return
	}

	folders, err := browser.ListFolders(r.Context(), r.URL.Query().Get("parent_id"), r.URL.Query().Get("query"))
	if err != nil {
		s.logger.Warn("failed to list folders", "error", err)
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if folders == nil {
		folders = []provider.FolderInfo{}
	}
	s.writeJSON(w, http.StatusOK, folders)
}

// handleFolderPath returns the chain of folders from the root down to the
// requested folder.
func (s *Server) handleFolderPath(w http.ResponseWriter, r *http.Request) {
	browser, ok := s.source.(provider.FolderBrowser)
	if !ok {
		s.writeError(w, http.StatusNotImplemented, "source does not support folder browsing")
		return
	}

	folderID := r.PathValue("folder_id")
	path, err := browser.FolderPath(r.Context(), folderID)
	if err != nil {
		s.logger.Warn("failed to resolve folder path", "folder_id", folderID, "error", err)
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if path == nil {
		path = []provider.FolderInfo{}
	}
	s.writeJSON(w, http.StatusOK, path)
}

// handleFolderContents lists the files in one source folder.
func (s *Server) handleFolderContents(w http.ResponseWriter, r *http.Request) {
	folderID := r.PathValue("folder_id")

	infos, err := s.source.ListFolder(r.Context(), folderID)
	if err != nil {
		s.logger.Warn("failed to list folder contents", "folder_id", folderID, "error", err)
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	files := make([]fileJSON, 0, len(infos))
	for _, info := range infos {
		files = append(files, fileJSON{
			ID:       info.ID(),
			Name:     info.Name(),
			Size:     info.Size(),
			Modified: info.ModTime(),
		})
	}
	s.writeJSON(w, http.StatusOK, files)
}
