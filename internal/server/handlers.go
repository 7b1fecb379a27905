package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/hyperjump/textract/internal/config"
	"github.com/hyperjump/textract/internal/export"
	"github.com/hyperjump/textract/internal/models"
	"github.com/hyperjump/textract/internal/session"
	"go.uber.org/zap"
)

const (
	msgNothingToExport = "No text to save."
	msgSaved           = "File saved successfully."
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	counts := map[models.ItemState]int{}
	for _, it := range s.session.Items() {
		counts[it.State]++
	}
	resp := map[string]interface{}{
		"session":   s.session.ID(),
		"extracted": counts[models.StateExtracted],
		"failed":    counts[models.StateFailed],
		"pending":   counts[models.StatePending],
	}
	if s.watch != nil {
		resp["watch_directories"] = s.watch.Directories()
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListFiles(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"session": s.session.ID(),
		"items":   s.session.Items(),
	})
}

type addFilesRequest struct {
	Paths []string `json:"paths"`
}

func (s *Server) handleAddFiles(w http.ResponseWriter, r *http.Request) {
	var req addFilesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Paths) == 0 {
		s.respondError(w, http.StatusBadRequest, "paths is required")
		return
	}
	s.logger.Debug("add files request", zap.Strings("paths", req.Paths))
	res, err := s.session.Add(r.Context(), req.Paths)
	if err != nil {
		s.respondError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, res)
}

// handleRemoveFiles removes one file when ?path= is given, otherwise clears the session.
func (s *Server) handleRemoveFiles(w http.ResponseWriter, r *http.Request) {
	if path := r.URL.Query().Get("path"); path != "" {
		if !s.session.Remove(r.Context(), path) {
			s.respondError(w, http.StatusNotFound, "file not selected")
			return
		}
		s.respondJSON(w, http.StatusOK, map[string]string{"path": path, "status": "removed"})
		return
	}
	s.session.Clear(r.Context())
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", export.FormatText.ContentType())
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(s.session.Preview()))
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := q.Get("q")
	if query == "" {
		s.respondError(w, http.StatusBadRequest, "q is required")
		return
	}
	limit := 10
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			s.respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	fuzzy := false
	if v := q.Get("fuzzy"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "fuzzy must be a boolean")
			return
		}
		fuzzy = b
	}
	s.logger.Debug("search request", zap.String("query", query), zap.Int("limit", limit), zap.Bool("fuzzy", fuzzy))
	res, err := s.session.Search(r.Context(), query, limit, fuzzy)
	if err != nil {
		if errors.Is(err, session.ErrSearchDisabled) {
			s.respondError(w, http.StatusNotImplemented, err.Error())
			return
		}
		s.logger.Error("search failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, res)
}

type exportRequest struct {
	Format      string `json:"format"`
	Destination string `json:"destination"`
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	var req exportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Destination == "" {
		s.respondError(w, http.StatusBadRequest, "destination is required")
		return
	}
	format := export.FormatFromPath(req.Destination)
	if req.Format != "" {
		f, err := export.ParseFormat(req.Format)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		format = f
	}
	dest, err := filepath.Abs(req.Destination)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid destination")
		return
	}
	err = s.session.Export(format, dest)
	switch {
	case errors.Is(err, export.ErrNothingToExport):
		s.respondJSON(w, http.StatusOK, map[string]string{"status": "empty", "message": msgNothingToExport})
	case err != nil:
		s.respondError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to save file: %v", err))
	default:
		s.respondJSON(w, http.StatusOK, map[string]string{
			"status":      "saved",
			"message":     msgSaved,
			"format":      string(format),
			"destination": dest,
		})
	}
}

// handleDownload renders the export in memory so a failure can still be reported as JSON.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(chi.URLParam(r, "format"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	var buf bytes.Buffer
	err = s.session.WriteTo(&buf, format)
	if errors.Is(err, export.ErrNothingToExport) {
		s.respondJSON(w, http.StatusOK, map[string]string{"status": "empty", "message": msgNothingToExport})
		return
	}
	if err != nil {
		s.logger.Error("download failed", zap.String("format", string(format)), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to save file: %v", err))
		return
	}
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="textract%s"`, format.Extension()))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (s *Server) handleWatchDirectoriesList(w http.ResponseWriter, r *http.Request) {
	if s.watch == nil {
		s.respondError(w, http.StatusNotImplemented, "watch not enabled")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"directories": s.watch.Directories()})
}

type watchAddRequest struct {
	Path string `json:"path"`
	Sync *bool  `json:"sync,omitempty"`
}

func (s *Server) handleWatchDirectoriesAdd(w http.ResponseWriter, r *http.Request) {
	if s.watch == nil {
		s.respondError(w, http.StatusNotImplemented, "watch not enabled")
		return
	}
	var req watchAddRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Path == "" {
		s.respondError(w, http.StatusBadRequest, "path is required")
		return
	}
	abs, err := filepath.Abs(req.Path)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid path")
		return
	}
	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			s.respondError(w, http.StatusNotFound, "directory not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !info.IsDir() {
		s.respondError(w, http.StatusBadRequest, "path is not a directory")
		return
	}
	syncExisting := true
	if req.Sync != nil {
		syncExisting = *req.Sync
	}
	s.logger.Debug("watch add directory request", zap.String("path", abs), zap.Bool("sync_existing", syncExisting))
	if err := s.watch.AddDirectory(abs, syncExisting); err != nil {
		s.logger.Error("watch add directory failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.persistWatchDirectories(abs, "")
	s.respondJSON(w, http.StatusCreated, map[string]string{"path": abs, "status": "added"})
}

func (s *Server) handleWatchDirectoriesRemove(w http.ResponseWriter, r *http.Request) {
	if s.watch == nil {
		s.respondError(w, http.StatusNotImplemented, "watch not enabled")
		return
	}
	path := r.URL.Query().Get("path")
	if path == "" {
		var body struct {
			Path string `json:"path"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err == nil && body.Path != "" {
			path = body.Path
		}
	}
	if path == "" {
		s.respondError(w, http.StatusBadRequest, "path is required (query or body)")
		return
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid path")
		return
	}
	s.logger.Debug("watch remove directory request", zap.String("path", abs))
	if err := s.watch.RemoveDirectory(abs); err != nil {
		s.logger.Error("watch remove directory failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.persistWatchDirectories("", abs)
	s.respondJSON(w, http.StatusOK, map[string]string{"path": abs, "status": "removed"})
}

// persistWatchDirectories applies one API change to the configured directories and
// saves them. Directories watched only for this run (textract watch <dirs>) are not
// written to the config file.
func (s *Server) persistWatchDirectories(added, removed string) {
	if s.configPath == "" || s.watchConfig == nil {
		return
	}
	s.watchConfigMu.Lock()
	defer s.watchConfigMu.Unlock()
	var dirs []string
	present := false
	for _, d := range s.watchConfig.Watch.Directories {
		clean := filepath.Clean(d)
		if removed != "" && clean == filepath.Clean(removed) {
			continue
		}
		if added != "" && clean == filepath.Clean(added) {
			present = true
		}
		dirs = append(dirs, d)
	}
	if added != "" && !present {
		dirs = append(dirs, added)
	}
	s.watchConfig.Watch.Directories = dirs
	if err := config.Save(s.configPath, s.watchConfig); err != nil {
		s.logger.Warn("failed to persist watch config", zap.Error(err))
	}
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
