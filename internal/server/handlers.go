package server

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/nimbusfs/azfs/internal/errs"
	"github.com/nimbusfs/azfs/internal/fsys"
)

type entryJSON struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
	Type string `json:"type"`
}

type errorJSON struct {
	Error string `json:"error"`
}

func toEntryJSON(entries []fsys.Entry) []entryJSON {
	out := make([]entryJSON, len(entries))
	for i, e := range entries {
		out[i] = entryJSON{Name: e.Name, Size: e.Size, Type: e.Kind.String()}
	}
	return out
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Errorf("encode response: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	s.writeJSON(w, httpStatus(err), errorJSON{Error: err.Error()})
}

// pathParam reads the required path query parameter.
func pathParam(r *http.Request) (string, error) {
	p := r.URL.Query().Get("path")
	if p == "" {
		return "", errs.New(errs.ErrKindInvalidInput, "missing path parameter")
	}
	return p, nil
}

func (s *Server) handleContainers(w http.ResponseWriter, r *http.Request) {
	entries, err := s.fs.Ls(r.Context(), "")
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toEntryJSON(entries))
}

func (s *Server) handleLs(w http.ResponseWriter, r *http.Request) {
	path, err := pathParam(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	entries, err := s.fs.Ls(r.Context(), path)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if r.URL.Query().Get("detail") == "false" {
		names := make([]string, len(entries))
		for i, e := range entries {
			names[i] = e.Name
		}
		s.writeJSON(w, http.StatusOK, names)
		return
	}
	s.writeJSON(w, http.StatusOK, toEntryJSON(entries))
}

func (s *Server) handleFind(w http.ResponseWriter, r *http.Request) {
	path, err := pathParam(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	maxdepth := fsys.NoDepthLimit
	if raw := r.URL.Query().Get("maxdepth"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			s.writeError(w, errs.Newf(errs.ErrKindInvalidInput, "bad maxdepth %q", raw))
			return
		}
		maxdepth = n
	}
	withDirs := r.URL.Query().Get("dirs") == "true"

	entries, err := s.fs.Find(r.Context(), path, fsys.FindOptions{MaxDepth: maxdepth, WithDirs: withDirs})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toEntryJSON(entries))
}

func (s *Server) handleGlob(w http.ResponseWriter, r *http.Request) {
	pattern := r.URL.Query().Get("pattern")
	if pattern == "" {
		s.writeError(w, errs.New(errs.ErrKindInvalidInput, "missing pattern parameter"))
		return
	}
	paths, err := s.fs.Glob(r.Context(), pattern)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if paths == nil {
		paths = []string{}
	}
	s.writeJSON(w, http.StatusOK, paths)
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	path, err := pathParam(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	f, err := s.fs.Open(r.Context(), path, nil)
	if err != nil {
		s.writeError(w, err)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Length", strconv.FormatInt(f.Size(), 10))
	if _, err := io.Copy(w, f); err != nil {
		// Headers are gone; all we can do is log.
		s.log.Errorf("stream %q: %v", path, err)
	}
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	path, err := pathParam(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	f, err := s.fs.Open(r.Context(), path, &fsys.OpenOptions{Mode: fsys.ModeWrite})
	if err != nil {
		s.writeError(w, err)
		return
	}

	written, err := io.Copy(f, r.Body)
	if err != nil {
		f.Close()
		s.writeError(w, err)
		return
	}
	if err := f.Close(); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, map[string]any{"path": path, "size": written})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	path, err := pathParam(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.fs.RmFile(r.Context(), path); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
