package v1

import (
	"net/http"
	"os"

	"github.com/vmunix/vidvault/internal/history"
	"github.com/vmunix/vidvault/internal/library"
)

func (s *Server) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	res, err := s.deps.Library.List(library.Query{
		Search:   q.Get("search"),
		Tag:      q.Get("tag"),
		Category: q.Get("category"),
		Uploader: q.Get("uploader"),
		SortBy:   q.Get("sort_by"),
		Order:    q.Get("order"),
	})
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, listResponse{
		Total:    res.Total,
		Filtered: len(res.Entries),
		Videos:   res.Entries,
		Filters:  res.Filters,
	})
}

func (s *Server) entryFile(w http.ResponseWriter, r *http.Request) {
	entry, err := s.deps.Library.Get(r.PathValue("id"))
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	s.serveFile(w, r, s.deps.Library.MediaPath(entry))
}

func (s *Server) libraryFile(w http.ResponseWriter, r *http.Request) {
	path, err := s.deps.Library.ResolveFile(r.PathValue("filename"))
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	s.serveFile(w, r, path)
}

// serveFile streams path with range and conditional request support.
func (s *Server) serveFile(w http.ResponseWriter, r *http.Request, path string) {
	f, err := os.Open(path)
	if err != nil {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "file not found")
		return
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil || !info.Mode().IsRegular() {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "file not found")
		return
	}
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}

func (s *Server) listHistory(w http.ResponseWriter, r *http.Request) {
	entries, err := s.deps.History.List(history.Filter{
		Run:   queryString(r, "run"),
		Event: queryString(r, "event"),
		Limit: queryInt(r, "limit", 50),
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "DB_ERROR", err.Error())
		return
	}
	if entries == nil {
		entries = []*history.Entry{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"items": entries,
		"total": len(entries),
	})
}
