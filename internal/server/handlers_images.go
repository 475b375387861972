package server

import (
	"net/http"

	"patlogger/internal/domain"
)

// handleImagePath serves /images/{blobID} plus the admin audit listings.
// A blob link carries an unguessable UUID and needs no session, matching
// the certificate short link.
func (s *Server) handleImagePath(w http.ResponseWriter, r *http.Request) {
	head, tail := pathSuffix(r.URL.Path, "/images/")
	if head == "" || tail != "" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}

	switch head {
	case "all":
		s.adminOnly(func(w http.ResponseWriter, r *http.Request, _ domain.User) {
			blobs, err := s.app.ListAllBlobs()
			if err != nil {
				writeError(w, http.StatusInternalServerError, "internal error")
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"items": blobs, "count": len(blobs)})
		}).ServeHTTP(w, r)
	case "orphaned":
		s.adminOnly(func(w http.ResponseWriter, r *http.Request, _ domain.User) {
			blobs, err := s.app.ListOrphanedBlobs()
			if err != nil {
				writeError(w, http.StatusInternalServerError, "internal error")
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"items": blobs, "count": len(blobs)})
		}).ServeHTTP(w, r)
	default:
		s.serveBlob(w, r, head)
	}
}

// serveBlob redirects to a presigned object URL when the backend can
// issue one, otherwise streams the bytes directly.
func (s *Server) serveBlob(w http.ResponseWriter, r *http.Request, blobID string) {
	url, data, contentType, err := s.app.BlobLocation(r.Context(), blobID)
	if err != nil {
		s.handleAppError(w, r, err)
		return
	}
	if url != "" {
		http.Redirect(w, r, url, http.StatusFound)
		return
	}
	w.Header().Set("Content-Type", contentType)
	_, _ = w.Write(data)
}
