package http

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"path"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Isaacolagoke/Testai/internal/apierr"
	"github.com/Isaacolagoke/Testai/internal/storage"
)

// MountFiles serves stored objects at GET /*. It backs the public URLs of
// the filesystem blob store.
func MountFiles(r chi.Router, bs storage.BlobStore, rs *Responder) {
	r.Get("/*", func(w http.ResponseWriter, r *http.Request) {
		key := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
		rc, err := bs.Get(r.Context(), key)
		if err != nil {
			if !errors.Is(err, storage.ErrNotFound) {
				rs.Log.Warn("file fetch failed", "key", key, "error", err.Error())
			}
			rs.Error(w, r, apierr.NotFound("File not found"))
			return
		}
		defer rc.Close()
		ct := mime.TypeByExtension(path.Ext(key))
		if ct == "" {
			ct = "application/octet-stream"
		}
		w.Header().Set("Content-Type", ct)
		_, _ = io.Copy(w, rc)
	})
}
