package server

import (
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"chathub/pkg/domain"
)

const (
	maxAvatarBytes = 5 << 20
	maxMediaBytes  = 10 << 20
)

// Only raster image formats are accepted for uploads.
var allowedImageExts = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
}

func (s *Server) handleMediaUpload(w http.ResponseWriter, r *http.Request, _ domain.User) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	ref, ok := s.acceptUpload(w, r, "media", maxMediaBytes, "media/media")
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"mediaUrl": ref})
}

// acceptUpload reads a single image file from the named multipart field,
// stores it under a fresh key, and returns its public reference. It writes
// the error response itself when the upload is rejected.
func (s *Server) acceptUpload(w http.ResponseWriter, r *http.Request, field string, limit int64, keyPrefix string) (string, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(limit); err != nil {
		writeError(w, http.StatusBadRequest, "file too large or malformed form")
		return "", false
	}
	file, header, err := r.FormFile(field)
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file field "+field)
		return "", false
	}
	defer file.Close()

	ext, contentType, ok := imageType(header)
	if !ok {
		writeError(w, http.StatusBadRequest, "only image files are allowed (jpeg, jpg, png, gif)")
		return "", false
	}
	key := keyPrefix + "-" + uuid.NewString() + ext
	ref, err := s.media.Save(r.Context(), key, file, header.Size, contentType)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to store file")
		return "", false
	}
	return ref, true
}

func imageType(header *multipart.FileHeader) (ext, contentType string, ok bool) {
	ext = strings.ToLower(filepath.Ext(header.Filename))
	contentType, ok = allowedImageExts[ext]
	if !ok {
		return "", "", false
	}
	// The extension allowlist is the gate. Non-browser clients routinely
	// declare application/octet-stream (or nothing) for image parts, so only
	// an explicit non-image declaration is rejected.
	declared := header.Header.Get("Content-Type")
	if declared != "" && declared != "application/octet-stream" && !strings.HasPrefix(declared, "image/") {
		return "", "", false
	}
	return ext, contentType, true
}
