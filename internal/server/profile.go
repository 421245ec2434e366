package server

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"
)

// handleProfile routes /api/auth/profile/{userID} and
// /api/auth/profile/{userID}/avatar.
func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/auth/profile/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	switch {
	case len(parts) == 1 && parts[0] != "":
		s.profileByID(w, r, parts[0])
	case len(parts) == 2 && parts[1] == "avatar":
		s.avatarUpload(w, r, parts[0])
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

type profileUpdateRequest struct {
	Name      *string `json:"name"`
	Bio       *string `json:"bio"`
	AvatarRef *string `json:"avatarRef"`
}

func (s *Server) profileByID(w http.ResponseWriter, r *http.Request, userID string) {
	switch r.Method {
	case http.MethodGet:
		user, ok, err := s.store.GetUserByID(userID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if !ok {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		writeJSON(w, http.StatusOK, profileOf(user))
	case http.MethodPut:
		caller, ok := s.authorize(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		if caller.ID != userID {
			writeError(w, http.StatusForbidden, "cannot edit another user's profile")
			return
		}
		var req profileUpdateRequest
		if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if req.Name != nil {
			name := strings.TrimSpace(*req.Name)
			if name != "" {
				caller.Name = name
			}
		}
		if req.Bio != nil {
			caller.Bio = *req.Bio
		}
		if req.AvatarRef != nil {
			caller.AvatarRef = *req.AvatarRef
		}
		caller.UpdatedAt = time.Now().UTC()
		if err := s.store.SaveUser(caller); err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, authResponse{Message: "profile updated", User: profileOf(caller)})
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) avatarUpload(w http.ResponseWriter, r *http.Request, userID string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	caller, ok := s.authorize(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if caller.ID != userID {
		writeError(w, http.StatusForbidden, "cannot edit another user's profile")
		return
	}
	ref, ok := s.acceptUpload(w, r, "profilePicture", maxAvatarBytes, "profiles/profile")
	if !ok {
		return
	}
	caller.AvatarRef = ref
	caller.UpdatedAt = time.Now().UTC()
	if err := s.store.SaveUser(caller); err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, authResponse{Message: "profile picture updated", User: profileOf(caller)})
}
