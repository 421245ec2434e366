package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"chathub/internal/hub"
	"chathub/internal/presence"
	"chathub/pkg/domain"
	"chathub/pkg/storage"
	"chathub/pkg/store"
)

const strongPassword = "Str0ng!Passw0rd"

func newTestServer(t *testing.T) (*Server, *store.MemoryStore) {
	t.Helper()
	st := store.NewMemoryStore()
	media, err := storage.NewFileStore(t.TempDir(), "/uploads")
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	reg := presence.NewRegistry(st)
	h := hub.New(hub.Config{
		Presence: reg,
		Messages: st,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	return New(Config{
		Store:      st,
		Sessions:   store.NewMemorySessionStore(time.Hour),
		Media:      media,
		Hub:        h,
		UploadsDir: media.BasePath(),
	}), st
}

func doJSON(t *testing.T, s *Server, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, rec.Body.String())
	}
	return out
}

func signupAndLogin(t *testing.T, s *Server, name, email string) (string, publicProfile) {
	t.Helper()
	rec := doJSON(t, s, http.MethodPost, "/api/auth/signup", "", signupRequest{
		Name: name, Email: email, Password: strongPassword,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("signup status = %d, body %s", rec.Code, rec.Body.String())
	}
	rec = doJSON(t, s, http.MethodPost, "/api/auth/login", "", loginRequest{
		Email: email, Password: strongPassword,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d, body %s", rec.Code, rec.Body.String())
	}
	resp := decode[authResponse](t, rec)
	if resp.Token == "" {
		t.Fatal("login returned empty token")
	}
	return resp.Token, resp.User
}

func TestSignupLoginAndListUsers(t *testing.T) {
	s, _ := newTestServer(t)
	token, user := signupAndLogin(t, s, "Alice", "alice@example.com")
	if user.Name != "Alice" || user.Email != "alice@example.com" {
		t.Fatalf("unexpected user %+v", user)
	}
	if user.Bio != defaultBio {
		t.Fatalf("bio = %q, want default", user.Bio)
	}
	_ = token

	rec := doJSON(t, s, http.MethodGet, "/api/auth/users", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("users status = %d", rec.Code)
	}
	users := decode[[]domain.UserSummary](t, rec)
	if len(users) != 1 || users[0].Name != "Alice" {
		t.Fatalf("users = %+v", users)
	}
}

func TestSignupRejectsDuplicateEmail(t *testing.T) {
	s, _ := newTestServer(t)
	signupAndLogin(t, s, "Alice", "alice@example.com")
	rec := doJSON(t, s, http.MethodPost, "/api/auth/signup", "", signupRequest{
		Name: "Other", Email: "Alice@Example.com", Password: strongPassword,
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
}

func TestSignupRejectsWeakPassword(t *testing.T) {
	s, _ := newTestServer(t)
	rec := doJSON(t, s, http.MethodPost, "/api/auth/signup", "", signupRequest{
		Name: "Alice", Email: "alice@example.com", Password: "short",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	s, _ := newTestServer(t)
	signupAndLogin(t, s, "Alice", "alice@example.com")
	rec := doJSON(t, s, http.MethodPost, "/api/auth/login", "", loginRequest{
		Email: "alice@example.com", Password: "Wr0ng!Passw0rd",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestLogoutInvalidatesToken(t *testing.T) {
	s, _ := newTestServer(t)
	token, user := signupAndLogin(t, s, "Alice", "alice@example.com")

	rec := doJSON(t, s, http.MethodPost, "/api/auth/logout", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("logout status = %d", rec.Code)
	}
	rec = doJSON(t, s, http.MethodPut, "/api/auth/profile/"+user.ID, token, profileUpdateRequest{})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status after logout = %d, want 401", rec.Code)
	}
}

func TestProfileReadAndUpdate(t *testing.T) {
	s, _ := newTestServer(t)
	token, user := signupAndLogin(t, s, "Alice", "alice@example.com")

	rec := doJSON(t, s, http.MethodGet, "/api/auth/profile/"+user.ID, "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("profile get status = %d", rec.Code)
	}

	newName := "Alice B"
	newBio := "hello"
	rec = doJSON(t, s, http.MethodPut, "/api/auth/profile/"+user.ID, token, profileUpdateRequest{
		Name: &newName, Bio: &newBio,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("profile put status = %d, body %s", rec.Code, rec.Body.String())
	}
	resp := decode[authResponse](t, rec)
	if resp.User.Name != newName || resp.User.Bio != newBio {
		t.Fatalf("updated user = %+v", resp.User)
	}
}

func TestProfileUpdateOtherUserForbidden(t *testing.T) {
	s, _ := newTestServer(t)
	token, _ := signupAndLogin(t, s, "Alice", "alice@example.com")
	_, bob := signupAndLogin(t, s, "Bob", "bob@example.com")

	name := "Hacked"
	rec := doJSON(t, s, http.MethodPut, "/api/auth/profile/"+bob.ID, token, profileUpdateRequest{Name: &name})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
}

func multipartUpload(t *testing.T, s *Server, path, token, field, filename string, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(field, filename)
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func TestMediaUploadRequiresAuth(t *testing.T) {
	s, _ := newTestServer(t)
	rec := multipartUpload(t, s, "/api/media/upload", "", "media", "pic.png", []byte("png-bytes"))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestMediaUploadAndServe(t *testing.T) {
	s, _ := newTestServer(t)
	token, _ := signupAndLogin(t, s, "Alice", "alice@example.com")

	rec := multipartUpload(t, s, "/api/media/upload", token, "media", "pic.png", []byte("png-bytes"))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	resp := decode[map[string]string](t, rec)
	ref := resp["mediaUrl"]
	if !strings.HasPrefix(ref, "/uploads/media/") {
		t.Fatalf("mediaUrl = %q", ref)
	}

	req := httptest.NewRequest(http.MethodGet, ref, nil)
	get := httptest.NewRecorder()
	s.Router().ServeHTTP(get, req)
	if get.Code != http.StatusOK {
		t.Fatalf("static get status = %d", get.Code)
	}
	body, _ := io.ReadAll(get.Body)
	if string(body) != "png-bytes" {
		t.Fatalf("served body = %q", body)
	}
}

// CreateFormFile declares application/octet-stream for the part; the upload
// must still be accepted when the extension is on the allowlist.
func TestMediaUploadAcceptsOctetStreamDeclaredType(t *testing.T) {
	s, _ := newTestServer(t)
	token, _ := signupAndLogin(t, s, "Alice", "alice@example.com")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("media", "pic.jpg")
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	if _, err := part.Write([]byte("jpeg-bytes")); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/media/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
}

func uploadWithDeclaredType(t *testing.T, s *Server, token, filename, declared string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	partHeader := textproto.MIMEHeader{}
	partHeader.Set("Content-Disposition", fmt.Sprintf(`form-data; name="media"; filename=%q`, filename))
	partHeader.Set("Content-Type", declared)
	part, err := mw.CreatePart(partHeader)
	if err != nil {
		t.Fatalf("CreatePart: %v", err)
	}
	if _, err := part.Write([]byte("bytes")); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/media/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func TestMediaUploadDeclaredTypes(t *testing.T) {
	s, _ := newTestServer(t)
	token, _ := signupAndLogin(t, s, "Alice", "alice@example.com")

	if rec := uploadWithDeclaredType(t, s, token, "pic.png", "image/png"); rec.Code != http.StatusOK {
		t.Fatalf("image/png: status = %d, body %s", rec.Code, rec.Body.String())
	}
	if rec := uploadWithDeclaredType(t, s, token, "pic.png", "text/plain"); rec.Code != http.StatusBadRequest {
		t.Fatalf("text/plain: status = %d, want 400", rec.Code)
	}
}

func TestMediaUploadRejectsNonImage(t *testing.T) {
	s, _ := newTestServer(t)
	token, _ := signupAndLogin(t, s, "Alice", "alice@example.com")
	rec := multipartUpload(t, s, "/api/media/upload", token, "media", "script.exe", []byte("bin"))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestAvatarUploadUpdatesProfile(t *testing.T) {
	s, st := newTestServer(t)
	token, user := signupAndLogin(t, s, "Alice", "alice@example.com")

	path := fmt.Sprintf("/api/auth/profile/%s/avatar", user.ID)
	rec := multipartUpload(t, s, path, token, "profilePicture", "me.jpg", []byte("jpeg-bytes"))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	resp := decode[authResponse](t, rec)
	if !strings.HasPrefix(resp.User.AvatarRef, "/uploads/profiles/") {
		t.Fatalf("avatarRef = %q", resp.User.AvatarRef)
	}
	stored, ok, err := st.GetUserByID(user.ID)
	if err != nil || !ok {
		t.Fatalf("GetUserByID: ok=%v err=%v", ok, err)
	}
	if stored.AvatarRef != resp.User.AvatarRef {
		t.Fatalf("stored avatarRef = %q, want %q", stored.AvatarRef, resp.User.AvatarRef)
	}
}

func TestHealthz(t *testing.T) {
	s, _ := newTestServer(t)
	rec := doJSON(t, s, http.MethodGet, "/healthz", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}
