package server

import (
	"bili-downloader/app/config"
	"bili-downloader/app/database"
	"bili-downloader/app/logger"
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

type apiResponse struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		Server: config.ServerConfig{Port: "0", Username: "admin", Password: "secret"},
		JWT:    config.JWTConfig{Secret: "test-secret", ExpireTime: 1, Issuer: "test"},
		Bilibili: config.BilibiliConfig{
			WebBase:         "http://127.0.0.1:1",
			APIBase:         "http://127.0.0.1:1",
			Timeout:         time.Second,
			RequestInterval: time.Millisecond,
			TierCacheTTL:    time.Minute,
		},
		Download: config.DownloadConfig{Path: t.TempDir(), IsFolder: true, MaxConcurrent: 3},
	}
	log := logger.NewNop()

	db, err := database.Open(filepath.Join(t.TempDir(), "server.db"))
	if err != nil {
		t.Fatalf("database.Open() error = %v", err)
	}
	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("AutoMigrate() error = %v", err)
	}
	if err := database.InitAdminUser(db, cfg, log); err != nil {
		t.Fatalf("InitAdminUser() error = %v", err)
	}
	if err := database.InitSettings(db, cfg, log); err != nil {
		t.Fatalf("InitSettings() error = %v", err)
	}

	s, err := New(cfg, db, log)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() {
		s.resolve.Close()
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return s
}

func call(t *testing.T, s *Server, method, path, token string, body any) (*httptest.ResponseRecorder, apiResponse) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	var resp apiResponse
	json.Unmarshal(w.Body.Bytes(), &resp)
	return w, resp
}

func login(t *testing.T, s *Server) string {
	t.Helper()
	w, resp := call(t, s, http.MethodPost, "/api/auth/login", "", map[string]string{"username": "admin", "password": "secret"})
	if w.Code != http.StatusOK {
		t.Fatalf("login status = %d, body = %s", w.Code, w.Body.String())
	}
	var data struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(resp.Data, &data); err != nil || data.Token == "" {
		t.Fatalf("login response = %s", w.Body.String())
	}
	return data.Token
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	s := newTestServer(t)

	w, _ := call(t, s, http.MethodGet, "/api/settings", "", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, expected 401", w.Code)
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("response has no request id")
	}

	w, _ = call(t, s, http.MethodPost, "/api/auth/login", "", map[string]string{"username": "admin", "password": "wrong"})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong password status = %d, expected 401", w.Code)
	}
}

func TestSettingsAndTaskRoutes(t *testing.T) {
	s := newTestServer(t)
	token := login(t, s)

	w, resp := call(t, s, http.MethodGet, "/api/me", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("/api/me status = %d", w.Code)
	}

	w, resp = call(t, s, http.MethodPut, "/api/settings", token, map[string]any{"max_concurrent": 5, "is_folder": false})
	if w.Code != http.StatusOK {
		t.Fatalf("PUT /api/settings status = %d, body = %s", w.Code, w.Body.String())
	}
	var settings struct {
		MaxConcurrent int  `json:"max_concurrent"`
		IsFolder      bool `json:"is_folder"`
	}
	json.Unmarshal(resp.Data, &settings)
	if settings.MaxConcurrent != 5 || settings.IsFolder {
		t.Errorf("settings = %+v", settings)
	}

	w, _ = call(t, s, http.MethodPut, "/api/settings", token, map[string]any{"max_concurrent": 0})
	if w.Code != http.StatusBadRequest {
		t.Errorf("invalid settings status = %d, expected 400", w.Code)
	}

	w, resp = call(t, s, http.MethodGet, "/api/tasks", token, nil)
	if w.Code != http.StatusOK || string(resp.Data) != "[]" {
		t.Errorf("GET /api/tasks = %d %s", w.Code, resp.Data)
	}
	w, _ = call(t, s, http.MethodGet, "/api/tasks?status=x", token, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("invalid status filter = %d, expected 400", w.Code)
	}
	w, _ = call(t, s, http.MethodDelete, "/api/tasks/missing", token, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("DELETE missing task = %d, expected 404", w.Code)
	}
	w, _ = call(t, s, http.MethodDelete, "/api/tasks", token, nil)
	if w.Code != http.StatusOK {
		t.Errorf("DELETE /api/tasks = %d, expected 200", w.Code)
	}
}

func TestParseRejectsUnsupportedURL(t *testing.T) {
	s := newTestServer(t)
	token := login(t, s)

	w, resp := call(t, s, http.MethodPost, "/api/video/parse", token, map[string]string{"url": "https://www.bilibili.com/read/cv1"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, expected 400", w.Code)
	}
	var data struct {
		Error string `json:"error"`
	}
	json.Unmarshal(resp.Data, &data)
	if data.Error != "UNSUPPORTED_URL" {
		t.Errorf("error = %q, expected UNSUPPORTED_URL", data.Error)
	}
}

func TestRefreshRejectsFreshToken(t *testing.T) {
	s := newTestServer(t)
	token := login(t, s)

	w, _ := call(t, s, http.MethodPost, "/api/auth/refresh", token, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("refresh with fresh token status = %d, expected 400", w.Code)
	}
	w, _ = call(t, s, http.MethodPost, "/api/auth/refresh", "", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("refresh without token status = %d, expected 401", w.Code)
	}
}
