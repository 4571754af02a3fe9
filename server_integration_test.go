package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"tollgate/pkg/anpr"
)

// helper to perform requests with auth token
func performRequest(r http.Handler, method, path string, body io.Reader, token string, contentType string) *httptest.ResponseRecorder {
	// allow callers to pass nil for body safely
	req, _ := http.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func setupTestServer(t *testing.T) *gin.Engine {
	// integration tests are opt-in. Set DB_DSN_TEST=1 and DB_DSN to run them.
	if os.Getenv("DB_DSN_TEST") != "1" {
		t.Skip("integration tests are disabled; set DB_DSN_TEST=1 to enable")
	}
	gin.SetMode(gin.TestMode)
	jwtSecret = []byte("integration-test-secret")
	logger := zerolog.Nop()
	initDB(logger)

	// seed a registry with one funded vehicle before the system boots
	base := t.TempDir()
	t.Setenv("TOLL_BASE", base)
	if err := os.MkdirAll(filepath.Join(base, "config"), 0755); err != nil {
		t.Fatal(err)
	}
	registry := "plate,rfid,balance,type\nTEST01,RFTEST,100.0,car\n"
	if err := os.WriteFile(filepath.Join(base, "config", "registered_vehicles.csv"), []byte(registry), 0644); err != nil {
		t.Fatal(err)
	}

	sys, err := buildSystem(logger)
	if err != nil {
		if errors.Is(err, anpr.ErrOCRUnavailable) {
			t.Skip("tesseract not available on this host")
		}
		t.Fatalf("buildSystem: %v", err)
	}
	r := gin.New()
	setupRoutes(r, sys)
	return r
}

func loginAs(t *testing.T, r http.Handler, username, password string) string {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"username": username, "password": password})
	resp := performRequest(r, http.MethodPost, "/login", bytes.NewBuffer(body), "", "application/json")
	if resp.Code != 200 {
		t.Fatalf("login %s failed status=%d body=%s", username, resp.Code, resp.Body.String())
	}
	var loginResp map[string]any
	_ = json.Unmarshal(resp.Body.Bytes(), &loginResp)
	token, _ := loginResp["token"].(string)
	if token == "" {
		t.Fatalf("empty token in login response: %+v", loginResp)
	}
	return token
}

func TestFullFlow(t *testing.T) {
	r := setupTestServer(t)

	// 1. Health check is open
	resp := performRequest(r, http.MethodGet, "/healthz", nil, "", "")
	if resp.Code != 200 {
		t.Fatalf("healthz failed status=%d body=%s", resp.Code, resp.Body.String())
	}

	// 2. Register a checkpoint operator (409 when a prior run created it)
	username := fmt.Sprintf("operator%d", time.Now().UnixNano())
	regBody, _ := json.Marshal(map[string]string{"username": username, "password": "lane-pass-1"})
	resp = performRequest(r, http.MethodPost, "/register", bytes.NewBuffer(regBody), "", "application/json")
	if resp.Code != 200 && resp.Code != 409 {
		t.Fatalf("register failed status=%d body=%s", resp.Code, resp.Body.String())
	}

	// 3. Login as the operator
	token := loginAs(t, r, username, "lane-pass-1")

	// 4. Protected endpoints reject missing tokens
	unauth := performRequest(r, http.MethodGet, "/api/v1/vehicles/TEST01", nil, "", "")
	if unauth.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", unauth.Code)
	}

	// 5. Vehicle lookup by plate
	resp = performRequest(r, http.MethodGet, "/api/v1/vehicles/TEST01", nil, token, "")
	if resp.Code != 200 {
		t.Fatalf("vehicle lookup failed status=%d body=%s", resp.Code, resp.Body.String())
	}
	var vehicle map[string]any
	_ = json.Unmarshal(resp.Body.Bytes(), &vehicle)
	if vehicle["balance"] != "100.00" {
		t.Fatalf("unexpected balance: %+v", vehicle)
	}

	// 6. Lookup by RFID resolves the same account
	resp = performRequest(r, http.MethodGet, "/api/v1/vehicles/RFTEST", nil, token, "")
	if resp.Code != 200 {
		t.Fatalf("rfid lookup failed status=%d body=%s", resp.Code, resp.Body.String())
	}

	// 7. Top-up requires the administrator role
	topupBody, _ := json.Marshal(map[string]string{"amount": "25.00"})
	resp = performRequest(r, http.MethodPost, "/api/v1/vehicles/TEST01/topup", bytes.NewBuffer(topupBody), token, "application/json")
	if resp.Code != http.StatusForbidden {
		t.Fatalf("operator top-up should be 403, got %d body=%s", resp.Code, resp.Body.String())
	}
	adminToken := loginAs(t, r, "admin", "admin123")
	topupBody, _ = json.Marshal(map[string]string{"amount": "25.00"})
	resp = performRequest(r, http.MethodPost, "/api/v1/vehicles/TEST01/topup", bytes.NewBuffer(topupBody), adminToken, "application/json")
	if resp.Code != 200 {
		t.Fatalf("admin top-up failed status=%d body=%s", resp.Code, resp.Body.String())
	}
	var topup map[string]any
	_ = json.Unmarshal(resp.Body.Bytes(), &topup)
	if topup["balance"] != "125.00" {
		t.Fatalf("unexpected post-topup balance: %+v", topup)
	}

	// 8. Undecodable frame upload is rejected as an invalid image
	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	w, _ := mw.CreateFormFile("frame", "frame.jpg")
	_, _ = w.Write([]byte("NOT AN IMAGE"))
	_ = mw.Close()
	resp = performRequest(r, http.MethodPost, "/api/v1/captures", buf, token, mw.FormDataContentType())
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("garbage frame should be 400, got %d body=%s", resp.Code, resp.Body.String())
	}

	// 9. Transaction archive query
	resp = performRequest(r, http.MethodGet, "/api/v1/transactions?vehicle=TEST01", nil, token, "")
	if resp.Code != 200 {
		t.Fatalf("transactions query failed status=%d body=%s", resp.Code, resp.Body.String())
	}
}

func TestMigrateCommand(t *testing.T) {
	if os.Getenv("DB_DSN_TEST") != "1" {
		t.Skip("integration tests are disabled; set DB_DSN_TEST=1 to enable")
	}
	initDB(zerolog.Nop())
}
