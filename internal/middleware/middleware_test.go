package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"framerelay/internal/logger"

	"github.com/google/uuid"
)

func TestCORS_Preflight(t *testing.T) {
	called := false
	h := CORS{}.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/update_stream/cam1", nil))

	if rec.Code != http.StatusNoContent {
		t.Errorf("Expected 204, got %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Errorf("Expected default origin *, got %q", rec.Header().Get("Access-Control-Allow-Origin"))
	}
	if called {
		t.Error("Preflight must not reach the wrapped handler")
	}
}

func TestCORS_SetsOrigin(t *testing.T) {
	h := CORS{AllowOrigin: "https://dashboard.example"}.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusTeapot {
		t.Errorf("Expected wrapped handler status, got %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://dashboard.example" {
		t.Errorf("Unexpected origin %q", got)
	}
}

func TestRequestLog_GeneratesID(t *testing.T) {
	h := RequestLog(logger.NewNop(), http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	id := rec.Header().Get(RequestIDHeader)
	if _, err := uuid.Parse(id); err != nil {
		t.Errorf("Expected generated UUID request id, got %q", id)
	}
	if rec.Body.String() != "ok" {
		t.Errorf("Unexpected body %q", rec.Body.String())
	}
}

func TestRequestLog_KeepsIncomingID(t *testing.T) {
	h := RequestLog(logger.NewNop(), http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	req := httptest.NewRequest(http.MethodGet, "/update_stream/ghost", nil)
	req.Header.Set(RequestIDHeader, "edge-42")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if got := rec.Header().Get(RequestIDHeader); got != "edge-42" {
		t.Errorf("Expected incoming request id, got %q", got)
	}
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected status to pass through, got %d", rec.Code)
	}
}

func TestStatusRecorder(t *testing.T) {
	rec := &statusRecorder{ResponseWriter: httptest.NewRecorder()}
	rec.WriteHeader(http.StatusBadGateway)
	rec.WriteHeader(http.StatusOK)
	rec.Write([]byte("abc"))

	if rec.status != http.StatusBadGateway {
		t.Errorf("Expected first status to stick, got %d", rec.status)
	}
	if rec.bytes != 3 {
		t.Errorf("Expected 3 bytes, got %d", rec.bytes)
	}
}
