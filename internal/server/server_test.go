package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"gocv.io/x/gocv"

	"github.com/ayusman/ringfit/internal/capture"
	"github.com/ayusman/ringfit/internal/detector"
	"github.com/ayusman/ringfit/internal/material"
	"github.com/ayusman/ringfit/internal/tryon"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// newTryOn builds a controller over a mock camera and mock detector. The
// manual scheduler never fires, so no detection runs unless a test steps it.
func newTryOn(t *testing.T) (*tryon.Controller, *capture.MockCamera) {
	t.Helper()

	frame := gocv.NewMatWithSize(48, 64, gocv.MatTypeCV8UC3)
	t.Cleanup(func() { frame.Close() })

	cam := capture.NewMockCamera([]*gocv.Mat{&frame})
	det := detector.NewMockDetector()
	ctrl := tryon.New(tryon.Options{
		Camera: cam,
		NewSource: func() detector.Source {
			return detector.NewAsyncSource(func(detector.Config) (detector.Detector, error) {
				return det, nil
			})
		},
		Scheduler: tryon.NewManualScheduler(),
	})
	t.Cleanup(func() { ctrl.Close() })
	return ctrl, cam
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeStatus(t *testing.T, rec *httptest.ResponseRecorder) statusResponse {
	t.Helper()

	var st statusResponse
	if err := json.NewDecoder(rec.Body).Decode(&st); err != nil {
		t.Fatalf("failed to decode status: %v", err)
	}
	return st
}

func TestServer_Health(t *testing.T) {
	s := New(Config{})

	t.Run("returns 200 with JSON response", func(t *testing.T) {
		rec := do(t, s, http.MethodGet, "/api/health", "")

		if rec.Code != http.StatusOK {
			t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
		}
		if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
			t.Errorf("expected Content-Type application/json, got %s", ct)
		}

		var response map[string]any
		if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if response["status"] != "ok" {
			t.Errorf("expected status 'ok', got %v", response["status"])
		}
		if _, exists := response["uptime"]; !exists {
			t.Error("expected 'uptime' field in response")
		}
	})

	t.Run("only allows GET method", func(t *testing.T) {
		for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodDelete} {
			rec := do(t, s, method, "/api/health", "")
			if rec.Code != http.StatusMethodNotAllowed {
				t.Errorf("method %s: expected status %d, got %d", method, http.StatusMethodNotAllowed, rec.Code)
			}
		}
	})
}

func TestServer_NotFound(t *testing.T) {
	s := New(Config{})

	rec := do(t, s, http.MethodGet, "/api/nonexistent", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
	}
}

func TestServer_StaticFiles(t *testing.T) {
	tmpDir := t.TempDir()

	testContent := "<html><body>Try on</body></html>"
	if err := os.WriteFile(filepath.Join(tmpDir, "index.html"), []byte(testContent), 0644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}
	cssContent := "body { color: red; }"
	if err := os.WriteFile(filepath.Join(tmpDir, "style.css"), []byte(cssContent), 0644); err != nil {
		t.Fatalf("failed to create test CSS file: %v", err)
	}

	s := New(Config{StaticDir: tmpDir})

	t.Run("serves index.html at root path", func(t *testing.T) {
		rec := do(t, s, http.MethodGet, "/", "")
		if rec.Code != http.StatusOK {
			t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
		}
		if rec.Body.String() != testContent {
			t.Errorf("expected body %q, got %q", testContent, rec.Body.String())
		}
	})

	t.Run("serves static files from configured directory", func(t *testing.T) {
		rec := do(t, s, http.MethodGet, "/style.css", "")
		if rec.Body.String() != cssContent {
			t.Errorf("expected body %q, got %q", cssContent, rec.Body.String())
		}
	})

	t.Run("returns 404 for non-existent static files", func(t *testing.T) {
		rec := do(t, s, http.MethodGet, "/nonexistent.html", "")
		if rec.Code != http.StatusNotFound {
			t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
		}
	})

	t.Run("api routes win over static files", func(t *testing.T) {
		rec := do(t, s, http.MethodGet, "/api/health", "")
		if rec.Code != http.StatusOK {
			t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
		}
	})
}

func TestServer_NoStaticDir(t *testing.T) {
	s := New(Config{})

	rec := do(t, s, http.MethodGet, "/", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
	}
}

func TestServer_TryOnRoutesNeedController(t *testing.T) {
	s := New(Config{})

	rec := do(t, s, http.MethodGet, "/api/tryon/status", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
	}
}

func TestServer_StartStop(t *testing.T) {
	ctrl, cam := newTryOn(t)
	s := New(Config{TryOn: ctrl})

	st := decodeStatus(t, do(t, s, http.MethodGet, "/api/tryon/status", ""))
	if st.State != tryon.StateIdle || st.Badge != "Camera off" {
		t.Errorf("initial status = %+v", st)
	}

	rec := do(t, s, http.MethodPost, "/api/tryon/start", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("start: expected status %d, got %d", http.StatusOK, rec.Code)
	}
	st = decodeStatus(t, rec)
	if !st.Active || st.State != tryon.StateActive {
		t.Errorf("after start = %+v, want active", st)
	}
	if st.SessionID == "" {
		t.Error("active status should carry a session id")
	}
	if st.Badge != "Searching…" {
		t.Errorf("badge = %q, want Searching…", st.Badge)
	}

	st = decodeStatus(t, do(t, s, http.MethodPost, "/api/tryon/stop", ""))
	if st.Active || st.State != tryon.StateIdle {
		t.Errorf("after stop = %+v, want idle", st)
	}
	if cam.LiveTracks() != 0 {
		t.Errorf("live tracks = %d, want 0 after stop", cam.LiveTracks())
	}
}

func TestServer_StartSurvivesClientDisconnect(t *testing.T) {
	for _, path := range []string{"/api/tryon/start", "/api/tryon/restart"} {
		t.Run(path, func(t *testing.T) {
			ctrl, cam := newTryOn(t)
			s := New(Config{TryOn: ctrl})
			cam.Hold()

			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			req := httptest.NewRequest(http.MethodPost, path, nil).WithContext(ctx)
			rec := httptest.NewRecorder()

			done := make(chan struct{})
			go func() {
				defer close(done)
				s.ServeHTTP(rec, req)
			}()

			deadline := time.Now().Add(2 * time.Second)
			for ctrl.Status().State != tryon.StateStarting {
				if time.Now().After(deadline) {
					t.Fatalf("state = %s, want starting while the camera is held", ctrl.Status().State)
				}
				time.Sleep(time.Millisecond)
			}
			cam.Release()

			select {
			case <-done:
			case <-time.After(2 * time.Second):
				t.Fatal("request never finished")
			}
			if rec.Code != http.StatusOK {
				t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
			}
			if st := decodeStatus(t, rec); st.State != tryon.StateActive || st.Error != "" {
				t.Errorf("status = %+v, want active", st)
			}
		})
	}
}

func TestServer_StartFailureIsStatus(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		reason tryon.Reason
		msg    string
	}{
		{name: "permission denied", err: capture.ErrPermissionDenied, reason: tryon.ReasonPermissionDenied, msg: tryon.MsgPermissionDenied},
		{name: "no device", err: capture.ErrNoDevice, reason: tryon.ReasonNoDevice, msg: tryon.MsgNoDevice},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl, cam := newTryOn(t)
			cam.SetOpenError(tt.err)
			s := New(Config{TryOn: ctrl})

			rec := do(t, s, http.MethodPost, "/api/tryon/start", "")
			if rec.Code != http.StatusOK {
				t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
			}
			st := decodeStatus(t, rec)
			if st.State != tryon.StateError || st.Reason != tt.reason {
				t.Errorf("status = %+v, want error %s", st, tt.reason)
			}
			if st.Error != tt.msg || st.Badge != tt.msg {
				t.Errorf("error = %q badge = %q, want %q", st.Error, st.Badge, tt.msg)
			}
		})
	}
}

func TestServer_StartInProgress(t *testing.T) {
	ctrl, cam := newTryOn(t)
	cam.Hold()
	s := New(Config{TryOn: ctrl})

	done := make(chan int, 1)
	go func() {
		done <- do(t, s, http.MethodPost, "/api/tryon/start", "").Code
	}()

	deadline := time.Now().Add(time.Second)
	for ctrl.Status().State != tryon.StateStarting && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	rec := do(t, s, http.MethodPost, "/api/tryon/start", "")
	if rec.Code != http.StatusConflict {
		t.Errorf("second start: expected status %d, got %d", http.StatusConflict, rec.Code)
	}

	cam.Release()
	if code := <-done; code != http.StatusOK {
		t.Errorf("first start: expected status %d, got %d", http.StatusOK, code)
	}
}

func TestServer_Restart(t *testing.T) {
	ctrl, cam := newTryOn(t)
	s := New(Config{TryOn: ctrl})

	do(t, s, http.MethodPost, "/api/tryon/start", "")
	first := ctrl.Status().SessionID

	st := decodeStatus(t, do(t, s, http.MethodPost, "/api/tryon/restart", ""))
	if !st.Active {
		t.Errorf("after restart = %+v, want active", st)
	}
	if st.SessionID == first {
		t.Error("restart should begin a new session")
	}
	if got := cam.LiveTracksAtOpen(); len(got) != 2 || got[1] != 0 {
		t.Errorf("live tracks at open = %v, want the first stream released", got)
	}
}

func TestServer_Selection(t *testing.T) {
	ctrl, _ := newTryOn(t)
	s := New(Config{TryOn: ctrl})

	var sel material.Selection
	rec := do(t, s, http.MethodGet, "/api/selection", "")
	json.NewDecoder(rec.Body).Decode(&sel)
	if sel != material.DefaultSelection() {
		t.Errorf("initial selection = %+v, want default", sel)
	}

	rec = do(t, s, http.MethodPut, "/api/selection", `{"metal":"#B76E79","carat":2}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	if got := ctrl.Selection().Selection(); got.Metal != "#B76E79" || got.Carat != 2 {
		t.Errorf("tracker selection = %+v", got)
	}

	t.Run("empty fields fall back to defaults", func(t *testing.T) {
		rec := do(t, s, http.MethodPut, "/api/selection", `{}`)
		var got material.Selection
		json.NewDecoder(rec.Body).Decode(&got)
		if got != material.DefaultSelection() {
			t.Errorf("selection = %+v, want default", got)
		}
	})

	t.Run("rejects bad input", func(t *testing.T) {
		for _, body := range []string{`not json`, `{"carat":-1}`} {
			rec := do(t, s, http.MethodPut, "/api/selection", body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("body %q: expected status %d, got %d", body, http.StatusBadRequest, rec.Code)
			}
		}
	})
}

func TestServer_Metals(t *testing.T) {
	s := New(Config{})

	var resp struct {
		Metals []material.Metal `json:"metals"`
	}
	rec := do(t, s, http.MethodGet, "/api/metals", "")
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Metals) != len(material.Palette) {
		t.Errorf("metals = %d, want %d", len(resp.Metals), len(material.Palette))
	}
}
