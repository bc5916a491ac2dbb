package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"softphone/internal/audio"
	"softphone/internal/auth"
	"softphone/internal/config"
	"softphone/internal/engine"
	"softphone/internal/journal"
	"softphone/internal/profile"
	"softphone/internal/session"

	"github.com/gin-gonic/gin"
)

func testRouter(t *testing.T) (*gin.Engine, *session.Manager, *engine.MemoryEngine) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	eng := engine.NewMemoryEngine()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	jnl := journal.NewService(journal.NewMemoryRepo(journal.DefaultCap))
	audioCtl := audio.NewMemoryController()
	mgr := session.NewManager(log, func(profile.Profile) (engine.Engine, error) {
		return eng, nil
	}, audioCtl, jnl)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = mgr.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	authMgr, err := auth.NewManager(config.AuthConfig{APISecret: "test-secret", TokenTTL: time.Hour})
	if err != nil {
		t.Fatal(err)
	}
	h := Handlers{Auth: authMgr, Session: mgr, Journal: jnl, Audio: audioCtl}

	r := gin.New()
	r.POST("/v1/session", h.Initialize)
	r.POST("/v1/call", h.MakeCall)
	r.POST("/v1/call/answer", h.Answer)
	r.POST("/v1/call/hangup", h.Hangup)
	r.POST("/v1/call/mute", h.ToggleMute)
	r.POST("/v1/call/hold", h.Hold)
	r.POST("/v1/call/resume", h.Resume)
	r.POST("/v1/call/transfer", h.Transfer)
	r.POST("/v1/hook/toggle", h.ToggleHook)
	r.GET("/v1/state", h.State)
	r.GET("/v1/call", h.Call)
	r.GET("/v1/registration", h.Registration)
	r.GET("/v1/hook", h.Hook)
	r.GET("/v1/journal", h.JournalRecent)
	r.GET("/v1/interfaces", h.Interfaces)
	r.GET("/v1/audio/devices", h.AudioDevices)
	r.POST("/v1/audio/volume", h.SetVolume)
	r.POST("/v1/token", h.Token)
	return r, mgr, eng
}

func do(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func initSession(t *testing.T, r *gin.Engine) {
	t.Helper()
	w := do(t, r, http.MethodPost, "/v1/session", initializeRequest{
		DisplayName: "Alice",
		Username:    "alice",
		Password:    "secret",
		Server:      "sip.example.com",
		BindAddr:    "192.168.1.10",
		BindPort:    5060,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("initialize: status %d, body %s", w.Code, w.Body.String())
	}
}

func decodeSnapshot(t *testing.T, w *httptest.ResponseRecorder) session.Snapshot {
	t.Helper()
	var snap session.Snapshot
	if err := json.Unmarshal(w.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	return snap
}

func TestInitialize_ReturnsSnapshot(t *testing.T) {
	r, _, eng := testRouter(t)

	w := do(t, r, http.MethodPost, "/v1/session", initializeRequest{
		DisplayName: "Alice",
		Username:    "alice",
		Password:    "secret",
		Server:      "sip.example.com",
		BindPort:    5060,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status %d, body %s", w.Code, w.Body.String())
	}
	snap := decodeSnapshot(t, w)
	if !snap.Initialized {
		t.Fatalf("expected initialized snapshot")
	}
	if snap.Registration.State != session.RegStateRegistering {
		t.Fatalf("registration = %s", snap.Registration.State)
	}
	if got := countOps(eng.Ops(), "register"); got != 1 {
		t.Fatalf("register ops = %d", got)
	}
}

func TestInitialize_InvalidJSON(t *testing.T) {
	r, _, _ := testRouter(t)
	req := httptest.NewRequest(http.MethodPost, "/v1/session", bytes.NewBufferString("{"))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status %d", w.Code)
	}
}

func TestMakeCall_BeforeInitialize_Conflict(t *testing.T) {
	r, _, _ := testRouter(t)
	w := do(t, r, http.MethodPost, "/v1/call", callRequest{Target: "bob"})
	if w.Code != http.StatusConflict {
		t.Fatalf("status %d, body %s", w.Code, w.Body.String())
	}
}

func TestMakeCall_ReturnsCallingSnapshot(t *testing.T) {
	r, _, _ := testRouter(t)
	initSession(t, r)

	w := do(t, r, http.MethodPost, "/v1/call", callRequest{Target: "bob"})
	if w.Code != http.StatusOK {
		t.Fatalf("status %d, body %s", w.Code, w.Body.String())
	}
	snap := decodeSnapshot(t, w)
	if snap.Call == nil || snap.Call.State != session.CallStateCalling {
		t.Fatalf("call = %+v", snap.Call)
	}
	if snap.OnHook {
		t.Fatalf("expected off-hook after dialing")
	}
}

func TestMakeCall_InvalidTarget(t *testing.T) {
	r, _, _ := testRouter(t)
	initSession(t, r)

	w := do(t, r, http.MethodPost, "/v1/call", callRequest{Target: "   "})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status %d, body %s", w.Code, w.Body.String())
	}
}

func TestMakeCall_WhileBusy_Conflict(t *testing.T) {
	r, _, _ := testRouter(t)
	initSession(t, r)

	if w := do(t, r, http.MethodPost, "/v1/call", callRequest{Target: "bob"}); w.Code != http.StatusOK {
		t.Fatalf("first call: status %d", w.Code)
	}
	w := do(t, r, http.MethodPost, "/v1/call", callRequest{Target: "carol"})
	if w.Code != http.StatusConflict {
		t.Fatalf("status %d, body %s", w.Code, w.Body.String())
	}
}

func TestAnswer_NoRingingCall_Conflict(t *testing.T) {
	r, _, _ := testRouter(t)
	initSession(t, r)

	w := do(t, r, http.MethodPost, "/v1/call/answer", nil)
	if w.Code != http.StatusConflict {
		t.Fatalf("status %d, body %s", w.Code, w.Body.String())
	}
}

func TestAnswer_IncomingCall(t *testing.T) {
	r, mgr, eng := testRouter(t)
	initSession(t, r)

	eng.RingIn("sip:bob@example.com")
	waitFor(t, func() bool {
		call := mgr.CallInfo()
		return call != nil && call.State == session.CallStateRinging
	})

	w := do(t, r, http.MethodPost, "/v1/call/answer", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d, body %s", w.Code, w.Body.String())
	}
	snap := decodeSnapshot(t, w)
	if snap.Call == nil || snap.Call.State != session.CallStateConnected {
		t.Fatalf("call = %+v", snap.Call)
	}
}

func TestHangup_ClearsCall(t *testing.T) {
	r, _, _ := testRouter(t)
	initSession(t, r)

	if w := do(t, r, http.MethodPost, "/v1/call", callRequest{Target: "bob"}); w.Code != http.StatusOK {
		t.Fatalf("call: status %d", w.Code)
	}
	w := do(t, r, http.MethodPost, "/v1/call/hangup", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d, body %s", w.Code, w.Body.String())
	}
	if snap := decodeSnapshot(t, w); snap.Call != nil {
		t.Fatalf("call still present: %+v", snap.Call)
	}
}

func TestEngineFailure_BadGateway(t *testing.T) {
	r, _, eng := testRouter(t)
	initSession(t, r)

	eng.FailWith("place", errors.New("503 service unavailable"))
	w := do(t, r, http.MethodPost, "/v1/call", callRequest{Target: "bob"})
	if w.Code != http.StatusBadGateway {
		t.Fatalf("status %d, body %s", w.Code, w.Body.String())
	}
}

func TestHookToggle_RoundTrip(t *testing.T) {
	r, _, _ := testRouter(t)
	initSession(t, r)

	w := do(t, r, http.MethodPost, "/v1/hook/toggle", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
	if snap := decodeSnapshot(t, w); snap.OnHook {
		t.Fatalf("expected off-hook")
	}

	w = do(t, r, http.MethodGet, "/v1/hook", nil)
	var body struct {
		OnHook bool `json:"on_hook"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.OnHook {
		t.Fatalf("hook read disagrees with toggle")
	}
}

func TestCall_EmptyWhenIdle(t *testing.T) {
	r, _, _ := testRouter(t)
	w := do(t, r, http.MethodGet, "/v1/call", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
	var body struct {
		Call *session.CallRecord `json:"call"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Call != nil {
		t.Fatalf("unexpected call: %+v", body.Call)
	}
}

func TestJournal_RecordsCommands(t *testing.T) {
	r, _, _ := testRouter(t)
	initSession(t, r)

	w := do(t, r, http.MethodGet, "/v1/journal", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
	var body struct {
		Entries []journal.Entry `json:"entries"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if len(body.Entries) == 0 {
		t.Fatalf("expected journal entries after initialize")
	}
}

func TestJournal_BadLimit(t *testing.T) {
	r, _, _ := testRouter(t)
	w := do(t, r, http.MethodGet, "/v1/journal?limit=zero", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status %d", w.Code)
	}
}

func TestInterfaces_ListsAtLeastLoopback(t *testing.T) {
	r, _, _ := testRouter(t)
	w := do(t, r, http.MethodGet, "/v1/interfaces", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
	var body struct {
		Interfaces []struct {
			Name string `json:"name"`
			IP   string `json:"ip"`
		} `json:"interfaces"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if len(body.Interfaces) == 0 {
		t.Fatalf("expected at least one interface")
	}
}

func TestAudioDevices_Listed(t *testing.T) {
	r, _, _ := testRouter(t)
	w := do(t, r, http.MethodGet, "/v1/audio/devices", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
	var body struct {
		Devices []audio.Device `json:"devices"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if len(body.Devices) == 0 {
		t.Fatalf("expected devices")
	}
}

func TestSetVolume_Validation(t *testing.T) {
	r, _, _ := testRouter(t)

	if w := do(t, r, http.MethodPost, "/v1/audio/volume", volumeRequest{}); w.Code != http.StatusBadRequest {
		t.Fatalf("empty request: status %d", w.Code)
	}
	bad := 1.5
	if w := do(t, r, http.MethodPost, "/v1/audio/volume", volumeRequest{Input: &bad}); w.Code != http.StatusBadRequest {
		t.Fatalf("out-of-range: status %d", w.Code)
	}
	ok := 0.5
	if w := do(t, r, http.MethodPost, "/v1/audio/volume", volumeRequest{Input: &ok, Output: &ok}); w.Code != http.StatusOK {
		t.Fatalf("valid request: status %d", w.Code)
	}
}

func TestToken_IssueAndVerify(t *testing.T) {
	r, _, _ := testRouter(t)
	w := do(t, r, http.MethodPost, "/v1/token", tokenRequest{Client: "desktop"})
	if w.Code != http.StatusOK {
		t.Fatalf("status %d, body %s", w.Code, w.Body.String())
	}
	var body struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Token == "" {
		t.Fatalf("empty token")
	}
}

func TestToken_MissingClient(t *testing.T) {
	r, _, _ := testRouter(t)
	w := do(t, r, http.MethodPost, "/v1/token", tokenRequest{})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status %d", w.Code)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		if cond() {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("condition not met in time")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func countOps(ops []string, prefix string) int {
	n := 0
	for _, op := range ops {
		if len(op) >= len(prefix) && op[:len(prefix)] == prefix {
			n++
		}
	}
	return n
}
