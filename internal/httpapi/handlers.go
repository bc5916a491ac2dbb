package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"softphone/internal/audio"
	"softphone/internal/auth"
	"softphone/internal/journal"
	"softphone/internal/profile"
	"softphone/internal/session"
	"softphone/pkg/netutil"

	"github.com/gin-gonic/gin"
)

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.

type Handlers struct {
	Auth    *auth.Manager
	Session *session.Manager
	Journal *journal.Service
	Audio   audio.Controller
}

// --- Auth ---

type tokenRequest struct {
	Client string `json:"client"`
}

// Token issues a control token for a named UI client. Possession of the
// shared API secret is proven out-of-band; this endpoint is only mounted
// outside the protected group so a fresh UI can bootstrap.
func (h Handlers) Token(c *gin.Context) {
	if h.Auth == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "auth not configured"})
		return
	}
	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.Client == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "client required"})
		return
	}
	tok, err := h.Auth.Issue(time.Now(), req.Client)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "token issuance failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": tok})
}

// --- Session lifecycle ---

type initializeRequest struct {
	DisplayName string `json:"display_name"`
	Username    string `json:"username"`
	Password    string `json:"password"`
	Server      string `json:"server"`
	BindAddr    string `json:"bind_addr"`
	BindPort    int    `json:"bind_port"`
}

// Initialize builds a profile from account input and brings the session up.
// The operating mode is inferred from the server field: empty means
// receive-only, a bare peer URI means direct peer-to-peer, anything else is
// a registrar account.
func (h Handlers) Initialize(c *gin.Context) {
	var req initializeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.BindAddr == "" {
		req.BindAddr = netutil.DefaultIP()
	}
	p := profile.FromInput(req.DisplayName, req.Username, req.Password, req.Server, req.BindAddr, req.BindPort)
	if err := h.Session.Initialize(c.Request.Context(), p); err != nil {
		h.sessionError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.Session.Snapshot())
}

// --- Call control ---

type callRequest struct {
	Target string `json:"target"`
}

func (h Handlers) MakeCall(c *gin.Context) {
	var req callRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if err := h.Session.MakeCall(c.Request.Context(), req.Target); err != nil {
		h.sessionError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.Session.Snapshot())
}

func (h Handlers) Answer(c *gin.Context)     { h.call(c, h.Session.Answer) }
func (h Handlers) Hangup(c *gin.Context)     { h.call(c, h.Session.Hangup) }
func (h Handlers) ToggleMute(c *gin.Context) { h.call(c, h.Session.ToggleMute) }
func (h Handlers) Hold(c *gin.Context)       { h.call(c, h.Session.Hold) }
func (h Handlers) Resume(c *gin.Context)     { h.call(c, h.Session.Resume) }
func (h Handlers) ToggleHook(c *gin.Context) { h.call(c, h.Session.ToggleHook) }

func (h Handlers) Transfer(c *gin.Context) {
	var req callRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if err := h.Session.Transfer(c.Request.Context(), req.Target); err != nil {
		h.sessionError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.Session.Snapshot())
}

// --- Read-side ---

func (h Handlers) State(c *gin.Context) {
	c.JSON(http.StatusOK, h.Session.Snapshot())
}

func (h Handlers) Call(c *gin.Context) {
	call := h.Session.CallInfo()
	if call == nil {
		c.JSON(http.StatusOK, gin.H{"call": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"call": call})
}

func (h Handlers) Registration(c *gin.Context) {
	c.JSON(http.StatusOK, h.Session.RegistrationState())
}

func (h Handlers) Hook(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"on_hook": h.Session.OnHook()})
}

func (h Handlers) JournalRecent(c *gin.Context) {
	if h.Journal == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "journal not configured"})
		return
	}
	n := 50
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		n = parsed
	}
	c.JSON(http.StatusOK, gin.H{"entries": h.Journal.Recent(n)})
}

func (h Handlers) Interfaces(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"interfaces": netutil.AvailableInterfaces()})
}

// --- Audio settings ---

type volumeRequest struct {
	Input  *float64 `json:"input,omitempty"`
	Output *float64 `json:"output,omitempty"`
}

func (h Handlers) AudioDevices(c *gin.Context) {
	if h.Audio == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "audio not configured"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"devices": h.Audio.Devices()})
}

// SetVolume adjusts input and/or output levels in [0, 1]. Volume is an audio
// concern, not a call command, so it bypasses the session loop entirely.
func (h Handlers) SetVolume(c *gin.Context) {
	if h.Audio == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "audio not configured"})
		return
	}
	var req volumeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.Input == nil && req.Output == nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "input or output level required"})
		return
	}
	for _, lvl := range []*float64{req.Input, req.Output} {
		if lvl != nil && (*lvl < 0 || *lvl > 1) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "level must be within [0, 1]"})
			return
		}
	}
	if req.Input != nil {
		h.Audio.SetInputVolume(*req.Input)
	}
	if req.Output != nil {
		h.Audio.SetOutputVolume(*req.Output)
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// --- Helpers ---

// call runs a body-less session command and replies with the post-command
// snapshot, so UIs see the optimistic state without a second round trip.
func (h Handlers) call(c *gin.Context, op func(ctx context.Context) error) {
	if err := op(c.Request.Context()); err != nil {
		h.sessionError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.Session.Snapshot())
}

func (h Handlers) sessionError(c *gin.Context, err error) {
	var engErr *session.EngineError
	switch {
	case errors.Is(err, session.ErrNotInitialized),
		errors.Is(err, session.ErrAlreadyInCall),
		errors.Is(err, session.ErrNoActiveCall):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, profile.ErrInvalidTarget),
		errors.Is(err, profile.ErrInvalidProfile):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.As(err, &engErr):
		c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	default:
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
