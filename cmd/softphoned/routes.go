package main

import (
	"log/slog"
	"net/http"

	"softphone/internal/audio"
	"softphone/internal/auth"
	"softphone/internal/httpapi"
	"softphone/internal/journal"
	"softphone/internal/session"

	"github.com/gin-gonic/gin"
)

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(r *gin.Engine, log *slog.Logger, authManager *auth.Manager, mgr *session.Manager, jnl *journal.Service, audioCtl audio.Controller) {
	h := httpapi.Handlers{
		Auth:    authManager,
		Session: mgr,
		Journal: jnl,
		Audio:   audioCtl,
	}

	// public
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.POST("/v1/token", h.Token)

	// protected API group
	v1 := r.Group("/v1")
	v1.Use(auth.RequireToken(authManager))
	{
		v1.POST("/session", h.Initialize)

		v1.POST("/call", h.MakeCall)
		v1.POST("/call/answer", h.Answer)
		v1.POST("/call/hangup", h.Hangup)
		v1.POST("/call/mute", h.ToggleMute)
		v1.POST("/call/hold", h.Hold)
		v1.POST("/call/resume", h.Resume)
		v1.POST("/call/transfer", h.Transfer)

		v1.POST("/hook/toggle", h.ToggleHook)

		v1.GET("/state", h.State)
		v1.GET("/call", h.Call)
		v1.GET("/registration", h.Registration)
		v1.GET("/hook", h.Hook)
		v1.GET("/journal", h.JournalRecent)
		v1.GET("/interfaces", h.Interfaces)

		v1.GET("/audio/devices", h.AudioDevices)
		v1.POST("/audio/volume", h.SetVolume)

		v1.GET("/ws", h.StateFeed(log))
	}
}
