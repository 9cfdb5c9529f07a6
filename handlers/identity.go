package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/guildtrack/guildtrack/internal/models"
	"github.com/guildtrack/guildtrack/internal/store"
	"github.com/guildtrack/guildtrack/internal/tracker"
	"github.com/guildtrack/guildtrack/pkg/logger"
)

// IdentityHandler exposes the tracker over HTTP.
type IdentityHandler struct {
	svc   *tracker.Service
	store store.Store
}

func NewIdentityHandler(svc *tracker.Service, st store.Store) *IdentityHandler {
	return &IdentityHandler{svc: svc, store: st}
}

// Register routes under /api/v1
func (h *IdentityHandler) Register(rg *gin.RouterGroup) {
	v1 := rg.Group("/api/v1")
	v1.GET("/identities/:id", h.GetIdentity)
	v1.GET("/guilds/:guild_id/members/:user_id", h.GetGuildIdentity)
	v1.GET("/guilds/:guild_id/members/:user_id/record", h.GetRecord)
	v1.POST("/track", h.Track)
}

// GetIdentity resolves a user globally, or within a guild when the guild_id
// query parameter is present. Note that a guild-scoped resolution also
// records the observation locally.
func (h *IdentityHandler) GetIdentity(c *gin.Context) {
	userID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var guildID *int64
	if raw := c.Query("guild_id"); raw != "" {
		g, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid guild_id"})
			return
		}
		guildID = &g
	}
	id, err := h.svc.GetIdentity(c.Request.Context(), userID, guildID)
	if err != nil {
		writeResolveError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"identity": id})
}

// GetGuildIdentity resolves a user within a guild and records the
// observation.
func (h *IdentityHandler) GetGuildIdentity(c *gin.Context) {
	guildID, ok := pathID(c, "guild_id")
	if !ok {
		return
	}
	userID, ok := pathID(c, "user_id")
	if !ok {
		return
	}
	id, err := h.svc.GetGuildIdentity(c.Request.Context(), guildID, userID)
	if err != nil {
		writeResolveError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"identity": id})
}

// GetRecord returns the locally persisted member record without touching
// the directory.
func (h *IdentityHandler) GetRecord(c *gin.Context) {
	guildID, ok := pathID(c, "guild_id")
	if !ok {
		return
	}
	userID, ok := pathID(c, "user_id")
	if !ok {
		return
	}
	m, err := h.store.Get(c.Request.Context(), userID, guildID)
	if err != nil {
		logger.Errorf("record read failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "record read failed"})
		return
	}
	if m == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no record"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"member": m})
}

// Track accepts an identity observation and merges it into the local store.
func (h *IdentityHandler) Track(c *gin.Context) {
	var id models.Identity
	if err := c.ShouldBindJSON(&id); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if id.ID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id is required"})
		return
	}
	if err := h.svc.Track(c.Request.Context(), &id); err != nil {
		logger.Errorf("track failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "track failed"})
		return
	}
	c.Status(http.StatusNoContent)
}

func pathID(c *gin.Context, name string) (int64, bool) {
	v, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return v, true
}

func writeResolveError(c *gin.Context, err error) {
	if errors.Is(err, tracker.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	logger.Errorf("resolution failed: %v", err)
	c.JSON(http.StatusBadGateway, gin.H{"error": "resolution failed"})
}
