package main

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"pixelrelay/types"
)

func sizeParam(c *gin.Context) (int, error) {
	raw := c.Query("size")
	if raw == "" {
		return 64, nil
	}
	size, err := strconv.Atoi(raw)
	if err != nil || !types.IsValidSize(size) {
		return 0, ErrUnknownSize
	}
	return size, nil
}

// HandleGetCanvas serves the dense snapshot used by clients that poll the
// REST surface instead of holding a live subscription.
func (r *Relay) HandleGetCanvas(c *gin.Context) {
	size, err := sizeParam(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid canvas size"})
		return
	}

	pixels, err := r.Store.Get(size)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch canvas"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"pixels":        pixels,
		"stats":         r.Stats.Stats(size),
		"recentChanges": r.Log.Recent(size, changeLogCapacity, r.Users.ResolveName),
		"lastUpdate":    r.Store.LastUpdate(size),
	})
}

// HandlePostCanvas is the request/response mutation call paired with the
// push stream. Rejections mirror the websocket path: 429 with the
// authoritative cooldown end, 400 for invalid input.
func (r *Relay) HandlePostCanvas(c *gin.Context) {
	size, err := sizeParam(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid canvas size"})
		return
	}

	var req types.PlacePixelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data"})
		return
	}
	if req.UserID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data"})
		return
	}
	req.Size = size

	pixel, err := r.PlacePixel(req)
	if err != nil {
		var cooldownErr *CooldownError
		switch {
		case errors.As(err, &cooldownErr):
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":       "Cooldown active",
				"cooldownEnd": cooldownErr.End,
				"message":     "You must wait before placing another pixel",
			})
		case errors.Is(err, ErrOutOfBounds):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid pixel coordinates"})
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to place pixel"})
		}
		return
	}

	pixels, _ := r.Store.Get(size)
	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"pixels":        pixels,
		"stats":         r.Stats.Stats(size),
		"recentChanges": r.Log.Recent(size, changeLogCapacity, r.Users.ResolveName),
		"pixel":         pixel,
	})
}

func (r *Relay) HandleGetCooldown(c *gin.Context) {
	userID := c.Param("userId")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user id"})
		return
	}
	canPlace, end := r.Gate.Peek(userID)
	c.JSON(http.StatusOK, types.CooldownInfo{CanPlace: canPlace, CooldownEnd: end})
}

func (r *Relay) HandleUpdateUser(c *gin.Context) {
	userID := c.Param("userId")
	var body struct {
		Username string `json:"username"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || userID == "" || body.Username == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid username update request"})
		return
	}
	user := r.UpdateUsername(userID, body.Username)
	c.JSON(http.StatusOK, gin.H{"success": true, "user": user})
}

func (r *Relay) HandleHealthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().UTC(),
	})
}
