package main

import (
	"context"
	"io"
	"time"

	"github.com/gin-contrib/sse"
	"github.com/gin-gonic/gin"

	"pixelrelay/types"
)

const keepAliveInterval = 30 * time.Second

// HandleStream is the unidirectional push transport: a server-sent event
// stream carrying the same envelope set as the websocket push direction.
// Mutations arrive over the REST surface instead. Periodic comment frames
// keep idle connections from being timed out by intermediaries; they carry
// no event and clients ignore them.
func (r *Relay) HandleStream(c *gin.Context) {
	size, err := sizeParam(c)
	if err != nil {
		c.JSON(400, gin.H{"error": "Invalid canvas size"})
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	out := make(chan types.WSMessage, subscriberQueueSize)
	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	sub := r.Hub.Subscribe(size, out, cancel)
	defer r.Hub.Unsubscribe(sub)

	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-out:
			if err := sse.Encode(c.Writer, sse.Event{Data: msg}); err != nil {
				return
			}
			c.Writer.Flush()
		case <-ticker.C:
			if _, err := io.WriteString(c.Writer, ": keep-alive\n\n"); err != nil {
				return
			}
			c.Writer.Flush()
		}
	}
}
