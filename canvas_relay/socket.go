package main

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"pixelrelay/types"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// socketClient is one live websocket connection. All outbound frames go
// through the send queue and a single write pump, so direct replies and hub
// broadcasts never interleave on the wire.
type socketClient struct {
	conn      *websocket.Conn
	send      chan types.WSMessage
	done      chan struct{}
	closeOnce sync.Once
	sub       *Subscriber
	relay     *Relay
}

func (r *Relay) HandleSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Println("WebSocket upgrade failed:", err)
		return
	}
	conn.SetReadLimit(256 * 1024)

	client := &socketClient{
		conn:  conn,
		send:  make(chan types.WSMessage, subscriberQueueSize),
		done:  make(chan struct{}),
		relay: r,
	}
	go client.writePump()

	for {
		_, msgBytes, err := conn.ReadMessage()
		if err != nil {
			break
		}

		var wsMsg types.WSMessage
		if err := json.Unmarshal(msgBytes, &wsMsg); err != nil {
			log.Println("Invalid message format:", err)
			continue
		}

		r.dispatchMessage(client, wsMsg)
	}

	client.cleanup()
}

func (c *socketClient) writePump() {
	defer c.conn.Close()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				log.Println("writePump error:", err)
				return
			}
		case <-c.done:
			return
		}
	}
}

// close tears the connection down. Used both by the read loop and as the
// hub's kick callback for a subscriber that stopped draining its queue.
func (c *socketClient) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

func (c *socketClient) cleanup() {
	if c.sub != nil {
		c.relay.Hub.Unsubscribe(c.sub)
		c.sub = nil
	}
	c.close()
}

// enqueue queues a direct reply without ever blocking the read loop. A
// client that cannot drain its own replies is disconnected.
func (c *socketClient) enqueue(msg types.WSMessage) {
	select {
	case c.send <- msg:
	default:
		log.Printf("enqueue: send queue full, disconnecting client")
		c.close()
	}
}

func (c *socketClient) sendError(message string) {
	c.enqueue(types.WSMessage{Type: "error", Data: types.WireError{Message: message}})
}
