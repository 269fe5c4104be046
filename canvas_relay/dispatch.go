package main

import (
	"log"

	"pixelrelay/types"
)

// dispatchMessage routes one inbound frame by its type tag. Unknown types
// are logged and dropped; they never terminate the connection.
func (r *Relay) dispatchMessage(client *socketClient, wsMsg types.WSMessage) {
	switch wsMsg.Type {
	case "get_canvas":
		r.handleGetCanvas(client, &wsMsg)
	case "place_pixel":
		r.handlePlacePixel(client, &wsMsg)
	case "check_cooldown":
		r.handleCheckCooldown(client, &wsMsg)
	case "update_username":
		r.handleUpdateUsername(client, &wsMsg)
	default:
		log.Println("Unknown message type:", wsMsg.Type)
	}
}
