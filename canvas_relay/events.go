package main

import (
	"errors"
	"log"

	"pixelrelay/types"
)

// handleGetCanvas subscribes the connection to the requested namespace and
// replies with a sparse snapshot. Requesting a different size moves the
// subscription; the client is only ever subscribed to one namespace.
func (r *Relay) handleGetCanvas(client *socketClient, wsMsg *types.WSMessage) {
	data, err := types.DecodeData[types.GetCanvasRequest](wsMsg.Data)
	if err != nil || !types.IsValidSize(data.Size) {
		client.sendError("Invalid canvas size")
		return
	}

	if client.sub == nil || client.sub.Size() != data.Size {
		if client.sub != nil {
			r.Hub.Unsubscribe(client.sub)
		}
		client.sub = r.Hub.Subscribe(data.Size, client.send, client.close)
	}

	canvas, err := r.Snapshot(data.Size)
	if err != nil {
		client.sendError("Failed to get canvas")
		return
	}
	client.enqueue(types.WSMessage{Type: "canvas_data", Data: canvas})
}

func (r *Relay) handlePlacePixel(client *socketClient, wsMsg *types.WSMessage) {
	req, err := types.DecodeData[types.PlacePixelRequest](wsMsg.Data)
	if err != nil {
		client.sendError("Invalid place pixel request")
		return
	}

	pixel, err := r.PlacePixel(req)
	if err != nil {
		var cooldownErr *CooldownError
		switch {
		case errors.As(err, &cooldownErr):
			client.enqueue(types.WSMessage{
				Type: "cooldown_active",
				Data: types.CooldownActive{
					CooldownEnd: cooldownErr.End,
					Message:     "You must wait before placing another pixel",
				},
			})
		case errors.Is(err, ErrOutOfBounds):
			client.sendError("Invalid pixel coordinates")
		case errors.Is(err, ErrUnknownSize):
			client.sendError("Invalid canvas size")
		default:
			log.Println("place_pixel failed:", err)
			client.sendError("Failed to set pixel")
		}
		return
	}

	client.enqueue(types.WSMessage{
		Type: "pixel_placed",
		Data: types.PixelPlaced{Success: true, Pixel: pixel},
	})
}

func (r *Relay) handleCheckCooldown(client *socketClient, wsMsg *types.WSMessage) {
	data, err := types.DecodeData[types.CheckCooldownRequest](wsMsg.Data)
	if err != nil || data.UserID == "" {
		client.sendError("Invalid cooldown check request")
		return
	}

	canPlace, end := r.Gate.Peek(data.UserID)
	client.enqueue(types.WSMessage{
		Type: "cooldown_status",
		Data: types.CooldownInfo{CanPlace: canPlace, CooldownEnd: end},
	})
}

func (r *Relay) handleUpdateUsername(client *socketClient, wsMsg *types.WSMessage) {
	data, err := types.DecodeData[types.UpdateUsernameRequest](wsMsg.Data)
	if err != nil || data.UserID == "" || data.Username == "" {
		client.sendError("Invalid username update request")
		return
	}

	user := r.UpdateUsername(data.UserID, data.Username)
	client.enqueue(types.WSMessage{
		Type: "username_updated",
		Data: types.UsernameUpdated{Success: true, User: user},
	})

	// Renames show up in the recent-changes view for everyone currently
	// subscribed to the namespace the client is watching.
	if client.sub != nil {
		size := client.sub.Size()
		r.Hub.Publish(size, types.WSMessage{
			Type: "recent_changes",
			Data: r.Log.Recent(size, changeLogCapacity, r.Users.ResolveName),
		})
	}
}
