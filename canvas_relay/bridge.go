package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"pixelrelay/types"
)

const bridgeChannelPrefix = "canvas.updates."

// bridgeEnvelope is what travels over redis between relay instances. The
// instance id keeps a relay from re-applying its own publishes.
type bridgeEnvelope struct {
	Instance string      `json:"instance"`
	Size     int         `json:"size"`
	Pixel    types.Pixel `json:"pixel"`
}

// RedisBridge shares committed writes between relay instances through
// redis pub/sub, one channel per namespace. It is optional: a relay
// without a bridge simply serves its own subscribers.
type RedisBridge struct {
	client     *redis.Client
	instanceID string
	cancel     context.CancelFunc
}

func StartRedisBridge(addr string, relay *Relay) (*RedisBridge, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	ctx, cancel := context.WithCancel(context.Background())

	if err := client.Ping(ctx).Err(); err != nil {
		cancel()
		client.Close()
		return nil, fmt.Errorf("redis bridge ping failed: %w", err)
	}

	bridge := &RedisBridge{
		client:     client,
		instanceID: uuid.NewString(),
		cancel:     cancel,
	}
	pubsub := client.PSubscribe(ctx, bridgeChannelPrefix+"*")
	go bridge.run(ctx, pubsub, relay)

	relay.Bridge = bridge
	return bridge, nil
}

func (b *RedisBridge) run(ctx context.Context, pubsub *redis.PubSub, relay *Relay) {
	defer pubsub.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-pubsub.Channel():
			if !ok {
				return
			}
			var env bridgeEnvelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				log.Println("bridge: invalid payload:", err)
				continue
			}
			if env.Instance == b.instanceID {
				continue
			}
			relay.applyRemotePixel(env.Size, env.Pixel)
		}
	}
}

func (b *RedisBridge) PublishPixel(size int, pixel types.Pixel) {
	payload, err := json.Marshal(bridgeEnvelope{
		Instance: b.instanceID,
		Size:     size,
		Pixel:    pixel,
	})
	if err != nil {
		return
	}
	channel := fmt.Sprintf("%s%d", bridgeChannelPrefix, size)
	if err := b.client.Publish(context.Background(), channel, payload).Err(); err != nil {
		log.Println("bridge: publish failed:", err)
	}
}

func (b *RedisBridge) Close() {
	b.cancel()
	b.client.Close()
}

// applyRemotePixel applies a write committed by another relay instance.
// It bypasses the cooldown gate (the owning instance already reserved it)
// and does not re-publish to the bridge.
func (r *Relay) applyRemotePixel(size int, pixel types.Pixel) {
	if !types.IsValidSize(size) {
		return
	}
	newlyPainted, err := r.Store.Set(size, pixel.X, pixel.Y, pixel.Color)
	if err != nil {
		log.Println("bridge: remote pixel rejected:", err)
		return
	}
	r.Users.Upsert(pixel.UserID, pixel.Username)
	r.Stats.RecordWrite(size, pixel.UserID, newlyPainted)
	r.Log.Append(size, pixel)
	r.broadcastCommit(size, pixel)
}
