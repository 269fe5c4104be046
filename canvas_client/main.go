package main

import (
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"pixelrelay/types"
)

func main() {
	_ = godotenv.Load()

	wsURL := os.Getenv("CANVAS_WS_URL")
	if wsURL == "" {
		wsURL = "ws://localhost:8080/ws"
	}

	size := 64
	if raw := os.Getenv("CANVAS_SIZE"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || !types.IsValidSize(parsed) {
			log.Fatalf("Invalid CANVAS_SIZE %q", raw)
		}
		size = parsed
	}

	userID := os.Getenv("CANVAS_USER_ID")
	if userID == "" {
		userID = uuid.NewString()
	}
	username := os.Getenv("CANVAS_USERNAME")
	if username == "" {
		username = "anonymous"
	}

	agent := NewSyncAgent(AgentConfig{
		URL:      wsURL,
		Size:     size,
		UserID:   userID,
		Username: username,
		OnState: func(state ConnState) {
			log.Println("Connection state:", state)
		},
		OnEvent: func(msg types.WSMessage) {
			switch msg.Type {
			case "pixel_update":
				if pixel, err := types.DecodeData[types.Pixel](msg.Data); err == nil {
					log.Printf("Pixel (%d,%d) -> %s by %s", pixel.X, pixel.Y, pixel.Color, pixel.Username)
				}
			case "online_count":
				if count, err := types.DecodeData[types.OnlineCount](msg.Data); err == nil {
					log.Printf("Online: %d", count.Count)
				}
			}
		},
		OnError: func(err error) {
			log.Println("Connection error:", err)
		},
	})

	log.Printf("Watching %dx%d canvas at %s as %s", size, size, wsURL, username)
	if err := agent.Connect(); err != nil {
		log.Println("Initial connect failed, retrying in background:", err)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down...")
	agent.Disconnect()
}
