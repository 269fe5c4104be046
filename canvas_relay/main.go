package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	ratelimit "github.com/JGLTechnologies/gin-rate-limit"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"pixelrelay/db"
)

func keyFunc(c *gin.Context) string {
	return c.ClientIP()
}

func rateLimitErrorHandler(c *gin.Context, info ratelimit.Info) {
	c.String(429, "Too many requests. Try again in "+time.Until(info.ResetTime).String())
}

func main() {
	_ = godotenv.Load()

	port := os.Getenv("CANVAS_RELAY_PORT")
	if port == "" {
		port = "8080"
	}

	dbName := os.Getenv("CANVAS_DB_FILE")
	if dbName == "" {
		dbName = "./canvas_relay.db"
	}

	cooldownWindow := defaultCooldownWindow
	if raw := os.Getenv("CANVAS_COOLDOWN"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			log.Fatalf("Invalid CANVAS_COOLDOWN %q: %v", raw, err)
		}
		cooldownWindow = parsed
	}

	var err error
	db.CanvasDB, err = db.InitSQLite(dbName)
	if err != nil {
		log.Fatal("Error opening canvas database:", err)
	}
	defer db.CloseDB(db.CanvasDB)
	if err := ensureCanvasSchema(db.CanvasDB); err != nil {
		log.Fatal("Error ensuring canvas schema:", err)
	}

	relay := NewRelay(RelayConfig{
		CooldownWindow: cooldownWindow,
		DB:             db.CanvasDB,
	})
	if err := relay.Hydrate(); err != nil {
		log.Fatal("Error hydrating canvas state:", err)
	}

	if redisAddr := os.Getenv("CANVAS_REDIS_ADDR"); redisAddr != "" {
		bridge, err := StartRedisBridge(redisAddr, relay)
		if err != nil {
			log.Fatal("Error starting redis bridge:", err)
		}
		defer bridge.Close()
		log.Println("Redis bridge connected to", redisAddr)
	}

	r := gin.Default()

	store := ratelimit.InMemoryStore(&ratelimit.InMemoryOptions{Rate: time.Second, Limit: 150})
	r.Use(ratelimit.RateLimiter(store, &ratelimit.Options{ErrorHandler: rateLimitErrorHandler, KeyFunc: keyFunc}))
	r.Use(cors.Default())

	r.GET("/healthz", relay.HandleHealthz)

	r.GET("/ws", relay.HandleSocket)
	r.GET("/canvas/stream", relay.HandleStream)

	r.GET("/canvas", relay.HandleGetCanvas)
	r.POST("/canvas", relay.HandlePostCanvas)
	r.GET("/cooldown/:userId", relay.HandleGetCooldown)
	r.POST("/users/:userId", relay.HandleUpdateUser)

	server := &http.Server{Addr: ":" + port, Handler: r}

	go func() {
		log.Printf("Starting canvas relay on port %s", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("ListenAndServe error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down canvas relay...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("canvas relay forced shutdown: %v", err)
	}
}
