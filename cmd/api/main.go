package main

import (
	"context"
	"fmt"
	"log"

	"madr-api/core"
)

func main() {
	cfg := core.Load()
	ctx := context.Background()

	logCloser, err := core.SetupLogging(cfg, "api.log")
	if err != nil {
		log.Fatalf("failed to setup logging: %v", err)
	}
	defer logCloser.Close()

	db, err := core.Connect(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}
	defer db.Close()

	codec, err := core.NewTokenCodec(cfg)
	if err != nil {
		log.Fatalf("invalid token configuration: %v", err)
	}
	hasher := core.NewBcryptHasher()

	// The login limiter is an abuse brake, opted in by configuring Redis.
	var limiter *core.LoginLimiter
	if cfg.RedisURL != "" {
		redisClient, err := core.NewRedisClient(cfg.RedisURL)
		if err != nil {
			log.Fatalf("failed to connect redis: %v", err)
		}
		defer redisClient.Close()
		limiter = core.NewLoginLimiter(redisClient, cfg)
	}

	accounts := core.NewPgAccountRepository(db)
	novelists := core.NewPgNovelistRepository(db)
	books := core.NewPgBookRepository(db)

	router := core.NewRouter(cfg, codec, hasher, limiter, accounts, novelists, books)

	addr := fmt.Sprintf(":%s", cfg.Port)
	log.Printf("starting madr api server on %s", addr)
	if err := router.Run(addr); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}
