package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/gin-gonic/gin"

	"ChatRelay/global/config"
	"ChatRelay/logger"
	user "ChatRelay/module/user"
	userstore "ChatRelay/module/user/store"
	"ChatRelay/service/chat"
	mgoSrv "ChatRelay/service/mgo"
	"ChatRelay/service/storage"
	redisSrv "ChatRelay/service/storage/redis"
	"ChatRelay/tools/security"
)

func main() {
	configPath := flag.String("config", "", "config file path (default config.yaml)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 1) Credential store (Mongo); block startup until reachable.
	mgoSrv.StartAsync(ctx, &cfg.Mongo)
	waitCtx, waitCancel := context.WithTimeout(ctx, 30*time.Second)
	defer waitCancel()
	if err := mgoSrv.WaitReady(waitCtx, mgoSrv.Manager()); err != nil {
		log.Fatalf("mongo not ready: %v (last: %v)", err, mgoSrv.Err())
	}
	store := userstore.NewMongoStore(mgoSrv.GetDB())

	// 2) Presence cache (Redis) is optional; degrade to local-only.
	var presence chat.Presence
	if err := redisSrv.InitRedis(cfg.Redis); err != nil {
		logger.Warnf("redis unavailable, presence cache disabled: %v", err)
	} else {
		presence = storage.NewRedisPresence(redisSrv.GetRedis(), cfg.Gateway.PresenceTTL)
	}

	// 3) Token service shared by login and the gateway.
	jwtOpts := security.Options{
		Secret: cfg.JwtSecret(),
		Alg:    cfg.JWT.Alg,
		TTL:    cfg.JWT.TTL,
	}

	gateway := chat.NewGateway(cfg.Gateway, store, chat.NewJWTVerifier(jwtOpts), presence)

	// 4) HTTP + WebSocket.
	r := gin.New()
	r.Use(gin.Recovery())

	user.NewHandler(store, jwtOpts).Register(r)
	r.GET("/chat", gateway.HandleWS) // e.g. ws://localhost:8080/chat?token=...

	logger.Infof("[HTTP] Listening on %s", cfg.HTTP.Addr)
	if err := r.Run(cfg.HTTP.Addr); err != nil {
		log.Fatalf("HTTP server failed: %v", err)
	}
}
