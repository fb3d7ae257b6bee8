package main

import (
	"log"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"havenai/internal/app"
	"havenai/internal/config"
	"havenai/internal/plugins"
	"havenai/internal/ratelimit"
	"havenai/internal/server"
	"havenai/internal/util"
	"havenai/pkg/ai"
	"havenai/pkg/store"
)

func main() {
	cfg, err := config.Load(config.ConfigPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	sessionTTL, err := config.ParseSessionTTL(cfg.SessionTTL)
	if err != nil {
		log.Fatalf("failed to parse session TTL: %v", err)
	}
	reuseWindow, err := config.ParseWindow(cfg.ConversationReuseWindow, 20*time.Minute)
	if err != nil {
		log.Fatalf("failed to parse conversation reuse window: %v", err)
	}
	cooldown, err := config.ParseWindow(cfg.SuggestionCooldown, 10*time.Minute)
	if err != nil {
		log.Fatalf("failed to parse suggestion cooldown: %v", err)
	}

	logger := util.InitLogger(cfg.LogLevel)

	var st store.Store
	if cfg.DatabaseURL != "" {
		gormStore, err := store.NewGormStore(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("failed to open database: %v", err)
		}
		st = gormStore
	} else {
		slog.Warn("no databaseURL configured, using in-memory store")
		st = store.NewMemoryStore()
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	sessions, err := store.NewRedisSessionStore(redisClient, []byte(cfg.SessionSecret), sessionTTL)
	if err != nil {
		log.Fatalf("failed to init session store: %v", err)
	}

	mood := plugins.NewMoodTracker(st)
	checkin := plugins.NewDailyCheckin(st)
	kanban := plugins.NewKanban(st)
	recharge := plugins.NewRecharge()
	crisis := plugins.NewCrisis()

	pm := plugins.NewManager(st)
	pm.Register(mood)
	pm.Register(checkin)
	pm.Register(plugins.NewGoalStreaks(st))
	pm.Register(kanban)
	pm.Register(recharge)
	pm.Register(crisis)
	pm.Register(plugins.NewTaskBreakdown())

	llm := ai.NewClient()
	appCore := app.New(st, sessions, llm, pm, app.Options{ReuseWindow: reuseWindow})
	if err := appCore.BootstrapAdmin(cfg.BootstrapAdminEmail, cfg.BootstrapAdminPassword); err != nil {
		log.Fatalf("failed to bootstrap admin: %v", err)
	}
	suggester := app.NewSuggester(st, llm, pm, checkin, app.NewRedisSuggestionCache(redisClient, cooldown))

	httpServer := server.New(server.Config{
		App:       appCore,
		Suggester: suggester,
		Features: server.Features{
			Mood:     mood,
			Checkin:  checkin,
			Kanban:   kanban,
			Recharge: recharge,
			Crisis:   crisis,
		},
		LoginLimiter:      newLimiter(redisClient, "haven:ratelimit:login", cfg.LoginRateLimitPerMinute),
		RegisterLimiter:   newLimiter(redisClient, "haven:ratelimit:register", cfg.RegisterRateLimitPerMinute),
		ChatLimiter:       newLimiter(redisClient, "haven:ratelimit:chat", cfg.ChatRateLimitPerMinute),
		TrustProxyHeaders: cfg.TrustProxyHeaders,
	})

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:        addr,
		Handler:     httpServer.Router(),
		ReadTimeout: 15 * time.Second,
		// Chat responses wait on the upstream model, which may take up
		// to its 300s read timeout.
		WriteTimeout: 320 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	slog.Info("haven server listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", "err", err)
	}
}

func newLimiter(client *redis.Client, prefix string, perMinute int) *ratelimit.FixedWindowLimiter {
	if perMinute <= 0 {
		return nil
	}
	limiter, err := ratelimit.NewFixedWindowLimiter(client, prefix, perMinute, time.Minute)
	if err != nil {
		log.Fatalf("failed to init rate limiter: %v", err)
	}
	return limiter
}
