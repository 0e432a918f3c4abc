package app

import (
	"os"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/yungbote/upright-backend/internal/platform/logger"
	"github.com/yungbote/upright-backend/internal/platform/ollama"
)

type Clients struct {
	Redis *redis.Client
	LLM   ollama.Client
}

func wireClients(log *logger.Logger) Clients {
	log.Info("Wiring clients...")

	// Redis is optional: without REDIS_ADDR the leaderboard just skips its
	// snapshot cache.
	var cache *redis.Client
	if addr := strings.TrimSpace(os.Getenv("REDIS_ADDR")); addr != "" {
		cache = redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: os.Getenv("REDIS_PASSWORD"),
		})
	}

	return Clients{
		Redis: cache,
		LLM:   ollama.NewClient(log),
	}
}

func (c *Clients) Close() {
	if c == nil {
		return
	}
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
}
