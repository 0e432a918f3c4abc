package app

import (
	"time"

	"github.com/yungbote/upright-backend/internal/platform/logger"
	"github.com/yungbote/upright-backend/internal/utils"
)

type Config struct {
	JWTSecretKey        string
	AccessTokenTTL      time.Duration
	RefreshTokenTTL     time.Duration
	LeaderboardCacheTTL time.Duration
}

func LoadConfig(log *logger.Logger) Config {
	jwtSecretKey := utils.GetEnv("JWT_SECRET_KEY", "defaultsecret", log)
	accessTokenTTLSeconds := utils.GetEnvAsInt("ACCESS_TOKEN_TTL", 3600, log)
	refreshTokenTTLSeconds := utils.GetEnvAsInt("REFRESH_TOKEN_TTL", 86400, log)
	leaderboardCacheTTLSeconds := utils.GetEnvAsInt("LEADERBOARD_CACHE_TTL", 30, log)
	return Config{
		JWTSecretKey:        jwtSecretKey,
		AccessTokenTTL:      time.Duration(accessTokenTTLSeconds) * time.Second,
		RefreshTokenTTL:     time.Duration(refreshTokenTTLSeconds) * time.Second,
		LeaderboardCacheTTL: time.Duration(leaderboardCacheTTLSeconds) * time.Second,
	}
}
