package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/upright-backend/internal/data/repos"
	"github.com/yungbote/upright-backend/internal/platform/logger"
)

type Repos struct {
	User           repos.UserRepo
	UserToken      repos.UserTokenRepo
	Session        repos.SessionRepo
	Friend         repos.FriendRepo
	Recommendation repos.RecommendationRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		User:           repos.NewUserRepo(db, log),
		UserToken:      repos.NewUserTokenRepo(db, log),
		Session:        repos.NewSessionRepo(db, log),
		Friend:         repos.NewFriendRepo(db, log),
		Recommendation: repos.NewRecommendationRepo(db, log),
	}
}
