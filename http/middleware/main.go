package middlewares

import (
	"github.com/gin-gonic/gin"
	"github.com/tnqbao/gau-file-hub/config"
	"github.com/tnqbao/gau-file-hub/infra"
)

type Middlewares struct {
	CORS      gin.HandlerFunc
	UserID    gin.HandlerFunc
	RateLimit gin.HandlerFunc
}

func NewMiddlewares(cfg *config.EnvConfig, infra *infra.Infra) *Middlewares {
	return &Middlewares{
		CORS:      CORSMiddleware(cfg),
		UserID:    UserIDMiddleware(),
		RateLimit: RateLimitMiddleware(cfg, infra),
	}
}
