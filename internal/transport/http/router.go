package http

import (
	"github.com/gin-gonic/gin"
	"github.com/padilotto/lotto-service/internal/auth"
	"github.com/padilotto/lotto-service/internal/config"
	"github.com/padilotto/lotto-service/internal/service"
	"go.uber.org/zap"
)

func NewRouter(svc *service.Service, tokens *auth.TokenService, rl config.RateLimitConfig, log *zap.SugaredLogger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggingMiddleware(log))
	r.Use(RateLimitMiddleware(rl.RPS, rl.Burst))
	RegisterHandlers(r, svc, tokens, log)
	return r
}
