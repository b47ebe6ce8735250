package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/padilotto/lotto-service/internal/auth"
	"github.com/padilotto/lotto-service/internal/draws"
	"github.com/padilotto/lotto-service/internal/repo"
	"github.com/padilotto/lotto-service/internal/service"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func RegisterHandlers(r *gin.Engine, svc *service.Service, tokens *auth.TokenService, log *zap.SugaredLogger) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := r.Group("/v1")
	{
		v1.POST("/auth/token", issueTokenHandler(svc, tokens))
		v1.GET("/draws/next", nextDrawHandler())

		v1.POST("/wallets/:id/deposit", depositHandler(svc, log))
		v1.POST("/wallets/:id/winnings", winningHandler(svc, log))
		v1.GET("/wallets/:id/balance", balanceHandler(svc, log))
		v1.GET("/wallets/:id/history", historyHandler(svc, log))

		authed := v1.Group("/")
		authed.Use(AuthMiddleware(tokens))
		{
			authed.GET("/users/me", profileHandler(svc, log))
			authed.POST("/tickets/purchase", purchaseHandler(svc, log))
			authed.GET("/tickets", ticketsHandler(svc, log))
			authed.POST("/wallets/:id/withdraw", withdrawHandler(svc, log))
		}
	}
}

// handleError maps service errors onto HTTP statuses; everything unexpected
// is a 500 and logged with its request id.
func handleError(c *gin.Context, log *zap.SugaredLogger, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrInvalidAmount),
		errors.Is(err, draws.ErrUnknownDraw):
		status = http.StatusBadRequest
	case errors.Is(err, repo.ErrInsufficientFunds):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrUserNotFound):
		status = http.StatusNotFound
	case errors.Is(err, repo.ErrConflict):
		status = http.StatusConflict
	}
	if status == http.StatusInternalServerError {
		log.Errorw("internal error", "request_id", c.GetString("request_id"), "err", err)
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

type tokenReq struct {
	UserID   uint64 `json:"user_id" binding:"required"`
	MobileNo string `json:"mobile_no" binding:"required"`
}

func issueTokenHandler(svc *service.Service, tokens *auth.TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req tokenReq
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		u, err := svc.GetProfile(c.Request.Context(), req.UserID)
		if err != nil || u.MobileNo != req.MobileNo {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}
		tok, err := tokens.Generate(u.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"token": tok})
	}
}

func profileHandler(svc *service.Service, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, err := svc.GetProfile(c.Request.Context(), c.GetUint64("user_id"))
		if err != nil {
			handleError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, u)
	}
}

type purchaseReq struct {
	StakeAmt         string `json:"stake_amt" binding:"required"`
	PotentialWinning string `json:"potential_winning" binding:"required"`
	DrawDay          int    `json:"draw_day" binding:"required"`
	MobileNo         string `json:"mobile_no"`
	IdempotencyKey   string `json:"idempotency_key"`
}

func purchaseHandler(svc *service.Service, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req purchaseReq
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		stake, err := decimal.NewFromString(req.StakeAmt)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid stake_amt"})
			return
		}
		winning, err := decimal.NewFromString(req.PotentialWinning)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid potential_winning"})
			return
		}
		res, err := svc.Purchase(c.Request.Context(), service.PurchaseInput{
			UserID:           c.GetUint64("user_id"),
			StakeAmt:         stake,
			PotentialWinning: winning,
			DrawDay:          req.DrawDay,
			MobileNo:         req.MobileNo,
			IdempotencyKey:   req.IdempotencyKey,
		})
		if err != nil {
			handleError(c, log, err)
			return
		}
		status := http.StatusCreated
		if res.Replayed {
			status = http.StatusOK
		}
		c.JSON(status, gin.H{
			"ticket":       res.Ticket,
			"main_balance": res.MainBalance,
			"bonus":        res.Bonus,
			"replayed":     res.Replayed,
		})
	}
}

func ticketsHandler(svc *service.Service, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
		tickets, err := svc.GetTickets(c.Request.Context(), c.GetUint64("user_id"), limit)
		if err != nil {
			handleError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, tickets)
	}
}

func nextDrawHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		day, err := strconv.Atoi(c.Query("day"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid day"})
			return
		}
		draw, err := draws.Next(day, time.Now())
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, draw)
	}
}

type amountReq struct {
	Amount         string `json:"amount" binding:"required"`
	IdempotencyKey string `json:"idempotency_key" binding:"required"`
}

func depositHandler(svc *service.Service, log *zap.SugaredLogger) gin.HandlerFunc {
	return amountHandler(svc.Deposit, log)
}

// withdrawHandler moves money out of the system on the user's behalf, so it
// sits behind the auth middleware and only accepts the caller's own wallet.
func withdrawHandler(svc *service.Service, log *zap.SugaredLogger) gin.HandlerFunc {
	inner := amountHandler(svc.Withdraw, log)
	return func(c *gin.Context) {
		id, err := strconv.ParseUint(c.Param("id"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid wallet id"})
			return
		}
		if id != c.GetUint64("user_id") {
			c.JSON(http.StatusForbidden, gin.H{"error": "cannot withdraw from another user's wallet"})
			return
		}
		inner(c)
	}
}

func winningHandler(svc *service.Service, log *zap.SugaredLogger) gin.HandlerFunc {
	return amountHandler(svc.CreditWinning, log)
}

// amountHandler shapes the three credit/debit endpoints, which differ only
// in the service operation they call.
func amountHandler(op func(ctx context.Context, id uint64, amt decimal.Decimal, key string) (decimal.Decimal, error), log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req amountReq
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		id, err := strconv.ParseUint(c.Param("id"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid wallet id"})
			return
		}
		amt, err := decimal.NewFromString(req.Amount)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid amount"})
			return
		}
		bal, err := op(c.Request.Context(), id, amt, req.IdempotencyKey)
		if err != nil {
			handleError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"main_balance": bal})
	}
}

func balanceHandler(svc *service.Service, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseUint(c.Param("id"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid wallet id"})
			return
		}
		main, bonus, err := svc.GetBalances(c.Request.Context(), id)
		if err != nil {
			handleError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"main_balance": main, "bonus": bonus})
	}
}

func historyHandler(svc *service.Service, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseUint(c.Param("id"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid wallet id"})
			return
		}
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
		sinceStr := c.DefaultQuery("since", time.Now().Add(-24*time.Hour).Format(time.RFC3339))
		since, err := time.Parse(time.RFC3339, sinceStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid since"})
			return
		}
		entries, err := svc.GetHistory(c.Request.Context(), id, limit, since)
		if err != nil {
			handleError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, entries)
	}
}
