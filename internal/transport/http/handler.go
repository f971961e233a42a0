package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/richardliu001/wallet-api/internal/model"
	"github.com/richardliu001/wallet-api/internal/repo"
	"github.com/richardliu001/wallet-api/internal/service"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func RegisterHandlers(r gin.IRouter, svc *service.WalletService, log *zap.SugaredLogger) {
	wallets := r.Group("/wallets")
	{
		wallets.GET("/:wallet_id", getWalletHandler(svc, log))
		wallets.POST("/", createWalletHandler(svc, log))
		wallets.PUT("/:wallet_id/increase_balance", increaseBalanceHandler(svc, log))
		wallets.PUT("/:wallet_id/decrease_balance", decreaseBalanceHandler(svc, log))
		wallets.DELETE("/:wallet_id", deleteWalletHandler(svc, log))
	}
}

type walletData struct {
	IDWallet uint64      `json:"id_wallet"`
	Balance  json.Number `json:"balance"`
}

type envelope struct {
	Message string     `json:"message"`
	Data    walletData `json:"data"`
	Error   bool       `json:"error"`
}

func detail(msg string) gin.H {
	return gin.H{"detail": msg}
}

func respond(c *gin.Context, msg string, w *model.Wallet) {
	c.JSON(http.StatusOK, envelope{
		Message: msg,
		Data:    walletData{IDWallet: w.IDWallet, Balance: json.Number(w.Balance.String())},
		Error:   false,
	})
}

func writeError(c *gin.Context, log *zap.SugaredLogger, err error) {
	switch {
	case errors.Is(err, repo.ErrWalletNotFound):
		c.JSON(http.StatusNotFound, detail("Wallet not found"))
	case errors.Is(err, service.ErrNotOwner):
		c.JSON(http.StatusForbidden, detail("You are not allowed to access this wallet"))
	case errors.Is(err, service.ErrCreateForOtherUser):
		c.JSON(http.StatusForbidden, detail("You are not allowed to create wallet for other user"))
	case errors.Is(err, service.ErrInsufficientBalance):
		c.JSON(http.StatusBadRequest, detail("Insufficient balance"))
	default:
		log.Errorw("request failed", "method", c.Request.Method, "path", c.Request.URL.Path, "error", err)
		c.JSON(http.StatusInternalServerError, detail("Internal server error"))
	}
}

// walletIDParam accepts any integer; ids that can never exist are reported
// as not found.
func walletIDParam(c *gin.Context) (uint64, bool) {
	id, err := strconv.ParseInt(c.Param("wallet_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, detail("wallet_id must be an integer"))
		return 0, false
	}
	if id <= 0 {
		c.JSON(http.StatusNotFound, detail("Wallet not found"))
		return 0, false
	}
	return uint64(id), true
}

// maxIntegerPart bounds amounts to the numeric(20,8) balance column.
var maxIntegerPart = decimal.New(1, 12)

// checkAmount rejects values the balance column cannot hold. Unbounded
// exponents would otherwise force huge rescales in decimal arithmetic.
func checkAmount(d decimal.Decimal) error {
	if d.Exponent() < -8 {
		return errors.New("at most 8 decimal places are allowed")
	}
	if d.Abs().GreaterThanOrEqual(maxIntegerPart) {
		return errors.New("at most 12 integer digits are allowed")
	}
	return nil
}

// amountParam parses the amount query parameter from its decimal text.
func amountParam(c *gin.Context) (decimal.Decimal, bool) {
	raw, ok := c.GetQuery("amount")
	if !ok || raw == "" {
		c.JSON(http.StatusUnprocessableEntity, detail("amount is required"))
		return decimal.Zero, false
	}
	amt, err := decimal.NewFromString(raw)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, detail("amount must be a number"))
		return decimal.Zero, false
	}
	if err := checkAmount(amt); err != nil {
		c.JSON(http.StatusUnprocessableEntity, detail("amount: "+err.Error()))
		return decimal.Zero, false
	}
	return amt, true
}

func getWalletHandler(svc *service.WalletService, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := walletIDParam(c)
		if !ok {
			return
		}
		w, err := svc.Get(c.Request.Context(), callerID(c), id)
		if err != nil {
			writeError(c, log, err)
			return
		}
		respond(c, "Wallet fetched successfully", w)
	}
}

type createWalletReq struct {
	IDUser  *uint64          `json:"id_user" binding:"required"`
	Balance *decimal.Decimal `json:"balance" binding:"required"`
}

func createWalletHandler(svc *service.WalletService, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createWalletReq
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusUnprocessableEntity, detail(err.Error()))
			return
		}
		if err := checkAmount(*req.Balance); err != nil {
			c.JSON(http.StatusUnprocessableEntity, detail("balance: "+err.Error()))
			return
		}
		w, err := svc.Create(c.Request.Context(), callerID(c), *req.IDUser, *req.Balance)
		if err != nil {
			writeError(c, log, err)
			return
		}
		respond(c, "Wallet create successfully", w)
	}
}

func increaseBalanceHandler(svc *service.WalletService, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := walletIDParam(c)
		if !ok {
			return
		}
		amt, ok := amountParam(c)
		if !ok {
			return
		}
		w, err := svc.IncreaseBalance(c.Request.Context(), callerID(c), id, amt)
		if err != nil {
			writeError(c, log, err)
			return
		}
		respond(c, "Wallet balance increased successfully", w)
	}
}

func decreaseBalanceHandler(svc *service.WalletService, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := walletIDParam(c)
		if !ok {
			return
		}
		amt, ok := amountParam(c)
		if !ok {
			return
		}
		w, err := svc.DecreaseBalance(c.Request.Context(), callerID(c), id, amt)
		if err != nil {
			writeError(c, log, err)
			return
		}
		respond(c, "Wallet balance decreased successfully", w)
	}
}

func deleteWalletHandler(svc *service.WalletService, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := walletIDParam(c)
		if !ok {
			return
		}
		w, err := svc.Delete(c.Request.Context(), callerID(c), id)
		if err != nil {
			writeError(c, log, err)
			return
		}
		respond(c, "Wallet deleted successfully", w)
	}
}
