package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"holidaysri-engine/internal/auth"
	"holidaysri-engine/internal/services"
)

var kindStatus = map[services.ErrorKind]int{
	services.KindInvalidAmount:       http.StatusBadRequest,
	services.KindInvalidFormat:       http.StatusBadRequest,
	services.KindInvalidRecord:       http.StatusBadRequest,
	services.KindInvalidRequest:      http.StatusBadRequest,
	services.KindBelowMinimum:        http.StatusUnprocessableEntity,
	services.KindPayoutMethodMissing: http.StatusUnprocessableEntity,
	services.KindDuplicateCode:       http.StatusConflict,
	services.KindAlreadyHasCode:      http.StatusConflict,
	services.KindAlreadyListed:       http.StatusConflict,
	services.KindNoLongerListed:      http.StatusConflict,
	services.KindNotOwner:            http.StatusForbidden,
	services.KindExpired:             http.StatusGone,
	services.KindInsufficientBalance: http.StatusPaymentRequired,
	services.KindNotFound:            http.StatusNotFound,
	services.KindOperationFailed:     http.StatusServiceUnavailable,
}

// respondError writes an engine error with its kind and subject, or a generic 500
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	var engineErr *services.EngineError
	if errors.As(err, &engineErr) {
		status, ok := kindStatus[engineErr.Kind]
		if !ok {
			status = http.StatusInternalServerError
		}
		if status >= http.StatusInternalServerError {
			logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		}
		body := gin.H{
			"success": false,
			"error":   engineErr.Error(),
			"code":    engineErr.Kind,
		}
		if engineErr.Subject != "" {
			body["subject"] = engineErr.Subject
		}
		c.JSON(status, body)
		return
	}

	logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{
		"success": false,
		"error":   "Internal server error",
	})
}

func respondBadRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"success": false,
		"error":   err.Error(),
		"code":    services.KindInvalidRequest,
	})
}

// requireUser returns the authenticated user id or writes a 401
func requireUser(c *gin.Context) (uint, bool) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"error":   "User not authenticated",
		})
		return 0, false
	}
	return userID, true
}

func queryInt(c *gin.Context, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}
