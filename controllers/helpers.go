package controllers

import (
	"net/http"

	apperrors "github.com/yashrajoria/storefront-backend/pkg/errors"
	"github.com/yashrajoria/storefront-backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// respondError logs err with the request id and writes its JSON error body.
// Server-side failures are logged at error level, client mistakes at debug.
func respondError(c *gin.Context, log *zap.Logger, msg string, err error) {
	appErr := apperrors.From(err)
	fields := []zap.Field{
		zap.String("request_id", logger.RequestID(c)),
		zap.String("code", appErr.Code),
		zap.Error(err),
	}
	if appErr.Status >= http.StatusInternalServerError {
		log.Error(msg, fields...)
	} else {
		log.Debug(msg, fields...)
	}
	apperrors.ErrorResponse(c, appErr)
}

// bindJSON decodes the request body into dst, answering 400 on malformed JSON.
func bindJSON(c *gin.Context, log *zap.Logger, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		respondError(c, log, "Malformed request body", apperrors.Wrap(apperrors.ErrValidation, err))
		return false
	}
	return true
}
