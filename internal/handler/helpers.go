package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/umt-ai/unibot/internal/middleware"
	"github.com/umt-ai/unibot/internal/pkg/errcode"
	appErr "github.com/umt-ai/unibot/internal/pkg/errors"
	"github.com/umt-ai/unibot/internal/pkg/response"
)

func getUsername(c *gin.Context) string {
	value, _ := c.Get(middleware.ContextUsernameKey)
	username, _ := value.(string)
	return username
}

func handleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	requestID, _ := c.Get("request_id")
	logutil.GetLogger(c.Request.Context()).Error("request failed",
		zap.Any("request_id", requestID),
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.Error(err),
	)
	switch {
	case errors.Is(err, appErr.ErrUnauthorized):
		response.Error(c, errcode.ErrUnauthorized, "unauthorized")
	case errors.Is(err, appErr.ErrNotFound):
		response.Error(c, errcode.ErrNotFound, "not found")
	case errors.Is(err, appErr.ErrInvalid):
		response.Error(c, errcode.ErrInvalid, "invalid request")
	case errors.Is(err, appErr.ErrConflict):
		response.Error(c, errcode.ErrConflict, "conflict")
	default:
		response.Error(c, errcode.ErrInternal, "internal error")
	}
}
