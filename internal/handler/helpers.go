package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/embedgate/internal/ai"
	"github.com/xxxsen/embedgate/internal/pkg/errs"
	"github.com/xxxsen/embedgate/internal/pkg/response"
)

// handleError maps a flow error onto the envelope and HTTP status.
// Upstream messages carry provider status for diagnosis but never any
// credential; anything unclassified collapses to a generic 500.
func handleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	logutil.GetLogger(c.Request.Context()).Error("request error",
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.Error(err),
	)
	switch {
	case errors.Is(err, errs.ErrUnauthenticated):
		response.Error(c, http.StatusUnauthorized, "unauthenticated")
	case errors.Is(err, errs.ErrInvalidRequest), errors.Is(err, errs.ErrInvalidDimension):
		response.Error(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, errs.ErrNotFound):
		response.Error(c, http.StatusNotFound, "not found")
	case errors.Is(err, errs.ErrMethodNotAllowed):
		response.Error(c, http.StatusMethodNotAllowed, "method not allowed")
	case errs.IsTimeout(err), errors.Is(err, context.DeadlineExceeded):
		response.Error(c, http.StatusGatewayTimeout, err.Error())
	case errs.IsUpstream(err):
		response.Error(c, http.StatusBadGateway, err.Error())
	case errors.Is(err, ai.ErrUnavailable):
		response.Error(c, http.StatusServiceUnavailable, "ai provider not configured")
	default:
		response.Error(c, http.StatusInternalServerError, "internal error")
	}
}
