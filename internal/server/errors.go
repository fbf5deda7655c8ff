package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/MarcoPoloResearchLab/devflow/backend/internal/apperror"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	errorKindNotFound   = "not_found"
	errorKindConflict   = "conflict"
	errorKindValidation = "validation"
	errorKindInternal   = "internal"
)

type errorPayload struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// respondError maps service errors onto HTTP statuses.
func (h *httpHandler) respondError(c *gin.Context, err error) {
	status, kind := classify(err)
	payload := errorPayload{Error: kind, Code: apperror.CodeOf(err), Message: err.Error()}

	var appErr *apperror.Error
	if errors.As(err, &appErr) {
		payload.Message = appErr.Message()
	}
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed", zap.String("code", payload.Code), zap.Error(err))
		payload.Message = http.StatusText(http.StatusInternalServerError)
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, payload)
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, apperror.ErrNotFound):
		return http.StatusNotFound, errorKindNotFound
	case errors.Is(err, apperror.ErrConflict):
		return http.StatusConflict, errorKindConflict
	case errors.Is(err, apperror.ErrValidation):
		return http.StatusBadRequest, errorKindValidation
	default:
		return http.StatusInternalServerError, errorKindInternal
	}
}

func (h *httpHandler) respondInvalidRequest(c *gin.Context, code string, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, errorPayload{
		Error:   errorKindValidation,
		Code:    code,
		Message: err.Error(),
	})
}

// bindJSON decodes and validates the body, writing a 400 on failure.
func (h *httpHandler) bindJSON(c *gin.Context, target any) bool {
	if err := c.ShouldBindJSON(target); err != nil {
		h.respondInvalidRequest(c, "request.invalid_body", err)
		return false
	}
	return true
}

func (h *httpHandler) bindQuery(c *gin.Context, target any) bool {
	if err := c.ShouldBindQuery(target); err != nil {
		h.respondInvalidRequest(c, "request.invalid_query", err)
		return false
	}
	return true
}

// pathID parses a positive integer path parameter.
func (h *httpHandler) pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		h.respondInvalidRequest(c, "request.invalid_"+name, errors.New(name+" must be a positive integer"))
		return 0, false
	}
	return id, true
}
