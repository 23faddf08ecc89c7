package resputil

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ync-lab/intranet/pkg/workflow"
)

// Response is the envelope of every API response
type Response[T any] struct {
	Code ErrorCode `json:"code"`
	Data T         `json:"data"`
	Msg  string    `json:"msg"`
}

func wrapResponse(c *gin.Context, httpCode int, msg string, data any, code ErrorCode) {
	c.JSON(httpCode, Response[any]{
		Code: code,
		Data: data,
		Msg:  msg,
	})
}

func Success(c *gin.Context, data any) {
	wrapResponse(c, http.StatusOK, "", data, OK)
}

// Error responds with HTTP 500, the frontend reads the error code
func Error(c *gin.Context, msg string, errorCode ErrorCode) {
	wrapResponse(c, http.StatusInternalServerError, msg, nil, errorCode)
}

func HTTPError(c *gin.Context, httpCode int, msg string, errorCode ErrorCode) {
	wrapResponse(c, httpCode, msg, nil, errorCode)
}

func BadRequestError(c *gin.Context, msg string) {
	wrapResponse(c, http.StatusBadRequest, msg, nil, InvalidRequest)
}

// DomainError maps the sentinel errors of the domain packages onto status and code
func DomainError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, workflow.ErrNotFound):
		HTTPError(c, http.StatusNotFound, err.Error(), NotFound)
	case errors.Is(err, workflow.ErrForbidden):
		HTTPError(c, http.StatusForbidden, err.Error(), UserNotAllowed)
	case errors.Is(err, workflow.ErrInvalidState):
		HTTPError(c, http.StatusConflict, err.Error(), InvalidState)
	case errors.Is(err, workflow.ErrDuplicate):
		HTTPError(c, http.StatusConflict, err.Error(), Duplicate)
	case errors.Is(err, workflow.ErrInvalidInput):
		HTTPError(c, http.StatusBadRequest, err.Error(), InvalidRequest)
	default:
		Error(c, err.Error(), ServiceError)
	}
}
