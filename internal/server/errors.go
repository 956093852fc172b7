package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/limaJavier/roomscheduler/internal/service"
	"github.com/limaJavier/roomscheduler/pkg/model"
)

// Error is the body of every failed response
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Err     error  `json:"-"`
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

var (
	ErrValidation = &Error{Code: "VALIDATION_ERROR", Status: http.StatusBadRequest, Message: "validation failed"}
	ErrScheduling = &Error{Code: "SCHEDULING_ERROR", Status: http.StatusUnprocessableEntity, Message: "input cannot be scheduled"}
	ErrInternal   = &Error{Code: "INTERNAL_ERROR", Status: http.StatusInternalServerError, Message: "internal server error"}
)

// FromError classifies err: invalid requests are 400, scheduling errors 422 and anything else 500
func FromError(err error) *Error {
	var e *Error
	var schedulingErr *model.SchedulingError
	switch {
	case errors.As(err, &e):
		return e
	case errors.Is(err, service.ErrInvalidInput):
		return Wrap(err, ErrValidation.Code, ErrValidation.Status, err.Error())
	case errors.As(err, &schedulingErr):
		return Wrap(err, ErrScheduling.Code, ErrScheduling.Status, schedulingErr.Error())
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Envelope is the common response contract
type Envelope struct {
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
}

func respond(c *gin.Context, status int, data any) {
	c.Header("Cache-Control", "no-store")
	c.JSON(status, Envelope{Data: data})
}

func respondError(c *gin.Context, err error) {
	appErr := FromError(err)
	c.Header("Cache-Control", "no-store")
	c.JSON(appErr.Status, Envelope{Error: appErr})
}
