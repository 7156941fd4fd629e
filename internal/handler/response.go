// Package handler provides the HTTP handlers of the balance API.
package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"balance-ledger/internal/middleware"
	"balance-ledger/internal/service"
)

// Response is the envelope every endpoint returns.
type Response struct {
	Status  bool   `json:"status"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message"`
}

func respond(c *gin.Context, code int, data any, message string) {
	c.JSON(code, Response{Status: true, Data: data, Message: message})
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, Response{Status: false, Message: message})
}

// statusClientClosedRequest reports a request the client abandoned.
const statusClientClosedRequest = 499

// fail maps a service error to a status code. Storage failures are logged
// and reported without their cause.
func fail(c *gin.Context, err error) {
	code := http.StatusInternalServerError
	message := "internal error"

	switch {
	case errors.Is(err, service.ErrInvalidArgument):
		code, message = http.StatusBadRequest, err.Error()
	case errors.Is(err, service.ErrNotFound):
		code, message = http.StatusNotFound, "not found"
	case errors.Is(err, service.ErrConflict):
		code, message = http.StatusConflict, err.Error()
	case errors.Is(err, service.ErrStorageUnavailable):
		message = "storage unavailable"
	case errors.Is(err, context.Canceled):
		code, message = statusClientClosedRequest, "request canceled"
	case errors.Is(err, context.DeadlineExceeded):
		code, message = http.StatusGatewayTimeout, "request timed out"
	}

	if code >= http.StatusInternalServerError {
		log.Error().
			Err(err).
			Str("request_id", c.GetString(middleware.KeyRequestID)).
			Str("path", c.FullPath()).
			Msg("Request failed")
	}

	c.JSON(code, Response{Status: false, Message: message})
}

// positiveID parses a required positive integer path parameter.
func positiveID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, name+" must be a positive integer")
		return 0, false
	}
	return id, true
}

// optionalID parses an optional positive integer query parameter.
func optionalID(c *gin.Context, name string) (*int64, bool) {
	raw, present := c.GetQuery(name)
	if !present || raw == "" {
		return nil, true
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, name+" must be a positive integer")
		return nil, false
	}
	return &id, true
}

// optionalInt parses an optional non-negative integer query parameter.
func optionalInt(c *gin.Context, name string) (int, bool) {
	raw, present := c.GetQuery(name)
	if !present || raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		badRequest(c, name+" must be a non-negative integer")
		return 0, false
	}
	return n, true
}
