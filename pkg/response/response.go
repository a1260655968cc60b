// Package response writes the JSON envelope returned by every endpoint.
package response

import (
	"errors"
	"net/http"

	"github.com/dailyrent/service-booking/pkg/domain"
	"github.com/gin-gonic/gin"
)

// Body is the response envelope.
type Body struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// Success answers 200 with data.
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Body{Success: true, Data: data})
}

// Created answers 201 with data.
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Body{Success: true, Data: data})
}

// NoContent answers 204.
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// BadRequest answers 400 with message.
func BadRequest(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, Body{Error: message})
}

// Unauthorized answers 401 with message.
func Unauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, Body{Error: message})
}

// Error maps err onto a status code by its domain kind. Internal errors
// never leak their cause to the client.
func Error(c *gin.Context, err error) {
	status := StatusFor(err)
	message := "internal server error"
	if status != http.StatusInternalServerError {
		var domErr *domain.DomainError
		if errors.As(err, &domErr) {
			message = domErr.Message
		} else {
			message = err.Error()
		}
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, Body{Error: message})
}

// StatusFor returns the HTTP status for err's domain kind.
func StatusFor(err error) int {
	switch domain.KindOf(err) {
	case domain.ErrNotFound:
		return http.StatusNotFound
	case domain.ErrConflict:
		return http.StatusConflict
	case domain.ErrBadRequest:
		return http.StatusBadRequest
	case domain.ErrForbidden:
		return http.StatusForbidden
	case domain.ErrUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
