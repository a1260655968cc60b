// Package handler exposes the application services over HTTP.
package handler

import (
	"github.com/dailyrent/service-booking/pkg/middleware"
	"github.com/dailyrent/service-booking/pkg/response"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// callerID returns the authenticated user or answers 401.
func callerID(c *gin.Context) (uuid.UUID, bool) {
	id, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c, "unauthorized")
	}
	return id, ok
}

// paramUUID parses a path parameter or answers 400.
func paramUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		response.BadRequest(c, "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}
