package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/k1zuko/crazyrace-sub000/internal/services"
)

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

// serviceError maps service sentinel errors to stable wire codes and status
// codes; anything else is a plain 400.
func serviceError(c *gin.Context, err error) {
	code := services.ErrorCode(err)
	status := http.StatusBadRequest
	switch code {
	case "room_not_found":
		status = http.StatusNotFound
	case "unauthorized":
		status = http.StatusForbidden
	case "invalid_credentials":
		status = http.StatusUnauthorized
	case "session_locked", "duplicate_nickname", "room_full", "username_taken":
		status = http.StatusConflict
	}
	c.JSON(status, ErrorResponse{Error: err.Error(), Code: code})
}
