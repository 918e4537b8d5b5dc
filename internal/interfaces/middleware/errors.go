package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// AbortWithDetail stops the chain and writes the error body shared by every
// endpoint: a status text under "error" and a human readable "detail".
func AbortWithDetail(c *gin.Context, status int, detail string) {
	c.AbortWithStatusJSON(status, gin.H{
		"error":  statusText(status),
		"detail": detail,
	})
}

func statusText(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusUnprocessableEntity:
		return "unprocessable_entity"
	case http.StatusServiceUnavailable:
		return "service_unavailable"
	default:
		if status >= http.StatusInternalServerError {
			return "internal_error"
		}
		return "error"
	}
}
