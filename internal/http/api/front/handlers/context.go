package handlers

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// ContextUserIDKey is the gin context key holding the caller's user id.
const ContextUserIDKey = "userID"

func getUserID(c *gin.Context) string {
	if c == nil {
		return ""
	}
	if v, ok := c.Get(ContextUserIDKey); ok {
		if id, okString := v.(string); okString {
			return strings.TrimSpace(id)
		}
	}
	return ""
}

func queryInt(c *gin.Context, name string, fallback int) int {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}
