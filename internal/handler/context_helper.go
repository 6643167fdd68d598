package handler

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/vidyalaya-labs/vidyalaya-api/internal/middleware"
	"github.com/vidyalaya-labs/vidyalaya-api/internal/models"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

func queryBool(c *gin.Context, key string) *bool {
	switch strings.ToLower(c.Query(key)) {
	case "true":
		val := true
		return &val
	case "false":
		val := false
		return &val
	default:
		return nil
	}
}

func queryInt(c *gin.Context, key string, fallback int) int {
	if value, err := strconv.Atoi(c.DefaultQuery(key, strconv.Itoa(fallback))); err == nil {
		return value
	}
	return fallback
}
