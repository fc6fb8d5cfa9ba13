package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Healthcheck reports process liveness.
func Healthcheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
