package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Handler serves the operational endpoints of the development store
type Handler struct {
	started time.Time
}

func NewHandler() *Handler {
	return &Handler{started: time.Now()}
}

func (h *Handler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "alive",
		"time":   time.Now(),
	})
}

func (h *Handler) ReadinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"uptime": time.Since(h.started).String(),
	})
}
