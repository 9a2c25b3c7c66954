package jobs

import (
	"net/http"

	"anoa.com/studentcommunity/pkg/response"
	"github.com/gin-gonic/gin"
)

// Handler exposes the scheduler to administrators.
type Handler struct {
	scheduler *Scheduler
}

func NewHandler(scheduler *Scheduler) *Handler {
	return &Handler{scheduler: scheduler}
}

func (h *Handler) ListJobs(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": h.scheduler.Registered()})
}

func (h *Handler) RunJob(c *gin.Context) {
	name := c.Param("name")
	if err := h.scheduler.RunByName(c.Request.Context(), name); err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"job": name, "status": "completed"})
}
