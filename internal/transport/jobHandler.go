package transport

import (
	"net/http"

	"github.com/ds124wfegd/imgenhance/internal/entity"
	"github.com/ds124wfegd/imgenhance/internal/service"
	"github.com/gin-gonic/gin"
)

// JobHandler serves the asynchronous API. A nil service answers 503.
type JobHandler struct {
	service service.JobService
}

func NewJobHandler(service service.JobService) *JobHandler {
	return &JobHandler{service: service}
}

func (h *JobHandler) available(c *gin.Context) bool {
	if h == nil || h.service == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"success": false, "error": "async jobs are disabled"})
		return false
	}
	return true
}

func (h *JobHandler) Submit(c *gin.Context) {
	if !h.available(c) {
		return
	}
	var req entity.EnhanceRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := h.service.Submit(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, resp)
}

func (h *JobHandler) GetJob(c *gin.Context) {
	if !h.available(c) {
		return
	}

	job, err := h.service.GetJob(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, job)
}

func (h *JobHandler) Result(c *gin.Context) {
	if !h.available(c) {
		return
	}

	r, err := h.service.Result(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	defer r.Close()

	c.DataFromReader(http.StatusOK, -1, "image/png", r, nil)
}
