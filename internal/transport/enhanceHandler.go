package transport

import (
	"net/http"

	"github.com/ds124wfegd/imgenhance/internal/entity"
	"github.com/ds124wfegd/imgenhance/internal/service"
	"github.com/gin-gonic/gin"
)

type EnhanceHandler struct {
	service service.EnhanceService
}

func NewEnhanceHandler(service service.EnhanceService) *EnhanceHandler {
	return &EnhanceHandler{service: service}
}

func (h *EnhanceHandler) Enhance(c *gin.Context) {
	var req entity.EnhanceRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := h.service.Enhance(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *EnhanceHandler) Analyze(c *gin.Context) {
	var req entity.AnalyzeRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := h.service.Analyze(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *EnhanceHandler) Filter(c *gin.Context) {
	var req entity.FilterRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := h.service.Filter(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *EnhanceHandler) BackgroundBlur(c *gin.Context) {
	var req entity.BackgroundBlurRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := h.service.BackgroundBlur(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
