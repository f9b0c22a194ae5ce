package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/KonstantinidouCh/multi-llm-eval/internal/llm"
)

type ProviderHandler struct {
	gateway *llm.Gateway
}

func NewProviderHandler(gateway *llm.Gateway) *ProviderHandler {
	return &ProviderHandler{gateway: gateway}
}

// List returns the registered providers with a live availability probe.
func (h *ProviderHandler) List(c *gin.Context) {
	c.JSON(http.StatusOK, h.gateway.List(c.Request.Context()))
}
