package api

import (
	"net/http"

	"github.com/Domenick1991/airretail/internal/service/orders"
	"github.com/gin-gonic/gin"
)

type AdminHandler struct {
	service orders.OrderUseCase
}

func NewAdminHandler(service orders.OrderUseCase) *AdminHandler {
	return &AdminHandler{service: service}
}

func (h *AdminHandler) Register(router *gin.RouterGroup) {
	router.GET("/statistics", h.statistics)
}

func (h *AdminHandler) statistics(c *gin.Context) {
	stats, err := h.service.Statistics(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
