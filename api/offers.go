package api

import (
	"net/http"

	"github.com/Domenick1991/airretail/internal/service/offers"
	"github.com/Domenick1991/airretail/internal/validation"
	"github.com/gin-gonic/gin"
)

type OfferHandler struct {
	service offers.OfferUseCase
}

func NewOfferHandler(service offers.OfferUseCase) *OfferHandler {
	return &OfferHandler{service: service}
}

func (h *OfferHandler) Register(router *gin.RouterGroup) {
	router.POST("/search", h.search)
	router.GET("/:id", h.get)
	router.POST("/expire", h.expire)
}

func (h *OfferHandler) search(c *gin.Context) {
	var req validation.SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.service.SearchOffers(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"offers": result, "count": len(result)})
}

func (h *OfferHandler) get(c *gin.Context) {
	offer, err := h.service.GetOfferPrice(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, offer)
}

func (h *OfferHandler) expire(c *gin.Context) {
	n, err := h.service.ExpireStaleOffers(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"expired": n})
}
