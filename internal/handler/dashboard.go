package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mfahriferdiansyah/domalend-sub001/internal/aggregate"
)

type DashboardHandler struct {
	Agg *aggregate.Aggregator
}

func (h *DashboardHandler) Register(r *gin.Engine) {
	r.GET("/api/v1/dashboard", h.dashboard)
	r.GET("/api/v1/users/:address/portfolio", h.portfolio)
}

func (h *DashboardHandler) dashboard(c *gin.Context) {
	if h.Agg == nil {
		Error(c, http.StatusInternalServerError, "aggregator unavailable", nil)
		return
	}
	view, err := h.Agg.Dashboard(c.Request.Context())
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, view, nil)
}

func (h *DashboardHandler) portfolio(c *gin.Context) {
	if h.Agg == nil {
		Error(c, http.StatusInternalServerError, "aggregator unavailable", nil)
		return
	}
	address := strings.TrimSpace(c.Param("address"))
	if !validAddress(address) {
		Error(c, http.StatusBadRequest, "invalid address", nil)
		return
	}
	view, err := h.Agg.Portfolio(c.Request.Context(), address)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, view, nil)
}
