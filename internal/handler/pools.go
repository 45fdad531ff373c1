package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mfahriferdiansyah/domalend-sub001/internal/aggregate"
)

type PoolHandler struct {
	Agg *aggregate.Aggregator
}

func (h *PoolHandler) Register(r *gin.Engine) {
	g := r.Group("/api/v1/pools")
	g.GET("", h.list)
	g.GET("/:id", h.get)
}

func (h *PoolHandler) list(c *gin.Context) {
	if h.Agg == nil {
		Error(c, http.StatusInternalServerError, "aggregator unavailable", nil)
		return
	}
	q := aggregate.PoolQuery{
		Status: strings.TrimSpace(strings.ToLower(c.Query("status"))),
		SortBy: parseSort(c.Query("sort_by"), map[string]string{
			"created_at": "created_at",
			"liquidity":  "liquidity",
		}),
		Page:  intQuery(c, "page", 1),
		Limit: intQuery(c, "limit", 20),
	}
	if v := strings.TrimSpace(c.Query("creator")); v != "" {
		if !validAddress(v) {
			Error(c, http.StatusBadRequest, "invalid creator address", nil)
			return
		}
		q.Creator = v
	}

	items, total, err := h.Agg.Pools(c.Request.Context(), q)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, pageMeta(q.Page, q.Limit, total))
}

func (h *PoolHandler) get(c *gin.Context) {
	if h.Agg == nil {
		Error(c, http.StatusInternalServerError, "aggregator unavailable", nil)
		return
	}
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		Error(c, http.StatusBadRequest, "missing pool id", nil)
		return
	}
	view, err := h.Agg.Pool(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, aggregate.ErrNotFound) {
			Error(c, http.StatusNotFound, "pool not found", nil)
			return
		}
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, view, nil)
}
