package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mfahriferdiansyah/domalend-sub001/internal/aggregate"
)

type AuctionHandler struct {
	Agg *aggregate.Aggregator
}

func (h *AuctionHandler) Register(r *gin.Engine) {
	g := r.Group("/api/v1/auctions")
	g.GET("", h.list)
	g.GET("/:id", h.get)
}

func (h *AuctionHandler) list(c *gin.Context) {
	if h.Agg == nil {
		Error(c, http.StatusInternalServerError, "aggregator unavailable", nil)
		return
	}
	q := aggregate.AuctionQuery{
		Status: strings.TrimSpace(strings.ToLower(c.Query("status"))),
		Domain: strings.TrimSpace(strings.ToLower(c.Query("domain"))),
		SortBy: parseSort(c.Query("sort_by"), map[string]string{
			"started_at": "started_at",
			"price":      "price",
		}),
		Page:  intQuery(c, "page", 1),
		Limit: intQuery(c, "limit", 20),
	}
	if v := strings.TrimSpace(c.Query("borrower")); v != "" {
		if !validAddress(v) {
			Error(c, http.StatusBadRequest, "invalid borrower address", nil)
			return
		}
		q.Borrower = v
	}

	items, total, err := h.Agg.Auctions(c.Request.Context(), q)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, pageMeta(q.Page, q.Limit, total))
}

func (h *AuctionHandler) get(c *gin.Context) {
	if h.Agg == nil {
		Error(c, http.StatusInternalServerError, "aggregator unavailable", nil)
		return
	}
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		Error(c, http.StatusBadRequest, "missing auction id", nil)
		return
	}
	view, err := h.Agg.Auction(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, aggregate.ErrNotFound) {
			Error(c, http.StatusNotFound, "auction not found", nil)
			return
		}
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, view, nil)
}
