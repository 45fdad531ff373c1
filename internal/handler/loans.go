package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mfahriferdiansyah/domalend-sub001/internal/aggregate"
)

type LoanHandler struct {
	Agg *aggregate.Aggregator
}

func (h *LoanHandler) Register(r *gin.Engine) {
	g := r.Group("/api/v1/loans")
	g.GET("", h.list)
	g.GET("/:id", h.get)
}

func (h *LoanHandler) list(c *gin.Context) {
	if h.Agg == nil {
		Error(c, http.StatusInternalServerError, "aggregator unavailable", nil)
		return
	}
	q := aggregate.LoanQuery{
		Status: strings.TrimSpace(strings.ToLower(c.Query("status"))),
		PoolID: strings.TrimSpace(c.Query("pool_id")),
		Domain: strings.TrimSpace(strings.ToLower(c.Query("domain"))),
		SortBy: parseSort(c.Query("sort_by"), map[string]string{
			"created_at": "created_at",
			"amount":     "amount",
			"deadline":   "deadline",
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

	items, total, err := h.Agg.Loans(c.Request.Context(), q)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, pageMeta(q.Page, q.Limit, total))
}

func (h *LoanHandler) get(c *gin.Context) {
	if h.Agg == nil {
		Error(c, http.StatusInternalServerError, "aggregator unavailable", nil)
		return
	}
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		Error(c, http.StatusBadRequest, "missing loan id", nil)
		return
	}
	view, err := h.Agg.Loan(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, aggregate.ErrNotFound) {
			Error(c, http.StatusNotFound, "loan not found", nil)
			return
		}
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, view, nil)
}
