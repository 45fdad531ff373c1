package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mfahriferdiansyah/domalend-sub001/internal/repository"
	"github.com/mfahriferdiansyah/domalend-sub001/internal/scoring"
)

type ScoreHandler struct {
	Svc  *scoring.Service
	Repo repository.Repository
}

func (h *ScoreHandler) Register(r *gin.Engine) {
	g := r.Group("/api/v1/domains")
	g.GET("/:name/score", h.score)
	g.GET("/:name/scoring-events", h.events)
}

func (h *ScoreHandler) score(c *gin.Context) {
	if h.Svc == nil {
		Error(c, http.StatusInternalServerError, "scoring unavailable", nil)
		return
	}
	name := strings.TrimSpace(strings.ToLower(c.Param("name")))
	if name == "" {
		Error(c, http.StatusBadRequest, "missing domain name", nil)
		return
	}

	refresh, _ := strconv.ParseBool(c.Query("refresh"))
	var (
		score scoring.DomainScore
		err   error
	)
	if refresh {
		score, err = h.Svc.Refresh(c.Request.Context(), name)
	} else {
		score, err = h.Svc.Get(c.Request.Context(), name)
	}
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, score, nil)
}

// events exposes the scoring audit trail for one domain.
func (h *ScoreHandler) events(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	name := strings.TrimSpace(strings.ToLower(c.Param("name")))
	if name == "" {
		Error(c, http.StatusBadRequest, "missing domain name", nil)
		return
	}
	limit := intQuery(c, "limit", 50)
	offset := intQuery(c, "offset", 0)

	items, err := h.Repo.ListScoringEvents(c.Request.Context(), repository.ListScoringEventsParams{
		DomainName: &name,
		Limit:      limit,
		Offset:     offset,
	})
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, map[string]any{"limit": limit, "offset": offset})
}
