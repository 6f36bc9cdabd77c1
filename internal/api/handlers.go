package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/HanzoRazer/emo-options-bot-sub000/internal/model"
	"github.com/HanzoRazer/emo-options-bot-sub000/internal/pipeline"
	"github.com/HanzoRazer/emo-options-bot-sub000/internal/staging"
	"github.com/HanzoRazer/emo-options-bot-sub000/internal/view"
)

// handleProposal runs one request through the full pipeline. Blocked
// proposals are a valid outcome, not a server error; they return 422 with
// the reasons attached.
func (s *Server) handleProposal(c *gin.Context) {
	var req pipeline.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "text is required"})
		return
	}

	result, err := s.pipeline.Propose(c.Request.Context(), req)
	if err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, view.ErrEmptyText) {
			status = http.StatusBadRequest
		}
		if errors.Is(err, staging.ErrDuplicateDraft) || errors.Is(err, staging.ErrPlanMismatch) {
			status = http.StatusConflict
		}
		c.JSON(status, gin.H{"error": err.Error(), "result": result})
		return
	}

	switch result.Outcome {
	case pipeline.OutcomeStaged:
		c.JSON(http.StatusCreated, result)
	case pipeline.OutcomeBlocked:
		c.JSON(http.StatusUnprocessableEntity, result)
	default:
		c.JSON(http.StatusOK, result)
	}
}

func (s *Server) handleListDrafts(c *gin.Context) {
	filter := staging.Filter{
		Symbol:   c.Query("symbol"),
		Status:   model.OrderStatus(c.Query("status")),
		Strategy: model.StrategyType(c.Query("strategy")),
	}
	if raw := c.Query("since"); raw != "" {
		since, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "since must be RFC 3339, e.g. 2026-08-01T00:00:00Z"})
			return
		}
		filter.Since = since
	}
	drafts, err := s.store.List(filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"drafts": drafts, "count": len(drafts)})
}

func (s *Server) handleGetDraft(c *gin.Context) {
	draft, err := s.store.Get(c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, staging.ErrDraftNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		case errors.Is(err, staging.ErrCorruptDraft):
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}
	c.JSON(http.StatusOK, draft)
}

func (s *Server) handleDraftStats(c *gin.Context) {
	stats, err := s.store.Stats()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, stats)
}
