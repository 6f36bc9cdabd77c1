package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/HanzoRazer/emo-options-bot-sub000/internal/metrics"
)

func (s *Server) setupRoutes() {
	s.router.GET("/healthz", s.handleHealth)
	if s.metrics {
		s.router.GET("/metrics", gin.WrapH(metrics.Handler()))
	}

	v1 := s.router.Group("/api/v1")
	{
		v1.POST("/proposals", s.handleProposal)
		v1.GET("/drafts", s.handleListDrafts)
		v1.GET("/drafts/stats", s.handleDraftStats)
		v1.GET("/drafts/:id", s.handleGetDraft)
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
