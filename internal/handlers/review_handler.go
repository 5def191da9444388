package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"quiz-engine/internal/models"
	"quiz-engine/internal/service"
)

type ReviewHandler struct {
	Service *service.ReviewService
}

func NewReviewHandler(s *service.ReviewService) *ReviewHandler {
	return &ReviewHandler{Service: s}
}

// DueQuestions returns the user's ranked review queue.
func (h *ReviewHandler) DueQuestions(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
	due, err := h.Service.DueQuestions(c.Request.Context(), userID(c), c.Query("topic"), limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"due": due, "count": len(due)})
}

func (h *ReviewHandler) Stats(c *gin.Context) {
	stats, err := h.Service.Stats(c.Request.Context(), userID(c), c.Query("topic"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

type createSessionRequest struct {
	Topic    string         `json:"topic"`
	Size     int            `json:"size" binding:"required"`
	Settings map[string]any `json:"settings"`
}

func (h *ReviewHandler) CreateSession(c *gin.Context) {
	var req createSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	session, err := h.Service.CreateSession(c.Request.Context(), userID(c), req.Topic, req.Size, req.Settings)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, session)
}

func (h *ReviewHandler) GetSession(c *gin.Context) {
	session, err := h.Service.GetSession(c.Request.Context(), userID(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

func (h *ReviewHandler) ListSessions(c *gin.Context) {
	filter := models.SessionFilter{Topic: c.Query("topic")}
	if v := c.Query("completed"); v != "" {
		completed := v == "true"
		filter.Completed = &completed
	}
	if v, err := strconv.ParseInt(c.DefaultQuery("limit", "0"), 10, 64); err == nil {
		filter.Limit = v
	}
	if v, err := strconv.ParseInt(c.DefaultQuery("offset", "0"), 10, 64); err == nil {
		filter.Offset = v
	}

	sessions, err := h.Service.ListSessions(c.Request.Context(), userID(c), filter)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": sessions, "count": len(sessions)})
}

func (h *ReviewHandler) CompleteSession(c *gin.Context) {
	session, err := h.Service.CompleteSession(c.Request.Context(), userID(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}
