package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"quiz-engine/internal/models"
	"quiz-engine/internal/service"
)

type AttemptHandler struct {
	Service *service.AttemptService
}

func NewAttemptHandler(s *service.AttemptService) *AttemptHandler {
	return &AttemptHandler{Service: s}
}

type startAttemptRequest struct {
	QuizID    string `json:"quiz_id"`
	SessionID string `json:"session_id"`
}

// StartAttempt begins an attempt from either a quiz or a review session.
func (h *AttemptHandler) StartAttempt(c *gin.Context) {
	var req startAttemptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if (req.QuizID == "") == (req.SessionID == "") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "exactly one of quiz_id or session_id is required"})
		return
	}

	var (
		id  string
		st  interface{}
		err error
	)
	if req.QuizID != "" {
		id, st, err = h.Service.StartQuiz(c.Request.Context(), userID(c), req.QuizID)
	} else {
		id, st, err = h.Service.StartSession(c.Request.Context(), userID(c), req.SessionID)
	}
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"attempt_id": id, "state": st})
}

// RestoreAttempt rebuilds an attempt from the saved snapshot for a quiz.
func (h *AttemptHandler) RestoreAttempt(c *gin.Context) {
	id, st, err := h.Service.Restore(c.Request.Context(), userID(c), c.Param("quizId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"attempt_id": id, "state": st})
}

func (h *AttemptHandler) GetState(c *gin.Context) {
	st, err := h.Service.State(userID(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

type submitAnswerRequest struct {
	QuestionID  string               `json:"question_id" binding:"required"`
	Payload     models.AnswerPayload `json:"payload"`
	TimeSpentMs int64                `json:"time_spent_ms"`
}

func (h *AttemptHandler) SubmitAnswer(c *gin.Context) {
	var req submitAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	res, err := h.Service.SubmitAnswer(c.Request.Context(), userID(c), c.Param("id"),
		req.QuestionID, req.Payload, req.TimeSpentMs)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"is_correct": res.IsCorrect,
		"score":      res.Score,
		"completed":  res.Completed,
	})
}

func (h *AttemptHandler) Next(c *gin.Context) {
	if err := h.Service.Next(userID(c), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "ok"})
}

func (h *AttemptHandler) Previous(c *gin.Context) {
	if err := h.Service.Previous(userID(c), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "ok"})
}

func (h *AttemptHandler) NavigateTo(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "index must be an integer"})
		return
	}
	if err := h.Service.NavigateTo(userID(c), c.Param("id"), index); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "ok"})
}

type flagRequest struct {
	QuestionID string `json:"question_id" binding:"required"`
	Flagged    *bool  `json:"flagged" binding:"required"`
}

func (h *AttemptHandler) Flag(c *gin.Context) {
	var req flagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.Service.Flag(userID(c), c.Param("id"), req.QuestionID, *req.Flagged); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "ok"})
}

func (h *AttemptHandler) Pause(c *gin.Context) {
	if err := h.Service.Pause(userID(c), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "paused"})
}

func (h *AttemptHandler) Resume(c *gin.Context) {
	if err := h.Service.Resume(userID(c), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "resumed"})
}

func (h *AttemptHandler) Complete(c *gin.Context) {
	st, err := h.Service.Complete(userID(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (h *AttemptHandler) SaveProgress(c *gin.Context) {
	if err := h.Service.SaveProgress(c.Request.Context(), userID(c), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "saved"})
}

func (h *AttemptHandler) Discard(c *gin.Context) {
	h.Service.Discard(userID(c), c.Param("id"))
	c.JSON(http.StatusOK, gin.H{"message": "discarded"})
}
