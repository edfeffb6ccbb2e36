package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"CuteTutor/internal/middleware"
	"CuteTutor/internal/session"
	"CuteTutor/internal/tutor"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var errEmptyMessage = errors.New("message cannot be empty")

type CounselorRequest struct {
	Message string `json:"message" example:"I felt sad at school today"`
}

type CounselorResponse struct {
	Reply   string       `json:"reply" example:"I'm sorry you felt sad. Do you want to tell me what happened?"`
	History []tutor.Turn `json:"history"`
}

// Counsel godoc
// @Summary      상담 대화 한 턴
// @Description  아이의 메시지를 세션 대화 기록에 이어 붙여 상담 답변을 받습니다. 대화 기록은 저장되지 않고 로그아웃/재시작 시 사라집니다.
// @Tags         Counselor
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body handler.CounselorRequest true "아이의 메시지"
// @Success      200 {object} handler.CounselorResponse
// @Failure      400 {object} handler.ErrorResponse
// @Failure      401 {object} handler.ErrorResponse
// @Failure      502 {object} handler.ErrorResponse "모델 호출 실패"
// @Router       /api/counselor [post]
func (h *Handler) Counsel(c *gin.Context) {
	var req CounselorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	st := middleware.SessionFrom(c)
	reply, err := h.counselorTurn(c.Request.Context(), st, req.Message)
	if err != nil {
		if errors.Is(err, errEmptyMessage) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Message cannot be empty"})
			return
		}
		h.logger.Error("counselor request failed", zap.String("username", st.Username), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to get a response from the counselor"})
		return
	}
	c.JSON(http.StatusOK, CounselorResponse{Reply: reply, History: st.ChatHistory()})
}

// ResetCounselor godoc
// @Summary      상담 대화 초기화
// @Tags         Counselor
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} handler.SuccessResponse
// @Failure      401 {object} handler.ErrorResponse
// @Router       /api/counselor [delete]
func (h *Handler) ResetCounselor(c *gin.Context) {
	middleware.SessionFrom(c).ResetChat()
	c.JSON(http.StatusOK, gin.H{"message": "Chat history cleared"})
}

// counselorTurn asks for a reply to message given the session transcript.
// Both turns are recorded only when the model answered.
func (h *Handler) counselorTurn(ctx context.Context, st *session.State, message string) (string, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return "", errEmptyMessage
	}

	child := tutor.Turn{Speaker: tutor.SpeakerChild, Text: message}
	return st.Exchange(child, func(history []tutor.Turn) (string, error) {
		reply, err := h.llm.Ask(ctx, tutor.CounselorPrompt(history))
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(reply), nil
	})
}
