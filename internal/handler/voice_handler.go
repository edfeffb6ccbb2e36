package handler

import (
	"errors"
	"io"
	"net/http"

	"CuteTutor/internal/middleware"
	"CuteTutor/internal/voice"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const maxAudioUploadBytes = 10 << 20

type TranscribeResponse struct {
	Text string `json:"text" example:"photosynthesis"`
}

// Transcribe godoc
// @Summary      음성 인식
// @Description  녹음된 음성(multipart 필드 `audio`)을 텍스트로 변환합니다. 튜터 주제나 상담 메시지를 말로 입력할 때 사용합니다.
// @Tags         Voice
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        audio formData file true "녹음 파일 (wav 또는 flac)"
// @Success      200 {object} handler.TranscribeResponse
// @Failure      400 {object} handler.ErrorResponse
// @Failure      401 {object} handler.ErrorResponse
// @Failure      422 {object} handler.ErrorResponse "인식된 음성 없음"
// @Failure      502 {object} handler.ErrorResponse
// @Failure      503 {object} handler.ErrorResponse "음성 기능 비활성화"
// @Router       /api/voice/transcribe [post]
func (h *Handler) Transcribe(c *gin.Context) {
	if h.transcriber == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Voice features are disabled"})
		return
	}
	username := c.GetString(middleware.ContextUsername)

	fileHeader, err := c.FormFile("audio")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Audio file is required"})
		return
	}
	if fileHeader.Size > maxAudioUploadBytes {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Audio file is too large"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read audio file"})
		return
	}
	defer file.Close()

	audio, err := io.ReadAll(io.LimitReader(file, maxAudioUploadBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read audio file"})
		return
	}

	text, err := h.transcriber.Transcribe(c.Request.Context(), audio)
	if err != nil {
		if errors.Is(err, voice.ErrNoSpeech) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "No speech recognized"})
			return
		}
		h.logger.Error("transcription failed", zap.String("username", username), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to transcribe audio"})
		return
	}
	c.JSON(http.StatusOK, TranscribeResponse{Text: text})
}
