package handler

import (
	"net/http"
	"strconv"
	"strings"

	"CuteTutor/internal/middleware"
	"CuteTutor/internal/models"
	"CuteTutor/internal/tutor"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// 학습 스타일 분석 요청 (각 1~5)
type LearningStyleRequest struct {
	Visual      int `json:"visual" example:"4"`
	Auditory    int `json:"auditory" example:"2"`
	Kinesthetic int `json:"kinesthetic" example:"3"`
}

type LearningStyleResponse struct {
	Style string `json:"style" example:"Visual"`
	Tips  string `json:"tips" example:"diagrams & vivid examples"`
}

type TutorRequest struct {
	Topic string `json:"topic" example:"Fractions"`
	Level string `json:"level" example:"Beginner"`
}

type TutorHistoryResponse struct {
	History []models.TutorSession `json:"history"`
}

// LearningStyle godoc
// @Summary      학습 스타일 분석
// @Description  시각/청각/체험 점수(1~5)로 학습 스타일을 결정하고 현재 세션에 저장합니다. 동점이면 Visual, Auditory, Kinesthetic 순으로 우선합니다.
// @Tags         Tutor
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body handler.LearningStyleRequest true "스타일 점수"
// @Success      200 {object} handler.LearningStyleResponse
// @Failure      400 {object} handler.ErrorResponse "점수 범위 오류"
// @Failure      401 {object} handler.ErrorResponse
// @Router       /api/learning-style [post]
func (h *Handler) LearningStyle(c *gin.Context) {
	var req LearningStyleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	name, err := tutor.Analyze(req.Visual, req.Auditory, req.Kinesthetic)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	middleware.SessionFrom(c).SetLearningStyle(name)
	style, _ := tutor.GetStyle(name)
	c.JSON(http.StatusOK, LearningStyleResponse{Style: style.Name, Tips: style.Tips})
}

// Teach godoc
// @Summary      튜터 설명 요청
// @Description  세션의 학습 스타일에 맞춰 주제를 설명받고 튜터 기록에 추가합니다. 모델 호출이 실패하면 기록은 변경되지 않습니다.
// @Tags         Tutor
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body handler.TutorRequest true "주제와 난이도 (Beginner, Intermediate, Advanced)"
// @Success      200 {object} models.TutorSession
// @Failure      400 {object} handler.ErrorResponse
// @Failure      401 {object} handler.ErrorResponse
// @Failure      502 {object} handler.ErrorResponse "모델 호출 실패"
// @Router       /api/tutor [post]
func (h *Handler) Teach(c *gin.Context) {
	username := c.GetString(middleware.ContextUsername)

	var req TutorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	topic := strings.TrimSpace(req.Topic)
	if topic == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Topic cannot be empty"})
		return
	}
	level := req.Level
	if level == "" {
		level = tutor.Levels()[0]
	}
	if !tutor.ValidLevel(level) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid level"})
		return
	}

	style := middleware.SessionFrom(c).LearningStyle()
	content, err := h.llm.Ask(c.Request.Context(), tutor.TutorPrompt(topic, level, style))
	if err != nil {
		h.logger.Error("tutor request failed", zap.String("username", username), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to get a response from the tutor"})
		return
	}

	entry := models.TutorSession{
		Topic:   topic,
		Level:   level,
		Style:   style,
		Content: content,
		Date:    h.now().Format(models.DateLayout),
	}
	if err := h.repo.AppendTutorSession(c.Request.Context(), username, entry); err != nil {
		h.storageError(c, username, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

// TutorHistory godoc
// @Summary      튜터 기록 조회
// @Description  저장된 튜터 세션을 오래된 순서대로 반환합니다.
// @Tags         Tutor
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} handler.TutorHistoryResponse
// @Failure      401 {object} handler.ErrorResponse
// @Failure      404 {object} handler.ErrorResponse
// @Router       /api/tutor/history [get]
func (h *Handler) TutorHistory(c *gin.Context) {
	user, ok := h.currentUser(c, c.GetString(middleware.ContextUsername))
	if !ok {
		return
	}
	c.JSON(http.StatusOK, TutorHistoryResponse{History: user.TutorHistory})
}

// LessonAudio godoc
// @Summary      튜터 설명 음성 듣기
// @Description  튜터 기록의 index번째 설명을 음성(mp3)으로 변환합니다. 청각형 학습자용.
// @Description  <br> **[인증]** Header에 `Authorization: Bearer ...`를 넣거나, URL 파라미터 `?token=...`을 사용하세요.
// @Tags         Voice
// @Produce      audio/mpeg
// @Security     BearerAuth
// @Param        index path  int    true  "튜터 기록 인덱스 (0부터)"
// @Param        token query string false "JWT 토큰 (Header 사용 불가 시)"
// @Success      200 {file} file "오디오 바이너리 데이터"
// @Failure      400 {object} handler.ErrorResponse
// @Failure      404 {object} handler.ErrorResponse
// @Failure      502 {object} handler.ErrorResponse
// @Failure      503 {object} handler.ErrorResponse "음성 기능 비활성화"
// @Router       /api/tutor/history/{index}/audio [get]
func (h *Handler) LessonAudio(c *gin.Context) {
	if h.speaker == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Voice features are disabled"})
		return
	}
	username := c.GetString(middleware.ContextUsername)

	index, err := strconv.Atoi(c.Param("index"))
	if err != nil || index < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid index"})
		return
	}

	user, ok := h.currentUser(c, username)
	if !ok {
		return
	}
	if index >= len(user.TutorHistory) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Tutor session not found"})
		return
	}

	audio, err := h.speaker.Synthesize(c.Request.Context(), user.TutorHistory[index].Content)
	if err != nil {
		h.logger.Error("speech synthesis failed", zap.String("username", username), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to synthesize audio"})
		return
	}
	c.Data(http.StatusOK, "audio/mpeg", audio)
}
