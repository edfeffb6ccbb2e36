package handler

import (
	"errors"
	"net/http"
	"os"
	"strings"

	"CuteTutor/internal/middleware"
	"CuteTutor/internal/models"
	"CuteTutor/internal/report"
	"CuteTutor/internal/storage"
	"CuteTutor/internal/tutor"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type GenerateReportResponse struct {
	Date        string `json:"date" example:"2024-05-12"`
	Report      string `json:"report"`
	Filename    string `json:"filename" example:"gildong_20240512_Report.pdf"`
	DownloadURL string `json:"download_url" example:"/api/reports/files/gildong_20240512_Report.pdf"`
}

type ReportListResponse struct {
	Reports []string `json:"reports" example:"2024-05-12,2024-05-05"`
}

type ProgressResponse struct {
	Progress []tutor.WeekCount `json:"progress"`
}

// GenerateReport godoc
// @Summary      주간 리포트 생성
// @Description  튜터 기록과 보호자 메모로 주간 리포트를 작성해 저장하고 PDF로 렌더링합니다.
// @Description  모델 호출이 실패하면 아무것도 저장되지 않습니다. PDF 렌더링이 실패해도 리포트 기록은 이미 저장된 상태입니다.
// @Tags         Report
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body tutor.ReportNotes true "성취/감정/개선 메모 (비워도 됨)"
// @Success      200 {object} handler.GenerateReportResponse
// @Failure      400 {object} handler.ErrorResponse
// @Failure      401 {object} handler.ErrorResponse
// @Failure      404 {object} handler.ErrorResponse
// @Failure      500 {object} handler.ErrorResponse "PDF 생성 실패"
// @Failure      502 {object} handler.ErrorResponse "모델 호출 실패"
// @Router       /api/reports [post]
func (h *Handler) GenerateReport(c *gin.Context) {
	username := c.GetString(middleware.ContextUsername)

	var notes tutor.ReportNotes
	if err := c.ShouldBindJSON(&notes); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	user, ok := h.currentUser(c, username)
	if !ok {
		return
	}

	now := h.now()
	text, err := h.llm.Ask(c.Request.Context(), tutor.ReportPrompt(user, notes, now))
	if err != nil {
		h.logger.Error("report request failed", zap.String("username", username), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to generate report"})
		return
	}
	text = strings.TrimSpace(text)

	entry := models.Report{Date: now.Format(models.DateLayout), Report: text}
	if err := h.repo.AppendReport(c.Request.Context(), username, entry); err != nil {
		h.storageError(c, username, err)
		return
	}

	filename := report.Filename(username, now)
	if _, err := h.reports.Render(username, filename, text); err != nil {
		h.logger.Error("failed to render report PDF", zap.String("username", username), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Report saved but PDF rendering failed", "date": entry.Date})
		return
	}

	c.JSON(http.StatusOK, GenerateReportResponse{
		Date:        entry.Date,
		Report:      text,
		Filename:    filename,
		DownloadURL: "/api/reports/files/" + filename,
	})
}

// ListReports godoc
// @Summary      리포트 날짜 목록
// @Description  저장된 리포트 날짜를 최신순으로 반환합니다.
// @Tags         Report
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} handler.ReportListResponse
// @Failure      401 {object} handler.ErrorResponse
// @Router       /api/reports [get]
func (h *Handler) ListReports(c *gin.Context) {
	user, ok := h.currentUser(c, c.GetString(middleware.ContextUsername))
	if !ok {
		return
	}
	c.JSON(http.StatusOK, ReportListResponse{Reports: storage.ReportDates(user)})
}

// GetReport godoc
// @Summary      리포트 조회
// @Description  해당 날짜로 저장된 첫 번째 리포트를 반환합니다.
// @Tags         Report
// @Produce      json
// @Security     BearerAuth
// @Param        date path string true "리포트 날짜 (YYYY-MM-DD)"
// @Success      200 {object} models.Report
// @Failure      401 {object} handler.ErrorResponse
// @Failure      404 {object} handler.ErrorResponse
// @Router       /api/reports/{date} [get]
func (h *Handler) GetReport(c *gin.Context) {
	user, ok := h.currentUser(c, c.GetString(middleware.ContextUsername))
	if !ok {
		return
	}
	r, found := storage.FindReport(user, c.Param("date"))
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "Report not found"})
		return
	}
	c.JSON(http.StatusOK, r)
}

// DownloadReport godoc
// @Summary      리포트 PDF 다운로드
// @Description  본인이 생성한 리포트 PDF를 내려받습니다.
// @Description  <br> **[인증]** Header에 `Authorization: Bearer ...`를 넣거나, URL 파라미터 `?token=...`을 사용하세요.
// @Tags         Report
// @Produce      application/pdf
// @Security     BearerAuth
// @Param        filename path  string true  "PDF 파일명 (예: gildong_20240512_Report.pdf)"
// @Param        token    query string false "JWT 토큰 (Header 사용 불가 시)"
// @Success      200 {file} file "PDF 바이너리 데이터"
// @Failure      400 {object} handler.ErrorResponse
// @Failure      401 {object} handler.ErrorResponse
// @Failure      404 {object} handler.ErrorResponse "해당 파일을 찾을 수 없음"
// @Router       /api/reports/files/{filename} [get]
func (h *Handler) DownloadReport(c *gin.Context) {
	username := c.GetString(middleware.ContextUsername)
	filename := c.Param("filename")

	path, err := h.reports.Path(username, filename)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid filename"})
		return
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Report file not found"})
		return
	}

	c.FileAttachment(path, filename)
}

// Progress godoc
// @Summary      주간 학습 현황
// @Description  주(YYYY-Www, 일요일 시작)별 튜터 세션 수를 오래된 주부터 반환합니다.
// @Tags         Report
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} handler.ProgressResponse
// @Failure      401 {object} handler.ErrorResponse
// @Router       /api/progress [get]
func (h *Handler) Progress(c *gin.Context) {
	user, ok := h.currentUser(c, c.GetString(middleware.ContextUsername))
	if !ok {
		return
	}
	c.JSON(http.StatusOK, ProgressResponse{Progress: tutor.WeeklyProgress(user.TutorHistory)})
}
