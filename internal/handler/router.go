package handler

import (
	"CuteTutor/internal/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type RouterOptions struct {
	InviteCode         string
	RateLimitPerMinute int
	RateLimitBurst     int
	CORSOrigins        []string
	Logger             *zap.Logger
}

// NewRouter registers every route of the API on a fresh engine.
func NewRouter(h *Handler, opts RouterOptions) *gin.Engine {
	logger := opts.Logger
	if logger == nil {
		logger = h.logger
	}

	router := gin.New()
	router.Use(middleware.Logger(logger), middleware.Recovery(logger))

	config := cors.DefaultConfig()
	if len(opts.CORSOrigins) == 0 {
		config.AllowAllOrigins = true
	} else {
		config.AllowOrigins = opts.CORSOrigins
	}
	config.AllowHeaders = append(config.AllowHeaders, "Authorization", "X-Invite-Code")
	router.Use(cors.New(config))

	// signup과 login이 같은 IP별 한도를 공유
	limiter := middleware.RateLimitByIP(opts.RateLimitPerMinute, opts.RateLimitBurst)
	router.POST("/signup", limiter, middleware.InviteCodeMiddleware(opts.InviteCode), h.Signup)
	router.POST("/login", limiter, h.Login)

	authenticated := middleware.AuthMiddleware(h.tokens, h.sessions)

	protected := router.Group("/api").Use(authenticated)
	{
		protected.POST("/logout", h.Logout)
		protected.GET("/profile", h.Profile)
		protected.PUT("/profile", h.UpdateProfile)

		protected.POST("/learning-style", h.LearningStyle)

		protected.POST("/tutor", h.Teach)
		protected.GET("/tutor/history", h.TutorHistory)
		protected.GET("/tutor/history/:index/audio", h.LessonAudio)

		protected.POST("/counselor", h.Counsel)
		protected.DELETE("/counselor", h.ResetCounselor)

		protected.POST("/reports", h.GenerateReport)
		protected.GET("/reports", h.ListReports)
		protected.GET("/reports/:date", h.GetReport)
		protected.GET("/reports/files/:filename", h.DownloadReport)

		protected.GET("/progress", h.Progress)

		protected.POST("/voice/transcribe", h.Transcribe)
	}

	router.GET("/ws/counselor", authenticated, h.CounselorConnection)
	return router
}
