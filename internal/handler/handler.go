/**
* Name: 			handler.go
* Description: 		Gin HTTP 핸들러 공통 의존성
* Workflow: 		저장소, LLM, 리포트, 세션, 토큰, 음성 클라이언트를 묶어 라우트에 주입
 */
package handler

import (
	"context"
	"time"

	"CuteTutor/internal/auth"
	"CuteTutor/internal/llm"
	"CuteTutor/internal/report"
	"CuteTutor/internal/session"
	"CuteTutor/internal/storage"

	"go.uber.org/zap"
)

// Speaker turns lesson text into MP3 audio.
type Speaker interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// Transcriber turns recorded speech into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte) (string, error)
}

type Deps struct {
	Repo     *storage.Repository
	LLM      llm.Asker
	Reports  *report.Writer
	Sessions *session.Manager
	Tokens   *auth.TokenManager
	Logger   *zap.Logger

	// nil이면 음성 기능 비활성화
	Speaker     Speaker
	Transcriber Transcriber

	Now func() time.Time
}

type Handler struct {
	repo        *storage.Repository
	llm         llm.Asker
	reports     *report.Writer
	sessions    *session.Manager
	tokens      *auth.TokenManager
	logger      *zap.Logger
	speaker     Speaker
	transcriber Transcriber
	now         func() time.Time
}

func New(d Deps) *Handler {
	h := &Handler{
		repo:        d.Repo,
		llm:         d.LLM,
		reports:     d.Reports,
		sessions:    d.Sessions,
		tokens:      d.Tokens,
		logger:      d.Logger,
		speaker:     d.Speaker,
		transcriber: d.Transcriber,
		now:         d.Now,
	}
	if h.logger == nil {
		h.logger = zap.NewNop()
	}
	if h.now == nil {
		h.now = time.Now
	}
	return h
}
