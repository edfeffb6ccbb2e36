package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "CuteTutor/docs"
	"CuteTutor/internal/auth"
	"CuteTutor/internal/config"
	"CuteTutor/internal/handler"
	"CuteTutor/internal/llm"
	"CuteTutor/internal/logging"
	"CuteTutor/internal/report"
	"CuteTutor/internal/session"
	"CuteTutor/internal/storage"
	"CuteTutor/internal/voice"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server (default)",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := logging.New(cfg.Debug)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.InsecureSecret() {
		logger.Warn("JWT_SECRET_KEY is not set, using the built-in default secret")
	}
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backend, err := openBackend(cfg, logger)
	if err != nil {
		return err
	}
	repo := storage.NewRepository(backend, logger)
	defer repo.Close()

	asker, err := newAsker(ctx, cfg)
	if err != nil {
		return err
	}

	deps := handler.Deps{
		Repo:     repo,
		LLM:      asker,
		Reports:  report.NewWriter(cfg.ReportDir, cfg.FontPath),
		Sessions: session.NewManager(cfg.TokenValidity),
		Tokens:   auth.NewTokenManager(cfg.JWTSecret, cfg.TokenValidity),
		Logger:   logger,
	}

	if cfg.VoiceEnabled {
		tts, err := voice.NewTTSClient(ctx, cfg.GoogleCredentials, cfg.VoiceLanguage)
		if err != nil {
			return err
		}
		defer tts.Close()
		stt, err := voice.NewSTTClient(ctx, cfg.GoogleCredentials, cfg.VoiceLanguage)
		if err != nil {
			return err
		}
		defer stt.Close()
		deps.Speaker = tts
		deps.Transcriber = stt
	}

	router := handler.NewRouter(handler.New(deps), handler.RouterOptions{
		InviteCode:         cfg.SignupInviteCode,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		RateLimitBurst:     cfg.RateLimitBurst,
		CORSOrigins:        cfg.CORSOrigins,
		Logger:             logger,
	})
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening",
			zap.String("addr", cfg.Addr),
			zap.String("store", cfg.Store),
			zap.String("llm_provider", cfg.LLMProvider),
			zap.Bool("voice", cfg.VoiceEnabled))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func openBackend(cfg *config.Config, logger *zap.Logger) (storage.Backend, error) {
	switch cfg.Store {
	case config.StoreSQLite:
		return storage.NewSQLite(cfg.SQLitePath, logger)
	default:
		return storage.NewJSONFile(cfg.UsersFile, logger)
	}
}

func newAsker(ctx context.Context, cfg *config.Config) (llm.Asker, error) {
	switch cfg.LLMProvider {
	case config.ProviderGemini:
		return llm.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	default:
		return llm.NewGroqClient(cfg.GroqBaseURL, cfg.GroqAPIKey, cfg.GroqModel, cfg.LLMTimeout), nil
	}
}
