/**
* Name: 			user_handler.go
* Description: 		Gin 프레임워크의 HTTP 핸들러
* Workflow: 		회원가입, 로그인, 로그아웃, 프로필 조회 및 수정
 */
package handler

import (
	"errors"
	"net/http"
	"strings"

	"CuteTutor/internal/middleware"
	"CuteTutor/internal/models"
	"CuteTutor/internal/storage"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// /signup 요청 바디
type SignupRequest struct {
	Username string `json:"username" example:"new_user"`
	Password string `json:"password" example:"password123"`
}

// /login 요청 바디
type LoginRequest struct {
	Username string `json:"username" example:"my_user"`
	Password string `json:"password" example:"password123"`
}

type SuccessResponse struct {
	Message string `json:"message" example:"User created successfully"`
}
type ErrorResponse struct {
	Error string `json:"error" example:"에러 원인 및 설명"`
}
type LoginSuccessResponse struct {
	Token    string `json:"token" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."`
	Username string `json:"username" example:"my_user"`
}

// 프로필 조회 응답
type ProfileResponse struct {
	Username string `json:"username" example:"gildong"`
	models.UserProfile
}

// Signup godoc
// @Summary      회원가입 (Signup)
// @Description  새로운 사용자 계정을 생성합니다. 초대 코드가 설정된 경우 `X-Invite-Code` 헤더가 필요합니다.
// @Tags         User
// @Accept       json
// @Produce      json
// @Param        request body handler.SignupRequest true "회원가입 요청 정보"
// @Param        X-Invite-Code header string false "가입 초대 코드"
// @Success      200 {object} handler.SuccessResponse
// @Failure      400 {object} handler.ErrorResponse
// @Failure      403 {object} handler.ErrorResponse "초대 코드 불일치"
// @Failure      409 {object} handler.ErrorResponse "이미 존재하는 사용자명"
// @Failure      500 {object} handler.ErrorResponse
// @Router       /signup [post]
func (h *Handler) Signup(c *gin.Context) {
	var credentials SignupRequest
	if err := c.ShouldBindJSON(&credentials); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	// " "으로 입력되는 케이스 방지
	if strings.TrimSpace(credentials.Username) == "" || strings.TrimSpace(credentials.Password) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Username and Password cannot be empty"})
		return
	}

	if err := h.repo.Register(c.Request.Context(), credentials.Username, credentials.Password); err != nil {
		switch {
		case errors.Is(err, storage.ErrUsernameExists):
			c.JSON(http.StatusConflict, gin.H{"error": "Username already exists."})
		case errors.Is(err, storage.ErrInvalidInput):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Username and Password cannot be empty"})
		case errors.Is(err, storage.ErrInvalidUsername):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Username must not contain '/' or '\\' or be '.' or '..'"})
		default:
			h.logger.Error("failed to create user", zap.String("username", credentials.Username), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user (storage error)"})
		}
		return
	}

	h.logger.Info("user created", zap.String("username", credentials.Username))
	c.JSON(http.StatusOK, gin.H{"message": "User created successfully"})
}

// Login godoc
// @Summary      로그인 (Login)
// @Description  사용자명과 비밀번호로 로그인하고 JWT 토큰을 발급받습니다. 로그인마다 새 세션이 만들어집니다.
// @Tags         User
// @Accept       json
// @Produce      json
// @Param        request body handler.LoginRequest true "로그인 요청 정보"
// @Success      200 {object} handler.LoginSuccessResponse
// @Failure      400 {object} handler.ErrorResponse "잘못된 요청"
// @Failure      401 {object} handler.ErrorResponse "인증 실패 (자격 증명 오류)"
// @Failure      500 {object} handler.ErrorResponse "서버 내부 오류"
// @Router       /login [post]
func (h *Handler) Login(c *gin.Context) {
	var credentials LoginRequest
	if err := c.ShouldBindJSON(&credentials); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	if credentials.Username == "" || credentials.Password == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	if _, err := h.repo.Login(c.Request.Context(), credentials.Username, credentials.Password); err != nil {
		if errors.Is(err, storage.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
			return
		}
		h.logger.Error("login failed", zap.String("username", credentials.Username), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Storage error"})
		return
	}

	st := h.sessions.Create(credentials.Username)
	tokenString, err := h.tokens.GenerateToken(credentials.Username, st.ID)
	if err != nil {
		h.sessions.Delete(st.ID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, LoginSuccessResponse{Token: tokenString, Username: credentials.Username})
}

// Logout godoc
// @Summary      로그아웃 (Logout)
// @Description  현재 세션(학습 스타일, 상담 대화)을 폐기합니다. 이후 같은 토큰은 사용할 수 없습니다.
// @Tags         User
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} handler.SuccessResponse
// @Failure      401 {object} handler.ErrorResponse "인증 토큰 누락 또는 만료"
// @Router       /api/logout [post]
func (h *Handler) Logout(c *gin.Context) {
	if st := middleware.SessionFrom(c); st != nil {
		h.sessions.Delete(st.ID)
	}
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

// Profile godoc
// @Summary      프로필 조회 (Profile)
// @Description  인증된 사용자의 학생 및 보호자 정보를 조회합니다. (JWT 필요)
// @Tags         User
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} handler.ProfileResponse
// @Failure      401 {object} handler.ErrorResponse "인증 토큰 누락 또는 만료"
// @Failure      404 {object} handler.ErrorResponse "사용자 없음"
// @Router       /api/profile [get]
func (h *Handler) Profile(c *gin.Context) {
	username := c.GetString(middleware.ContextUsername)

	user, ok := h.currentUser(c, username)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, ProfileResponse{Username: username, UserProfile: user.Profile()})
}

// UpdateProfile godoc
// @Summary      프로필 수정
// @Description  학생 이름, 보호자 이름, 보호자 연락처를 저장합니다.
// @Tags         User
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body models.UserProfile true "프로필 정보"
// @Success      200 {object} handler.ProfileResponse
// @Failure      400 {object} handler.ErrorResponse
// @Failure      401 {object} handler.ErrorResponse
// @Failure      404 {object} handler.ErrorResponse
// @Failure      500 {object} handler.ErrorResponse
// @Router       /api/profile [put]
func (h *Handler) UpdateProfile(c *gin.Context) {
	username := c.GetString(middleware.ContextUsername)

	var profile models.UserProfile
	if err := c.ShouldBindJSON(&profile); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	if err := h.repo.UpdateProfile(c.Request.Context(), username, profile); err != nil {
		h.storageError(c, username, err)
		return
	}
	c.JSON(http.StatusOK, ProfileResponse{Username: username, UserProfile: profile})
}

// currentUser loads the caller's record and writes the error response itself
// when that fails.
func (h *Handler) currentUser(c *gin.Context, username string) (*models.User, bool) {
	user, err := h.repo.Get(c.Request.Context(), username)
	if err != nil {
		h.storageError(c, username, err)
		return nil, false
	}
	return user, true
}

func (h *Handler) storageError(c *gin.Context, username string, err error) {
	if errors.Is(err, storage.ErrUserNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	h.logger.Error("storage failure", zap.String("username", username), zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Storage error"})
}
