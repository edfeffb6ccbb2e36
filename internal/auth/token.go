/* JWT 토큰 생성 및 검증 */

package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

const issuer = "CuteTutor-api"

var ErrInvalidToken = errors.New("invalid token")

// Claims 구조체, JWT 페이로드에 사용자명과 세션 ID 포함
type Claims struct {
	Username  string `json:"username"`
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

type TokenManager struct {
	key      []byte
	validity time.Duration
}

func NewTokenManager(secret string, validity time.Duration) *TokenManager {
	return &TokenManager{key: []byte(secret), validity: validity}
}

// JWT 토큰 생성
func (m *TokenManager) GenerateToken(username, sessionID string) (string, error) {
	now := time.Now()
	claims := &Claims{
		Username:  username,
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(m.validity)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    issuer,
			Subject:   "user_auth_token",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.key)
}

// JWT 토큰 검증
func (m *TokenManager) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return m.key, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.Username == "" || claims.SessionID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
