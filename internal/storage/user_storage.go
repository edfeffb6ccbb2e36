/**
* Name: 			user_storage.go
* Description: 		username -> 계정 레코드 매핑과 계정 관련 순수 연산
* Workflow: 		회원가입, 로그인 검증, 프로필 수정, 비밀번호 업그레이드
 */
package storage

import (
	"crypto/subtle"
	"errors"
	"strings"

	"CuteTutor/internal/models"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrUsernameExists     = errors.New("username already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidInput       = errors.New("username and password cannot be empty")
	ErrInvalidUsername    = errors.New("username must not contain path separators or be . or ..")
)

// Users is the whole persisted document: username -> account record.
type Users map[string]*models.User

// Register inserts a fresh record for username. An existing username leaves
// users untouched and yields ErrUsernameExists.
func Register(users Users, username, password string) error {
	// " "으로 입력되는 케이스 방지
	if strings.TrimSpace(username) == "" || strings.TrimSpace(password) == "" {
		return ErrInvalidInput
	}
	if !ValidUsername(username) {
		return ErrInvalidUsername
	}
	if _, exists := users[username]; exists {
		return ErrUsernameExists
	}

	hashed, err := hashPassword(password)
	if err != nil {
		return err
	}
	users[username] = &models.User{
		Password:     hashed,
		TutorHistory: []models.TutorSession{},
		Reports:      []models.Report{},
	}
	return nil
}

// ValidUsername reports whether username can name a per-user directory:
// no path separators, no NUL, and not "." or "..".
func ValidUsername(username string) bool {
	if username == "" || username == "." || username == ".." {
		return false
	}
	return !strings.ContainsAny(username, "/\\\x00")
}

// Authenticate returns the record when username exists and password matches.
// Unknown users and wrong passwords both produce ErrInvalidCredentials.
func Authenticate(users Users, username, password string) (*models.User, error) {
	user, exists := users[username]
	if !exists {
		return nil, ErrInvalidCredentials
	}
	if !passwordMatches(user.Password, password) {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// UpdateProfile overwrites the student and parent fields of username.
func UpdateProfile(users Users, username string, profile models.UserProfile) error {
	user, exists := users[username]
	if !exists {
		return ErrUserNotFound
	}
	user.StudentName = profile.StudentName
	user.ParentName = profile.ParentName
	user.ParentPhone = profile.ParentPhone
	return nil
}

// NeedsRehash reports whether the stored password is still legacy plaintext.
func NeedsRehash(user *models.User) bool {
	return !isBcryptHash(user.Password)
}

// SetPassword replaces the stored password with a bcrypt hash of password.
func SetPassword(user *models.User, password string) error {
	hashed, err := hashPassword(password)
	if err != nil {
		return err
	}
	user.Password = hashed
	return nil
}

func hashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// users.json에 평문으로 남아있는 기존 계정도 로그인 가능해야 함
func passwordMatches(stored, supplied string) bool {
	if isBcryptHash(stored) {
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(supplied)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(supplied)) == 1
}

func isBcryptHash(s string) bool {
	if len(s) != 60 {
		return false
	}
	return strings.HasPrefix(s, "$2a$") || strings.HasPrefix(s, "$2b$") || strings.HasPrefix(s, "$2y$")
}
