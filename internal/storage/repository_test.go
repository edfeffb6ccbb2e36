package storage

import (
	"context"
	"path/filepath"
	"testing"

	"CuteTutor/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestRepository(t *testing.T) (*Repository, *JSONFile) {
	t.Helper()
	jf, err := NewJSONFile(filepath.Join(t.TempDir(), "users.json"), zap.NewNop())
	require.NoError(t, err)
	return NewRepository(jf, zap.NewNop()), jf
}

func TestRepository_RegisterLoginAppend(t *testing.T) {
	ctx := context.Background()
	repo, jf := newTestRepository(t)

	require.NoError(t, repo.Register(ctx, "alice", "pw1"))
	require.ErrorIs(t, repo.Register(ctx, "alice", "pw1"), ErrUsernameExists)

	_, err := repo.Login(ctx, "alice", "pw1")
	require.NoError(t, err)
	_, err = repo.Login(ctx, "alice", "nope")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	require.NoError(t, repo.AppendTutorSession(ctx, "alice", models.TutorSession{Topic: "A"}))
	require.NoError(t, repo.AppendReport(ctx, "alice", models.Report{Date: "2024-05-01", Report: "r"}))
	require.ErrorIs(t, repo.AppendReport(ctx, "bob", models.Report{}), ErrUserNotFound)

	// 저장된 파일에서 다시 읽어 확인
	u := jf.Load(ctx)["alice"]
	require.Len(t, u.TutorHistory, 1)
	require.Len(t, u.Reports, 1)
}

func TestRepository_LoginUpgradesLegacyPassword(t *testing.T) {
	ctx := context.Background()
	repo, jf := newTestRepository(t)
	require.NoError(t, jf.Save(ctx, Users{"carol": {Password: "secret"}}))

	_, err := repo.Login(ctx, "carol", "secret")
	require.NoError(t, err)

	stored := jf.Load(ctx)["carol"]
	assert.False(t, NeedsRehash(stored))
	assert.NotEqual(t, "secret", stored.Password)

	_, err = repo.Login(ctx, "carol", "secret")
	require.NoError(t, err)
}

func TestRepository_UpdateProfileAndGet(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepository(t)
	require.NoError(t, repo.Register(ctx, "alice", "pw1"))

	p := models.UserProfile{StudentName: "Mina"}
	require.NoError(t, repo.UpdateProfile(ctx, "alice", p))

	u, err := repo.Get(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "Mina", u.StudentName)

	_, err = repo.Get(ctx, "nobody")
	require.ErrorIs(t, err, ErrUserNotFound)
}
