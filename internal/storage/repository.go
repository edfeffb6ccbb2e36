package storage

import (
	"context"
	"sync"

	"CuteTutor/internal/models"

	"go.uber.org/zap"
)

// Repository runs every user action as load -> mutate -> save while holding
// a single-writer lock on the backend.
type Repository struct {
	mu      sync.Mutex
	backend Backend
	logger  *zap.Logger
}

func NewRepository(backend Backend, logger *zap.Logger) *Repository {
	return &Repository{backend: backend, logger: logger}
}

func (r *Repository) Register(ctx context.Context, username, password string) error {
	return r.update(ctx, func(users Users) error {
		return Register(users, username, password)
	})
}

// Login authenticates username and upgrades a legacy plaintext password to a
// bcrypt hash on success.
func (r *Repository) Login(ctx context.Context, username, password string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	users := r.backend.Load(ctx)
	user, err := Authenticate(users, username, password)
	if err != nil {
		return nil, err
	}
	if NeedsRehash(user) {
		if err := SetPassword(user, password); err != nil {
			return nil, err
		}
		if err := r.backend.Save(ctx, users); err != nil {
			return nil, err
		}
		r.logger.Info("upgraded legacy password", zap.String("username", username))
	}
	return user, nil
}

func (r *Repository) Get(ctx context.Context, username string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, exists := r.backend.Load(ctx)[username]
	if !exists {
		return nil, ErrUserNotFound
	}
	return user, nil
}

func (r *Repository) UpdateProfile(ctx context.Context, username string, profile models.UserProfile) error {
	return r.update(ctx, func(users Users) error {
		return UpdateProfile(users, username, profile)
	})
}

func (r *Repository) AppendTutorSession(ctx context.Context, username string, entry models.TutorSession) error {
	return r.update(ctx, func(users Users) error {
		return AppendTutorSession(users, username, entry)
	})
}

func (r *Repository) AppendReport(ctx context.Context, username string, entry models.Report) error {
	return r.update(ctx, func(users Users) error {
		return AppendReport(users, username, entry)
	})
}

func (r *Repository) Close() error {
	return r.backend.Close()
}

// mutate가 실패하면 저장하지 않음
func (r *Repository) update(ctx context.Context, mutate func(Users) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	users := r.backend.Load(ctx)
	if err := mutate(users); err != nil {
		return err
	}
	return r.backend.Save(ctx, users)
}
