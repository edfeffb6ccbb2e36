package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"CuteTutor/internal/models"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

const createUsersTable = `
	CREATE TABLE IF NOT EXISTS users (
			"username" TEXT PRIMARY KEY,
			"record" TEXT NOT NULL
	);`

// SQLite keeps one row per account, the record stored as the same JSON
// object users.json would hold. Save rewrites every row in one transaction.
type SQLite struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewSQLite(path string, logger *zap.Logger) (*SQLite, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("NewSQLite(): failed to create data directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("NewSQLite(): failed to open database: %w", err)
	}
	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("NewSQLite(): failed to connect to database: %w", err)
	}
	// 단일 writer
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(createUsersTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("NewSQLite(): failed to create users table: %w", err)
	}
	logger.Info("sqlite user store ready", zap.String("path", path))
	return &SQLite{db: db, logger: logger}, nil
}

func (s *SQLite) Load(ctx context.Context) Users {
	users := Users{}

	rows, err := s.db.QueryContext(ctx, `SELECT username, record FROM users`)
	if err != nil {
		s.logger.Warn("user store unreadable, starting empty", zap.Error(err))
		return users
	}
	defer rows.Close()

	for rows.Next() {
		var username, record string
		if err := rows.Scan(&username, &record); err != nil {
			s.logger.Warn("user store unreadable, starting empty", zap.Error(err))
			return Users{}
		}
		var user models.User
		if err := json.Unmarshal([]byte(record), &user); err != nil {
			s.logger.Warn("user store corrupt, starting empty", zap.String("username", username), zap.Error(err))
			return Users{}
		}
		users[username] = &user
	}
	if err := rows.Err(); err != nil {
		s.logger.Warn("user store unreadable, starting empty", zap.Error(err))
		return Users{}
	}
	normalize(users)
	return users
}

func (s *SQLite) Save(ctx context.Context, users Users) error {
	normalize(users)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("SQLite.Save(): begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM users`); err != nil {
		return fmt.Errorf("SQLite.Save(): clear: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO users(username, record) VALUES(?, ?)`)
	if err != nil {
		return fmt.Errorf("SQLite.Save(): prepare: %w", err)
	}
	defer stmt.Close()

	for username, user := range users {
		record, err := json.Marshal(user)
		if err != nil {
			return fmt.Errorf("SQLite.Save(): marshal %s: %w", username, err)
		}
		if _, err := stmt.ExecContext(ctx, username, string(record)); err != nil {
			return fmt.Errorf("SQLite.Save(): insert %s: %w", username, err)
		}
	}
	return tx.Commit()
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
