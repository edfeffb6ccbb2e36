/**
* Name: 			json_storage.go
* Description: 		users.json 파일 기반 저장소
* Workflow: 		전체 문서 로드, 임시 파일 기록 후 rename으로 교체
 */
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

type JSONFile struct {
	path   string
	logger *zap.Logger
}

// NewJSONFile returns a backend for path, creating its directory if needed.
func NewJSONFile(path string, logger *zap.Logger) (*JSONFile, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("NewJSONFile(): failed to create data directory: %w", err)
	}
	return &JSONFile{path: path, logger: logger}, nil
}

func (f *JSONFile) Path() string {
	return f.path
}

func (f *JSONFile) Load(ctx context.Context) Users {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			f.logger.Warn("user store unreadable, starting empty", zap.String("path", f.path), zap.Error(err))
		}
		return Users{}
	}

	users := Users{}
	if err := json.Unmarshal(data, &users); err != nil {
		// 손상된 파일은 다음 저장 전까지 그대로 둠
		f.logger.Warn("user store corrupt, starting empty", zap.String("path", f.path), zap.Error(err))
		return Users{}
	}
	normalize(users)
	return users
}

func (f *JSONFile) Save(ctx context.Context, users Users) error {
	normalize(users)
	data, err := json.MarshalIndent(users, "", "  ")
	if err != nil {
		return fmt.Errorf("JSONFile.Save(): marshal: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".users-*.json")
	if err != nil {
		return fmt.Errorf("JSONFile.Save(): create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("JSONFile.Save(): write: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("JSONFile.Save(): sync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("JSONFile.Save(): close: %w", err)
	}
	if err := os.Rename(tmpPath, f.path); err != nil {
		return fmt.Errorf("JSONFile.Save(): replace %s: %w", f.path, err)
	}
	return nil
}

func (f *JSONFile) Close() error {
	return nil
}
