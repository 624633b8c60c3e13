package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/KotFed0t/asset_tracker/utils"
)

// FileStorage keeps every key in its own JSON file.
type FileStorage struct {
	dir string
}

func NewFileStorage(dir string) (*FileStorage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &FileStorage{dir: dir}, nil
}

func (s *FileStorage) path(key string) string {
	key = strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == os.PathSeparator {
			return '_'
		}
		return r
	}, key)
	return filepath.Join(s.dir, key+".json")
}

func (s *FileStorage) Get(ctx context.Context, key string) ([]byte, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "FileStorage.Get"

	slog.Debug("Get start", slog.String("rqID", rqID), slog.String("op", op), slog.String("key", key))

	data, err := os.ReadFile(s.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		slog.Error("failed read file", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, err
	}

	slog.Debug("Get completed", slog.String("rqID", rqID), slog.String("op", op), slog.Int("bytes", len(data)))

	return data, nil
}

// Set replaces the file through a rename so a crash never leaves half a document.
func (s *FileStorage) Set(ctx context.Context, key string, value []byte) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "FileStorage.Set"

	slog.Debug("Set start", slog.String("rqID", rqID), slog.String("op", op), slog.String("key", key), slog.Int("bytes", len(value)))
	defer func() {
		if err != nil {
			slog.Error("Set failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("Set completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	tmp, err := os.CreateTemp(s.dir, ".tmp-*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(value); err != nil {
		_ = tmp.Close()
		return err
	}
	if err = tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), s.path(key))
}
