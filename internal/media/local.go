package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// LocalStore пишет файлы на диск, общий с ASR-сервисом.
type LocalStore struct {
	root string
}

func NewLocalStore(root string) (*LocalStore, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create media root: %w", err)
	}
	return &LocalStore{root: abs}, nil
}

func (s *LocalStore) Upload(ctx context.Context, roomID, name, _ string, body io.Reader, _ int64) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	dir := filepath.Join(s.root, filepath.Base(roomID))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create room dir: %w", err)
	}

	path := filepath.Join(dir, objectName(name))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", path, err)
	}
	if _, err := io.Copy(f, body); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return path, nil
}

// Remove удаляет загруженный файл. Ссылки вне root отклоняются,
// уже удалённый файл ошибкой не считается.
func (s *LocalStore) Remove(_ context.Context, ref string) error {
	rel, err := filepath.Rel(s.root, filepath.Clean(ref))
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") || filepath.IsAbs(rel) {
		return fmt.Errorf("remove %s: outside media root", ref)
	}
	if err := os.Remove(filepath.Join(s.root, rel)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", ref, err)
	}
	return nil
}
