package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
)

const LocalURLPrefix = "/uploads"

type LocalStorage struct {
	Root string
}

func NewLocalStorage(root string) (*LocalStorage, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	return &LocalStorage{Root: root}, nil
}

func (s *LocalStorage) Store(_ context.Context, r io.Reader, filename, folder string) (string, error) {
	if !Allowed(filename) {
		return "", ErrFileType
	}
	if !validFolder(folder) {
		return "", fmt.Errorf("unknown upload folder %q", folder)
	}
	dir := filepath.Join(s.Root, folder)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	name := objectName(filename)
	f, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return "", err
	}
	if _, err = io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return "", err
	}
	if err = f.Close(); err != nil {
		return "", err
	}
	return path.Join(LocalURLPrefix, folder, name), nil
}

// Delete 非本地地址或文件已不存在时视为成功
func (s *LocalStorage) Delete(_ context.Context, url string) error {
	if !strings.HasPrefix(url, LocalURLPrefix+"/") {
		return nil
	}
	rel := strings.TrimPrefix(url, LocalURLPrefix+"/")
	if strings.Contains(rel, "..") {
		return fmt.Errorf("invalid upload path %q", url)
	}
	err := os.Remove(filepath.Join(s.Root, filepath.FromSlash(rel)))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
