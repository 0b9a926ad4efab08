package storage

import (
	"context"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"tours_backend/domain"
)

// LocalStorage writes photos to a directory on disk. Used in development
// when no HDFS_URI is configured.
type LocalStorage struct {
	dir    string
	logger *logrus.Logger
}

func NewLocal(dir string, logger *logrus.Logger) (*LocalStorage, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &LocalStorage{dir: dir, logger: logger}, nil
}

func (ls *LocalStorage) Save(_ context.Context, filename string, data []byte) (string, error) {
	filePath := filepath.Join(ls.dir, filename)
	if err := os.WriteFile(filePath, data, 0644); err != nil {
		ls.logger.Printf("Error writing file %s: %v", filePath, err)
		return "", err
	}
	return filename, nil
}

var _ domain.PhotoStorage = (*LocalStorage)(nil)
