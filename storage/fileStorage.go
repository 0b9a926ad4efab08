package storage

import (
	"context"
	"os"
	"path"

	"github.com/colinmarc/hdfs/v2"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"tours_backend/domain"
)

const hdfsRoot = "/tours_backend/img/users"

// FileStorage keeps uploaded user photos on HDFS.
type FileStorage struct {
	client *hdfs.Client
	logger *logrus.Logger
	tracer trace.Tracer
}

func New(logger *logrus.Logger, tracer trace.Tracer) (*FileStorage, error) {
	hdfsUri := os.Getenv("HDFS_URI")

	client, err := hdfs.New(hdfsUri)
	if err != nil {
		logger.Error(err)
		return nil, err
	}

	fs := &FileStorage{
		client: client,
		logger: logger,
		tracer: tracer,
	}

	if err := fs.client.MkdirAll(hdfsRoot, 0644); err != nil {
		logger.Println(err)
	}
	return fs, nil
}

func (fs *FileStorage) Close() {
	// Close all underlying connections to the HDFS server
	fs.client.Close()
}

func (fs *FileStorage) Save(ctx context.Context, filename string, data []byte) (string, error) {
	_, span := fs.tracer.Start(ctx, "FileStorage.Save")
	defer span.End()

	filePath := path.Join(hdfsRoot, filename)

	// CreateFile fails on an existing path, so replace in two steps.
	_ = fs.client.Remove(filePath)

	file, err := fs.client.Create(filePath)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		fs.logger.Printf("Error creating file %s: %v", filePath, err)
		return "", err
	}

	if _, err := file.Write(data); err != nil {
		span.SetStatus(codes.Error, err.Error())
		fs.logger.Printf("Error writing file %s: %v", filePath, err)
		_ = file.Close()
		return "", err
	}

	if err := file.Close(); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	return filename, nil
}

var _ domain.PhotoStorage = (*FileStorage)(nil)
