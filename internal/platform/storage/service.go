package storage

import (
	"context"
	"fmt"
	"mime/multipart"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7"
)

type StorageService struct {
	client      *minio.Client
	bucketMedia string
}

func NewStorageService(client *minio.Client, bucketMedia string) *StorageService {
	return &StorageService{
		client:      client,
		bucketMedia: bucketMedia,
	}
}

var allowedImageExts = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".webp": true,
}

// UploadQuestionImage uploads an illustration image for a question and
// returns the public URL stored on the question record.
func (s *StorageService) UploadQuestionImage(ctx context.Context, file multipart.File, fileHeader *multipart.FileHeader, questionID int64) (string, error) {
	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	if !allowedImageExts[ext] {
		return "", fmt.Errorf("unsupported image type %q", ext)
	}

	objectName := fmt.Sprintf("question-images/question-%d%s", questionID, ext)

	_, err := s.client.PutObject(
		ctx,
		s.bucketMedia,
		objectName,
		file,
		fileHeader.Size,
		minio.PutObjectOptions{
			ContentType: fileHeader.Header.Get("Content-Type"),
		},
	)
	if err != nil {
		return "", fmt.Errorf("failed to upload image to MinIO: %w", err)
	}

	// Bucket is public-read, URL is served straight to the client.
	url := fmt.Sprintf("http://%s/%s/%s", s.client.EndpointURL().Host, s.bucketMedia, objectName)
	return url, nil
}

// DeleteQuestionImages removes every stored image variant for a question
func (s *StorageService) DeleteQuestionImages(ctx context.Context, questionID int64) error {
	prefix := fmt.Sprintf("question-images/question-%d", questionID)

	objectsCh := s.client.ListObjects(ctx, s.bucketMedia, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	})

	for object := range objectsCh {
		if object.Err != nil {
			return object.Err
		}
		if err := s.client.RemoveObject(ctx, s.bucketMedia, object.Key, minio.RemoveObjectOptions{}); err != nil {
			return err
		}
	}

	return nil
}
