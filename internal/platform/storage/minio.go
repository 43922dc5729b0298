package storage

import (
	"context"
	"fmt"
	"log"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/quizdeck/quizdeck/internal/platform/config"
)

// InitMinIO initializes the object storage client for question media
func InitMinIO(cfg config.MinIOConfig) (*minio.Client, error) {
	minioClient, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("error initializing minio client: %w", err)
	}

	if _, err := minioClient.ListBuckets(context.Background()); err != nil {
		return nil, fmt.Errorf("error verifying minio connection: %w", err)
	}

	// Media bucket is public-read so question images can be served
	// straight to the SPA. Safe to run on every start.
	if err := checkAndCreateBucket(minioClient, cfg.BucketMedia, true); err != nil {
		return nil, err
	}

	return minioClient, nil
}

// helper function to create bucket if not ready
func checkAndCreateBucket(client *minio.Client, bucketName string, isPublic bool) error {
	ctx := context.Background()
	exists, err := client.BucketExists(ctx, bucketName)
	if err != nil {
		return fmt.Errorf("error checking bucket '%s': %w", bucketName, err)
	}

	if !exists {
		err = client.MakeBucket(ctx, bucketName, minio.MakeBucketOptions{})
		if err != nil {
			return fmt.Errorf("error creating bucket '%s': %w", bucketName, err)
		}
		log.Printf("Bucket '%s' created successfully.", bucketName)
	}

	if isPublic {
		policy := fmt.Sprintf(`{
			"Version": "2012-10-17",
			"Statement": [
				{
					"Effect": "Allow",
					"Principal": {"AWS": ["*"]},
					"Action": ["s3:GetObject"],
					"Resource": ["arn:aws:s3:::%s/*"]
				}
			]
		}`, bucketName)

		err = client.SetBucketPolicy(ctx, bucketName, policy)
		if err != nil {
			return fmt.Errorf("error setting policy public-read for bucket '%s': %w", bucketName, err)
		}
	}
	return nil
}
