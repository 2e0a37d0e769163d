// Package dataset uploads the camera frames of disposed items so they can be
// labelled and used for retraining.
package dataset

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"polybin/internal/models"
)

const DefaultQueueSize = 8

// ObjectStore is the subset of the MinIO client the uploader uses
type ObjectStore interface {
	PutObject(ctx context.Context, bucket, key string, r io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// Sample is one labelled image
type Sample struct {
	Category models.WasteCategory
	Image    []byte
	TakenAt  time.Time
}

// MinioConfig holds object storage settings
type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// NewMinioClient connects to MinIO and makes sure the bucket exists
func NewMinioClient(ctx context.Context, cfg MinioConfig) (*minio.Client, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket %s: %w", cfg.Bucket, err)
		}
		log.Printf("Dataset: created bucket %s", cfg.Bucket)
	}

	log.Printf("Connected to MinIO at %s", cfg.Endpoint)
	return client, nil
}

// Uploader is a single-consumer upload queue
type Uploader struct {
	store  ObjectStore
	bucket string
	queue  chan Sample
	newID  func() uuid.UUID

	uploaded atomic.Int64
	dropped  atomic.Int64
}

// NewUploader creates an uploader writing into bucket
func NewUploader(store ObjectStore, bucket string, queueSize int) *Uploader {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Uploader{
		store:  store,
		bucket: bucket,
		queue:  make(chan Sample, queueSize),
		newID:  uuid.New,
	}
}

// Submit queues a sample without blocking. Samples without an image are ignored.
func (u *Uploader) Submit(s Sample) {
	if len(s.Image) == 0 {
		return
	}
	select {
	case u.queue <- s:
	default:
		u.dropped.Add(1)
		log.Printf("Dataset: Warning: upload queue full, dropping %s sample", s.Category)
	}
}

// Start uploads queued samples until ctx is done
func (u *Uploader) Start(ctx context.Context) {
	log.Println("Dataset: uploader starting")
	for {
		select {
		case <-ctx.Done():
			log.Println("Dataset: uploader stopped")
			return
		case s := <-u.queue:
			key, err := u.upload(ctx, s)
			if err != nil {
				log.Printf("Dataset: %v", err)
				continue
			}
			u.uploaded.Add(1)
			log.Printf("Dataset: uploaded %s to %s", key, u.bucket)
		}
	}
}

// ObjectKey returns the storage key for a sample
func ObjectKey(category models.WasteCategory, id uuid.UUID) string {
	return fmt.Sprintf("images/%s/%s.jpg", category.Code(), id)
}

func (u *Uploader) upload(ctx context.Context, s Sample) (string, error) {
	key := ObjectKey(s.Category, u.newID())
	opts := minio.PutObjectOptions{
		ContentType: "image/jpeg",
		UserMetadata: map[string]string{
			"category": s.Category.String(),
			"taken-at": s.TakenAt.UTC().Format(time.RFC3339),
		},
	}

	uctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if _, err := u.store.PutObject(uctx, u.bucket, key, bytes.NewReader(s.Image), int64(len(s.Image)), opts); err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}
	return key, nil
}

// Stats returns the number of uploaded and dropped samples
func (u *Uploader) Stats() (uploaded, dropped int64) {
	return u.uploaded.Load(), u.dropped.Load()
}
