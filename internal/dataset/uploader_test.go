package dataset

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"polybin/internal/models"
)

type putCall struct {
	bucket string
	key    string
	body   []byte
	opts   minio.PutObjectOptions
}

type fakeStore struct {
	mu    sync.Mutex
	calls []putCall
	err   error
}

func (s *fakeStore) PutObject(ctx context.Context, bucket, key string, r io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	body, _ := io.ReadAll(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, putCall{bucket: bucket, key: key, body: body, opts: opts})
	if s.err != nil {
		return minio.UploadInfo{}, s.err
	}
	return minio.UploadInfo{Bucket: bucket, Key: key, Size: size}, nil
}

func (s *fakeStore) snapshot() []putCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]putCall(nil), s.calls...)
}

func TestUploaderPutsImage(t *testing.T) {
	store := &fakeStore{}
	u := NewUploader(store, "dataset", 4)
	id := uuid.MustParse("6f1c1d2e-0000-4000-8000-000000000001")
	u.newID = func() uuid.UUID { return id }

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go u.Start(ctx)

	u.Submit(Sample{Category: models.Recyclable, Image: []byte{0xff, 0xd8, 0xff}, TakenAt: time.Now()})

	require.Eventually(t, func() bool { return len(store.snapshot()) == 1 }, time.Second, 5*time.Millisecond)
	call := store.snapshot()[0]
	assert.Equal(t, "dataset", call.bucket)
	assert.Equal(t, "images/rec/"+id.String()+".jpg", call.key)
	assert.Equal(t, []byte{0xff, 0xd8, 0xff}, call.body)
	assert.Equal(t, "image/jpeg", call.opts.ContentType)
	assert.Equal(t, "Recyclable", call.opts.UserMetadata["category"])

	require.Eventually(t, func() bool {
		uploaded, _ := u.Stats()
		return uploaded == 1
	}, time.Second, 5*time.Millisecond)
}

func TestUploaderIgnoresEmptyImage(t *testing.T) {
	u := NewUploader(&fakeStore{}, "dataset", 1)
	u.Submit(Sample{Category: models.Hazardous})
	assert.Len(t, u.queue, 0)
}

func TestUploaderDropsWhenFull(t *testing.T) {
	u := NewUploader(&fakeStore{}, "dataset", 1)
	u.Submit(Sample{Category: models.Hazardous, Image: []byte{1}})
	u.Submit(Sample{Category: models.Hazardous, Image: []byte{2}})

	_, dropped := u.Stats()
	assert.Equal(t, int64(1), dropped)
}

func TestUploaderSwallowsFailures(t *testing.T) {
	store := &fakeStore{err: errors.New("access denied")}
	u := NewUploader(store, "dataset", 2)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go u.Start(ctx)

	u.Submit(Sample{Category: models.Biodegradable, Image: []byte{1}})
	u.Submit(Sample{Category: models.Biodegradable, Image: []byte{2}})

	require.Eventually(t, func() bool { return len(store.snapshot()) == 2 }, time.Second, 5*time.Millisecond)
	uploaded, _ := u.Stats()
	assert.Equal(t, int64(0), uploaded)
}

func TestObjectKey(t *testing.T) {
	id := uuid.New()
	assert.Equal(t, "images/bio/"+id.String()+".jpg", ObjectKey(models.Biodegradable, id))
}
