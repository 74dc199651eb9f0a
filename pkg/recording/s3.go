package recording

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/teslashibe/go-affect/pkg/model"
)

// S3Config configures an S3-compatible recording store.
type S3Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// S3Store keeps recordings in a bucket under <label>/<key>.
type S3Store struct {
	client *minio.Client
	bucket string
}

// NewS3Store connects to the endpoint and creates the bucket if it is missing.
func NewS3Store(ctx context.Context, cfg S3Config) (*S3Store, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("s3 client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", cfg.Bucket, err)
		}
	}
	return &S3Store{client: client, bucket: cfg.Bucket}, nil
}

func objectName(key string) (string, error) {
	_, label, err := ParseKey(key)
	if err != nil {
		return "", err
	}
	return label.String() + "/" + key, nil
}

// Save implements Store.
func (s *S3Store) Save(ctx context.Context, r *Recording) (string, error) {
	key := r.Key()
	name, err := objectName(key)
	if err != nil {
		return "", err
	}
	data, err := Marshal(r)
	if err != nil {
		return "", err
	}
	_, err = s.client.PutObject(ctx, s.bucket, name, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "application/zstd"})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", name, err)
	}
	return key, nil
}

// Load implements Store.
func (s *S3Store) Load(ctx context.Context, key string) (*Recording, error) {
	name, err := objectName(key)
	if err != nil {
		return nil, err
	}
	obj, err := s.client.GetObject(ctx, s.bucket, name, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", name, err)
	}
	defer obj.Close()

	// GetObject is lazy; Stat surfaces a missing key.
	if _, err := obj.Stat(); err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return nil, fmt.Errorf("stat %s: %w", name, err)
	}
	return Decode(obj)
}

// List implements Store.
func (s *S3Store) List(ctx context.Context, label model.Emotion) ([]string, error) {
	// Stops the lister goroutine if we return before draining it.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	prefix := label.String() + "/"
	var keys []string
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("list %s: %w", prefix, obj.Err)
		}
		key := strings.TrimPrefix(obj.Key, prefix)
		if strings.HasSuffix(key, Ext) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}
