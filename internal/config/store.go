package config

import (
	"context"
	"fmt"

	"github.com/teslashibe/go-affect/pkg/recording"
)

// Open returns the S3 store when an endpoint is configured and the local
// directory store otherwise.
func (s StoreConfig) Open(ctx context.Context) (recording.Store, error) {
	if s.UseS3() {
		st, err := recording.NewS3Store(ctx, recording.S3Config{
			Endpoint:  s.S3Endpoint,
			AccessKey: s.S3AccessKey,
			SecretKey: s.S3SecretKey,
			Bucket:    s.S3Bucket,
			UseSSL:    s.S3UseSSL,
		})
		if err != nil {
			return nil, fmt.Errorf("recording store: %w", err)
		}
		return st, nil
	}
	st, err := recording.NewDirStore(s.Dir)
	if err != nil {
		return nil, fmt.Errorf("recording store: %w", err)
	}
	return st, nil
}
