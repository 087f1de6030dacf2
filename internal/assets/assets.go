// Package assets opens the site root as an fs.FS from the configured source.
package assets

import (
	"context"
	"fmt"
	"io/fs"
	"os"

	s3assets "github.com/Gakyra/w-chat/internal/assets/s3"
	"github.com/Gakyra/w-chat/pkg/config"
)

// Open returns the site root for cfg. Local roots must be existing directories.
func Open(ctx context.Context, cfg *config.Config) (fs.FS, error) {
	switch cfg.Site.AssetSource {
	case config.AssetSourceDir:
		return openDir(cfg.Site.Root)
	case config.AssetSourceS3:
		return s3assets.NewBucketFS(ctx, s3assets.Config{
			Bucket:          cfg.S3.Bucket,
			Region:          cfg.S3.Region,
			Endpoint:        cfg.S3.Endpoint,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
			UsePathStyle:    cfg.S3.UsePathStyle,
			KeyPrefix:       cfg.S3.KeyPrefix,
			RequestTimeout:  cfg.S3.RequestTimeout,
		})
	default:
		return nil, fmt.Errorf("unsupported asset source %q", cfg.Site.AssetSource)
	}
}

func openDir(root string) (fs.FS, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("open site root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("site root %s is not a directory", root)
	}
	return os.DirFS(root), nil
}
