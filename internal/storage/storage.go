// Package storage opens the configured snapshot slot store.
package storage

import (
	"fmt"
	"strings"

	"github.com/tjfontaine/polyglot-image-studio/internal/config"
	"github.com/tjfontaine/polyglot-image-studio/internal/core/ports"
	"github.com/tjfontaine/polyglot-image-studio/internal/storage/file"
	"github.com/tjfontaine/polyglot-image-studio/internal/storage/memory"
	"github.com/tjfontaine/polyglot-image-studio/internal/storage/s3"
	"github.com/tjfontaine/polyglot-image-studio/internal/storage/sqldb"
)

// Open returns the store named by cfg.Type.
func Open(cfg config.StorageConfig) (ports.SnapshotStore, error) {
	switch strings.ToLower(cfg.Type) {
	case "", "memory":
		return memory.New(), nil
	case "file":
		return file.New(cfg.File.Dir)
	case "sqlite", "postgres":
		driver := cfg.Database.Driver
		if driver == "" {
			driver = cfg.Type
		}
		return sqldb.New(sqldb.Config{Driver: driver, DSN: cfg.Database.DSN})
	case "s3":
		return s3.New(s3.Config{
			Endpoint:  cfg.S3.Endpoint,
			Region:    cfg.S3.Region,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			Bucket:    cfg.S3.Bucket,
			Prefix:    cfg.S3.Prefix,
			UseSSL:    cfg.S3.UseSSL,
		})
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}
