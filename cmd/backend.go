package main

import (
	"context"

	"go.uber.org/zap"

	"storebench/config"
	"storebench/store"
)

// newFactory builds the store factory for the selected backend. For fs the
// config_file argument is the root directory; mem ignores it.
func newFactory(ctx context.Context, o *options, logger *zap.Logger) (store.Factory, error) {
	switch o.backend {
	case store.KindS3:
		cfg, err := config.LoadS3Config(o.configFile)
		if err != nil {
			return nil, err
		}
		logger.Info("using S3 endpoint", zap.String("endpoint", cfg.Endpoint()), zap.String("region", cfg.Region))
		return store.NewS3Factory(store.S3Options{
			Endpoint:  cfg.Endpoint(),
			Region:    cfg.Region,
			AccessKey: cfg.AccessKey,
			SecretKey: cfg.SecretKey,
			Bucket:    o.bucket,
			Insecure:  o.insecure,
		}), nil
	case store.KindOCI:
		provider, err := config.LoadOCIConfig(o.configFile)
		if err != nil {
			return nil, err
		}
		if o.ociHost != "" {
			logger.Info("using custom host", zap.String("host", o.ociHost))
		}
		return store.NewOCIFactory(ctx, store.OCIOptions{
			Provider:  provider,
			Bucket:    o.bucket,
			Namespace: o.ociNS,
			Host:      o.ociHost,
			Insecure:  o.insecure,
		})
	case store.KindFS:
		return store.NewFSFactory(o.configFile, o.bucket), nil
	default:
		return store.NewMemBucket().Factory(), nil
	}
}
