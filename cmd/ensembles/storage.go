package main

import (
	"context"
	"net/url"
	"os"
	"strings"

	"github.com/YuminosukeSato/ensembles/core/model"
	"github.com/YuminosukeSato/ensembles/persistence"
	"github.com/YuminosukeSato/ensembles/pkg/errors"
	"github.com/YuminosukeSato/ensembles/store"
	"github.com/YuminosukeSato/ensembles/store/minio"
	"github.com/YuminosukeSato/ensembles/store/s3"
)

// openStore resolves the --store flag:
//
//	""                               model names are plain file paths
//	s3://bucket/prefix               AWS S3 with the default credential chain
//	minio://endpoint/bucket/prefix   MinIO; credentials from MINIO_ACCESS_KEY,
//	                                 MINIO_SECRET_KEY, MINIO_SECURE=true for TLS
//	anything else                    a local directory
func openStore(ctx context.Context, uri string) (store.Store, error) {
	switch {
	case uri == "":
		return nil, nil
	case strings.HasPrefix(uri, "s3://"):
		u, err := url.Parse(uri)
		if err != nil {
			return nil, errors.Wrapf(err, "parsing store %s", uri)
		}
		if u.Host == "" {
			return nil, errors.NewValueError("--store", "missing bucket in "+uri)
		}
		return s3.Open(ctx, u.Host, strings.Trim(u.Path, "/"))
	case strings.HasPrefix(uri, "minio://"):
		u, err := url.Parse(uri)
		if err != nil {
			return nil, errors.Wrapf(err, "parsing store %s", uri)
		}
		parts := strings.SplitN(strings.Trim(u.Path, "/"), "/", 2)
		if u.Host == "" || parts[0] == "" {
			return nil, errors.NewValueError("--store", "expected minio://endpoint/bucket[/prefix], got "+uri)
		}
		prefix := ""
		if len(parts) == 2 {
			prefix = parts[1]
		}
		return minio.Open(u.Host, parts[0], prefix, minio.Options{
			AccessKey: os.Getenv("MINIO_ACCESS_KEY"),
			SecretKey: os.Getenv("MINIO_SECRET_KEY"),
			Secure:    os.Getenv("MINIO_SECURE") == "true",
		})
	default:
		return store.NewLocalStore(uri), nil
	}
}

func saveModel(ctx context.Context, st store.Store, name string, est model.Estimator, codec persistence.Codec) error {
	if st == nil {
		return persistence.SaveFile(name, est, codec)
	}
	return persistence.Save(ctx, st, name, est, codec)
}

func loadModel(ctx context.Context, st store.Store, name string) (model.Estimator, error) {
	if st == nil {
		return persistence.LoadFile(name)
	}
	return persistence.Load(ctx, st, name)
}
