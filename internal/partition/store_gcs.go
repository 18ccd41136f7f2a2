package partition

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// GCSStore reads partitions from a Google Cloud Storage bucket.
type GCSStore struct {
	client *storage.Client
	bucket *storage.BucketHandle
	prefix string
}

// GCSOptions configures NewGCSStore. Endpoint targets an emulator; an empty
// CredentialsFile uses Application Default Credentials.
type GCSOptions struct {
	Bucket          string
	Prefix          string
	Endpoint        string
	CredentialsFile string
}

func NewGCSStore(ctx context.Context, opts GCSOptions) (*GCSStore, error) {
	bucket := strings.TrimSpace(opts.Bucket)
	if bucket == "" {
		return nil, fmt.Errorf("gcs store: bucket cannot be empty")
	}
	var clientOpts []option.ClientOption
	if opts.Endpoint != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(opts.Endpoint), option.WithoutAuthentication())
	} else if opts.CredentialsFile != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(opts.CredentialsFile))
	}
	client, err := storage.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return &GCSStore{
		client: client,
		bucket: client.Bucket(bucket),
		prefix: strings.Trim(opts.Prefix, "/"),
	}, nil
}

func (s *GCSStore) Name() string { return "gcs" }

func (s *GCSStore) Get(ctx context.Context, name string) (Object, error) {
	objectName := strings.TrimLeft(name, "/")
	if s.prefix != "" {
		objectName = path.Join(s.prefix, objectName)
	}
	r, err := s.bucket.Object(objectName).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) || errors.Is(err, storage.ErrBucketNotExist) {
			return Object{}, fmt.Errorf("%s: %w", objectName, ErrObjectNotFound)
		}
		return Object{}, fmt.Errorf("open GCS object reader: %w", err)
	}
	defer r.Close()

	data, err := readObject(r, maxObjectBytes)
	if err != nil {
		return Object{}, fmt.Errorf("read GCS object: %w", err)
	}
	return Object{
		Path:        name,
		ContentType: r.Attrs.ContentType,
		Body:        data,
	}, nil
}

func (s *GCSStore) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}
