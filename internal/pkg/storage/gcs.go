package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	gcs "cloud.google.com/go/storage"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
)

// GCSAdapter implements Storage using Google Cloud Storage.
type GCSAdapter struct {
	client *gcs.Client
}

// GCSOptions configures GCS client initialization.
type GCSOptions struct {
	// Client provides an existing GCS client. The remaining fields are ignored
	// when it is set.
	Client *gcs.Client
	// CredentialsFile is a path to a service account JSON file.
	CredentialsFile string
	// CredentialsJSON is an inline service account JSON document.
	CredentialsJSON []byte
	// Endpoint overrides the API endpoint, e.g. for fake-gcs-server.
	Endpoint string
	// WithoutAuth disables authentication, for emulators.
	WithoutAuth bool
	// UserAgent is appended to the default user agent.
	UserAgent string
}

// NewGCS constructs a GCS adapter. Without explicit credentials the
// application default credentials are used.
func NewGCS(ctx context.Context, opts GCSOptions) (*GCSAdapter, error) {
	if opts.Client != nil {
		return &GCSAdapter{client: opts.Client}, nil
	}

	clientOpts, err := opts.clientOptions(ctx)
	if err != nil {
		return nil, err
	}

	client, err := gcs.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("storage: gcs new client: %w", err)
	}

	return &GCSAdapter{client: client}, nil
}

func (o GCSOptions) clientOptions(ctx context.Context) ([]option.ClientOption, error) {
	var out []option.ClientOption

	if o.WithoutAuth {
		out = append(out, option.WithoutAuthentication())
	}

	credsJSON := o.CredentialsJSON
	if len(credsJSON) == 0 && o.CredentialsFile != "" {
		// #nosec G304 -- path is from trusted config.
		data, err := os.ReadFile(o.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("storage: read gcs credentials: %w", err)
		}
		credsJSON = data
	}
	if len(credsJSON) > 0 {
		creds, err := google.CredentialsFromJSON(ctx, credsJSON, gcs.ScopeFullControl)
		if err != nil {
			return nil, fmt.Errorf("storage: parse gcs credentials: %w", err)
		}
		out = append(out, option.WithCredentials(creds))
	}

	if o.Endpoint != "" {
		out = append(out, option.WithEndpoint(o.Endpoint))
	}
	if o.UserAgent != "" {
		out = append(out, option.WithUserAgent(o.UserAgent))
	}

	return out, nil
}

// PutObject stores data in GCS and returns metadata.
func (g *GCSAdapter) PutObject(ctx context.Context, bucket, key string, r io.Reader, opts PutOptions) (ObjectInfo, error) {
	if err := checkObject(bucket, key); err != nil {
		return ObjectInfo{}, err
	}

	writer := g.client.Bucket(bucket).Object(key).NewWriter(ctx)
	writer.ContentType = opts.ContentType
	if len(opts.Metadata) > 0 {
		writer.Metadata = opts.Metadata
	}

	if _, err := io.Copy(writer, r); err != nil {
		return ObjectInfo{}, errors.Join(fmt.Errorf("storage: gcs put %s/%s: %w", bucket, key, err), writer.Close())
	}
	if err := writer.Close(); err != nil {
		return ObjectInfo{}, fmt.Errorf("storage: gcs put %s/%s: %w", bucket, key, err)
	}

	if attrs := writer.Attrs(); attrs != nil {
		return gcsAttrsToInfo(attrs), nil
	}

	return ObjectInfo{
		Bucket:      bucket,
		Key:         key,
		Size:        opts.Size,
		ContentType: opts.ContentType,
		Metadata:    opts.Metadata,
	}, nil
}

// GetObject retrieves data and metadata from GCS.
func (g *GCSAdapter) GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, ObjectInfo, error) {
	if err := checkObject(bucket, key); err != nil {
		return nil, ObjectInfo{}, err
	}

	reader, err := g.client.Bucket(bucket).Object(key).NewReader(ctx)
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return nil, ObjectInfo{}, ErrObjectNotFound
	}
	if err != nil {
		return nil, ObjectInfo{}, fmt.Errorf("storage: gcs get %s/%s: %w", bucket, key, err)
	}

	return reader, ObjectInfo{
		Bucket:      bucket,
		Key:         key,
		Size:        reader.Attrs.Size,
		ContentType: reader.Attrs.ContentType,
		UpdatedAt:   reader.Attrs.LastModified,
	}, nil
}

// DeleteObject removes an object from GCS.
func (g *GCSAdapter) DeleteObject(ctx context.Context, bucket, key string) error {
	if err := checkObject(bucket, key); err != nil {
		return err
	}

	err := g.client.Bucket(bucket).Object(key).Delete(ctx)
	if err != nil && !errors.Is(err, gcs.ErrObjectNotExist) {
		return fmt.Errorf("storage: gcs delete %s/%s: %w", bucket, key, err)
	}
	return nil
}

// Close closes the GCS client.
func (g *GCSAdapter) Close() error {
	return g.client.Close()
}

func gcsAttrsToInfo(attrs *gcs.ObjectAttrs) ObjectInfo {
	return ObjectInfo{
		Bucket:      attrs.Bucket,
		Key:         attrs.Name,
		Size:        attrs.Size,
		ETag:        attrs.Etag,
		ContentType: attrs.ContentType,
		Metadata:    attrs.Metadata,
		UpdatedAt:   attrs.Updated,
	}
}
