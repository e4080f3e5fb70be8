// Package s3io is the thin adapter between the upload pipeline and the
// object store. Each worker holds its own Client; a Connector produces a
// fresh handle whenever a retry loop needs to re-establish the connection.
package s3io

import (
	"context"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Storage classes selected by the upload executor.
const (
	StorageStandard   = "STANDARD"
	StorageInfrequent = "STANDARD_IA"
)

// ObjectInfo is the remote state the integrity checks care about.
type ObjectInfo struct {
	Key      string
	Size     int64
	ETag     string // quotes stripped
	Metadata map[string]string
}

// PutOptions carries the attributes attached to a primary upload.
type PutOptions struct {
	ContentLength int64
	ContentMD5    string // base64 of the raw digest
	ContentType   string
	StorageClass  string
	Metadata      map[string]string
}

type Client interface {
	// Head fetches object metadata. Returns *ErrNoSuchObject if the key
	// is absent.
	Head(ctx context.Context, key string) (*ObjectInfo, error)

	// PutMetadata replaces the user metadata on an existing object.
	PutMetadata(ctx context.Context, key string, metadata map[string]string) error

	// Put performs a single-request upload and returns the number of
	// bytes read from source.
	Put(ctx context.Context, key string, source io.Reader, opts PutOptions) (int64, error)

	// CreateMultipart starts a multipart session for key.
	CreateMultipart(ctx context.Context, key string, opts PutOptions) (Multipart, error)

	// Upload streams an auxiliary object of unknown length, such as an
	// index document.
	Upload(ctx context.Context, key string, contentType string, source io.Reader) (int64, error)
}

// Multipart is an in-progress multipart session. Parts are numbered from 1
// and must be uploaded in strictly increasing order by a single caller.
type Multipart interface {
	UploadPart(ctx context.Context, number int32, data []byte) error
	Complete(ctx context.Context) error
	Abort(ctx context.Context) error
}

// Connector dials the object store. Every call returns a fresh Client so
// retry loops can discard a failed handle and reconnect.
type Connector interface {
	Connect(ctx context.Context) (Client, error)
}

// Options configures the connector. Either Profile or the static
// AccessKey/SecretKey pair selects the credentials; Endpoint overrides the
// store address for S3-compatible backends.
type Options struct {
	Bucket    string
	Region    string
	Profile   string
	AccessKey string
	SecretKey string
	Endpoint  string
}

func NewConnector(opts Options) Connector {
	return &connector{
		opts: opts,
	}
}

type connector struct {
	opts Options
}

func (cn *connector) Connect(ctx context.Context) (Client, error) {

	var loadopts []func(*awsconfig.LoadOptions) error

	if cn.opts.Region != "" {
		loadopts = append(loadopts, awsconfig.WithRegion(cn.opts.Region))
	}
	if cn.opts.Profile != "" {
		loadopts = append(loadopts, awsconfig.WithSharedConfigProfile(cn.opts.Profile))
	}
	if cn.opts.AccessKey != "" {
		loadopts = append(loadopts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cn.opts.AccessKey, cn.opts.SecretKey, "")))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadopts...)
	if err != nil {
		return nil, err
	}

	s3client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if cn.opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(cn.opts.Endpoint)
			o.UsePathStyle = true
		}
	})

	cl := client{
		client: s3client,
		bucket: aws.String(cn.opts.Bucket),
	}

	return &cl, nil
}

type client struct {
	client *s3.Client
	bucket *string
}
