package s3io

import (
	"context"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

func (cl *client) Put(ctx context.Context, key string, source io.Reader, opts PutOptions) (int64, error) {

	// count the bytes handed to the store so the caller can confirm the
	// acknowledged transfer covered the whole file
	counter := NewReadCounter(source)
	defer counter.Close()

	input := s3.PutObjectInput{
		Bucket:        cl.bucket,
		Key:           aws.String(key),
		Body:          counter,
		ContentLength: aws.Int64(opts.ContentLength),
		Metadata:      opts.Metadata,
	}
	if opts.ContentMD5 != "" {
		input.ContentMD5 = aws.String(opts.ContentMD5)
	}
	if opts.ContentType != "" {
		input.ContentType = aws.String(opts.ContentType)
	}
	if opts.StorageClass != "" {
		input.StorageClass = types.StorageClass(opts.StorageClass)
	}

	_, err := cl.client.PutObject(ctx, &input)

	return counter.TotalBytes(), err
}

// Upload streams an auxiliary object whose length isn't known in advance.
// The manager splits and buffers as needed; part sequencing doesn't matter
// for these objects, unlike the primary multipart path.
func (cl *client) Upload(ctx context.Context, key string, contentType string, source io.Reader) (int64, error) {

	counter := NewReadCounter(source)
	defer counter.Close()

	uploader := manager.NewUploader(cl.client)

	input := s3.PutObjectInput{
		Bucket: cl.bucket,
		Key:    aws.String(key),
		Body:   counter,
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	_, err := uploader.Upload(ctx, &input)

	return counter.TotalBytes(), err
}
