package s3io

import (
	"bytes"
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

func (cl *client) CreateMultipart(ctx context.Context, key string, opts PutOptions) (Multipart, error) {

	input := s3.CreateMultipartUploadInput{
		Bucket:   cl.bucket,
		Key:      aws.String(key),
		Metadata: opts.Metadata,
	}
	if opts.ContentType != "" {
		input.ContentType = aws.String(opts.ContentType)
	}
	if opts.StorageClass != "" {
		input.StorageClass = types.StorageClass(opts.StorageClass)
	}

	resp, err := cl.client.CreateMultipartUpload(ctx, &input)
	if err != nil {
		return nil, err
	}

	mp := multipart{
		client:   cl.client,
		bucket:   cl.bucket,
		key:      aws.String(key),
		uploadId: resp.UploadId,
	}

	return &mp, nil
}

type multipart struct {
	client   *s3.Client
	bucket   *string
	key      *string
	uploadId *string
	parts    []types.CompletedPart
}

func (mp *multipart) UploadPart(ctx context.Context, number int32, data []byte) error {

	resp, err := mp.client.UploadPart(ctx, &s3.UploadPartInput{
		Bucket:        mp.bucket,
		Key:           mp.key,
		UploadId:      mp.uploadId,
		PartNumber:    aws.Int32(number),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return &ErrPartFailed{
			key:    aws.ToString(mp.key),
			number: number,
			err:    err,
		}
	}

	mp.parts = append(mp.parts, types.CompletedPart{
		ETag:       resp.ETag,
		PartNumber: aws.Int32(number),
	})

	return nil
}

func (mp *multipart) Complete(ctx context.Context) error {

	_, err := mp.client.CompleteMultipartUpload(ctx, &s3.CompleteMultipartUploadInput{
		Bucket:   mp.bucket,
		Key:      mp.key,
		UploadId: mp.uploadId,
		MultipartUpload: &types.CompletedMultipartUpload{
			Parts: mp.parts,
		},
	})

	return err
}

func (mp *multipart) Abort(ctx context.Context) error {

	_, err := mp.client.AbortMultipartUpload(ctx, &s3.AbortMultipartUploadInput{
		Bucket:   mp.bucket,
		Key:      mp.key,
		UploadId: mp.uploadId,
	})

	return err
}
