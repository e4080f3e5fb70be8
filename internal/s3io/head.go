package s3io

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

func (cl *client) Head(ctx context.Context, key string) (*ObjectInfo, error) {

	resp, err := cl.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: cl.bucket,
		Key:    aws.String(key),
	})
	if err != nil {
		var responseError *awshttp.ResponseError
		if errors.As(err, &responseError) && responseError.ResponseError.HTTPStatusCode() == http.StatusNotFound {
			return nil, NoSuchObject(key)
		}
		return nil, err
	}

	info := ObjectInfo{
		Key:      key,
		Size:     aws.ToInt64(resp.ContentLength),
		ETag:     strings.Trim(aws.ToString(resp.ETag), "\""),
		Metadata: resp.Metadata,
	}

	return &info, nil
}

// PutMetadata rewrites the user metadata on an existing object with a
// self-copy. The metadata map replaces the object's metadata wholesale.
func (cl *client) PutMetadata(ctx context.Context, key string, metadata map[string]string) error {

	source := fmt.Sprintf("%s/%s", aws.ToString(cl.bucket), url.PathEscape(key))

	_, err := cl.client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:            cl.bucket,
		Key:               aws.String(key),
		CopySource:        aws.String(source),
		Metadata:          metadata,
		MetadataDirective: types.MetadataDirectiveReplace,
	})

	return err
}
